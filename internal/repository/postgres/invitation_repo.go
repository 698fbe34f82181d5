package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"campuspass/internal/domain"
)

const invitationColumns = `id, token, status, valid_from, valid_to, visitor_data, created_by, visitor_id, created_at, updated_at`

type invitationRepository struct {
	DB *sql.DB
}

func NewInvitationRepository(db *sql.DB) domain.InvitationRepository {
	return &invitationRepository{DB: db}
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvitation(row rowScanner) (*domain.Invitation, error) {
	inv := &domain.Invitation{}
	var data []byte
	var visitorID sql.NullString
	err := row.Scan(&inv.ID, &inv.Token, &inv.Status, &inv.ValidFrom, &inv.ValidTo,
		&data, &inv.CreatedBy, &visitorID, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if visitorID.Valid {
		inv.VisitorID = &visitorID.String
	}
	if len(data) > 0 {
		snapshot := &domain.VisitorSnapshot{}
		if err := json.Unmarshal(data, snapshot); err != nil {
			return nil, fmt.Errorf("decode visitor_data: %w", err)
		}
		inv.VisitorData = snapshot
	}
	return inv, nil
}

func (r *invitationRepository) Create(ctx context.Context, inv *domain.Invitation) error {
	data, err := json.Marshal(inv.VisitorData)
	if err != nil {
		return fmt.Errorf("encode visitor_data: %w", err)
	}
	query := `
		INSERT INTO invitation_links (token, status, valid_from, valid_to, visitor_data, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query,
		inv.Token, inv.Status, inv.ValidFrom, inv.ValidTo, data, inv.CreatedBy, inv.CreatedAt, inv.UpdatedAt).
		Scan(&inv.ID)
}

func (r *invitationRepository) GetByID(ctx context.Context, id string) (*domain.Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM invitation_links WHERE id = $1`
	inv, err := scanInvitation(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return inv, nil
}

// GetApprovedByToken resolves a token restricted to approved invitations.
// A pending or rejected invitation yields ErrNotFound, same as an unknown
// token, so callers cannot probe invitation status.
func (r *invitationRepository) GetApprovedByToken(ctx context.Context, token string) (*domain.Invitation, *domain.Visitor, error) {
	query := `
		SELECT i.id, i.token, i.status, i.valid_from, i.valid_to, i.visitor_data, i.created_by, i.visitor_id, i.created_at, i.updated_at,
		       v.id, v.first_name, v.middle_name, v.surname, v.email
		FROM invitation_links i
		LEFT JOIN visitors v ON v.id = i.visitor_id
		WHERE i.token = $1 AND i.status = $2
	`
	inv := &domain.Invitation{}
	var data []byte
	var invVisitorID, vID, vFirst, vMiddle, vSurname, vEmail sql.NullString
	err := r.DB.QueryRowContext(ctx, query, token, domain.InvitationStatusApproved).Scan(
		&inv.ID, &inv.Token, &inv.Status, &inv.ValidFrom, &inv.ValidTo, &data, &inv.CreatedBy, &invVisitorID,
		&inv.CreatedAt, &inv.UpdatedAt,
		&vID, &vFirst, &vMiddle, &vSurname, &vEmail)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, domain.ErrNotFound
		}
		return nil, nil, err
	}
	if invVisitorID.Valid {
		inv.VisitorID = &invVisitorID.String
	}
	if len(data) > 0 {
		snapshot := &domain.VisitorSnapshot{}
		if err := json.Unmarshal(data, snapshot); err != nil {
			return nil, nil, fmt.Errorf("decode visitor_data: %w", err)
		}
		inv.VisitorData = snapshot
	}
	var visitor *domain.Visitor
	if vID.Valid {
		visitor = &domain.Visitor{
			ID:         vID.String,
			FirstName:  vFirst.String,
			MiddleName: vMiddle.String,
			Surname:    vSurname.String,
			Email:      vEmail.String,
		}
	}
	return inv, visitor, nil
}

func (r *invitationRepository) ListByCreator(ctx context.Context, creatorID string) ([]*domain.InvitationWithRelations, error) {
	return r.list(ctx, `WHERE i.created_by = $1`, creatorID)
}

func (r *invitationRepository) ListAll(ctx context.Context) ([]*domain.InvitationWithRelations, error) {
	return r.list(ctx, ``)
}

func (r *invitationRepository) list(ctx context.Context, where string, args ...any) ([]*domain.InvitationWithRelations, error) {
	query := `
		SELECT i.id, i.token, i.status, i.valid_from, i.valid_to, i.visitor_data, i.created_by, i.visitor_id, i.created_at, i.updated_at,
		       v.id, v.first_name, v.middle_name, v.surname, v.email,
		       u.id, u.email, u.first_name
		FROM invitation_links i
		LEFT JOIN visitors v ON v.id = i.visitor_id
		LEFT JOIN users u ON u.id = i.created_by
		` + where + `
		ORDER BY i.created_at DESC
	`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.InvitationWithRelations
	for rows.Next() {
		inv := &domain.Invitation{}
		var data []byte
		var invVisitorID sql.NullString
		var vID, vFirst, vMiddle, vSurname, vEmail sql.NullString
		var uID, uEmail, uFirst sql.NullString
		err := rows.Scan(
			&inv.ID, &inv.Token, &inv.Status, &inv.ValidFrom, &inv.ValidTo, &data, &inv.CreatedBy, &invVisitorID,
			&inv.CreatedAt, &inv.UpdatedAt,
			&vID, &vFirst, &vMiddle, &vSurname, &vEmail,
			&uID, &uEmail, &uFirst)
		if err != nil {
			return nil, err
		}
		if invVisitorID.Valid {
			inv.VisitorID = &invVisitorID.String
		}
		if len(data) > 0 {
			snapshot := &domain.VisitorSnapshot{}
			if err := json.Unmarshal(data, snapshot); err != nil {
				return nil, fmt.Errorf("decode visitor_data: %w", err)
			}
			inv.VisitorData = snapshot
		}
		item := &domain.InvitationWithRelations{Invitation: inv}
		if vID.Valid {
			item.Visitor = &domain.Visitor{
				ID:         vID.String,
				FirstName:  vFirst.String,
				MiddleName: vMiddle.String,
				Surname:    vSurname.String,
				Email:      vEmail.String,
			}
		}
		if uID.Valid {
			item.CreatedBy = &domain.UserProjection{
				ID:        uID.String,
				Email:     uEmail.String,
				FirstName: uFirst.String,
			}
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if result == nil {
		result = []*domain.InvitationWithRelations{}
	}
	return result, nil
}

func (r *invitationRepository) UpdateStatus(ctx context.Context, id, status string) (*domain.Invitation, error) {
	query := `
		UPDATE invitation_links
		SET status = $2, updated_at = $3
		WHERE id = $1
		RETURNING ` + invitationColumns + `
	`
	inv, err := scanInvitation(r.DB.QueryRowContext(ctx, query, id, status, time.Now()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return inv, nil
}

// Approve performs the approval transition atomically: the invitation row
// is locked for the duration of the transaction, so concurrent approvals of
// the same invitation serialize and only the first one creates a visitor.
func (r *invitationRepository) Approve(ctx context.Context, id string) (*domain.Invitation, *domain.Visitor, bool, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, false, err
	}
	defer tx.Rollback()

	lockQuery := `SELECT ` + invitationColumns + ` FROM invitation_links WHERE id = $1 FOR UPDATE`
	inv, err := scanInvitation(tx.QueryRowContext(ctx, lockQuery, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, false, domain.ErrNotFound
		}
		return nil, nil, false, err
	}

	if inv.Status == domain.InvitationStatusApproved {
		// Already approved: the visitor was created on the first approval.
		var visitor *domain.Visitor
		if inv.VisitorID != nil {
			visitor, err = getVisitorTx(ctx, tx, *inv.VisitorID)
			if err != nil && !errors.Is(err, domain.ErrNotFound) {
				return nil, nil, false, err
			}
		}
		if err := tx.Commit(); err != nil {
			return nil, nil, false, err
		}
		return inv, visitor, false, nil
	}

	snapshot := inv.VisitorData
	if snapshot == nil {
		snapshot = &domain.VisitorSnapshot{}
	}
	now := time.Now()
	visitor := &domain.Visitor{
		FirstName:  snapshot.FirstName,
		MiddleName: snapshot.MiddleName,
		Surname:    snapshot.Surname,
		Email:      snapshot.Email,
		RoleIDs:    snapshot.RoleIDs,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if visitor.RoleIDs == nil {
		visitor.RoleIDs = []string{}
	}
	insertVisitor := `
		INSERT INTO visitors (first_name, middle_name, surname, email, blocked, created_at, updated_at)
		VALUES ($1, $2, $3, $4, false, $5, $6)
		RETURNING id
	`
	err = tx.QueryRowContext(ctx, insertVisitor,
		visitor.FirstName, visitor.MiddleName, visitor.Surname, visitor.Email, now, now).
		Scan(&visitor.ID)
	if err != nil {
		return nil, nil, false, fmt.Errorf("create visitor: %w", err)
	}
	if len(visitor.RoleIDs) > 0 {
		linkRoles := `
			INSERT INTO visitor_roles (visitor_id, role_id)
			SELECT $1, unnest($2::text[])
			ON CONFLICT DO NOTHING
		`
		if _, err := tx.ExecContext(ctx, linkRoles, visitor.ID, pq.Array(visitor.RoleIDs)); err != nil {
			return nil, nil, false, fmt.Errorf("link visitor roles: %w", err)
		}
	}

	updateInv := `
		UPDATE invitation_links
		SET status = $2, visitor_id = $3, updated_at = $4
		WHERE id = $1
		RETURNING ` + invitationColumns + `
	`
	inv, err = scanInvitation(tx.QueryRowContext(ctx, updateInv, id, domain.InvitationStatusApproved, visitor.ID, now))
	if err != nil {
		return nil, nil, false, fmt.Errorf("update invitation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, false, err
	}
	return inv, visitor, true, nil
}

func getVisitorTx(ctx context.Context, tx *sql.Tx, id string) (*domain.Visitor, error) {
	query := `
		SELECT id, first_name, middle_name, surname, email, blocked, created_at, updated_at
		FROM visitors
		WHERE id = $1
	`
	v := &domain.Visitor{}
	err := tx.QueryRowContext(ctx, query, id).Scan(
		&v.ID, &v.FirstName, &v.MiddleName, &v.Surname, &v.Email, &v.Blocked, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return v, nil
}

func (r *invitationRepository) Update(ctx context.Context, id string, upd domain.InvitationUpdate) (*domain.Invitation, error) {
	query := `
		UPDATE invitation_links
		SET valid_from = COALESCE($2, valid_from),
		    valid_to = COALESCE($3, valid_to),
		    updated_at = $4
		WHERE id = $1
		RETURNING ` + invitationColumns + `
	`
	inv, err := scanInvitation(r.DB.QueryRowContext(ctx, query, id, upd.ValidFrom, upd.ValidTo, time.Now()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return inv, nil
}

func (r *invitationRepository) Delete(ctx context.Context, id string) (*domain.Invitation, error) {
	query := `DELETE FROM invitation_links WHERE id = $1 RETURNING ` + invitationColumns
	inv, err := scanInvitation(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return inv, nil
}
