package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"campuspass/internal/domain"
)

type visitorRepository struct {
	DB *sql.DB
}

func NewVisitorRepository(db *sql.DB) domain.VisitorRepository {
	return &visitorRepository{DB: db}
}

const visitorColumns = `v.id, v.first_name, v.middle_name, v.surname, v.email, v.blocked, v.created_at, v.updated_at`

func scanVisitor(row rowScanner) (*domain.Visitor, error) {
	v := &domain.Visitor{}
	err := row.Scan(&v.ID, &v.FirstName, &v.MiddleName, &v.Surname, &v.Email, &v.Blocked, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (r *visitorRepository) Create(ctx context.Context, v *domain.Visitor) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO visitors (first_name, middle_name, surname, email, blocked, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	err = tx.QueryRowContext(ctx, query,
		v.FirstName, v.MiddleName, v.Surname, v.Email, v.Blocked, v.CreatedAt, v.UpdatedAt).
		Scan(&v.ID)
	if err != nil {
		return err
	}
	if len(v.RoleIDs) > 0 {
		linkRoles := `
			INSERT INTO visitor_roles (visitor_id, role_id)
			SELECT $1, unnest($2::text[])
			ON CONFLICT DO NOTHING
		`
		if _, err := tx.ExecContext(ctx, linkRoles, v.ID, pq.Array(v.RoleIDs)); err != nil {
			return fmt.Errorf("link visitor roles: %w", err)
		}
	}
	return tx.Commit()
}

func (r *visitorRepository) GetByID(ctx context.Context, id string) (*domain.Visitor, error) {
	query := `
		SELECT ` + visitorColumns + `,
		       COALESCE(array_agg(vr.role_id) FILTER (WHERE vr.role_id IS NOT NULL), '{}')
		FROM visitors v
		LEFT JOIN visitor_roles vr ON vr.visitor_id = v.id
		WHERE v.id = $1
		GROUP BY v.id
	`
	v := &domain.Visitor{}
	var roleIDs []string
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&v.ID, &v.FirstName, &v.MiddleName, &v.Surname, &v.Email, &v.Blocked, &v.CreatedAt, &v.UpdatedAt,
		pq.Array(&roleIDs))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	v.RoleIDs = roleIDs
	return v, nil
}

func (r *visitorRepository) GetDetailed(ctx context.Context, id string) (*domain.VisitorDetailed, error) {
	v, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	d := &domain.VisitorDetailed{Visitor: *v}
	if d.Roles, err = r.listRefs(ctx, `SELECT pr.id, pr.name FROM person_roles pr JOIN visitor_roles vr ON vr.role_id = pr.id WHERE vr.visitor_id = $1 ORDER BY pr.name`, id); err != nil {
		return nil, err
	}
	if d.Positions, err = r.listRefs(ctx, `SELECT p.id, p.name FROM positions p JOIN visitor_positions vp ON vp.position_id = p.id WHERE vp.visitor_id = $1 ORDER BY p.name`, id); err != nil {
		return nil, err
	}
	if d.Departments, err = r.listRefs(ctx, `SELECT d.id, d.name FROM departments d JOIN visitor_departments vd ON vd.department_id = d.id WHERE vd.visitor_id = $1 ORDER BY d.name`, id); err != nil {
		return nil, err
	}
	if d.Groups, err = r.listRefs(ctx, `SELECT g.id, g.name FROM students_groups g JOIN students_group_members m ON m.group_id = g.id WHERE m.visitor_id = $1 ORDER BY g.name`, id); err != nil {
		return nil, err
	}
	return d, nil
}

func (r *visitorRepository) listRefs(ctx context.Context, query, id string) ([]domain.NamedRef, error) {
	rows, err := r.DB.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	refs := []domain.NamedRef{}
	for rows.Next() {
		var ref domain.NamedRef
		if err := rows.Scan(&ref.ID, &ref.Name); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

func (r *visitorRepository) List(ctx context.Context, p domain.PaginationParams) ([]*domain.Visitor, int, error) {
	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM visitors`).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := `
		SELECT ` + visitorColumns + `
		FROM visitors v
		ORDER BY v.created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.DB.QueryContext(ctx, query, p.PageSize, p.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	visitors := []*domain.Visitor{}
	for rows.Next() {
		v, err := scanVisitor(rows)
		if err != nil {
			return nil, 0, err
		}
		visitors = append(visitors, v)
	}
	return visitors, total, rows.Err()
}

// Search matches every term against name, email and role-name columns,
// case-insensitively. A visitor matches when any term matches any column.
func (r *visitorRepository) Search(ctx context.Context, terms []string) ([]*domain.VisitorDetailed, error) {
	if len(terms) == 0 {
		return []*domain.VisitorDetailed{}, nil
	}
	var conds []string
	var args []any
	for _, term := range terms {
		args = append(args, "%"+term+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf(`(v.surname ILIKE $%d OR v.first_name ILIKE $%d OR v.middle_name ILIKE $%d OR v.email ILIKE $%d
			OR EXISTS (SELECT 1 FROM visitor_roles vr JOIN person_roles pr ON pr.id = vr.role_id WHERE vr.visitor_id = v.id AND pr.name ILIKE $%d))`,
			n, n, n, n, n))
	}
	query := `
		SELECT v.id
		FROM visitors v
		WHERE ` + strings.Join(conds, " OR ") + `
		ORDER BY v.surname, v.first_name
	`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Load relations per match (N+1). Search result sets are small; keep it
	// simple and optimize later if needed.
	result := make([]*domain.VisitorDetailed, 0, len(ids))
	for _, id := range ids {
		d, err := r.GetDetailed(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, err
		}
		result = append(result, d)
	}
	return result, nil
}

func (r *visitorRepository) ListByRole(ctx context.Context, f domain.VisitorRoleFilter) ([]*domain.VisitorRoleRow, int, error) {
	var conds []string
	var args []any
	if f.Role != "" {
		args = append(args, f.Role)
		conds = append(conds, fmt.Sprintf(`EXISTS (SELECT 1 FROM visitor_roles vr JOIN person_roles pr ON pr.id = vr.role_id WHERE vr.visitor_id = v.id AND pr.name = $%d)`, len(args)))
	} else if f.Position != "" {
		args = append(args, f.Position)
		conds = append(conds, fmt.Sprintf(`EXISTS (SELECT 1 FROM visitor_positions vp JOIN positions p ON p.id = vp.position_id WHERE vp.visitor_id = v.id AND p.name = $%d)`, len(args)))
	}
	for _, term := range strings.Fields(f.Search) {
		args = append(args, "%"+term+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf(`(v.surname ILIKE $%d OR v.first_name ILIKE $%d OR v.middle_name ILIKE $%d OR v.email ILIKE $%d)`, n, n, n, n))
	}
	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM visitors v ` + where
	if err := r.DB.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	pageArgs := append(args, f.PageSize, (f.Page-1)*f.PageSize)
	query := `
		SELECT ` + visitorColumns + `
		FROM visitors v
		` + where + `
		ORDER BY v.created_at DESC
		LIMIT $` + fmt.Sprint(len(args)+1) + ` OFFSET $` + fmt.Sprint(len(args)+2) + `
	`
	rows, err := r.DB.QueryContext(ctx, query, pageArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var visitors []*domain.Visitor
	for rows.Next() {
		v, err := scanVisitor(rows)
		if err != nil {
			return nil, 0, err
		}
		visitors = append(visitors, v)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	result := make([]*domain.VisitorRoleRow, 0, len(visitors))
	for _, v := range visitors {
		row := &domain.VisitorRoleRow{
			ID:       v.ID,
			FullName: strings.TrimSpace(strings.Join([]string{v.Surname, v.FirstName, v.MiddleName}, " ")),
			Email:    v.Email,
			Blocked:  v.Blocked,
			Status:   domain.PresenceStatusAbsent,
		}
		row.FullName = strings.Join(strings.Fields(row.FullName), " ")

		positions, err := r.listRefs(ctx, `SELECT p.id, p.name FROM positions p JOIN visitor_positions vp ON vp.position_id = p.id WHERE vp.visitor_id = $1 ORDER BY p.name`, v.ID)
		if err != nil {
			return nil, 0, err
		}
		row.Positions = refNames(positions)

		roles, err := r.listRefs(ctx, `SELECT pr.id, pr.name FROM person_roles pr JOIN visitor_roles vr ON vr.role_id = pr.id WHERE vr.visitor_id = $1 ORDER BY pr.name`, v.ID)
		if err != nil {
			return nil, 0, err
		}
		row.Roles = refNames(roles)

		groups, err := r.listRefs(ctx, `SELECT g.id, g.name FROM students_groups g JOIN students_group_members m ON m.group_id = g.id WHERE m.visitor_id = $1 ORDER BY g.name`, v.ID)
		if err != nil {
			return nil, 0, err
		}
		if len(groups) > 0 {
			name := groups[0].Name
			row.Group = &name
		}

		var entry sql.NullTime
		var exit sql.NullTime
		err = r.DB.QueryRowContext(ctx,
			`SELECT entry_time, exit_time FROM attendances WHERE visitor_id = $1 ORDER BY entry_time DESC LIMIT 1`,
			v.ID).Scan(&entry, &exit)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, 0, err
		}
		if entry.Valid {
			t := entry.Time
			row.LastEntry = &t
			if exit.Valid {
				e := exit.Time
				row.LastExit = &e
			} else {
				row.Status = domain.PresenceStatusPresent
			}
		}
		result = append(result, row)
	}
	return result, total, nil
}

func refNames(refs []domain.NamedRef) []string {
	names := make([]string, 0, len(refs))
	for _, ref := range refs {
		names = append(names, ref.Name)
	}
	return names
}

func (r *visitorRepository) CountCategories(ctx context.Context) (*domain.CategoryCounts, error) {
	c := &domain.CategoryCounts{}
	queries := []struct {
		dst   *int
		query string
		args  []any
	}{
		{&c.Total, `SELECT COUNT(*) FROM visitors`, nil},
		{&c.Students, `SELECT COUNT(DISTINCT m.visitor_id) FROM students_group_members m`, nil},
		{&c.Teachers, `SELECT COUNT(DISTINCT vp.visitor_id) FROM visitor_positions vp JOIN positions p ON p.id = vp.position_id WHERE p.name = $1`, []any{"Teacher"}},
		{&c.Employees, `SELECT COUNT(DISTINCT vr.visitor_id) FROM visitor_roles vr JOIN person_roles pr ON pr.id = vr.role_id WHERE pr.name = $1`, []any{"Employee"}},
		{&c.Guests, `SELECT COUNT(DISTINCT vr.visitor_id) FROM visitor_roles vr JOIN person_roles pr ON pr.id = vr.role_id WHERE pr.name = $1`, []any{"Guest"}},
	}
	for _, q := range queries {
		if err := r.DB.QueryRowContext(ctx, q.query, q.args...).Scan(q.dst); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (r *visitorRepository) Update(ctx context.Context, id string, upd domain.VisitorUpdate) (*domain.Visitor, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	query := `
		UPDATE visitors
		SET first_name = COALESCE($2, first_name),
		    middle_name = COALESCE($3, middle_name),
		    surname = COALESCE($4, surname),
		    email = COALESCE($5, email),
		    blocked = COALESCE($6, blocked),
		    updated_at = now()
		WHERE id = $1
		RETURNING id, first_name, middle_name, surname, email, blocked, created_at, updated_at
	`
	v := &domain.Visitor{}
	err = tx.QueryRowContext(ctx, query, id, upd.FirstName, upd.MiddleName, upd.Surname, upd.Email, upd.Blocked).
		Scan(&v.ID, &v.FirstName, &v.MiddleName, &v.Surname, &v.Email, &v.Blocked, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	// A non-nil role list replaces the visitor's role links.
	if upd.RoleIDs != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM visitor_roles WHERE visitor_id = $1`, id); err != nil {
			return nil, err
		}
		if len(upd.RoleIDs) > 0 {
			linkRoles := `
				INSERT INTO visitor_roles (visitor_id, role_id)
				SELECT $1, unnest($2::text[])
				ON CONFLICT DO NOTHING
			`
			if _, err := tx.ExecContext(ctx, linkRoles, id, pq.Array(upd.RoleIDs)); err != nil {
				return nil, err
			}
		}
		v.RoleIDs = upd.RoleIDs
	} else {
		var roleIDs []string
		loadRoles := `
			SELECT COALESCE(array_agg(role_id), '{}')
			FROM visitor_roles
			WHERE visitor_id = $1
		`
		if err := tx.QueryRowContext(ctx, loadRoles, id).Scan(pq.Array(&roleIDs)); err != nil {
			return nil, err
		}
		v.RoleIDs = roleIDs
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return v, nil
}

func (r *visitorRepository) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM visitors WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
