package postgres

import (
	"context"
	"database/sql"
	"errors"

	"campuspass/internal/domain"
)

type groupRepository struct {
	DB *sql.DB
}

func NewGroupRepository(db *sql.DB) domain.GroupRepository {
	return &groupRepository{DB: db}
}

func (r *groupRepository) Create(ctx context.Context, g *domain.StudentsGroup) error {
	query := `
		INSERT INTO students_groups (name)
		VALUES ($1)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query, g.Name).Scan(&g.ID)
}

func (r *groupRepository) GetByID(ctx context.Context, id string) (*domain.StudentsGroup, error) {
	query := `SELECT id, name FROM students_groups WHERE id = $1`
	g := &domain.StudentsGroup{}
	err := r.DB.QueryRowContext(ctx, query, id).Scan(&g.ID, &g.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return g, nil
}

func (r *groupRepository) List(ctx context.Context) ([]*domain.StudentsGroup, error) {
	query := `SELECT id, name FROM students_groups ORDER BY name`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	groups := []*domain.StudentsGroup{}
	for rows.Next() {
		g := &domain.StudentsGroup{}
		if err := rows.Scan(&g.ID, &g.Name); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (r *groupRepository) ListMemberships(ctx context.Context) ([]*domain.GroupMembership, error) {
	query := `SELECT group_id, visitor_id FROM students_group_members`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	memberships := []*domain.GroupMembership{}
	for rows.Next() {
		m := &domain.GroupMembership{}
		if err := rows.Scan(&m.GroupID, &m.VisitorID); err != nil {
			return nil, err
		}
		memberships = append(memberships, m)
	}
	return memberships, rows.Err()
}

func (r *groupRepository) Update(ctx context.Context, id, name string) (*domain.StudentsGroup, error) {
	query := `
		UPDATE students_groups
		SET name = $2
		WHERE id = $1
		RETURNING id, name
	`
	g := &domain.StudentsGroup{}
	err := r.DB.QueryRowContext(ctx, query, id, name).Scan(&g.ID, &g.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return g, nil
}

func (r *groupRepository) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM students_groups WHERE id = $1`, id)
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
