package postgres

import (
	"context"
	"database/sql"

	"campuspass/internal/domain"
)

type attendanceRepository struct {
	DB *sql.DB
}

func NewAttendanceRepository(db *sql.DB) domain.AttendanceRepository {
	return &attendanceRepository{DB: db}
}

func (r *attendanceRepository) ListByVisitor(ctx context.Context, visitorID string) ([]*domain.Attendance, error) {
	query := `
		SELECT id, visitor_id, entry_time, exit_time
		FROM attendances
		WHERE visitor_id = $1
		ORDER BY entry_time DESC
	`
	rows, err := r.DB.QueryContext(ctx, query, visitorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	attendances := []*domain.Attendance{}
	for rows.Next() {
		a := &domain.Attendance{}
		var exit sql.NullTime
		if err := rows.Scan(&a.ID, &a.VisitorID, &a.EntryTime, &exit); err != nil {
			return nil, err
		}
		if exit.Valid {
			t := exit.Time
			a.ExitTime = &t
		}
		attendances = append(attendances, a)
	}
	return attendances, rows.Err()
}

func (r *attendanceRepository) ListOpenVisitorIDs(ctx context.Context) ([]string, error) {
	query := `SELECT visitor_id FROM attendances WHERE exit_time IS NULL`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
