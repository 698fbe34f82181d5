package domain

import (
	"context"
	"time"
)

// Attendance is one presence interval for a visitor. A null exit time means
// the visitor is currently present. Attendances are created and closed by
// the entry/exit scanning flow; this service only reads them.
// swagger:model Attendance
type Attendance struct {
	ID        string     `json:"id"`
	VisitorID string     `json:"visitor_id"`
	EntryTime time.Time  `json:"entry_time"`
	ExitTime  *time.Time `json:"exit_time"`
}

// AttendanceEntry is one entry/exit pair in the per-day history view.
// swagger:model AttendanceEntry
type AttendanceEntry struct {
	Entry time.Time  `json:"entry"`
	Exit  *time.Time `json:"exit"`
}

// AttendanceDay groups a visitor's attendance entries by calendar date.
// swagger:model AttendanceDay
type AttendanceDay struct {
	Date    string             `json:"date"`
	Entries []*AttendanceEntry `json:"entries"`
}

// AttendanceRepository defines read operations over attendance records.
type AttendanceRepository interface {
	// ListByVisitor returns the visitor's attendances, newest entry first.
	ListByVisitor(ctx context.Context, visitorID string) ([]*Attendance, error)
	// ListOpenVisitorIDs returns the visitor id of every attendance with a
	// null exit time. Ids repeat when a visitor has several open entries.
	ListOpenVisitorIDs(ctx context.Context) ([]string, error)
}
