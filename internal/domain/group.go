package domain

import "context"

// StudentsGroup is a named group of member visitors.
// swagger:model StudentsGroup
type StudentsGroup struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// GroupMembership links a visitor to a group.
type GroupMembership struct {
	GroupID   string
	VisitorID string
}

// GroupStats is one row of the occupancy snapshot: total members vs
// distinct currently-present members.
// swagger:model GroupStats
type GroupStats struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Total   int    `json:"total"`
	Present int    `json:"present"`
}

// GroupRepository defines storage operations for student groups.
type GroupRepository interface {
	Create(ctx context.Context, g *StudentsGroup) error
	GetByID(ctx context.Context, id string) (*StudentsGroup, error)
	List(ctx context.Context) ([]*StudentsGroup, error)
	ListMemberships(ctx context.Context) ([]*GroupMembership, error)
	Update(ctx context.Context, id, name string) (*StudentsGroup, error)
	Delete(ctx context.Context, id string) error
}

// GroupService defines group CRUD operations.
type GroupService interface {
	Create(ctx context.Context, name string) (*StudentsGroup, error)
	Get(ctx context.Context, id string) (*StudentsGroup, error)
	List(ctx context.Context) ([]*StudentsGroup, error)
	Update(ctx context.Context, id, name string) (*StudentsGroup, error)
	Delete(ctx context.Context, id string) error
}

// StatsService computes the per-group occupancy snapshot served by the
// polling endpoint and pushed on the SSE stream.
type StatsService interface {
	Snapshot(ctx context.Context) ([]*GroupStats, error)
}
