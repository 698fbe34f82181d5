package domain

import (
	"context"
	"time"
)

// Visitor represents a tracked person with attendance history.
// swagger:model Visitor
type Visitor struct {
	ID         string    `json:"id"`
	FirstName  string    `json:"first_name"`
	MiddleName string    `json:"middle_name,omitempty"`
	Surname    string    `json:"surname"`
	Email      string    `json:"email"`
	Blocked    bool      `json:"blocked"`
	RoleIDs    []string  `json:"role_ids,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NamedRef is an id+name projection of a related record (role, position,
// department, group).
// swagger:model NamedRef
type NamedRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// VisitorDetailed is a visitor joined with the names of its relations.
// swagger:model VisitorDetailed
type VisitorDetailed struct {
	Visitor
	Roles       []NamedRef `json:"roles"`
	Positions   []NamedRef `json:"positions"`
	Departments []NamedRef `json:"departments"`
	Groups      []NamedRef `json:"groups"`
}

// SearchResult partitions matched visitors by affiliation. A visitor can
// appear in more than one bucket; "other" holds role-only visitors with no
// group, position or department.
// swagger:model SearchResult
type SearchResult struct {
	Students          []*VisitorDetailed `json:"students"`
	Staff             []*VisitorDetailed `json:"staff"`
	DepartmentMembers []*VisitorDetailed `json:"department_members"`
	Other             []*VisitorDetailed `json:"other"`
}

// VisitorRoleRow is one row in the by-role listing, including presence
// derived from the visitor's latest attendance.
// swagger:model VisitorRoleRow
type VisitorRoleRow struct {
	ID        string     `json:"id"`
	FullName  string     `json:"full_name"`
	Email     string     `json:"email"`
	Blocked   bool       `json:"blocked"`
	Positions []string   `json:"positions"`
	Group     *string    `json:"group"`
	Roles     []string   `json:"roles"`
	Status    string     `json:"status"`
	LastEntry *time.Time `json:"last_entry"`
	LastExit  *time.Time `json:"last_exit"`
}

// Presence statuses used in VisitorRoleRow.
const (
	PresenceStatusPresent = "present"
	PresenceStatusAbsent  = "absent"
)

// VisitorRoleFilter narrows the by-role listing. Role and Position are
// exclusive; Search matches name/email terms.
type VisitorRoleFilter struct {
	Role     string
	Position string
	Search   string
	Page     int
	PageSize int
}

// VisitorCategory is one row of the category-counts endpoint.
// swagger:model VisitorCategory
type VisitorCategory struct {
	CategoryName    string `json:"category_name"`
	CategorySysName string `json:"category_sys_name"`
	Total           int    `json:"total"`
}

// VisitorUpdate carries the mutable visitor fields; nil means unchanged.
type VisitorUpdate struct {
	FirstName  *string
	MiddleName *string
	Surname    *string
	Email      *string
	Blocked    *bool
	RoleIDs    []string
}

// CategoryCounts holds the raw counts the categories endpoint is built from.
type CategoryCounts struct {
	Total     int
	Students  int
	Teachers  int
	Employees int
	Guests    int
}

// VisitorRepository defines storage operations for visitors and their
// projections.
type VisitorRepository interface {
	Create(ctx context.Context, v *Visitor) error
	GetByID(ctx context.Context, id string) (*Visitor, error)
	GetDetailed(ctx context.Context, id string) (*VisitorDetailed, error)
	List(ctx context.Context, p PaginationParams) ([]*Visitor, int, error)
	Search(ctx context.Context, terms []string) ([]*VisitorDetailed, error)
	ListByRole(ctx context.Context, f VisitorRoleFilter) ([]*VisitorRoleRow, int, error)
	CountCategories(ctx context.Context) (*CategoryCounts, error)
	Update(ctx context.Context, id string, upd VisitorUpdate) (*Visitor, error)
	Delete(ctx context.Context, id string) error
}

// VisitorService defines visitor-facing operations.
type VisitorService interface {
	Create(ctx context.Context, v *Visitor) (*Visitor, error)
	Get(ctx context.Context, id string) (*Visitor, error)
	GetDetailed(ctx context.Context, id string) (*VisitorDetailed, error)
	List(ctx context.Context, p PaginationParams) ([]*Visitor, int, error)
	Search(ctx context.Context, query string) (*SearchResult, error)
	ListByRole(ctx context.Context, f VisitorRoleFilter) ([]*VisitorRoleRow, int, error)
	Categories(ctx context.Context) ([]*VisitorCategory, error)
	AttendanceHistory(ctx context.Context, id string) ([]*AttendanceDay, error)
	Update(ctx context.Context, id string, upd VisitorUpdate) (*Visitor, error)
	Delete(ctx context.Context, id string) error
}
