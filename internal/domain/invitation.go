package domain

import (
	"context"
	"time"
)

// Invitation statuses. The set is closed; UpdateStatus rejects anything else.
const (
	InvitationStatusPending  = "pending"
	InvitationStatusApproved = "approved"
	InvitationStatusRejected = "rejected"
)

// ValidInvitationStatus reports whether s is one of the known statuses.
func ValidInvitationStatus(s string) bool {
	switch s {
	case InvitationStatusPending, InvitationStatusApproved, InvitationStatusRejected:
		return true
	}
	return false
}

// VisitorSnapshot is the prospective-visitor data embedded in an invitation
// at creation time. It is immutable afterwards; the visitor created on
// approval is populated from it.
// swagger:model VisitorSnapshot
type VisitorSnapshot struct {
	FirstName  string   `json:"first_name"`
	MiddleName string   `json:"middle_name,omitempty"`
	Surname    string   `json:"surname"`
	Email      string   `json:"email"`
	RoleIDs    []string `json:"role_ids,omitempty"`
}

// Invitation represents an invitation link gating visitor creation.
// swagger:model Invitation
type Invitation struct {
	ID          string           `json:"id"`
	Token       string           `json:"token"`
	Status      string           `json:"status"`
	ValidFrom   time.Time        `json:"valid_from"`
	ValidTo     time.Time        `json:"valid_to"`
	VisitorData *VisitorSnapshot `json:"visitor_data"`
	CreatedBy   string           `json:"created_by"`
	VisitorID   *string          `json:"visitor_id,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// InvitationWithRelations bundles an invitation with its resolved visitor
// and creator projections for list/detail views.
type InvitationWithRelations struct {
	Invitation *Invitation     `json:"invitation"`
	Visitor    *Visitor        `json:"visitor,omitempty"`
	CreatedBy  *UserProjection `json:"created_by,omitempty"`
}

// UserProjection is the subset of a user exposed alongside invitations.
// swagger:model UserProjection
type UserProjection struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
}

// ActivationResult is returned by token activation for an approved,
// currently valid invitation.
// swagger:model ActivationResult
type ActivationResult struct {
	Valid     bool      `json:"valid"`
	Visitor   *Visitor  `json:"visitor"`
	ValidFrom time.Time `json:"valid_from"`
	ValidTo   time.Time `json:"valid_to"`
}

// InvitationUpdate carries the mutable fields for a generic invitation
// update. Nil fields are left untouched. Token, status, snapshot and the
// visitor reference are never updatable through this path.
type InvitationUpdate struct {
	ValidFrom *time.Time
	ValidTo   *time.Time
}

// InvitationRepository defines storage operations for invitation links.
type InvitationRepository interface {
	Create(ctx context.Context, inv *Invitation) error
	GetByID(ctx context.Context, id string) (*Invitation, error)
	// GetApprovedByToken resolves an invitation by token, restricted to
	// approved status. A pending or rejected invitation is reported as
	// ErrNotFound, indistinguishable from an unknown token.
	GetApprovedByToken(ctx context.Context, token string) (*Invitation, *Visitor, error)
	ListByCreator(ctx context.Context, creatorID string) ([]*InvitationWithRelations, error)
	ListAll(ctx context.Context) ([]*InvitationWithRelations, error)
	UpdateStatus(ctx context.Context, id, status string) (*Invitation, error)
	// Approve performs the approval transition in a single transaction:
	// lock the invitation row, create a visitor from the embedded snapshot
	// unless the invitation is already approved, then set status and the
	// visitor reference together. created is false when the invitation was
	// already approved and no visitor was created.
	Approve(ctx context.Context, id string) (inv *Invitation, visitor *Visitor, created bool, err error)
	Update(ctx context.Context, id string, upd InvitationUpdate) (*Invitation, error)
	Delete(ctx context.Context, id string) (*Invitation, error)
}

// InvitationService defines the invitation lifecycle operations.
type InvitationService interface {
	Create(ctx context.Context, snapshot *VisitorSnapshot, validFrom, validTo time.Time, creatorID string) (*Invitation, error)
	Get(ctx context.Context, id string) (*InvitationWithRelations, error)
	ListMine(ctx context.Context, creatorID string) ([]*InvitationWithRelations, error)
	ListAll(ctx context.Context) ([]*InvitationWithRelations, error)
	// UpdateStatus transitions the invitation. Transitioning to approved
	// creates the visitor from the embedded snapshot exactly once,
	// regardless of how many times approval is requested.
	UpdateStatus(ctx context.Context, id, status string) (*Invitation, *Visitor, error)
	Activate(ctx context.Context, token string) (*ActivationResult, error)
	Update(ctx context.Context, id string, upd InvitationUpdate) (*Invitation, error)
	Delete(ctx context.Context, id, callerID string) (*Invitation, error)
}
