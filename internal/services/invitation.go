package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"campuspass/internal/domain"
)

type invitationService struct {
	repo    domain.InvitationRepository
	hub     domain.EventHub
	email   domain.EmailService
	baseURL string
	logger  *slog.Logger
}

// NewInvitationService creates an InvitationService. email may be nil when
// no mailer is configured; approval then skips the notification.
func NewInvitationService(
	repo domain.InvitationRepository,
	hub domain.EventHub,
	email domain.EmailService,
	baseURL string,
	logger *slog.Logger,
) domain.InvitationService {
	return &invitationService{
		repo:    repo,
		hub:     hub,
		email:   email,
		baseURL: baseURL,
		logger:  logger,
	}
}

func (s *invitationService) Create(ctx context.Context, snapshot *domain.VisitorSnapshot, validFrom, validTo time.Time, creatorID string) (*domain.Invitation, error) {
	if snapshot == nil || validFrom.IsZero() || validTo.IsZero() {
		return nil, fmt.Errorf("%w: visitor_data, validFrom and validTo are required", domain.ErrInvalidInput)
	}

	now := time.Now()
	inv := &domain.Invitation{
		Token:       uuid.NewString(),
		Status:      domain.InvitationStatusPending,
		ValidFrom:   validFrom,
		ValidTo:     validTo,
		VisitorData: snapshot,
		CreatedBy:   creatorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, inv); err != nil {
		return nil, fmt.Errorf("create invitation: %w", err)
	}
	s.hub.Publish(domain.Event{Action: domain.EventCreated, Record: "invitation", ID: inv.ID})
	return inv, nil
}

func (s *invitationService) Get(ctx context.Context, id string) (*domain.InvitationWithRelations, error) {
	inv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get invitation: %w", err)
	}
	// Reuse the list projection to resolve visitor and creator; single-row
	// lookups are rare enough that the extra filter read does not matter.
	items, err := s.repo.ListByCreator(ctx, inv.CreatedBy)
	if err != nil {
		return nil, fmt.Errorf("resolve invitation relations: %w", err)
	}
	for _, item := range items {
		if item.Invitation.ID == inv.ID {
			return item, nil
		}
	}
	return &domain.InvitationWithRelations{Invitation: inv}, nil
}

func (s *invitationService) ListMine(ctx context.Context, creatorID string) ([]*domain.InvitationWithRelations, error) {
	items, err := s.repo.ListByCreator(ctx, creatorID)
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	return items, nil
}

func (s *invitationService) ListAll(ctx context.Context) ([]*domain.InvitationWithRelations, error) {
	items, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	return items, nil
}

func (s *invitationService) UpdateStatus(ctx context.Context, id, status string) (*domain.Invitation, *domain.Visitor, error) {
	if !domain.ValidInvitationStatus(status) {
		return nil, nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, status)
	}

	if status != domain.InvitationStatusApproved {
		inv, err := s.repo.UpdateStatus(ctx, id, status)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, nil, domain.ErrNotFound
			}
			return nil, nil, fmt.Errorf("update invitation status: %w", err)
		}
		s.hub.Publish(domain.Event{Action: domain.EventUpdated, Record: "invitation", ID: inv.ID})
		return inv, nil, nil
	}

	// Approval creates the visitor from the embedded snapshot exactly once;
	// the repository serializes concurrent approvals on the invitation row.
	inv, visitor, created, err := s.repo.Approve(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, domain.ErrNotFound
		}
		return nil, nil, fmt.Errorf("approve invitation: %w", err)
	}
	s.hub.Publish(domain.Event{Action: domain.EventUpdated, Record: "invitation", ID: inv.ID})
	if created {
		s.hub.Publish(domain.Event{Action: domain.EventCreated, Record: "visitor", ID: visitor.ID})
		s.notifyApproved(inv, visitor)
	}
	return inv, visitor, nil
}

// notifyApproved sends the activation link to the invitee. Best effort: a
// failed send is logged and never fails the approval.
func (s *invitationService) notifyApproved(inv *domain.Invitation, visitor *domain.Visitor) {
	if s.email == nil || visitor == nil || visitor.Email == "" {
		return
	}
	data := &domain.InvitationApprovedEmailData{
		Email:         visitor.Email,
		FirstName:     visitor.FirstName,
		ActivationURL: fmt.Sprintf("%s/invitation-links/activate/%s", s.baseURL, inv.Token),
		ValidFrom:     inv.ValidFrom.Format(time.RFC1123),
		ValidTo:       inv.ValidTo.Format(time.RFC1123),
	}
	go func() {
		if err := s.email.SendInvitationApproved(context.Background(), data); err != nil {
			s.logger.Error("invitation approved email failed", "invitation_id", inv.ID, "err", err)
		}
	}()
}

func (s *invitationService) Activate(ctx context.Context, token string) (*domain.ActivationResult, error) {
	inv, visitor, err := s.repo.GetApprovedByToken(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get invitation by token: %w", err)
	}

	now := time.Now()
	if now.Before(inv.ValidFrom) || now.After(inv.ValidTo) {
		return nil, fmt.Errorf("%w: invitation link has expired", domain.ErrInvalidInput)
	}

	return &domain.ActivationResult{
		Valid:     true,
		Visitor:   visitor,
		ValidFrom: inv.ValidFrom,
		ValidTo:   inv.ValidTo,
	}, nil
}

func (s *invitationService) Update(ctx context.Context, id string, upd domain.InvitationUpdate) (*domain.Invitation, error) {
	inv, err := s.repo.Update(ctx, id, upd)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("update invitation: %w", err)
	}
	s.hub.Publish(domain.Event{Action: domain.EventUpdated, Record: "invitation", ID: inv.ID})
	return inv, nil
}

func (s *invitationService) Delete(ctx context.Context, id, callerID string) (*domain.Invitation, error) {
	inv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get invitation: %w", err)
	}
	if inv.CreatedBy != callerID {
		return nil, domain.ErrForbidden
	}
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("delete invitation: %w", err)
	}
	s.hub.Publish(domain.Event{Action: domain.EventDeleted, Record: "invitation", ID: id})
	return deleted, nil
}
