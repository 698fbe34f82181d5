package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"campuspass/internal/domain"
)

type mockInvitationRepository struct {
	invitations map[string]*domain.Invitation
	byToken     map[string]*domain.Invitation
	visitors    map[string]*domain.Visitor
	approved    map[string]bool
	err         error

	approveCalls int
}

func newMockInvitationRepository() *mockInvitationRepository {
	return &mockInvitationRepository{
		invitations: map[string]*domain.Invitation{},
		byToken:     map[string]*domain.Invitation{},
		visitors:    map[string]*domain.Visitor{},
		approved:    map[string]bool{},
	}
}

func (m *mockInvitationRepository) Create(ctx context.Context, inv *domain.Invitation) error {
	if m.err != nil {
		return m.err
	}
	inv.ID = "inv-" + inv.Token
	m.invitations[inv.ID] = inv
	m.byToken[inv.Token] = inv
	return nil
}

func (m *mockInvitationRepository) GetByID(ctx context.Context, id string) (*domain.Invitation, error) {
	if m.err != nil {
		return nil, m.err
	}
	inv, ok := m.invitations[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return inv, nil
}

func (m *mockInvitationRepository) GetApprovedByToken(ctx context.Context, token string) (*domain.Invitation, *domain.Visitor, error) {
	inv, ok := m.byToken[token]
	if !ok || inv.Status != domain.InvitationStatusApproved {
		return nil, nil, domain.ErrNotFound
	}
	var visitor *domain.Visitor
	if inv.VisitorID != nil {
		visitor = m.visitors[*inv.VisitorID]
	}
	return inv, visitor, nil
}

func (m *mockInvitationRepository) ListByCreator(ctx context.Context, creatorID string) ([]*domain.InvitationWithRelations, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []*domain.InvitationWithRelations
	for _, inv := range m.invitations {
		if inv.CreatedBy == creatorID {
			item := &domain.InvitationWithRelations{Invitation: inv}
			if inv.VisitorID != nil {
				item.Visitor = m.visitors[*inv.VisitorID]
			}
			out = append(out, item)
		}
	}
	if out == nil {
		out = []*domain.InvitationWithRelations{}
	}
	return out, nil
}

func (m *mockInvitationRepository) ListAll(ctx context.Context) ([]*domain.InvitationWithRelations, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := []*domain.InvitationWithRelations{}
	for _, inv := range m.invitations {
		out = append(out, &domain.InvitationWithRelations{Invitation: inv})
	}
	return out, nil
}

func (m *mockInvitationRepository) UpdateStatus(ctx context.Context, id, status string) (*domain.Invitation, error) {
	inv, ok := m.invitations[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	inv.Status = status
	return inv, nil
}

func (m *mockInvitationRepository) Approve(ctx context.Context, id string) (*domain.Invitation, *domain.Visitor, bool, error) {
	m.approveCalls++
	inv, ok := m.invitations[id]
	if !ok {
		return nil, nil, false, domain.ErrNotFound
	}
	if inv.Status == domain.InvitationStatusApproved {
		var visitor *domain.Visitor
		if inv.VisitorID != nil {
			visitor = m.visitors[*inv.VisitorID]
		}
		return inv, visitor, false, nil
	}
	snapshot := inv.VisitorData
	if snapshot == nil {
		snapshot = &domain.VisitorSnapshot{}
	}
	visitor := &domain.Visitor{
		ID:         "vis-" + id,
		FirstName:  snapshot.FirstName,
		MiddleName: snapshot.MiddleName,
		Surname:    snapshot.Surname,
		Email:      snapshot.Email,
		RoleIDs:    snapshot.RoleIDs,
	}
	if visitor.RoleIDs == nil {
		visitor.RoleIDs = []string{}
	}
	m.visitors[visitor.ID] = visitor
	inv.Status = domain.InvitationStatusApproved
	inv.VisitorID = &visitor.ID
	return inv, visitor, true, nil
}

func (m *mockInvitationRepository) Update(ctx context.Context, id string, upd domain.InvitationUpdate) (*domain.Invitation, error) {
	inv, ok := m.invitations[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if upd.ValidFrom != nil {
		inv.ValidFrom = *upd.ValidFrom
	}
	if upd.ValidTo != nil {
		inv.ValidTo = *upd.ValidTo
	}
	return inv, nil
}

func (m *mockInvitationRepository) Delete(ctx context.Context, id string) (*domain.Invitation, error) {
	inv, ok := m.invitations[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	delete(m.invitations, id)
	delete(m.byToken, inv.Token)
	return inv, nil
}

type recordingHub struct {
	mu     sync.Mutex
	events []domain.Event
}

func (h *recordingHub) Subscribe() *domain.Subscription      { return &domain.Subscription{} }
func (h *recordingHub) Unsubscribe(sub *domain.Subscription) {}
func (h *recordingHub) Publish(e domain.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, e)
}

func (h *recordingHub) published() []domain.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]domain.Event(nil), h.events...)
}

type mockEmailService struct {
	mu   sync.Mutex
	sent []*domain.InvitationApprovedEmailData
}

func (m *mockEmailService) SendInvitationApproved(ctx context.Context, data *domain.InvitationApprovedEmailData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, data)
	return nil
}

func newTestInvitationService(repo domain.InvitationRepository, hub domain.EventHub) domain.InvitationService {
	return NewInvitationService(repo, hub, nil, "http://localhost:8080", slog.Default())
}

func TestInvitationService_Create(t *testing.T) {
	ctx := context.Background()
	validFrom := time.Now()
	validTo := validFrom.Add(48 * time.Hour)
	snapshot := &domain.VisitorSnapshot{FirstName: "Ivan", Surname: "Petrov", Email: "ivan@example.com"}

	t.Run("assigns token and pending status", func(t *testing.T) {
		repo := newMockInvitationRepository()
		hub := &recordingHub{}
		svc := newTestInvitationService(repo, hub)

		inv, err := svc.Create(ctx, snapshot, validFrom, validTo, "user-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if inv.Token == "" {
			t.Error("expected a generated token")
		}
		if inv.Status != domain.InvitationStatusPending {
			t.Errorf("expected pending status, got %q", inv.Status)
		}
		if inv.CreatedBy != "user-1" {
			t.Errorf("expected creator user-1, got %q", inv.CreatedBy)
		}
		events := hub.published()
		if len(events) != 1 || events[0].Record != "invitation" || events[0].Action != domain.EventCreated {
			t.Errorf("expected one invitation created event, got %+v", events)
		}
	})

	t.Run("tokens are unique per invitation", func(t *testing.T) {
		repo := newMockInvitationRepository()
		svc := newTestInvitationService(repo, &recordingHub{})

		a, err := svc.Create(ctx, snapshot, validFrom, validTo, "user-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		b, err := svc.Create(ctx, snapshot, validFrom, validTo, "user-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if a.Token == b.Token {
			t.Error("expected distinct tokens")
		}
	})

	t.Run("missing fields are rejected", func(t *testing.T) {
		repo := newMockInvitationRepository()
		svc := newTestInvitationService(repo, &recordingHub{})

		cases := []struct {
			name      string
			snapshot  *domain.VisitorSnapshot
			validFrom time.Time
			validTo   time.Time
		}{
			{"nil snapshot", nil, validFrom, validTo},
			{"zero validFrom", snapshot, time.Time{}, validTo},
			{"zero validTo", snapshot, validFrom, time.Time{}},
		}
		for _, tc := range cases {
			if _, err := svc.Create(ctx, tc.snapshot, tc.validFrom, tc.validTo, "user-1"); !errors.Is(err, domain.ErrInvalidInput) {
				t.Errorf("%s: expected ErrInvalidInput, got %v", tc.name, err)
			}
		}
		if len(repo.invitations) != 0 {
			t.Error("invalid input must not create invitations")
		}
	})
}

func TestInvitationService_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	validFrom := time.Now()
	validTo := validFrom.Add(48 * time.Hour)
	snapshot := &domain.VisitorSnapshot{
		FirstName: "Ivan",
		Surname:   "Petrov",
		Email:     "ivan@example.com",
		RoleIDs:   []string{"role-guest"},
	}

	seed := func(repo *mockInvitationRepository) *domain.Invitation {
		inv := &domain.Invitation{
			Token:       "tok-1",
			Status:      domain.InvitationStatusPending,
			ValidFrom:   validFrom,
			ValidTo:     validTo,
			VisitorData: snapshot,
			CreatedBy:   "user-1",
		}
		repo.invitations["inv-1"] = inv
		repo.byToken["tok-1"] = inv
		inv.ID = "inv-1"
		return inv
	}

	t.Run("unknown status is rejected", func(t *testing.T) {
		repo := newMockInvitationRepository()
		seed(repo)
		svc := newTestInvitationService(repo, &recordingHub{})

		if _, _, err := svc.UpdateStatus(ctx, "inv-1", "bogus"); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("reject does not create a visitor", func(t *testing.T) {
		repo := newMockInvitationRepository()
		seed(repo)
		hub := &recordingHub{}
		svc := newTestInvitationService(repo, hub)

		inv, visitor, err := svc.UpdateStatus(ctx, "inv-1", domain.InvitationStatusRejected)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if visitor != nil {
			t.Error("reject must not create a visitor")
		}
		if inv.Status != domain.InvitationStatusRejected {
			t.Errorf("expected rejected, got %q", inv.Status)
		}
		if len(repo.visitors) != 0 {
			t.Error("no visitor rows expected")
		}
	})

	t.Run("approve creates visitor from snapshot", func(t *testing.T) {
		repo := newMockInvitationRepository()
		seed(repo)
		hub := &recordingHub{}
		svc := newTestInvitationService(repo, hub)

		inv, visitor, err := svc.UpdateStatus(ctx, "inv-1", domain.InvitationStatusApproved)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if inv.Status != domain.InvitationStatusApproved {
			t.Errorf("expected approved, got %q", inv.Status)
		}
		if visitor == nil {
			t.Fatal("expected a visitor")
		}
		if visitor.FirstName != "Ivan" || visitor.Surname != "Petrov" || visitor.Email != "ivan@example.com" {
			t.Errorf("visitor fields not copied from snapshot: %+v", visitor)
		}
		if len(visitor.RoleIDs) != 1 || visitor.RoleIDs[0] != "role-guest" {
			t.Errorf("expected snapshot roles, got %v", visitor.RoleIDs)
		}
		if inv.VisitorID == nil || *inv.VisitorID != visitor.ID {
			t.Error("invitation must reference the created visitor")
		}

		events := hub.published()
		var visitorCreated int
		for _, e := range events {
			if e.Record == "visitor" && e.Action == domain.EventCreated {
				visitorCreated++
			}
		}
		if visitorCreated != 1 {
			t.Errorf("expected one visitor created event, got %d (%+v)", visitorCreated, events)
		}
	})

	t.Run("re-approve is idempotent", func(t *testing.T) {
		repo := newMockInvitationRepository()
		seed(repo)
		hub := &recordingHub{}
		svc := newTestInvitationService(repo, hub)

		_, first, err := svc.UpdateStatus(ctx, "inv-1", domain.InvitationStatusApproved)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		_, second, err := svc.UpdateStatus(ctx, "inv-1", domain.InvitationStatusApproved)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(repo.visitors) != 1 {
			t.Fatalf("expected exactly one visitor, got %d", len(repo.visitors))
		}
		if first.ID != second.ID {
			t.Error("both approvals must return the same visitor")
		}
	})

	t.Run("not found", func(t *testing.T) {
		repo := newMockInvitationRepository()
		svc := newTestInvitationService(repo, &recordingHub{})

		if _, _, err := svc.UpdateStatus(ctx, "missing", domain.InvitationStatusApproved); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestInvitationService_Activate(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	seed := func(repo *mockInvitationRepository, status string, validFrom, validTo time.Time) {
		visitor := &domain.Visitor{ID: "vis-1", FirstName: "Ivan", Surname: "Petrov", Email: "ivan@example.com"}
		repo.visitors["vis-1"] = visitor
		visitorID := "vis-1"
		inv := &domain.Invitation{
			ID:        "inv-1",
			Token:     "tok-1",
			Status:    status,
			ValidFrom: validFrom,
			ValidTo:   validTo,
			VisitorID: &visitorID,
			CreatedBy: "user-1",
		}
		repo.invitations["inv-1"] = inv
		repo.byToken["tok-1"] = inv
	}

	t.Run("approved token inside window", func(t *testing.T) {
		repo := newMockInvitationRepository()
		seed(repo, domain.InvitationStatusApproved, now.Add(-time.Hour), now.Add(time.Hour))
		svc := newTestInvitationService(repo, &recordingHub{})

		res, err := svc.Activate(ctx, "tok-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !res.Valid {
			t.Error("expected valid result")
		}
		if res.Visitor == nil || res.Visitor.ID != "vis-1" {
			t.Errorf("expected linked visitor, got %+v", res.Visitor)
		}
	})

	t.Run("pending and rejected tokens look like unknown tokens", func(t *testing.T) {
		for _, status := range []string{domain.InvitationStatusPending, domain.InvitationStatusRejected} {
			repo := newMockInvitationRepository()
			seed(repo, status, now.Add(-time.Hour), now.Add(time.Hour))
			svc := newTestInvitationService(repo, &recordingHub{})

			_, errKnown := svc.Activate(ctx, "tok-1")
			_, errUnknown := svc.Activate(ctx, "no-such-token")
			if !errors.Is(errKnown, domain.ErrNotFound) {
				t.Errorf("%s token: expected ErrNotFound, got %v", status, errKnown)
			}
			if !errors.Is(errUnknown, domain.ErrNotFound) {
				t.Errorf("unknown token: expected ErrNotFound, got %v", errUnknown)
			}
		}
	})

	t.Run("outside validity window", func(t *testing.T) {
		cases := []struct {
			name      string
			validFrom time.Time
			validTo   time.Time
		}{
			{"not yet valid", now.Add(time.Hour), now.Add(2 * time.Hour)},
			{"expired", now.Add(-2 * time.Hour), now.Add(-time.Hour)},
		}
		for _, tc := range cases {
			repo := newMockInvitationRepository()
			seed(repo, domain.InvitationStatusApproved, tc.validFrom, tc.validTo)
			svc := newTestInvitationService(repo, &recordingHub{})

			if _, err := svc.Activate(ctx, "tok-1"); !errors.Is(err, domain.ErrInvalidInput) {
				t.Errorf("%s: expected ErrInvalidInput, got %v", tc.name, err)
			}
		}
	})
}

func TestInvitationService_Delete(t *testing.T) {
	ctx := context.Background()

	seed := func(repo *mockInvitationRepository) {
		inv := &domain.Invitation{
			ID:        "inv-1",
			Token:     "tok-1",
			Status:    domain.InvitationStatusPending,
			CreatedBy: "user-1",
		}
		repo.invitations["inv-1"] = inv
		repo.byToken["tok-1"] = inv
	}

	t.Run("creator can delete", func(t *testing.T) {
		repo := newMockInvitationRepository()
		seed(repo)
		hub := &recordingHub{}
		svc := newTestInvitationService(repo, hub)

		inv, err := svc.Delete(ctx, "inv-1", "user-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if inv.ID != "inv-1" {
			t.Errorf("expected deleted invitation, got %+v", inv)
		}
		if len(repo.invitations) != 0 {
			t.Error("invitation must be removed")
		}
	})

	t.Run("other users are forbidden", func(t *testing.T) {
		repo := newMockInvitationRepository()
		seed(repo)
		svc := newTestInvitationService(repo, &recordingHub{})

		if _, err := svc.Delete(ctx, "inv-1", "user-2"); !errors.Is(err, domain.ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
		if len(repo.invitations) != 1 {
			t.Error("invitation must remain")
		}
	})

	t.Run("not found", func(t *testing.T) {
		repo := newMockInvitationRepository()
		svc := newTestInvitationService(repo, &recordingHub{})

		if _, err := svc.Delete(ctx, "missing", "user-1"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestInvitationService_ApprovalEmail(t *testing.T) {
	ctx := context.Background()
	validFrom := time.Now()
	validTo := validFrom.Add(48 * time.Hour)

	repo := newMockInvitationRepository()
	inv := &domain.Invitation{
		ID:     "inv-1",
		Token:  "tok-1",
		Status: domain.InvitationStatusPending,
		VisitorData: &domain.VisitorSnapshot{
			FirstName: "Ivan", Surname: "Petrov", Email: "ivan@example.com",
		},
		ValidFrom: validFrom,
		ValidTo:   validTo,
		CreatedBy: "user-1",
	}
	repo.invitations["inv-1"] = inv
	repo.byToken["tok-1"] = inv

	email := &mockEmailService{}
	svc := NewInvitationService(repo, &recordingHub{}, email, "https://campus.example.com", slog.Default())

	if _, _, err := svc.UpdateStatus(ctx, "inv-1", domain.InvitationStatusApproved); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The send runs in a goroutine; give it a moment.
	deadline := time.Now().Add(2 * time.Second)
	for {
		email.mu.Lock()
		n := len(email.sent)
		email.mu.Unlock()
		if n > 0 || time.Now().After(deadline) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	email.mu.Lock()
	defer email.mu.Unlock()
	if len(email.sent) != 1 {
		t.Fatalf("expected one email, got %d", len(email.sent))
	}
	sent := email.sent[0]
	if sent.Email != "ivan@example.com" {
		t.Errorf("unexpected recipient %q", sent.Email)
	}
	want := "https://campus.example.com/invitation-links/activate/tok-1"
	if sent.ActivationURL != want {
		t.Errorf("activation url = %q, want %q", sent.ActivationURL, want)
	}
}
