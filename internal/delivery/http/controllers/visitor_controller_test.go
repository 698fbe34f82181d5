package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"campuspass/internal/domain"
)

type mockVisitorService struct {
	searchResult *domain.SearchResult
	roleRows     []*domain.VisitorRoleRow
	roleTotal    int
	lastFilter   domain.VisitorRoleFilter
	lastQuery    string
	err          error
}

func (m *mockVisitorService) Create(ctx context.Context, v *domain.Visitor) (*domain.Visitor, error) {
	if m.err != nil {
		return nil, m.err
	}
	v.ID = "vis-new"
	return v, nil
}

func (m *mockVisitorService) Get(ctx context.Context, id string) (*domain.Visitor, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Visitor{ID: id}, nil
}

func (m *mockVisitorService) GetDetailed(ctx context.Context, id string) (*domain.VisitorDetailed, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &domain.VisitorDetailed{Visitor: domain.Visitor{ID: id}}, nil
}

func (m *mockVisitorService) List(ctx context.Context, p domain.PaginationParams) ([]*domain.Visitor, int, error) {
	if m.err != nil {
		return nil, 0, m.err
	}
	return []*domain.Visitor{}, 0, nil
}

func (m *mockVisitorService) Search(ctx context.Context, query string) (*domain.SearchResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.lastQuery = query
	return m.searchResult, nil
}

func (m *mockVisitorService) ListByRole(ctx context.Context, f domain.VisitorRoleFilter) ([]*domain.VisitorRoleRow, int, error) {
	if m.err != nil {
		return nil, 0, m.err
	}
	m.lastFilter = f
	return m.roleRows, m.roleTotal, nil
}

func (m *mockVisitorService) Categories(ctx context.Context) ([]*domain.VisitorCategory, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []*domain.VisitorCategory{}, nil
}

func (m *mockVisitorService) AttendanceHistory(ctx context.Context, id string) ([]*domain.AttendanceDay, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []*domain.AttendanceDay{}, nil
}

func (m *mockVisitorService) Update(ctx context.Context, id string, upd domain.VisitorUpdate) (*domain.Visitor, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Visitor{ID: id}, nil
}

func (m *mockVisitorService) Delete(ctx context.Context, id string) error {
	return m.err
}

func TestVisitorController_Search(t *testing.T) {
	t.Run("missing query", func(t *testing.T) {
		ctrl := NewVisitorController(testLogger(), &mockVisitorService{})

		w := httptest.NewRecorder()
		ctrl.Search(w, authedRequest(http.MethodGet, "/visitors/search", ""))

		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}
	})

	t.Run("passes trimmed query through", func(t *testing.T) {
		svc := &mockVisitorService{searchResult: &domain.SearchResult{
			Students:          []*domain.VisitorDetailed{},
			Staff:             []*domain.VisitorDetailed{},
			DepartmentMembers: []*domain.VisitorDetailed{},
			Other:             []*domain.VisitorDetailed{},
		}}
		ctrl := NewVisitorController(testLogger(), svc)

		w := httptest.NewRecorder()
		ctrl.Search(w, authedRequest(http.MethodGet, "/visitors/search?q=%20Ivan%20Petrov%20", ""))

		if w.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
		}
		if svc.lastQuery != "Ivan Petrov" {
			t.Errorf("expected trimmed query, got %q", svc.lastQuery)
		}
	})
}

func TestVisitorController_ListByRole(t *testing.T) {
	t.Run("role and position are exclusive", func(t *testing.T) {
		ctrl := NewVisitorController(testLogger(), &mockVisitorService{})

		w := httptest.NewRecorder()
		ctrl.ListByRole(w, authedRequest(http.MethodGet, "/visitors/by-role?role=Guest&position=Teacher", ""))

		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}
	})

	t.Run("wraps rows with pagination meta", func(t *testing.T) {
		svc := &mockVisitorService{
			roleRows: []*domain.VisitorRoleRow{
				{ID: "v1", FullName: "Petrov Ivan", Status: domain.PresenceStatusPresent},
			},
			roleTotal: 51,
		}
		ctrl := NewVisitorController(testLogger(), svc)

		w := httptest.NewRecorder()
		ctrl.ListByRole(w, authedRequest(http.MethodGet, "/visitors/by-role?role=Guest&page=2&page_size=25", ""))

		if w.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
		}
		if svc.lastFilter.Role != "Guest" || svc.lastFilter.Page != 2 || svc.lastFilter.PageSize != 25 {
			t.Errorf("unexpected filter %+v", svc.lastFilter)
		}
		var resp struct {
			Data VisitorRoleListResponse `json:"data"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
		if resp.Data.Pagination.Total != 51 || resp.Data.Pagination.TotalPages != 3 {
			t.Errorf("unexpected pagination %+v", resp.Data.Pagination)
		}
	})
}

func TestVisitorController_AttendanceHistory(t *testing.T) {
	visitorID := "aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee"

	t.Run("unknown visitor maps to 404", func(t *testing.T) {
		ctrl := NewVisitorController(testLogger(), &mockVisitorService{err: domain.ErrNotFound})

		req := authedRequest(http.MethodGet, "/visitors/"+visitorID+"/attendance-history", "")
		req.SetPathValue("id", visitorID)
		w := httptest.NewRecorder()
		ctrl.AttendanceHistory(w, req)

		if w.Code != http.StatusNotFound {
			t.Fatalf("expected status %d, got %d", http.StatusNotFound, w.Code)
		}
	})

	t.Run("malformed id is rejected", func(t *testing.T) {
		ctrl := NewVisitorController(testLogger(), &mockVisitorService{})

		req := authedRequest(http.MethodGet, "/visitors/oops/attendance-history", "")
		req.SetPathValue("id", "oops")
		w := httptest.NewRecorder()
		ctrl.AttendanceHistory(w, req)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}
	})
}
