package http

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"campuspass/internal/delivery/http/controllers"
)

func TestNewRouter_RegistersRoutes(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mux := NewRouter(
		controllers.NewAuthController(logger, nil),
		controllers.NewInvitationController(logger, nil),
		controllers.NewGroupController(logger, nil, nil, nil),
		controllers.NewVisitorController(logger, nil),
		func(next http.HandlerFunc) http.HandlerFunc { return next },
	)

	tests := []struct {
		method  string
		target  string
		pattern string
	}{
		{http.MethodPost, "/auth/login", "POST /auth/login"},
		{http.MethodPost, "/invitation-links", "POST /invitation-links"},
		{http.MethodGet, "/my-invitation-links", "GET /my-invitation-links"},
		{http.MethodGet, "/invitation-links/activate/tok-1", "GET /invitation-links/activate/{token}"},
		{http.MethodPut, "/invitation-links/inv-1/status", "PUT /invitation-links/{id}/status"},
		{http.MethodGet, "/students-groups/stats/stream", "GET /students-groups/stats/stream"},
		{http.MethodGet, "/visitors/vis-1/attendance-history", "GET /visitors/{id}/attendance-history"},
		{http.MethodDelete, "/visitors/vis-1", "DELETE /visitors/{id}"},
		{http.MethodGet, "/swagger/index.html", "/swagger/"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.target, nil)
		_, pattern := mux.Handler(req)
		if pattern != tt.pattern {
			t.Errorf("%s %s: matched pattern %q, want %q", tt.method, tt.target, pattern, tt.pattern)
		}
	}
}
