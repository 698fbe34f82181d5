package http

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"campuspass/internal/delivery/http/controllers"
)

// NewRouter initializes the HTTP router with all application routes
func NewRouter(
	authController *controllers.AuthController,
	invitationController *controllers.InvitationController,
	groupController *controllers.GroupController,
	visitorController *controllers.VisitorController,
	requireAuth func(http.HandlerFunc) http.HandlerFunc,
) *http.ServeMux {
	mux := http.NewServeMux()

	// Auth
	mux.HandleFunc("POST /auth/signup", authController.SignUp)
	mux.HandleFunc("POST /auth/login", authController.Login)

	// Invitation links. Activation is public: the token is the credential.
	mux.HandleFunc("POST /invitation-links", requireAuth(invitationController.Create))
	mux.HandleFunc("GET /invitation-links", requireAuth(invitationController.ListAll))
	mux.HandleFunc("GET /my-invitation-links", requireAuth(invitationController.ListMine))
	mux.HandleFunc("GET /invitation-links/activate/{token}", invitationController.Activate)
	mux.HandleFunc("GET /invitation-links/{id}", requireAuth(invitationController.Get))
	mux.HandleFunc("PUT /invitation-links/{id}", requireAuth(invitationController.Update))
	mux.HandleFunc("PUT /invitation-links/{id}/status", requireAuth(invitationController.UpdateStatus))
	mux.HandleFunc("DELETE /invitation-links/{id}", requireAuth(invitationController.Delete))

	// Student groups and the occupancy feed
	mux.HandleFunc("GET /students-groups", groupController.List)
	mux.HandleFunc("GET /students-groups/stats", groupController.GetStats)
	mux.HandleFunc("GET /students-groups/stats/stream", groupController.StreamStats)
	mux.HandleFunc("GET /students-groups/{id}", groupController.Get)
	mux.HandleFunc("POST /students-groups", requireAuth(groupController.Create))
	mux.HandleFunc("PUT /students-groups/{id}", requireAuth(groupController.Update))
	mux.HandleFunc("DELETE /students-groups/{id}", requireAuth(groupController.Delete))

	// Visitors. Reads back display screens and kiosks; writes need auth.
	mux.HandleFunc("GET /visitors", visitorController.List)
	mux.HandleFunc("GET /visitors/search", visitorController.Search)
	mux.HandleFunc("GET /visitors/by-role", visitorController.ListByRole)
	mux.HandleFunc("GET /visitors/categories", visitorController.Categories)
	mux.HandleFunc("GET /visitors/{id}", visitorController.Get)
	mux.HandleFunc("GET /visitors/{id}/detailed", visitorController.GetDetailed)
	mux.HandleFunc("GET /visitors/{id}/attendance-history", visitorController.AttendanceHistory)
	mux.HandleFunc("POST /visitors", requireAuth(visitorController.Create))
	mux.HandleFunc("PUT /visitors/{id}", requireAuth(visitorController.Update))
	mux.HandleFunc("DELETE /visitors/{id}", requireAuth(visitorController.Delete))

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}
