package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"campuspass/internal/delivery/http/helpers"
	"campuspass/internal/domain"
)

type VisitorController struct {
	Logger  *slog.Logger
	Service domain.VisitorService
}

func NewVisitorController(logger *slog.Logger, svc domain.VisitorService) *VisitorController {
	return &VisitorController{Logger: logger, Service: svc}
}

func (c *VisitorController) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "visitor not found")
	case errors.Is(err, domain.ErrInvalidInput):
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
	default:
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
	}
}

// VisitorListResponse wraps a visitor page with pagination metadata.
// swagger:model VisitorListResponse
type VisitorListResponse struct {
	Visitors   []*domain.Visitor      `json:"visitors"`
	Pagination helpers.PaginationMeta `json:"pagination"`
}

// List godoc
// @Summary List visitors
// @Tags visitors
// @Produce json
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 25, max 100)"
// @Success 200 {object} helpers.APIResponse "data is a VisitorListResponse"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /visitors [get]
func (c *VisitorController) List(w http.ResponseWriter, r *http.Request) {
	p := helpers.ParsePagination(r)
	visitors, total, err := c.Service.List(r.Context(), p)
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, VisitorListResponse{
		Visitors:   visitors,
		Pagination: helpers.NewPaginationMeta(p.Page, p.PageSize, total),
	})
}

// Search godoc
// @Summary Search visitors
// @Description Matches every whitespace-separated term of q against names, email and role names, and partitions the matches into students, staff, department members and other.
// @Tags visitors
// @Produce json
// @Param q query string true "Search terms"
// @Success 200 {object} helpers.APIResponse "data is a SearchResult"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /visitors/search [get]
func (c *VisitorController) Search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "q is required")
		return
	}
	result, err := c.Service.Search(r.Context(), q)
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, result)
}

// VisitorRoleListResponse wraps a by-role page with pagination metadata.
// swagger:model VisitorRoleListResponse
type VisitorRoleListResponse struct {
	Visitors   []*domain.VisitorRoleRow `json:"visitors"`
	Pagination helpers.PaginationMeta   `json:"pagination"`
}

// ListByRole godoc
// @Summary List visitors by role or position
// @Description Filters visitors by role name or position name (exclusive) with optional name/email search, and annotates each row with presence derived from the latest attendance.
// @Tags visitors
// @Produce json
// @Param role query string false "Role name filter"
// @Param position query string false "Position name filter"
// @Param search query string false "Name/email search terms"
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 25, max 100)"
// @Success 200 {object} helpers.APIResponse "data is a VisitorRoleListResponse"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /visitors/by-role [get]
func (c *VisitorController) ListByRole(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("role") != "" && q.Get("position") != "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "role and position are exclusive")
		return
	}
	p := helpers.ParsePagination(r)
	f := domain.VisitorRoleFilter{
		Role:     q.Get("role"),
		Position: q.Get("position"),
		Search:   strings.TrimSpace(q.Get("search")),
		Page:     p.Page,
		PageSize: p.PageSize,
	}
	rows, total, err := c.Service.ListByRole(r.Context(), f)
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, VisitorRoleListResponse{
		Visitors:   rows,
		Pagination: helpers.NewPaginationMeta(p.Page, p.PageSize, total),
	})
}

// Categories godoc
// @Summary Visitor category counts
// @Description Counts visitors overall and per category: students (group members), teachers (by position), employees and guests (by role).
// @Tags visitors
// @Produce json
// @Success 200 {object} helpers.APIResponse "data is an array of VisitorCategory"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /visitors/categories [get]
func (c *VisitorController) Categories(w http.ResponseWriter, r *http.Request) {
	cats, err := c.Service.Categories(r.Context())
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, cats)
}

// Get godoc
// @Summary Fetch one visitor
// @Tags visitors
// @Produce json
// @Param id path string true "Visitor ID (UUID)"
// @Success 200 {object} helpers.APIResponse "data is a Visitor"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /visitors/{id} [get]
func (c *VisitorController) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !uuidRegex.MatchString(id) {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid id")
		return
	}
	v, err := c.Service.Get(r.Context(), id)
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, v)
}

// GetDetailed godoc
// @Summary Fetch one visitor with relations
// @Description Returns the visitor together with the names of its roles, positions, departments and groups.
// @Tags visitors
// @Produce json
// @Param id path string true "Visitor ID (UUID)"
// @Success 200 {object} helpers.APIResponse "data is a VisitorDetailed"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /visitors/{id}/detailed [get]
func (c *VisitorController) GetDetailed(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !uuidRegex.MatchString(id) {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid id")
		return
	}
	v, err := c.Service.GetDetailed(r.Context(), id)
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, v)
}

// AttendanceHistory godoc
// @Summary Visitor attendance history
// @Description Returns the visitor's attendance records grouped by calendar day, newest day first.
// @Tags visitors
// @Produce json
// @Param id path string true "Visitor ID (UUID)"
// @Success 200 {object} helpers.APIResponse "data is an array of AttendanceDay"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /visitors/{id}/attendance-history [get]
func (c *VisitorController) AttendanceHistory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !uuidRegex.MatchString(id) {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid id")
		return
	}
	days, err := c.Service.AttendanceHistory(r.Context(), id)
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, days)
}

// CreateVisitorRequest is the request body for visitor creation.
type CreateVisitorRequest struct {
	FirstName  string   `json:"first_name"`
	MiddleName string   `json:"middle_name"`
	Surname    string   `json:"surname"`
	Email      string   `json:"email"`
	RoleIDs    []string `json:"role_ids"`
}

// Validate implements helpers.Validator.
func (r *CreateVisitorRequest) Validate() []string {
	var problems []string
	if r.FirstName == "" {
		problems = append(problems, "first_name is required")
	}
	if r.Surname == "" {
		problems = append(problems, "surname is required")
	}
	if r.Email == "" {
		problems = append(problems, "email is required")
	}
	return problems
}

// Create godoc
// @Summary Create a visitor
// @Tags visitors
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body controllers.CreateVisitorRequest true "Visitor fields"
// @Success 201 {object} helpers.APIResponse "data is the created Visitor"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /visitors [post]
func (c *VisitorController) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateVisitorRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	v, err := c.Service.Create(r.Context(), &domain.Visitor{
		FirstName:  req.FirstName,
		MiddleName: req.MiddleName,
		Surname:    req.Surname,
		Email:      req.Email,
		RoleIDs:    req.RoleIDs,
	})
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, v)
}

// UpdateVisitorRequest is the request body for visitor updates. Absent
// fields are left unchanged.
type UpdateVisitorRequest struct {
	FirstName  *string  `json:"first_name"`
	MiddleName *string  `json:"middle_name"`
	Surname    *string  `json:"surname"`
	Email      *string  `json:"email"`
	Blocked    *bool    `json:"blocked"`
	RoleIDs    []string `json:"role_ids"`
}

// Validate implements helpers.Validator.
func (r *UpdateVisitorRequest) Validate() []string {
	var problems []string
	if r.FirstName != nil && *r.FirstName == "" {
		problems = append(problems, "first_name must not be empty")
	}
	if r.Surname != nil && *r.Surname == "" {
		problems = append(problems, "surname must not be empty")
	}
	if r.Email != nil && *r.Email == "" {
		problems = append(problems, "email must not be empty")
	}
	return problems
}

// Update godoc
// @Summary Update a visitor
// @Tags visitors
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Visitor ID (UUID)"
// @Param body body controllers.UpdateVisitorRequest true "Fields to change"
// @Success 200 {object} helpers.APIResponse "data is the updated Visitor"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /visitors/{id} [put]
func (c *VisitorController) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !uuidRegex.MatchString(id) {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid id")
		return
	}
	var req UpdateVisitorRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	v, err := c.Service.Update(r.Context(), id, domain.VisitorUpdate{
		FirstName:  req.FirstName,
		MiddleName: req.MiddleName,
		Surname:    req.Surname,
		Email:      req.Email,
		Blocked:    req.Blocked,
		RoleIDs:    req.RoleIDs,
	})
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, v)
}

// Delete godoc
// @Summary Delete a visitor
// @Tags visitors
// @Produce json
// @Security BearerAuth
// @Param id path string true "Visitor ID (UUID)"
// @Success 200 {object} helpers.APIResponse "data is null"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /visitors/{id} [delete]
func (c *VisitorController) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !uuidRegex.MatchString(id) {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid id")
		return
	}
	if err := c.Service.Delete(r.Context(), id); err != nil {
		c.writeError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, nil)
}
