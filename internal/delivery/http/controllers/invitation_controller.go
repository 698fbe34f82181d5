package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"campuspass/internal/delivery/http/helpers"
	"campuspass/internal/delivery/http/middleware"
	"campuspass/internal/domain"
)

// uuidRegex matches a canonical UUID string (8-4-4-4-12 hex).
var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

type InvitationController struct {
	Logger  *slog.Logger
	Service domain.InvitationService
}

func NewInvitationController(logger *slog.Logger, svc domain.InvitationService) *InvitationController {
	return &InvitationController{
		Logger:  logger,
		Service: svc,
	}
}

func (c *InvitationController) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "invitation link not found")
	case errors.Is(err, domain.ErrInvalidInput):
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		helpers.WriteJSONError(w, http.StatusForbidden, helpers.ErrCodeForbidden, "you are not allowed to delete this invitation link")
	default:
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
	}
}

// CreateInvitationBody is the "data" object of the create request.
type CreateInvitationBody struct {
	VisitorData *domain.VisitorSnapshot `json:"visitor_data"`
	ValidFrom   *time.Time              `json:"validFrom"`
	ValidTo     *time.Time              `json:"validTo"`
}

// CreateInvitationRequest is the request body for POST /invitation-links.
type CreateInvitationRequest struct {
	Data CreateInvitationBody `json:"data"`
}

// Validate implements helpers.Validator.
func (r *CreateInvitationRequest) Validate() []string {
	var errs []string
	if r.Data.VisitorData == nil {
		errs = append(errs, "data.visitor_data is required")
	}
	if r.Data.ValidFrom == nil {
		errs = append(errs, "data.validFrom is required")
	}
	if r.Data.ValidTo == nil {
		errs = append(errs, "data.validTo is required")
	}
	return errs
}

// Create godoc
// @Summary Create an invitation link
// @Description Creates a pending invitation with a fresh activation token from the embedded visitor snapshot and validity window.
// @Tags invitation-links
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body controllers.CreateInvitationRequest true "Invitation payload"
// @Success 201 {object} helpers.APIResponse "data is the created Invitation"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /invitation-links [post]
func (c *InvitationController) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateInvitationRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}

	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}

	inv, err := c.Service.Create(r.Context(), req.Data.VisitorData, *req.Data.ValidFrom, *req.Data.ValidTo, userID)
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, inv)
}

// ListAll godoc
// @Summary List all invitation links
// @Description Returns every invitation, newest first, joined with visitor and creator projections. Intended for operator views.
// @Tags invitation-links
// @Produce json
// @Security BearerAuth
// @Success 200 {object} helpers.APIResponse "data is an array of invitations with relations"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /invitation-links [get]
func (c *InvitationController) ListAll(w http.ResponseWriter, r *http.Request) {
	items, err := c.Service.ListAll(r.Context())
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, items)
}

// ListMine godoc
// @Summary List the caller's invitation links
// @Description Returns invitations created by the authenticated user, newest first.
// @Tags invitation-links
// @Produce json
// @Security BearerAuth
// @Success 200 {object} helpers.APIResponse "data is an array of invitations with relations"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /my-invitation-links [get]
func (c *InvitationController) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	items, err := c.Service.ListMine(r.Context(), userID)
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, items)
}

// Get godoc
// @Summary Fetch one invitation link
// @Tags invitation-links
// @Produce json
// @Security BearerAuth
// @Param id path string true "Invitation ID (UUID)"
// @Success 200 {object} helpers.APIResponse "data is the invitation with relations"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /invitation-links/{id} [get]
func (c *InvitationController) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !uuidRegex.MatchString(id) {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid id")
		return
	}
	item, err := c.Service.Get(r.Context(), id)
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, item)
}

// UpdateInvitationRequest is the request body for PUT /invitation-links/{id}.
type UpdateInvitationRequest struct {
	ValidFrom *time.Time `json:"validFrom"`
	ValidTo   *time.Time `json:"validTo"`
}

// Update godoc
// @Summary Update an invitation link's validity window
// @Description Generic update of mutable fields. Token, status, visitor snapshot and the visitor reference never change through this endpoint.
// @Tags invitation-links
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Invitation ID (UUID)"
// @Param body body controllers.UpdateInvitationRequest true "Fields to update"
// @Success 200 {object} helpers.APIResponse "data is the updated Invitation"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /invitation-links/{id} [put]
func (c *InvitationController) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !uuidRegex.MatchString(id) {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid id")
		return
	}
	var req UpdateInvitationRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	inv, err := c.Service.Update(r.Context(), id, domain.InvitationUpdate{
		ValidFrom: req.ValidFrom,
		ValidTo:   req.ValidTo,
	})
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, inv)
}

// UpdateStatusRequest is the request body for PUT /invitation-links/{id}/status.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// Validate implements helpers.Validator.
func (r *UpdateStatusRequest) Validate() []string {
	if r.Status == "" {
		return []string{"status is required"}
	}
	return nil
}

// UpdateStatusResponse is the data object returned by the status endpoint.
type UpdateStatusResponse struct {
	Invitation *domain.Invitation `json:"invitation"`
	Visitor    *domain.Visitor    `json:"visitor,omitempty"`
}

// UpdateStatus godoc
// @Summary Transition an invitation link's status
// @Description Sets the status to pending, approved or rejected. Approving creates the visitor from the embedded snapshot exactly once; repeated approvals never create a second visitor.
// @Tags invitation-links
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Invitation ID (UUID)"
// @Param body body controllers.UpdateStatusRequest true "New status"
// @Success 200 {object} helpers.APIResponse "data holds the invitation and, when approved, the visitor"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /invitation-links/{id}/status [put]
func (c *InvitationController) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !uuidRegex.MatchString(id) {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid id")
		return
	}
	var req UpdateStatusRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	inv, visitor, err := c.Service.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, UpdateStatusResponse{Invitation: inv, Visitor: visitor})
}

// Activate godoc
// @Summary Activate an invitation link by token
// @Description Resolves an approved invitation by its token and checks the validity window. Unknown and not-yet-approved tokens are both reported as not found. Read-only; a kiosk may call it repeatedly.
// @Tags invitation-links
// @Produce json
// @Param token path string true "Activation token"
// @Success 200 {object} helpers.APIResponse "data is an ActivationResult"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request (expired)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /invitation-links/activate/{token} [get]
func (c *InvitationController) Activate(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	if token == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing token")
		return
	}
	result, err := c.Service.Activate(r.Context(), token)
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, result)
}

// Delete godoc
// @Summary Delete an invitation link
// @Description Hard-deletes the invitation. Only its creator may delete it; an already-created visitor is left untouched.
// @Tags invitation-links
// @Produce json
// @Security BearerAuth
// @Param id path string true "Invitation ID (UUID)"
// @Success 200 {object} helpers.APIResponse "data is the deleted Invitation"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /invitation-links/{id} [delete]
func (c *InvitationController) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !uuidRegex.MatchString(id) {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid id")
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	inv, err := c.Service.Delete(r.Context(), id, userID)
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, inv)
}
