package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"campuspass/internal/delivery/http/helpers"
	"campuspass/internal/domain"
)

type GroupController struct {
	Logger  *slog.Logger
	Service domain.GroupService
	Stats   domain.StatsService
	Hub     domain.EventHub
}

func NewGroupController(logger *slog.Logger, svc domain.GroupService, stats domain.StatsService, hub domain.EventHub) *GroupController {
	return &GroupController{
		Logger:  logger,
		Service: svc,
		Stats:   stats,
		Hub:     hub,
	}
}

func (c *GroupController) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "group not found")
	case errors.Is(err, domain.ErrInvalidInput):
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
	default:
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
	}
}

// GetStats godoc
// @Summary Occupancy snapshot
// @Description Returns per-group occupancy: total members and the number of distinct members currently present. Same shape as one message of the streaming feed.
// @Tags students-groups
// @Produce json
// @Success 200 {object} helpers.APIResponse "data is an array of GroupStats"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /students-groups/stats [get]
func (c *GroupController) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := c.Stats.Snapshot(r.Context())
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, stats)
}

// StreamStats godoc
// @Summary Occupancy feed (SSE)
// @Description Pushes the full occupancy snapshot as a text/event-stream message immediately on connect and again after every record mutation, until the client disconnects. Messages are whole snapshots, never deltas.
// @Tags students-groups
// @Produce text/event-stream
// @Success 200 {string} string "data: <json>\n\n frames"
// @Router /students-groups/stats/stream [get]
func (c *GroupController) StreamStats(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	send := func() {
		stats, err := c.Stats.Snapshot(ctx)
		if err != nil {
			// Keep the stream alive; the next event will retry.
			c.Logger.ErrorContext(ctx, "stats snapshot failed", "err", err)
			return
		}
		data, err := json.Marshal(stats)
		if err != nil {
			c.Logger.ErrorContext(ctx, "stats marshal failed", "err", err)
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}

	// Subscribe before the initial snapshot so a mutation landing
	// between the two still produces a follow-up frame.
	sub := c.Hub.Subscribe()
	defer c.Hub.Unsubscribe(sub)

	send()

	// One loop per connection: recompute-and-send is serialized, and
	// events buffered during a send are drained so a burst yields a
	// single recomputation.
	for {
		select {
		case <-ctx.Done():
			return
		case _, open := <-sub.C:
			if !open {
				return
			}
			for drained := false; !drained; {
				select {
				case _, open = <-sub.C:
					if !open {
						return
					}
				default:
					drained = true
				}
			}
			send()
		}
	}
}

// List godoc
// @Summary List student groups
// @Tags students-groups
// @Produce json
// @Success 200 {object} helpers.APIResponse "data is an array of StudentsGroup"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /students-groups [get]
func (c *GroupController) List(w http.ResponseWriter, r *http.Request) {
	groups, err := c.Service.List(r.Context())
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, groups)
}

// Get godoc
// @Summary Fetch one student group
// @Tags students-groups
// @Produce json
// @Param id path string true "Group ID (UUID)"
// @Success 200 {object} helpers.APIResponse "data is a StudentsGroup"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /students-groups/{id} [get]
func (c *GroupController) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !uuidRegex.MatchString(id) {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid id")
		return
	}
	g, err := c.Service.Get(r.Context(), id)
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, g)
}

// GroupRequest is the request body for group create and update.
type GroupRequest struct {
	Name string `json:"name"`
}

// Validate implements helpers.Validator.
func (r *GroupRequest) Validate() []string {
	if r.Name == "" {
		return []string{"name is required"}
	}
	return nil
}

// Create godoc
// @Summary Create a student group
// @Tags students-groups
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body controllers.GroupRequest true "Group name"
// @Success 201 {object} helpers.APIResponse "data is the created StudentsGroup"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /students-groups [post]
func (c *GroupController) Create(w http.ResponseWriter, r *http.Request) {
	var req GroupRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	g, err := c.Service.Create(r.Context(), req.Name)
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, g)
}

// Update godoc
// @Summary Rename a student group
// @Tags students-groups
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Group ID (UUID)"
// @Param body body controllers.GroupRequest true "New name"
// @Success 200 {object} helpers.APIResponse "data is the updated StudentsGroup"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /students-groups/{id} [put]
func (c *GroupController) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !uuidRegex.MatchString(id) {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid id")
		return
	}
	var req GroupRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	g, err := c.Service.Update(r.Context(), id, req.Name)
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, g)
}

// Delete godoc
// @Summary Delete a student group
// @Tags students-groups
// @Produce json
// @Security BearerAuth
// @Param id path string true "Group ID (UUID)"
// @Success 200 {object} helpers.APIResponse "data is null"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /students-groups/{id} [delete]
func (c *GroupController) Delete(w http.ResponseWriter, r *http.Request) {
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
