// internal/app/features/tasks/handler.go
package tasks

import (
	"context"
	"net/http"

	taskservice "github.com/dalemusser/taskhub/internal/app/services/tasks"
	"github.com/dalemusser/taskhub/internal/app/system/auth"
	"github.com/dalemusser/taskhub/internal/app/system/httpjson"
	"github.com/dalemusser/taskhub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Handler struct {
	Tasks *taskservice.Service
	Log   *zap.Logger
}

func NewHandler(tasks *taskservice.Service, logger *zap.Logger) *Handler {
	return &Handler{
		Tasks: tasks,
		Log:   logger,
	}
}

// ServeList handles GET /tasks.
//
// Optional filters: ?status=, ?category=, ?priority=, and ?assignee= which
// takes a member id or "me".
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)

	in := taskservice.ListInput{
		Status:   query.Get(r, "status"),
		Category: query.Get(r, "category"),
		Priority: query.Get(r, "priority"),
		Assignee: query.Get(r, "assignee"),
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.Tasks.List(ctx, u, in)
	if err != nil {
		httpjson.WriteError(w, h.Log, err)
		return
	}
	httpjson.WriteJSON(w, http.StatusOK, map[string]any{"tasks": list})
}

// HandleCreate handles POST /tasks.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)

	var in taskservice.CreateInput
	if err := httpjson.Decode(w, r, &in); err != nil {
		httpjson.WriteError(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	t, err := h.Tasks.Create(ctx, u, in)
	if err != nil {
		httpjson.WriteError(w, h.Log, err)
		return
	}
	w.Header().Set("Location", "/tasks/"+t.ID.Hex())
	httpjson.WriteJSON(w, http.StatusCreated, t)
}

// ServeStats handles GET /tasks/stats.
func (h *Handler) ServeStats(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "task stats")
	defer cancel()

	stats, err := h.Tasks.Stats(ctx, u)
	if err != nil {
		httpjson.WriteError(w, h.Log, err)
		return
	}
	httpjson.WriteJSON(w, http.StatusOK, stats)
}

// ServeTask handles GET /tasks/{id}.
func (h *Handler) ServeTask(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	t, err := h.Tasks.Get(ctx, u, chi.URLParam(r, "id"))
	if err != nil {
		httpjson.WriteError(w, h.Log, err)
		return
	}
	httpjson.WriteJSON(w, http.StatusOK, t)
}

// HandleUpdate handles PATCH /tasks/{id}. Absent fields are left alone;
// null clears description and assignee_id.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)

	var in taskservice.UpdateInput
	if err := httpjson.Decode(w, r, &in); err != nil {
		httpjson.WriteError(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	t, err := h.Tasks.Update(ctx, u, chi.URLParam(r, "id"), in)
	if err != nil {
		httpjson.WriteError(w, h.Log, err)
		return
	}
	httpjson.WriteJSON(w, http.StatusOK, t)
}

// HandleStatus handles PATCH /tasks/{id}/status.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)

	var in taskservice.StatusInput
	if err := httpjson.Decode(w, r, &in); err != nil {
		httpjson.WriteError(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	t, err := h.Tasks.SetStatus(ctx, u, chi.URLParam(r, "id"), in)
	if err != nil {
		httpjson.WriteError(w, h.Log, err)
		return
	}
	httpjson.WriteJSON(w, http.StatusOK, t)
}

// HandleDelete handles DELETE /tasks/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Tasks.Delete(ctx, u, chi.URLParam(r, "id")); err != nil {
		httpjson.WriteError(w, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
