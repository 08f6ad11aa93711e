package health

import (
	"context"
	"net/http"

	"github.com/dalemusser/taskhub/internal/app/system/httpjson"
	"github.com/dalemusser/taskhub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Pinger is satisfied by *mongo.Client.
type Pinger interface {
	Ping(ctx context.Context, rp *readpref.ReadPref) error
}

// JobLister reports the background jobs that are registered.
type JobLister interface {
	Jobs() []string
}

// Handler holds dependencies needed for health checks.
type Handler struct {
	DB   Pinger
	Jobs JobLister
	Log  *zap.Logger
}

// NewHandler constructs a health Handler. jobs may be nil.
func NewHandler(db Pinger, jobs JobLister, logger *zap.Logger) *Handler {
	return &Handler{
		DB:   db,
		Jobs: jobs,
		Log:  logger,
	}
}

// healthResponse is the JSON structure for the health check response.
type healthResponse struct {
	Status   string   `json:"status"`
	Database string   `json:"database"`
	Jobs     []string `json:"jobs,omitempty"`
	Message  string   `json:"message,omitempty"`
}

// Serve handles GET /health.
//
// On success: 200 and
//
//	{ "status":"ok", "database":"connected", "jobs":["expire-overdue-tasks"] }
//
// On DB failure: 503 and
//
//	{ "status":"error", "database":"disconnected", "message":"Database unavailable" }
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	resp := healthResponse{
		Status:   "ok",
		Database: "connected",
	}
	if h.Jobs != nil {
		resp.Jobs = h.Jobs.Jobs()
	}

	if err := h.DB.Ping(ctx, readpref.Primary()); err != nil {
		h.Log.Error("health-check: mongo ping failed", zap.Error(err))
		resp.Status = "error"
		resp.Database = "disconnected"
		resp.Message = "Database unavailable"
		httpjson.WriteJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	httpjson.WriteJSON(w, http.StatusOK, resp)
}
