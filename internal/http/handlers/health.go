package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/coreqcapital/coreq-migrate/internal/http/respond"
	"github.com/coreqcapital/coreq-migrate/internal/logger"
)

const pingTimeout = 2 * time.Second

// Pinger reports whether the target database answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports uptime and target database reachability.
type HealthHandler struct {
	startedAt time.Time
	db        Pinger
}

// NewHealthHandler creates the handler. db may be nil, in which case the database is not checked.
func NewHealthHandler(startedAt time.Time, db Pinger) *HealthHandler {
	return &HealthHandler{startedAt: startedAt, db: db}
}

// Register wires the handler into a ServeMux.
func (h *HealthHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.handle)
}

func (h *HealthHandler) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respond.MethodNotAllowed(w, http.MethodGet)
		return
	}
	body := map[string]string{
		"status": "ok",
		"uptime": time.Since(h.startedAt).Truncate(time.Second).String(),
	}
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			logger.CtxError(r.Context(), "health: database unreachable", err)
			body["status"] = "degraded"
			body["database"] = "unreachable"
			respond.JSON(w, http.StatusServiceUnavailable, "database unreachable", body)
			return
		}
		body["database"] = "ok"
	}
	respond.JSON(w, http.StatusOK, "ok", body)
}
