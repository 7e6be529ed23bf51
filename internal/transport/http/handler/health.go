package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-auth-otp/internal/pkg/clock"
	"github.com/go-chi/chi/v5"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles the root status and health-check endpoints.
type HealthHandler struct {
	store pinger
	clock clock.Clock
}

func NewHealthHandler(store pinger, clk clock.Clock) *HealthHandler {
	if clk == nil {
		clk = clock.System()
	}
	return &HealthHandler{store: store, clock: clk}
}

// Status reports whether the service and its store are reachable.
func (h *HealthHandler) Status(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		slog.ErrorContext(r.Context(), "store ping failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, StatusEnvelope{
			Status: "degraded",
			Store:  "unreachable",
			Error:  "store connection failed",
		})
		return
	}
	writeJSON(w, http.StatusOK, StatusEnvelope{
		Status: "running",
		Store:  "ok",
		Time:   h.clock.Now(),
	})
}

func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	action := chi.URLParam(r, "action")
	if action == "ping" {
		writeJSON(w, http.StatusOK, MessageEnvelope{Message: "pong"})
		return
	}
	writeError(w, http.StatusBadRequest, "unknown action")
}
