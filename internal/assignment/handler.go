package assignment

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/JaimeStill/kontrib/pkg/handlers"
	"github.com/JaimeStill/kontrib/pkg/routes"
)

// Handler provides HTTP endpoints for bulk assignment.
type Handler struct {
	sys         System
	logger      *slog.Logger
	maxBodySize int64
}

// NewHandler creates a Handler with the given system, logger, and request body limit.
func NewHandler(sys System, logger *slog.Logger, maxBodySize int64) *Handler {
	return &Handler{
		sys:         sys,
		logger:      logger.With("handler", "assignments"),
		maxBodySize: maxBodySize,
	}
}

// Routes returns the route group definition for assignment endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/assignments",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "", Handler: h.Assign},
			{Method: "GET", Pattern: "/latest", Handler: h.Latest},
			{Method: "DELETE", Pattern: "/latest", Handler: h.Clear},
			{Method: "POST", Pattern: "/retry", Handler: h.Retry},
		},
	}
}

// Assign runs a bulk assignment command and returns the batch report.
// The batch outlives a disconnected client; it is bounded by the configured
// batch timeout instead.
func (h *Handler) Assign(w http.ResponseWriter, r *http.Request) {
	var cmd Command
	if err := handlers.DecodeJSON(w, r, h.maxBodySize, &cmd); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, handlers.ErrBodyTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		handlers.RespondError(w, h.logger, status, err)
		return
	}

	report, err := h.sys.Assign(context.WithoutCancel(r.Context()), cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, report)
}

// Latest returns the most recent batch report.
func (h *Handler) Latest(w http.ResponseWriter, r *http.Request) {
	report, err := h.sys.Latest()
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, report)
}

// Clear discards the most recent batch report.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	h.sys.Clear()
	w.WriteHeader(http.StatusNoContent)
}

// Retry re-runs the unsuccessful items of the most recent batch.
func (h *Handler) Retry(w http.ResponseWriter, r *http.Request) {
	report, err := h.sys.RetryFailed(context.WithoutCancel(r.Context()))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, report)
}
