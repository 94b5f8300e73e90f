package http

import (
	"net/http"

	"github.com/go-chi/render"

	"macropulse/internal/infrastructure"
	v1 "macropulse/pkg/contracts/api/v1"
)

// HealthHandler serves the liveness probe.
type HealthHandler struct{}

// NewHealthHandler creates a health handler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// ServeHTTP implements http.Handler.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, v1.HealthResponse{
		Status:  "ok",
		Service: infrastructure.ServiceName,
		Version: infrastructure.ServiceVersion,
	})
}
