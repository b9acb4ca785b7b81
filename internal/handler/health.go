package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/csvagent/csvagent/internal/dataset"
	"github.com/csvagent/csvagent/internal/llm"
	"github.com/csvagent/csvagent/internal/models"
)

const version = "1.0.0"

// HealthHandler handles GET /health with dependency checks
type HealthHandler struct {
	provider llm.Provider
	calc     *dataset.Calculator
}

func NewHealthHandler(provider llm.Provider, calc *dataset.Calculator) *HealthHandler {
	return &HealthHandler{provider: provider, calc: calc}
}

// Health handles GET /health. The dataset is loaded at startup or the
// process does not start, so its check only reports shape; the model
// endpoint check is a live probe.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"server": "ok"}
	overallStatus := "healthy"

	// Short timeout so health checks don't block
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if h.calc != nil {
		checks["dataset"] = "ok"
	} else {
		checks["dataset"] = "not loaded"
		overallStatus = "degraded"
	}

	if h.provider != nil {
		if err := h.provider.Check(ctx); err != nil {
			checks["model"] = "unavailable: " + err.Error()
			overallStatus = "degraded"
		} else {
			checks["model"] = "ok"
		}
	} else {
		checks["model"] = "disabled"
	}

	statusCode := http.StatusOK
	if overallStatus == "degraded" {
		statusCode = http.StatusServiceUnavailable
	}

	models.WriteJSON(w, statusCode, models.HealthResponse{
		Status:  overallStatus,
		Version: version,
		Checks:  checks,
	})
}
