package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/datasage/datasage/internal/analyst"
	"github.com/datasage/datasage/internal/models"
)

const version = "1.0.0"

// HealthHandler handles GET /health with a dependency check on the active
// data source.
type HealthHandler struct {
	analyst       *analyst.Analyst
	llmConfigured bool
}

func NewHealthHandler(a *analyst.Analyst, llmConfigured bool) *HealthHandler {
	return &HealthHandler{analyst: a, llmConfigured: llmConfigured}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"server": "ok"}
	overallStatus := "healthy"

	if h.llmConfigured {
		checks["llm"] = "configured"
	} else {
		checks["llm"] = "not configured"
	}

	// Short timeout so a wedged source cannot block the health check.
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if src := h.analyst.Source(); src != nil {
		if err := src.Ping(ctx); err != nil {
			checks["source"] = "unavailable: " + err.Error()
			overallStatus = "degraded"
		} else {
			checks["source"] = "ok: " + src.Name()
		}
	} else {
		checks["source"] = "disconnected"
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
