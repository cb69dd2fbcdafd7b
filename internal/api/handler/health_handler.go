package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthCheck a named dependency probe.
type HealthCheck struct {
	Name string
	// Required failures turn the response into 503; others are reported only.
	Required bool
	Check    func(ctx context.Context) error
}

// HealthHandler liveness endpoint.
type HealthHandler struct {
	checks []HealthCheck
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(checks ...HealthCheck) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// Health GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	components := make(gin.H, len(h.checks))
	for _, chk := range h.checks {
		if err := chk.Check(ctx); err != nil {
			components[chk.Name] = "down"
			if chk.Required {
				status = http.StatusServiceUnavailable
			}
			continue
		}
		components[chk.Name] = "ok"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "unavailable"
	}
	c.JSON(status, gin.H{"status": overall, "components": components})
}
