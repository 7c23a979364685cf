// Package handlers provides HTTP handlers for the API.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/steelcopilot/chat-service/internal/services/chat"
)

// Pinger is a dependency with a health probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StatsProvider reports chat pipeline load.
type StatsProvider interface {
	Stats() chat.Stats
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	components map[string]Pinger
	pipeline   StatsProvider
}

// NewHealthHandler creates a new HealthHandler. Components with a nil probe
// are skipped.
func NewHealthHandler(components map[string]Pinger, pipeline StatsProvider) *HealthHandler {
	probes := make(map[string]Pinger, len(components))
	for name, p := range components {
		if p != nil {
			probes[name] = p
		}
	}
	return &HealthHandler{
		components: probes,
		pipeline:   pipeline,
	}
}

// HealthResponse represents a health check response.
type HealthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components,omitempty"`
	Pipeline   *chat.Stats       `json:"pipeline,omitempty"`
}

// Health handles the /health endpoint.
// @Summary Health check
// @Description Returns the overall health status, component statuses and pipeline counters
// @Tags Health
// @Produce json
// @Success 200 {object} HealthResponse "Service healthy"
// @Failure 503 {object} HealthResponse "Service unhealthy"
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	components := make(map[string]string, len(h.components))
	healthy := true

	for name, p := range h.components {
		if err := p.Ping(c.Request.Context()); err != nil {
			components[name] = "unhealthy"
			healthy = false
		} else {
			components[name] = "healthy"
		}
	}

	status := "healthy"
	statusCode := http.StatusOK
	if !healthy {
		status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	}

	resp := HealthResponse{
		Status:     status,
		Components: components,
	}
	if h.pipeline != nil {
		stats := h.pipeline.Stats()
		resp.Pipeline = &stats
	}

	c.JSON(statusCode, resp)
}

// Ready handles the /ready endpoint.
// @Summary Readiness check
// @Description Returns 200 if the service is ready to accept traffic
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]string "Service ready"
// @Failure 503 {object} map[string]string "Service not ready"
// @Router /ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	for name, p := range h.components {
		if err := p.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not ready",
				"reason": name + " unavailable",
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
	})
}

// Live handles the /live endpoint.
// @Summary Liveness check
// @Description Returns 200 if the service is alive
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]string "Service alive"
// @Router /live [get]
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}
