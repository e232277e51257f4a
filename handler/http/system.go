package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ComponentStatus marks one backing service as reachable or not
type ComponentStatus string

const (
	StatusUp   ComponentStatus = "up"
	StatusDown ComponentStatus = "down"
)

// HealthStatus represents system health status
type HealthStatus struct {
	Status     string `json:"status"`
	Components struct {
		Postgres    ComponentStatus `json:"postgres"`
		VectorStore ComponentStatus `json:"vector_store"`
		LLMProvider ComponentStatus `json:"llm_provider"`
	} `json:"components"`
}

// HealthCheckers holds one probe per backing component. A nil probe
// reports the component as up.
type HealthCheckers struct {
	Postgres    func(ctx context.Context) error
	VectorStore func(ctx context.Context) error
	LLMProvider func(ctx context.Context) error
}

// CheckHealth godoc
// @Summary Check system health status
// @Tags system
// @Produce json
// @Success 200 {object} HealthStatus
// @Failure 503 {object} HealthStatus
// @Router /health [get]
func (h *Handler) CheckHealth(c *gin.Context) {
	ctx := c.Request.Context()

	status := &HealthStatus{Status: "healthy"}
	status.Components.Postgres = probe(ctx, h.health.Postgres)
	status.Components.VectorStore = probe(ctx, h.health.VectorStore)
	status.Components.LLMProvider = probe(ctx, h.health.LLMProvider)

	// If any component is down, mark system as unhealthy
	if status.Components.Postgres == StatusDown ||
		status.Components.VectorStore == StatusDown ||
		status.Components.LLMProvider == StatusDown {
		status.Status = "unhealthy"
		sendJSON(c, http.StatusServiceUnavailable, status)
		return
	}

	sendJSON(c, http.StatusOK, status)
}

func probe(ctx context.Context, check func(ctx context.Context) error) ComponentStatus {
	if check == nil {
		return StatusUp
	}
	if err := check(ctx); err != nil {
		return StatusDown
	}
	return StatusUp
}
