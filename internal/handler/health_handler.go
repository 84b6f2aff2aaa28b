package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/gtd_stock/internal/utils"
)

var startTime = time.Now()

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

// HealthHandler provides health endpoint.
type HealthHandler struct {
	database HealthCheck
	optional map[string]HealthCheck
}

// NewHealthHandler creates a new HealthHandler. A failing database check
// makes the service unhealthy; optional checks only report their status.
func NewHealthHandler(database HealthCheck, optional map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{database: database, optional: optional}
}

func probe(ctx context.Context, check HealthCheck) string {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := check(ctx); err != nil {
		return "disconnected"
	}
	return "connected"
}

// GetHealth responds with service and dependency status.
func (h *HealthHandler) GetHealth(c *gin.Context) {
	ctx := c.Request.Context()
	deps := gin.H{"database": probe(ctx, h.database)}
	for name, check := range h.optional {
		deps[name] = probe(ctx, check)
	}

	if deps["database"] != "connected" {
		utils.Error(c, 503, "STORE_UNAVAILABLE", "Database unreachable")
		return
	}
	utils.Success(c, 200, "Service is healthy", gin.H{
		"status":       "healthy",
		"version":      "1.0.0",
		"uptime":       int(time.Since(startTime).Seconds()),
		"dependencies": deps,
	})
}
