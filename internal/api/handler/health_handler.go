package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthHandler reports the service's view of its backing stores.
type HealthHandler struct {
	logger   *slog.Logger
	dbHealth HealthChecker
	broker   BrokerStatus
}

// NewHealthHandler creates a new HealthHandler instance
func NewHealthHandler(deps *Dependencies) *HealthHandler {
	return &HealthHandler{
		logger:   deps.Logger,
		dbHealth: deps.DBHealth,
		broker:   deps.Broker,
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	dbStatus := "healthy"
	if err := h.dbHealth.HealthCheck(c.Request.Context()); err != nil {
		h.logger.Error("Database health check failed", slog.Any("error", err))
		dbStatus = "unhealthy"
	}

	brokerStatus := "healthy"
	if !h.broker.IsConnected() {
		brokerStatus = "unhealthy"
	}

	status := http.StatusOK
	overall := "healthy"
	if dbStatus != "healthy" || brokerStatus != "healthy" {
		status = http.StatusServiceUnavailable
		overall = "unhealthy"
	}

	c.JSON(status, gin.H{
		"status":   overall,
		"database": dbStatus,
		"broker":   brokerStatus,
	})
}
