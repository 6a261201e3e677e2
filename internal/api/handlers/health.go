package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/leadscout/backend/internal/health"
	"github.com/leadscout/backend/internal/models"
)

type HealthHandler struct {
	checker *health.HealthChecker
}

func NewHealthHandler(checker *health.HealthChecker) *HealthHandler {
	return &HealthHandler{checker: checker}
}

// Health is the liveness probe. It does not touch any dependency.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, models.HealthResponse{
		Status:    "ok",
		Service:   "leadscout-backend",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Detailed reports each dependency and answers 503 when the database is down.
func (h *HealthHandler) Detailed(c *gin.Context) {
	report := h.checker.Detailed(c.Request.Context())
	code := http.StatusOK
	if report.Status == health.StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, report)
}
