package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/student-records-api/internal/service"
)

const apiVersion = "1.0.0"

// Pinger checks store connectivity.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// MetricsHandler exposes observability endpoints.
type MetricsHandler struct {
	metrics *service.MetricsService
	db      Pinger
}

// NewMetricsHandler constructs a metrics handler. db may be nil.
func NewMetricsHandler(metrics *service.MetricsService, db Pinger) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, db: db}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health godoc
// @Summary Health check with database status
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *MetricsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "database": h.databaseStatus(c.Request.Context()), "version": apiVersion})
}

// Ready reports 503 until the store answers.
func (h *MetricsHandler) Ready(c *gin.Context) {
	if status := h.databaseStatus(c.Request.Context()); status != "connected" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "database": status})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (h *MetricsHandler) databaseStatus(ctx context.Context) string {
	if h.db == nil {
		return "disconnected"
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := h.db.PingContext(ctx); err != nil {
		msg := err.Error()
		if len(msg) > 50 {
			msg = msg[:50]
		}
		return "error: " + msg
	}
	return "connected"
}
