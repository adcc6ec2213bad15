package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

type poolReporter interface {
	PoolStats() sql.DBStats
}

// HealthHandler serves the liveness check
type HealthHandler struct {
	db      Pinger
	version string
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(db Pinger, version string) *HealthHandler {
	return &HealthHandler{db: db, version: version}
}

// Health godoc
// @Summary      Health check
// @Description  Liveness plus a database ping. Answers 503 when the database is unreachable.
// @Tags         system
// @Produce      json
// @Success      200 {object} map[string]any
// @Failure      503 {object} map[string]any
// @Router       /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	code, status, database := http.StatusOK, "ok", "up"
	if err := h.db.Ping(ctx); err != nil {
		code, status, database = http.StatusServiceUnavailable, "degraded", "down"
	}
	body := gin.H{
		"status":   status,
		"database": database,
		"version":  h.version,
		"time":     time.Now().UTC().Format(time.RFC3339),
	}
	if pool, ok := h.db.(poolReporter); ok {
		stats := pool.PoolStats()
		body["connections"] = gin.H{"open": stats.OpenConnections, "in_use": stats.InUse, "idle": stats.Idle}
	}
	c.JSON(code, body)
}
