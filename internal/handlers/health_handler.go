package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// PingFunc checks one backing service.
type PingFunc func(ctx context.Context) error

type HealthHandler struct {
	database PingFunc
	redis    PingFunc
	started  time.Time
}

// NewHealthHandler reports the database as required and Redis, when redis is
// non nil, as optional.
func NewHealthHandler(database, redis PingFunc) *HealthHandler {
	return &HealthHandler{database: database, redis: redis, started: time.Now()}
}

type HealthStatus struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Redis    string `json:"redis"`
	Uptime   string `json:"uptime"`
}

func (h *HealthHandler) Root(c *gin.Context) {
	respond(c, http.StatusOK, gin.H{"service": "delivery_api", "status": "running"})
}

func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := HealthStatus{
		Status:   "ok",
		Database: "up",
		Redis:    "disabled",
		Uptime:   time.Since(h.started).Round(time.Second).String(),
	}
	code := http.StatusOK

	if err := h.database(ctx); err != nil {
		status.Status = "degraded"
		status.Database = "down"
		code = http.StatusServiceUnavailable
	}
	if h.redis != nil {
		status.Redis = "up"
		if err := h.redis(ctx); err != nil {
			status.Redis = "down"
		}
	}

	c.JSON(code, Envelope{Success: code == http.StatusOK, Data: status})
}
