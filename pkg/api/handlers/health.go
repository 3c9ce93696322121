package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/tarqumi/agency-api/pkg/cache"
)

// HealthHandler reports readiness of the API's backing services.
type HealthHandler struct {
	db    *gorm.DB
	cache *cache.Client
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db *gorm.DB, cache *cache.Client) *HealthHandler {
	return &HealthHandler{db: db, cache: cache}
}

// Check handles GET /health
func (h *HealthHandler) Check(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	dbStatus := "up"
	sqlDB, err := h.db.DB()
	if err != nil || sqlDB.PingContext(ctx) != nil {
		dbStatus = "down"
	}

	cacheStatus := "up"
	if err := h.cache.Redis.Ping(ctx).Err(); err != nil {
		cacheStatus = "down"
	}

	status := http.StatusOK
	overall := "healthy"
	if dbStatus == "down" || cacheStatus == "down" {
		status = http.StatusServiceUnavailable
		overall = "unhealthy"
	}

	return c.JSON(status, map[string]any{
		"status":    overall,
		"database":  dbStatus,
		"cache":     cacheStatus,
		"timestamp": time.Now().Unix(),
	})
}
