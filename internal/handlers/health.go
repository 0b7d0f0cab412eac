package handlers

import (
	"context"
	"time"

	"domus/internal/repositories/cache"
	"domus/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type HealthHandler struct {
	db    *gorm.DB
	cache *cache.CacheService
}

func NewHealthHandler(db *gorm.DB, cacheSvc *cache.CacheService) *HealthHandler {
	return &HealthHandler{db: db, cache: cacheSvc}
}

// Check pings the database and, when configured, the cache.
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	status := fiber.Map{"database": "ok", "cache": "disabled"}

	sqlDB, err := h.db.DB()
	if err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err = sqlDB.PingContext(ctx)
		cancel()
	}
	if err != nil {
		status["database"] = "unreachable"
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"success": false,
			"data":    status,
		})
	}

	if h.cache != nil {
		if err := h.cache.HealthCheck(context.Background()); err != nil {
			status["cache"] = "unreachable"
		} else {
			status["cache"] = "ok"
		}
	}
	return response.Success(c, "", status)
}
