package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// CacheAdmin exposes query cache inspection and reset
type CacheAdmin interface {
	GetCacheStats() map[string]interface{}
	ClearCache()
}

type AdminHandler struct {
	Cache CacheAdmin
}

func NewAdminHandler(cache CacheAdmin) *AdminHandler {
	return &AdminHandler{Cache: cache}
}

// GetCacheStats returns query cache statistics
func (h *AdminHandler) GetCacheStats(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    h.Cache.GetCacheStats(),
	})
}

// ClearCache drops every cached query result
func (h *AdminHandler) ClearCache(c *fiber.Ctx) error {
	logrus.WithField("component", "AdminHandler").Info("Query cache cleared via admin endpoint")
	h.Cache.ClearCache()

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Cache cleared",
	})
}
