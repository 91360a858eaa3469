package handlers

import (
	"context"
	"time"

	"github.com/fenilmodi00/country-currency-api/services"
	"github.com/gofiber/fiber/v2"
)

// Pinger reports whether a backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

type StatusHandler struct {
	Service services.CountryQuerier
	Store   Pinger
}

func NewStatusHandler(service services.CountryQuerier, store Pinger) *StatusHandler {
	return &StatusHandler{
		Service: service,
		Store:   store,
	}
}

// GetStatus returns the stored country count and the last refresh time
func (h *StatusHandler) GetStatus(c *fiber.Ctx) error {
	status, err := h.Service.GetStatus(c.Context())
	if err != nil {
		return respondQueryError(c, err, "Status not found")
	}

	return c.JSON(status)
}

// Root describes the available endpoints
func (h *StatusHandler) Root(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": "Country Currency & Exchange API",
		"version": "1.0.0",
		"endpoints": fiber.Map{
			"POST /countries/refresh":  "Refresh country data from external APIs",
			"GET /countries":           "Get all countries (supports filters: ?region=Africa&currency=NGN&sort=gdp_desc)",
			"GET /countries/{name}":    "Get single country by name",
			"DELETE /countries/{name}": "Delete country by name",
			"GET /status":              "Get API status",
			"GET /countries/image":     "Get summary statistics image",
		},
	})
}

// Health pings the store
func (h *StatusHandler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	if err := h.Store.Ping(ctx); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status":    "unavailable",
			"error":     err.Error(),
			"timestamp": time.Now().Unix(),
		})
	}

	return c.JSON(fiber.Map{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
	})
}
