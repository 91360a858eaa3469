package handlers

import (
	"errors"

	"github.com/fenilmodi00/country-currency-api/shared"
	"github.com/gofiber/fiber/v2"
)

const internalServerError = "Internal server error"

// respondQueryError maps a query-path error: not-found keeps its message,
// everything else is a bare 500 with no details
func respondQueryError(c *fiber.Ctx, err error, notFoundMessage string) error {
	if shared.IsNotFound(err) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": notFoundMessage,
		})
	}

	logServiceError(err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": internalServerError,
	})
}

// respondRefreshError maps a refresh failure; unlike the query path it
// includes the cause in details
func respondRefreshError(c *fiber.Ctx, err error) error {
	logServiceError(err)

	if shared.IsUpstreamUnavailable(err) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error":   "External data source unavailable",
			"details": errorDetails(err),
		})
	}

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error":   internalServerError,
		"details": errorDetails(err),
	})
}

func errorDetails(err error) string {
	var serviceErr *shared.ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr.Message
	}
	return err.Error()
}

func logServiceError(err error) {
	var serviceErr *shared.ServiceError
	if errors.As(err, &serviceErr) {
		serviceErr.LogError()
		return
	}
	shared.WrapError(err, shared.ErrorCategoryProcessing, "UNEXPECTED", "Handlers", "Request").LogError()
}
