package handlers

import (
	"context"
	"fmt"
	"net/url"

	"github.com/fenilmodi00/country-currency-api/models"
	"github.com/fenilmodi00/country-currency-api/services"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// Refresher runs one refresh cycle
type Refresher interface {
	Refresh(ctx context.Context) (*models.RefreshResult, error)
}

type CountryHandler struct {
	Service   services.CountryQuerier
	Refresher Refresher
	Artifact  services.ArtifactReader
}

func NewCountryHandler(service services.CountryQuerier, refresher Refresher, artifact services.ArtifactReader) *CountryHandler {
	return &CountryHandler{
		Service:   service,
		Refresher: refresher,
		Artifact:  artifact,
	}
}

// RefreshCountries fetches both providers and rebuilds the stored data
func (h *CountryHandler) RefreshCountries(c *fiber.Ctx) error {
	logrus.WithField("component", "CountryHandler").Info("Refresh triggered via API")

	result, err := h.Refresher.Refresh(c.Context())
	if err != nil {
		return respondRefreshError(c, err)
	}

	return c.JSON(fiber.Map{
		"message":         "Countries data refreshed successfully",
		"total_countries": result.TotalCountries,
		"timestamp":       result.Timestamp,
	})
}

func (h *CountryHandler) GetCountries(c *fiber.Ctx) error {
	filter := models.CountryFilter{
		Region:   c.Query("region"),
		Currency: c.Query("currency"),
		Sort:     c.Query("sort"),
	}

	countries, err := h.Service.ListCountries(c.Context(), filter)
	if err != nil {
		return respondQueryError(c, err, "Country not found")
	}

	return c.JSON(countries)
}

// GetSummaryImage serves the last rendered summary PNG
func (h *CountryHandler) GetSummaryImage(c *fiber.Ctx) error {
	data, err := h.Artifact.ReadArtifact()
	if err != nil {
		return respondQueryError(c, err, "Summary image not found")
	}

	c.Set(fiber.HeaderContentType, "image/png")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	return c.Send(data)
}

func (h *CountryHandler) GetCountry(c *fiber.Ctx) error {
	name := countryName(c)

	country, err := h.Service.GetCountry(c.Context(), name)
	if err != nil {
		return respondQueryError(c, err, "Country not found")
	}

	return c.JSON(country)
}

func (h *CountryHandler) DeleteCountry(c *fiber.Ctx) error {
	name := countryName(c)

	if err := h.Service.DeleteCountry(c.Context(), name); err != nil {
		return respondQueryError(c, err, "Country not found")
	}

	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("Country '%s' deleted successfully", name),
	})
}

// countryName returns the decoded :name path parameter
func countryName(c *fiber.Ctx) string {
	raw := c.Params("name")
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}
