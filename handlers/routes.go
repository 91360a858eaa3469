package handlers

import (
	"time"

	"github.com/fenilmodi00/country-currency-api/shared"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router bundles what the HTTP surface needs
type Router struct {
	Country  *CountryHandler
	Status   *StatusHandler
	Admin    *AdminHandler
	Metrics  *shared.AppMetrics
	Gatherer prometheus.Gatherer
	CacheDir string
	// RequestLogging enables the access log middleware
	RequestLogging bool
}

// NewApp builds the Fiber application with middleware and routes
func NewApp(r Router) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "Country Currency & Exchange API",
	})

	app.Use(recover.New())
	if r.RequestLogging {
		app.Use(logger.New())
	}
	app.Use(cors.New())
	app.Use(metricsMiddleware(r.Metrics))

	app.Get("/", r.Status.Root)
	app.Get("/status", r.Status.GetStatus)
	app.Get("/health", r.Status.Health)

	if r.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(r.Gatherer, promhttp.HandlerOpts{})))
	}

	countries := app.Group("/countries")
	countries.Post("/refresh", r.Country.RefreshCountries)
	countries.Get("/", r.Country.GetCountries)
	// must precede /:name
	countries.Get("/image", r.Country.GetSummaryImage)
	countries.Get("/:name", r.Country.GetCountry)
	countries.Delete("/:name", r.Country.DeleteCountry)

	if r.CacheDir != "" {
		app.Static("/cache", r.CacheDir)
	}

	admin := app.Group("/admin")
	admin.Get("/cache", r.Admin.GetCacheStats)
	admin.Delete("/cache", r.Admin.ClearCache)

	return app
}

func metricsMiddleware(metrics *shared.AppMetrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if metrics == nil {
			return c.Next()
		}

		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if fiberErr, ok := err.(*fiber.Error); ok {
			status = fiberErr.Code
		}

		route := "unmatched"
		if matched := c.Route(); matched != nil && matched.Path != "" {
			route = matched.Path
		}

		metrics.RecordHTTPRequest(c.Method(), route, status, time.Since(start))
		return err
	}
}
