package services

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/fenilmodi00/country-currency-api/models"
	"github.com/fenilmodi00/country-currency-api/shared"
	"github.com/sirupsen/logrus"
)

// CountriesSource supplies the raw country list for a refresh
type CountriesSource interface {
	Name() string
	FetchCountries(ctx context.Context) ([]models.RestCountry, error)
}

// RestCountriesClient fetches the country list from a restcountries v2 style endpoint
type RestCountriesClient struct {
	URL     string
	Client  *http.Client
	Metrics *shared.AppMetrics
	name    string
}

func NewRestCountriesClient(endpoint string, client *http.Client, metrics *shared.AppMetrics) *RestCountriesClient {
	return &RestCountriesClient{
		URL:     endpoint,
		Client:  client,
		Metrics: metrics,
		name:    providerName(endpoint),
	}
}

// Name returns the provider identity used in error details
func (c *RestCountriesClient) Name() string {
	return c.name
}

// FetchCountries performs one GET. Any failure is an upstream error naming the provider.
func (c *RestCountriesClient) FetchCountries(ctx context.Context) ([]models.RestCountry, error) {
	logger := logrus.WithFields(logrus.Fields{
		"component": "RestCountriesClient",
		"provider":  c.name,
	})

	startTime := time.Now()
	var countries []models.RestCountry
	err := shared.GetJSON(ctx, c.Client, c.URL, &countries)
	c.Metrics.RecordProviderCall(c.name, err == nil, time.Since(startTime))
	if err != nil {
		logger.WithError(err).Warn("Countries provider call failed")
		return nil, shared.NewUpstreamUnavailableError(c.name, "FetchCountries", err)
	}

	logger.WithFields(logrus.Fields{
		"count":    len(countries),
		"duration": time.Since(startTime),
	}).Info("Fetched countries")

	return countries, nil
}

// providerName identifies a provider by its URL host, falling back to the raw URL
func providerName(endpoint string) string {
	parsed, err := url.Parse(endpoint)
	if err != nil || parsed.Host == "" {
		return endpoint
	}
	return parsed.Host
}
