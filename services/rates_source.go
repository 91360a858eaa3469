package services

import (
	"context"
	"net/http"
	"time"

	"github.com/fenilmodi00/country-currency-api/models"
	"github.com/fenilmodi00/country-currency-api/shared"
	"github.com/sirupsen/logrus"
)

// RatesSource supplies the USD exchange rate table for a refresh
type RatesSource interface {
	Name() string
	FetchRates(ctx context.Context) (models.ExchangeRateTable, error)
}

// ExchangeRateClient fetches rates from an open.er-api.com style endpoint
type ExchangeRateClient struct {
	URL     string
	Client  *http.Client
	Metrics *shared.AppMetrics
	name    string
}

func NewExchangeRateClient(endpoint string, client *http.Client, metrics *shared.AppMetrics) *ExchangeRateClient {
	return &ExchangeRateClient{
		URL:     endpoint,
		Client:  client,
		Metrics: metrics,
		name:    providerName(endpoint),
	}
}

func (c *ExchangeRateClient) Name() string {
	return c.name
}

// FetchRates performs one GET. A payload without a rates field yields an empty table.
func (c *ExchangeRateClient) FetchRates(ctx context.Context) (models.ExchangeRateTable, error) {
	logger := logrus.WithFields(logrus.Fields{
		"component": "ExchangeRateClient",
		"provider":  c.name,
	})

	startTime := time.Now()
	var response models.RatesResponse
	err := shared.GetJSON(ctx, c.Client, c.URL, &response)
	c.Metrics.RecordProviderCall(c.name, err == nil, time.Since(startTime))
	if err != nil {
		logger.WithError(err).Warn("Exchange rate provider call failed")
		return nil, shared.NewUpstreamUnavailableError(c.name, "FetchRates", err)
	}

	rates := make(models.ExchangeRateTable, len(response.Rates))
	for code, rate := range response.Rates {
		rates[code] = rate
	}

	logger.WithFields(logrus.Fields{
		"count":     len(rates),
		"base_code": response.BaseCode,
		"duration":  time.Since(startTime),
	}).Info("Fetched exchange rates")

	return rates, nil
}
