package services

import (
	"math/rand/v2"
	"time"

	"github.com/fenilmodi00/country-currency-api/models"
)

// GDPMultiplier returns the per-country factor U used in population × U / rate
type GDPMultiplier func() float64

const (
	minGDPMultiplier = 1000.0
	maxGDPMultiplier = 2000.0
)

// DefaultGDPMultiplier draws U uniformly from [1000, 2000) on every call
func DefaultGDPMultiplier() float64 {
	return minGDPMultiplier + rand.Float64()*(maxGDPMultiplier-minGDPMultiplier)
}

// MergeCountry joins one provider entry with the rate table. Only the first
// listed currency is considered. Without a usable rate, exchange_rate stays
// empty and estimated_gdp is the zero value.
func MergeCountry(raw models.RestCountry, rates models.ExchangeRateTable, multiplier GDPMultiplier, refreshedAt time.Time) models.Country {
	country := models.Country{
		Name:            raw.Name,
		Capital:         raw.Capital,
		Region:          raw.Region,
		FlagURL:         raw.Flag,
		LastRefreshedAt: refreshedAt.UTC(),
	}
	if raw.Population != nil && *raw.Population > 0 {
		country.Population = *raw.Population
	}

	zero := 0.0
	country.EstimatedGDP = &zero

	if len(raw.Currencies) == 0 || raw.Currencies[0].Code == "" {
		return country
	}

	code := raw.Currencies[0].Code
	country.CurrencyCode = &code

	rate, ok := rates[code]
	if !ok || rate == 0 {
		return country
	}

	gdp := float64(country.Population) * multiplier() / rate
	country.ExchangeRate = &rate
	country.EstimatedGDP = &gdp

	return country
}
