package models

import (
	"strings"
	"time"
)

// Country is the persisted, merged view of one country. Nullable fields are
// pointers so they serialize as null rather than being dropped.
type Country struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Capital         *string   `json:"capital"`
	Region          *string   `json:"region"`
	Population      int64     `json:"population"`
	CurrencyCode    *string   `json:"currency_code"`
	ExchangeRate    *float64  `json:"exchange_rate"`
	EstimatedGDP    *float64  `json:"estimated_gdp"`
	FlagURL         *string   `json:"flag_url"`
	LastRefreshedAt time.Time `json:"last_refreshed_at"`
}

// NameKey returns the canonical identity key for a country name.
func NameKey(name string) string {
	return strings.ToLower(name)
}

// Sort keys accepted by the list endpoint
const (
	SortGDPDesc        = "gdp_desc"
	SortGDPAsc         = "gdp_asc"
	SortPopulationDesc = "population_desc"
	SortPopulationAsc  = "population_asc"
)

// CountryFilter holds the optional list parameters. Region and Currency match
// case-insensitively; an unknown Sort leaves the store's native order.
type CountryFilter struct {
	Region   string
	Currency string
	Sort     string
}

// IsKnownSort reports whether sort is one of the supported sort keys
func IsKnownSort(sort string) bool {
	switch sort {
	case SortGDPDesc, SortGDPAsc, SortPopulationDesc, SortPopulationAsc:
		return true
	}
	return false
}

// RefreshStatus is the singleton status marker plus the stored country count.
type RefreshStatus struct {
	TotalCountries  int64      `json:"total_countries"`
	LastRefreshedAt *time.Time `json:"last_refreshed_at"`
}

// RefreshResult summarizes one completed refresh cycle.
type RefreshResult struct {
	TotalCountries int       `json:"total_countries"`
	Timestamp      time.Time `json:"timestamp"`
}
