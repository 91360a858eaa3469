package database

import (
	"context"
	"time"

	"github.com/fenilmodi00/country-currency-api/models"
	"github.com/fenilmodi00/country-currency-api/shared"
)

// CountryStore persists merged country records and the global refresh marker.
// Identity is the case-insensitive country name (models.NameKey).
type CountryStore interface {
	// UpsertCountry inserts or replaces the record whose name matches
	// case-insensitively. The store assigns ID on first insert and keeps it
	// on update; the assigned ID is written back to country.
	UpsertCountry(ctx context.Context, country *models.Country) error
	ListCountries(ctx context.Context, filter models.CountryFilter) ([]models.Country, error)
	// GetCountry returns a not-found ServiceError when nothing matches.
	GetCountry(ctx context.Context, name string) (*models.Country, error)
	// DeleteCountry returns a not-found ServiceError when nothing matches.
	DeleteCountry(ctx context.Context, name string) error
	CountCountries(ctx context.Context) (int64, error)
	SetLastRefreshedAt(ctx context.Context, ts time.Time) error
	// GetLastRefreshedAt returns nil before the first successful refresh.
	GetLastRefreshedAt(ctx context.Context) (*time.Time, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

const globalMarkerID = "global"

func countryNotFound(serviceName, operation string) error {
	return shared.NewNotFoundError(serviceName, operation, "Country not found")
}

func storeError(err error, serviceName, operation string) error {
	return shared.WrapError(err, shared.ErrorCategoryDatabase, shared.CodeStoreFailure, serviceName, operation)
}
