package services

import (
	"context"

	"github.com/fenilmodi00/country-currency-api/database"
	"github.com/fenilmodi00/country-currency-api/models"
	"github.com/sirupsen/logrus"
)

// CountryQuerier is the read and delete surface used by the HTTP handlers
type CountryQuerier interface {
	ListCountries(ctx context.Context, filter models.CountryFilter) ([]models.Country, error)
	GetCountry(ctx context.Context, name string) (*models.Country, error)
	DeleteCountry(ctx context.Context, name string) error
	GetStatus(ctx context.Context) (*models.RefreshStatus, error)
}

// CountryService answers queries straight from the store
type CountryService struct {
	Store database.CountryStore
}

func NewCountryService(store database.CountryStore) *CountryService {
	return &CountryService{Store: store}
}

// ListCountries filters case-insensitively; an unknown sort keeps store order
func (s *CountryService) ListCountries(ctx context.Context, filter models.CountryFilter) ([]models.Country, error) {
	if filter.Sort != "" && !models.IsKnownSort(filter.Sort) {
		logrus.WithFields(logrus.Fields{
			"component": "CountryService",
			"sort":      filter.Sort,
		}).Debug("Ignoring unknown sort key")
		filter.Sort = ""
	}
	return s.Store.ListCountries(ctx, filter)
}

func (s *CountryService) GetCountry(ctx context.Context, name string) (*models.Country, error) {
	return s.Store.GetCountry(ctx, name)
}

func (s *CountryService) DeleteCountry(ctx context.Context, name string) error {
	return s.Store.DeleteCountry(ctx, name)
}

// GetStatus returns the stored count and the refresh marker (nil before any refresh)
func (s *CountryService) GetStatus(ctx context.Context) (*models.RefreshStatus, error) {
	total, err := s.Store.CountCountries(ctx)
	if err != nil {
		return nil, err
	}

	lastRefreshedAt, err := s.Store.GetLastRefreshedAt(ctx)
	if err != nil {
		return nil, err
	}

	return &models.RefreshStatus{
		TotalCountries:  total,
		LastRefreshedAt: lastRefreshedAt,
	}, nil
}
