package database

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fenilmodi00/country-currency-api/models"
	"github.com/google/uuid"
)

const memoryStoreName = "MemoryStore"

// MemoryStore is a process-local CountryStore. It keeps insertion order as
// its native order and is used by tests and STORE_DRIVER=memory.
type MemoryStore struct {
	mutex         sync.RWMutex
	countries     map[string]*models.Country
	order         []string
	lastRefreshed *time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		countries: make(map[string]*models.Country),
	}
}

func (s *MemoryStore) UpsertCountry(ctx context.Context, country *models.Country) error {
	if err := ctx.Err(); err != nil {
		return storeError(err, memoryStoreName, "UpsertCountry")
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	key := models.NameKey(country.Name)
	stored := *country
	stored.LastRefreshedAt = country.LastRefreshedAt.UTC()

	if existing, ok := s.countries[key]; ok {
		stored.ID = existing.ID
	} else {
		stored.ID = uuid.New().String()
		s.order = append(s.order, key)
	}

	s.countries[key] = &stored
	country.ID = stored.ID
	return nil
}

func (s *MemoryStore) ListCountries(ctx context.Context, filter models.CountryFilter) ([]models.Country, error) {
	if err := ctx.Err(); err != nil {
		return nil, storeError(err, memoryStoreName, "ListCountries")
	}

	s.mutex.RLock()
	countries := make([]models.Country, 0, len(s.order))
	for _, key := range s.order {
		country := s.countries[key]
		if filter.Region != "" && !equalFoldPtr(country.Region, filter.Region) {
			continue
		}
		if filter.Currency != "" && !equalFoldPtr(country.CurrencyCode, filter.Currency) {
			continue
		}
		countries = append(countries, *country)
	}
	s.mutex.RUnlock()

	sortCountries(countries, filter.Sort)
	return countries, nil
}

// sortCountries orders in place; a nil GDP ranks below every value
func sortCountries(countries []models.Country, sortKey string) {
	gdp := func(i int) (float64, bool) {
		if countries[i].EstimatedGDP == nil {
			return 0, false
		}
		return *countries[i].EstimatedGDP, true
	}
	gdpLess := func(i, j int) bool {
		a, aok := gdp(i)
		b, bok := gdp(j)
		if !aok || !bok {
			return !aok && bok
		}
		return a < b
	}

	switch sortKey {
	case models.SortGDPDesc:
		sort.SliceStable(countries, func(i, j int) bool { return gdpLess(j, i) })
	case models.SortGDPAsc:
		sort.SliceStable(countries, gdpLess)
	case models.SortPopulationDesc:
		sort.SliceStable(countries, func(i, j int) bool { return countries[i].Population > countries[j].Population })
	case models.SortPopulationAsc:
		sort.SliceStable(countries, func(i, j int) bool { return countries[i].Population < countries[j].Population })
	}
}

func equalFoldPtr(value *string, target string) bool {
	return value != nil && strings.EqualFold(*value, target)
}

func (s *MemoryStore) GetCountry(ctx context.Context, name string) (*models.Country, error) {
	if err := ctx.Err(); err != nil {
		return nil, storeError(err, memoryStoreName, "GetCountry")
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	country, ok := s.countries[models.NameKey(name)]
	if !ok {
		return nil, countryNotFound(memoryStoreName, "GetCountry")
	}

	copied := *country
	return &copied, nil
}

func (s *MemoryStore) DeleteCountry(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return storeError(err, memoryStoreName, "DeleteCountry")
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	key := models.NameKey(name)
	if _, ok := s.countries[key]; !ok {
		return countryNotFound(memoryStoreName, "DeleteCountry")
	}

	delete(s.countries, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *MemoryStore) CountCountries(ctx context.Context) (int64, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return int64(len(s.countries)), nil
}

func (s *MemoryStore) SetLastRefreshedAt(ctx context.Context, ts time.Time) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	utc := ts.UTC()
	s.lastRefreshed = &utc
	return nil
}

func (s *MemoryStore) GetLastRefreshedAt(ctx context.Context) (*time.Time, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if s.lastRefreshed == nil {
		return nil, nil
	}
	ts := *s.lastRefreshed
	return &ts, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

func (s *MemoryStore) Close(ctx context.Context) error {
	return nil
}
