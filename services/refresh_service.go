package services

import (
	"context"
	"time"

	"github.com/fenilmodi00/country-currency-api/database"
	"github.com/fenilmodi00/country-currency-api/models"
	"github.com/fenilmodi00/country-currency-api/shared"
	"github.com/sirupsen/logrus"
)

// RefreshListener is notified after any refresh attempt that wrote to the store
type RefreshListener interface {
	OnRefresh()
}

// RefreshService runs one fetch, merge, persist and render cycle per call
type RefreshService struct {
	Countries  CountriesSource
	Rates      RatesSource
	Store      database.CountryStore
	Artifact   ArtifactRenderer
	Locker     RefreshLocker
	Multiplier GDPMultiplier
	Metrics    *shared.AppMetrics

	listeners []RefreshListener
	now       func() time.Time
}

func NewRefreshService(
	countries CountriesSource,
	rates RatesSource,
	store database.CountryStore,
	artifact ArtifactRenderer,
	locker RefreshLocker,
	metrics *shared.AppMetrics,
) *RefreshService {
	if locker == nil {
		locker = NewLocalRefreshLocker(0)
	}
	return &RefreshService{
		Countries:  countries,
		Rates:      rates,
		Store:      store,
		Artifact:   artifact,
		Locker:     locker,
		Multiplier: DefaultGDPMultiplier,
		Metrics:    metrics,
		now:        time.Now,
	}
}

// AddListener registers l for post-refresh notifications
func (s *RefreshService) AddListener(l RefreshListener) {
	s.listeners = append(s.listeners, l)
}

// Refresh fetches both providers before touching the store, so a provider
// failure leaves stored data unchanged. A store failure mid-loop aborts without
// rolling back records already written.
func (s *RefreshService) Refresh(ctx context.Context) (*models.RefreshResult, error) {
	logger := logrus.WithFields(logrus.Fields{
		"component": "RefreshService",
		"method":    "Refresh",
	})
	startTime := time.Now()

	release, err := s.Locker.Acquire(ctx)
	if err != nil {
		s.Metrics.RecordRefresh(shared.OutcomeInternalError, time.Since(startTime))
		return nil, err
	}
	defer release()

	rawCountries, err := s.Countries.FetchCountries(ctx)
	if err != nil {
		s.Metrics.RecordRefresh(shared.OutcomeUpstreamError, time.Since(startTime))
		return nil, err
	}

	rates, err := s.Rates.FetchRates(ctx)
	if err != nil {
		s.Metrics.RecordRefresh(shared.OutcomeUpstreamError, time.Since(startTime))
		return nil, err
	}

	refreshedAt := s.now().UTC()
	defer s.notify()

	processed := make([]models.Country, 0, len(rawCountries))
	skipped := 0
	for _, raw := range rawCountries {
		if raw.Name == "" {
			skipped++
			continue
		}

		country := MergeCountry(raw, rates, s.Multiplier, refreshedAt)
		if err := s.Store.UpsertCountry(ctx, &country); err != nil {
			s.Metrics.RecordRefresh(shared.OutcomeInternalError, time.Since(startTime))
			logger.WithError(err).WithField("country", raw.Name).Error("Failed to store country")
			return nil, shared.WrapError(err, shared.ErrorCategoryDatabase, shared.CodeStoreFailure, "RefreshService", "UpsertCountry").
				WithDetails(map[string]interface{}{
					"country": raw.Name,
					"stored":  len(processed),
					"fetched": len(rawCountries),
				})
		}
		processed = append(processed, country)
	}

	if skipped > 0 {
		logger.WithField("skipped", skipped).Warn("Skipped provider entries without a name")
		if s.Metrics != nil {
			s.Metrics.CountriesSkippedTotal.Add(float64(skipped))
		}
	}

	if err := s.Store.SetLastRefreshedAt(ctx, refreshedAt); err != nil {
		s.Metrics.RecordRefresh(shared.OutcomeInternalError, time.Since(startTime))
		return nil, shared.WrapError(err, shared.ErrorCategoryDatabase, shared.CodeStoreFailure, "RefreshService", "SetLastRefreshedAt")
	}

	if err := s.Artifact.Render(processed, refreshedAt); err != nil {
		s.Metrics.RecordRefresh(shared.OutcomeInternalError, time.Since(startTime))
		return nil, shared.WrapError(err, shared.ErrorCategoryProcessing, shared.CodeRenderFailure, "RefreshService", "Render")
	}

	duration := time.Since(startTime)
	s.Metrics.RecordRefresh(shared.OutcomeSuccess, duration)
	if s.Metrics != nil {
		s.Metrics.CountriesStored.Set(float64(len(processed)))
	}

	logger.WithFields(logrus.Fields{
		"total_countries": len(processed),
		"rates":           len(rates),
		"timestamp":       refreshedAt,
		"duration":        duration,
	}).Info("Refresh completed")

	return &models.RefreshResult{
		TotalCountries: len(processed),
		Timestamp:      refreshedAt,
	}, nil
}

func (s *RefreshService) notify() {
	for _, l := range s.listeners {
		l.OnRefresh()
	}
}
