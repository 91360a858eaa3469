package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fenilmodi00/country-currency-api/models"
	"github.com/fenilmodi00/country-currency-api/shared"
	"github.com/sirupsen/logrus"
)

// CacheEntry represents a cached item with expiration
type CacheEntry struct {
	Data      interface{}
	ExpiresAt time.Time
}

// IsExpired checks if the cache entry has expired
func (ce *CacheEntry) IsExpired() bool {
	return time.Now().After(ce.ExpiresAt)
}

// CacheService is a thread-safe in-memory TTL cache with a size bound.
// Expired entries are removed by CleanupExpired, driven by the cleanup job.
// Every invalidation bumps the generation; SetIfGeneration refuses writes
// computed before the latest invalidation.
type CacheService struct {
	cache      map[string]*CacheEntry
	mutex      sync.RWMutex
	defaultTTL time.Duration
	maxSize    int
	hits       int64
	misses     int64
	generation uint64
	metrics    *shared.AppMetrics
}

// NewCacheService creates a cache service from the shared cache configuration
func NewCacheService(config shared.CacheConfig, metrics *shared.AppMetrics) *CacheService {
	return &CacheService{
		cache:      make(map[string]*CacheEntry),
		defaultTTL: config.DefaultTTL,
		maxSize:    config.MaxSize,
		metrics:    metrics,
	}
}

// Get retrieves a value from cache
func (cs *CacheService) Get(key string) (interface{}, bool) {
	cs.mutex.Lock()
	defer cs.mutex.Unlock()

	entry, exists := cs.cache[key]
	if !exists || entry.IsExpired() {
		cs.misses++
		cs.metrics.RecordCacheLookup(false)
		return nil, false
	}

	cs.hits++
	cs.metrics.RecordCacheLookup(true)
	return entry.Data, true
}

// Set stores a value in cache with default TTL
func (cs *CacheService) Set(key string, value interface{}) {
	cs.SetWithTTL(key, value, cs.defaultTTL)
}

// SetWithTTL stores a value in cache with custom TTL
func (cs *CacheService) SetWithTTL(key string, value interface{}, ttl time.Duration) {
	cs.mutex.Lock()
	defer cs.mutex.Unlock()

	cs.store(key, value, ttl)
}

// Generation returns the current invalidation generation
func (cs *CacheService) Generation() uint64 {
	cs.mutex.RLock()
	defer cs.mutex.RUnlock()

	return cs.generation
}

// SetIfGeneration stores value only if no invalidation happened since
// generation was read. It reports whether the value was stored.
func (cs *CacheService) SetIfGeneration(key string, value interface{}, generation uint64) bool {
	cs.mutex.Lock()
	defer cs.mutex.Unlock()

	if cs.generation != generation {
		return false
	}
	cs.store(key, value, cs.defaultTTL)
	return true
}

func (cs *CacheService) store(key string, value interface{}, ttl time.Duration) {
	if _, exists := cs.cache[key]; !exists && len(cs.cache) >= cs.maxSize {
		cs.evictOldest()
	}

	cs.cache[key] = &CacheEntry{
		Data:      value,
		ExpiresAt: time.Now().Add(ttl),
	}
}

// evictOldest removes the entry closest to expiry
func (cs *CacheService) evictOldest() {
	var oldestKey string
	var oldestTime time.Time

	for key, entry := range cs.cache {
		if oldestKey == "" || entry.ExpiresAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.ExpiresAt
		}
	}

	if oldestKey != "" {
		delete(cs.cache, oldestKey)
	}
}

// Delete removes a value from cache
func (cs *CacheService) Delete(key string) {
	cs.mutex.Lock()
	defer cs.mutex.Unlock()

	cs.generation++
	delete(cs.cache, key)
}

// DeletePrefix removes every key starting with prefix
func (cs *CacheService) DeletePrefix(prefix string) {
	cs.mutex.Lock()
	defer cs.mutex.Unlock()

	cs.generation++
	for key := range cs.cache {
		if strings.HasPrefix(key, prefix) {
			delete(cs.cache, key)
		}
	}
}

// Clear removes all values from cache
func (cs *CacheService) Clear() {
	cs.mutex.Lock()
	defer cs.mutex.Unlock()

	cs.generation++
	cs.cache = make(map[string]*CacheEntry)
}

// Size returns the number of items in cache
func (cs *CacheService) Size() int {
	cs.mutex.RLock()
	defer cs.mutex.RUnlock()

	return len(cs.cache)
}

// CleanupExpired removes expired entries and returns how many were dropped
func (cs *CacheService) CleanupExpired() int {
	cs.mutex.Lock()
	defer cs.mutex.Unlock()

	removed := 0
	for key, entry := range cs.cache {
		if entry.IsExpired() {
			delete(cs.cache, key)
			removed++
		}
	}
	return removed
}

// Stats returns cache statistics
func (cs *CacheService) Stats() map[string]interface{} {
	cs.mutex.RLock()
	defer cs.mutex.RUnlock()

	return map[string]interface{}{
		"size":        len(cs.cache),
		"max_size":    cs.maxSize,
		"default_ttl": cs.defaultTTL.String(),
		"hits":        cs.hits,
		"misses":      cs.misses,
		"type":        "in-memory",
	}
}

const (
	countryListPrefix = "countries:"
	countryKeyPrefix  = "country:"
	statusCacheKey    = "status"
)

// CachedCountryService wraps a CountryQuerier with caching capabilities.
// A store read only fills the cache when no invalidation ran while it was in
// flight. With an InvalidationPublisher set, local invalidations are also
// announced to other replicas.
type CachedCountryService struct {
	service   CountryQuerier
	cache     *CacheService
	publisher InvalidationPublisher
}

// NewCachedCountryService creates a new cached country service
func NewCachedCountryService(service CountryQuerier, cache *CacheService) *CachedCountryService {
	return &CachedCountryService{
		service: service,
		cache:   cache,
	}
}

// ListCountries returns the filtered list, using cache when possible
func (c *CachedCountryService) ListCountries(ctx context.Context, filter models.CountryFilter) ([]models.Country, error) {
	cacheKey := fmt.Sprintf("%s%s|%s|%s", countryListPrefix,
		strings.ToLower(filter.Region), strings.ToLower(filter.Currency), filter.Sort)

	if cached, found := c.cache.Get(cacheKey); found {
		if countries, ok := cached.([]models.Country); ok {
			return countries, nil
		}
	}

	generation := c.cache.Generation()
	countries, err := c.service.ListCountries(ctx, filter)
	if err != nil {
		return nil, err
	}

	c.cache.SetIfGeneration(cacheKey, countries, generation)
	return countries, nil
}

// GetCountry returns a single country, using cache when possible. Misses are not cached.
func (c *CachedCountryService) GetCountry(ctx context.Context, name string) (*models.Country, error) {
	cacheKey := countryKeyPrefix + models.NameKey(name)

	if cached, found := c.cache.Get(cacheKey); found {
		if country, ok := cached.(models.Country); ok {
			return &country, nil
		}
	}

	generation := c.cache.Generation()
	country, err := c.service.GetCountry(ctx, name)
	if err != nil {
		return nil, err
	}

	c.cache.SetIfGeneration(cacheKey, *country, generation)
	return country, nil
}

// DeleteCountry deletes through to the store and drops affected entries
func (c *CachedCountryService) DeleteCountry(ctx context.Context, name string) error {
	if err := c.service.DeleteCountry(ctx, name); err != nil {
		return err
	}

	c.invalidateCountry(name)
	c.publish(CacheInvalidation{Kind: InvalidateCountry, Name: name})
	return nil
}

func (c *CachedCountryService) invalidateCountry(name string) {
	c.cache.Delete(countryKeyPrefix + models.NameKey(name))
	c.cache.DeletePrefix(countryListPrefix)
	c.cache.Delete(statusCacheKey)
}

func (c *CachedCountryService) GetStatus(ctx context.Context) (*models.RefreshStatus, error) {
	if cached, found := c.cache.Get(statusCacheKey); found {
		if status, ok := cached.(models.RefreshStatus); ok {
			return &status, nil
		}
	}

	generation := c.cache.Generation()
	status, err := c.service.GetStatus(ctx)
	if err != nil {
		return nil, err
	}

	c.cache.SetIfGeneration(statusCacheKey, *status, generation)
	return status, nil
}

// OnRefresh clears every cached query result
func (c *CachedCountryService) OnRefresh() {
	c.cache.Clear()
	logrus.WithField("component", "CachedCountryService").Debug("Query cache invalidated after refresh")
	c.publish(CacheInvalidation{Kind: InvalidateAll})
}

// SetPublisher announces future invalidations through p
func (c *CachedCountryService) SetPublisher(p InvalidationPublisher) {
	c.publisher = p
}

// ApplyInvalidation drops entries named by an invalidation received from
// another replica. It never republishes.
func (c *CachedCountryService) ApplyInvalidation(inv CacheInvalidation) {
	switch inv.Kind {
	case InvalidateCountry:
		c.invalidateCountry(inv.Name)
	default:
		c.cache.Clear()
	}
	logrus.WithFields(logrus.Fields{
		"component": "CachedCountryService",
		"kind":      inv.Kind,
		"name":      inv.Name,
	}).Debug("Applied remote cache invalidation")
}

func (c *CachedCountryService) publish(inv CacheInvalidation) {
	if c.publisher == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := c.publisher.Publish(ctx, inv); err != nil {
		logrus.WithField("component", "CachedCountryService").WithError(err).
			Warn("Failed to publish cache invalidation; other replicas expire by TTL")
	}
}

// GetCacheStats returns cache statistics
func (c *CachedCountryService) GetCacheStats() map[string]interface{} {
	return c.cache.Stats()
}

// ClearCache removes every cached entry
func (c *CachedCountryService) ClearCache() {
	c.cache.Clear()
}
