package jobs

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// ExpiringCache drops entries past their TTL
type ExpiringCache interface {
	CleanupExpired() int
	Size() int
}

type CacheCleanupJob struct {
	Cache    ExpiringCache
	Interval time.Duration
}

func NewCacheCleanupJob(cache ExpiringCache, interval time.Duration) *CacheCleanupJob {
	return &CacheCleanupJob{Cache: cache, Interval: interval}
}

func (j *CacheCleanupJob) Start(ctx context.Context) {
	ticker := time.NewTicker(j.Interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				j.Run()
			}
		}
	}()
}

func (j *CacheCleanupJob) Run() int {
	removed := j.Cache.CleanupExpired()
	logrus.WithFields(logrus.Fields{
		"component": "CacheCleanupJob",
		"removed":   removed,
		"remaining": j.Cache.Size(),
	}).Debug("Cache cleanup completed")
	return removed
}
