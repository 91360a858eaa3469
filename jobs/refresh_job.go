package jobs

import (
	"context"
	"time"

	"github.com/fenilmodi00/country-currency-api/models"
	"github.com/sirupsen/logrus"
)

// Refresher runs one refresh cycle
type Refresher interface {
	Refresh(ctx context.Context) (*models.RefreshResult, error)
}

// RefreshJob refreshes country data on a fixed interval
type RefreshJob struct {
	Refresher Refresher
	Interval  time.Duration
	Timeout   time.Duration
}

func NewRefreshJob(refresher Refresher, interval time.Duration) *RefreshJob {
	return &RefreshJob{
		Refresher: refresher,
		Interval:  interval,
		Timeout:   10 * time.Minute,
	}
}

// Start runs the job every Interval until ctx is cancelled. The first run
// happens after one interval, not at startup.
func (j *RefreshJob) Start(ctx context.Context) {
	logrus.WithFields(logrus.Fields{
		"component": "RefreshJob",
		"interval":  j.Interval,
	}).Info("Starting scheduled country refresh")

	ticker := time.NewTicker(j.Interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				j.Run(ctx)
			}
		}
	}()
}

// Run executes a single refresh and logs the outcome
func (j *RefreshJob) Run(ctx context.Context) error {
	logger := logrus.WithField("component", "RefreshJob")

	runCtx, cancel := context.WithTimeout(ctx, j.Timeout)
	defer cancel()

	startTime := time.Now()
	result, err := j.Refresher.Refresh(runCtx)
	if err != nil {
		logger.WithError(err).Error("Scheduled refresh failed")
		return err
	}

	logger.WithFields(logrus.Fields{
		"total_countries": result.TotalCountries,
		"timestamp":       result.Timestamp,
		"processing_time": time.Since(startTime),
	}).Info("Scheduled refresh completed")

	return nil
}
