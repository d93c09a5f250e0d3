package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Purger deletes refresh tokens that can no longer be used
type Purger interface {
	PurgeExpiredTokens(ctx context.Context) (int64, error)
}

// Scheduler runs housekeeping jobs on cron schedules
type Scheduler struct {
	cron    *cron.Cron
	purger  Purger
	log     *zap.Logger
	timeout time.Duration
}

// NewScheduler registers the token purge on schedule, a standard five-field
// cron expression or a descriptor such as "@hourly".
func NewScheduler(schedule string, purger Purger, log *zap.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		purger:  purger,
		log:     log.Named("jobs"),
		timeout: time.Minute,
	}
	if _, err := s.cron.AddFunc(schedule, s.PurgeOnce); err != nil {
		return nil, fmt.Errorf("invalid purge schedule %q: %w", schedule, err)
	}
	return s, nil
}

// PurgeOnce runs a single purge and logs the outcome
func (s *Scheduler) PurgeOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	n, err := s.purger.PurgeExpiredTokens(ctx)
	if err != nil {
		s.log.Error("Refresh token purge failed", zap.Error(err))
		return
	}
	s.log.Info("Refresh token purge finished",
		zap.Int64("deleted", n),
		zap.Duration("took", time.Since(start)),
	)
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for a running job until ctx is done
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
