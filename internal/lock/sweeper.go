package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ideaboard-hq/locking-system/internal/clock"
	"github.com/ideaboard-hq/locking-system/internal/metrics"
)

// Sweeper removes stale lock records from the store. Running it is an
// optimization, not a correctness requirement: Acquire and Query
// already treat stale records as absent. The per-record delete is
// guarded by the same expiry check as the scan, so a sweep racing a
// re-acquire can never remove a fresh lock.
type Sweeper struct {
	store  Store
	clock  clock.Clock
	logger zerolog.Logger
}

// NewSweeper creates a sweeper over the given store.
func NewSweeper(store Store, clk clock.Clock, logger zerolog.Logger) *Sweeper {
	return &Sweeper{
		store:  store,
		clock:  clk,
		logger: logger.With().Str("component", "lock-sweeper").Logger(),
	}
}

// Cleanup removes every expired record and returns the number removed.
// Safe to call with zero stale locks and concurrently with acquire and
// release traffic.
func (s *Sweeper) Cleanup(ctx context.Context) (int64, error) {
	now := s.clock.Now()

	ids, err := s.store.ScanExpired(ctx, now)
	if err != nil {
		metrics.LockStoreErrors.WithLabelValues("scan").Inc()
		return 0, fmt.Errorf("scan expired locks: %w", err)
	}

	var removed int64
	for _, id := range ids {
		// Empty owner matches no live record, so only still-expired
		// records are deleted.
		ok, err := s.store.ConditionalDelete(ctx, id, "", now)
		if err != nil {
			metrics.LockStoreErrors.WithLabelValues("delete").Inc()
			return removed, fmt.Errorf("sweep lock for %s: %w", id, err)
		}
		if ok {
			removed++
		}
	}

	if removed > 0 {
		metrics.StaleLocksSwept.Add(float64(removed))
		s.logger.Info().
			Int64("removedCount", removed).
			Msg("swept stale locks")
	}

	return removed, nil
}

// SweepJob periodically runs a Sweeper in the background.
type SweepJob struct {
	sweeper  *Sweeper
	interval time.Duration
	logger   zerolog.Logger
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewSweepJob creates a sweep job that runs at the specified interval.
func NewSweepJob(sweeper *Sweeper, interval time.Duration, logger zerolog.Logger) *SweepJob {
	return &SweepJob{
		sweeper:  sweeper,
		interval: interval,
		logger:   logger.With().Str("component", "lock-sweep-job").Logger(),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the sweep job in a background goroutine.
func (j *SweepJob) Start() {
	go j.run()
}

// Stop signals the sweep job to stop and waits for it to finish.
func (j *SweepJob) Stop() {
	close(j.stopCh)
	<-j.doneCh
}

func (j *SweepJob) run() {
	defer close(j.doneCh)

	// Run an initial sweep so stale records from a previous run are
	// cleared promptly after startup.
	j.runSweep()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.stopCh:
			j.logger.Info().Msg("sweep job stopped")
			return
		case <-ticker.C:
			j.runSweep()
		}
	}
}

func (j *SweepJob) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := j.sweeper.Cleanup(ctx); err != nil {
		j.logger.Error().Err(err).Msg("failed to sweep stale locks")
	}
}
