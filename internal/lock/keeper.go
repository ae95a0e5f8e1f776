package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Keeper holds an edit lock on behalf of a session by renewing it
// periodically, well inside the TTL. If a renewal finds the lock
// reclaimed by another owner (after this session let it expire), the
// keeper reports the loss through a callback so the caller can stop
// the edit.
type Keeper struct {
	manager    *Manager
	resourceID string
	ownerID    string
	logger     zerolog.Logger

	holding     atomic.Bool
	renewalRate time.Duration
	onAcquire   func()
	onLose      func()

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// KeeperOption configures a Keeper.
type KeeperOption func(*Keeper)

// WithRenewalRate sets how often the keeper renews the lock. Should be
// well under the manager's TTL (the default is TTL/3).
func WithRenewalRate(d time.Duration) KeeperOption {
	return func(k *Keeper) {
		k.renewalRate = d
	}
}

// WithOnAcquire sets a callback invoked when the lock is first obtained.
func WithOnAcquire(fn func()) KeeperOption {
	return func(k *Keeper) {
		k.onAcquire = fn
	}
}

// WithOnLose sets a callback invoked when the lock is lost to another owner.
func WithOnLose(fn func()) KeeperOption {
	return func(k *Keeper) {
		k.onLose = fn
	}
}

// NewKeeper creates a keeper that maintains ownerID's lock on resourceID.
func NewKeeper(manager *Manager, resourceID, ownerID string, logger zerolog.Logger, opts ...KeeperOption) *Keeper {
	k := &Keeper{
		manager:     manager,
		resourceID:  resourceID,
		ownerID:     ownerID,
		logger:      logger.With().Str("component", "lock-keeper").Str("resourceId", resourceID).Logger(),
		renewalRate: manager.TTL() / 3,
		stopCh:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Start begins the acquire-and-renew loop.
func (k *Keeper) Start(ctx context.Context) {
	k.wg.Add(1)
	go k.run(ctx)
}

// Stop stops the renewal loop and releases the lock if held.
func (k *Keeper) Stop(ctx context.Context) {
	close(k.stopCh)
	k.wg.Wait()

	if k.holding.Load() {
		if _, err := k.manager.Release(ctx, k.resourceID, k.ownerID); err != nil {
			k.logger.Error().Err(err).Msg("failed to release lock on stop")
		}
		k.holding.Store(false)
	}
}

// Holding returns true if the keeper currently holds the lock.
func (k *Keeper) Holding() bool {
	return k.holding.Load()
}

func (k *Keeper) run(ctx context.Context) {
	defer k.wg.Done()

	ticker := time.NewTicker(k.renewalRate)
	defer ticker.Stop()

	// Try to acquire immediately on start.
	k.tryAcquireOrRenew(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-k.stopCh:
			return
		case <-ticker.C:
			k.tryAcquireOrRenew(ctx)
		}
	}
}

func (k *Keeper) tryAcquireOrRenew(ctx context.Context) {
	acquired, err := k.manager.Acquire(ctx, k.resourceID, k.ownerID)
	if err != nil {
		k.logger.Error().Err(err).Msg("lock renewal failed")
		return
	}

	switch {
	case acquired && !k.holding.Load():
		k.holding.Store(true)
		k.logger.Debug().Msg("lock obtained")
		if k.onAcquire != nil {
			k.onAcquire()
		}
	case !acquired && k.holding.Load():
		k.holding.Store(false)
		k.logger.Warn().Msg("lock reclaimed by another owner")
		if k.onLose != nil {
			k.onLose()
		}
	}
}
