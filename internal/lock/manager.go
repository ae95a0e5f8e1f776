package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ideaboard-hq/locking-system/internal/clock"
	"github.com/ideaboard-hq/locking-system/internal/metrics"
)

// defaultOperation labels locks taken through a manager that was not
// configured with a custom operation.
const defaultOperation = "editing"

// ResourceChecker answers whether a lockable resource exists. The idea
// store implements it; the manager only needs existence, not content.
type ResourceChecker interface {
	Exists(ctx context.Context, resourceID string) (bool, error)
}

// Manager coordinates exclusive edit access to resources. It holds no
// in-process lock state of its own: every decision is one atomic call
// against the Store, so any number of Manager instances can share a
// backend.
type Manager struct {
	store     Store
	resources ResourceChecker
	clock     clock.Clock
	ttl       time.Duration
	operation string
	logger    zerolog.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithTTL overrides the default lock TTL.
func WithTTL(ttl time.Duration) ManagerOption {
	return func(m *Manager) {
		m.ttl = ttl
	}
}

// WithOperation sets the operation label stamped on new locks.
func WithOperation(op string) ManagerOption {
	return func(m *Manager) {
		m.operation = op
	}
}

// NewManager creates a lock manager over the given store and resource
// registry.
func NewManager(store Store, resources ResourceChecker, clk clock.Clock, logger zerolog.Logger, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:     store,
		resources: resources,
		clock:     clk,
		ttl:       DefaultTTL,
		operation: defaultOperation,
		logger:    logger.With().Str("component", "lock-manager").Logger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// TTL returns the lock TTL the manager enforces.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Acquire attempts to take or renew the edit lock on a resource.
// It returns true when ownerID now holds the lock (first acquisition,
// renewal, or reclaim of a stale lock) and false when another owner
// holds a live lock. A false return is a normal outcome, not an error;
// retrying is the caller's decision.
func (m *Manager) Acquire(ctx context.Context, resourceID, ownerID string) (bool, error) {
	if resourceID == "" || ownerID == "" {
		return false, ErrInvalidArgument
	}

	if err := m.checkResource(ctx, resourceID); err != nil {
		return false, err
	}

	now := m.clock.Now()
	rec := Record{
		ResourceID: resourceID,
		OwnerID:    ownerID,
		AcquiredAt: now,
		Operation:  m.operation,
	}

	acquired, err := m.store.ConditionalPut(ctx, rec, now)
	if err != nil {
		metrics.LockStoreErrors.WithLabelValues("put").Inc()
		return false, fmt.Errorf("acquire lock for %s: %w", resourceID, err)
	}

	if acquired {
		metrics.LockAcquires.WithLabelValues("granted").Inc()
		m.logger.Debug().
			Str("resourceId", resourceID).
			Str("ownerId", ownerID).
			Time("expiresAt", rec.ExpiresAt(m.ttl)).
			Msg("lock acquired")
	} else {
		metrics.LockAcquires.WithLabelValues("conflict").Inc()
		m.logger.Debug().
			Str("resourceId", resourceID).
			Str("ownerId", ownerID).
			Msg("lock held by another owner")
	}

	return acquired, nil
}

// Release gives up the edit lock on a resource. It is idempotent and
// always reports success: releasing an absent or stale lock is a no-op,
// and a live lock held by a different owner is deliberately left
// untouched rather than reported as a failure.
func (m *Manager) Release(ctx context.Context, resourceID, ownerID string) (bool, error) {
	if resourceID == "" || ownerID == "" {
		return false, ErrInvalidArgument
	}

	removed, err := m.store.ConditionalDelete(ctx, resourceID, ownerID, m.clock.Now())
	if err != nil {
		metrics.LockStoreErrors.WithLabelValues("delete").Inc()
		return false, fmt.Errorf("release lock for %s: %w", resourceID, err)
	}

	if removed {
		metrics.LockReleases.Inc()
		m.logger.Debug().
			Str("resourceId", resourceID).
			Str("ownerId", ownerID).
			Msg("lock released")
	}

	return true, nil
}

// Query returns the live lock on a resource, or nil when it is
// unlocked. A stale record that has not been swept yet counts as
// unlocked; Query never returns an expired record.
func (m *Manager) Query(ctx context.Context, resourceID string) (*Record, error) {
	if resourceID == "" {
		return nil, ErrInvalidArgument
	}

	if err := m.checkResource(ctx, resourceID); err != nil {
		return nil, err
	}

	rec, err := m.store.Get(ctx, resourceID)
	if err != nil {
		metrics.LockStoreErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("query lock for %s: %w", resourceID, err)
	}

	if rec == nil || rec.Expired(m.clock.Now(), m.ttl) {
		return nil, nil
	}
	return rec, nil
}

func (m *Manager) checkResource(ctx context.Context, resourceID string) error {
	exists, err := m.resources.Exists(ctx, resourceID)
	if err != nil {
		return fmt.Errorf("check resource %s: %w", resourceID, err)
	}
	if !exists {
		return ErrResourceNotFound
	}
	return nil
}
