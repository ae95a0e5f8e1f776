package lock

import (
	"context"
	"time"
)

// Store persists lock records keyed by resource id.
//
// Each method is a single atomic operation against the backend. The
// conditional variants carry the guard into the store call so that two
// concurrent acquirers can never both observe "free" and both write;
// whichever conditional update the backend commits first wins.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the physical record for a resource, or nil if none
	// exists. Callers decide whether a returned record is stale.
	Get(ctx context.Context, resourceID string) (*Record, error)

	// ConditionalPut writes rec if and only if the current record is
	// absent, expired at now, or owned by rec.OwnerID. Returns whether
	// the write was applied.
	ConditionalPut(ctx context.Context, rec Record, now time.Time) (bool, error)

	// ConditionalDelete removes the record if and only if it is expired
	// at now or owned by ownerID. Returns whether a record was removed.
	// Removing an absent record is a no-op, not an error.
	ConditionalDelete(ctx context.Context, resourceID, ownerID string, now time.Time) (bool, error)

	// ScanExpired returns the resource ids of records that are still
	// physically present but expired at now.
	ScanExpired(ctx context.Context, now time.Time) ([]string, error)
}
