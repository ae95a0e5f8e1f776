// Package lock implements exclusive edit locks over shared ideas.
// A lock is a single owner plus acquisition timestamp per resource;
// expiry is derived from a fixed TTL rather than stored, so a record
// can never drift from its deadline.
package lock

import (
	"errors"
	"time"
)

// DefaultTTL is how long an unrenewed lock stays valid.
const DefaultTTL = 5 * time.Minute

// Common errors for lock operations.
var (
	// ErrInvalidArgument is returned when a resource or owner id is empty.
	ErrInvalidArgument = errors.New("resource id and owner id must not be empty")

	// ErrResourceNotFound is returned when the referenced resource does not exist.
	ErrResourceNotFound = errors.New("resource not found")
)

// Record is an exclusive claim on a resource by a single owner.
type Record struct {
	// ResourceID identifies the locked resource (an idea id).
	ResourceID string `json:"resourceId"`

	// OwnerID identifies the user or session holding the lock.
	OwnerID string `json:"ownerId"`

	// AcquiredAt is when the lock was acquired or last renewed.
	AcquiredAt time.Time `json:"acquiredAt"`

	// Operation labels what the lock is for (e.g. "editing").
	// Carried for observability only.
	Operation string `json:"operation"`
}

// ExpiresAt returns the moment the record stops being valid.
func (r Record) ExpiresAt(ttl time.Duration) time.Time {
	return r.AcquiredAt.Add(ttl)
}

// Expired reports whether the record is stale at the given instant.
// A record whose deadline equals now is already stale.
func (r Record) Expired(now time.Time, ttl time.Duration) bool {
	return !r.ExpiresAt(ttl).After(now)
}
