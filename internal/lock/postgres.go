package lock

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is a PostgreSQL implementation of Store. The lock lives
// in two columns on the ideas table (locked_by, lock_acquired_at) so a
// lock can never outlive its idea; expiry is derived from the
// acquisition timestamp at query time rather than stored.
type PostgresStore struct {
	db  *pgxpool.Pool
	ttl time.Duration
}

// NewPostgresStore creates a PostgreSQL-backed lock store with the given TTL.
func NewPostgresStore(db *pgxpool.Pool, ttl time.Duration) *PostgresStore {
	return &PostgresStore{db: db, ttl: ttl}
}

// Get implements Store.Get.
func (s *PostgresStore) Get(ctx context.Context, resourceID string) (*Record, error) {
	query := `
		SELECT locked_by, lock_acquired_at, lock_operation
		FROM ideas
		WHERE id = $1 AND locked_by IS NOT NULL
	`

	var rec Record
	err := s.db.QueryRow(ctx, query, resourceID).Scan(&rec.OwnerID, &rec.AcquiredAt, &rec.Operation)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	rec.ResourceID = resourceID
	return &rec, nil
}

// ConditionalPut implements Store.ConditionalPut. The guard runs inside
// a single UPDATE so concurrent acquirers race on the row lock, not in
// application code.
func (s *PostgresStore) ConditionalPut(ctx context.Context, rec Record, now time.Time) (bool, error) {
	query := `
		UPDATE ideas
		SET locked_by = $2, lock_acquired_at = $3, lock_operation = $4
		WHERE id = $1
		  AND (locked_by IS NULL OR locked_by = $2 OR lock_acquired_at <= $5)
	`

	tag, err := s.db.Exec(ctx, query,
		rec.ResourceID, rec.OwnerID, rec.AcquiredAt, rec.Operation, now.Add(-s.ttl))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ConditionalDelete implements Store.ConditionalDelete.
func (s *PostgresStore) ConditionalDelete(ctx context.Context, resourceID, ownerID string, now time.Time) (bool, error) {
	query := `
		UPDATE ideas
		SET locked_by = NULL, lock_acquired_at = NULL, lock_operation = NULL
		WHERE id = $1
		  AND locked_by IS NOT NULL
		  AND (locked_by = $2 OR lock_acquired_at <= $3)
	`

	tag, err := s.db.Exec(ctx, query, resourceID, ownerID, now.Add(-s.ttl))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ScanExpired implements Store.ScanExpired.
func (s *PostgresStore) ScanExpired(ctx context.Context, now time.Time) ([]string, error) {
	query := `
		SELECT id FROM ideas
		WHERE locked_by IS NOT NULL AND lock_acquired_at <= $1
	`

	rows, err := s.db.Query(ctx, query, now.Add(-s.ttl))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
