package lock

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Lua scripts for atomic check-and-write / check-and-delete. The guard
// must run server-side: a GET followed by a SET from the client would
// let another acquirer interleave between the two calls.
var (
	putScript = redis.NewScript(`
		local cur = redis.call("GET", KEYS[1])
		if cur then
			local rec = cjson.decode(cur)
			if rec.ownerId ~= ARGV[2] and rec.acquiredAtMs + tonumber(ARGV[3]) > tonumber(ARGV[4]) then
				return 0
			end
		end
		redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[3])
		return 1
	`)

	deleteScript = redis.NewScript(`
		local cur = redis.call("GET", KEYS[1])
		if not cur then
			return 0
		end
		local rec = cjson.decode(cur)
		if rec.ownerId == ARGV[1] or rec.acquiredAtMs + tonumber(ARGV[2]) <= tonumber(ARGV[3]) then
			return redis.call("DEL", KEYS[1])
		end
		return 0
	`)
)

// RedisStore is a Redis implementation of Store. Records are JSON
// values under a prefixed key, written with PX = TTL so the server
// reaps stale locks on its own; the scripts still check the acquisition
// timestamp against the caller's notion of now, which keeps behavior
// consistent with the injected clock.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithKeyPrefix sets a prefix for all lock keys in Redis.
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// NewRedisStore creates a Redis-backed lock store with the given TTL.
func NewRedisStore(client *redis.Client, ttl time.Duration, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		client: client,
		prefix: "editlock:",
		ttl:    ttl,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// redisRecord is the JSON payload stored per lock. The timestamp is
// unix milliseconds so the Lua guards can compare it numerically.
type redisRecord struct {
	OwnerID      string `json:"ownerId"`
	AcquiredAtMs int64  `json:"acquiredAtMs"`
	Operation    string `json:"operation"`
}

func (s *RedisStore) key(resourceID string) string {
	return s.prefix + resourceID
}

// Get implements Store.Get.
func (s *RedisStore) Get(ctx context.Context, resourceID string) (*Record, error) {
	val, err := s.client.Get(ctx, s.key(resourceID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var rr redisRecord
	if err := json.Unmarshal([]byte(val), &rr); err != nil {
		return nil, err
	}

	return &Record{
		ResourceID: resourceID,
		OwnerID:    rr.OwnerID,
		AcquiredAt: time.UnixMilli(rr.AcquiredAtMs),
		Operation:  rr.Operation,
	}, nil
}

// ConditionalPut implements Store.ConditionalPut.
func (s *RedisStore) ConditionalPut(ctx context.Context, rec Record, now time.Time) (bool, error) {
	payload, err := json.Marshal(redisRecord{
		OwnerID:      rec.OwnerID,
		AcquiredAtMs: rec.AcquiredAt.UnixMilli(),
		Operation:    rec.Operation,
	})
	if err != nil {
		return false, err
	}

	result, err := putScript.Run(ctx, s.client, []string{s.key(rec.ResourceID)},
		string(payload), rec.OwnerID, s.ttl.Milliseconds(), now.UnixMilli()).Int64()
	if err != nil {
		return false, err
	}
	return result == 1, nil
}

// ConditionalDelete implements Store.ConditionalDelete.
func (s *RedisStore) ConditionalDelete(ctx context.Context, resourceID, ownerID string, now time.Time) (bool, error) {
	result, err := deleteScript.Run(ctx, s.client, []string{s.key(resourceID)},
		ownerID, s.ttl.Milliseconds(), now.UnixMilli()).Int64()
	if err != nil {
		return false, err
	}
	return result == 1, nil
}

// ScanExpired implements Store.ScanExpired. Usually empty because the
// server expires keys itself; it only finds records the injected clock
// considers stale ahead of the server.
func (s *RedisStore) ScanExpired(ctx context.Context, now time.Time) ([]string, error) {
	var expired []string
	var cursor uint64

	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.prefix+"*", 100).Result()
		if err != nil {
			return nil, err
		}

		for _, key := range keys {
			val, err := s.client.Get(ctx, key).Result()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					continue
				}
				return nil, err
			}

			var rr redisRecord
			if err := json.Unmarshal([]byte(val), &rr); err != nil {
				return nil, err
			}
			if rr.AcquiredAtMs+s.ttl.Milliseconds() <= now.UnixMilli() {
				expired = append(expired, key[len(s.prefix):])
			}
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	return expired, nil
}

// Ping checks if the Redis connection is healthy.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
