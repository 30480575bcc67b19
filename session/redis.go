package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore persists the session credential in Redis, keyed per device, so
// it survives process restarts. The key expires with the session.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
	device string

	now func() time.Time
}

// NewRedisStore creates a [RedisStore]. prefix namespaces the key; deviceID
// isolates devices that share the same Redis.
func NewRedisStore(client redis.UniversalClient, prefix, deviceID string) *RedisStore {
	return &RedisStore{
		redis:  client,
		prefix: prefix,
		device: deviceID,
		now:    time.Now,
	}
}

func (r *RedisStore) key() string {
	return r.prefix + ":sess:" + r.device
}

// Save writes the session with a TTL matching its expiry. Saving an already
// expired session clears the key instead.
func (r *RedisStore) Save(ctx context.Context, s *Session) error {
	if s == nil {
		return errors.New("nil session")
	}

	ttl := s.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return r.Clear(ctx)
	}

	encoded, err := json.Marshal(s)
	if err != nil {
		return err
	}

	if err := r.redis.Set(ctx, r.key(), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Load reads the stored session. A missing or expired key yields
// [ErrNotFound].
func (r *RedisStore) Load(ctx context.Context) (*Session, error) {
	data, err := r.redis.Get(ctx, r.key()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("corrupt session record: %w", err)
	}
	return &s, nil
}

// Clear deletes the stored session. Deleting a missing key is a no-op.
func (r *RedisStore) Clear(ctx context.Context) error {
	if err := r.redis.Del(ctx, r.key()).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
