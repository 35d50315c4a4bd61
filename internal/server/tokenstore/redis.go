package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cordoeats/backend/internal/common"
)

const keyPrefix = "refresh_token:"

// RedisStore is the durable Store implementation: records survive process
// restarts and are shared across instances. Keys carry a TTL equal to the
// token validity, so Redis itself enforces expiry.
type RedisStore struct {
	client   *redis.Client
	validity time.Duration
}

func NewRedisStore(client *redis.Client, validity time.Duration) *RedisStore {
	return &RedisStore{client: client, validity: validity}
}

func (s *RedisStore) Issue(ctx context.Context, userID, tenantSlug string) (string, error) {
	token, err := common.MakeRandURLSafeString(tokenSize)
	if err != nil {
		return "", err
	}

	rec := Record{
		UserID:     userID,
		TenantSlug: tenantSlug,
		ExpiresAt:  time.Now().Add(s.validity),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return "", err
	}

	if err := s.client.Set(ctx, keyPrefix+token, data, s.validity).Err(); err != nil {
		return "", fmt.Errorf("redis error: %w", err)
	}
	return token, nil
}

func (s *RedisStore) Verify(ctx context.Context, token string) (*Record, error) {
	data, err := s.client.Get(ctx, keyPrefix+token).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("redis error: %w", err)
	}

	rec := &Record{}
	if err := json.Unmarshal([]byte(data), rec); err != nil {
		return nil, fmt.Errorf("corrupt refresh token record: %w", err)
	}

	// The key TTL normally handles this; the check covers clock drift between
	// the record expiry and the key TTL.
	if time.Now().After(rec.ExpiresAt) {
		_ = s.client.Del(ctx, keyPrefix+token).Err()
		return nil, common.ErrorNotFound
	}

	return rec, nil
}

func (s *RedisStore) Revoke(ctx context.Context, token string) error {
	// DEL of a missing key is already a no-op.
	if err := s.client.Del(ctx, keyPrefix+token).Err(); err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}

func (s *RedisStore) CleanupExpired(ctx context.Context) (int, error) {
	// Redis expires keys on its own; nothing to sweep.
	return 0, nil
}
