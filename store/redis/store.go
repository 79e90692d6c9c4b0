package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"go.pilab.hu/oauthkit/domain"
	oautherrors "go.pilab.hu/oauthkit/errors"
)

// TokenStore implements the store.TokenStore interface using Redis.
type TokenStore struct {
	client *redis.Client
	prefix string // Optional prefix for keys
}

// NewTokenStore creates a new [TokenStore] instance.
func NewTokenStore(client *redis.Client, prefix string) *TokenStore {
	return &TokenStore{
		client: client,
		prefix: prefix,
	}
}

// redisKey returns the Redis key for a given service name.
func (r *TokenStore) redisKey(serviceName string) string {
	return fmt.Sprintf("%s:token:%s", r.prefix, serviceName)
}

// Get retrieves the token record stored for the service.
func (r *TokenStore) Get(ctx context.Context, serviceName string) (*domain.TokenRecord, error) {
	data, err := r.client.Get(ctx, r.redisKey(serviceName)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, oautherrors.ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get token record from Redis: %w", err)
	}

	var record domain.TokenRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token record: %w", err)
	}

	return &record, nil
}

// Put stores the token record for the service. Records are kept without a
// Redis TTL: an expired record must remain readable so it can be refreshed.
func (r *TokenStore) Put(ctx context.Context, serviceName string, record *domain.TokenRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal token record: %w", err)
	}

	if err := r.client.Set(ctx, r.redisKey(serviceName), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set token record in Redis: %w", err)
	}

	return nil
}

// Delete removes the token record for the service.
func (r *TokenStore) Delete(ctx context.Context, serviceName string) error {
	if err := r.client.Del(ctx, r.redisKey(serviceName)).Err(); err != nil {
		return fmt.Errorf("failed to delete token record from Redis: %w", err)
	}

	return nil
}
