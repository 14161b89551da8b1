// Package redisstore implements the pending authorization store on Redis.
//
// Pending authorizations are TTL-eligible by nature, which maps directly to
// Redis key expiry; SET NX gives atomic rejection of colliding state tokens.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/shimkit/pkg/shim"
)

const keyPrefix = "shimkit:pending:"

// PendingAuthorizationStore is a Redis-backed shim.PendingAuthorizationStore.
type PendingAuthorizationStore struct {
	client *redis.Client
	ttl    time.Duration
}

var _ shim.PendingAuthorizationStore = (*PendingAuthorizationStore)(nil)

// NewPendingAuthorizationStore creates a store whose records expire after
// ttl. A zero ttl keeps records until explicitly deleted.
func NewPendingAuthorizationStore(client *redis.Client, ttl time.Duration) *PendingAuthorizationStore {
	return &PendingAuthorizationStore{client: client, ttl: ttl}
}

func (s *PendingAuthorizationStore) Save(ctx context.Context, pending *shim.PendingAuthorization) error {
	payload, err := json.Marshal(pending)
	if err != nil {
		return fmt.Errorf("encode pending authorization: %w", err)
	}

	ok, err := s.client.SetNX(ctx, keyPrefix+pending.StateToken, payload, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("store pending authorization: %w", err)
	}
	if !ok {
		return shim.ErrStateConflict
	}
	return nil
}

func (s *PendingAuthorizationStore) FindByStateToken(ctx context.Context, stateToken string) (*shim.PendingAuthorization, error) {
	raw, err := s.client.Get(ctx, keyPrefix+stateToken).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, shim.ErrNoPendingAuthorization
		}
		return nil, fmt.Errorf("look up pending authorization: %w", err)
	}

	var pending shim.PendingAuthorization
	if err := json.Unmarshal(raw, &pending); err != nil {
		return nil, fmt.Errorf("decode pending authorization: %w", err)
	}
	return &pending, nil
}

func (s *PendingAuthorizationStore) Delete(ctx context.Context, pending *shim.PendingAuthorization) error {
	removed, err := s.client.Del(ctx, keyPrefix+pending.StateToken).Result()
	if err != nil {
		return fmt.Errorf("delete pending authorization: %w", err)
	}
	if removed == 0 {
		return shim.ErrNoPendingAuthorization
	}
	return nil
}
