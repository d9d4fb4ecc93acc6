package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/davidorozcoq/mercadito-backend/pkg/redis"
)

// Guard deduplicates provider callbacks using Redis SETNX with a TTL.
// Keys follow the `mk:idempotency:<scope>:<key>` pattern.
type Guard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
}

// NewGuard builds a guard that marks operations as seen for the given TTL.
func NewGuard(store redis.IdempotencyStore, ttl time.Duration) (*Guard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &Guard{
		store: store,
		ttl:   ttl,
	}, nil
}

// CheckAndSet returns true if this is the first time the (scope, key) pair is
// seen and marks it as seen with the configured TTL. Repeated calls inside the
// TTL return false.
func (g *Guard) CheckAndSet(ctx context.Context, scope, key string) (bool, error) {
	full, err := g.buildKey(scope, key)
	if err != nil {
		return false, err
	}
	return g.store.SetNX(ctx, full, "1", g.ttl)
}

// Clear removes the seen marker so a failed operation can be retried.
func (g *Guard) Clear(ctx context.Context, scope, key string) error {
	full, err := g.buildKey(scope, key)
	if err != nil {
		return err
	}
	return g.store.Del(ctx, full)
}

func (g *Guard) buildKey(scope, key string) (string, error) {
	if scope == "" {
		return "", errors.New("scope is required")
	}
	if key == "" {
		return "", errors.New("key is required")
	}
	return g.store.IdempotencyKey(scope, key), nil
}
