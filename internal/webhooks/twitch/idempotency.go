package twitchwebhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/memalerts/memalerts-backend/pkg/redis"
)

// IdempotencyGuard suppresses EventSub redeliveries before they reach
// the recorder. The ledger's unique key is the real safety net; this
// just saves the round trip.
type IdempotencyGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	scope string
}

func NewIdempotencyGuard(store redis.IdempotencyStore, ttl time.Duration, scope string) (*IdempotencyGuard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	if scope == "" {
		return nil, errors.New("scope is required")
	}
	return &IdempotencyGuard{
		store: store,
		ttl:   ttl,
		scope: scope,
	}, nil
}

// CheckAndMark reports whether the message id was already seen, marking
// it on first sight.
func (g *IdempotencyGuard) CheckAndMark(ctx context.Context, messageID string) (bool, error) {
	if messageID == "" {
		return false, errors.New("message id is required")
	}
	key := g.store.IdempotencyKey(g.scope, messageID)
	set, err := g.store.SetNX(ctx, key, "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("set idempotency key: %w", err)
	}
	return !set, nil
}

// Delete clears the mark so a failed handler run can be redelivered.
func (g *IdempotencyGuard) Delete(ctx context.Context, messageID string) error {
	if messageID == "" {
		return errors.New("message id is required")
	}
	key := g.store.IdempotencyKey(g.scope, messageID)
	return g.store.Del(ctx, key)
}
