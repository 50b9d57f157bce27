// Package balancecache caches account snapshots in redis. The transfer engine
// never reads through it; it only invalidates, post-commit, so read paths can
// stay cheap without ever feeding a stale version back into the engine.
package balancecache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/go-arno/peerbank/internal/domain"
)

const defaultTTL = 5 * time.Minute

// Cache wraps a redis client for account snapshot caching.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New returns a Cache with the default TTL.
func New(client *redis.Client) *Cache {
	return &Cache{
		client: client,
		ttl:    defaultTTL,
	}
}

func key(accountID int32) string {
	return fmt.Sprintf("account:%d", accountID)
}

// Get returns the cached account and whether it was found.
func (c *Cache) Get(ctx context.Context, accountID int32) (domain.Account, bool, error) {
	val, err := c.client.Get(ctx, key(accountID)).Result()
	if errors.Is(err, redis.Nil) {
		return domain.Account{}, false, nil
	}

	if err != nil {
		return domain.Account{}, false, fmt.Errorf("failed to get cached account: %w", err)
	}

	var a domain.Account
	if err := json.Unmarshal([]byte(val), &a); err != nil {
		return domain.Account{}, false, fmt.Errorf("failed to unmarshal cached account: %w", err)
	}

	return a, true, nil
}

// Set stores the account snapshot.
func (c *Cache) Set(ctx context.Context, account domain.Account) error {
	bytes, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("failed to marshal account: %w", err)
	}

	return c.client.Set(ctx, key(account.ID), bytes, c.ttl).Err()
}

// Invalidate drops the cached snapshot for the account.
func (c *Cache) Invalidate(ctx context.Context, accountID int32) error {
	return c.client.Del(ctx, key(accountID)).Err()
}
