// Package redis implements repository.TokenDenylist on Redis so that revoked
// session tokens stay revoked across restarts and across server replicas.
package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/aryan2621/Npmmer/internal/repository"
)

const keyPrefix = "npmmer:revoked:"

var _ repository.TokenDenylist = (*Denylist)(nil)

// Denylist stores one key per revoked token ID. Each key carries a TTL equal to
// the token's remaining lifetime, so Redis drops it once the token would have
// been rejected as expired anyway.
type Denylist struct {
	client *goredis.Client
}

// Connect parses a redis:// URL, opens a client and verifies it with PING.
func Connect(ctx context.Context, url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: parsing url: %w", err)
	}
	client := goredis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return client, nil
}

// NewDenylist wraps an existing client. The caller owns the client's lifetime.
func NewDenylist(client *goredis.Client) *Denylist {
	return &Denylist{client: client}
}

// Revoke marks tokenID as revoked until expiresAt. Tokens that have already
// expired are not stored.
func (d *Denylist) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := d.client.Set(ctx, keyPrefix+tokenID, 1, ttl).Err(); err != nil {
		return fmt.Errorf("redis: revoking token %s: %w", tokenID, err)
	}
	return nil
}

// IsRevoked reports whether tokenID is on the denylist.
func (d *Denylist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := d.client.Exists(ctx, keyPrefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("redis: checking token %s: %w", tokenID, err)
	}
	return n > 0, nil
}
