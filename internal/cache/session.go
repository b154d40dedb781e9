package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// revokedTokenPrefix is the Redis key prefix for logged-out session tokens.
const revokedTokenPrefix = "session:revoked:"

// RevokeToken marks a token ID as logged out until the token would have expired anyway.
func (c *Cache) RevokeToken(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := revocationTTL(expiresAt, c.now())
	if ttl <= 0 {
		return nil
	}

	if err := c.client.Set(ctx, revokedTokenPrefix+tokenID, "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IsTokenRevoked reports whether the token ID was logged out.
func (c *Cache) IsTokenRevoked(ctx context.Context, tokenID string) (bool, error) {
	err := c.client.Get(ctx, revokedTokenPrefix+tokenID).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check token revocation: %w", err)
	}
	return true, nil
}

// revocationTTL keeps the entry one second past expiry to cover clock skew.
func revocationTTL(expiresAt, now time.Time) time.Duration {
	remaining := expiresAt.Sub(now)
	if remaining <= 0 {
		return 0
	}
	return remaining + time.Second
}
