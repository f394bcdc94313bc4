package cache

import (
	"context"
	"time"
)

const (
	// credentialCachePrefix is the Redis key prefix for verified credentials.
	credentialCachePrefix = "auth:cred:"
	// credentialCacheTTL bounds how long a verified credential digest is
	// trusted before the adaptive hash is recomputed.
	credentialCacheTTL = 5 * time.Minute
)

// GetVerifiedCredential returns the email cached for a credential digest, or
// "" on a miss. Redis errors are treated as misses so authentication degrades
// to a full verify instead of failing.
func (c *Cache) GetVerifiedCredential(ctx context.Context, digest string) string {
	email, err := c.client.Get(ctx, credentialCachePrefix+digest).Result()
	if err != nil {
		return ""
	}
	return email
}

// SetVerifiedCredential records that a credential digest was verified for the
// given email.
func (c *Cache) SetVerifiedCredential(ctx context.Context, digest, email string) error {
	return c.client.Set(ctx, credentialCachePrefix+digest, email, credentialCacheTTL).Err()
}

// DeleteVerifiedCredential drops a cached credential digest. Called when a
// password changes so the old pair stops authenticating promptly.
func (c *Cache) DeleteVerifiedCredential(ctx context.Context, digest string) error {
	return c.client.Del(ctx, credentialCachePrefix+digest).Err()
}
