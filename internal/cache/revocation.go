package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedPrefix = "blacklist:"

// RevocationList records session token ids that were logged out before expiry.
// Without Redis nothing is recorded and no token is considered revoked.
type RevocationList struct {
	rdb *redis.Client
}

// NewRevocationList wraps rdb, which may be nil.
func NewRevocationList(rdb *redis.Client) *RevocationList {
	return &RevocationList{rdb: rdb}
}

// Revoke marks jti as revoked until the token would have expired anyway.
func (r *RevocationList) Revoke(ctx context.Context, jti string, until time.Time) error {
	if r == nil || r.rdb == nil || jti == "" {
		return nil
	}
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	return r.rdb.Set(ctx, revokedPrefix+jti, "1", ttl).Err()
}

// IsRevoked reports whether jti was revoked. Redis failures report false.
func (r *RevocationList) IsRevoked(ctx context.Context, jti string) bool {
	if r == nil || r.rdb == nil || jti == "" {
		return false
	}
	n, err := r.rdb.Exists(ctx, revokedPrefix+jti).Result()
	return err == nil && n > 0
}
