package access

import (
	"context"
	"encoding/json"
	"time"

	"grantvault/pkg/logger"

	"github.com/redis/go-redis/v9"
)

const membershipCacheTTL = 60 * time.Second

// CachedDirectory is a read-through Redis cache in front of another
// Directory. Cache failures are logged and fall through to the source; the
// resolver must keep working when Redis is down.
type CachedDirectory struct {
	src Directory
	rdb *redis.Client
	ttl time.Duration
}

func NewCachedDirectory(src Directory, rdb *redis.Client) *CachedDirectory {
	return &CachedDirectory{src: src, rdb: rdb, ttl: membershipCacheTTL}
}

func cacheKey(userID string) string { return "memberships:" + userID }

func (d *CachedDirectory) Memberships(ctx context.Context, userID string) ([]Membership, error) {
	if raw, err := d.rdb.Get(ctx, cacheKey(userID)).Bytes(); err == nil {
		var out []Membership
		if err := json.Unmarshal(raw, &out); err == nil {
			return out, nil
		}
	} else if err != redis.Nil {
		logger.From(ctx).WarnContext(ctx, "membership cache read failed", "err", err)
	}

	out, err := d.src.Memberships(ctx, userID)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(out); err == nil {
		if err := d.rdb.Set(ctx, cacheKey(userID), raw, d.ttl).Err(); err != nil {
			logger.From(ctx).WarnContext(ctx, "membership cache write failed", "err", err)
		}
	}
	return out, nil
}

// Invalidate drops a user's cached memberships. Role changes are rare;
// callers outside this core invoke it when the directory is edited.
func (d *CachedDirectory) Invalidate(ctx context.Context, userID string) {
	if err := d.rdb.Del(ctx, cacheKey(userID)).Err(); err != nil {
		logger.From(ctx).WarnContext(ctx, "membership cache invalidate failed", "err", err)
	}
}
