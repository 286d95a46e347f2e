package redisx

import (
	"context"
	"errors"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still holds our token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lease is a single-holder lock with a TTL. It keeps two replicas from running
// the same periodic job at once.
type Lease struct {
	rdb   goredis.UniversalClient
	key   string
	owner string
	ttl   time.Duration
}

func NewLease(rdb goredis.UniversalClient, key, owner string, ttl time.Duration) *Lease {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Lease{rdb: rdb, key: strings.TrimSpace(key), owner: strings.TrimSpace(owner), ttl: ttl}
}

// Acquire reports whether this owner now holds the lease. A nil client always
// acquires.
func (l *Lease) Acquire(ctx context.Context) (bool, error) {
	if l == nil || l.rdb == nil {
		return true, nil
	}
	if l.key == "" || l.owner == "" {
		return false, errors.New("lease key and owner are required")
	}
	return l.rdb.SetNX(ctx, l.key, l.owner, l.ttl).Result()
}

func (l *Lease) Release(ctx context.Context) error {
	if l == nil || l.rdb == nil {
		return nil
	}
	err := releaseScript.Run(ctx, l.rdb, []string{l.key}, l.owner).Err()
	if errors.Is(err, goredis.Nil) {
		return nil
	}
	return err
}
