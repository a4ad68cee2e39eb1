package redisx

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RateResult struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Duration
}

// Limiter is a fixed window counter shared by every API instance.
type Limiter struct {
	RDB    *redis.Client
	Limit  int
	Window time.Duration
	Now    func() time.Time
}

func NewLimiter(rdb *redis.Client, limit int, window time.Duration) *Limiter {
	return &Limiter{RDB: rdb, Limit: limit, Window: window, Now: time.Now}
}

func (l *Limiter) Allow(ctx context.Context, client string) (RateResult, error) {
	now := l.Now()
	start := now.Truncate(l.Window)
	key := fmt.Sprintf(KeyRateLimit, client, start.Unix())

	var incr *redis.IntCmd
	_, err := l.RDB.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, key)
		p.Expire(ctx, key, l.Window)
		return nil
	})
	if err != nil {
		return RateResult{}, err
	}

	n := int(incr.Val())
	remaining := l.Limit - n
	if remaining < 0 {
		remaining = 0
	}
	return RateResult{
		Allowed:   n <= l.Limit,
		Limit:     l.Limit,
		Remaining: remaining,
		Reset:     start.Add(l.Window).Sub(now),
	}, nil
}
