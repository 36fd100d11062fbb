package broker

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// DefaultRedisKey holds the balance when no key is configured.
const DefaultRedisKey = "trader:balance"

// RedisLedger keeps the balance as a decimal string under a single key.
type RedisLedger struct {
	client redis.Cmdable
	key    string
}

func NewRedisLedger(client redis.Cmdable, key string) *RedisLedger {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisLedger{client: client, key: key}
}

// DialRedisLedger connects to addr and pings it before returning.
func DialRedisLedger(ctx context.Context, addr, key string) (*RedisLedger, *redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return NewRedisLedger(rdb, key), rdb, nil
}

func (l *RedisLedger) Load(ctx context.Context) (decimal.Decimal, bool, error) {
	s, err := l.client.Get(ctx, l.key).Result()
	if errors.Is(err, redis.Nil) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("redis get %s: %w", l.key, err)
	}
	bal, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("redis %s: bad balance %q: %w", l.key, s, err)
	}
	return bal, true, nil
}

func (l *RedisLedger) Store(ctx context.Context, balance decimal.Decimal) error {
	if err := l.client.Set(ctx, l.key, balance.String(), 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", l.key, err)
	}
	return nil
}
