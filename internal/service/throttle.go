package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const alertKeyPrefix = "logsink:alert:"

// AlertThrottle decides whether an alert for key may fire now. occurrences
// counts this detection plus those suppressed since the last alert.
type AlertThrottle interface {
	Allow(ctx context.Context, key string, window time.Duration) (allowed bool, occurrences int64, err error)
}

// RedisThrottle allows one alert per key per window using SET NX EX.
// Suppressed detections are counted in a sibling key and reported with the
// next alert.
type RedisThrottle struct {
	client redis.UniversalClient
}

func NewRedisThrottle(client redis.UniversalClient) *RedisThrottle {
	return &RedisThrottle{client: client}
}

func (t *RedisThrottle) Allow(ctx context.Context, key string, window time.Duration) (bool, int64, error) {
	if window <= 0 {
		return true, 1, nil
	}

	gate := alertKeyPrefix + key
	counter := gate + ":suppressed"

	ok, err := t.client.SetNX(ctx, gate, time.Now().UTC().Format(time.RFC3339), window).Result()
	if err != nil {
		return false, 0, err
	}

	if !ok {
		pipe := t.client.TxPipeline()
		pipe.Incr(ctx, counter)
		pipe.Expire(ctx, counter, 2*window)
		_, err := pipe.Exec(ctx)
		return false, 0, err
	}

	suppressed, err := t.client.GetDel(ctx, counter).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return true, 1, err
	}
	return true, suppressed + 1, nil
}

// AlertKey groups detections of the same failing endpoint.
func AlertKey(namespace, method, path string) string {
	if namespace == "" {
		namespace = "-"
	}
	// query strings would defeat grouping
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	return namespace + ":" + method + ":" + path
}
