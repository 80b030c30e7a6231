package quota

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/HSRyuuu/CareerBuilder-SVR-sub000/internal/model"
)

// cacheTTL はDBから再計算したカウンタをキャッシュする期間。
const cacheTTL = 24 * time.Hour

// UsageCounter は使用量カウンタのインターフェース。
type UsageCounter interface {
	// Count は基準時刻が属する期間の使用量を返す。
	Count(ctx context.Context, userID string, resourceType model.ResourceType, now time.Time) (int, error)

	// Increment は基準時刻が属する期間の使用量を1加算する。
	// キャッシュ障害は吸収されエラーにはならない（DBがground truthのため）。
	Increment(ctx context.Context, userID string, resourceType model.ResourceType, now time.Time) error
}

// CounterCache はカウンタの高速パス（キャッシュ）のインターフェース。
type CounterCache interface {
	// Get はキーのカウンタ値を返す。キーが存在しない場合はok=falseを返す。
	Get(ctx context.Context, key string) (int, bool, error)

	// Set はキーにカウンタ値をTTL付きで書き込む。
	Set(ctx context.Context, key string, value int, ttl time.Duration) error

	// Increment はキーのカウンタをアトミックに1加算し、加算後の値を返す。
	// 加算結果が1（そのキーへの最初の書き込み）の場合はTTLを設定する。
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// UsageSource は使用量のground truth（DB算出）のインターフェース。
type UsageSource interface {
	// CountSuccessInPeriod は期間[start, end)内のsuccess終端リクエスト件数を返す。
	CountSuccessInPeriod(ctx context.Context, userID string, resourceType model.ResourceType, start, end time.Time) (int, error)
}

// RedisCounterCache はRedisを使用したカウンタキャッシュ。
// 値は文字列エンコードされた整数としてTTL付きで保持される。
type RedisCounterCache struct {
	client *redis.Client
}

// NewRedisCounterCache はRedisCounterCacheを生成する。
func NewRedisCounterCache(client *redis.Client) *RedisCounterCache {
	return &RedisCounterCache{client: client}
}

// Get はキーのカウンタ値を返す。キーが存在しない場合はok=falseを返す。
func (c *RedisCounterCache) Get(ctx context.Context, key string) (int, bool, error) {
	v, err := c.client.Get(ctx, key).Int()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}

// Set はキーにカウンタ値をTTL付きで書き込む。
func (c *RedisCounterCache) Set(ctx context.Context, key string, value int, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

// Increment はINCRでカウンタをアトミックに1加算する。
// 加算結果が1の場合のみEXPIREでTTLを設定する。
func (c *RedisCounterCache) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	n, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if n == 1 {
		if err := c.client.Expire(ctx, key, ttl).Err(); err != nil {
			return n, err
		}
	}
	return n, nil
}

// Counter はキャッシュとDB算出を合成した使用量カウンタ。
// キャッシュミスまたはキャッシュ障害時はDB算出にフォールバックし、
// DB算出後はベストエフォートでキャッシュを再投入する。
// キャッシュ系の障害がこの型の外へ伝播することはない。
type Counter struct {
	cache  CounterCache
	source UsageSource
	logger *slog.Logger
}

// NewCounter はCounterを生成する。
func NewCounter(cache CounterCache, source UsageSource, logger *slog.Logger) *Counter {
	return &Counter{
		cache:  cache,
		source: source,
		logger: logger,
	}
}

// Count は基準時刻が属する期間の使用量を返す。
// キャッシュヒット時はその値を、ミスや障害時はDB算出値を返す。
func (c *Counter) Count(ctx context.Context, userID string, resourceType model.ResourceType, now time.Time) (int, error) {
	g := GranularityFor(resourceType)
	start, end := PeriodWindow(g, now)
	key := BuildKey(resourceType, g, start, userID)

	v, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn("使用量キャッシュの読み取りに失敗しました。DB算出にフォールバックします",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	} else if ok {
		return v, nil
	}

	count, err := c.source.CountSuccessInPeriod(ctx, userID, resourceType, start, end)
	if err != nil {
		return 0, err
	}

	// ベストエフォートのキャッシュ再投入。失敗してもCount自体は成功とする
	if err := c.cache.Set(ctx, key, count, cacheTTL); err != nil {
		c.logger.Warn("使用量キャッシュの再投入に失敗しました",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}

	return count, nil
}

// Increment は基準時刻が属する期間のキャッシュカウンタを1加算する。
// キャッシュ障害はログに記録して吸収する。DBがground truthであり、
// 次回のCountでDB算出値が使用されるため整合性は失われない。
func (c *Counter) Increment(ctx context.Context, userID string, resourceType model.ResourceType, now time.Time) error {
	g := GranularityFor(resourceType)
	start, _ := PeriodWindow(g, now)
	key := BuildKey(resourceType, g, start, userID)

	if _, err := c.cache.Increment(ctx, key, cacheTTL); err != nil {
		c.logger.Warn("使用量カウンタの加算に失敗しました",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}

	return nil
}

// compile-time interface check
var _ UsageCounter = (*Counter)(nil)
var _ CounterCache = (*RedisCounterCache)(nil)
