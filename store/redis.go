package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/pkg/logging"
	"github.com/rushteam/artrec/pkg/metrics"
)

// BreakerConfig 是 RedisStore 熔断器配置，零值字段使用默认值。
type BreakerConfig struct {
	// Name 用于日志与指标，默认 "redis"
	Name string

	// FailureThreshold 连续失败多少次后熔断，默认 5
	FailureThreshold uint32

	// Timeout 熔断打开后多久进入半开状态，默认 30s
	Timeout time.Duration

	// MaxRequests 半开状态允许的探测请求数，默认 1
	MaxRequests uint32
}

func (c BreakerConfig) withDefaults() BreakerConfig {
	if c.Name == "" {
		c.Name = "redis"
	}
	if c.FailureThreshold == 0 {
		c.FailureThreshold = 5
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxRequests == 0 {
		c.MaxRequests = 1
	}
	return c
}

// RedisStore 是 Redis 实现的 KeyValueStore。
// 所有命令都经过熔断器：连续失败达到阈值后直接返回 core.ErrStoreUnavailable，
// 不再把请求压到已经不可用的 Redis 上。key 不存在（redis.Nil）不计为失败。
type RedisStore struct {
	client *redis.Client
	cb     *gobreaker.CircuitBreaker[any]
	name   string
}

// NewRedisStore 连接 Redis 并 Ping 一次，连接失败时返回错误。
func NewRedisStore(addr string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return NewRedisStoreWithClient(client, BreakerConfig{}, nil), nil
}

// NewRedisStoreWithClient 使用已有客户端创建 RedisStore，不做连通性检查。
func NewRedisStoreWithClient(client *redis.Client, cfg BreakerConfig, logger *zerolog.Logger) *RedisStore {
	cfg = cfg.withDefaults()
	log := logging.Or(logger, "store.redis")

	metrics.CircuitBreakerState.WithLabelValues(cfg.Name).Set(0)
	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, redis.Nil)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
		},
	})
	return &RedisStore{client: client, cb: cb, name: cfg.Name}
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

func (r *RedisStore) Name() string { return "redis" }

// BreakerState 返回熔断器当前状态。
func (r *RedisStore) BreakerState() gobreaker.State { return r.cb.State() }

// exec 通过熔断器执行命令，并把 redis.Nil / 熔断错误翻译为 core 的存储错误。
func (r *RedisStore) exec(fn func() (any, error)) (any, error) {
	v, err := r.cb.Execute(fn)
	switch {
	case err == nil:
		return v, nil
	case errors.Is(err, redis.Nil):
		return nil, core.ErrStoreNotFound
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return nil, fmt.Errorf("%s: %v: %w", r.name, err, core.ErrStoreUnavailable)
	default:
		return nil, err
	}
}

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := r.exec(func() (any, error) {
		return r.client.Get(ctx, key).Bytes()
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func ttlDuration(ttl []int) time.Duration {
	if len(ttl) > 0 && ttl[0] > 0 {
		return time.Duration(ttl[0]) * time.Second
	}
	return 0
}

func (r *RedisStore) Set(ctx context.Context, key string, value []byte, ttl ...int) error {
	_, err := r.exec(func() (any, error) {
		return nil, r.client.Set(ctx, key, value, ttlDuration(ttl)).Err()
	})
	return err
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	_, err := r.exec(func() (any, error) {
		return nil, r.client.Del(ctx, key).Err()
	})
	return err
}

func (r *RedisStore) BatchGet(ctx context.Context, keys []string) (map[string][]byte, error) {
	if len(keys) == 0 {
		return make(map[string][]byte), nil
	}
	v, err := r.exec(func() (any, error) {
		return r.client.MGet(ctx, keys...).Result()
	})
	if err != nil {
		return nil, err
	}
	vals := v.([]any)

	result := make(map[string][]byte, len(keys))
	for i, k := range keys {
		if s, ok := vals[i].(string); ok {
			result[k] = []byte(s)
		}
	}
	return result, nil
}

// BatchSet 用 MULTI/EXEC 事务写入，读者不会看到写了一半的批次。
func (r *RedisStore) BatchSet(ctx context.Context, kvs map[string][]byte, ttl ...int) error {
	if len(kvs) == 0 {
		return nil
	}
	expiration := ttlDuration(ttl)
	_, err := r.exec(func() (any, error) {
		pipe := r.client.TxPipeline()
		for k, v := range kvs {
			pipe.Set(ctx, k, v, expiration)
		}
		_, err := pipe.Exec(ctx)
		return nil, err
	})
	return err
}

func (r *RedisStore) ZAdd(ctx context.Context, key string, score float64, member string) error {
	_, err := r.exec(func() (any, error) {
		return nil, r.client.ZAdd(ctx, key, redis.Z{Score: score, Member: member}).Err()
	})
	return err
}

// ZRange 按分数降序（ZREVRANGE）返回成员。
func (r *RedisStore) ZRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	v, err := r.exec(func() (any, error) {
		return r.client.ZRevRange(ctx, key, start, stop).Result()
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

func (r *RedisStore) ZScore(ctx context.Context, key string, member string) (float64, error) {
	v, err := r.exec(func() (any, error) {
		return r.client.ZScore(ctx, key, member).Result()
	})
	if err != nil {
		return 0, err
	}
	return v.(float64), nil
}

func (r *RedisStore) HGet(ctx context.Context, key, field string) ([]byte, error) {
	v, err := r.exec(func() (any, error) {
		return r.client.HGet(ctx, key, field).Bytes()
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (r *RedisStore) HSet(ctx context.Context, key, field string, value []byte) error {
	_, err := r.exec(func() (any, error) {
		return nil, r.client.HSet(ctx, key, field, value).Err()
	})
	return err
}

func (r *RedisStore) HGetAll(ctx context.Context, key string) (map[string][]byte, error) {
	v, err := r.exec(func() (any, error) {
		return r.client.HGetAll(ctx, key).Result()
	})
	if err != nil {
		return nil, err
	}
	vals := v.(map[string]string)
	result := make(map[string][]byte, len(vals))
	for k, s := range vals {
		result[k] = []byte(s)
	}
	return result, nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

var _ core.KeyValueStore = (*RedisStore)(nil)
