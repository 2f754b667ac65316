package service

import (
	"context"
	"fmt"
	"io"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/rushteam/artrec/config"
	_ "github.com/rushteam/artrec/config/builders"
	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/pipeline"
	"github.com/rushteam/artrec/pkg/logging"
	"github.com/rushteam/artrec/recall"
	"github.com/rushteam/artrec/store"
)

// Stores 是按驱动打开的一组存储。
//   - Interactions：交互日志与文章表的数据源
//   - KV：热门榜单、黑名单等 KV 数据；SQL 驱动时为进程内 MemoryStore
type Stores struct {
	Interactions core.InteractionStore
	KV           core.Store

	closers []io.Closer
}

// Close 释放所有连接。
func (s *Stores) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// OpenStore 按 cfg.Driver 打开存储：memory / redis 上的 JSON 快照，或 postgres / sqlite 表。
func OpenStore(ctx context.Context, cfg config.StoreConfig, logger *zerolog.Logger) (*Stores, error) {
	switch cfg.Driver {
	case config.DriverMemory, "":
		kv := store.NewMemoryStore()
		return &Stores{
			Interactions: recall.NewStoreInteractionAdapter(kv, cfg.KeyPrefix),
			KV:           kv,
			closers:      []io.Closer{kv},
		}, nil

	case config.DriverRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.Addr, DB: cfg.DB})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
		}
		kv := store.NewRedisStoreWithClient(client, store.BreakerConfig{
			FailureThreshold: cfg.BreakerThreshold,
			Timeout:          cfg.BreakerTimeout,
		}, logger)
		return &Stores{
			Interactions: recall.NewStoreInteractionAdapter(kv, cfg.KeyPrefix),
			KV:           kv,
			closers:      []io.Closer{kv},
		}, nil

	case config.DriverPostgres, config.DriverSQLite:
		sqlStore, err := store.OpenSQLStore(cfg.Driver, cfg.DSN)
		if err != nil {
			return nil, err
		}
		if err := sqlStore.EnsureSchema(ctx); err != nil {
			_ = sqlStore.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		kv := store.NewMemoryStore()
		return &Stores{
			Interactions: sqlStore,
			KV:           kv,
			closers:      []io.Closer{sqlStore, kv},
		}, nil

	default:
		return nil, core.NewInvalidInputError(core.ModuleConfig, "unknown store driver %q", cfg.Driver)
	}
}

// Open 按引擎配置组装 Recommender：打开存储、加载 Pipeline（可选）、启动定时刷新（可选）。
// 调用方负责 Close。
func Open(ctx context.Context, cfg *config.EngineConfig) (*Recommender, error) {
	if cfg == nil {
		cfg = config.DefaultEngineConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logging.Init(cfg.Log)
	log := logging.With("service")

	stores, err := OpenStore(ctx, cfg.Store, &log)
	if err != nil {
		return nil, err
	}
	r := NewRecommender(stores.Interactions, cfg.Recall)
	r.Cache.Logger = &log
	r.Logger = &log
	r.closers = append(r.closers, stores)

	if cfg.Pipeline != "" {
		p, err := LoadPipeline(cfg.Pipeline, &config.Deps{
			Snapshots: r.Cache,
			Store:     stores.KV,
			KeyPrefix: cfg.Store.KeyPrefix,
			Recall:    cfg.Recall,
			Logger:    &log,
		})
		if err != nil {
			_ = r.Close()
			return nil, err
		}
		r.Pipeline = p
	}

	if cfg.Refresh.Schedule != "" {
		r.refresher = &recall.Refresher{
			Cache:    r.Cache,
			Schedule: cfg.Refresh.Schedule,
			Timeout:  cfg.Refresh.Timeout,
			Logger:   &log,
		}
		if err := r.refresher.Start(); err != nil {
			r.refresher = nil
			_ = r.Close()
			return nil, fmt.Errorf("start refresher: %w", err)
		}
	}

	log.Info().
		Str("store", stores.Interactions.Name()).
		Bool("pipeline", r.Pipeline != nil).
		Str("refresh", cfg.Refresh.Schedule).
		Msg("recommender ready")
	return r, nil
}

// LoadPipeline 读取 YAML 配置、校验 Node 类型并构建 Pipeline。
func LoadPipeline(path string, deps *config.Deps) (*pipeline.Pipeline, error) {
	pc, err := pipeline.LoadFromYAML(path)
	if err != nil {
		return nil, fmt.Errorf("load pipeline %s: %w", path, err)
	}
	if err := config.ValidatePipelineConfig(pc); err != nil {
		return nil, err
	}
	p, err := pc.BuildPipeline(config.NewFactory(deps))
	if err != nil {
		return nil, err
	}
	p.Logger = deps.Logger
	return p, nil
}
