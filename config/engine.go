package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/feature"
	"github.com/rushteam/artrec/pkg/logging"
)

// EnvPrefix 是环境变量前缀：ARTREC_STORE_DRIVER -> store.driver。
const EnvPrefix = "ARTREC_"

// 存储驱动。
const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// EngineConfig 是推荐引擎的进程级配置。
// 优先级：环境变量 > 配置文件 > 默认值；dotenv 文件在最前面加载进环境变量。
type EngineConfig struct {
	Log      logging.Config `koanf:"log"`
	Store    StoreConfig    `koanf:"store"`
	Recall   RecallConfig   `koanf:"recall"`
	Refresh  RefreshConfig  `koanf:"refresh"`
	Pipeline string         `koanf:"pipeline"` // pipeline YAML 路径，可为空
}

// StoreConfig 描述交互数据存储。
type StoreConfig struct {
	Driver    string `koanf:"driver" validate:"required,oneof=memory redis postgres sqlite"`
	DSN       string `koanf:"dsn" validate:"required_if=Driver postgres,required_if=Driver sqlite"`
	Addr      string `koanf:"addr" validate:"required_if=Driver redis"`
	DB        int    `koanf:"db" validate:"gte=0"`
	KeyPrefix string `koanf:"key_prefix"` // KV 存储的 key 前缀

	BreakerThreshold uint32        `koanf:"breaker_threshold"`
	BreakerTimeout   time.Duration `koanf:"breaker_timeout" validate:"gte=0"`
}

// RecallConfig 是召回默认参数。
type RecallConfig struct {
	TopK               int      `koanf:"top_k" validate:"gt=0"`
	VotePoolFactor     int      `koanf:"vote_pool_factor" validate:"gt=0"`
	WeightedPoolFactor int      `koanf:"weighted_pool_factor" validate:"gt=0"`
	FactorRank         int      `koanf:"factor_rank" validate:"gt=0"`
	MaxFeatures        int      `koanf:"max_features" validate:"gte=0"`
	TextColumns        []string `koanf:"text_columns"`
}

// TextOptions 转换为文本特征选项。
func (c RecallConfig) TextOptions() feature.Options {
	return feature.Options{Columns: c.TextColumns, MaxFeatures: c.MaxFeatures}
}

// RefreshConfig 是快照定时刷新配置，Schedule 为空时不启动。
type RefreshConfig struct {
	Schedule string        `koanf:"schedule"`
	Timeout  time.Duration `koanf:"timeout" validate:"required_with=Schedule,gte=0"`
}

// DefaultEngineConfig 返回默认配置。
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		Log: logging.Config{Level: "info", Format: "json", Timestamp: true},
		Store: StoreConfig{
			Driver:           DriverMemory,
			KeyPrefix:        "artrec",
			BreakerThreshold: 5,
			BreakerTimeout:   30 * time.Second,
		},
		Recall: RecallConfig{
			TopK:               core.Defaults.DefaultTopKItems(),
			VotePoolFactor:     core.Defaults.DefaultVotePoolFactor(),
			WeightedPoolFactor: core.Defaults.DefaultWeightedPoolFactor(),
			FactorRank:         core.Defaults.DefaultFactorRank(),
			MaxFeatures:        core.Defaults.DefaultMaxFeatures(),
			TextColumns:        append([]string(nil), core.DefaultTextColumns...),
		},
		Refresh: RefreshConfig{Timeout: time.Minute},
	}
}

// LoadOptions 控制配置来源。
type LoadOptions struct {
	// File 是 YAML 配置文件路径，为空时不读文件
	File string

	// DotEnv 是 dotenv 文件路径，为空或不存在时跳过
	DotEnv string
}

// LoadEngineConfig 依次加载默认值、配置文件、环境变量，并校验。
func LoadEngineConfig(opts LoadOptions) (*EngineConfig, error) {
	if opts.DotEnv != "" {
		// 已存在的环境变量不会被覆盖
		if err := godotenv.Load(opts.DotEnv); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load dotenv %s: %w", opts.DotEnv, err)
		}
	}

	k := koanf.New(".")
	if err := k.Load(structs.Provider(DefaultEngineConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}
	if opts.File != "" {
		if err := k.Load(file.Provider(opts.File), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", opts.File, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}
	if err := splitSliceFields(k); err != nil {
		return nil, err
	}

	cfg := &EngineConfig{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envKey 把 ARTREC_RECALL_VOTE_POOL_FACTOR 转换为 recall.vote_pool_factor：
// 第一段是配置分组，其余部分原样保留下划线。
func envKey(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	section, rest, ok := strings.Cut(key, "_")
	if !ok {
		return key
	}
	return section + "." + rest
}

var sliceFields = []string{"recall.text_columns"}

// splitSliceFields 把环境变量中的逗号分隔字符串转为切片。
func splitSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceFields {
		s, ok := k.Get(path).(string)
		if !ok || s == "" {
			continue
		}
		var parts []string
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("set %s: %w", path, err)
		}
	}
	return nil
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// getValidator 返回单例校验器，字段名使用 koanf 标签（store.dsn 而不是 Store.DSN）。
func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("koanf"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validate 拒绝无法工作的配置，错误为 INVALID_INPUT。
func (c *EngineConfig) Validate() error {
	err := getValidator().Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return core.NewInvalidInputError(core.ModuleConfig, "%v", err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := strings.TrimPrefix(fe.Namespace(), "EngineConfig.")
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: %s=%s (got %v)", field, fe.Tag(), fe.Param(), fe.Value()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: %s (got %v)", field, fe.Tag(), fe.Value()))
		}
	}
	return core.NewInvalidInputError(core.ModuleConfig, "%s", strings.Join(msgs, "; "))
}
