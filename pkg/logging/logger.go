// Package logging 提供基于 zerolog 的进程级日志。
//
//	logging.Init(logging.Config{Level: "debug", Format: "console"})
//	log := logging.With("recall.cache")
//	log.Info().Uint64("version", v).Msg("snapshot rebuilt")
//
// 各组件持有 *zerolog.Logger 字段，为 nil 时回落到 logging.With(组件名)。
package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config 是日志配置。
type Config struct {
	// Level: trace, debug, info, warn, error, disabled；默认 info
	Level string `koanf:"level"`

	// Format: json 或 console；默认 json
	Format string `koanf:"format"`

	// Caller 输出调用位置
	Caller bool `koanf:"caller"`

	// Timestamp 输出时间戳
	Timestamp bool `koanf:"timestamp"`

	// Output 默认 os.Stderr
	Output io.Writer `koanf:"-"`
}

// DefaultConfig 返回默认日志配置。
func DefaultConfig() Config {
	return Config{
		Level:     "info",
		Format:    "json",
		Timestamp: true,
		Output:    os.Stderr,
	}
}

var (
	log zerolog.Logger
	mu  sync.RWMutex
)

func init() {
	initLogger(DefaultConfig())
}

// Init 重新配置全局 logger，可重复调用。
func Init(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	initLogger(cfg)
}

func initLogger(cfg Config) {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	zerolog.TimeFieldFormat = time.RFC3339

	output := cfg.Output
	if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{Out: cfg.Output, TimeFormat: "15:04:05"}
	}

	l := zerolog.New(output).Level(ParseLevel(cfg.Level))
	if cfg.Timestamp {
		l = l.With().Timestamp().Logger()
	}
	if cfg.Caller {
		l = l.With().Caller().Logger()
	}
	log = l
}

// ParseLevel 解析日志级别，无法识别时为 info。
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// Logger 返回全局 logger 的副本。
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// With 返回带 component 字段的子 logger。
func With(component string) zerolog.Logger {
	return Logger().With().Str("component", component).Logger()
}

// Or 在 l 为 nil 时返回 With(component)，组件用它实现可选注入。
func Or(l *zerolog.Logger, component string) zerolog.Logger {
	if l == nil {
		return With(component)
	}
	return *l
}
