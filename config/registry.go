package config

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/pipeline"
	"github.com/rushteam/artrec/recall"
)

// 使用配置驱动时，需在 main 或入口处 import _ "github.com/rushteam/artrec/config/builders"
// 以触发内置 Node（recall.fanout、recall.usercf、filter、rerank.topn 等）的 init 注册。

// Deps 是 Node 构建时可注入的运行期依赖。
type Deps struct {
	// Snapshots 为召回、过滤、标题节点提供数据快照
	Snapshots recall.SnapshotProvider

	// Store 为热门榜单、黑名单、用户屏蔽提供 KV 存储（可选）
	Store core.Store

	// KeyPrefix 是 Store 中数据 key 的前缀，默认 "artrec"
	KeyPrefix string

	// Recall 是召回默认参数，零值字段使用 core.Defaults
	Recall RecallConfig

	Logger *zerolog.Logger
}

// NodeBuilder 根据依赖与 config 构建 Node。
// 各组件在 init 中调用 Register(typeName, builder) 即可被配置驱动。
type NodeBuilder func(deps *Deps, cfg map[string]any) (pipeline.Node, error)

var (
	defaultBuilders   = make(map[string]NodeBuilder)
	defaultBuildersMu sync.RWMutex
)

// Register 注册一种 Node 的构建逻辑，同名覆盖。
// 建议在各组件的 init 中调用，例如：func init() { config.Register("recall.hot", BuildHotNode) }
func Register(typeName string, builder NodeBuilder) {
	if typeName == "" || builder == nil {
		return
	}
	defaultBuildersMu.Lock()
	defer defaultBuildersMu.Unlock()
	defaultBuilders[typeName] = builder
}

// Lookup 返回已注册的构建器。
func Lookup(typeName string) (NodeBuilder, bool) {
	defaultBuildersMu.RLock()
	defer defaultBuildersMu.RUnlock()
	b, ok := defaultBuilders[typeName]
	return b, ok
}

// SupportedTypes 返回当前已注册的 Node 类型列表（排序），用于错误提示与校验。
func SupportedTypes() []string {
	defaultBuildersMu.RLock()
	defer defaultBuildersMu.RUnlock()
	types := make([]string, 0, len(defaultBuilders))
	for t := range defaultBuilders {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// NewFactory 返回绑定 deps 的 NodeFactory，包含所有通过 Register 注册的 Node 类型。
func NewFactory(deps *Deps) *pipeline.NodeFactory {
	if deps == nil {
		deps = &Deps{}
	}
	defaultBuildersMu.RLock()
	defer defaultBuildersMu.RUnlock()
	f := pipeline.NewNodeFactory()
	for typeName, builder := range defaultBuilders {
		f.Register(typeName, func(cfg map[string]any) (pipeline.Node, error) {
			return builder(deps, cfg)
		})
	}
	return f
}

// ValidatePipelineConfig 校验 pipeline 配置中所有 node 类型均已注册；若有未支持类型则返回包含已支持列表的错误。
func ValidatePipelineConfig(cfg *pipeline.Config) error {
	if cfg == nil {
		return nil
	}
	for i, nc := range cfg.Pipeline.Nodes {
		if nc.Type == "" {
			return core.NewInvalidInputError(core.ModuleConfig, "node #%d has no type", i)
		}
		if _, ok := Lookup(nc.Type); !ok {
			return fmt.Errorf("unsupported node type %q (supported: %v): %w",
				nc.Type, SupportedTypes(), core.NewInvalidInputError(core.ModuleConfig, "unknown node type"))
		}
	}
	return nil
}
