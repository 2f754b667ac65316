package core

import "context"

// InteractionStore 是交互日志的数据源（Interaction Store Adapter）。
//
// 约定：
//   - LoadInteractions 返回的行序必须稳定（同一份数据多次读取顺序一致），
//     标题“首次出现优先”依赖该顺序
//   - 不要求去重，矩阵构建自行去重
//   - LoadArticles 可返回 ErrStoreNotSupported，此时文章表由交互日志派生
//
// 实现：
//   - recall.StoreInteractionAdapter（基于 core.Store，JSON 快照）
//   - store.SQLStore（postgres / sqlite）
type InteractionStore interface {
	Name() string
	LoadInteractions(ctx context.Context) (InteractionLog, error)
	LoadArticles(ctx context.Context) (*Corpus, error)
}

// InteractionWriter 是可写的交互数据源。
type InteractionWriter interface {
	AppendInteractions(ctx context.Context, interactions ...Interaction) error
}
