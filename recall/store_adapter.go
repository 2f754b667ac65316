package recall

import (
	"context"
	"fmt"
	"sync"

	"github.com/goccy/go-json"

	"github.com/rushteam/artrec/core"
)

// StoreInteractionAdapter 基于 core.Store 的交互数据适配器（MemoryStore / RedisStore 均可）。
// 实现 core.InteractionStore 与 core.InteractionWriter。
//
// Key 约定：
//   - 交互日志：{KeyPrefix}:interactions，JSON 数组，按追加顺序
//   - 文章表：  {KeyPrefix}:articles，JSON 格式的 core.Corpus
//   - 热门榜单：{KeyPrefix}:popular，JSON 文章 ID 数组，每次写入后重新发布（供 Hot 读取）
//
// 追加是“读-改-写”，同一进程内由互斥锁串行化；多进程写同一个 key 需要外部协调。
type StoreInteractionAdapter struct {
	store core.Store

	KeyPrefix string

	mu sync.Mutex
}

// NewStoreInteractionAdapter 创建适配器，keyPrefix 为空时使用 "artrec"。
func NewStoreInteractionAdapter(s core.Store, keyPrefix string) *StoreInteractionAdapter {
	if keyPrefix == "" {
		keyPrefix = "artrec"
	}
	return &StoreInteractionAdapter{store: s, KeyPrefix: keyPrefix}
}

func (a *StoreInteractionAdapter) Name() string {
	return "store_interaction_adapter(" + a.store.Name() + ")"
}

func (a *StoreInteractionAdapter) InteractionsKey() string { return a.KeyPrefix + ":interactions" }
func (a *StoreInteractionAdapter) ArticlesKey() string     { return a.KeyPrefix + ":articles" }
func (a *StoreInteractionAdapter) PopularKey() string      { return a.KeyPrefix + ":popular" }

// LoadInteractions 读取完整交互日志；key 不存在时返回空日志。
func (a *StoreInteractionAdapter) LoadInteractions(ctx context.Context) (core.InteractionLog, error) {
	data, err := a.store.Get(ctx, a.InteractionsKey())
	if err != nil {
		if core.IsStoreNotFound(err) {
			return core.InteractionLog{}, nil
		}
		return nil, err
	}
	var log core.InteractionLog
	if err := json.Unmarshal(data, &log); err != nil {
		return nil, core.NewInvalidInputError(core.ModuleStore, "decode %s: %v", a.InteractionsKey(), err)
	}
	return log, nil
}

// LoadArticles 读取文章表；没有写入过文章表时返回 ErrStoreNotSupported，由调用方从日志派生。
func (a *StoreInteractionAdapter) LoadArticles(ctx context.Context) (*core.Corpus, error) {
	data, err := a.store.Get(ctx, a.ArticlesKey())
	if err != nil {
		if core.IsStoreNotFound(err) {
			return nil, core.ErrStoreNotSupported
		}
		return nil, err
	}
	var corpus core.Corpus
	if err := json.Unmarshal(data, &corpus); err != nil {
		return nil, core.NewInvalidInputError(core.ModuleStore, "decode %s: %v", a.ArticlesKey(), err)
	}
	return &corpus, nil
}

// SaveArticles 覆盖写入文章表。
func (a *StoreInteractionAdapter) SaveArticles(ctx context.Context, corpus *core.Corpus) error {
	if corpus == nil {
		return core.NewInvalidInputError(core.ModuleStore, "corpus is nil")
	}
	data, err := json.Marshal(corpus)
	if err != nil {
		return err
	}
	return a.store.Set(ctx, a.ArticlesKey(), data)
}

// AppendInteractions 追加交互并重新发布热门榜单。
func (a *StoreInteractionAdapter) AppendInteractions(ctx context.Context, interactions ...core.Interaction) error {
	if len(interactions) == 0 {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	log, err := a.LoadInteractions(ctx)
	if err != nil {
		return err
	}
	log = append(log, interactions...)

	data, err := json.Marshal(log)
	if err != nil {
		return err
	}
	popular, err := json.Marshal(TopNArticleIDs(len(log), log))
	if err != nil {
		return err
	}
	if err := a.store.BatchSet(ctx, map[string][]byte{
		a.InteractionsKey(): data,
		a.PopularKey():      popular,
	}); err != nil {
		return fmt.Errorf("append interactions to %s: %w", a.store.Name(), err)
	}
	return nil
}

var (
	_ core.InteractionStore  = (*StoreInteractionAdapter)(nil)
	_ core.InteractionWriter = (*StoreInteractionAdapter)(nil)
)
