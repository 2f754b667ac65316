package recall

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/feature"
	"github.com/rushteam/artrec/matrix"
	"github.com/rushteam/artrec/pkg/logging"
	"github.com/rushteam/artrec/pkg/metrics"
	"github.com/rushteam/artrec/similarity"
)

// Snapshot 是某一版本交互数据的只读快照。
// 交互矩阵在创建时构建；用户相似度、文本特征、分解结果在首次使用时构建并缓存。
// 同一输入的快照产生的结果完全一致，因此缓存层可以随意增减。
type Snapshot struct {
	Version uint64
	Log     core.InteractionLog
	Corpus  *core.Corpus
	Matrix  *matrix.InteractionMatrix
	Titles  *core.TitleIndex

	textOptions feature.Options

	byUser   map[int64][]int64
	counts   map[int64]int
	articles map[int64]int

	simOnce sync.Once
	sims    *similarity.Matrix

	textOnce   sync.Once
	vectorizer *feature.Vectorizer
	weights    *feature.SparseMatrix
	textErr    error

	factorMu sync.Mutex
	factors  map[int]*Factorization
}

// NewSnapshot 从日志与（可选的）文章表构建快照。corpus 为 nil 时由日志派生。
// 文章表按 article_id 去重，首次出现者优先。
func NewSnapshot(version uint64, log core.InteractionLog, corpus *core.Corpus, textOptions feature.Options) (*Snapshot, error) {
	im, err := matrix.Build(log)
	if err != nil {
		return nil, err
	}
	if corpus == nil {
		corpus = core.CorpusFromLog(log)
	}
	corpus = corpus.Dedup()

	byUser := log.ArticlesByUser()
	counts := make(map[int64]int, len(byUser))
	for u, arts := range byUser {
		counts[u] = len(arts)
	}
	articles := make(map[int64]int, len(corpus.Articles))
	for i, a := range corpus.Articles {
		articles[a.ArticleID] = i
	}

	return &Snapshot{
		Version:     version,
		Log:         log,
		Corpus:      corpus,
		Matrix:      im,
		Titles:      titleIndex(log, corpus),
		textOptions: textOptions,
		byUser:      byUser,
		counts:      counts,
		articles:    articles,
		factors:     make(map[int]*Factorization),
	}, nil
}

// titleIndex 以日志中的标题为准，文章表只补充日志里没有的文章。
func titleIndex(log core.InteractionLog, corpus *core.Corpus) *core.TitleIndex {
	merged := make(core.InteractionLog, 0, len(log)+len(corpus.Articles))
	merged = append(merged, log...)
	for _, a := range corpus.Articles {
		merged = append(merged, core.Interaction{ArticleID: a.ArticleID, Title: a.Title})
	}
	return core.NewTitleIndex(merged)
}

// ArticlesByUser 返回每个用户的去重文章列表。
func (s *Snapshot) ArticlesByUser() map[int64][]int64 { return s.byUser }

// ArticleCounts 返回每个用户的不同文章数。
func (s *Snapshot) ArticleCounts() map[int64]int { return s.counts }

// Seen 判断用户是否交互过该文章。
func (s *Snapshot) Seen(userID, articleID int64) bool {
	return s.Matrix.At(userID, articleID) != 0
}

// CorpusIndex 返回文章在文章表中的行号。
func (s *Snapshot) CorpusIndex(articleID int64) (int, bool) {
	i, ok := s.articles[articleID]
	return i, ok
}

// UserSimilarity 返回用户-用户余弦相似度矩阵（首次调用时计算）。
func (s *Snapshot) UserSimilarity() *similarity.Matrix {
	s.simOnce.Do(func() {
		// 矩阵非空、键与行数一致，Cosine 不会失败
		s.sims, _ = similarity.Cosine(s.Matrix.Users(), s.Matrix.Matrix())
	})
	return s.sims
}

// TextFeatures 返回文章表的 TF-IDF（首次调用时构建）。
func (s *Snapshot) TextFeatures() (*feature.Vectorizer, *feature.SparseMatrix, error) {
	s.textOnce.Do(func() {
		s.vectorizer, s.weights, s.textErr = feature.BuildTextFeatures(s.Corpus, s.textOptions)
	})
	return s.vectorizer, s.weights, s.textErr
}

// Factorization 返回秩为 k 的截断 SVD（按请求的 k 缓存）。
func (s *Snapshot) Factorization(k int) (*Factorization, error) {
	s.factorMu.Lock()
	defer s.factorMu.Unlock()
	if f, ok := s.factors[k]; ok {
		return f, nil
	}
	f, err := FitFactorization(s.Matrix, k)
	if err != nil {
		return nil, err
	}
	s.factors[k] = f
	return f, nil
}

// SnapshotProvider 为召回源提供当前快照。
type SnapshotProvider interface {
	Snapshot(ctx context.Context) (*Snapshot, error)
}

// StaticSnapshot 把固定快照包装为 SnapshotProvider，常用于测试与离线计算。
type StaticSnapshot struct {
	S *Snapshot
}

func (p StaticSnapshot) Snapshot(context.Context) (*Snapshot, error) {
	if p.S == nil {
		return nil, core.NewDomainError(core.ModuleInteraction, core.ErrorCodeNotFound, "no snapshot")
	}
	return p.S, nil
}

// SnapshotCache 缓存最近一次快照，写入时失效（invalidate-on-write）。
//
//   - 并发的首次加载通过 singleflight 合并为一次
//   - Record 写入后、Invalidate 调用后，下一次读取会重新加载
//   - 快照本身不可变，旧快照在被持有期间依然可用
type SnapshotCache struct {
	Store       core.InteractionStore
	TextOptions feature.Options
	Logger      *zerolog.Logger

	version atomic.Uint64
	mu      sync.RWMutex
	current *Snapshot
	group   singleflight.Group
}

// NewSnapshotCache 创建快照缓存。
func NewSnapshotCache(store core.InteractionStore, textOptions feature.Options) *SnapshotCache {
	return &SnapshotCache{Store: store, TextOptions: textOptions}
}

// Snapshot 返回当前版本的快照，必要时重新加载。
func (c *SnapshotCache) Snapshot(ctx context.Context) (*Snapshot, error) {
	want := c.version.Load()
	c.mu.RLock()
	cur := c.current
	c.mu.RUnlock()
	if cur != nil && cur.Version == want {
		return cur, nil
	}

	v, err, _ := c.group.Do(fmt.Sprintf("v%d", want), func() (any, error) {
		return c.load(ctx, want)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

func (c *SnapshotCache) load(ctx context.Context, version uint64) (*Snapshot, error) {
	if c.Store == nil {
		return nil, core.NewInvalidInputError(core.ModuleInteraction, "snapshot cache has no interaction store")
	}
	log := logging.Or(c.Logger, "recall.snapshot")
	start := time.Now()

	interactions, err := c.Store.LoadInteractions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load interactions from %s: %w", c.Store.Name(), err)
	}
	corpus, err := c.Store.LoadArticles(ctx)
	if err != nil && !core.IsStoreNotSupported(err) {
		return nil, fmt.Errorf("load articles from %s: %w", c.Store.Name(), err)
	}

	snap, err := NewSnapshot(version, interactions, corpus, c.TextOptions)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.current == nil || c.current.Version <= version {
		c.current = snap
	}
	c.mu.Unlock()

	metrics.SnapshotBuildDuration.Observe(time.Since(start).Seconds())
	metrics.SnapshotVersion.Set(float64(version))
	users, articles := snap.Matrix.Dims()
	log.Debug().
		Uint64("version", version).
		Int("interactions", len(interactions)).
		Int("users", users).
		Int("articles", articles).
		Dur("took", time.Since(start)).
		Msg("snapshot rebuilt")
	return snap, nil
}

// Invalidate 使当前快照失效，下一次读取时重新加载。
func (c *SnapshotCache) Invalidate() {
	c.version.Add(1)
	metrics.SnapshotInvalidations.Inc()
}

// Refresh 失效并立即重新加载。
func (c *SnapshotCache) Refresh(ctx context.Context) (*Snapshot, error) {
	c.Invalidate()
	return c.Snapshot(ctx)
}

// Record 通过存储写入交互并使快照失效。存储不可写时返回 NOT_SUPPORTED。
func (c *SnapshotCache) Record(ctx context.Context, interactions ...core.Interaction) error {
	w, ok := c.Store.(core.InteractionWriter)
	if !ok {
		return core.ErrStoreNotSupported
	}
	if len(interactions) == 0 {
		return nil
	}
	if err := w.AppendInteractions(ctx, interactions...); err != nil {
		return err
	}
	c.Invalidate()
	return nil
}

var _ SnapshotProvider = (*SnapshotCache)(nil)
var _ SnapshotProvider = StaticSnapshot{}
