// Package service 是推荐引擎的门面：把快照缓存、各推荐策略、配置化 Pipeline 组合成按请求调用的接口。
package service

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rushteam/artrec/config"
	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/pipeline"
	"github.com/rushteam/artrec/pkg/logging"
	"github.com/rushteam/artrec/pkg/metrics"
	"github.com/rushteam/artrec/recall"
)

// 推荐策略名，用于结果与指标。
const (
	StrategyVote     = "usercf.vote"
	StrategyWeighted = "usercf.weighted"
	StrategyPopular  = "popular"
	StrategyContent  = "content"
	StrategyFactors  = "factors"
	StrategyPipeline = "pipeline"
)

// Recommendation 是一次推荐的结果，IDs 与 Titles 等长且一一对应。
type Recommendation struct {
	RequestID string
	Strategy  string
	IDs       []int64
	Titles    []string
}

// Recommender 持有快照缓存并对外提供各推荐策略。并发安全。
//
// 交互日志为空时所有推荐返回空结果而不是错误：这是“还没有数据”，不是调用方的错。
type Recommender struct {
	Cache *recall.SnapshotCache

	// Recall 是默认推荐参数
	Recall config.RecallConfig

	// Pipeline 是可选的配置化链路，供 Run 使用
	Pipeline *pipeline.Pipeline

	Logger *zerolog.Logger

	refresher *recall.Refresher
	closers   []io.Closer
}

// NewRecommender 基于交互数据源创建 Recommender。
func NewRecommender(interactions core.InteractionStore, rc config.RecallConfig) *Recommender {
	return &Recommender{
		Cache:  recall.NewSnapshotCache(interactions, rc.TextOptions()),
		Recall: rc,
	}
}

func (r *Recommender) begin(strategy string) (*Recommendation, zerolog.Logger) {
	rec := &Recommendation{RequestID: uuid.NewString(), Strategy: strategy}
	log := logging.Or(r.Logger, "service").With().Str("request_id", rec.RequestID).Logger()
	return rec, log
}

func (r *Recommender) finish(rec *Recommendation, log zerolog.Logger, start time.Time) {
	metrics.ObserveRequest(rec.Strategy, start)
	log.Debug().
		Str("strategy", rec.Strategy).
		Int("results", len(rec.IDs)).
		Dur("took", time.Since(start)).
		Msg("recommendation served")
}

// snapshot 返回当前快照；日志为空时返回 nil 快照且没有错误。
func (r *Recommender) snapshot(ctx context.Context) (*recall.Snapshot, error) {
	snap, err := r.Cache.Snapshot(ctx)
	if errors.Is(err, core.ErrEmptyLog) {
		return nil, nil
	}
	return snap, err
}

func (r *Recommender) userCF(weighted bool) *recall.UserBasedCF {
	return &recall.UserBasedCF{
		TopKItems:          r.Recall.TopK,
		VotePoolFactor:     r.Recall.VotePoolFactor,
		WeightedPoolFactor: r.Recall.WeightedPoolFactor,
		Weighted:           weighted,
	}
}

// ForUser 为用户推荐至多 m 篇未读文章。
// 协同过滤没有结果时（冷启动用户、邻居没有新文章）回落到用户未读的热门文章。
// m <= 0 时使用默认条数。
func (r *Recommender) ForUser(ctx context.Context, userID int64, m int, weighted bool) (*Recommendation, error) {
	start := time.Now()
	strategy := StrategyVote
	if weighted {
		strategy = StrategyWeighted
	}
	rec, log := r.begin(strategy)
	defer r.finish(rec, log, start)

	if m <= 0 {
		m = r.Recall.TopK
	}
	if m <= 0 {
		m = core.Defaults.DefaultTopKItems()
	}
	snap, err := r.snapshot(ctx)
	if err != nil || snap == nil {
		return rec, err
	}

	cf := r.userCF(weighted)
	cf.Snapshots = recall.StaticSnapshot{S: snap}
	items, err := cf.Recall(ctx, &core.RecommendContext{
		UserID:    userID,
		RequestID: rec.RequestID,
		Params:    map[string]any{core.ParamLimit: m},
	})
	if err != nil {
		return rec, err
	}
	rec.IDs = core.ItemIDs(items)

	if len(rec.IDs) == 0 {
		rec.Strategy = StrategyPopular
		metrics.Fallbacks.WithLabelValues(StrategyPopular).Inc()
		for _, a := range recall.RankArticlesByPopularity(snap.Log) {
			if len(rec.IDs) >= m {
				break
			}
			if snap.Seen(userID, a.ArticleID) {
				continue
			}
			rec.IDs = append(rec.IDs, a.ArticleID)
		}
	}
	rec.Titles = snap.Titles.Resolve(rec.IDs)
	return rec, nil
}

// SimilarArticles 返回与 articleID 文本最相似的 m 篇文章。未知文章返回空结果。
func (r *Recommender) SimilarArticles(ctx context.Context, articleID int64, m int) (*Recommendation, error) {
	start := time.Now()
	rec, log := r.begin(StrategyContent)
	defer r.finish(rec, log, start)

	snap, err := r.snapshot(ctx)
	if err != nil || snap == nil {
		return rec, err
	}
	if _, ok := snap.CorpusIndex(articleID); !ok || m <= 0 {
		return rec, nil
	}
	vectorizer, weights, err := snap.TextFeatures()
	if err != nil {
		return rec, err
	}
	ranked, err := recall.SimilarArticleIDs(articleID, snap.Corpus, m, vectorizer, weights)
	if err != nil {
		return rec, err
	}
	for _, s := range ranked {
		rec.IDs = append(rec.IDs, s.ArticleID)
	}
	rec.Titles = snap.Titles.Resolve(rec.IDs)
	return rec, nil
}

// SimilarByFactors 返回与 articleID 隐向量最相似的 m 篇文章，k 为请求的分解秩（<= 0 用默认值）。
func (r *Recommender) SimilarByFactors(ctx context.Context, articleID int64, m, k int) (*Recommendation, error) {
	start := time.Now()
	rec, log := r.begin(StrategyFactors)
	defer r.finish(rec, log, start)

	snap, err := r.snapshot(ctx)
	if err != nil || snap == nil {
		return rec, err
	}
	// 未知文章或 m <= 0 时不做分解
	if _, ok := snap.Matrix.ArticleIndex(articleID); !ok || m <= 0 {
		return rec, nil
	}
	if k <= 0 {
		k = r.Recall.FactorRank
	}
	if k <= 0 {
		k = core.Defaults.DefaultFactorRank()
	}
	f, err := snap.Factorization(k)
	if err != nil {
		return rec, err
	}
	rec.IDs = recall.RecommendSimilarByFactors(articleID, snap.Matrix, f.ItemFactors(), m)
	rec.Titles = snap.Titles.Resolve(rec.IDs)
	return rec, nil
}

// Popular 返回不同用户数最多的 n 篇文章。
func (r *Recommender) Popular(ctx context.Context, n int) (*Recommendation, error) {
	start := time.Now()
	rec, log := r.begin(StrategyPopular)
	defer r.finish(rec, log, start)

	snap, err := r.snapshot(ctx)
	if err != nil || snap == nil {
		return rec, err
	}
	rec.IDs = recall.TopNArticleIDs(n, snap.Log)
	rec.Titles = snap.Titles.Resolve(rec.IDs)
	return rec, nil
}

// UserArticles 返回用户交互过的文章（首次出现顺序）。
func (r *Recommender) UserArticles(ctx context.Context, userID int64) ([]int64, []string, error) {
	snap, err := r.snapshot(ctx)
	if err != nil || snap == nil {
		return nil, nil, err
	}
	ids := snap.Log.ArticlesOf(userID)
	return ids, snap.Titles.Resolve(ids), nil
}

// SimilarUsers 返回与用户最相似的 k 个用户。
func (r *Recommender) SimilarUsers(ctx context.Context, userID int64, k int) ([]int64, error) {
	snap, err := r.snapshot(ctx)
	if err != nil || snap == nil {
		return nil, err
	}
	return recall.FindSimilarUsers(userID, snap.Matrix, k), nil
}

// Record 写入新的交互，下一次请求会看到它们。
func (r *Recommender) Record(ctx context.Context, interactions ...core.Interaction) error {
	return r.Cache.Record(ctx, interactions...)
}

// Run 执行配置化 Pipeline。rctx.RequestID 为空时自动生成。
func (r *Recommender) Run(ctx context.Context, rctx *core.RecommendContext) (*Recommendation, error) {
	if r.Pipeline == nil {
		return nil, core.NewDomainError(core.ModuleConfig, core.ErrorCodeNotSupported, "no pipeline configured")
	}
	start := time.Now()
	rec, log := r.begin(StrategyPipeline)
	defer r.finish(rec, log, start)

	if rctx == nil {
		rctx = &core.RecommendContext{}
	}
	if rctx.RequestID == "" {
		rctx.RequestID = rec.RequestID
	} else {
		rec.RequestID = rctx.RequestID
	}

	items, err := r.Pipeline.Run(ctx, rctx, nil)
	if err != nil {
		if errors.Is(err, core.ErrEmptyLog) {
			return rec, nil
		}
		return rec, err
	}

	var titles *core.TitleIndex
	for _, it := range items {
		if it == nil {
			continue
		}
		title := it.Title
		if title == "" {
			// 链路末端没有 postprocess.titles 时在这里补齐
			if titles == nil {
				snap, err := r.snapshot(ctx)
				if err != nil {
					return rec, err
				}
				if snap != nil {
					titles = snap.Titles
				}
			}
			title = titles.Title(it.ID)
		}
		rec.IDs = append(rec.IDs, it.ID)
		rec.Titles = append(rec.Titles, title)
	}
	return rec, nil
}

// Close 停止定时刷新并释放存储连接。
func (r *Recommender) Close() error {
	if r.refresher != nil {
		r.refresher.Stop()
	}
	var errs []error
	for _, c := range r.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
