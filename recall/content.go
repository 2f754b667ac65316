package recall

import (
	"context"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/feature"
	"github.com/rushteam/artrec/pkg/utils"
	"github.com/rushteam/artrec/similarity"
)

// RecommendSimilarArticles 返回与 articleID 文本最相似的 m 篇文章标题，不含自身。
//
// corpus 先按 article_id 去重（首次出现优先）；vectorizer 与 weights 为 nil 时只用 title 列现建 TF-IDF，
// 传入时 weights 的行必须与去重后的 corpus.Articles 一一对应，
// 对同一个 corpus 调用 feature.BuildTextFeatures 得到的结果总是满足这一点。
// 未知文章返回空列表；corpus 结构不可用时返回 INVALID_INPUT。
func RecommendSimilarArticles(articleID int64, corpus *core.Corpus, m int, vectorizer *feature.Vectorizer, weights *feature.SparseMatrix) ([]string, error) {
	ranked, deduped, err := similarArticles(articleID, corpus, m, vectorizer, weights)
	if err != nil || len(ranked) == 0 {
		return nil, err
	}
	return deduped.TitleIndex().Resolve(articleIDs(ranked)), nil
}

// SimilarArticleIDs 同 RecommendSimilarArticles，返回文章 ID 与相似度。
func SimilarArticleIDs(articleID int64, corpus *core.Corpus, m int, vectorizer *feature.Vectorizer, weights *feature.SparseMatrix) ([]ScoredArticle, error) {
	ranked, _, err := similarArticles(articleID, corpus, m, vectorizer, weights)
	return ranked, err
}

func similarArticles(articleID int64, corpus *core.Corpus, m int, vectorizer *feature.Vectorizer, weights *feature.SparseMatrix) ([]ScoredArticle, *core.Corpus, error) {
	if corpus == nil || m <= 0 {
		return nil, nil, nil
	}
	deduped := corpus.Dedup()
	query := -1
	for i, a := range deduped.Articles {
		if a.ArticleID == articleID {
			query = i
			break
		}
	}
	if query < 0 {
		return nil, deduped, nil
	}

	if vectorizer == nil || weights == nil {
		var err error
		_, weights, err = feature.BuildTextFeatures(deduped, feature.Options{Columns: []string{core.ColumnTitle}})
		if err != nil {
			return nil, nil, err
		}
	}
	if weights.Len() != len(deduped.Articles) {
		return nil, nil, core.NewInvalidInputError(core.ModuleFeature,
			"weight matrix has %d rows for %d articles", weights.Len(), len(deduped.Articles))
	}
	return rankByRows(weights, query, deduped, m), deduped, nil
}

func rankByRows(rows similarity.Rows, query int, corpus *core.Corpus, m int) []ScoredArticle {
	scored := similarity.TopKByQuery(rows, query, m, true)
	out := make([]ScoredArticle, len(scored))
	for i, s := range scored {
		out[i] = ScoredArticle{ArticleID: corpus.Articles[s.Index].ArticleID, Score: s.Score}
	}
	return out
}

// ContentRecall 是基于文章文本 TF-IDF 的相似文章召回源（Content-Based）。
// 种子文章来自 rctx.Params["article_id"]；文本特征在快照内构建一次并复用。
type ContentRecall struct {
	Snapshots SnapshotProvider

	// TopK 返回条数，默认 10
	TopK int
}

func (r *ContentRecall) Name() string { return "recall.content" }

func (r *ContentRecall) Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error) {
	if r.Snapshots == nil || rctx == nil {
		return nil, nil
	}
	seed, ok := rctx.ParamInt64(core.ParamArticleID)
	if !ok {
		return nil, nil
	}
	snap, err := r.Snapshots.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	query, ok := snap.CorpusIndex(seed)
	if !ok {
		return nil, nil
	}
	vectorizer, weights, err := snap.TextFeatures()
	if err != nil {
		return nil, err
	}

	topK := r.TopK
	if n := limitParam(rctx); n > 0 {
		topK = n
	}
	if topK <= 0 {
		topK = core.Defaults.DefaultTopKItems()
	}

	scored := rankByRows(weights, query, snap.Corpus, topK)
	out := make([]*core.Item, 0, len(scored))
	for _, s := range scored {
		it := core.NewScoredItem(s.ArticleID, s.Score)
		it.PutLabel("content_column", utils.NewLabel(vectorizer.Column(), "recall"))
		out = append(out, it)
	}
	return out, nil
}

var _ Source = (*ContentRecall)(nil)
