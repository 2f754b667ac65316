package recall

import (
	"context"
	"math"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/matrix"
	"github.com/rushteam/artrec/pkg/utils"
	"github.com/rushteam/artrec/similarity"
)

// Factorization 是交互矩阵的截断 SVD：R ≈ U·diag(Sigma)·Vᵀ。
//
//   - Sigma 严格按降序排列，U / V 的列与之对应
//   - 每个分量的符号已归一化：V 列中绝对值最大的元素为正，U 同步翻转
//   - V 的第 j 行是第 j 篇文章（矩阵列序）的隐向量
type Factorization struct {
	U     *mat.Dense
	Sigma []float64
	V     *mat.Dense
}

// Rank 返回分量个数。
func (f *Factorization) Rank() int { return len(f.Sigma) }

// ItemFactors 返回文章隐向量矩阵（文章数×秩）。
func (f *Factorization) ItemFactors() mat.Matrix { return f.V }

// FitFactorization 计算秩为 min(k, min(维度)-1) 的截断 SVD。
// 请求的 k 过大时静默截断；k <= 0 或矩阵较小的一维不足 2 时无法得到秩 >= 1 的分解，返回 INVALID_INPUT。
func FitFactorization(im *matrix.InteractionMatrix, k int) (*Factorization, error) {
	if im == nil {
		return nil, core.NewInvalidInputError(core.ModuleFactorization, "interaction matrix is nil")
	}
	if k <= 0 {
		return nil, core.NewInvalidInputError(core.ModuleFactorization, "rank must be positive, got %d", k)
	}
	r, c := im.Dims()
	rank := min(k, min(r, c)-1)
	if rank < 1 {
		return nil, core.NewInvalidInputError(core.ModuleFactorization,
			"matrix %dx%d is too small for a truncated decomposition", r, c)
	}

	var svd mat.SVD
	if ok := svd.Factorize(im.Matrix(), mat.SVDThin); !ok {
		return nil, core.NewDomainError(core.ModuleFactorization, core.ErrorCodeInternalError, "svd did not converge")
	}
	values := svd.Values(nil)
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	order := descendingOrder(values)[:rank]
	f := &Factorization{
		U:     mat.NewDense(r, rank, nil),
		Sigma: make([]float64, rank),
		V:     mat.NewDense(c, rank, nil),
	}
	for dst, src := range order {
		f.Sigma[dst] = values[src]
		sign := componentSign(&v, src)
		for i := 0; i < r; i++ {
			f.U.Set(i, dst, sign*u.At(i, src))
		}
		for j := 0; j < c; j++ {
			f.V.Set(j, dst, sign*v.At(j, src))
		}
	}
	return f, nil
}

// descendingOrder 返回按奇异值降序（同值按原下标升序）的下标。
func descendingOrder(values []float64) []int {
	idx := make([]int, len(values))
	for i := range idx {
		idx[i] = i
	}
	// 分解例程通常已经降序，这里不依赖该性质
	for i := 1; i < len(idx); i++ {
		for j := i; j > 0 && values[idx[j]] > values[idx[j-1]]; j-- {
			idx[j], idx[j-1] = idx[j-1], idx[j]
		}
	}
	return idx
}

// componentSign 让 V 第 col 列中绝对值最大的元素为正。
func componentSign(v *mat.Dense, col int) float64 {
	rows, _ := v.Dims()
	best, bestAbs := 0.0, -1.0
	for i := 0; i < rows; i++ {
		x := v.At(i, col)
		if a := math.Abs(x); a > bestAbs {
			best, bestAbs = x, a
		}
	}
	if best < 0 {
		return -1
	}
	return 1
}

// RecommendSimilarByFactors 返回与 articleID 隐向量最相似的 m 篇文章 ID，不含自身。
// 文章不是矩阵的列时返回空。itemFactors 的行序必须与矩阵列序一致。
func RecommendSimilarByFactors(articleID int64, im *matrix.InteractionMatrix, itemFactors mat.Matrix, m int) []int64 {
	return articleIDs(RecommendSimilarByFactorsWithScores(articleID, im, itemFactors, m))
}

// RecommendSimilarByFactorsWithScores 同 RecommendSimilarByFactors，并附带相似度。
func RecommendSimilarByFactorsWithScores(articleID int64, im *matrix.InteractionMatrix, itemFactors mat.Matrix, m int) []ScoredArticle {
	if im == nil || itemFactors == nil || m <= 0 {
		return nil
	}
	j, ok := im.ArticleIndex(articleID)
	if !ok {
		return nil
	}
	if r, _ := itemFactors.Dims(); r != len(im.Articles()) {
		return nil
	}
	scored := similarity.TopKByQuery(similarity.NewDenseRows(itemFactors), j, m, true)
	out := make([]ScoredArticle, len(scored))
	for n, s := range scored {
		out[n] = ScoredArticle{ArticleID: im.ArticleAt(s.Index), Score: s.Score}
	}
	return out
}

// MFRecall 是基于截断 SVD 隐因子的相似文章召回源。
// 种子文章来自 rctx.Params["article_id"]；没有种子时不召回。
type MFRecall struct {
	Snapshots SnapshotProvider

	// Rank 请求的分解秩，默认 50（会被矩阵尺寸截断）
	Rank int

	// TopK 返回条数，默认 10
	TopK int
}

func (r *MFRecall) Name() string { return "recall.mf" }

func (r *MFRecall) Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error) {
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
	if _, ok := snap.Matrix.ArticleIndex(seed); !ok {
		return nil, nil
	}

	rank := r.Rank
	if rank <= 0 {
		rank = core.Defaults.DefaultFactorRank()
	}
	f, err := snap.Factorization(rank)
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

	scored := RecommendSimilarByFactorsWithScores(seed, snap.Matrix, f.ItemFactors(), topK)
	out := make([]*core.Item, 0, len(scored))
	for _, s := range scored {
		it := core.NewScoredItem(s.ArticleID, s.Score)
		it.PutLabel("mf_rank", utils.NewLabel(strconv.Itoa(f.Rank()), "recall"))
		out = append(out, it)
	}
	return out, nil
}

var _ Source = (*MFRecall)(nil)
