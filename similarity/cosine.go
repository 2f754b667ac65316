// Package similarity 实现通用的余弦相似度：用户向量、TF-IDF 向量、隐因子向量共用。
//
// 零向量约定：任一侧范数为 0 时相似度为 0（包括零向量与自身），不产生 NaN。
package similarity

import (
	"math"
	"slices"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/rushteam/artrec/core"
)

// Matrix 是方阵形式的相似度矩阵，行列键与源矩阵的行键一致。
type Matrix struct {
	keys  []int64
	index map[int64]int
	data  *mat.Dense
}

// Cosine 计算 m 所有行向量两两之间的余弦相似度。
// 通过一次批量乘法 X·Xᵀ 得到点积，再除以范数乘积；
// 仅在范数乘积恰为 0 时把分母置为 1，其余位置不受影响。
func Cosine(keys []int64, m mat.Matrix) (*Matrix, error) {
	r, _ := m.Dims()
	if r == 0 {
		return nil, core.NewInvalidInputError(core.ModuleSimilarity, "matrix has no rows")
	}
	if len(keys) != r {
		return nil, core.NewInvalidInputError(core.ModuleSimilarity, "got %d keys for %d rows", len(keys), r)
	}

	norms := RowNorms(m)

	var dots mat.Dense
	dots.Mul(m, m.T())

	sims := mat.NewDense(r, r, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < r; j++ {
			denom := norms[i] * norms[j]
			if denom == 0 {
				denom = 1
			}
			sims.Set(i, j, dots.At(i, j)/denom)
		}
	}

	index := make(map[int64]int, len(keys))
	for i, k := range keys {
		index[k] = i
	}
	return &Matrix{keys: slices.Clone(keys), index: index, data: sims}, nil
}

// RowNorms 返回每一行的 L2 范数。
func RowNorms(m mat.Matrix) []float64 {
	r, c := m.Dims()
	norms := make([]float64, r)
	for i := 0; i < r; i++ {
		var sum float64
		for j := 0; j < c; j++ {
			v := m.At(i, j)
			sum += v * v
		}
		norms[i] = math.Sqrt(sum)
	}
	return norms
}

// Keys 返回行键副本。
func (s *Matrix) Keys() []int64 { return slices.Clone(s.keys) }

// Len 返回行数。
func (s *Matrix) Len() int { return len(s.keys) }

// Index 返回键所在的行。
func (s *Matrix) Index(key int64) (int, bool) {
	i, ok := s.index[key]
	return i, ok
}

// KeyAt 返回第 i 行的键。
func (s *Matrix) KeyAt(i int) int64 { return s.keys[i] }

// At 返回 (a, b) 的相似度；任一键未知时 ok 为 false。
func (s *Matrix) At(a, b int64) (float64, bool) {
	i, ok := s.index[a]
	if !ok {
		return 0, false
	}
	j, ok := s.index[b]
	if !ok {
		return 0, false
	}
	return s.data.At(i, j), true
}

// Row 返回 key 对应行的副本，未知键返回 nil。
func (s *Matrix) Row(key int64) []float64 {
	i, ok := s.index[key]
	if !ok {
		return nil
	}
	return mat.Row(nil, i, s.data)
}

// Scored 是一行的下标与相似度。
type Scored struct {
	Index int
	Score float64
}

// Rows 是可计算点积与范数的行集合，稠密矩阵与稀疏 TF-IDF 都实现它。
type Rows interface {
	Len() int
	Dot(i, j int) float64
	Norm(i int) float64
}

// TopKByQuery 计算第 query 行与所有行的相似度，按相似度降序、下标升序排列，
// excludeSelf 为 true 时去掉 query 自身，返回前 k 个；k <= 0 表示全部返回。
// query 越界时返回 nil。
func TopKByQuery(rows Rows, query, k int, excludeSelf bool) []Scored {
	n := rows.Len()
	if query < 0 || query >= n {
		return nil
	}
	out := make([]Scored, 0, n)
	qn := rows.Norm(query)
	for i := 0; i < n; i++ {
		if excludeSelf && i == query {
			continue
		}
		denom := qn * rows.Norm(i)
		if denom == 0 {
			denom = 1
		}
		out = append(out, Scored{Index: i, Score: rows.Dot(query, i) / denom})
	}
	SortScored(out)
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out
}

// SortScored 按相似度降序、下标升序排序。
func SortScored(s []Scored) {
	sort.Slice(s, func(i, j int) bool {
		if s[i].Score != s[j].Score {
			return s[i].Score > s[j].Score
		}
		return s[i].Index < s[j].Index
	})
}

// DenseRows 把稠密矩阵适配为 Rows，范数预先计算。
type DenseRows struct {
	m     mat.Matrix
	norms []float64
}

// NewDenseRows 创建 DenseRows。
func NewDenseRows(m mat.Matrix) *DenseRows {
	return &DenseRows{m: m, norms: RowNorms(m)}
}

func (d *DenseRows) Len() int { return len(d.norms) }

func (d *DenseRows) Norm(i int) float64 { return d.norms[i] }

func (d *DenseRows) Dot(i, j int) float64 {
	_, c := d.m.Dims()
	var sum float64
	for k := 0; k < c; k++ {
		sum += d.m.At(i, k) * d.m.At(j, k)
	}
	return sum
}

var _ Rows = (*DenseRows)(nil)
