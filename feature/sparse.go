package feature

import (
	"math"

	"github.com/rushteam/artrec/similarity"
)

// SparseVector 是一行稀疏权重，Indices 严格升序。
type SparseVector struct {
	Indices []int
	Values  []float64
}

// Dot 计算两个稀疏向量的点积（归并扫描）。
func (v SparseVector) Dot(o SparseVector) float64 {
	var sum float64
	i, j := 0, 0
	for i < len(v.Indices) && j < len(o.Indices) {
		switch {
		case v.Indices[i] == o.Indices[j]:
			sum += v.Values[i] * o.Values[j]
			i++
			j++
		case v.Indices[i] < o.Indices[j]:
			i++
		default:
			j++
		}
	}
	return sum
}

// Norm 返回 L2 范数。
func (v SparseVector) Norm() float64 {
	var sum float64
	for _, x := range v.Values {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// SparseMatrix 是 文档×词项 的 TF-IDF 权重矩阵，行与输入文档一一对应。
type SparseMatrix struct {
	rows  []SparseVector
	cols  int
	norms []float64
}

func newSparseMatrix(rows []SparseVector, cols int) *SparseMatrix {
	norms := make([]float64, len(rows))
	for i, r := range rows {
		norms[i] = r.Norm()
	}
	return &SparseMatrix{rows: rows, cols: cols, norms: norms}
}

// Dims 返回 (文档数, 词项数)。
func (m *SparseMatrix) Dims() (int, int) { return len(m.rows), m.cols }

// Len 返回文档数。
func (m *SparseMatrix) Len() int { return len(m.rows) }

// Row 返回第 i 行。
func (m *SparseMatrix) Row(i int) SparseVector { return m.rows[i] }

// Norm 返回第 i 行的范数。
func (m *SparseMatrix) Norm(i int) float64 { return m.norms[i] }

// Dot 返回第 i、j 行的点积。
func (m *SparseMatrix) Dot(i, j int) float64 { return m.rows[i].Dot(m.rows[j]) }

// At 返回 (i, j) 的权重。
func (m *SparseMatrix) At(i, j int) float64 {
	r := m.rows[i]
	lo, hi := 0, len(r.Indices)
	for lo < hi {
		mid := (lo + hi) / 2
		switch {
		case r.Indices[mid] == j:
			return r.Values[mid]
		case r.Indices[mid] < j:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return 0
}

var _ similarity.Rows = (*SparseMatrix)(nil)
