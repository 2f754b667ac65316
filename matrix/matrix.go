// Package matrix 把交互日志转换为二值的 用户×文章 矩阵。
package matrix

import (
	"slices"

	"gonum.org/v1/gonum/mat"

	"github.com/rushteam/artrec/core"
)

// InteractionMatrix 是二值交互矩阵：每个用户一行，每篇文章一列，
// 行列均按 ID 升序排列；(u, a) 在日志中出现过即为 1。
// 构建后只读，新交互需要重新 Build。
type InteractionMatrix struct {
	users      []int64
	articles   []int64
	userIdx    map[int64]int
	articleIdx map[int64]int
	data       *mat.Dense
}

// Build 去重并透视交互日志。日志为空时返回 INVALID_INPUT。
func Build(log core.InteractionLog) (*InteractionMatrix, error) {
	if err := log.Validate(); err != nil {
		return nil, err
	}

	users := log.Users()
	articles := log.Articles()
	m := &InteractionMatrix{
		users:      users,
		articles:   articles,
		userIdx:    indexOf(users),
		articleIdx: indexOf(articles),
		data:       mat.NewDense(len(users), len(articles), nil),
	}
	for _, in := range log {
		m.data.Set(m.userIdx[in.UserID], m.articleIdx[in.ArticleID], 1)
	}
	return m, nil
}

func indexOf(ids []int64) map[int64]int {
	idx := make(map[int64]int, len(ids))
	for i, id := range ids {
		idx[id] = i
	}
	return idx
}

// Dims 返回 (用户数, 文章数)。
func (m *InteractionMatrix) Dims() (int, int) {
	return len(m.users), len(m.articles)
}

// Users 返回行键（升序）。返回的是副本。
func (m *InteractionMatrix) Users() []int64 { return slices.Clone(m.users) }

// Articles 返回列键（升序）。返回的是副本。
func (m *InteractionMatrix) Articles() []int64 { return slices.Clone(m.articles) }

// UserIndex 返回用户所在行。
func (m *InteractionMatrix) UserIndex(userID int64) (int, bool) {
	i, ok := m.userIdx[userID]
	return i, ok
}

// ArticleIndex 返回文章所在列。
func (m *InteractionMatrix) ArticleIndex(articleID int64) (int, bool) {
	j, ok := m.articleIdx[articleID]
	return j, ok
}

// UserAt 返回第 i 行的用户 ID。
func (m *InteractionMatrix) UserAt(i int) int64 { return m.users[i] }

// ArticleAt 返回第 j 列的文章 ID。
func (m *InteractionMatrix) ArticleAt(j int) int64 { return m.articles[j] }

// At 返回 (user, article) 的取值，未知 ID 为 0。
func (m *InteractionMatrix) At(userID, articleID int64) float64 {
	i, ok := m.userIdx[userID]
	if !ok {
		return 0
	}
	j, ok := m.articleIdx[articleID]
	if !ok {
		return 0
	}
	return m.data.At(i, j)
}

// Row 返回用户行向量的副本，未知用户返回 nil。
func (m *InteractionMatrix) Row(userID int64) []float64 {
	i, ok := m.userIdx[userID]
	if !ok {
		return nil
	}
	return mat.Row(nil, i, m.data)
}

// Matrix 返回底层矩阵的只读视图。
func (m *InteractionMatrix) Matrix() mat.Matrix { return m.data }
