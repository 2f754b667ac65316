package core

import (
	"slices"
	"strings"
)

// 交互表的必需列。
const (
	ColumnUserID    = "user_id"
	ColumnArticleID = "article_id"
	ColumnTitle     = "title"
)

// Interaction 是一条用户-文章交互记录。交互是二值的，没有权重字段。
type Interaction struct {
	UserID    int64  `json:"user_id" db:"user_id"`
	ArticleID int64  `json:"article_id" db:"article_id"`
	Title     string `json:"title" db:"title"`
}

// InteractionLog 是交互日志快照，顺序即存储适配器给出的稳定行序。
// 可能包含重复的 (user, article) 行，下游自行去重。
type InteractionLog []Interaction

// Validate 检查日志是否可用于构建矩阵。
func (l InteractionLog) Validate() error {
	if len(l) == 0 {
		return ErrEmptyLog
	}
	return nil
}

// Users 返回去重后的用户 ID，升序。
func (l InteractionLog) Users() []int64 {
	seen := make(map[int64]struct{}, len(l))
	out := make([]int64, 0)
	for _, in := range l {
		if _, ok := seen[in.UserID]; ok {
			continue
		}
		seen[in.UserID] = struct{}{}
		out = append(out, in.UserID)
	}
	slices.Sort(out)
	return out
}

// Articles 返回去重后的文章 ID，升序。
func (l InteractionLog) Articles() []int64 {
	seen := make(map[int64]struct{}, len(l))
	out := make([]int64, 0)
	for _, in := range l {
		if _, ok := seen[in.ArticleID]; ok {
			continue
		}
		seen[in.ArticleID] = struct{}{}
		out = append(out, in.ArticleID)
	}
	slices.Sort(out)
	return out
}

// ArticlesOf 返回用户交互过的文章，按首次出现顺序去重。
func (l InteractionLog) ArticlesOf(userID int64) []int64 {
	seen := make(map[int64]struct{})
	var out []int64
	for _, in := range l {
		if in.UserID != userID {
			continue
		}
		if _, ok := seen[in.ArticleID]; ok {
			continue
		}
		seen[in.ArticleID] = struct{}{}
		out = append(out, in.ArticleID)
	}
	return out
}

// SeenSet 返回用户交互过的文章集合。
func (l InteractionLog) SeenSet(userID int64) map[int64]struct{} {
	seen := make(map[int64]struct{})
	for _, in := range l {
		if in.UserID == userID {
			seen[in.ArticleID] = struct{}{}
		}
	}
	return seen
}

// ArticlesByUser 一次遍历得到每个用户的去重文章列表（首次出现顺序）。
func (l InteractionLog) ArticlesByUser() map[int64][]int64 {
	out := make(map[int64][]int64)
	seen := make(map[[2]int64]struct{}, len(l))
	for _, in := range l {
		key := [2]int64{in.UserID, in.ArticleID}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out[in.UserID] = append(out[in.UserID], in.ArticleID)
	}
	return out
}

// DistinctArticleCounts 返回每个用户交互过的不同文章数。
func (l InteractionLog) DistinctArticleCounts() map[int64]int {
	byUser := l.ArticlesByUser()
	out := make(map[int64]int, len(byUser))
	for u, arts := range byUser {
		out[u] = len(arts)
	}
	return out
}

// DistinctUserCounts 返回每篇文章被多少不同用户交互过。
func (l InteractionLog) DistinctUserCounts() map[int64]int {
	seen := make(map[[2]int64]struct{}, len(l))
	out := make(map[int64]int)
	for _, in := range l {
		key := [2]int64{in.UserID, in.ArticleID}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out[in.ArticleID]++
	}
	return out
}

// RequireColumns 检查表头是否包含全部必需列（忽略大小写与首尾空白）。
func RequireColumns(module string, have []string, required ...string) error {
	present := make(map[string]struct{}, len(have))
	for _, c := range have {
		present[strings.ToLower(strings.TrimSpace(c))] = struct{}{}
	}
	var missing []string
	for _, r := range required {
		if _, ok := present[r]; !ok {
			missing = append(missing, r)
		}
	}
	if len(missing) > 0 {
		return NewInvalidInputError(module, "missing required columns: %s", strings.Join(missing, ", "))
	}
	return nil
}
