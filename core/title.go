package core

import "fmt"

// MissingTitle 返回未知文章的占位标题。
func MissingTitle(articleID int64) string {
	return fmt.Sprintf("title not found: %d", articleID)
}

// TitleIndex 是 article_id -> title 的只读映射，同一 ID 以首次出现的标题为准。
type TitleIndex struct {
	titles map[int64]string
}

func newTitleIndex() *TitleIndex {
	return &TitleIndex{titles: make(map[int64]string)}
}

func (t *TitleIndex) add(id int64, title string) {
	if _, ok := t.titles[id]; ok {
		return
	}
	t.titles[id] = title
}

// NewTitleIndex 按日志行序构建标题索引。
func NewTitleIndex(log InteractionLog) *TitleIndex {
	idx := newTitleIndex()
	for _, in := range log {
		idx.add(in.ArticleID, in.Title)
	}
	return idx
}

// Len 返回已知文章数。
func (t *TitleIndex) Len() int {
	if t == nil {
		return 0
	}
	return len(t.titles)
}

// Lookup 查询标题。
func (t *TitleIndex) Lookup(articleID int64) (string, bool) {
	if t == nil {
		return "", false
	}
	title, ok := t.titles[articleID]
	return title, ok
}

// Title 返回标题，未知 ID 返回占位字符串。
func (t *TitleIndex) Title(articleID int64) string {
	if title, ok := t.Lookup(articleID); ok {
		return title
	}
	return MissingTitle(articleID)
}

// Resolve 逐个解析标题，输出与输入等长、同序，从不丢弃条目。
func (t *TitleIndex) Resolve(articleIDs []int64) []string {
	out := make([]string, len(articleIDs))
	for i, id := range articleIDs {
		out[i] = t.Title(id)
	}
	return out
}

// ResolveTitles 用交互日志作为文章表解析标题。
func ResolveTitles(articleIDs []int64, log InteractionLog) []string {
	return NewTitleIndex(log).Resolve(articleIDs)
}
