package core

import "strings"

// DefaultTextColumns 是构建文本特征时的候选列，按优先级排列。
var DefaultTextColumns = []string{"doc_full", "doc_body", "content", "text", "description", "title"}

// Article 是一篇文章的元数据与可选文本字段。
// Fields 中不存在的列视为空字符串。
type Article struct {
	ArticleID int64             `json:"article_id"`
	Title     string            `json:"title"`
	Fields    map[string]string `json:"fields,omitempty"`
}

// Text 返回指定列的文本；title 列直接取 Title。
func (a Article) Text(column string) string {
	if column == ColumnTitle {
		return a.Title
	}
	return a.Fields[column]
}

// Corpus 是文章表快照。Columns 描述表中实际存在的列，
// 与 Articles 中是否有值无关（缺失值按空字符串处理）。
type Corpus struct {
	Columns  []string  `json:"columns"`
	Articles []Article `json:"articles"`
}

// HasColumn 判断表中是否存在该列。
func (c *Corpus) HasColumn(column string) bool {
	if c == nil {
		return false
	}
	for _, col := range c.Columns {
		if col == column {
			return true
		}
	}
	return false
}

// SelectColumn 按优先级返回第一个存在的列。
func (c *Corpus) SelectColumn(priority []string) (string, bool) {
	for _, col := range priority {
		if c.HasColumn(col) {
			return col, true
		}
	}
	return "", false
}

// SelectTextColumn 按优先级返回第一个存在且至少有一篇文章非空的列。
// 所有存在的候选列都没有文本时退回第一个存在的列，由调用方报告空词表。
func (c *Corpus) SelectTextColumn(priority []string) (string, bool) {
	first, ok := c.SelectColumn(priority)
	if !ok {
		return "", false
	}
	for _, col := range priority {
		if !c.HasColumn(col) {
			continue
		}
		for _, a := range c.Articles {
			if strings.TrimSpace(a.Text(col)) != "" {
				return col, true
			}
		}
	}
	return first, true
}

// Dedup 按 article_id 去重，保留首次出现的行。
func (c *Corpus) Dedup() *Corpus {
	if c == nil {
		return nil
	}
	seen := make(map[int64]struct{}, len(c.Articles))
	out := make([]Article, 0, len(c.Articles))
	for _, a := range c.Articles {
		if _, ok := seen[a.ArticleID]; ok {
			continue
		}
		seen[a.ArticleID] = struct{}{}
		out = append(out, a)
	}
	return &Corpus{Columns: append([]string(nil), c.Columns...), Articles: out}
}

// TitleIndex 基于文章表构建标题索引。
func (c *Corpus) TitleIndex() *TitleIndex {
	idx := newTitleIndex()
	if c == nil {
		return idx
	}
	for _, a := range c.Articles {
		idx.add(a.ArticleID, a.Title)
	}
	return idx
}

// CorpusFromLog 从交互日志派生只有 article_id / title 两列的文章表，首次出现者优先。
func CorpusFromLog(log InteractionLog) *Corpus {
	seen := make(map[int64]struct{})
	articles := make([]Article, 0)
	for _, in := range log {
		if _, ok := seen[in.ArticleID]; ok {
			continue
		}
		seen[in.ArticleID] = struct{}{}
		articles = append(articles, Article{ArticleID: in.ArticleID, Title: in.Title})
	}
	return &Corpus{
		Columns:  []string{ColumnArticleID, ColumnTitle},
		Articles: articles,
	}
}
