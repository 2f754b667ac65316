// Package feature 构建文章文本的 TF-IDF 表示，供内容相似推荐使用。
package feature

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/rushteam/artrec/core"
)

// Options 是 TF-IDF 的构建参数，零值字段取默认值。
type Options struct {
	// Columns 候选文本列（优先级顺序），默认 core.DefaultTextColumns
	Columns []string

	// MaxFeatures 词项上限，按语料总词频保留；默认 8000
	MaxFeatures int

	// NGramMin / NGramMax 词级 n-gram 范围，默认 (1, 2)
	NGramMin int
	NGramMax int

	// StopWords 停用词，默认英文停用词表
	StopWords map[string]struct{}
}

func (o Options) withDefaults() Options {
	if len(o.Columns) == 0 {
		o.Columns = core.DefaultTextColumns
	}
	if o.MaxFeatures <= 0 {
		o.MaxFeatures = core.Defaults.DefaultMaxFeatures()
	}
	if o.NGramMin <= 0 {
		o.NGramMin = 1
	}
	if o.NGramMax < o.NGramMin {
		o.NGramMax = o.NGramMin
		if o.NGramMin == 1 {
			o.NGramMax = 2
		}
	}
	if o.StopWords == nil {
		o.StopWords = EnglishStopWords()
	}
	return o
}

// tokenPattern：两个及以上的字母/数字/下划线。
var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// Vectorizer 是拟合后的 TF-IDF 状态：词表与平滑 IDF。
//
// 规则：
//   - 小写化，按 tokenPattern 切词，先去停用词再组 n-gram（空格连接）
//   - 词表超过 MaxFeatures 时按语料总词频降序保留（同频按词项升序），保留后按字典序编号
//   - idf = ln((1+N)/(1+df)) + 1
//   - 权重 = 原始词频 × idf，每行 L2 归一化
type Vectorizer struct {
	opts       Options
	column     string
	vocabulary map[string]int
	terms      []string
	idf        []float64
}

// NewVectorizer 创建未拟合的 Vectorizer。
func NewVectorizer(opts Options) *Vectorizer {
	return &Vectorizer{opts: opts.withDefaults()}
}

// Column 返回拟合时使用的文本列（通过 BuildTextFeatures 构建时）。
func (v *Vectorizer) Column() string { return v.column }

// Terms 返回词表（按列下标排列）。
func (v *Vectorizer) Terms() []string { return append([]string(nil), v.terms...) }

// Len 返回词项数。
func (v *Vectorizer) Len() int { return len(v.terms) }

// IDF 返回词项的 idf。
func (v *Vectorizer) IDF(term string) (float64, bool) {
	i, ok := v.vocabulary[term]
	if !ok {
		return 0, false
	}
	return v.idf[i], true
}

// Analyze 把文本切成 n-gram 序列。
func (v *Vectorizer) Analyze(doc string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(doc), -1)
	tokens := raw[:0]
	for _, t := range raw {
		if _, stop := v.opts.StopWords[t]; stop {
			continue
		}
		tokens = append(tokens, t)
	}

	var grams []string
	for n := v.opts.NGramMin; n <= v.opts.NGramMax; n++ {
		if n == 1 {
			grams = append(grams, tokens...)
			continue
		}
		for i := 0; i+n <= len(tokens); i++ {
			grams = append(grams, strings.Join(tokens[i:i+n], " "))
		}
	}
	return grams
}

// Fit 从文档集合学习词表与 idf。文档为空或没有任何可用词项时返回 INVALID_INPUT。
func (v *Vectorizer) Fit(docs []string) error {
	if len(docs) == 0 {
		return core.NewInvalidInputError(core.ModuleFeature, "no documents to fit")
	}

	df := make(map[string]int)
	tf := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]struct{})
		for _, g := range v.Analyze(doc) {
			tf[g]++
			if _, ok := seen[g]; ok {
				continue
			}
			seen[g] = struct{}{}
			df[g]++
		}
	}
	if len(df) == 0 {
		return core.NewInvalidInputError(core.ModuleFeature, "empty vocabulary; documents only contain stop words or no text")
	}

	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	if len(terms) > v.opts.MaxFeatures {
		sort.Slice(terms, func(i, j int) bool {
			if tf[terms[i]] != tf[terms[j]] {
				return tf[terms[i]] > tf[terms[j]]
			}
			return terms[i] < terms[j]
		})
		terms = terms[:v.opts.MaxFeatures]
	}
	sort.Strings(terms)

	n := float64(len(docs))
	v.terms = terms
	v.vocabulary = make(map[string]int, len(terms))
	v.idf = make([]float64, len(terms))
	for i, term := range terms {
		v.vocabulary[term] = i
		v.idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}
	return nil
}

// Transform 把文档转换为 L2 归一化的 TF-IDF 行；未登录词忽略，空文档得到零行。
func (v *Vectorizer) Transform(docs []string) *SparseMatrix {
	rows := make([]SparseVector, len(docs))
	for r, doc := range docs {
		counts := make(map[int]int)
		for _, g := range v.Analyze(doc) {
			if idx, ok := v.vocabulary[g]; ok {
				counts[idx]++
			}
		}
		indices := make([]int, 0, len(counts))
		for idx := range counts {
			indices = append(indices, idx)
		}
		sort.Ints(indices)

		values := make([]float64, len(indices))
		var norm float64
		for k, idx := range indices {
			values[k] = float64(counts[idx]) * v.idf[idx]
			norm += values[k] * values[k]
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for k := range values {
				values[k] /= norm
			}
		}
		rows[r] = SparseVector{Indices: indices, Values: values}
	}
	return newSparseMatrix(rows, len(v.terms))
}

// FitTransform 拟合并转换同一批文档。
func (v *Vectorizer) FitTransform(docs []string) (*SparseMatrix, error) {
	if err := v.Fit(docs); err != nil {
		return nil, err
	}
	return v.Transform(docs), nil
}

// BuildTextFeatures 从文章表选出第一列有文本的候选列并构建 TF-IDF。
// 文章表先按 article_id 去重（首次出现优先），行与 corpus.Dedup().Articles 一一对应；
// 缺失文本按空字符串处理。没有任何候选列时返回 INVALID_INPUT，不返回部分结果。
func BuildTextFeatures(corpus *core.Corpus, opts Options) (*Vectorizer, *SparseMatrix, error) {
	corpus = corpus.Dedup()
	if corpus == nil || len(corpus.Articles) == 0 {
		return nil, nil, core.NewInvalidInputError(core.ModuleFeature, "corpus is empty")
	}
	v := NewVectorizer(opts)
	column, ok := corpus.SelectTextColumn(v.opts.Columns)
	if !ok {
		return nil, nil, core.NewInvalidInputError(core.ModuleFeature,
			"no text column available, tried %s", strings.Join(v.opts.Columns, ", "))
	}

	docs := make([]string, len(corpus.Articles))
	for i, a := range corpus.Articles {
		docs[i] = a.Text(column)
	}
	weights, err := v.FitTransform(docs)
	if err != nil {
		return nil, nil, err
	}
	v.column = column
	return v, weights, nil
}
