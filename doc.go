// Package artrec 是一个文章推荐引擎。
//
// 设计要点：
// - 快照优先：交互日志 → 二值矩阵 → 相似度 / TF-IDF / SVD，全部是快照上的纯函数，写入时失效重建
// - Pipeline 组合：召回（User-CF、内容、隐因子、热门）→ 过滤（已读、黑名单、表达式）→ 重排 → 标题
// - 已读文章是硬排除，任何策略都不会推荐用户交互过的文章
// - 未知文章的标题输出占位字符串，输出条目与输入一一对应
package artrec

import "github.com/rushteam/artrec/pipeline"

// 轻量 facade：便于直接 import "artrec" 使用核心抽象。
type Pipeline = pipeline.Pipeline
type Node = pipeline.Node
type Kind = pipeline.Kind

const (
	KindRecall      = pipeline.KindRecall
	KindFilter      = pipeline.KindFilter
	KindReRank      = pipeline.KindReRank
	KindPostProcess = pipeline.KindPostProcess
)
