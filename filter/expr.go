package filter

import (
	"context"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/pkg/dsl"
)

// ExprFilter 用 CEL 表达式过滤：表达式为 true 的候选被移除。
// 例如 `item.score < 0.1` 或 `label.recall_source.contains("hot") && rctx.scene == "detail"`。
type ExprFilter struct {
	prg *dsl.Program
}

// NewExprFilter 编译表达式，语法错误在构建时返回。
func NewExprFilter(expr string) (*ExprFilter, error) {
	prg, err := dsl.Compile(expr)
	if err != nil {
		return nil, core.NewInvalidInputError(core.ModuleConfig, "filter expression: %v", err)
	}
	return &ExprFilter{prg: prg}, nil
}

func (f *ExprFilter) Name() string { return "filter.expr" }

// Expr 返回源表达式。
func (f *ExprFilter) Expr() string { return f.prg.String() }

func (f *ExprFilter) ShouldFilter(_ context.Context, rctx *core.RecommendContext, item *core.Item) (bool, error) {
	if item == nil {
		return true, nil
	}
	return f.prg.Match(item, rctx)
}

var _ Filter = (*ExprFilter)(nil)
