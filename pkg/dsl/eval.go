// Package dsl 是基于 CEL (Common Expression Language) 的规则表达式，用于按 Label / 分数 / 请求参数过滤候选。
package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/artrec/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once
)

func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = cel.NewEnv(
			cel.Variable("item", cel.DynType),
			cel.Variable("label", cel.DynType),
			cel.Variable("rctx", cel.DynType),
		)
	})
	return celEnv, celEnvErr
}

// Program 是编译后的表达式，可并发复用。
//
// 表达式语法（CEL 标准语法）：
//   - 基础：label.recall_source == "recall.hot"
//   - 数值：item.score > 0.7 / item.id != 42
//   - 逻辑：label.cf_mode == "weighted" && item.score > 0.8
//   - 存在性："fallback" in label
//   - 包含：label.recall_source.contains("usercf")
//   - 请求：rctx.user_id == 7 / rctx.scene == "home"
type Program struct {
	expr string
	prg  cel.Program
}

// Compile 编译表达式；结果类型必须是 bool。
func Compile(expr string) (*Program, error) {
	env, err := getCELEnv()
	if err != nil {
		return nil, err
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile %q: %w", expr, issues.Err())
	}
	if t := ast.OutputType(); !t.IsExactType(cel.BoolType) && !t.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("compile %q: expression must return bool, got %s", expr, t)
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program %q: %w", expr, err)
	}
	return &Program{expr: expr, prg: prg}, nil
}

// String 返回源表达式。
func (p *Program) String() string { return p.expr }

// Match 对单个候选执行表达式。
// 访问不存在的 label 会报错，应先用 "key" in label 判断存在性。
func (p *Program) Match(item *core.Item, rctx *core.RecommendContext) (bool, error) {
	out, _, err := p.prg.Eval(buildInput(item, rctx))
	if err != nil {
		return false, fmt.Errorf("eval %q: %w", p.expr, err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("eval %q: expression must return bool, got %T", p.expr, out.Value())
	}
	return result, nil
}

// Evaluate 编译并执行一次表达式，空表达式视为 true。重复执行同一表达式时应使用 Compile。
func Evaluate(expr string, item *core.Item, rctx *core.RecommendContext) (bool, error) {
	if expr == "" {
		return true, nil
	}
	p, err := Compile(expr)
	if err != nil {
		return false, err
	}
	return p.Match(item, rctx)
}

// buildInput 构建 CEL 表达式的输入数据
func buildInput(item *core.Item, rctx *core.RecommendContext) map[string]any {
	labels := make(map[string]any)
	labelValues := make(map[string]any)
	itemMap := map[string]any{}
	if item != nil {
		for k, v := range item.Labels {
			labels[k] = map[string]any{"value": v.Value, "source": v.Source}
			// label.recall_source 直接返回 value
			labelValues[k] = v.Value
		}
		itemMap = map[string]any{
			"id":     item.ID,
			"score":  item.Score,
			"title":  item.Title,
			"meta":   item.Meta,
			"labels": labels,
		}
	}

	rctxMap := map[string]any{}
	if rctx != nil {
		params := rctx.Params
		if params == nil {
			params = map[string]any{}
		}
		rctxMap = map[string]any{
			"user_id":    rctx.UserID,
			"request_id": rctx.RequestID,
			"scene":      rctx.Scene,
			"params":     params,
		}
	}

	return map[string]any{
		"item":  itemMap,
		"label": labelValues,
		"rctx":  rctxMap,
	}
}
