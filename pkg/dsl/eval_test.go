package dsl

import (
	"testing"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/pkg/utils"
)

func TestEvaluate(t *testing.T) {
	item := core.NewScoredItem(42, 0.8)
	item.PutLabel("recall_source", utils.NewLabel("recall.usercf", "recall"))
	rctx := &core.RecommendContext{UserID: 7, Scene: "home"}

	tests := []struct {
		name string
		expr string
		want bool
	}{
		{"empty", "", true},
		{"label equality", `label.recall_source == "recall.usercf"`, true},
		{"contains", `label.recall_source.contains("usercf")`, true},
		{"score", `item.score > 0.7`, true},
		{"id", `item.id == 41`, false},
		{"label presence", `"fallback" in label`, false},
		{"request", `rctx.user_id == 7 && rctx.scene == "home"`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(tt.expr, item, rctx)
			if err != nil {
				t.Fatalf("Evaluate(%q) error = %v", tt.expr, err)
			}
			if got != tt.want {
				t.Errorf("Evaluate(%q) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestCompile_Errors(t *testing.T) {
	for _, expr := range []string{"item.score >", `"not a bool"`} {
		if _, err := Compile(expr); err == nil {
			t.Errorf("Compile(%q) should fail", expr)
		}
	}
}
