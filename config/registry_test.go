package config

import (
	"context"
	"slices"
	"testing"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/pipeline"
)

type constNode struct{ ids []int64 }

func (n *constNode) Name() string        { return "test.const" }
func (n *constNode) Kind() pipeline.Kind { return pipeline.KindRecall }
func (n *constNode) Process(context.Context, *core.RecommendContext, []*core.Item) ([]*core.Item, error) {
	out := make([]*core.Item, len(n.ids))
	for i, id := range n.ids {
		out[i] = core.NewItem(id)
	}
	return out, nil
}

func TestRegistry(t *testing.T) {
	Register("test.const", func(_ *Deps, cfg map[string]any) (pipeline.Node, error) {
		return &constNode{ids: []int64{int64(cfg["id"].(int))}}, nil
	})
	if !slices.Contains(SupportedTypes(), "test.const") {
		t.Fatalf("SupportedTypes() = %v, missing test.const", SupportedTypes())
	}

	cfg, err := pipeline.ParseYAML([]byte(`
pipeline:
  name: test
  nodes:
    - type: test.const
      config:
        id: 7
`))
	if err != nil {
		t.Fatalf("ParseYAML() error = %v", err)
	}
	if err := ValidatePipelineConfig(cfg); err != nil {
		t.Fatalf("ValidatePipelineConfig() error = %v", err)
	}
	p, err := cfg.BuildPipeline(NewFactory(nil))
	if err != nil {
		t.Fatalf("BuildPipeline() error = %v", err)
	}
	items, err := p.Run(context.Background(), &core.RecommendContext{}, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if ids := core.ItemIDs(items); !slices.Equal(ids, []int64{7}) {
		t.Errorf("Run() = %v, want [7]", ids)
	}
}

func TestValidatePipelineConfig_Unknown(t *testing.T) {
	cfg := &pipeline.Config{}
	cfg.Pipeline.Nodes = []pipeline.NodeConfig{{Type: "rank.lr"}}
	if err := ValidatePipelineConfig(cfg); !core.IsInvalidInput(err) {
		t.Errorf("ValidatePipelineConfig() error = %v, want INVALID_INPUT", err)
	}
}
