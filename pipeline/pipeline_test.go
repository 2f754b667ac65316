package pipeline

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/rushteam/artrec/core"
)

type funcNode struct {
	name string
	fn   func(items []*core.Item) ([]*core.Item, error)
}

func (n *funcNode) Name() string { return n.name }
func (n *funcNode) Kind() Kind   { return KindReRank }
func (n *funcNode) Process(_ context.Context, _ *core.RecommendContext, items []*core.Item) ([]*core.Item, error) {
	return n.fn(items)
}

func appendID(id int64) *funcNode {
	return &funcNode{name: "append", fn: func(items []*core.Item) ([]*core.Item, error) {
		return append(items, core.NewItem(id)), nil
	}}
}

func TestPipeline_Run(t *testing.T) {
	p := &Pipeline{Name: "test", Nodes: []Node{appendID(1), appendID(2), appendID(3)}}
	got, err := p.Run(context.Background(), &core.RecommendContext{}, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if ids := core.ItemIDs(got); !slices.Equal(ids, []int64{1, 2, 3}) {
		t.Errorf("Run() = %v, want [1 2 3]", ids)
	}
}

func TestPipeline_RunError(t *testing.T) {
	boom := errors.New("boom")
	failing := &funcNode{name: "failing", fn: func([]*core.Item) ([]*core.Item, error) { return nil, boom }}
	p := &Pipeline{Nodes: []Node{appendID(1), failing, appendID(2)}}
	_, err := p.Run(context.Background(), &core.RecommendContext{}, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("Run() error = %v, want wrapped boom", err)
	}
	if err.Error() != "node failing: boom" {
		t.Errorf("Run() error = %q", err.Error())
	}
}

func TestPipeline_RunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &Pipeline{Nodes: []Node{appendID(1)}}
	if _, err := p.Run(ctx, &core.RecommendContext{}, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestConfig_BuildPipeline(t *testing.T) {
	cfg, err := ParseYAML([]byte(`
pipeline:
  name: demo
  nodes:
    - type: append
      config: {id: 5}
    - type: append
`))
	if err != nil {
		t.Fatalf("ParseYAML() error = %v", err)
	}

	f := NewNodeFactory()
	f.Register("append", func(cfg map[string]any) (Node, error) {
		id, _ := cfg["id"].(int)
		return appendID(int64(id)), nil
	})
	if types := f.Types(); !slices.Equal(types, []string{"append"}) {
		t.Errorf("Types() = %v", types)
	}

	p, err := cfg.BuildPipeline(f)
	if err != nil {
		t.Fatalf("BuildPipeline() error = %v", err)
	}
	if p.Name != "demo" || len(p.Nodes) != 2 {
		t.Fatalf("pipeline = %s with %d nodes", p.Name, len(p.Nodes))
	}
	got, _ := p.Run(context.Background(), &core.RecommendContext{}, nil)
	if ids := core.ItemIDs(got); !slices.Equal(ids, []int64{5, 0}) {
		t.Errorf("Run() = %v, want [5 0]", ids)
	}

	cfg.Pipeline.Nodes = append(cfg.Pipeline.Nodes, NodeConfig{Type: "missing"})
	if _, err := cfg.BuildPipeline(f); err == nil {
		t.Error("BuildPipeline() with unknown type error = nil")
	}
}
