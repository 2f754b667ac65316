package store

import (
	"context"
	"slices"
	"testing"

	"github.com/rushteam/artrec/core"
)

func TestMemoryStore_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	if _, err := s.Get(ctx, "missing"); !core.IsStoreNotFound(err) {
		t.Fatalf("Get(missing) error = %v, want not found", err)
	}

	value := []byte("v1")
	if err := s.Set(ctx, "k", value); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	value[0] = 'x'
	got, err := s.Get(ctx, "k")
	if err != nil || string(got) != "v1" {
		t.Fatalf("Get() = %q, %v; stored value must not alias the caller's slice", got, err)
	}

	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := s.Get(ctx, "k"); !core.IsStoreNotFound(err) {
		t.Errorf("Get after Delete error = %v, want not found", err)
	}
}

func TestMemoryStore_Batch(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	if err := s.BatchSet(ctx, map[string][]byte{"a": []byte("1"), "b": []byte("2")}); err != nil {
		t.Fatalf("BatchSet() error = %v", err)
	}
	got, err := s.BatchGet(ctx, []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("BatchGet() error = %v", err)
	}
	if len(got) != 2 || string(got["a"]) != "1" || string(got["b"]) != "2" {
		t.Errorf("BatchGet() = %v", got)
	}
}

func TestMemoryStore_ZRange(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	for member, score := range map[string]float64{"10": 3, "11": 1, "12": 3, "13": 2} {
		if err := s.ZAdd(ctx, "hot", score, member); err != nil {
			t.Fatalf("ZAdd() error = %v", err)
		}
	}

	tests := []struct {
		name        string
		start, stop int64
		want        []string
	}{
		{"all", 0, -1, []string{"12", "10", "13", "11"}},
		{"top two", 0, 1, []string{"12", "10"}},
		{"middle", 1, 2, []string{"10", "13"}},
		{"past end", 10, 20, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ZRange(ctx, "hot", tt.start, tt.stop)
			if err != nil {
				t.Fatalf("ZRange() error = %v", err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("ZRange(%d, %d) = %v, want %v", tt.start, tt.stop, got, tt.want)
			}
		})
	}

	if score, err := s.ZScore(ctx, "hot", "13"); err != nil || score != 2 {
		t.Errorf("ZScore() = %v, %v", score, err)
	}
	if _, err := s.ZScore(ctx, "hot", "99"); !core.IsStoreNotFound(err) {
		t.Errorf("ZScore(missing) error = %v, want not found", err)
	}
}

func TestMemoryStore_Hash(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	_ = s.HSet(ctx, "h", "f1", []byte("a"))
	_ = s.HSet(ctx, "h", "f2", []byte("b"))
	_ = s.HSet(ctx, "other", "f1", []byte("z"))

	if v, err := s.HGet(ctx, "h", "f1"); err != nil || string(v) != "a" {
		t.Errorf("HGet() = %q, %v", v, err)
	}
	all, err := s.HGetAll(ctx, "h")
	if err != nil || len(all) != 2 {
		t.Fatalf("HGetAll() = %v, %v", all, err)
	}
	if _, err := s.HGet(ctx, "h", "nope"); !core.IsStoreNotFound(err) {
		t.Errorf("HGet(missing) error = %v, want not found", err)
	}
}

func TestMemoryStore_CloseIsIdempotent(t *testing.T) {
	s := NewMemoryStore()
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
}
