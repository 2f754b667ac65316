package recall

import (
	"context"
	"testing"

	"github.com/rushteam/artrec/core"
)

func TestRefresher_PicksUpExternalWrites(t *testing.T) {
	ctx := context.Background()
	cache, adapter := newTestCache(t, scenarioLog())

	before, err := cache.Snapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}

	// 绕过缓存直接写存储，模拟其他进程
	if err := adapter.AppendInteractions(ctx, core.Interaction{UserID: 9, ArticleID: 42, Title: "new"}); err != nil {
		t.Fatal(err)
	}
	stale, _ := cache.Snapshot(ctx)
	if stale != before {
		t.Fatalf("Snapshot() rebuilt without refresh")
	}

	r := &Refresher{Cache: cache, Schedule: "@every 1h"}
	r.refresh()

	after, err := cache.Snapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if after.Version <= before.Version {
		t.Errorf("version after refresh = %d, want > %d", after.Version, before.Version)
	}
	if !after.Seen(9, 42) {
		t.Errorf("refreshed snapshot misses the external write")
	}
}

func TestRefresher_StartStop(t *testing.T) {
	cache, _ := newTestCache(t, scenarioLog())

	bad := &Refresher{Cache: cache, Schedule: "not a schedule"}
	if err := bad.Start(); err == nil {
		t.Errorf("Start() with invalid schedule error = nil")
	}
	bad.Stop()

	r := &Refresher{Cache: cache, Schedule: "@every 1h"}
	if err := r.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	r.Stop()
}
