package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fazaimron27/tooldock/adapters/clock"
	"github.com/fazaimron27/tooldock/domain/module"
	"github.com/fazaimron27/tooldock/ports"
	"github.com/rs/zerolog"
)

func TestStatusServiceCaseInsensitiveLookup(t *testing.T) {
	store := newFakeStatusStore()
	store.rows["blog"] = module.Status{Name: "Blog", Installed: true}
	svc := NewStatusService(store, zerolog.Nop())

	st, err := svc.Get(context.Background(), "BLOG")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if st.Name != "Blog" {
		t.Fatalf("name = %q", st.Name)
	}
}

func TestStatusServiceUnknownModule(t *testing.T) {
	svc := NewStatusService(newFakeStatusStore(), zerolog.Nop())

	if _, err := svc.Get(context.Background(), "Ghost"); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if svc.IsInstalled(context.Background(), "Ghost") {
		t.Fatal("unknown module reports installed")
	}
	if svc.IsEnabled(context.Background(), "Ghost") {
		t.Fatal("unknown module reports enabled")
	}
}

func TestStatusServiceMissingTableTreatedAsEmpty(t *testing.T) {
	store := newFakeStatusStore()
	store.tableMissing = true
	svc := NewStatusService(store, zerolog.Nop())

	all, err := svc.All(context.Background())
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("all = %v", all)
	}
}

func TestStatusServiceWriteThroughInvalidates(t *testing.T) {
	store := newFakeStatusStore()
	svc := NewStatusService(store, zerolog.Nop())

	if err := svc.Register(context.Background(), module.Status{Name: "Blog"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	now := time.Now()
	if err := svc.MarkInstalled(context.Background(), "Blog", true, &now); err != nil {
		t.Fatalf("mark installed: %v", err)
	}
	if !svc.IsInstalled(context.Background(), "Blog") {
		t.Fatal("stale cache after write")
	}

	if err := svc.SetActive(context.Background(), "Blog", true); err != nil {
		t.Fatalf("set active: %v", err)
	}
	if !svc.IsEnabled(context.Background(), "Blog") {
		t.Fatal("stale cache after SetActive")
	}
}

func TestActivatorUnknownAndMissingTable(t *testing.T) {
	store := newFakeStatusStore()
	fc := clock.NewFake(time.Unix(0, 0))
	act := NewDatabaseActivator(store, fc, zerolog.Nop())

	if act.Enabled("Ghost") {
		t.Fatal("unknown module enabled")
	}

	store.tableMissing = true
	act.Reset()
	if act.Enabled("Ghost") {
		t.Fatal("missing table reports enabled")
	}
}

func TestActivatorCacheRefreshesAfterTTL(t *testing.T) {
	store := newFakeStatusStore()
	store.rows["blog"] = module.Status{Name: "Blog", Installed: true, Active: true}
	fc := clock.NewFake(time.Unix(0, 0))
	act := NewDatabaseActivator(store, fc, zerolog.Nop())

	if !act.Enabled("Blog") {
		t.Fatal("not enabled")
	}

	// Out-of-band change: invisible until the snapshot expires.
	store.mu.Lock()
	st := store.rows["blog"]
	st.Active = false
	store.rows["blog"] = st
	store.mu.Unlock()

	if !act.Enabled("Blog") {
		t.Fatal("snapshot expired too early")
	}
	fc.Advance(activatorCacheTTL + time.Second)
	if act.Enabled("Blog") {
		t.Fatal("snapshot not refreshed after TTL")
	}
}

func TestActivatorSetActiveUpdatesSnapshot(t *testing.T) {
	store := newFakeStatusStore()
	store.rows["blog"] = module.Status{Name: "Blog", Installed: true}
	fc := clock.NewFake(time.Unix(0, 0))
	act := NewDatabaseActivator(store, fc, zerolog.Nop())

	if act.Enabled("Blog") {
		t.Fatal("enabled before SetActive")
	}
	if err := act.SetActive(context.Background(), "Blog", true); err != nil {
		t.Fatalf("set active: %v", err)
	}
	if !act.Enabled("Blog") {
		t.Fatal("snapshot not updated by SetActive")
	}
}

func TestActivatorSetActiveToleratesMissingTable(t *testing.T) {
	store := newFakeStatusStore()
	store.tableMissing = true
	fc := clock.NewFake(time.Unix(0, 0))
	act := NewDatabaseActivator(store, fc, zerolog.Nop())

	if err := act.SetActive(context.Background(), "Blog", true); err != nil {
		t.Fatalf("missing table should be tolerated, got %v", err)
	}
}
