package cache_test

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"switchstack/internal/application"
	"switchstack/internal/infra/cache"
)

type store interface {
	application.Cache
	Close() error
}

func testStore(t *testing.T, s store) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := s.Load(ctx, "missing"); err != nil || ok {
		t.Fatalf("Load missing: got ok=%v err=%v, want ok=false err=nil", ok, err)
	}

	if err := s.Save(ctx, application.RoomsKey, `[{"esp_id":"esp1"}]`); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, ok, err := s.Load(ctx, application.RoomsKey)
	if err != nil || !ok {
		t.Fatalf("Load: got ok=%v err=%v", ok, err)
	}
	if got != `[{"esp_id":"esp1"}]` {
		t.Errorf("value: got %s", got)
	}

	if err := s.Save(ctx, application.RoomsKey, "[]"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if got, _, _ := s.Load(ctx, application.RoomsKey); got != "[]" {
		t.Errorf("overwritten value: got %s, want []", got)
	}

	if err := s.Remove(ctx, application.RoomsKey); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, ok, _ := s.Load(ctx, application.RoomsKey); ok {
		t.Error("value survived Remove")
	}
	if err := s.Remove(ctx, application.RoomsKey); err != nil {
		t.Errorf("Remove of absent key: %v", err)
	}
}

func TestMemory(t *testing.T) {
	testStore(t, cache.NewMemory())
}

func TestBadger_InMemory(t *testing.T) {
	b, err := cache.NewBadger(cache.BadgerOptions{InMemory: true, Prefix: "switchstack"})
	if err != nil {
		t.Fatalf("NewBadger: %v", err)
	}
	defer b.Close()

	testStore(t, b)
}

func TestBadger_PersistsAcrossReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	b, err := cache.NewBadger(cache.BadgerOptions{Dir: dir, Logger: logger})
	if err != nil {
		t.Fatalf("NewBadger: %v", err)
	}
	if err := b.Save(ctx, application.UserKey, `{"email":"ana@example.com"}`); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	b, err = cache.NewBadger(cache.BadgerOptions{Dir: dir, Logger: logger})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer b.Close()

	got, ok, err := b.Load(ctx, application.UserKey)
	if err != nil || !ok || got != `{"email":"ana@example.com"}` {
		t.Errorf("Load after reopen: got %q ok=%v err=%v", got, ok, err)
	}
}

func TestBadger_RequiresDir(t *testing.T) {
	if _, err := cache.NewBadger(cache.BadgerOptions{}); err == nil {
		t.Error("expected error without dir")
	}
}

func TestRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	r := cache.NewRedis(cache.RedisOptions{Addr: mr.Addr(), Prefix: "switchstack"})
	defer r.Close()

	if err := r.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	testStore(t, r)
}

func TestRedis_KeysArePrefixed(t *testing.T) {
	mr := miniredis.RunT(t)
	r := cache.NewRedis(cache.RedisOptions{Addr: mr.Addr(), Prefix: "hub1"})
	defer r.Close()

	if err := r.Save(context.Background(), application.SessionKey, "[]"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !mr.Exists("hub1:" + application.SessionKey) {
		t.Errorf("keys: got %v", mr.Keys())
	}
}
