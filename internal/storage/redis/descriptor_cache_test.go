package redis

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"MicroFrontend-Portal/internal/descriptor"
	xerrors "MicroFrontend-Portal/internal/errors"
	"MicroFrontend-Portal/pkg/plugin"
)

type countingStore struct {
	*descriptor.MemoryStore
	calls atomic.Int32
	err   error
}

func (s *countingStore) List(ctx context.Context) ([]plugin.Descriptor, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return s.MemoryStore.List(ctx)
}

func newTestCache(t *testing.T) (*CachedStore, *countingStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	mem, err := descriptor.NewMemoryStore(descriptor.DefaultDescriptors())
	if err != nil {
		t.Fatalf("memory store: %v", err)
	}
	next := &countingStore{MemoryStore: mem}
	cache := NewCachedStoreWithClient(client, CacheConfig{Key: "test:descriptors", TTL: time.Minute}, next)
	t.Cleanup(func() { cache.Close() })
	return cache, next, mr
}

func TestCachedStoreReadThrough(t *testing.T) {
	ctx := context.Background()
	cache, next, mr := newTestCache(t)

	for i := 0; i < 3; i++ {
		items, err := cache.List(ctx)
		if err != nil {
			t.Fatalf("list %d: %v", i, err)
		}
		if len(items) != 1 || items[0].Name != "PluginA" || items[0].Routes[0].Component != "PluginAPage" {
			t.Fatalf("unexpected items: %+v", items)
		}
	}
	if calls := next.calls.Load(); calls != 1 {
		t.Fatalf("expected one backend call, got %d", calls)
	}
	if !mr.Exists("test:descriptors") {
		t.Fatal("expected cache key to be written")
	}
	if ttl := mr.TTL("test:descriptors"); ttl != time.Minute {
		t.Fatalf("unexpected ttl %v", ttl)
	}

	mr.FastForward(2 * time.Minute)
	if _, err := cache.List(ctx); err != nil {
		t.Fatalf("list after expiry: %v", err)
	}
	if calls := next.calls.Load(); calls != 2 {
		t.Fatalf("expected refill after expiry, got %d calls", calls)
	}
}

func TestCachedStoreFallsBackWhenRedisDown(t *testing.T) {
	cache, next, mr := newTestCache(t)
	mr.SetError("LOADING server is unavailable")

	items, err := cache.List(context.Background())
	if err != nil {
		t.Fatalf("expected fallback to backend, got %v", err)
	}
	if len(items) != 1 || next.calls.Load() != 1 {
		t.Fatalf("unexpected fallback result: %+v calls=%d", items, next.calls.Load())
	}
}

func TestCachedStorePropagatesBackendError(t *testing.T) {
	cache, next, _ := newTestCache(t)
	next.err = errors.New("database down")

	if _, err := cache.List(context.Background()); err == nil {
		t.Fatal("expected backend error")
	}
}

func TestCachedStoreSaveInvalidates(t *testing.T) {
	ctx := context.Background()
	cache, _, mr := newTestCache(t)

	if _, err := cache.List(ctx); err != nil {
		t.Fatalf("warm cache: %v", err)
	}
	updated := append(descriptor.DefaultDescriptors(), plugin.Descriptor{Name: "PluginB", Entry: "/plugin-b.js"})
	if err := cache.Save(ctx, updated); err != nil {
		t.Fatalf("save: %v", err)
	}
	if mr.Exists("test:descriptors") {
		t.Fatal("expected cache key to be removed after save")
	}
	items, err := cache.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected updated list, got %+v", items)
	}
}

func TestCachedStoreInvalidateErrorCarriesKey(t *testing.T) {
	cache, _, mr := newTestCache(t)
	mr.SetError("LOADING server is unavailable")

	err := cache.Invalidate(context.Background())
	coded, ok := xerrors.From(err)
	if !ok || coded.Code() != xerrors.CodeCacheFailure {
		t.Fatalf("expected CACHE_FAILURE, got %v", err)
	}
	if key := coded.Metadata()["key"]; key != "test:descriptors" {
		t.Fatalf("expected cache key in metadata, got %q", key)
	}
}
