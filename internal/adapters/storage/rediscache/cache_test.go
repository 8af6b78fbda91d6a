package rediscache

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/evanschultz/kanbases/internal/app"
	"github.com/evanschultz/kanbases/internal/domain"
)

// stubStore is a counting in-memory config store.
type stubStore struct {
	values   map[string]string
	reads    int
	writeErr error
}

func (s *stubStore) ConfigValue(_ context.Context, key string) (string, bool, error) {
	s.reads++
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *stubStore) SetConfigValue(_ context.Context, key, value string) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	s.values[key] = value
	return nil
}

// warnLogger counts warnings.
type warnLogger struct {
	warns int
}

func (l *warnLogger) Debug(string, ...any) {}
func (l *warnLogger) Info(string, ...any)  {}
func (l *warnLogger) Warn(string, ...any)  { l.warns++ }
func (l *warnLogger) Error(string, ...any) {}

func newTestCache(t *testing.T, base *stubStore, opts ...Option) (*ConfigCache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(base, client, time.Minute, opts...), mr
}

func TestConfigCacheMissThenHit(t *testing.T) {
	ctx := context.Background()
	base := &stubStore{values: map[string]string{app.KeyColumnOrder: `{"note.status":["Todo"]}`}}
	cache, mr := newTestCache(t, base)

	for range 3 {
		value, ok, err := cache.ConfigValue(ctx, app.KeyColumnOrder)
		if err != nil || !ok || value != `{"note.status":["Todo"]}` {
			t.Fatalf("ConfigValue() = %q, %v, %v", value, ok, err)
		}
	}
	if base.reads != 1 {
		t.Fatalf("expected one base read, got %d", base.reads)
	}
	key := DefaultKeyPrefix + app.KeyColumnOrder
	if ttl := mr.TTL(key); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("unexpected TTL: %v", ttl)
	}
}

func TestConfigCacheMissingKeysAreNotCached(t *testing.T) {
	ctx := context.Background()
	base := &stubStore{values: map[string]string{}}
	cache, mr := newTestCache(t, base, WithKeyPrefix("test:"))

	if _, ok, err := cache.ConfigValue(ctx, "absent"); err != nil || ok {
		t.Fatalf("ConfigValue(absent) = %v, %v", ok, err)
	}
	if mr.Exists("test:absent") {
		t.Fatal("expected absent values to stay uncached")
	}
}

func TestConfigCacheWriteEvicts(t *testing.T) {
	ctx := context.Background()
	base := &stubStore{values: map[string]string{app.KeyHiddenColumns: "{}"}}
	cache, mr := newTestCache(t, base)
	key := DefaultKeyPrefix + app.KeyHiddenColumns

	if _, _, err := cache.ConfigValue(ctx, app.KeyHiddenColumns); err != nil {
		t.Fatalf("ConfigValue() error = %v", err)
	}
	if !mr.Exists(key) {
		t.Fatal("expected value cached after read")
	}
	if err := cache.SetConfigValue(ctx, app.KeyHiddenColumns, `{"note.status":["Done"]}`); err != nil {
		t.Fatalf("SetConfigValue() error = %v", err)
	}
	if mr.Exists(key) {
		t.Fatal("expected cached value evicted after write")
	}
	value, _, _ := cache.ConfigValue(ctx, app.KeyHiddenColumns)
	if value != `{"note.status":["Done"]}` {
		t.Fatalf("unexpected value after write %q", value)
	}

	base.writeErr = errors.New("locked")
	if err := cache.SetConfigValue(ctx, app.KeyHiddenColumns, "{}"); err == nil {
		t.Fatal("expected base write error to propagate")
	}
	if !mr.Exists(key) {
		t.Fatal("expected failed write to leave the cache alone")
	}
}

func TestConfigCacheDegradesWhenRedisIsDown(t *testing.T) {
	ctx := context.Background()
	base := &stubStore{values: map[string]string{app.KeyColumnNames: "Todo,Done"}}
	logger := &warnLogger{}
	cache, mr := newTestCache(t, base, WithLogger(logger))
	mr.Close()

	value, ok, err := cache.ConfigValue(ctx, app.KeyColumnNames)
	if err != nil || !ok || value != "Todo,Done" {
		t.Fatalf("ConfigValue() = %q, %v, %v", value, ok, err)
	}
	if logger.warns == 0 {
		t.Fatal("expected redis failures to be logged")
	}
}

func TestConfigCacheBacksOrderStore(t *testing.T) {
	ctx := context.Background()
	base := &stubStore{values: map[string]string{}}
	cache, _ := newTestCache(t, base)
	store := app.NewOrderStore(cache, nil)

	state := domain.NewPersistedBoardState().WithOrder("note.status", []domain.GroupKey{"Todo", "Done"})
	if err := store.Save(ctx, state); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := loaded.OrderFor("note.status"); len(got) != 2 || got[1] != "Done" {
		t.Fatalf("unexpected loaded order %v", got)
	}
}
