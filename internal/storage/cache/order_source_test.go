package cache_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ordersource/internal/domain"
	"github.com/vladislavdragonenkov/ordersource/internal/storage/cache"
	"github.com/vladislavdragonenkov/ordersource/internal/storage/memory"
	"github.com/vladislavdragonenkov/ordersource/internal/storage/storagetest"
)

// fakeRedis хранит значения в памяти и реализует только Get/Set/Del.
type fakeRedis struct {
	redis.Cmdable

	mu   sync.Mutex
	data map[string]string
	ttl  map[string]time.Duration
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttl: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	value, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(value, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	}
	f.ttl[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var removed int64
	for _, key := range keys {
		if _, ok := f.data[key]; ok {
			delete(f.data, key)
			removed++
		}
	}
	return redis.NewIntResult(removed, nil)
}

func (f *fakeRedis) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.data[key]
	return ok
}

func (f *fakeRedis) put(key, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value
}

// countingSource считает обращения Load к вложенному хранилищу.
type countingSource struct {
	domain.OrderSource

	mu    sync.Mutex
	loads int
}

func (c *countingSource) Load(ctx context.Context, id string) (*domain.Order, error) {
	c.mu.Lock()
	c.loads++
	c.mu.Unlock()
	return c.OrderSource.Load(ctx, id)
}

func (c *countingSource) loadCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loads
}

func quietLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger.WithField("component", "test")
}

func TestCachedOrderSourceContract(t *testing.T) {
	storagetest.RunOrderSourceContract(t, func(t *testing.T) domain.OrderSource {
		return cache.New(memory.NewOrderSource(), newFakeRedis(), time.Minute, quietLogger())
	})
}

func TestCachedOrderSourceContract_RedisDown(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	storagetest.RunOrderSourceContract(t, func(t *testing.T) domain.OrderSource {
		return cache.New(memory.NewOrderSource(), client, time.Minute, quietLogger())
	})
}

func TestCachedOrderSource_LoadHitsCache(t *testing.T) {
	ctx := context.Background()
	inner := &countingSource{OrderSource: memory.NewOrderSource()}
	rdb := newFakeRedis()
	source := cache.New(inner, rdb, time.Minute, quietLogger())

	order := storagetest.SampleOrder()
	id, err := source.Save(ctx, order)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !rdb.has("ordersource:order:" + id) {
		t.Fatalf("expected save to populate cache")
	}
	if got := rdb.ttl["ordersource:order:"+id]; got != time.Minute {
		t.Fatalf("unexpected ttl: %v", got)
	}

	for range 3 {
		loaded, err := source.Load(ctx, id)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		storagetest.RequireSameOrder(t, order, loaded)
	}
	if got := inner.loadCount(); got != 0 {
		t.Fatalf("expected all loads to be served from cache, inner loads=%d", got)
	}
}

func TestCachedOrderSource_UpdateAndDeleteInvalidate(t *testing.T) {
	ctx := context.Background()
	inner := &countingSource{OrderSource: memory.NewOrderSource()}
	rdb := newFakeRedis()
	source := cache.New(inner, rdb, time.Minute, quietLogger())

	order := storagetest.SampleOrder()
	id, err := source.Save(ctx, order)
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	order.AddItem(domain.Item{SKU: "sku-9", PriceMinor: 5})
	if err := source.Update(ctx, order); err != nil {
		t.Fatalf("update: %v", err)
	}
	if rdb.has("ordersource:order:" + id) {
		t.Fatalf("expected update to invalidate cache")
	}

	loaded, err := source.Load(ctx, id)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.CalculateTotalSum() != 2555 {
		t.Fatalf("expected fresh total 2555, got %d", loaded.CalculateTotalSum())
	}
	if inner.loadCount() != 1 {
		t.Fatalf("expected one inner load after invalidation, got %d", inner.loadCount())
	}

	if err := source.Delete(ctx, order); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if rdb.has("ordersource:order:" + id) {
		t.Fatalf("expected delete to invalidate cache")
	}
	if _, err := source.Load(ctx, id); !domain.IsNotFound(err) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestCachedOrderSource_MalformedEntryFallsBack(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewOrderSource()
	rdb := newFakeRedis()
	source := cache.New(inner, rdb, time.Minute, quietLogger())

	order := storagetest.SampleOrder()
	id, err := inner.Save(ctx, order)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	rdb.put("ordersource:order:"+id, "{not json")

	loaded, err := source.Load(ctx, id)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	storagetest.RequireSameOrder(t, order, loaded)
}

func TestCachedOrderSource_LiveRedis(t *testing.T) {
	client := integrationRedis(t)

	storagetest.RunOrderSourceContract(t, func(t *testing.T) domain.OrderSource {
		return cache.New(memory.NewOrderSource(), client, time.Minute, quietLogger())
	})

	t.Run("update invalidates stored entry", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		source := cache.New(memory.NewOrderSource(), client, time.Minute, quietLogger())
		order := storagetest.SampleOrder()
		id, err := source.Save(ctx, order)
		if err != nil {
			t.Fatalf("save: %v", err)
		}
		key := "ordersource:order:" + id
		if ttl := client.TTL(ctx, key).Val(); ttl <= 0 || ttl > time.Minute {
			t.Fatalf("unexpected ttl for %s: %v", key, ttl)
		}

		if err := source.Update(ctx, order); err != nil {
			t.Fatalf("update: %v", err)
		}
		if n := client.Exists(ctx, key).Val(); n != 0 {
			t.Fatalf("expected %s to be invalidated", key)
		}
	})
}
