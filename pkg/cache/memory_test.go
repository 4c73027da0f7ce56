package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

type snapshot struct {
	Instrument string  `json:"instrument"`
	Price      float64 `json:"price"`
}

func TestMemoryCacheTypedRoundTrip(t *testing.T) {
	mc := NewMemoryCache(WithMemoryMaxSize(10))
	defer mc.Close()
	ctx := context.Background()

	in := snapshot{Instrument: "bitcoin", Price: 65000}
	if err := mc.Set(ctx, SnapshotKey("bitcoin"), in, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	var out snapshot
	if err := mc.Get(ctx, SnapshotKey("bitcoin"), &out); err != nil {
		t.Fatalf("get: %v", err)
	}
	if out != in {
		t.Fatalf("round trip mismatch: %+v", out)
	}
}

func TestMemoryCacheMiss(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()

	var out snapshot
	if err := mc.Get(context.Background(), "absent", &out); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected ErrCacheMiss, got %v", err)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	if err := mc.Set(ctx, "k", "v", time.Millisecond); err != nil {
		t.Fatalf("set: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	var out string
	if err := mc.Get(ctx, "k", &out); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected expiry miss, got %v", err)
	}
}

func TestMemoryCacheMGetTyped(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	for _, s := range []snapshot{{"bitcoin", 65000}, {"ethereum", 3200}} {
		if err := mc.Set(ctx, SnapshotKey(s.Instrument), s, time.Minute); err != nil {
			t.Fatalf("set %s: %v", s.Instrument, err)
		}
	}

	got, err := MGetTyped[snapshot](ctx, mc, SnapshotKey("bitcoin"), SnapshotKey("ethereum"), SnapshotKey("absent"))
	if err != nil {
		t.Fatalf("mget: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(got))
	}
	if got[SnapshotKey("ethereum")].Price != 3200 {
		t.Fatalf("unexpected value: %+v", got[SnapshotKey("ethereum")])
	}
}

func TestMemoryCacheLRUEviction(t *testing.T) {
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()
	ctx := context.Background()

	_ = mc.Set(ctx, "a", "1", time.Minute)
	time.Sleep(time.Millisecond)
	_ = mc.Set(ctx, "b", "2", time.Minute)
	time.Sleep(time.Millisecond)
	_ = mc.Set(ctx, "c", "3", time.Minute)

	var out string
	if err := mc.Get(ctx, "a", &out); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("oldest key should be evicted, got %v", err)
	}
	if err := mc.Get(ctx, "c", &out); err != nil || out != "3" {
		t.Fatalf("newest key lost: %q %v", out, err)
	}
}
