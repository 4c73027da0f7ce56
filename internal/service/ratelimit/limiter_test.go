package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestAllowConsumesCapacity(t *testing.T) {
	l := New(2, 0.001) // refill slow enough to not matter here
	if !l.Allow("k") || !l.Allow("k") {
		t.Fatal("initial capacity must be available")
	}
	if l.Allow("k") {
		t.Fatal("expected empty bucket")
	}
}

func TestBucketsAreIndependent(t *testing.T) {
	l := New(1, 0.001)
	if !l.Allow("a") {
		t.Fatal("bucket a must start full")
	}
	if !l.Allow("b") {
		t.Fatal("bucket b must be unaffected by a")
	}
}

func TestWaitHonorsContext(t *testing.T) {
	l := New(1, 0.001)
	if !l.Allow("k") {
		t.Fatal("drain failed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := l.Wait(ctx, "k"); err == nil {
		t.Fatal("expected context deadline error")
	}
}

func TestRefillRestoresTokens(t *testing.T) {
	l := New(1, 100) // 100 tokens/sec
	if !l.Allow("k") {
		t.Fatal("drain failed")
	}
	time.Sleep(30 * time.Millisecond)
	if !l.Allow("k") {
		t.Fatal("expected refilled token")
	}
}
