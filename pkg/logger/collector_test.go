package logger

import "testing"

func TestCollectorRecentNewestFirst(t *testing.T) {
	c := NewLogCollector(10)
	c.AddLog("error", "first", nil, "a.go:1")
	c.AddLog("error", "second", nil, "b.go:2")

	got := c.Recent(0)
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].Message != "second" || got[1].Message != "first" {
		t.Fatalf("wrong order: %q, %q", got[0].Message, got[1].Message)
	}
}

func TestCollectorEvictsOldest(t *testing.T) {
	c := NewLogCollector(2)
	c.AddLog("error", "one", nil, "")
	c.AddLog("error", "two", nil, "")
	c.AddLog("error", "three", nil, "")

	if c.Len() != 2 {
		t.Fatalf("expected capacity-bound length 2, got %d", c.Len())
	}
	got := c.Recent(0)
	if got[0].Message != "three" || got[1].Message != "two" {
		t.Fatalf("eviction kept wrong entries: %+v", got)
	}
}

func TestCollectorRecentLimit(t *testing.T) {
	c := NewLogCollector(10)
	for _, m := range []string{"a", "b", "c"} {
		c.AddLog("error", m, nil, "")
	}
	got := c.Recent(1)
	if len(got) != 1 || got[0].Message != "c" {
		t.Fatalf("limit not honored: %+v", got)
	}
}
