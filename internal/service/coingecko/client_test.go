package coingecko

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"MarketPulse/internal/service/ratelimit"
)

func testClient(baseURL string, opts ...Option) *Client {
	base := []Option{
		WithBaseURL(baseURL),
		WithPacing(0),
		WithBatch(3, 0),
		WithRetry(3, time.Millisecond, 4*time.Millisecond),
		WithLimiter(ratelimit.New(1000, 1000)),
	}
	return New(append(base, opts...)...)
}

func TestBackoffSequence(t *testing.T) {
	want := []time.Duration{
		1000 * time.Millisecond,
		2000 * time.Millisecond,
		4000 * time.Millisecond,
		8000 * time.Millisecond,
		10000 * time.Millisecond,
		10000 * time.Millisecond,
	}
	for i, w := range want {
		got := Backoff(i+1, time.Second, 10*time.Second)
		if got != w {
			t.Fatalf("attempt %d: want %v, got %v", i+1, w, got)
		}
	}
}

func TestRateLimitedAfterRetries(t *testing.T) {
	var requests int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&requests, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.DailySeries(context.Background(), "bitcoin", 350)
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	// one initial request plus three retries
	if got := atomic.LoadInt64(&requests); got != 4 {
		t.Fatalf("expected 4 requests, got %d", got)
	}
}

func TestUnavailableNotRetried(t *testing.T) {
	var requests int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&requests, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.DailySeries(context.Background(), "bitcoin", 350)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if got := atomic.LoadInt64(&requests); got != 1 {
		t.Fatalf("server errors must not be retried, got %d requests", got)
	}
}

func TestRetryRecoversAfter429(t *testing.T) {
	var requests int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&requests, 1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"bitcoin":{"usd":65000,"usd_24h_vol":3.2e10,"usd_24h_change":1.5}}`)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	snaps, err := c.Snapshots(context.Background(), []string{"bitcoin"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	snap, ok := snaps["bitcoin"]
	if !ok {
		t.Fatalf("expected bitcoin snapshot, got %v", snaps)
	}
	if snap.Price != 65000 || snap.Volume24h != 3.2e10 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if got := atomic.LoadInt64(&requests); got != 3 {
		t.Fatalf("expected 3 requests, got %d", got)
	}
}

func TestSnapshotsDropsFailedInstruments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("ids")
		if id == "bad" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprintf(w, `{"%s":{"usd":100,"usd_24h_vol":1000,"usd_24h_change":0}}`, id)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	snaps, err := c.Snapshots(context.Background(), []string{"bitcoin", "bad", "ethereum"})
	if err != nil {
		t.Fatalf("a single failed instrument must not fail the call: %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("expected 2 snapshots, got %d: %v", len(snaps), snaps)
	}
	if _, ok := snaps["bad"]; ok {
		t.Fatal("failed instrument must be omitted")
	}
	for _, id := range []string{"bitcoin", "ethereum"} {
		if _, ok := snaps[id]; !ok {
			t.Fatalf("missing snapshot for %s", id)
		}
	}
}

func TestRangeSeriesParsesChart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("from") == "" || q.Get("to") == "" {
			t.Errorf("missing range params: %s", r.URL.RawQuery)
		}
		fmt.Fprint(w, `{"prices":[[1700000000000,100],[1700003600000,101]],"total_volumes":[[1700000000000,5000],[1700003600000,5100]]}`)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	samples, err := c.RangeSeries(context.Background(), "ethereum", time.Unix(1700000000, 0), time.Unix(1700003600, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(samples))
	}
	if samples[0].Timestamp != 1700000000 {
		t.Fatalf("timestamps must be seconds, got %d", samples[0].Timestamp)
	}
	if samples[1].Price != 101 || samples[1].Volume != 5100 {
		t.Fatalf("unexpected sample: %+v", samples[1])
	}
	if samples[0].Instrument != "ethereum" {
		t.Fatalf("unexpected instrument: %q", samples[0].Instrument)
	}
}
