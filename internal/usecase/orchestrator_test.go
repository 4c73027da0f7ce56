package usecase

import (
	"context"
	"testing"
	"time"

	"MarketPulse/internal/domain/models"
	"MarketPulse/internal/service/history"
	"MarketPulse/internal/services/analytics"
	"MarketPulse/pkg/cache"
	applogger "MarketPulse/pkg/logger"
)

type fakeSource struct {
	prices map[string]float64
	fail   map[string]bool
	daily  []models.Sample
	calls  int
}

func (f *fakeSource) Snapshots(_ context.Context, ids []string) (map[string]models.PriceSnapshot, error) {
	f.calls++
	out := make(map[string]models.PriceSnapshot)
	for _, id := range ids {
		if f.fail[id] {
			continue
		}
		price, ok := f.prices[id]
		if !ok {
			continue
		}
		out[id] = models.PriceSnapshot{
			Instrument: id,
			Price:      price,
			Volume24h:  1000,
			FetchedAt:  time.Now().Unix(),
		}
	}
	return out, nil
}

func (f *fakeSource) DailySeries(context.Context, string, int) ([]models.Sample, error) {
	return f.daily, nil
}

func (f *fakeSource) RangeSeries(context.Context, string, time.Time, time.Time) ([]models.Sample, error) {
	return nil, nil
}

type nopMetrics struct{}

func (nopMetrics) RecordFetch(string, string)      {}
func (nopMetrics) RecordError(string)              {}
func (nopMetrics) RecordLastPrice(string, float64) {}
func (nopMetrics) RecordAlert(string, string)      {}
func (nopMetrics) RecordTickDuration(float64)      {}

func newTestOrchestrator(t *testing.T, src *fakeSource, instruments []string) *Orchestrator {
	t.Helper()
	log, err := applogger.New(&applogger.Config{Level: "error", Format: "console", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	mc := cache.NewMemoryCache()
	t.Cleanup(func() { _ = mc.Close() })

	proc := NewSampleProcessor(nil, nil, nopMetrics{}, "none")
	return NewOrchestrator(
		src,
		mc,
		history.New(1440),
		analytics.NewDetector(60, 1440, 5),
		proc,
		nil,
		nopMetrics{},
		log,
		OrchestratorConfig{Instruments: instruments, CacheTTL: time.Minute},
	)
}

func TestTickSurvivesInstrumentFailure(t *testing.T) {
	src := &fakeSource{
		prices: map[string]float64{"bitcoin": 65000, "ethereum": 3200, "solana": 150},
		fail:   map[string]bool{"ethereum": true},
	}
	o := newTestOrchestrator(t, src, []string{"bitcoin", "ethereum", "solana"})

	res, err := o.Tick(context.Background())
	if err != nil {
		t.Fatalf("tick must not fail on one instrument: %v", err)
	}
	if len(res.Snapshots) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(res.Snapshots))
	}
	// configured order survives
	if res.Snapshots[0].Instrument != "bitcoin" || res.Snapshots[1].Instrument != "solana" {
		t.Fatalf("order broken: %+v", res.Snapshots)
	}
	if got := len(o.History("ethereum")); got != 0 {
		t.Fatalf("failed instrument must not gain history, got %d samples", got)
	}
	if got := len(o.History("bitcoin")); got != 1 {
		t.Fatalf("expected 1 bitcoin sample, got %d", got)
	}
}

func TestTickReadsThroughCache(t *testing.T) {
	src := &fakeSource{prices: map[string]float64{"bitcoin": 65000}}
	o := newTestOrchestrator(t, src, []string{"bitcoin"})
	ctx := context.Background()

	if _, err := o.Tick(ctx); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if src.calls != 1 {
		t.Fatalf("expected 1 upstream call, got %d", src.calls)
	}

	// second tick inside the TTL comes from cache
	res, err := o.Tick(ctx)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if src.calls != 1 {
		t.Fatalf("cached tick must not hit upstream, got %d calls", src.calls)
	}
	if len(res.Snapshots) != 1 || res.Snapshots[0].Price != 65000 {
		t.Fatalf("cached snapshot lost: %+v", res.Snapshots)
	}
}

func TestTickComputesIndicator(t *testing.T) {
	daily := make([]models.Sample, 400)
	for i := range daily {
		daily[i] = models.Sample{Instrument: "bitcoin", Price: 100, Timestamp: int64(i)}
	}
	src := &fakeSource{prices: map[string]float64{"bitcoin": 65000}, daily: daily}
	o := newTestOrchestrator(t, src, []string{"bitcoin"})

	res, err := o.Tick(context.Background())
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if res.Indicator == nil {
		t.Fatal("expected indicator")
	}
	if res.Indicator.SMA111 != 100 || res.Indicator.SMA350x2 != 200 {
		t.Fatalf("unexpected indicator: %+v", res.Indicator)
	}
}

func TestTickEmitsAndRemembersAlerts(t *testing.T) {
	src := &fakeSource{prices: map[string]float64{"bitcoin": 110}}
	o := newTestOrchestrator(t, src, []string{"bitcoin"})

	// two prior samples so the detector has references to compare against
	o.hist.Append("bitcoin", models.Sample{Instrument: "bitcoin", Price: 100, Volume: 1000, Timestamp: 1})
	o.hist.Append("bitcoin", models.Sample{Instrument: "bitcoin", Price: 100, Volume: 1000, Timestamp: 2})

	res, err := o.Tick(context.Background())
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(res.Alerts) != 2 {
		t.Fatalf("expected price alerts on both windows, got %+v", res.Alerts)
	}
	if res.Alerts[0].Kind != models.AlertPrice || res.Alerts[0].ChangePct != 10 {
		t.Fatalf("unexpected alert: %+v", res.Alerts[0])
	}

	recent := o.RecentAlerts(0)
	if len(recent) != 2 {
		t.Fatalf("alert log not updated: %d", len(recent))
	}
	if last := o.LastResult(); last == nil || len(last.Alerts) != 2 {
		t.Fatalf("last result not recorded")
	}
}
