package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"MarketPulse/internal/domain/models"
	"MarketPulse/internal/service/history"
	"MarketPulse/internal/services/analytics"
	"MarketPulse/internal/usecase"
	"MarketPulse/pkg/cache"
	xlogger "MarketPulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

type staticSource struct {
	prices map[string]float64
}

func (s *staticSource) Snapshots(_ context.Context, ids []string) (map[string]models.PriceSnapshot, error) {
	out := make(map[string]models.PriceSnapshot)
	for _, id := range ids {
		if p, ok := s.prices[id]; ok {
			out[id] = models.PriceSnapshot{Instrument: id, Price: p, FetchedAt: time.Now().Unix()}
		}
	}
	return out, nil
}

func (s *staticSource) DailySeries(context.Context, string, int) ([]models.Sample, error) {
	return nil, nil
}

func (s *staticSource) RangeSeries(context.Context, string, time.Time, time.Time) ([]models.Sample, error) {
	return nil, nil
}

type testMetrics struct{}

func (testMetrics) RecordFetch(string, string)      {}
func (testMetrics) RecordError(string)              {}
func (testMetrics) RecordLastPrice(string, float64) {}
func (testMetrics) RecordAlert(string, string)      {}
func (testMetrics) RecordTickDuration(float64)      {}

func newTestHandler(t *testing.T) (*echo.Echo, *usecase.Orchestrator) {
	t.Helper()
	log, err := xlogger.New(&xlogger.Config{Level: "error", Format: "console", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	mc := cache.NewMemoryCache()
	t.Cleanup(func() { _ = mc.Close() })

	orch := usecase.NewOrchestrator(
		&staticSource{prices: map[string]float64{"bitcoin": 65000}},
		mc,
		history.New(1440),
		analytics.NewDetector(60, 1440, 5),
		usecase.NewSampleProcessor(nil, nil, testMetrics{}, "none"),
		nil,
		testMetrics{},
		log,
		usecase.OrchestratorConfig{Instruments: []string{"bitcoin"}},
	)

	e := echo.New()
	NewPipelineHandler(log, orch, NewTickHub(log)).RegisterRoutes(e)
	return e, orch
}

func doGet(e *echo.Echo, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	e, _ := newTestHandler(t)
	rec := doGet(e, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestHistoryEndpoint(t *testing.T) {
	e, orch := newTestHandler(t)
	if _, err := orch.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}

	rec := doGet(e, "/api/history/bitcoin")
	var body struct {
		Status int `json:"status"`
		Data   struct {
			Rows  []models.Sample `json:"rows"`
			Total int64           `json:"total"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != http.StatusOK || body.Data.Total != 1 {
		t.Fatalf("unexpected response: %s", rec.Body.String())
	}
	if body.Data.Rows[0].Price != 65000 {
		t.Fatalf("unexpected sample: %+v", body.Data.Rows[0])
	}
}

func TestHistoryEndpointUnknownInstrument(t *testing.T) {
	e, _ := newTestHandler(t)
	rec := doGet(e, "/api/history/dogecoin")
	if !strings.Contains(rec.Body.String(), "ERR_NOT_FOUND") {
		t.Fatalf("expected not-found error, got %s", rec.Body.String())
	}
}

func TestHistoryEndpointRejectsBadLimit(t *testing.T) {
	e, _ := newTestHandler(t)
	rec := doGet(e, "/api/history/bitcoin?limit=5000")
	if !strings.Contains(rec.Body.String(), "ERR_LTE") {
		t.Fatalf("expected validation error, got %s", rec.Body.String())
	}
}

func TestIndicatorEndpointBeforeFirstTick(t *testing.T) {
	e, _ := newTestHandler(t)
	rec := doGet(e, "/api/indicator")
	if !strings.Contains(rec.Body.String(), "ERR_NOT_FOUND") {
		t.Fatalf("expected not-found before first tick, got %s", rec.Body.String())
	}
}

func TestStatusEndpoint(t *testing.T) {
	e, orch := newTestHandler(t)
	if _, err := orch.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	rec := doGet(e, "/api/status")
	body := rec.Body.String()
	for _, want := range []string{"ticks_total", "instruments", "last_tick_at"} {
		if !strings.Contains(body, want) {
			t.Fatalf("status missing %q: %s", want, body)
		}
	}
}
