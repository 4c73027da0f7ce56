package usecase

import (
	"context"
	"sync"
	"time"

	"MarketPulse/internal/domain/models"
	drepo "MarketPulse/internal/domain/repository"
	"MarketPulse/internal/service/history"
	"MarketPulse/internal/services/analytics"
	"MarketPulse/pkg/cache"
	applogger "MarketPulse/pkg/logger"
)

// dailyDays is how much daily history is requested for the crossover
// indicator. Slightly more than the long averaging period so the trend
// extrapolation has room.
const dailyDays = 400

// alertHistorySize bounds the in-memory alert log served by the API.
const alertHistorySize = 200

// OrchestratorConfig holds pipeline tick parameters.
type OrchestratorConfig struct {
	Instruments  []string
	Reference    string
	CacheTTL     time.Duration
	DailyRefresh time.Duration
}

// Orchestrator runs the recurring pipeline tick: fetch snapshots through the
// cache, extend histories, recompute the indicator, detect anomalies and hand
// the result to the processor and dispatcher.
type Orchestrator struct {
	source   drepo.MarketSource
	cacheSvc cache.Service
	hist     *history.Store
	detector *analytics.Detector
	proc     *SampleProcessor
	disp     drepo.Dispatcher
	metrics  drepo.Metrics
	log      *applogger.Logger
	cfg      OrchestratorConfig

	mu          sync.RWMutex
	last        *models.TickResult
	alertLog    []models.AnomalyAlert
	daily       []models.Sample
	dailyAt     time.Time
	ticksTotal  int64
	ticksFailed int64
}

// NewOrchestrator creates an Orchestrator. disp may be nil.
func NewOrchestrator(
	source drepo.MarketSource,
	cacheSvc cache.Service,
	hist *history.Store,
	detector *analytics.Detector,
	proc *SampleProcessor,
	disp drepo.Dispatcher,
	metrics drepo.Metrics,
	log *applogger.Logger,
	cfg OrchestratorConfig,
) *Orchestrator {
	if cfg.Reference == "" && len(cfg.Instruments) > 0 {
		cfg.Reference = cfg.Instruments[0]
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 60 * time.Second
	}
	if cfg.DailyRefresh <= 0 {
		cfg.DailyRefresh = 24 * time.Hour
	}
	return &Orchestrator{
		source:   source,
		cacheSvc: cacheSvc,
		hist:     hist,
		detector: detector,
		proc:     proc,
		disp:     disp,
		metrics:  metrics,
		log:      log,
		cfg:      cfg,
	}
}

// Tick runs one pipeline pass. A failed instrument contributes nothing this
// tick but never aborts the pass; the returned error is reserved for context
// cancellation.
func (o *Orchestrator) Tick(ctx context.Context) (*models.TickResult, error) {
	start := time.Now()
	res := &models.TickResult{At: start}

	snaps, fresh := o.collect(ctx)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// configured order, regardless of fetch completion order
	for _, id := range o.cfg.Instruments {
		snap, ok := snaps[id]
		if !ok {
			continue
		}
		res.Snapshots = append(res.Snapshots, snap)
		o.metrics.RecordLastPrice(id, snap.Price)
		o.hist.Append(id, snap.Sample())
	}

	res.Indicator = o.computeIndicator(ctx)

	for _, id := range o.cfg.Instruments {
		if _, ok := snaps[id]; !ok {
			continue
		}
		alerts := o.detector.Detect(id, o.hist.Get(id))
		for _, a := range alerts {
			o.metrics.RecordAlert(string(a.Kind), string(a.Window))
		}
		res.Alerts = append(res.Alerts, alerts...)
	}

	o.forward(ctx, fresh, res.Alerts)

	o.mu.Lock()
	o.last = res
	o.ticksTotal++
	if len(res.Snapshots) == 0 {
		o.ticksFailed++
	}
	o.alertLog = append(o.alertLog, res.Alerts...)
	if len(o.alertLog) > alertHistorySize {
		o.alertLog = o.alertLog[len(o.alertLog)-alertHistorySize:]
	}
	o.mu.Unlock()

	if o.disp != nil {
		o.disp.Dispatch(ctx, res)
	}

	o.metrics.RecordTickDuration(time.Since(start).Seconds())
	o.log.Debug("tick complete",
		applogger.Int("snapshots", len(res.Snapshots)),
		applogger.Int("alerts", len(res.Alerts)),
		applogger.Duration("duration_ms", time.Since(start)))
	return res, nil
}

// collect resolves snapshots through the cache: cached entries are reused,
// misses are fetched upstream and written back with the configured TTL. The
// second return value holds only freshly fetched snapshots.
func (o *Orchestrator) collect(ctx context.Context) (map[string]models.PriceSnapshot, map[string]models.PriceSnapshot) {
	out := make(map[string]models.PriceSnapshot, len(o.cfg.Instruments))

	keys := make([]string, len(o.cfg.Instruments))
	for i, id := range o.cfg.Instruments {
		keys[i] = cache.SnapshotKey(id)
	}
	cached, err := cache.MGetTyped[models.PriceSnapshot](ctx, o.cacheSvc, keys...)
	if err != nil {
		o.log.Warn("cache read failed", applogger.Error(err))
		cached = nil
	}

	missing := make([]string, 0, len(o.cfg.Instruments))
	for _, id := range o.cfg.Instruments {
		if snap, ok := cached[cache.SnapshotKey(id)]; ok {
			out[id] = snap
		} else {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return out, nil
	}

	fetched, err := o.source.Snapshots(ctx, missing)
	if err != nil {
		o.metrics.RecordError("tick")
		o.log.Error("snapshot fetch failed",
			applogger.Strings("instruments", missing),
			applogger.Error(err))
	}
	if len(fetched) > 0 {
		values := make(map[string]interface{}, len(fetched))
		for id, snap := range fetched {
			out[id] = snap
			values[cache.SnapshotKey(id)] = snap
		}
		if err := o.cacheSvc.MSet(ctx, values, o.cfg.CacheTTL); err != nil {
			o.log.Warn("cache write failed", applogger.Error(err))
		}
	}
	return out, fetched
}

// computeIndicator recomputes the crossover state from the reference
// instrument's daily series, refreshed from upstream at most once per
// DailyRefresh. Returns nil while the series is too short.
func (o *Orchestrator) computeIndicator(ctx context.Context) *models.PiCycleIndicator {
	series := o.refreshDaily(ctx)
	if len(series) == 0 {
		return nil
	}
	return analytics.ComputePiCycle(series)
}

func (o *Orchestrator) refreshDaily(ctx context.Context) []models.Sample {
	o.mu.Lock()
	defer o.mu.Unlock()

	if len(o.daily) > 0 && time.Since(o.dailyAt) < o.cfg.DailyRefresh {
		return o.daily
	}

	series, err := o.source.DailySeries(ctx, o.cfg.Reference, dailyDays)
	if err != nil {
		o.metrics.RecordError("daily_series")
		o.log.Warn("daily series refresh failed",
			applogger.String("instrument", o.cfg.Reference),
			applogger.Error(err))
		return o.daily // stale series beats no series
	}
	o.daily = series
	o.dailyAt = time.Now()
	return o.daily
}

// forward hands fresh samples and alerts to the configured backend.
func (o *Orchestrator) forward(ctx context.Context, fresh map[string]models.PriceSnapshot, alerts []models.AnomalyAlert) {
	if o.proc == nil || len(fresh) == 0 {
		return
	}
	samples := make([]models.Sample, 0, len(fresh))
	for _, id := range o.cfg.Instruments {
		if snap, ok := fresh[id]; ok {
			samples = append(samples, snap.Sample())
		}
	}
	if err := o.proc.ProcessBatch(ctx, samples); err != nil {
		o.log.Error("backend forward failed", applogger.Error(err))
	}
	if err := o.proc.ProcessAlerts(ctx, alerts); err != nil {
		o.log.Error("alert forward failed", applogger.Error(err))
	}
}

// LastResult returns the most recent tick result, nil before the first tick.
func (o *Orchestrator) LastResult() *models.TickResult {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.last
}

// RecentAlerts returns up to limit recent alerts, newest last.
func (o *Orchestrator) RecentAlerts(limit int) []models.AnomalyAlert {
	o.mu.RLock()
	defer o.mu.RUnlock()

	n := len(o.alertLog)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]models.AnomalyAlert, n)
	copy(out, o.alertLog[len(o.alertLog)-n:])
	return out
}

// History returns the stored minute history for one instrument.
func (o *Orchestrator) History(id string) []models.Sample {
	return o.hist.Get(id)
}

// Instruments returns the configured instrument set in order.
func (o *Orchestrator) Instruments() []string {
	return o.cfg.Instruments
}

// Stats reports tick counters for the status endpoint.
func (o *Orchestrator) Stats() (total, failed int64) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.ticksTotal, o.ticksFailed
}
