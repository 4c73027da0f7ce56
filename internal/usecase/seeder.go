package usecase

import (
	"context"
	"time"

	drepo "MarketPulse/internal/domain/repository"
	applogger "MarketPulse/pkg/logger"
)

// Seed backfills histories before the first tick: the reference instrument's
// daily series for the indicator, then per-instrument hourly ranges for the
// detectors. The archive, when available, is preferred over upstream so a
// restart does not replay a day of API traffic. Seeding is best effort; a
// failed instrument starts with an empty history.
func (o *Orchestrator) Seed(ctx context.Context) {
	start := time.Now()

	if series := o.refreshDaily(ctx); len(series) > 0 {
		o.log.Info("daily series seeded",
			applogger.String("instrument", o.cfg.Reference),
			applogger.Int("samples", len(series)))
	}

	to := time.Now()
	from := to.Add(-24 * time.Hour)
	for _, id := range o.cfg.Instruments {
		if err := ctx.Err(); err != nil {
			return
		}
		n := o.seedInstrument(ctx, id, from, to)
		if n > 0 {
			o.log.Info("history seeded",
				applogger.String("instrument", id),
				applogger.Int("samples", n))
		}
	}

	o.log.Info("seeding complete", applogger.Duration("duration_ms", time.Since(start)))
}

func (o *Orchestrator) seedInstrument(ctx context.Context, id string, from, to time.Time) int {
	if archive := o.archive(); archive != nil {
		samples, err := archive.Query(ctx, id, from, to, o.hist.Capacity())
		if err != nil {
			o.log.Warn("archive seed failed",
				applogger.String("instrument", id),
				applogger.Error(err))
		} else if len(samples) > 0 {
			for _, smp := range samples {
				o.hist.Append(id, smp)
			}
			return len(samples)
		}
	}

	samples, err := o.source.RangeSeries(ctx, id, from, to)
	if err != nil {
		o.metrics.RecordError("seed")
		o.log.Warn("range seed failed",
			applogger.String("instrument", id),
			applogger.Error(err))
		return 0
	}
	for _, smp := range samples {
		o.hist.Append(id, smp)
	}
	return len(samples)
}

func (o *Orchestrator) archive() drepo.Archive {
	if o.proc == nil {
		return nil
	}
	return o.proc.Archive()
}
