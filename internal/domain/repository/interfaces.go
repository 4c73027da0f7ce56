package repository

import (
	"context"
	"time"

	"MarketPulse/internal/domain/models"
)

// MarketSource pulls market data from the upstream provider. Implementations
// own rate limiting, batching and retry; callers see only the final outcome.
type MarketSource interface {
	// Snapshots resolves current prices for the given instrument ids.
	// Instruments that fail are absent from the result; the error is non-nil
	// only when the whole call could not proceed (e.g. context cancelled).
	Snapshots(ctx context.Context, ids []string) (map[string]models.PriceSnapshot, error)
	// DailySeries returns up to `days` daily samples for one instrument,
	// oldest first.
	DailySeries(ctx context.Context, id string, days int) ([]models.Sample, error)
	// RangeSeries returns hourly samples between from and to, oldest first.
	RangeSeries(ctx context.Context, id string, from, to time.Time) ([]models.Sample, error)
}

// Archive persists samples for offline inspection and restart re-seeding.
type Archive interface {
	StoreBatch(ctx context.Context, samples []models.Sample) error
	Query(ctx context.Context, instrument string, from, to time.Time, limit int) ([]models.Sample, error)
	Health(ctx context.Context) error
	Close() error
}

// Publisher streams samples and alerts to a message backend.
type Publisher interface {
	PublishSamples(ctx context.Context, samples []models.Sample) error
	PublishAlerts(ctx context.Context, alerts []models.AnomalyAlert) error
	Close() error
}

// Dispatcher is the external collaborator that receives tick results. The
// pipeline never formats or delivers messages itself.
type Dispatcher interface {
	Dispatch(ctx context.Context, res *models.TickResult)
}

// Metrics records operational counters for the pipeline.
type Metrics interface {
	RecordFetch(endpoint, result string)
	RecordError(kind string)
	RecordLastPrice(instrument string, price float64)
	RecordAlert(kind, window string)
	RecordTickDuration(seconds float64)
}
