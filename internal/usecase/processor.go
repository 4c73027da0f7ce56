package usecase

import (
	"context"
	"fmt"

	"MarketPulse/internal/domain/models"
	drepo "MarketPulse/internal/domain/repository"
)

// SampleProcessor routes samples and alerts to the configured backend.
// Backend "none" disables forwarding entirely.
type SampleProcessor struct {
	pub     drepo.Publisher
	store   drepo.Archive
	metrics drepo.Metrics
	backend string
}

// NewSampleProcessor creates a SampleProcessor. pub and store may be nil for
// backends that do not use them.
func NewSampleProcessor(
	pub drepo.Publisher,
	store drepo.Archive,
	metrics drepo.Metrics,
	backend string,
) *SampleProcessor {
	return &SampleProcessor{
		pub:     pub,
		store:   store,
		metrics: metrics,
		backend: backend,
	}
}

// ProcessBatch forwards samples to the backend.
func (p *SampleProcessor) ProcessBatch(ctx context.Context, samples []models.Sample) error {
	if len(samples) == 0 {
		return nil
	}

	var err error
	switch p.backend {
	case "none":
		return nil
	case "kafka":
		err = p.pub.PublishSamples(ctx, samples)
	case "clickhouse":
		err = p.store.StoreBatch(ctx, samples)
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError("process_batch")
		return fmt.Errorf("process batch: %w", err)
	}
	return nil
}

// ProcessAlerts forwards alerts; only the kafka backend carries them.
func (p *SampleProcessor) ProcessAlerts(ctx context.Context, alerts []models.AnomalyAlert) error {
	if len(alerts) == 0 || p.backend != "kafka" {
		return nil
	}
	if err := p.pub.PublishAlerts(ctx, alerts); err != nil {
		p.metrics.RecordError("process_alerts")
		return fmt.Errorf("process alerts: %w", err)
	}
	return nil
}

// Archive exposes the storage backend for re-seeding, nil when unused.
func (p *SampleProcessor) Archive() drepo.Archive {
	if p.backend != "clickhouse" {
		return nil
	}
	return p.store
}

// Close closes underlying resources if available.
func (p *SampleProcessor) Close() {
	if p.pub != nil {
		_ = p.pub.Close()
	}
	if p.store != nil {
		_ = p.store.Close()
	}
}
