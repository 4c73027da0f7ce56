package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"MarketPulse/internal/domain/models"
	"MarketPulse/internal/domain/repository"
	pkgkafka "MarketPulse/pkg/kafka"
)

// SampleSchema returns idempotent DDL for the samples table.
func SampleSchema(database, table string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
			ts DateTime,
			instrument LowCardinality(String),
			price Float64,
			volume Float64
		) ENGINE = MergeTree()
		PARTITION BY toYYYYMM(ts)
		ORDER BY (instrument, ts)
		TTL ts + INTERVAL 90 DAY`, database, table),
	}
}

// ClickHouseArchive implements Archive for ClickHouse.
type ClickHouseArchive struct {
	db    *sql.DB
	table string
}

// NewClickHouseArchive creates ClickHouse sample archive.
func NewClickHouseArchive(db *sql.DB, table string) repository.Archive {
	return &ClickHouseArchive{db: db, table: table}
}

func (s *ClickHouseArchive) StoreBatch(ctx context.Context, samples []models.Sample) error {
	if len(samples) == 0 {
		return nil
	}
	// Batch insert using VALUES multi-row to reduce round-trips.
	const chunkSize = 2000
	for start := 0; start < len(samples); start += chunkSize {
		end := start + chunkSize
		if end > len(samples) {
			end = len(samples)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*4)
		for _, smp := range samples[start:end] {
			if smp.Instrument == "" || smp.Timestamp == 0 {
				continue
			}
			values = append(values, "(?, ?, ?, ?)")
			args = append(args,
				time.Unix(smp.Timestamp, 0),
				smp.Instrument,
				smp.Price,
				smp.Volume,
			)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (ts, instrument, price, volume) VALUES %s", s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return nil
}

func (s *ClickHouseArchive) Query(ctx context.Context, instrument string, from, to time.Time, limit int) ([]models.Sample, error) {
	q := fmt.Sprintf("SELECT instrument, ts, price, volume FROM %s WHERE instrument = ? AND ts >= ? AND ts <= ? ORDER BY ts ASC LIMIT ?", s.table)
	rows, err := s.db.QueryContext(ctx, q, instrument, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []models.Sample
	for rows.Next() {
		var smp models.Sample
		var ts time.Time
		if err := rows.Scan(&smp.Instrument, &ts, &smp.Price, &smp.Volume); err != nil {
			return nil, err
		}
		smp.Timestamp = ts.Unix()
		samples = append(samples, smp)
	}
	return samples, rows.Err()
}

func (s *ClickHouseArchive) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseArchive) Close() error {
	return nil // Managed by pkg
}

// KafkaPublisher implements Publisher for Kafka.
type KafkaPublisher struct {
	producer   *pkgkafka.Producer
	topic      string
	alertTopic string
}

// NewKafkaPublisher creates Kafka publisher. alertTopic may equal topic.
func NewKafkaPublisher(producer *pkgkafka.Producer, topic, alertTopic string) repository.Publisher {
	if alertTopic == "" {
		alertTopic = topic
	}
	return &KafkaPublisher{producer: producer, topic: topic, alertTopic: alertTopic}
}

func (p *KafkaPublisher) PublishSamples(ctx context.Context, samples []models.Sample) error {
	if len(samples) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(samples))
	for i, smp := range samples {
		msgs[i] = pkgkafka.Message{
			Key: []byte(smp.Instrument),
			Value: map[string]interface{}{
				"instrument": smp.Instrument,
				"t":          smp.Timestamp,
				"c":          smp.Price,
				"v":          smp.Volume,
			},
		}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaPublisher) PublishAlerts(ctx context.Context, alerts []models.AnomalyAlert) error {
	if len(alerts) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(alerts))
	for i, a := range alerts {
		msgs[i] = pkgkafka.Message{
			Key:   []byte(a.Instrument),
			Value: a,
		}
	}
	return p.producer.PublishBatch(ctx, p.alertTopic, msgs)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
