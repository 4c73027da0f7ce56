package models

import "time"

// Sample is a single price/volume observation for one instrument.
// Samples are immutable once created.
type Sample struct {
	Instrument string  `json:"instrument"`
	Price      float64 `json:"price"`
	Volume     float64 `json:"volume"`
	Timestamp  int64   `json:"timestamp"` // unix seconds
}

// PriceSnapshot is the latest quoted state of an instrument in USD.
type PriceSnapshot struct {
	Instrument string  `json:"instrument"`
	Price      float64 `json:"price"`
	Volume24h  float64 `json:"volume_24h"`
	Change24h  float64 `json:"change_24h"`
	FetchedAt  int64   `json:"fetched_at"` // unix seconds
}

// Sample converts the snapshot into a history sample.
func (s PriceSnapshot) Sample() Sample {
	return Sample{
		Instrument: s.Instrument,
		Price:      s.Price,
		Volume:     s.Volume24h,
		Timestamp:  s.FetchedAt,
	}
}

// PiCycleIndicator is the Pi-Cycle Top crossover state for the reference
// instrument. Recomputed from history every tick, never persisted.
// DaysToTop is a linear extrapolation of the crossover point; nil when the
// trend does not converge. It is an estimate and may be wrong near regime
// changes.
type PiCycleIndicator struct {
	SMA111      float64 `json:"sma111"`
	SMA350x2    float64 `json:"sma350x2"`
	DistancePct float64 `json:"distance_pct"`
	DaysToTop   *int    `json:"days_to_top,omitempty"`
}

// AlertKind distinguishes price alerts from volume alerts.
type AlertKind string

const (
	AlertPrice  AlertKind = "price"
	AlertVolume AlertKind = "volume"
)

// AlertWindow is the lookback horizon a change was measured over.
type AlertWindow string

const (
	WindowHour AlertWindow = "1h"
	WindowDay  AlertWindow = "24h"
)

// AnomalyAlert reports a threshold-crossing relative change. One alert per
// (kind, window) breach; up to four per instrument per tick.
type AnomalyAlert struct {
	Kind       AlertKind   `json:"kind"`
	Instrument string      `json:"instrument"`
	Window     AlertWindow `json:"window"`
	ChangePct  float64     `json:"change_pct"`
	Current    float64     `json:"current"`
	Previous   float64     `json:"previous"`
}

// TickResult is what one pipeline tick hands to the dispatcher. Partial
// results are valid: instruments that failed to fetch simply contribute no
// snapshot and no alerts this tick.
type TickResult struct {
	At        time.Time         `json:"at"`
	Snapshots []PriceSnapshot   `json:"snapshots"`
	Indicator *PiCycleIndicator `json:"indicator,omitempty"`
	Alerts    []AnomalyAlert    `json:"alerts"`
}
