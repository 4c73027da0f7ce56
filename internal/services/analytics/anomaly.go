package analytics

import (
	"math"

	"MarketPulse/internal/domain/models"
)

// Detector flags relative price/volume changes against historical reference
// points. Windows are expressed in sample counts and assume the store's
// sampling cadence (one sample per minute by default); reconfigure the
// windows if the cadence changes, do not reinterpret them.
type Detector struct {
	hourWindow int
	dayWindow  int
	threshold  float64
}

// NewDetector creates a Detector. Zero or negative arguments fall back to the
// minute-cadence defaults (60 samples/1h, 1440 samples/24h, 5%).
func NewDetector(hourWindow, dayWindow int, threshold float64) *Detector {
	if hourWindow <= 0 {
		hourWindow = 60
	}
	if dayWindow <= 0 {
		dayWindow = 1440
	}
	if threshold <= 0 {
		threshold = 5.0
	}
	return &Detector{hourWindow: hourWindow, dayWindow: dayWindow, threshold: threshold}
}

// Detect compares the newest sample against the 1h and 24h reference points
// and returns one alert per (kind, window) breach. Emission order is stable:
// price before volume, 1h before 24h. Histories of two or fewer samples and
// zero-valued references produce no alerts.
func (d *Detector) Detect(instrument string, hist []models.Sample) []models.AnomalyAlert {
	if len(hist) <= 2 {
		return nil
	}

	cur := hist[len(hist)-1]
	hourRef := hist[refIndex(len(hist), d.hourWindow)]
	dayRef := hist[refIndex(len(hist), d.dayWindow)]

	var alerts []models.AnomalyAlert
	emit := func(kind models.AlertKind, window models.AlertWindow, current, previous float64) {
		if previous == 0 {
			return
		}
		pct := (current - previous) / previous * 100
		if math.Abs(pct) >= d.threshold {
			alerts = append(alerts, models.AnomalyAlert{
				Kind:       kind,
				Instrument: instrument,
				Window:     window,
				ChangePct:  pct,
				Current:    current,
				Previous:   previous,
			})
		}
	}

	emit(models.AlertPrice, models.WindowHour, cur.Price, hourRef.Price)
	emit(models.AlertPrice, models.WindowDay, cur.Price, dayRef.Price)
	emit(models.AlertVolume, models.WindowHour, cur.Volume, hourRef.Volume)
	emit(models.AlertVolume, models.WindowDay, cur.Volume, dayRef.Volume)
	return alerts
}

func refIndex(length, window int) int {
	idx := length - window
	if idx < 0 {
		return 0
	}
	return idx
}
