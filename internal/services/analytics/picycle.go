package analytics

import (
	"math"

	"MarketPulse/internal/domain/models"
)

const (
	shortPeriod = 111
	longPeriod  = 350
	trendWindow = 30
)

// SMA is the simple moving average over the most recent `period` prices.
// With fewer than `period` samples it returns the 0 sentinel ("undefined");
// callers must treat that as no value, not a real zero.
func SMA(prices []float64, period int) float64 {
	if period <= 0 || len(prices) < period {
		return 0
	}
	var sum float64
	for _, p := range prices[len(prices)-period:] {
		sum += p
	}
	return sum / float64(period)
}

// ComputePiCycle derives the Pi-Cycle Top indicator from a daily history.
// Returns nil when the history is too short for the long average, so callers
// never see a divide-by-zero distance. Pure: identical input always yields
// identical output.
func ComputePiCycle(history []models.Sample) *models.PiCycleIndicator {
	prices := make([]float64, len(history))
	for i, s := range history {
		prices[i] = s.Price
	}

	sma111 := SMA(prices, shortPeriod)
	sma350x2 := SMA(prices, longPeriod) * 2
	if sma350x2 == 0 {
		return nil
	}

	ind := &models.PiCycleIndicator{
		SMA111:      sma111,
		SMA350x2:    sma350x2,
		DistancePct: (sma111/sma350x2 - 1) * 100,
	}
	ind.DaysToTop = daysToTop(prices, sma111, sma350x2)
	return ind
}

// daysToTop linearly extrapolates when the 111 SMA will cross 2x350 SMA.
// Both averages are recomputed over the last trendWindow prefixes of the
// series; the per-day rate of each trend is (last-first)/len. Only a positive
// crossing estimate is reported.
func daysToTop(prices []float64, sma111, sma350x2 float64) *int {
	if len(prices) < trendWindow {
		return nil
	}

	short := make([]float64, 0, trendWindow)
	long := make([]float64, 0, trendWindow)
	for i := len(prices) - trendWindow; i < len(prices); i++ {
		prefix := prices[:i+1]
		short = append(short, SMA(prefix, shortPeriod))
		long = append(long, SMA(prefix, longPeriod)*2)
	}

	shortRate := (short[len(short)-1] - short[0]) / float64(trendWindow)
	longRate := (long[len(long)-1] - long[0]) / float64(trendWindow)

	gap := sma350x2 - sma111
	gapRate := shortRate - longRate
	if gapRate == 0 {
		return nil
	}
	days := int(math.Ceil(gap / gapRate))
	if days <= 0 {
		return nil
	}
	return &days
}
