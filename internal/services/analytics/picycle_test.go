package analytics

import (
	"math"
	"testing"

	"MarketPulse/internal/domain/models"
)

func series(prices []float64) []models.Sample {
	out := make([]models.Sample, len(prices))
	for i, p := range prices {
		out[i] = models.Sample{Instrument: "bitcoin", Price: p, Timestamp: int64(i)}
	}
	return out
}

func flat(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestSMASentinelOnShortSeries(t *testing.T) {
	for _, n := range []int{0, 1, 50, 110} {
		if got := SMA(flat(n, 42), 111); got != 0 {
			t.Fatalf("len %d: expected sentinel 0, got %v", n, got)
		}
	}
}

func TestSMAIsMeanOfLastPeriod(t *testing.T) {
	// earlier elements must not influence the result
	prices := append(flat(100, 1e9), 10, 20, 30)
	got := SMA(prices, 3)
	if got != 20 {
		t.Fatalf("expected 20, got %v", got)
	}
	if SMA([]float64{10, 20, 30}, 3) != got {
		t.Fatalf("prefix changed the mean of the last period")
	}
}

func TestComputePiCycleNilOnInsufficientHistory(t *testing.T) {
	// shorter than the long period: both averages sentinel, no divide-by-zero
	if ind := ComputePiCycle(series(flat(111, 100))); ind != nil {
		t.Fatalf("expected nil indicator, got %+v", ind)
	}
	if ind := ComputePiCycle(nil); ind != nil {
		t.Fatalf("expected nil indicator for empty history")
	}
}

func TestComputePiCycleConstantSeries(t *testing.T) {
	ind := ComputePiCycle(series(flat(400, 100)))
	if ind == nil {
		t.Fatal("expected indicator")
	}
	if ind.SMA111 != 100 || ind.SMA350x2 != 200 {
		t.Fatalf("unexpected averages: %+v", ind)
	}
	if math.Abs(ind.DistancePct-(-50)) > 1e-9 {
		t.Fatalf("expected distance -50, got %v", ind.DistancePct)
	}
	// flat trends never converge
	if ind.DaysToTop != nil {
		t.Fatalf("expected no estimate, got %d", *ind.DaysToTop)
	}
}

func TestComputePiCycleDeterministic(t *testing.T) {
	prices := flat(370, 100)
	for i := 0; i < 30; i++ {
		prices = append(prices, 100+float64(i))
	}
	a := ComputePiCycle(series(prices))
	b := ComputePiCycle(series(prices))
	if a == nil || b == nil {
		t.Fatal("expected indicators")
	}
	if a.SMA111 != b.SMA111 || a.SMA350x2 != b.SMA350x2 || a.DistancePct != b.DistancePct {
		t.Fatalf("non-deterministic output: %+v vs %+v", a, b)
	}
	if (a.DaysToTop == nil) != (b.DaysToTop == nil) {
		t.Fatalf("non-deterministic estimate")
	}
}

func TestDaysToTopOnlyPositive(t *testing.T) {
	// rising short average closing the gap: estimate must be a positive count
	rising := flat(370, 100)
	for i := 0; i < 30; i++ {
		rising = append(rising, 100+float64(i)*2)
	}
	ind := ComputePiCycle(series(rising))
	if ind == nil {
		t.Fatal("expected indicator")
	}
	if ind.DaysToTop == nil || *ind.DaysToTop <= 0 {
		t.Fatalf("expected positive estimate, got %v", ind.DaysToTop)
	}

	// falling short average diverges from the top: estimate omitted
	falling := flat(370, 100)
	for i := 0; i < 30; i++ {
		falling = append(falling, 100-float64(i)*2)
	}
	ind = ComputePiCycle(series(falling))
	if ind == nil {
		t.Fatal("expected indicator")
	}
	if ind.DaysToTop != nil {
		t.Fatalf("expected no estimate on diverging trend, got %d", *ind.DaysToTop)
	}
}
