package history

import (
	"testing"

	"MarketPulse/internal/domain/models"
)

func sample(i int) models.Sample {
	return models.Sample{Instrument: "btc", Price: float64(i), Timestamp: int64(i)}
}

func TestAppendAndGetOrder(t *testing.T) {
	s := New(10)
	for i := 1; i <= 5; i++ {
		s.Append("btc", sample(i))
	}
	got := s.Get("btc")
	if len(got) != 5 {
		t.Fatalf("expected 5 samples, got %d", len(got))
	}
	for i, smp := range got {
		if smp.Price != float64(i+1) {
			t.Fatalf("out of order at %d: %v", i, smp.Price)
		}
	}
}

func TestCapacityEviction(t *testing.T) {
	s := New(3)
	for i := 1; i <= 7; i++ {
		s.Append("btc", sample(i))
	}
	got := s.Get("btc")
	if len(got) != 3 {
		t.Fatalf("expected capacity 3, got %d", len(got))
	}
	// retained window must be exactly the most recent 3 in original order
	for i, want := range []float64{5, 6, 7} {
		if got[i].Price != want {
			t.Fatalf("slot %d: want %v got %v", i, want, got[i].Price)
		}
	}
	if s.Len("btc") != 3 {
		t.Fatalf("Len = %d", s.Len("btc"))
	}
}

func TestUnknownInstrumentIsEmpty(t *testing.T) {
	s := New(4)
	if got := s.Get("nope"); len(got) != 0 {
		t.Fatalf("expected empty history, got %d", len(got))
	}
	if s.Len("nope") != 0 {
		t.Fatalf("expected zero length")
	}
}

func TestGetReturnsCopy(t *testing.T) {
	s := New(4)
	s.Append("btc", sample(1))
	got := s.Get("btc")
	got[0].Price = 999
	if s.Get("btc")[0].Price != 1 {
		t.Fatalf("mutation leaked into store")
	}
}
