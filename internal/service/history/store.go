package history

import (
	"sync"

	"MarketPulse/internal/domain/models"
)

// Store keeps a bounded rolling history of samples per instrument. Each
// instrument owns a fixed-capacity ring buffer: appends are O(1) and once the
// buffer is full the oldest sample is evicted. The store is the sole owner of
// the buffers; Get hands out copies.
type Store struct {
	mu       sync.Mutex
	capacity int
	rings    map[string]*ring
}

type ring struct {
	data []models.Sample
	head int // index of the oldest sample
	n    int
}

// New creates a Store with the given per-instrument capacity.
func New(capacity int) *Store {
	if capacity <= 0 {
		capacity = 1
	}
	return &Store{capacity: capacity, rings: make(map[string]*ring)}
}

// Append adds a sample to the instrument's history, evicting the oldest
// sample when the buffer is full.
func (s *Store) Append(instrument string, smp models.Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rings[instrument]
	if !ok {
		r = &ring{data: make([]models.Sample, s.capacity)}
		s.rings[instrument] = r
	}
	if r.n < len(r.data) {
		r.data[(r.head+r.n)%len(r.data)] = smp
		r.n++
		return
	}
	// full: overwrite the head slot and advance
	r.data[r.head] = smp
	r.head = (r.head + 1) % len(r.data)
}

// Get returns a chronological copy of the instrument's history. An unknown
// instrument yields an empty slice, not an error.
func (s *Store) Get(instrument string) []models.Sample {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rings[instrument]
	if !ok || r.n == 0 {
		return nil
	}
	out := make([]models.Sample, r.n)
	for i := 0; i < r.n; i++ {
		out[i] = r.data[(r.head+i)%len(r.data)]
	}
	return out
}

// Len returns the number of samples held for an instrument.
func (s *Store) Len(instrument string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.rings[instrument]; ok {
		return r.n
	}
	return 0
}

// Capacity returns the per-instrument buffer size.
func (s *Store) Capacity() int {
	return s.capacity
}

// Instruments lists the instruments with at least one sample.
func (s *Store) Instruments() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.rings))
	for id := range s.rings {
		out = append(out, id)
	}
	return out
}
