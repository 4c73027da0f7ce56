package logger

import (
	"sync"
	"time"
)

// ErrorEntry is one collected error log line.
type ErrorEntry struct {
	Level   string                 `json:"level"`
	Message string                 `json:"message"`
	Fields  map[string]interface{} `json:"fields,omitempty"`
	Caller  string                 `json:"caller"`
	At      time.Time              `json:"at"`
}

// LogCollector keeps the most recent error entries in a fixed-size ring so
// the status endpoint can report them without scraping log output.
type LogCollector struct {
	mu       sync.RWMutex
	entries  []ErrorEntry
	head     int
	n        int
	capacity int
}

// NewLogCollector creates a collector holding up to capacity entries.
func NewLogCollector(capacity int) *LogCollector {
	if capacity <= 0 {
		capacity = 100
	}
	return &LogCollector{
		entries:  make([]ErrorEntry, capacity),
		capacity: capacity,
	}
}

// AddLog records one entry, evicting the oldest when full.
func (c *LogCollector) AddLog(level, message string, fields map[string]interface{}, caller string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := (c.head + c.n) % c.capacity
	c.entries[idx] = ErrorEntry{
		Level:   level,
		Message: message,
		Fields:  fields,
		Caller:  caller,
		At:      time.Now(),
	}
	if c.n < c.capacity {
		c.n++
	} else {
		c.head = (c.head + 1) % c.capacity
	}
}

// Recent returns up to limit entries, newest first. limit <= 0 returns all.
func (c *LogCollector) Recent(limit int) []ErrorEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if limit <= 0 || limit > c.n {
		limit = c.n
	}
	out := make([]ErrorEntry, 0, limit)
	for i := 0; i < limit; i++ {
		idx := (c.head + c.n - 1 - i) % c.capacity
		out = append(out, c.entries[idx])
	}
	return out
}

// Len reports the number of stored entries.
func (c *LogCollector) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.n
}
