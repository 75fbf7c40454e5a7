package storage

import (
	"sync"

	"mini-eventlog/internal/record"
)

// Mirror is the in-memory, ordered copy of one topic's records.
type Mirror struct {
	records []record.Record
	mu      sync.RWMutex
}

// NewMirror creates a mirror holding records in order.
func NewMirror(records []record.Record) *Mirror {
	return &Mirror{records: records}
}

// Push appends a record and returns its ordinal.
func (m *Mirror) Push(rec record.Record) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records = append(m.records, rec)
	return len(m.records)
}

// Len returns the number of records.
func (m *Mirror) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// Window returns at most size records starting at the 1-based ordinal from.
// from must be positive.
func (m *Mirror) Window(from, size int) Window {
	m.mu.RLock()
	defer m.mu.RUnlock()

	start := from - 1
	if start >= len(m.records) || size <= 0 {
		return Window{Records: []record.Record{}, Last: from - 1}
	}
	end := len(m.records)
	if size < end-start {
		end = start + size
	}

	// Return a copy to avoid external modifications
	result := make([]record.Record, end-start)
	copy(result, m.records[start:end])
	return Window{Records: result, Last: start + len(result)}
}

// Records returns a copy of every record in order.
func (m *Mirror) Records() []record.Record {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]record.Record, len(m.records))
	copy(result, m.records)
	return result
}
