package audit

import (
	"sync"
	"time"

	"mini-eventlog/internal/metrics"
	"mini-eventlog/internal/record"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Entry is one line of the server's own audit topic.
type Entry struct {
	ID     string         `json:"id"`
	T      time.Time      `json:"t"`
	Log    string         `json:"log,omitempty"`
	Err    string         `json:"err,omitempty"`
	Fields map[string]any `json:"fields,omitempty"`
}

// NewEntry creates an informational entry with a generated ID and current timestamp
func NewEntry(msg string, fields map[string]any) Entry {
	return Entry{
		ID:     uuid.New().String(),
		T:      time.Now().UTC(),
		Log:    msg,
		Fields: fields,
	}
}

// NewErrorEntry creates an error entry; err's text follows msg.
func NewErrorEntry(msg string, err error, fields map[string]any) Entry {
	e := Entry{
		ID:     uuid.New().String(),
		T:      time.Now().UTC(),
		Err:    msg,
		Fields: fields,
	}
	if err != nil {
		e.Err += ": " + err.Error()
	}
	return e
}

// Appender is the append path audit entries are written through.
type Appender interface {
	Append(topic string, rec record.Record, raw []byte) (int, error)
}

// Auditor writes audit entries to a topic without ever blocking or failing
// the caller. Entries are queued and appended by a background goroutine; a
// failed append is only reported to the process log.
type Auditor struct {
	topic   string
	store   Appender
	entries chan Entry
	done    chan struct{}

	mu     sync.RWMutex
	closed bool
}

// New starts an auditor appending to topic through store. buffer bounds the
// number of entries waiting to be written.
func New(store Appender, topic string, buffer int) *Auditor {
	if buffer <= 0 {
		buffer = 1
	}
	a := &Auditor{
		topic:   topic,
		store:   store,
		entries: make(chan Entry, buffer),
		done:    make(chan struct{}),
	}
	go a.run()
	return a
}

// Topic returns the audit topic name.
func (a *Auditor) Topic() string {
	return a.topic
}

// Log records an informational entry.
func (a *Auditor) Log(msg string, fields map[string]any) {
	a.Record(NewEntry(msg, fields))
}

// Error records an error entry.
func (a *Auditor) Error(msg string, err error, fields map[string]any) {
	a.Record(NewErrorEntry(msg, err, fields))
}

// Record queues e. It reports false when the entry was dropped because the
// auditor is closed or its buffer is full.
func (a *Auditor) Record(e Entry) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		return false
	}
	select {
	case a.entries <- e:
		return true
	default:
		metrics.AuditDropped.Inc()
		log.Warn().Str("topic", a.topic).Str("entry", e.ID).Msg("Audit buffer full, dropping entry")
		return false
	}
}

func (a *Auditor) run() {
	defer close(a.done)
	for e := range a.entries {
		rec, err := record.Encode(e)
		if err != nil {
			log.Error().Err(err).Str("entry", e.ID).Msg("Failed to encode audit entry")
			continue
		}
		if _, err := a.store.Append(a.topic, rec, nil); err != nil {
			log.Error().Err(err).Str("topic", a.topic).Str("entry", e.ID).Msg("Failed to write audit entry")
		}
	}
}

// Close stops accepting entries and waits for queued ones to be written.
func (a *Auditor) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		<-a.done
		return
	}
	a.closed = true
	close(a.entries)
	a.mu.Unlock()

	<-a.done
}
