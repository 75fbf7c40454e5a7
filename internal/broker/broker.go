package broker

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"mini-eventlog/internal/audit"
	"mini-eventlog/internal/config"
	"mini-eventlog/internal/record"
	"mini-eventlog/internal/storage"
	"mini-eventlog/internal/topic"

	"github.com/rs/zerolog/log"
)

// Broker is the boundary between transports and the log store. It validates
// input, applies the startup policy and writes lifecycle events to the audit
// topic.
type Broker struct {
	config     *config.Config
	store      *storage.LogStore
	auditor    *audit.Auditor
	loadErrors []error
	startedAt  time.Time

	mu        sync.Mutex
	isStopped bool
}

// New opens the log store in cfg.DataDir, creating the directory if needed.
//
// Non-fatal recovery errors are always written to the audit topic. Under
// PolicyServe the broker starts with whatever loaded and exposes the errors
// through LoadErrors; under PolicyRefuse it closes the store and returns a
// *LoadFailedError.
func New(cfg *config.Config) (*Broker, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	store, recovery, err := storage.Open(cfg.DataDir, storage.Options{
		WindowSize: cfg.WindowSize,
		SyncWrites: cfg.SyncWrites,
		QueueDepth: cfg.QueueDepth,
	})
	if err != nil {
		return nil, err
	}

	b := &Broker{
		config:     cfg,
		store:      store,
		auditor:    audit.New(store, cfg.AuditTopic, cfg.AuditBuffer),
		loadErrors: recovery.Errors,
		startedAt:  time.Now(),
	}

	for _, loadErr := range recovery.Errors {
		b.auditor.Error("error loading log", loadErr, loadErrorFields(loadErr))
	}

	if len(recovery.Errors) > 0 {
		if cfg.StartupPolicy == config.PolicyRefuse {
			log.Error().Int("errors", len(recovery.Errors)).Msg("Recovery errors found, refusing to start")
			b.Stop()
			return nil, &LoadFailedError{Errors: recovery.Errors}
		}
		log.Warn().Int("errors", len(recovery.Errors)).Msg("Serving with partially loaded logs")
	}

	return b, nil
}

func loadErrorFields(err error) map[string]any {
	var pe *storage.ParseError
	if errors.As(err, &pe) {
		return map[string]any{"file": pe.File, "line": pe.Line}
	}
	var fe *storage.FileReadError
	if errors.As(err, &fe) {
		return map[string]any{"file": fe.File}
	}
	return nil
}

// Produce appends payload, which must be exactly one JSON value, to topic and
// returns its ordinal.
func (b *Broker) Produce(topicName string, payload []byte) (int, error) {
	if err := topic.Validate(topicName); err != nil {
		return 0, &InputError{Reason: "invalid topic", Err: err}
	}
	if len(record.Trim(payload)) == 0 {
		return 0, &InputError{Reason: "Nothing to do"}
	}
	if _, err := record.Parse(payload); err != nil {
		return 0, &InputError{Reason: "invalid record", Err: err}
	}

	ordinal, err := b.store.Append(topicName, nil, payload)
	if err != nil {
		return 0, err
	}
	log.Debug().Str("topic", topicName).Int("ordinal", ordinal).Msg("Produced record")
	return ordinal, nil
}

// ProduceValue encodes v to its canonical JSON form and appends it to topic.
func (b *Broker) ProduceValue(topicName string, v any) (int, error) {
	if err := topic.Validate(topicName); err != nil {
		return 0, &InputError{Reason: "invalid topic", Err: err}
	}
	rec, err := record.Encode(v)
	if err != nil {
		return 0, &InputError{Reason: "invalid record", Err: err}
	}
	return b.store.Append(topicName, rec, nil)
}

// Consume returns the window of topic starting at the ordinal in from, which
// must be a positive decimal integer. Unknown topics yield an empty window.
func (b *Broker) Consume(topicName, from string) (storage.Window, error) {
	start, err := strconv.Atoi(from)
	if err != nil || start < 1 {
		return storage.Window{}, &InputError{Reason: "invalid from=" + from}
	}
	if err := topic.Validate(topicName); err != nil {
		return storage.Window{}, &InputError{Reason: "invalid topic", Err: err}
	}
	return b.store.Read(topicName, start)
}

// Topics lists the topics held by the store.
func (b *Broker) Topics() []topic.Info {
	return b.store.Topics()
}

// LoadErrors returns the non-fatal errors found while loading.
func (b *Broker) LoadErrors() []error {
	return b.loadErrors
}

// Auditor returns the audit log writer.
func (b *Broker) Auditor() *audit.Auditor {
	return b.auditor
}

// Store returns the underlying log store.
func (b *Broker) Store() *storage.LogStore {
	return b.store
}

// Uptime returns how long the broker has been running.
func (b *Broker) Uptime() time.Duration {
	return time.Since(b.startedAt)
}

// Stop flushes pending audit entries and closes the store.
func (b *Broker) Stop() error {
	b.mu.Lock()
	if b.isStopped {
		b.mu.Unlock()
		return nil
	}
	b.isStopped = true
	b.mu.Unlock()

	log.Info().Msg("Stopping broker...")
	b.auditor.Log("stopping", map[string]any{"uptime": b.Uptime().String()})
	b.auditor.Close()
	if err := b.store.Close(); err != nil {
		return fmt.Errorf("failed to close store: %w", err)
	}
	log.Info().Msg("Broker stopped successfully")
	return nil
}
