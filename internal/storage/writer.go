package storage

import (
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"mini-eventlog/internal/metrics"
	"mini-eventlog/internal/record"

	"github.com/jizhuozhi/go-future"
	"github.com/rs/zerolog/log"
)

// appendRequest is one queued append awaiting its topic's writer.
type appendRequest struct {
	rec     record.Record
	raw     []byte
	promise *future.Promise[int]
}

// topicLog ties a topic's mirror to its log file and its single writer.
type topicLog struct {
	name   string
	path   string
	mirror *Mirror

	// exists is set once the topic was loaded from disk or appended to, so a
	// topic whose only appends failed is never listed.
	exists atomic.Bool

	queue     chan *appendRequest
	startOnce sync.Once
	started   atomic.Bool
}

func newTopicLog(dir, name string, mirror *Mirror, queueDepth int) *topicLog {
	if mirror == nil {
		mirror = NewMirror(nil)
	}
	return &topicLog{
		name:   name,
		path:   filepath.Join(dir, name),
		mirror: mirror,
		queue:  make(chan *appendRequest, queueDepth),
	}
}

// start launches the writer goroutine on first use.
func (tl *topicLog) start(s *LogStore) {
	tl.startOnce.Do(func() {
		tl.started.Store(true)
		s.wg.Add(1)
		go s.runWriter(tl)
	})
}

// runWriter drains a topic's queue one request at a time. Being the only
// goroutine that writes the file, touches the mirror's tail and clears the
// topic's continuation state keeps all three in the same order.
func (s *LogStore) runWriter(tl *topicLog) {
	defer s.wg.Done()
	for req := range tl.queue {
		ordinal, err := s.write(tl, req)
		req.promise.Set(ordinal, err)
	}
}

// write performs one append: frame, repair if needed, durable write, and only
// then the mirror update.
func (s *LogStore) write(tl *topicLog, req *appendRequest) (int, error) {
	startTime := time.Now()

	src := req.raw
	if src == nil {
		src = req.rec
	}
	line, err := record.Frame(src)
	if err != nil {
		metrics.AppendFailures.WithLabelValues(tl.name, "invalid").Inc()
		return 0, err
	}
	// The mirror holds exactly what a reload would find on disk.
	stored, err := record.Parse(line)
	if err != nil {
		metrics.AppendFailures.WithLabelValues(tl.name, "invalid").Inc()
		return 0, err
	}

	repair := s.continuation.Pending(tl.name)
	if repair {
		line = append([]byte{record.LF}, line...)
	}

	n, err := appendFile(tl.path, line, s.opts.SyncWrites)
	if err != nil {
		if n > 0 {
			// Part of the line reached the file; start the next one fresh.
			s.continuation.Mark(tl.name)
		}
		metrics.AppendFailures.WithLabelValues(tl.name, "storage").Inc()
		log.Error().Err(err).Str("topic", tl.name).Msg("Failed to append record")
		return 0, &StorageWriteError{Topic: tl.name, Err: err}
	}

	if repair {
		s.continuation.Clear(tl.name)
		metrics.FramingRepairs.Inc()
		log.Info().Str("topic", tl.name).Msg("Repaired missing trailing separator")
	}

	ordinal := tl.mirror.Push(stored)
	if !tl.exists.Swap(true) {
		metrics.Topics.Inc()
	}

	metrics.RecordsAppended.WithLabelValues(tl.name).Inc()
	metrics.LogFileBytes.WithLabelValues(tl.name).Add(float64(len(line)))
	metrics.AppendLatency.WithLabelValues(tl.name).Observe(time.Since(startTime).Seconds())
	return ordinal, nil
}
