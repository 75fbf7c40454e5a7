package storage

import (
	"fmt"
	"sort"
	"sync"

	"mini-eventlog/internal/metrics"
	"mini-eventlog/internal/record"
	"mini-eventlog/internal/topic"

	"github.com/jizhuozhi/go-future"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog/log"
)

// Options tunes a LogStore.
type Options struct {
	// WindowSize caps the records returned by Read. Defaults to 4096.
	WindowSize int
	// SyncWrites fsyncs the log file after every append.
	SyncWrites bool
	// QueueDepth is the number of appends buffered per topic.
	QueueDepth int
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{
		WindowSize: DefaultWindowSize,
		QueueDepth: 256,
	}
}

// LogStore keeps one newline-delimited JSON file per topic in a directory and
// mirrors every topic in memory.
type LogStore struct {
	dir          string
	opts         Options
	topics       *xsync.MapOf[string, *topicLog]
	continuation *ContinuationTracker

	// mu guards closed against queue sends; appends hold it shared.
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

var _ Store = (*LogStore)(nil)

// Open recovers dir and returns a store serving its topics. The Recovery is
// returned even when err is non-nil; err is only set when dir could not be
// listed, in which case no store is returned. Whether the non-fatal errors in
// Recovery should stop the caller from serving is the caller's decision.
func Open(dir string, opts Options) (*LogStore, *Recovery, error) {
	if opts.WindowSize <= 0 {
		opts.WindowSize = DefaultWindowSize
	}
	if opts.QueueDepth <= 0 {
		opts.QueueDepth = DefaultOptions().QueueDepth
	}

	rec, err := Recover(dir)
	if err != nil {
		return nil, rec, err
	}

	s := &LogStore{
		dir:          dir,
		opts:         opts,
		topics:       xsync.NewMapOf[string, *topicLog](),
		continuation: NewContinuationTracker(),
	}
	for name, mirror := range rec.Mirrors {
		tl := newTopicLog(dir, name, mirror, opts.QueueDepth)
		tl.exists.Store(true)
		s.topics.Store(name, tl)
	}
	for _, name := range rec.Pending {
		s.continuation.Mark(name)
	}
	metrics.Topics.Set(float64(len(rec.Mirrors)))

	log.Info().
		Str("dir", dir).
		Int("topics", len(rec.Mirrors)).
		Int("records", rec.Records()).
		Int("errors", len(rec.Errors)).
		Msg("Recovered log store")

	return s, rec, nil
}

// Dir returns the storage directory.
func (s *LogStore) Dir() string {
	return s.dir
}

// WindowSize returns the maximum number of records a Read returns.
func (s *LogStore) WindowSize() int {
	return s.opts.WindowSize
}

// Continuation exposes the per-topic framing repair state.
func (s *LogStore) Continuation() *ContinuationTracker {
	return s.continuation
}

// Append implements Store.
func (s *LogStore) Append(name string, rec record.Record, raw []byte) (int, error) {
	return s.AppendAsync(name, rec, raw).Get()
}

// AppendAsync implements Store.
func (s *LogStore) AppendAsync(name string, rec record.Record, raw []byte) *future.Future[int] {
	p := future.NewPromise[int]()

	if err := topic.Validate(name); err != nil {
		metrics.AppendFailures.WithLabelValues("", "invalid").Inc()
		p.Set(0, fmt.Errorf("%w: %v", ErrInvalidTopic, err))
		return p.Future()
	}
	if rec == nil && raw == nil {
		p.Set(0, record.ErrEmpty)
		return p.Future()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		p.Set(0, ErrClosed)
		return p.Future()
	}

	tl, _ := s.topics.LoadOrCompute(name, func() *topicLog {
		return newTopicLog(s.dir, name, nil, s.opts.QueueDepth)
	})
	tl.start(s)
	tl.queue <- &appendRequest{rec: rec, raw: raw, promise: p}
	return p.Future()
}

// Read implements Store using the configured window size.
func (s *LogStore) Read(name string, from int) (Window, error) {
	return s.ReadWindow(name, from, s.opts.WindowSize)
}

// ReadWindow returns at most size records of topic name starting at the
// 1-based ordinal from. A non-positive size means the configured window.
func (s *LogStore) ReadWindow(name string, from, size int) (Window, error) {
	if from < 1 {
		return Window{Records: []record.Record{}}, ErrInvalidOrdinal
	}
	if size <= 0 || size > s.opts.WindowSize {
		size = s.opts.WindowSize
	}

	tl, ok := s.topics.Load(name)
	if !ok {
		return Window{Records: []record.Record{}, Last: from - 1}, nil
	}

	w := tl.mirror.Window(from, size)
	if len(w.Records) > 0 {
		metrics.RecordsRead.WithLabelValues(name).Add(float64(len(w.Records)))
	}
	return w, nil
}

// Len returns the number of records in topic name.
func (s *LogStore) Len(name string) int {
	tl, ok := s.topics.Load(name)
	if !ok {
		return 0
	}
	return tl.mirror.Len()
}

// Topics implements Store.
func (s *LogStore) Topics() []topic.Info {
	infos := make([]topic.Info, 0, s.topics.Size())
	s.topics.Range(func(name string, tl *topicLog) bool {
		if tl.exists.Load() {
			infos = append(infos, topic.Info{Name: name, Records: tl.mirror.Len()})
		}
		return true
	})
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// Close stops accepting appends, lets every writer drain its queue and waits
// for them to finish.
func (s *LogStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.topics.Range(func(_ string, tl *topicLog) bool {
		if tl.started.Load() {
			close(tl.queue)
		}
		return true
	})
	s.mu.Unlock()

	s.wg.Wait()
	log.Info().Str("dir", s.dir).Msg("Log store closed")
	return nil
}
