// internal/storage/storage.go
package storage

import (
	"errors"
	"fmt"
	"io"

	"mini-eventlog/internal/record"
	"mini-eventlog/internal/topic"

	"github.com/jizhuozhi/go-future"
)

// DefaultWindowSize is the maximum number of records returned by one read.
const DefaultWindowSize = 4096

var (
	// ErrClosed is returned for appends issued after Close.
	ErrClosed = errors.New("log store is closed")

	// ErrInvalidOrdinal is returned for reads starting below ordinal 1.
	ErrInvalidOrdinal = errors.New("ordinal must be a positive integer")

	// ErrInvalidTopic is returned for topic names that are not path-safe.
	ErrInvalidTopic = errors.New("invalid topic name")
)

// Store defines the append/read contract of the event log. It must be safe
// for concurrent use.
type Store interface {
	// Append durably writes a record to the topic's log file and then adds it
	// to the in-memory mirror. raw, when non-nil, is written instead of the
	// canonical encoding of rec. It returns the record's 1-based ordinal.
	Append(topic string, rec record.Record, raw []byte) (int, error)

	// AppendAsync enqueues an append on the topic's writer and returns
	// immediately. Appends to one topic complete in submission order.
	AppendAsync(topic string, rec record.Record, raw []byte) *future.Future[int]

	// Read returns up to the configured window of records starting at the
	// 1-based ordinal from. Unknown topics yield an empty window.
	Read(topic string, from int) (Window, error)

	// Topics lists the topics currently held in memory.
	Topics() []topic.Info

	io.Closer
}

// Window is the result of a read.
type Window struct {
	Records []record.Record `json:"records"`
	// Last is the ordinal of the last record returned, or from-1 when the
	// window is empty.
	Last int `json:"last"`
}

// ParseError reports a line of a log file that is not a JSON value. The line
// is excluded from the mirror and left on disk untouched.
type ParseError struct {
	File string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %v", e.File, e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// FileReadError reports a topic file that could not be read during recovery.
type FileReadError struct {
	File string
	Err  error
}

func (e *FileReadError) Error() string {
	return fmt.Sprintf("failed to read %s: %v", e.File, e.Err)
}

func (e *FileReadError) Unwrap() error { return e.Err }

// DirectoryError reports that the storage directory could not be listed. It is
// the only recovery failure that aborts loading.
type DirectoryError struct {
	Dir string
	Err error
}

func (e *DirectoryError) Error() string {
	return fmt.Sprintf("failed to list storage directory %s: %v", e.Dir, e.Err)
}

func (e *DirectoryError) Unwrap() error { return e.Err }

// StorageWriteError reports a failed durable append. The mirror is unchanged.
type StorageWriteError struct {
	Topic string
	Err   error
}

func (e *StorageWriteError) Error() string {
	return fmt.Sprintf("failed to append to topic %s: %v", e.Topic, e.Err)
}

func (e *StorageWriteError) Unwrap() error { return e.Err }
