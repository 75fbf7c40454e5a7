package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

const (
	LF  = '\n'
	CR  = '\r'
	SP  = ' '
	TAB = '\t'
)

// ErrEmpty is returned when there are no bytes left to parse after trimming.
var ErrEmpty = errors.New("empty record")

// Record is a single JSON value stored as one line in a topic's log file.
type Record json.RawMessage

// SyntaxError reports that a line does not hold exactly one JSON value.
type SyntaxError struct {
	Err error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("invalid JSON record: %v", e.Err)
}

func (e *SyntaxError) Unwrap() error { return e.Err }

// IsSeparator reports whether b terminates a record line.
func IsSeparator(b byte) bool {
	return b == LF || b == CR
}

// IsSpace reports whether b is whitespace that may surround a record.
func IsSpace(b byte) bool {
	return b == SP || b == TAB || b == LF || b == CR
}

// Trim strips the whitespace that may surround a record.
func Trim(data []byte) []byte {
	start, end := 0, len(data)
	for start < end && IsSpace(data[start]) {
		start++
	}
	for end > start && IsSpace(data[end-1]) {
		end--
	}
	return data[start:end]
}

// Parse validates that data holds exactly one JSON value and returns it as a
// Record. The returned record does not alias data.
func Parse(data []byte) (Record, error) {
	line := Trim(data)
	if len(line) == 0 {
		return nil, ErrEmpty
	}
	var raw json.RawMessage
	if err := json.Unmarshal(line, &raw); err != nil {
		return nil, &SyntaxError{Err: err}
	}
	return Record(raw), nil
}

// Encode returns the canonical single-line form of v.
func Encode(v any) (Record, error) {
	switch r := v.(type) {
	case Record:
		return Parse(r)
	case json.RawMessage:
		return Parse(r)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	return Record(data), nil
}

// Frame turns a record's bytes into exactly one log line: surrounding
// whitespace is removed, embedded separators are compacted away and a single
// LF terminates the line.
func Frame(data []byte) ([]byte, error) {
	line := Trim(data)
	if len(line) == 0 {
		return nil, ErrEmpty
	}
	if bytes.IndexByte(line, LF) >= 0 || bytes.IndexByte(line, CR) >= 0 {
		var buf bytes.Buffer
		if err := json.Compact(&buf, line); err != nil {
			return nil, &SyntaxError{Err: err}
		}
		line = buf.Bytes()
	}
	out := make([]byte, 0, len(line)+1)
	out = append(out, line...)
	return append(out, LF), nil
}

// MarshalJSON returns r verbatim so records embed as JSON values.
func (r Record) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("null"), nil
	}
	return r, nil
}

// UnmarshalJSON stores a copy of data.
func (r *Record) UnmarshalJSON(data []byte) error {
	if r == nil {
		return errors.New("record: UnmarshalJSON on nil pointer")
	}
	*r = append((*r)[0:0], data...)
	return nil
}

// Decode unmarshals the record into v.
func (r Record) Decode(v any) error {
	return json.Unmarshal(r, v)
}

// String returns the record's JSON text.
func (r Record) String() string {
	return string(r)
}
