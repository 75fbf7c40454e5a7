package storage

import (
	"mini-eventlog/internal/record"
)

// LineError is a single unparseable line found while framing a buffer.
type LineError struct {
	Line int
	Err  error
}

// FrameResult is the outcome of splitting a buffer into records.
type FrameResult struct {
	Records []record.Record
	Errors  []LineError
	// MissingTrailingSeparator is set when the last non-blank line of the
	// buffer is not followed by LF or CR.
	MissingTrailingSeparator bool
}

// Frame splits buf into records. Any LF or CR ends a line; whitespace around
// a line is ignored and blank lines are skipped. Lines that are not a single
// JSON value are reported in Errors and dropped.
//
// Line numbers count physical lines, so a CRLF pair ends one line.
func Frame(buf []byte) FrameResult {
	var res FrameResult
	line, start := 1, 0
	for i, b := range buf {
		if !record.IsSeparator(b) {
			continue
		}
		res.add(buf[start:i], line)
		start = i + 1
		if b == record.LF || i+1 == len(buf) || buf[i+1] != record.LF {
			line++
		}
	}
	// start == len(buf) whenever buf ends in a separator, so a non-blank tail
	// is exactly the unterminated case.
	res.MissingTrailingSeparator = res.add(buf[start:], line)
	return res
}

// add parses one span and reports whether it held anything but whitespace.
func (r *FrameResult) add(span []byte, line int) bool {
	if len(record.Trim(span)) == 0 {
		return false
	}
	rec, err := record.Parse(span)
	if err != nil {
		r.Errors = append(r.Errors, LineError{Line: line, Err: err})
		return true
	}
	r.Records = append(r.Records, rec)
	return true
}
