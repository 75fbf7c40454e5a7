package broker

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"mini-eventlog/internal/record"
	"mini-eventlog/internal/storage"
)

// InputError reports a request the caller must fix: a bad topic name, an
// empty or malformed payload, or an invalid starting ordinal. No state was
// changed.
type InputError struct {
	Reason string
	Err    error
}

func (e *InputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *InputError) Unwrap() error { return e.Err }

// LoadFailedError is returned by New under the refuse startup policy when
// recovery found malformed lines or unreadable files.
type LoadFailedError struct {
	Errors []error
}

func (e *LoadFailedError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("load failed with %d error(s): %s", len(e.Errors), strings.Join(msgs, "; "))
}

// IsInputError reports whether err was caused by bad caller input.
func IsInputError(err error) bool {
	var ie *InputError
	if errors.As(err, &ie) {
		return true
	}
	var se *record.SyntaxError
	return errors.As(err, &se) ||
		errors.Is(err, record.ErrEmpty) ||
		errors.Is(err, storage.ErrInvalidTopic) ||
		errors.Is(err, storage.ErrInvalidOrdinal)
}

// StatusCode maps an error from Produce or Consume to an HTTP status.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case IsInputError(err):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
