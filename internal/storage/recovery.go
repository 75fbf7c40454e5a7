package storage

import (
	"os"
	"path/filepath"

	"mini-eventlog/internal/metrics"
	"mini-eventlog/internal/topic"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog/log"
)

// Recovery is what Recover found in a storage directory.
type Recovery struct {
	// Mirrors holds the loaded records of every readable topic file.
	Mirrors map[string]*Mirror
	// Pending lists topics whose file ended without a trailing separator.
	Pending []string
	// Errors holds every non-fatal *ParseError and *FileReadError.
	Errors []error
}

// Err aggregates the non-fatal errors, or returns nil if loading was clean.
func (r *Recovery) Err() error {
	var result *multierror.Error
	for _, err := range r.Errors {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

// Records returns the total number of records loaded.
func (r *Recovery) Records() int {
	total := 0
	for _, m := range r.Mirrors {
		total += m.Len()
	}
	return total
}

// Recover loads every non-hidden file in dir as a topic. Malformed lines and
// unreadable files are recorded in the returned Recovery and loading carries
// on; only a failure to list dir is returned as an error, together with
// whatever was loaded so far.
func Recover(dir string) (*Recovery, error) {
	rec := &Recovery{Mirrors: make(map[string]*Mirror)}

	// os.ReadDir sorts by name; nothing below depends on that order.
	entries, err := os.ReadDir(dir)
	if err != nil {
		metrics.RecoveryErrors.WithLabelValues("directory").Inc()
		return rec, &DirectoryError{Dir: dir, Err: err}
	}

	for _, entry := range entries {
		name := entry.Name()
		if topic.IsHidden(name) {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Warn().Err(err).Str("file", name).Msg("Failed to read topic file")
			metrics.RecoveryErrors.WithLabelValues("read").Inc()
			rec.Errors = append(rec.Errors, &FileReadError{File: name, Err: err})
			continue
		}

		framed := Frame(data)
		for _, le := range framed.Errors {
			log.Warn().Err(le.Err).Str("file", name).Int("line", le.Line).Msg("Skipping malformed record")
			metrics.RecoveryErrors.WithLabelValues("parse").Inc()
			rec.Errors = append(rec.Errors, &ParseError{File: name, Line: le.Line, Err: le.Err})
		}
		if framed.MissingTrailingSeparator {
			rec.Pending = append(rec.Pending, name)
		}

		rec.Mirrors[name] = NewMirror(framed.Records)
		metrics.RecoveredRecords.Add(float64(len(framed.Records)))
		log.Debug().Str("topic", name).Int("records", len(framed.Records)).Msg("Loaded topic")
	}

	return rec, nil
}
