// internal/storage/logfile.go
package storage

import (
	"fmt"
	"os"
)

// appendFile durably appends data to the log file at path, creating it if
// needed. It returns the number of bytes that reached the file so callers can
// tell a partial write from one that never started.
func appendFile(path string, data []byte, sync bool) (int, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return 0, err
	}

	n, err := file.Write(data)
	if err != nil {
		file.Close()
		return n, err
	}

	if sync {
		if err := file.Sync(); err != nil {
			file.Close()
			return n, fmt.Errorf("failed to sync %s: %w", path, err)
		}
	}

	return n, file.Close()
}
