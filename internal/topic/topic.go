package topic

import (
	"fmt"
	"strings"
)

// AuditTopic is the reserved topic holding the server's own audit entries.
// It is written through the ordinary append path.
const AuditTopic = "_eventlog"

// MaxNameLength bounds topic names to what common filesystems accept.
const MaxNameLength = 255

// Info describes a topic known to the store.
type Info struct {
	Name    string `json:"name"`
	Records int    `json:"records"`
}

// IsHidden reports whether a directory entry is hidden and so never a topic.
func IsHidden(name string) bool {
	return name == "" || name[0] == '.'
}

// Validate checks that name can be used verbatim as a file name inside the
// storage directory.
func Validate(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("topic name is required")
	case len(name) > MaxNameLength:
		return fmt.Errorf("topic name exceeds %d bytes", MaxNameLength)
	case IsHidden(name):
		return fmt.Errorf("topic %q is hidden", name)
	case strings.ContainsAny(name, "/\\\x00"):
		return fmt.Errorf("topic %q contains a path separator", name)
	}
	return nil
}
