package storage

import (
	"sort"

	"github.com/puzpuzpuz/xsync/v3"
)

// ContinuationTracker remembers which topics' log files ended without a
// trailing separator when they were loaded. The next append to such a topic
// writes a separator first so the old last line and the new record stay on
// separate lines.
//
// State is kept per topic. Only recovery marks a topic and only that topic's
// writer clears it, so appends to one topic never consume another's repair.
type ContinuationTracker struct {
	pending *xsync.MapOf[string, struct{}]
}

// NewContinuationTracker returns an empty tracker.
func NewContinuationTracker() *ContinuationTracker {
	return &ContinuationTracker{
		pending: xsync.NewMapOf[string, struct{}](),
	}
}

// Mark records that topic's file lacks a trailing separator.
func (c *ContinuationTracker) Mark(topic string) {
	c.pending.Store(topic, struct{}{})
}

// Pending reports whether the next append to topic must repair framing.
func (c *ContinuationTracker) Pending(topic string) bool {
	_, ok := c.pending.Load(topic)
	return ok
}

// Clear marks topic's framing as repaired.
func (c *ContinuationTracker) Clear(topic string) {
	c.pending.Delete(topic)
}

// Topics returns the topics awaiting repair, sorted.
func (c *ContinuationTracker) Topics() []string {
	topics := make([]string, 0, c.pending.Size())
	c.pending.Range(func(name string, _ struct{}) bool {
		topics = append(topics, name)
		return true
	})
	sort.Strings(topics)
	return topics
}
