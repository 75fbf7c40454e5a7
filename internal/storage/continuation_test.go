package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContinuationTracker(t *testing.T) {
	c := NewContinuationTracker()
	assert.False(t, c.Pending("orders"))

	c.Mark("orders")
	c.Mark("users")
	assert.True(t, c.Pending("orders"))
	assert.Equal(t, []string{"orders", "users"}, c.Topics())

	c.Clear("users")
	assert.True(t, c.Pending("orders"))
	assert.False(t, c.Pending("users"))
	assert.Equal(t, []string{"orders"}, c.Topics())
}
