package audit

import (
	"errors"
	"sync"
	"testing"
	"time"

	"mini-eventlog/internal/record"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAppender struct {
	mu      sync.Mutex
	topics  []string
	records []record.Record
	err     error
	entered chan struct{}
	release chan struct{}
}

func (f *fakeAppender) Append(topic string, rec record.Record, raw []byte) (int, error) {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.topics = append(f.topics, topic)
	f.records = append(f.records, rec)
	return len(f.records), nil
}

func TestAuditorWritesEntries(t *testing.T) {
	store := &fakeAppender{}
	a := New(store, "_eventlog", 16)

	a.Log("started", map[string]any{"port": 8080})
	a.Error("load failed", errors.New("boom"), nil)
	a.Close()

	require.Len(t, store.records, 2)
	assert.Equal(t, []string{"_eventlog", "_eventlog"}, store.topics)

	var first, second Entry
	require.NoError(t, store.records[0].Decode(&first))
	require.NoError(t, store.records[1].Decode(&second))

	assert.Equal(t, "started", first.Log)
	assert.EqualValues(t, 8080, first.Fields["port"])
	assert.NotEmpty(t, first.ID)
	assert.WithinDuration(t, time.Now(), first.T, time.Minute)

	assert.Equal(t, "load failed: boom", second.Err)
	assert.Empty(t, second.Log)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestAuditorSwallowsAppendFailures(t *testing.T) {
	store := &fakeAppender{err: errors.New("disk full")}
	a := New(store, "_eventlog", 4)

	assert.True(t, a.Record(NewEntry("one", nil)))
	a.Close()
	assert.Empty(t, store.records)
}

func TestAuditorDropsWhenFull(t *testing.T) {
	store := &fakeAppender{
		entered: make(chan struct{}, 8),
		release: make(chan struct{}),
	}
	a := New(store, "_eventlog", 1)

	require.True(t, a.Record(NewEntry("first", nil)))
	<-store.entered // writer is now blocked inside Append

	require.True(t, a.Record(NewEntry("second", nil)))
	assert.False(t, a.Record(NewEntry("third", nil)))

	close(store.release)
	a.Close()
	assert.Len(t, store.records, 2)
}

func TestAuditorAfterClose(t *testing.T) {
	a := New(&fakeAppender{}, "_eventlog", 1)
	a.Close()
	a.Close()
	assert.False(t, a.Record(NewEntry("late", nil)))
}
