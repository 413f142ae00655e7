package task

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForStatus(t *testing.T, q *Queue, id string, want Status) Info {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		info, ok := q.Status(id)
		require.True(t, ok)
		if info.Status != StatusProcessing {
			require.Equal(t, want, info.Status)
			return info
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("task %s did not leave Processing in time", id)
	return Info{}
}

func TestSubmitSucceeds(t *testing.T) {
	q := NewQueue(4)
	defer q.Close()

	require.NoError(t, q.Submit("t1", func() error { return nil }))
	waitForStatus(t, q, "t1", StatusSucceeded)
}

func TestSubmitFailureRecordsReason(t *testing.T) {
	q := NewQueue(4)
	defer q.Close()

	require.NoError(t, q.Submit("t1", func() error { return errors.New("boom") }))
	info := waitForStatus(t, q, "t1", StatusFailed)
	assert.Equal(t, "boom", info.Reason)
}

func TestStatusUnknownIDNotOK(t *testing.T) {
	q := NewQueue(4)
	defer q.Close()
	_, ok := q.Status("missing")
	assert.False(t, ok)
}

func TestSubmitFullQueueRejects(t *testing.T) {
	q := NewQueue(1)
	defer q.Close()

	started := make(chan struct{})
	block := make(chan struct{})
	require.NoError(t, q.Submit("first", func() error { close(started); <-block; return nil }))
	<-started // worker has dequeued "first"; the capacity-1 buffer is empty again

	require.NoError(t, q.Submit("second", func() error { return nil }))
	err := q.Submit("third", func() error { return nil })
	assert.Error(t, err)

	close(block)
}
