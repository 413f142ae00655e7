package writer

import (
	"sync"
	"testing"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fernsearch/fern/ferrors"
	"github.com/fernsearch/fern/memory"
	"github.com/fernsearch/fern/oplog"
)

// fakeIndex implements the writer.Index interface without a real on-disk
// bleve index, recording each batch it receives. When gate is non-nil,
// Batch blocks until the test sends on it, letting tests force the
// consumer goroutine to stall so the command queue backs up.
type fakeIndex struct {
	mu        sync.Mutex
	batches   []*bleve.Batch
	failNextN int
	gate      chan struct{}
}

func (f *fakeIndex) NewBatch() *bleve.Batch { return bleve.NewBatch() }

func (f *fakeIndex) Batch(b *bleve.Batch) error {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNextN > 0 {
		f.failNextN--
		return assert.AnError
	}
	f.batches = append(f.batches, b)
	return nil
}

func (f *fakeIndex) batchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

func newTestWriter(t *testing.T, idx *fakeIndex) (*ManagedWriter, *memory.Budget) {
	t.Helper()
	budget := memory.NewBudget(memory.BudgetConfig{MaxConcurrentWriters: 10, MaxBufferMB: 31, MaxDocMB: 3})
	l, err := oplog.Open(t.TempDir(), "tenant-a")
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })

	w, err := New("tenant-a", idx, budget, l, 10)
	require.NoError(t, err)
	return w, budget
}

func submitAndWait(t *testing.T, w *ManagedWriter, cmd *Command) error {
	t.Helper()
	cmd.Done = make(chan error, 1)
	require.NoError(t, w.Submit(cmd))
	select {
	case err := <-cmd.Done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for command to complete")
		return nil
	}
}

func TestWriterUpsertCommits(t *testing.T) {
	idx := &fakeIndex{}
	w, budget := newTestWriter(t, idx)
	defer w.Close()

	err := submitAndWait(t, w, &Command{
		Kind:         CommandUpsert,
		Upserts:      []IndexOp{{ID: "doc-1", Doc: map[string]interface{}{"_id": "doc-1"}}},
		OplogKind:    "add_documents",
		OplogPayload: []byte(`{}`),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, idx.batchCount())
	assert.Equal(t, 1, budget.ActiveWriters())
}

func TestWriterTearsDownOnCommitFailure(t *testing.T) {
	idx := &fakeIndex{failNextN: 1}
	w, _ := newTestWriter(t, idx)
	defer w.Close()

	err := submitAndWait(t, w, &Command{
		Kind:         CommandUpsert,
		Upserts:      []IndexOp{{ID: "doc-1", Doc: map[string]interface{}{"_id": "doc-1"}}},
		OplogKind:    "add_documents",
		OplogPayload: []byte(`{}`),
	})
	require.Error(t, err)
	assert.True(t, w.Failed())

	err = submitAndWait(t, w, &Command{
		Kind:         CommandUpsert,
		Upserts:      []IndexOp{{ID: "doc-2", Doc: map[string]interface{}{"_id": "doc-2"}}},
		OplogKind:    "add_documents",
		OplogPayload: []byte(`{}`),
	})
	require.Error(t, err)
}

func TestWriterQueueFullYieldsQueueFullError(t *testing.T) {
	idx := &fakeIndex{gate: make(chan struct{})}
	budget := memory.NewBudget(memory.BudgetConfig{MaxConcurrentWriters: 10, MaxBufferMB: 31, MaxDocMB: 3})
	l, err := oplog.Open(t.TempDir(), "tenant-a")
	require.NoError(t, err)
	defer l.Close()

	w, err := New("tenant-a", idx, budget, l, 1)
	require.NoError(t, err)
	defer func() {
		close(idx.gate)
		w.Close()
	}()

	// The first command is picked up immediately and blocks inside Batch
	// on idx.gate, so it never reaches the Done channel and never frees a
	// queue slot.
	first := &Command{Kind: CommandUpsert, OplogKind: "k", OplogPayload: []byte(`{}`), Done: make(chan error, 1)}
	require.NoError(t, w.Submit(first))
	time.Sleep(50 * time.Millisecond)

	second := &Command{Kind: CommandUpsert, OplogKind: "k", OplogPayload: []byte(`{}`), Done: make(chan error, 1)}
	require.NoError(t, w.Submit(second))

	third := &Command{Kind: CommandUpsert, OplogKind: "k", OplogPayload: []byte(`{}`), Done: make(chan error, 1)}
	err = w.Submit(third)
	require.Error(t, err)
	var full *ferrors.QueueFullError
	require.ErrorAs(t, err, &full)
}

func TestWriterSubmitAfterFailureIsRejected(t *testing.T) {
	idx := &fakeIndex{failNextN: 1}
	w, _ := newTestWriter(t, idx)
	defer w.Close()

	_ = submitAndWait(t, w, &Command{
		Kind:         CommandUpsert,
		Upserts:      []IndexOp{{ID: "doc-1", Doc: map[string]interface{}{"_id": "doc-1"}}},
		OplogKind:    "add_documents",
		OplogPayload: []byte(`{}`),
	})
	require.True(t, w.Failed())

	err := w.Submit(&Command{Kind: CommandUpsert, Done: make(chan error, 1)})
	require.Error(t, err)
}
