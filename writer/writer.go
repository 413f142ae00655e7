// Package writer implements the per-tenant managed index writer
// (component E): a single-consumer FIFO command queue serialized against
// one bleve.Index, gated by the memory budget, with commit batching and
// teardown-on-failure semantics.
package writer

import (
	"sync"
	"sync/atomic"

	"github.com/blevesearch/bleve/v2"

	"github.com/fernsearch/fern/ferrors"
	"github.com/fernsearch/fern/memory"
	"github.com/fernsearch/fern/oplog"
)

// DefaultQueueCapacity is the spec's documented default command queue
// bound.
const DefaultQueueCapacity = 100

// CommandKind discriminates the operations a ManagedWriter applies. Add/
// Update commands batch together across consecutive queue entries;
// DeleteByQuery always commits alone.
type CommandKind int

const (
	CommandUpsert CommandKind = iota
	CommandDeleteByQuery
)

// Index is the narrow slice of bleve.Index's surface the writer actually
// drives. Any *bleve.Index satisfies it; defining it locally lets tests
// substitute a lightweight fake instead of standing up a real on-disk
// index.
type Index interface {
	NewBatch() *bleve.Batch
	Batch(b *bleve.Batch) error
}

// IndexOp is one document to upsert: its ID and the bleve-indexable field
// map built by the schema package (search terms, numeric fast fields,
// facet paths, stored body).
type IndexOp struct {
	ID  string
	Doc map[string]interface{}
}

// Command is one unit of work submitted to a tenant's writer. OplogKind and
// OplogPayload are what gets appended to the durable log before the index
// commit runs. Done receives exactly one error (nil on success) and is
// always closed-after-send by the writer goroutine.
type Command struct {
	Kind CommandKind

	Upserts   []IndexOp
	DeleteIDs []string

	OplogKind    string
	OplogPayload []byte

	// Entry is filled in with the durable oplog record once appended, for
	// callers (replication fan-out) that need to know what was just made
	// visible.
	Entry oplog.Entry

	Done chan error
}

// ManagedWriter owns one tenant's bleve.Index writer, its memory-budget
// guard, and its oplog. Exactly one goroutine (run) ever calls into the
// index, so no additional locking is needed around bleve calls.
type ManagedWriter struct {
	tenant string
	index  Index
	guard  *memory.Guard
	log    *oplog.Log

	queue chan *Command

	failed atomic.Bool
	wg     sync.WaitGroup

	closeOnce sync.Once
	closeCh   chan struct{}
}

// New acquires a writer slot from budget and starts the consumer goroutine.
// The caller must call Close when done with the writer (e.g. on eviction),
// which stops the consumer after draining anything already queued.
func New(tenant string, index Index, budget *memory.Budget, log *oplog.Log, queueCapacity int) (*ManagedWriter, error) {
	guard, err := budget.AcquireWriter()
	if err != nil {
		return nil, err
	}
	if queueCapacity <= 0 {
		queueCapacity = DefaultQueueCapacity
	}
	w := &ManagedWriter{
		tenant:  tenant,
		index:   index,
		guard:   guard,
		log:     log,
		queue:   make(chan *Command, queueCapacity),
		closeCh: make(chan struct{}),
	}
	w.wg.Add(1)
	go w.run()
	return w, nil
}

// Submit enqueues a command without blocking. A full queue yields
// QueueFullError (backpressure); a torn-down writer yields a generic
// I/O-kind error telling the caller to re-create the writer.
func (w *ManagedWriter) Submit(cmd *Command) error {
	if w.failed.Load() {
		return ferrors.New(ferrors.KindIO, "writer torn down after failure; re-create before submitting")
	}
	select {
	case <-w.closeCh:
		return ferrors.New(ferrors.KindIO, "writer closed; re-create before submitting")
	default:
	}
	select {
	case w.queue <- cmd:
		return nil
	default:
		return &ferrors.QueueFullError{Tenant: w.tenant}
	}
}

// Failed reports whether the writer has torn itself down after a commit
// error. The manager should discard and recreate it.
func (w *ManagedWriter) Failed() bool { return w.failed.Load() }

// Close stops accepting new work and waits for the consumer goroutine to
// drain what's already queued, then releases the memory-budget guard.
func (w *ManagedWriter) Close() {
	w.closeOnce.Do(func() { close(w.closeCh) })
	w.wg.Wait()
	w.guard.Release()
}

func (w *ManagedWriter) run() {
	defer w.wg.Done()
	for {
		select {
		case first := <-w.queue:
			w.drainAndCommit(first)
		case <-w.closeCh:
			w.drainRemaining()
			return
		}
	}
}

// drainAndCommit batches first together with any immediately-available
// compatible (same-kind, upsert) commands already sitting in the queue,
// commits them as one batch, and acks every batched command. A
// DeleteByQuery command is never batched with others.
func (w *ManagedWriter) drainAndCommit(first *Command) {
	if first.Kind == CommandDeleteByQuery {
		w.commitOne(first)
		return
	}

	batch := []*Command{first}
drain:
	for {
		select {
		case next := <-w.queue:
			if next.Kind != CommandUpsert {
				w.commitBatch(batch)
				w.commitOne(next)
				return
			}
			batch = append(batch, next)
		default:
			break drain
		}
	}
	w.commitBatch(batch)
}

func (w *ManagedWriter) drainRemaining() {
	for {
		select {
		case cmd := <-w.queue:
			if cmd.Kind == CommandDeleteByQuery {
				w.commitOne(cmd)
			} else {
				w.commitBatch([]*Command{cmd})
			}
		default:
			return
		}
	}
}

func (w *ManagedWriter) commitBatch(cmds []*Command) {
	if w.failed.Load() {
		failAll(cmds, ferrors.New(ferrors.KindIO, "writer already torn down"))
		return
	}

	for _, cmd := range cmds {
		entry, err := w.log.Append(cmd.OplogKind, cmd.OplogPayload)
		if err != nil {
			w.teardown()
			failAll(cmds, err)
			return
		}
		cmd.Entry = entry
	}

	b := w.index.NewBatch()
	for _, cmd := range cmds {
		for _, op := range cmd.Upserts {
			if err := b.Index(op.ID, op.Doc); err != nil {
				w.teardown()
				failAll(cmds, ferrors.Wrap(ferrors.KindIO, "stage batch index op", err))
				return
			}
		}
		for _, id := range cmd.DeleteIDs {
			b.Delete(id)
		}
	}

	if err := w.index.Batch(b); err != nil {
		w.teardown()
		failAll(cmds, ferrors.Wrap(ferrors.KindIO, "commit batch", err))
		return
	}

	for _, cmd := range cmds {
		cmd.Done <- nil
		close(cmd.Done)
	}
}

func (w *ManagedWriter) commitOne(cmd *Command) {
	if w.failed.Load() {
		cmd.Done <- ferrors.New(ferrors.KindIO, "writer already torn down")
		close(cmd.Done)
		return
	}

	entry, err := w.log.Append(cmd.OplogKind, cmd.OplogPayload)
	if err != nil {
		w.teardown()
		cmd.Done <- err
		close(cmd.Done)
		return
	}
	cmd.Entry = entry

	b := w.index.NewBatch()
	for _, id := range cmd.DeleteIDs {
		b.Delete(id)
	}
	if err := w.index.Batch(b); err != nil {
		w.teardown()
		cmd.Done <- ferrors.Wrap(ferrors.KindIO, "commit delete_by_query batch", err)
		close(cmd.Done)
		return
	}

	cmd.Done <- nil
	close(cmd.Done)
}

func (w *ManagedWriter) teardown() {
	w.failed.Store(true)
}

func failAll(cmds []*Command, err error) {
	for _, cmd := range cmds {
		cmd.Done <- err
		close(cmd.Done)
	}
}
