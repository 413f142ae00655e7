// Package memory implements the process-wide write budget (component C) and
// heap-pressure observer (component D) described in the engine spec.
package memory

import (
	"os"
	"strconv"
	"sync/atomic"

	"github.com/fernsearch/fern/ferrors"
)

// BudgetConfig holds the three configured limits that gate writer
// concurrency and document/buffer sizing.
type BudgetConfig struct {
	MaxBufferMB          int
	MaxConcurrentWriters int
	MaxDocMB             int
}

// DefaultBudgetConfig returns the spec's documented defaults.
func DefaultBudgetConfig() BudgetConfig {
	return BudgetConfig{
		MaxBufferMB:          31,
		MaxConcurrentWriters: 40,
		MaxDocMB:             3,
	}
}

// BudgetConfigFromEnv reads MAX_BUFFER_MB, MAX_CONCURRENT_WRITERS and
// MAX_DOC_MB, falling back to DefaultBudgetConfig for anything unset or
// unparsable.
func BudgetConfigFromEnv() BudgetConfig {
	cfg := DefaultBudgetConfig()
	if v, ok := intFromEnv("MAX_BUFFER_MB"); ok {
		cfg.MaxBufferMB = v
	}
	if v, ok := intFromEnv("MAX_CONCURRENT_WRITERS"); ok {
		cfg.MaxConcurrentWriters = v
	}
	if v, ok := intFromEnv("MAX_DOC_MB"); ok {
		cfg.MaxDocMB = v
	}
	return cfg
}

func intFromEnv(name string) (int, bool) {
	s := os.Getenv(name)
	if s == "" {
		return 0, false
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return v, true
}

func (c BudgetConfig) bufferBytes() int64 { return int64(c.MaxBufferMB) * 1024 * 1024 }
func (c BudgetConfig) docBytes() int64    { return int64(c.MaxDocMB) * 1024 * 1024 }

// Budget is the process-wide structure gating concurrent writers and
// validating buffer/document sizes. All methods are safe for concurrent use.
type Budget struct {
	maxBufferBytes  int64
	maxDocBytes     int64
	maxWriters      int64
	activeWriters   atomic.Int64
}

// NewBudget constructs a Budget from the given config.
func NewBudget(cfg BudgetConfig) *Budget {
	return &Budget{
		maxBufferBytes: cfg.bufferBytes(),
		maxDocBytes:    cfg.docBytes(),
		maxWriters:     int64(cfg.MaxConcurrentWriters),
	}
}

// Guard releases the writer slot it was issued for on Release. Callers
// should always `defer guard.Release()` immediately after a successful
// AcquireWriter, so the slot is freed even on an error path.
type Guard struct {
	budget *Budget
	once   atomic.Bool
}

// Release decrements the active-writer count. Safe to call more than once;
// only the first call has an effect.
func (g *Guard) Release() {
	if g.once.CompareAndSwap(false, true) {
		g.budget.activeWriters.Add(-1)
	}
}

// AcquireWriter atomically increments the active-writer counter. On
// overflow it decrements back and returns TooManyConcurrentWritesError.
func (b *Budget) AcquireWriter() (*Guard, error) {
	current := b.activeWriters.Add(1)
	if current > b.maxWriters {
		b.activeWriters.Add(-1)
		return nil, &ferrors.TooManyConcurrentWritesError{Current: int(current), Max: int(b.maxWriters)}
	}
	return &Guard{budget: b}, nil
}

// ActiveWriters reports the current count of acquired-but-unreleased writer
// guards.
func (b *Budget) ActiveWriters() int { return int(b.activeWriters.Load()) }

// MaxConcurrentWriters reports the configured ceiling.
func (b *Budget) MaxConcurrentWriters() int { return int(b.maxWriters) }

// ValidateBufferSize fails with BufferSizeExceededError if requested exceeds
// the configured per-writer arena size.
func (b *Budget) ValidateBufferSize(requested int64) error {
	if requested > b.maxBufferBytes {
		return &ferrors.BufferSizeExceededError{Requested: int(requested), Max: int(b.maxBufferBytes)}
	}
	return nil
}

// ValidateDocumentSize fails with DocumentTooLargeError if size exceeds
// max_doc_mb.
func (b *Budget) ValidateDocumentSize(size int64) error {
	if size > b.maxDocBytes {
		return &ferrors.DocumentTooLargeError{Size: int(size), Max: int(b.maxDocBytes)}
	}
	return nil
}

// ResetForTest zeroes the active-writer counter. Test-only escape hatch,
// mirroring the teacher's reset_for_test helpers used across table-driven
// suites that share process state.
func (b *Budget) ResetForTest() {
	b.activeWriters.Store(0)
}
