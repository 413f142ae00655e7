package memory

import (
	"testing"

	"github.com/fernsearch/fern/ferrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireWriterRespectsLimit(t *testing.T) {
	b := NewBudget(BudgetConfig{MaxConcurrentWriters: 2, MaxBufferMB: 31, MaxDocMB: 3})

	g1, err := b.AcquireWriter()
	require.NoError(t, err)
	g2, err := b.AcquireWriter()
	require.NoError(t, err)

	_, err = b.AcquireWriter()
	require.Error(t, err)
	var tooMany *ferrors.TooManyConcurrentWritesError
	require.ErrorAs(t, err, &tooMany)
	assert.Equal(t, 2, tooMany.Max)
	assert.Equal(t, 2, b.ActiveWriters())

	g1.Release()
	assert.Equal(t, 1, b.ActiveWriters())

	g3, err := b.AcquireWriter()
	require.NoError(t, err)
	assert.Equal(t, 2, b.ActiveWriters())

	g2.Release()
	g3.Release()
	assert.Equal(t, 0, b.ActiveWriters())
}

func TestReleaseIsIdempotent(t *testing.T) {
	b := NewBudget(BudgetConfig{MaxConcurrentWriters: 1, MaxBufferMB: 31, MaxDocMB: 3})
	g, err := b.AcquireWriter()
	require.NoError(t, err)
	g.Release()
	g.Release()
	assert.Equal(t, 0, b.ActiveWriters())
}

func TestValidateDocumentSize(t *testing.T) {
	b := NewBudget(BudgetConfig{MaxConcurrentWriters: 40, MaxBufferMB: 31, MaxDocMB: 1})
	require.NoError(t, b.ValidateDocumentSize(1024))

	err := b.ValidateDocumentSize(2 * 1024 * 1024)
	require.Error(t, err)
	var tooLarge *ferrors.DocumentTooLargeError
	require.ErrorAs(t, err, &tooLarge)
}

func TestValidateBufferSize(t *testing.T) {
	b := NewBudget(BudgetConfig{MaxConcurrentWriters: 40, MaxBufferMB: 1, MaxDocMB: 3})
	require.NoError(t, b.ValidateBufferSize(512*1024))

	err := b.ValidateBufferSize(2 * 1024 * 1024)
	require.Error(t, err)
	var exceeded *ferrors.BufferSizeExceededError
	require.ErrorAs(t, err, &exceeded)
}
