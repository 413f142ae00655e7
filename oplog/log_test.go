package oplog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAssignsStrictlyIncreasingSeq(t *testing.T) {
	dir := t.TempDir()
	l, err := Open(dir, "tenant-a")
	require.NoError(t, err)
	defer l.Close()

	e1, err := l.Append("add_documents", []byte(`{"n":1}`))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), e1.Seq)

	e2, err := l.Append("add_documents", []byte(`{"n":2}`))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), e2.Seq)

	assert.Equal(t, uint64(3), l.NextSeq())
}

func TestOpenRecoversHighestSeq(t *testing.T) {
	dir := t.TempDir()
	l, err := Open(dir, "tenant-a")
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err := l.Append("k", []byte(`{}`))
		require.NoError(t, err)
	}
	require.NoError(t, l.Close())

	l2, err := Open(dir, "tenant-a")
	require.NoError(t, err)
	defer l2.Close()
	assert.Equal(t, uint64(6), l2.NextSeq())
}

func TestReadAllReturnsEntriesInOrder(t *testing.T) {
	dir := t.TempDir()
	l, err := Open(dir, "tenant-a")
	require.NoError(t, err)
	defer l.Close()

	for i := 0; i < 3; i++ {
		_, err := l.Append("k", []byte(`{}`))
		require.NoError(t, err)
	}

	all, err := l.ReadAll()
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, uint64(1), all[0].Seq)
	assert.Equal(t, uint64(2), all[1].Seq)
	assert.Equal(t, uint64(3), all[2].Seq)
}

func TestSinceSeqFiltersOlderEntries(t *testing.T) {
	dir := t.TempDir()
	l, err := Open(dir, "tenant-a")
	require.NoError(t, err)
	defer l.Close()

	for i := 0; i < 5; i++ {
		_, err := l.Append("k", []byte(`{}`))
		require.NoError(t, err)
	}

	entries, err := l.SinceSeq(3)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, uint64(4), entries[0].Seq)
	assert.Equal(t, uint64(5), entries[1].Seq)
}

func TestCompactDropsEntriesButPreservesSeq(t *testing.T) {
	dir := t.TempDir()
	l, err := Open(dir, "tenant-a")
	require.NoError(t, err)
	defer l.Close()

	for i := 0; i < 4; i++ {
		_, err := l.Append("k", []byte(`{}`))
		require.NoError(t, err)
	}

	err = l.Compact(func(e Entry) bool { return e.Seq%2 == 0 })
	require.NoError(t, err)

	all, err := l.ReadAll()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, uint64(2), all[0].Seq)
	assert.Equal(t, uint64(4), all[1].Seq)

	// a subsequent append still continues the pre-compaction sequence
	e, err := l.Append("k", []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, uint64(5), e.Seq)
}
