// Package oplog implements the per-tenant append-only command log
// (component F): one JSON object per line, strictly increasing seq
// numbers recovered on startup, fsync-before-ack durability, and
// segment rotation with atomic write-then-rename compaction.
package oplog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"

	"github.com/fernsearch/fern/ferrors"
)

// maxSegmentBytes is the rotation threshold for a single log segment.
const maxSegmentBytes = 64 * 1024 * 1024

// Entry is one record in the log. Payload is kept as raw JSON so the log
// never needs to understand the shape of a given command kind.
type Entry struct {
	Seq       uint64          `json:"seq"`
	Kind      string          `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp int64           `json:"timestamp"`
}

// Log is one tenant's append-only oplog: a directory of zero-padded
// segment files, the last of which is open for appending.
type Log struct {
	dir     string
	tenant  string
	mu      sync.Mutex
	file    *os.File
	segIdx  int
	segSize int64
	nextSeq uint64
}

func segmentName(idx int) string {
	return fmt.Sprintf("%06d.jsonl", idx)
}

func tenantDir(root, tenant string) string {
	return filepath.Join(root, "oplog", tenant)
}

// Open recovers (or creates) the tenant's log under root/oplog/<tenant>,
// scanning back from the highest-numbered segment to the newest one that
// holds an entry to recover the next sequence number (a freshly rotated
// last segment is empty), and opens the highest-numbered segment for
// appending.
func Open(root, tenant string) (*Log, error) {
	dir := tenantDir(root, tenant)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, ferrors.Wrap(ferrors.KindIO, "create oplog dir", err)
	}

	segments, err := listSegments(dir)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.KindIO, "list oplog segments", err)
	}

	l := &Log{dir: dir, tenant: tenant, nextSeq: 1}

	if len(segments) == 0 {
		l.segIdx = 0
		f, err := os.OpenFile(filepath.Join(dir, segmentName(0)), os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
		if err != nil {
			return nil, ferrors.Wrap(ferrors.KindIO, "create first oplog segment", err)
		}
		l.file = f
		return l, nil
	}

	last := segments[len(segments)-1]
	l.segIdx = last
	for i := len(segments) - 1; i >= 0; i-- {
		maxSeq, size, err := scanSegment(filepath.Join(dir, segmentName(segments[i])))
		if err != nil {
			return nil, err
		}
		if i == len(segments)-1 {
			l.segSize = size
		}
		if maxSeq > 0 {
			l.nextSeq = maxSeq + 1
			break
		}
	}

	f, err := os.OpenFile(filepath.Join(dir, segmentName(last)), os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.KindIO, "open oplog segment for append", err)
	}
	l.file = f
	return l, nil
}

func listSegments(dir string) ([]int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var idxs []int
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".jsonl") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(name, ".jsonl"))
		if err != nil {
			continue
		}
		idxs = append(idxs, n)
	}
	sort.Ints(idxs)
	return idxs, nil
}

func scanSegment(path string) (maxSeq uint64, size int64, err error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, 0, nil
		}
		return 0, 0, ferrors.Wrap(ferrors.KindIO, "open oplog segment for scan", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Entry
		if err := sonic.Unmarshal(line, &e); err != nil {
			// A partial final line from an unclean shutdown; stop
			// recovery here rather than fail it outright.
			break
		}
		if e.Seq > maxSeq {
			maxSeq = e.Seq
		}
		size += int64(len(line)) + 1
	}
	return maxSeq, size, nil
}

// Append assigns the next sequence number, writes the entry as a single
// JSON line, and fsyncs before returning — the write is not acknowledged
// to the caller until this returns successfully. Rotation to a new
// segment happens after the write if the current segment has crossed
// maxSegmentBytes.
func (l *Log) Append(kind string, payload []byte) (Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e := Entry{
		Seq:       l.nextSeq,
		Kind:      kind,
		Payload:   json.RawMessage(payload),
		Timestamp: time.Now().Unix(),
	}
	line, err := sonic.Marshal(&e)
	if err != nil {
		return Entry{}, ferrors.Wrap(ferrors.KindIO, "marshal oplog entry", err)
	}
	line = append(line, '\n')

	if _, err := l.file.Write(line); err != nil {
		return Entry{}, ferrors.Wrap(ferrors.KindIO, "write oplog entry", err)
	}
	if err := l.file.Sync(); err != nil {
		return Entry{}, ferrors.Wrap(ferrors.KindIO, "fsync oplog entry", err)
	}

	l.nextSeq++
	l.segSize += int64(len(line))

	if l.segSize >= maxSegmentBytes {
		if err := l.rotate(); err != nil {
			return Entry{}, err
		}
	}

	return e, nil
}

// AppendReplicated writes an entry received from a peer verbatim, including
// its seq, kind, payload, and timestamp — unlike Append, which assigns the
// next local seq itself. It fails if e.Seq does not equal the next seq this
// log expects, the signal the replication layer uses to fall back to a
// get_ops catch-up starting at that point.
func (l *Log) AppendReplicated(e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e.Seq != l.nextSeq {
		return ferrors.New(ferrors.KindReplication, fmt.Sprintf("out-of-order replicated seq %d, expected %d", e.Seq, l.nextSeq))
	}

	line, err := sonic.Marshal(&e)
	if err != nil {
		return ferrors.Wrap(ferrors.KindIO, "marshal replicated oplog entry", err)
	}
	line = append(line, '\n')

	if _, err := l.file.Write(line); err != nil {
		return ferrors.Wrap(ferrors.KindIO, "write replicated oplog entry", err)
	}
	if err := l.file.Sync(); err != nil {
		return ferrors.Wrap(ferrors.KindIO, "fsync replicated oplog entry", err)
	}

	l.nextSeq++
	l.segSize += int64(len(line))
	if l.segSize >= maxSegmentBytes {
		if err := l.rotate(); err != nil {
			return err
		}
	}
	return nil
}

// rotate closes the current segment and opens a fresh, empty one with the
// next index. Caller must hold l.mu.
func (l *Log) rotate() error {
	if err := l.file.Close(); err != nil {
		return ferrors.Wrap(ferrors.KindIO, "close oplog segment before rotation", err)
	}
	l.segIdx++
	l.segSize = 0
	f, err := os.OpenFile(filepath.Join(l.dir, segmentName(l.segIdx)), os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return ferrors.Wrap(ferrors.KindIO, "create rotated oplog segment", err)
	}
	l.file = f
	return nil
}

// NextSeq reports the sequence number the next Append will assign.
func (l *Log) NextSeq() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.nextSeq
}

// Close closes the currently open segment file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// ReadAll returns every entry across every segment, in seq order, for
// replication catch-up and compaction. It does not take the write lock
// itself, so it may observe a snapshot slightly behind a concurrent
// Append.
func (l *Log) ReadAll() ([]Entry, error) {
	segments, err := listSegments(l.dir)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.KindIO, "list oplog segments", err)
	}
	var all []Entry
	for _, idx := range segments {
		entries, err := readEntries(filepath.Join(l.dir, segmentName(idx)))
		if err != nil {
			return nil, err
		}
		all = append(all, entries...)
	}
	return all, nil
}

func readEntries(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, ferrors.Wrap(ferrors.KindIO, "open oplog segment", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Entry
		if err := sonic.Unmarshal(line, &e); err != nil {
			break
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// SinceSeq returns every entry with Seq > since, in order, for replication
// get_ops requests.
func (l *Log) SinceSeq(since uint64) ([]Entry, error) {
	all, err := l.ReadAll()
	if err != nil {
		return nil, err
	}
	var out []Entry
	for _, e := range all {
		if e.Seq > since {
			out = append(out, e)
		}
	}
	return out, nil
}

// Compact atomically replaces the tenant's log with a single segment
// containing only the entries for which keep returns true. Seq numbers
// are preserved as-is (compaction drops entries, it never renumbers),
// matching the spec's "entries are never rewritten" contract.
func (l *Log) Compact(keep func(Entry) bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	all, err := l.ReadAll()
	if err != nil {
		return err
	}

	tmpPath := filepath.Join(l.dir, ".compact.tmp")
	tmp, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return ferrors.Wrap(ferrors.KindIO, "create compaction tmp file", err)
	}

	writer := bufio.NewWriter(tmp)
	var size int64
	for _, e := range all {
		if !keep(e) {
			continue
		}
		line, err := sonic.Marshal(&e)
		if err != nil {
			tmp.Close()
			os.Remove(tmpPath)
			return ferrors.Wrap(ferrors.KindIO, "marshal entry during compaction", err)
		}
		line = append(line, '\n')
		if _, err := writer.Write(line); err != nil {
			tmp.Close()
			os.Remove(tmpPath)
			return ferrors.Wrap(ferrors.KindIO, "write entry during compaction", err)
		}
		size += int64(len(line))
	}
	if err := writer.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return ferrors.Wrap(ferrors.KindIO, "flush compaction tmp file", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return ferrors.Wrap(ferrors.KindIO, "fsync compaction tmp file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return ferrors.Wrap(ferrors.KindIO, "close compaction tmp file", err)
	}

	if err := l.file.Close(); err != nil {
		return ferrors.Wrap(ferrors.KindIO, "close current segment before compaction", err)
	}

	segments, err := listSegments(l.dir)
	if err != nil {
		return ferrors.Wrap(ferrors.KindIO, "list segments before compaction cleanup", err)
	}
	for _, idx := range segments {
		if err := os.Remove(filepath.Join(l.dir, segmentName(idx))); err != nil && !os.IsNotExist(err) {
			return ferrors.Wrap(ferrors.KindIO, "remove stale oplog segment", err)
		}
	}

	finalPath := filepath.Join(l.dir, segmentName(0))
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return ferrors.Wrap(ferrors.KindIO, "rename compacted oplog segment into place", err)
	}

	f, err := os.OpenFile(finalPath, os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return ferrors.Wrap(ferrors.KindIO, "reopen compacted oplog segment", err)
	}
	l.file = f
	l.segIdx = 0
	l.segSize = size
	return nil
}
