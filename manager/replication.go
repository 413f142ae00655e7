package manager

import (
	"sort"

	"github.com/bytedance/sonic"

	"github.com/fernsearch/fern/ferrors"
	"github.com/fernsearch/fern/oplog"
	"github.com/fernsearch/fern/schema"
)

// OpsSince returns every oplog entry for tenant with seq > sinceSeq, along
// with this node's current seq, for serving a peer's get_ops catch-up
// request.
func (m *Manager) OpsSince(tenant string, sinceSeq uint64) (ops []oplog.Entry, currentSeq uint64, err error) {
	ts, err := m.getTenant(tenant)
	if err != nil {
		return nil, 0, err
	}
	ops, err = ts.log.SinceSeq(sinceSeq)
	if err != nil {
		return nil, 0, err
	}
	return ops, ts.log.NextSeq() - 1, nil
}

// ApplyReplicatedOps applies a batch of oplog entries received from a peer,
// in order, stopping at the first entry whose seq does not immediately
// follow what this node already has. It returns the highest seq
// successfully applied, which the caller acks back to the source; a
// mismatch past the first entry (not the whole batch) still leaves the
// successfully-applied prefix committed.
func (m *Manager) ApplyReplicatedOps(tenant string, ops []oplog.Entry) (uint64, error) {
	ts, err := m.getTenant(tenant)
	if err != nil {
		return 0, err
	}

	sorted := make([]oplog.Entry, len(ops))
	copy(sorted, ops)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Seq < sorted[j].Seq })

	ts.mu.Lock()
	defer ts.mu.Unlock()

	var acked uint64
	for _, e := range sorted {
		if err := m.applyReplicatedEntry(ts, e); err != nil {
			if acked > 0 {
				return acked, nil
			}
			return 0, err
		}
		acked = e.Seq
	}
	return acked, nil
}

// applyReplicatedEntry checks that e's seq is the next one this tenant's
// log expects, mutates the index for it, and then durably records it with
// its original seq. An out-of-order entry is rejected before the index is
// touched. Caller holds ts.mu.
func (m *Manager) applyReplicatedEntry(ts *tenantState, e oplog.Entry) error {
	if next := ts.log.NextSeq(); e.Seq != next {
		return ferrors.New(ferrors.KindReplication, "out-of-order replicated seq")
	}
	batch := ts.index.NewBatch()
	newNumericFields := make(map[string]struct{})

	switch e.Kind {
	case "add_documents", "partial_update":
		var payload addDocumentsPayload
		if err := decodeOplogPayload(e.Payload, &payload); err != nil {
			return err
		}
		for _, item := range payload.Items {
			indexDoc, err := schema.BuildIndexDocument(item.ID, item.Fields, ts.settings)
			if err != nil {
				return err
			}
			for path, v := range indexDoc {
				if _, structural := structuralDocFields[path]; structural {
					continue
				}
				if _, ok := v.(float64); ok {
					newNumericFields[path] = struct{}{}
				}
			}
			if err := batch.Index(item.ID, indexDoc); err != nil {
				return ferrors.Wrap(ferrors.KindIO, "stage replicated index op", err)
			}
		}
	case "delete_by_query":
		var payload deleteByQueryPayload
		if err := decodeOplogPayload(e.Payload, &payload); err != nil {
			return err
		}
		for _, id := range payload.IDs {
			batch.Delete(id)
		}
	default:
		return ferrors.New(ferrors.KindReplication, "unrecognized replicated oplog entry kind: "+e.Kind)
	}

	if err := ts.index.Batch(batch); err != nil {
		return ferrors.Wrap(ferrors.KindIO, "commit replicated batch", err)
	}
	if err := ts.log.AppendReplicated(e); err != nil {
		return err
	}

	for f := range newNumericFields {
		ts.knownNumericFields[f] = struct{}{}
	}
	if len(newNumericFields) > 0 {
		if err := persistNumericFields(ts.dir, cloneNumericSet(ts.knownNumericFields)); err != nil {
			return err
		}
	}
	m.facetCache.Invalidate(ts.name)
	return nil
}

func decodeOplogPayload(raw []byte, v interface{}) error {
	if err := sonic.Unmarshal(raw, v); err != nil {
		return ferrors.Wrap(ferrors.KindInvalidDocument, "decode replicated oplog payload", err)
	}
	return nil
}
