package replication

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/fernsearch/fern/oplog"
)

// Replicator fans a tenant's committed oplog entries out to every configured
// peer. It implements manager.ReplicationHook. Broadcast never blocks the
// caller on network I/O — each peer send runs on its own goroutine and its
// outcome is only logged, per the fire-and-forget contract. A peer that
// misses an entry stays behind until CatchUp is called for it; nothing in
// this package calls CatchUp on its own.
type Replicator struct {
	nodeID string
	log    *zap.Logger

	mu    sync.RWMutex
	peers map[string]*PeerClient
}

// NewReplicator builds a Replicator for nodeID with the given initial peer
// set (keyed by peer node ID).
func NewReplicator(nodeID string, peers []PeerConfig, log *zap.Logger) *Replicator {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Replicator{
		nodeID: nodeID,
		log:    log,
		peers:  make(map[string]*PeerClient, len(peers)),
	}
	for _, p := range peers {
		r.peers[p.NodeID] = NewPeerClient(p.NodeID, p.Addr)
	}
	return r
}

// PeerCount reports how many peers this node fans out to.
func (r *Replicator) PeerCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.peers)
}

// Status reports a monitoring snapshot.
func (r *Replicator) Status() Status {
	return Status{
		NodeID:             r.nodeID,
		ReplicationEnabled: r.PeerCount() > 0,
		PeerCount:          r.PeerCount(),
	}
}

// Peers returns the live peer clients, for a catch-up sweep.
func (r *Replicator) Peers() []*PeerClient {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*PeerClient, 0, len(r.peers))
	for _, p := range r.peers {
		out = append(out, p)
	}
	return out
}

// Broadcast fans entry out to every peer asynchronously.
func (r *Replicator) Broadcast(tenant string, entry oplog.Entry) {
	for _, peer := range r.Peers() {
		go r.sendOne(peer, tenant, entry)
	}
}

// CatchUp fetches every op newer than sinceSeq from peer for tenant and
// hands them to apply, for closing a sequence gap a rejected ReplicateOps
// (or a periodic sweep) revealed. apply is expected to be
// Manager.ApplyReplicatedOps; it is passed as a func to keep this package
// independent of the manager package.
func (r *Replicator) CatchUp(ctx context.Context, peer *PeerClient, tenant string, sinceSeq uint64, apply func(tenant string, ops []oplog.Entry) (uint64, error)) error {
	resp, err := peer.GetOps(ctx, tenant, sinceSeq)
	if err != nil {
		return err
	}
	if len(resp.Ops) == 0 {
		return nil
	}
	_, err = apply(tenant, resp.Ops)
	return err
}

func (r *Replicator) sendOne(peer *PeerClient, tenant string, entry oplog.Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), peerTimeout)
	defer cancel()

	resp, err := peer.ReplicateOps(ctx, ReplicateOpsRequest{TenantID: tenant, Ops: []oplog.Entry{entry}})
	if err != nil {
		r.log.Warn("replication to peer failed",
			zap.String("peer", peer.PeerID()), zap.String("tenant", tenant), zap.Uint64("seq", entry.Seq), zap.Error(err))
		return
	}
	if resp.AckedSeq < entry.Seq {
		r.log.Info("peer behind after replicate, catch-up needed",
			zap.String("peer", peer.PeerID()), zap.String("tenant", tenant),
			zap.Uint64("acked", resp.AckedSeq), zap.Uint64("sent", entry.Seq))
	}
}
