// Package replication implements the peer client (component L): fire-and-
// forget fan-out of committed ops to peer nodes, plus a get_ops catch-up
// path for closing sequence gaps.
package replication

import "github.com/fernsearch/fern/oplog"

// ReplicateOpsRequest is the body of POST /internal/replicate.
type ReplicateOpsRequest struct {
	TenantID string        `json:"tenant_id"`
	Ops      []oplog.Entry `json:"ops"`
}

// ReplicateOpsResponse acks the highest seq the peer applied.
type ReplicateOpsResponse struct {
	TenantID string `json:"tenant_id"`
	AckedSeq uint64 `json:"acked_seq"`
}

// GetOpsResponse answers GET /internal/ops.
type GetOpsResponse struct {
	TenantID   string        `json:"tenant_id"`
	Ops        []oplog.Entry `json:"ops"`
	CurrentSeq uint64        `json:"current_seq"`
}

// Status is a basic replication status snapshot for monitoring.
type Status struct {
	NodeID             string `json:"node_id"`
	ReplicationEnabled bool   `json:"replication_enabled"`
	PeerCount          int    `json:"peer_count"`
}
