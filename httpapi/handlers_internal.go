package httpapi

import (
	"net/http"
	"strconv"

	"github.com/fernsearch/fern/ferrors"
	"github.com/fernsearch/fern/replication"
)

func (s *Server) handleReplicate(w http.ResponseWriter, r *http.Request) {
	var req replication.ReplicateOpsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, ferrors.InvalidDocument("decode replicate body: %v", err))
		return
	}
	acked, err := s.mgr.ApplyReplicatedOps(req.TenantID, req.Ops)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, replication.ReplicateOpsResponse{TenantID: req.TenantID, AckedSeq: acked})
}

func (s *Server) handleGetOps(w http.ResponseWriter, r *http.Request) {
	tenant := r.URL.Query().Get("tenant_id")
	if tenant == "" {
		writeError(w, ferrors.InvalidQuery("tenant_id is required"))
		return
	}
	sinceSeq, err := strconv.ParseUint(r.URL.Query().Get("since_seq"), 10, 64)
	if err != nil {
		sinceSeq = 0
	}
	ops, currentSeq, err := s.mgr.OpsSince(tenant, sinceSeq)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, replication.GetOpsResponse{TenantID: tenant, Ops: ops, CurrentSeq: currentSeq})
}

func (s *Server) handleInternalStatus(w http.ResponseWriter, r *http.Request) {
	if s.repl == nil {
		writeJSON(w, http.StatusOK, replication.Status{ReplicationEnabled: false})
		return
	}
	writeJSON(w, http.StatusOK, s.repl.Status())
}
