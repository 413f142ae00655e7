package httpapi

import (
	"net/http"

	"github.com/fernsearch/fern/ferrors"
)

func (s *Server) handleAddDocuments(w http.ResponseWriter, r *http.Request) {
	tenant := r.PathValue("tenant")
	var req addDocumentsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, ferrors.InvalidDocument("decode add_documents body: %v", err))
		return
	}
	ids, err := s.mgr.AddDocuments(tenant, req.Documents)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, addDocumentsResponse{ObjectIDs: ids})
}

func (s *Server) handlePartialUpdate(w http.ResponseWriter, r *http.Request) {
	tenant := r.PathValue("tenant")
	id := r.PathValue("id")
	var patch partialUpdateRequest
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, ferrors.InvalidDocument("decode partial_update body: %v", err))
		return
	}
	if err := s.mgr.PartialUpdate(tenant, id, patch); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteByQuery(w http.ResponseWriter, r *http.Request) {
	tenant := r.PathValue("tenant")
	var req deleteByQueryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, ferrors.InvalidDocument("decode delete_by_query body: %v", err))
		return
	}
	count, err := s.mgr.DeleteByQuery(tenant, req.Filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteByQueryResponse{Deleted: count})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	tenant := r.PathValue("tenant")
	count, err := s.mgr.Clear(tenant)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, clearResponse{Deleted: count})
}

func (s *Server) handleCompact(w http.ResponseWriter, r *http.Request) {
	tenant := r.PathValue("tenant")
	if err := s.mgr.Compact(tenant); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
