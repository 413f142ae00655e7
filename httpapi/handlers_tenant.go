package httpapi

import (
	"net/http"

	"github.com/fernsearch/fern/ferrors"
)

func (s *Server) handleCreateTenant(w http.ResponseWriter, r *http.Request) {
	tenant := r.PathValue("tenant")
	var req createTenantRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, ferrors.InvalidDocument("decode create_tenant body: %v", err))
			return
		}
	}

	err := s.mgr.CreateTenant(tenant, settingsFromDTO(req.Settings))
	if err == nil {
		writeJSON(w, http.StatusCreated, createTenantResponse{Tenant: tenant, AlreadyExists: false})
		return
	}
	if _, ok := err.(*ferrors.TenantAlreadyExistsError); ok {
		writeJSON(w, http.StatusOK, createTenantResponse{Tenant: tenant, AlreadyExists: true})
		return
	}
	writeError(w, err)
}

func (s *Server) handleDeleteTenant(w http.ResponseWriter, r *http.Request) {
	tenant := r.PathValue("tenant")
	if err := s.mgr.DeleteTenant(tenant); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
