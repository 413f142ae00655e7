// Package httpapi exposes the ingest, query, and internal replication
// operations of manager.Manager over HTTP, plus the health and
// memory-pressure gating surfaces every other component plugs into.
package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/fernsearch/fern/analytics"
	"github.com/fernsearch/fern/manager"
	"github.com/fernsearch/fern/replication"
)

// Server bundles the dependencies every handler needs.
type Server struct {
	mgr  *manager.Manager
	repl *replication.Replicator
	agg  *analytics.QueryAggregator
	log  *zap.Logger
}

// NewServer builds a Server. repl and agg may be nil: a standalone node
// runs with no replicator, and analytics dedup is optional.
func NewServer(mgr *manager.Manager, repl *replication.Replicator, agg *analytics.QueryAggregator, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{mgr: mgr, repl: repl, agg: agg, log: log}
}

// Handler builds the full request-routing chain: pressure gating wrapping
// a Go 1.22+ method-and-pattern ServeMux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("POST /tenants/{tenant}", s.handleCreateTenant)
	mux.HandleFunc("DELETE /tenants/{tenant}", s.handleDeleteTenant)

	mux.HandleFunc("POST /tenants/{tenant}/documents", s.handleAddDocuments)
	mux.HandleFunc("PATCH /tenants/{tenant}/documents/{id}", s.handlePartialUpdate)
	mux.HandleFunc("POST /tenants/{tenant}/documents/delete", s.handleDeleteByQuery)
	mux.HandleFunc("POST /tenants/{tenant}/clear", s.handleClear)
	mux.HandleFunc("POST /tenants/{tenant}/compact", s.handleCompact)

	mux.HandleFunc("POST /tenants/{tenant}/search", s.handleSearch)
	mux.HandleFunc("POST /tenants/{tenant}/search_with_facets", s.handleSearchWithFacets)

	mux.HandleFunc("POST /tenants/{tenant}/snapshots/export", s.handleSnapshotExport)
	mux.HandleFunc("POST /tenants/{tenant}/snapshots/import", s.handleSnapshotImport)

	mux.HandleFunc("POST /internal/replicate", s.handleReplicate)
	mux.HandleFunc("GET /internal/ops", s.handleGetOps)
	mux.HandleFunc("GET /internal/status", s.handleInternalStatus)

	return pressureGate(s.mgr)(mux)
}
