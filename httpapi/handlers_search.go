package httpapi

import (
	"net/http"

	"github.com/fernsearch/fern/ferrors"
	"github.com/fernsearch/fern/manager"
)

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	s.runSearch(w, r, false)
}

func (s *Server) handleSearchWithFacets(w http.ResponseWriter, r *http.Request) {
	s.runSearch(w, r, true)
}

func (s *Server) runSearch(w http.ResponseWriter, r *http.Request, withFacets bool) {
	tenant := r.PathValue("tenant")
	var req searchRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, ferrors.InvalidDocument("decode search body: %v", err))
		return
	}

	if s.agg != nil && req.UserID != "" {
		s.agg.ShouldCountWithFilters(req.UserID, tenant, req.Query, req.Filter, req.Filter != "")
	}

	sreq := manager.SearchRequest{
		QueryText: req.Query,
		Filter:    req.Filter,
		Sort:      req.Sort,
		Limit:     req.Limit,
		Offset:    req.Offset,
		Facets:    facetRequestsFromDTO(req.Facets),
		Language:  req.Language,
	}

	var (
		res *manager.SearchResult
		err error
	)
	if withFacets {
		res, err = s.mgr.SearchWithFacets(tenant, sreq)
	} else {
		res, err = s.mgr.Search(tenant, sreq)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, searchResponseFromHits(res.Hits, res.Total, res.Facets))
}
