package httpapi

import (
	"net/http"
	"runtime/debug"
)

// handleHealth mirrors the original health endpoint's JSON shape: writer
// budget, facet cache occupancy, memory pressure, and a build identifier.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	budget := s.mgr.Budget()
	entries, capacity := s.mgr.FacetCacheStats()

	var heapMB, limitMB uint64
	pressure := "normal"
	if obs := s.mgr.Observer(); obs != nil {
		stats := obs.Stats()
		heapMB = stats.HeapAllocatedBytes / (1024 * 1024)
		limitMB = stats.SystemLimitBytes / (1024 * 1024)
		pressure = stats.PressureLevel.String()
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":                 "ok",
		"active_writers":         budget.ActiveWriters(),
		"max_concurrent_writers": budget.MaxConcurrentWriters(),
		"facet_cache_entries":    entries,
		"facet_cache_cap":        capacity,
		"heap_allocated_mb":      heapMB,
		"system_limit_mb":        limitMB,
		"pressure_level":         pressure,
		"build_profile":          buildProfile(),
	})
}

func buildProfile() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "-tags" && s.Value != "" {
				return s.Value
			}
		}
	}
	return "release"
}
