package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/fernsearch/fern/manager"
	"github.com/fernsearch/fern/memory"
)

// pressureGate rejects requests under memory pressure and sheds the facet
// cache before the rest of the router ever sees them:
//   - Normal: everything proceeds.
//   - Elevated: writes (any non-GET) are rejected; reads and /health and
//     /internal/... proceed.
//   - Critical: everything is rejected except exactly /health and
//     /internal/status.
//
// It also keeps the facet cache's effective capacity current: write paths
// do this themselves as a side effect of committing, but read-only
// traffic never touches that code path, so a quiet search-only workload
// would otherwise never notice pressure easing or worsening.
func pressureGate(mgr *manager.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			level := mgr.RefreshPressure()

			switch level {
			case memory.Normal:
				next.ServeHTTP(w, r)
				return
			case memory.Elevated:
				if r.URL.Path == "/health" || strings.HasPrefix(r.URL.Path, "/internal/") || r.Method == http.MethodGet {
					next.ServeHTTP(w, r)
					return
				}
				rejectMemoryPressure(w, mgr, 5)
				return
			case memory.Critical:
				if r.URL.Path == "/health" || r.URL.Path == "/internal/status" {
					next.ServeHTTP(w, r)
					return
				}
				rejectMemoryPressure(w, mgr, 30)
				return
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func rejectMemoryPressure(w http.ResponseWriter, mgr *manager.Manager, retryAfterSeconds int) {
	obs := mgr.Observer()
	var allocatedMB, limitMB uint64
	level := memory.Normal
	if obs != nil {
		stats := obs.Stats()
		allocatedMB = stats.HeapAllocatedBytes / (1024 * 1024)
		limitMB = stats.SystemLimitBytes / (1024 * 1024)
		level = stats.PressureLevel
	}
	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	writeJSON(w, http.StatusServiceUnavailable, map[string]any{
		"error":        "memory_pressure",
		"allocated_mb": allocatedMB,
		"limit_mb":     limitMB,
		"level":        level.String(),
	})
}
