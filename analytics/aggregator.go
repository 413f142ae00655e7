// Package analytics implements the as-you-type and pagination dedup window
// for search analytics: Algolia-style aggregation where rapid successive
// keystrokes count as one search, and paging through the same results
// doesn't inflate the count.
package analytics

import (
	"sync"
	"time"
)

// DefaultWindow is the dedup window Algolia-style clients use in practice.
const DefaultWindow = 30 * time.Second

type sessionKey struct {
	userID string
	index  string
}

// session tracks the last query seen for one user/index pair within the
// current window.
type session struct {
	lastSeen   time.Time
	finalQuery string
	filters    string
	hasFilters bool
}

// QueryAggregator decides whether a query should be counted as a new
// search or folded into an in-progress as-you-type/pagination session.
// Safe for concurrent use.
type QueryAggregator struct {
	mu      sync.Mutex
	window  time.Duration
	windows map[sessionKey]*session
}

// NewQueryAggregator builds an aggregator with the given dedup window.
func NewQueryAggregator(window time.Duration) *QueryAggregator {
	return &QueryAggregator{
		window:  window,
		windows: make(map[sessionKey]*session),
	}
}

// ShouldCount reports whether query should be counted as a new search for
// userID against index, with no filters to dedup against.
func (a *QueryAggregator) ShouldCount(userID, index, query string) bool {
	return a.ShouldCountWithFilters(userID, index, query, "", false)
}

// ShouldCountWithFilters is like ShouldCount but also dedups pagination:
// the same user, index, query, and filters within the window is the same
// search session (a page change), not a new search. hasFilters
// distinguishes "no filter given" from "filter given as the empty string".
func (a *QueryAggregator) ShouldCountWithFilters(userID, index, query, filters string, hasFilters bool) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := sessionKey{userID: userID, index: index}
	now := time.Now()

	s, ok := a.windows[key]
	if !ok {
		a.windows[key] = &session{lastSeen: now, finalQuery: query, filters: filters, hasFilters: hasFilters}
		return true
	}

	if now.Sub(s.lastSeen) < a.window {
		s.lastSeen = now
		if s.finalQuery == query && s.hasFilters == hasFilters && s.filters == filters {
			return false // page change on the same search
		}
		s.finalQuery = query
		s.filters = filters
		s.hasFilters = hasFilters
		return false // typing continuation
	}

	s.lastSeen = now
	s.finalQuery = query
	s.filters = filters
	s.hasFilters = hasFilters
	return true
}

// EvictExpired drops sessions that have been idle for twice the dedup
// window, bounding memory growth for a long-running process. Intended to
// be called periodically from a background sweep.
func (a *QueryAggregator) EvictExpired() {
	cutoff := a.window * 2
	now := time.Now()

	a.mu.Lock()
	defer a.mu.Unlock()
	for k, s := range a.windows {
		if now.Sub(s.lastSeen) >= cutoff {
			delete(a.windows, k)
		}
	}
}
