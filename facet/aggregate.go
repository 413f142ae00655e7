// Package facet implements the facet aggregator (component I): turning a
// query's scored/filtered hit set into per-field ordered (value, count)
// buckets, plus an LRU result cache sized by the current memory pressure
// level and invalidated per tenant on writer commit.
package facet

import (
	"sort"
	"strings"
)

// Request is one field a caller wants bucket counts for, optionally
// restricted to a hierarchical path prefix (e.g. "Electronics" under a
// "categories" facet).
type Request struct {
	Field     string
	Path      string
	MaxValues int
}

// Bucket is one facet value and its count among the hit set.
type Bucket struct {
	Value string
	Count int
}

// Aggregate computes ordered bucket lists for each request from the
// per-document facet field values of the hit set. docFacetPaths has one
// entry per hit document, each mapping a facet field name to that
// document's indexed paths for the field (the "_facet.<field>" bleve
// field's stored term values, or schema.ExtractFacetPaths run directly
// against the document body). defaultMax is used for any request with
// MaxValues left at zero.
func Aggregate(docFacetPaths []map[string][]string, requests []Request, defaultMax int) map[string][]Bucket {
	result := make(map[string][]Bucket, len(requests))
	for _, req := range requests {
		max := req.MaxValues
		if max <= 0 {
			max = defaultMax
		}
		counts := map[string]int{}
		for _, doc := range docFacetPaths {
			for _, path := range doc[req.Field] {
				if req.Path != "" && !pathUnderPrefix(path, req.Path) {
					continue
				}
				counts[displayValue(path)]++
			}
		}
		result[req.Field] = topBuckets(counts, max)
	}
	return result
}

// pathUnderPrefix reports whether an indexed facet path's display value
// falls under the given hierarchical prefix (e.g. "Electronics").
func pathUnderPrefix(path, prefix string) bool {
	v := displayValue(path)
	return v == prefix || strings.HasPrefix(v, prefix+" > ")
}

// displayValue strips a facet path's leading field segment and converts
// the remainder back to its Algolia-style " > " hierarchy display.
func displayValue(path string) string {
	trimmed := strings.TrimPrefix(path, "/")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 {
		return ""
	}
	return strings.ReplaceAll(parts[1], "/", " > ")
}

func topBuckets(counts map[string]int, max int) []Bucket {
	buckets := make([]Bucket, 0, len(counts))
	for v, c := range counts {
		buckets = append(buckets, Bucket{Value: v, Count: c})
	}
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].Count != buckets[j].Count {
			return buckets[i].Count > buckets[j].Count
		}
		return buckets[i].Value < buckets[j].Value
	})
	if len(buckets) > max {
		buckets = buckets[:max]
	}
	return buckets
}
