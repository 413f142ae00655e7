// Package rules implements the rules engine (component J): pin and hide
// effects triggered by query-text pattern matches, applied to a scored
// result set after ranking.
package rules

import (
	"math"
	"sort"

	"github.com/fernsearch/fern/schema"
)

// Hit is one scored search result, or a pinned document that was fetched
// by ID because it fell outside the original hit set.
type Hit struct {
	ID     string
	Score  float64
	Fields map[string]interface{}
}

// Fetcher looks a document up by ID directly from the index, for pins
// that target a document outside the current hit set. It reports ok=false
// (with a nil error) when the document does not exist.
type Fetcher func(id string) (fields map[string]interface{}, ok bool, err error)

// Effects is the combined set of hide/pin directives from every rule
// whose pattern matched the query text.
type Effects struct {
	Hidden []string
	Pins   []schema.PinEffect
}

// MatchingEffects collects the hide/pin effects of every rule that
// matches queryText, in rule order.
func MatchingEffects(queryText string, allRules []schema.Rule) Effects {
	var effects Effects
	for _, r := range allRules {
		if !r.Matches(queryText) {
			continue
		}
		effects.Hidden = append(effects.Hidden, r.Hides...)
		effects.Pins = append(effects.Pins, r.Pins...)
	}
	return effects
}

// Apply splices pin/hide effects into a scored result set:
//  1. remove every hidden document;
//  2. for each pin (first occurrence of a given ID wins), lift the
//     document out of the result set if present, else fetch it by ID;
//  3. sort pinned entries by target position, ties broken by the order
//     they were declared;
//  4. splice pinned entries into the result at their target positions,
//     shifting other entries rightward; pins whose target position falls
//     past the end of the result are appended in order.
func Apply(hits []Hit, effects Effects, fetch Fetcher) ([]Hit, error) {
	hits = removeHidden(hits, effects.Hidden)
	if len(effects.Pins) == 0 {
		return hits, nil
	}

	type pinnedEntry struct {
		hit          Hit
		targetPos    int
		insertionIdx int
	}

	var pinned []pinnedEntry
	seen := make(map[string]bool, len(effects.Pins))
	for idx, p := range effects.Pins {
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true

		if i := indexByID(hits, p.ID); i >= 0 {
			pinned = append(pinned, pinnedEntry{hit: hits[i], targetPos: p.Position, insertionIdx: idx})
			hits = append(hits[:i], hits[i+1:]...)
			continue
		}
		if fetch == nil {
			continue
		}
		fields, ok, err := fetch(p.ID)
		if err != nil {
			return nil, err
		}
		if ok {
			hit := Hit{ID: p.ID, Score: math.MaxFloat64, Fields: fields}
			pinned = append(pinned, pinnedEntry{hit: hit, targetPos: p.Position, insertionIdx: idx})
		}
	}

	sort.SliceStable(pinned, func(i, j int) bool {
		if pinned[i].targetPos != pinned[j].targetPos {
			return pinned[i].targetPos < pinned[j].targetPos
		}
		return pinned[i].insertionIdx < pinned[j].insertionIdx
	})

	result := make([]Hit, 0, len(hits)+len(pinned))
	docIdx, pinIdx := 0, 0
	maxPos := len(hits) + len(pinned)
	for targetPos := 0; targetPos <= maxPos; targetPos++ {
		for pinIdx < len(pinned) && pinned[pinIdx].targetPos == targetPos {
			result = append(result, pinned[pinIdx].hit)
			pinIdx++
		}
		for len(result) == targetPos && docIdx < len(hits) {
			result = append(result, hits[docIdx])
			docIdx++
		}
		if len(result) <= targetPos {
			break
		}
	}
	for pinIdx < len(pinned) {
		result = append(result, pinned[pinIdx].hit)
		pinIdx++
	}
	result = append(result, hits[docIdx:]...)

	return result, nil
}

func removeHidden(hits []Hit, hidden []string) []Hit {
	if len(hidden) == 0 {
		return hits
	}
	hiddenSet := make(map[string]bool, len(hidden))
	for _, id := range hidden {
		hiddenSet[id] = true
	}
	kept := make([]Hit, 0, len(hits))
	for _, h := range hits {
		if !hiddenSet[h.ID] {
			kept = append(kept, h)
		}
	}
	return kept
}

func indexByID(hits []Hit, id string) int {
	for i, h := range hits {
		if h.ID == id {
			return i
		}
	}
	return -1
}
