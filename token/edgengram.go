package token

import (
	"github.com/blevesearch/bleve/v2/analysis"
)

// EdgeNgramFilterName is the registry name of the edge-n-gram filter tuned
// for the default search field.
const EdgeNgramFilterName = "fern_edge_ngram"

// EdgeNgramFilterWideName is the registry name of the edge-n-gram filter
// with a wider maximum, reserved for fields that want longer prefix
// coverage than the default.
const EdgeNgramFilterWideName = "fern_edge_ngram_wide"

const (
	minGram    = 2
	defaultMax = 10
	wideMax    = 20
)

// EdgeNgramFilter expands each incoming token into the sequence of its
// prefixes from MinGram to MaxGram runes (inclusive), so a query-time prefix
// match against any of those lengths hits the indexed term. Tokens shorter
// than MinGram are dropped entirely: they never appear in the ingest stream,
// matching the reference tokenizer this filter is ported from.
type EdgeNgramFilter struct {
	MinGram int
	MaxGram int
}

// NewEdgeNgramFilter constructs a filter with the given gram bounds.
func NewEdgeNgramFilter(minGram, maxGram int) *EdgeNgramFilter {
	return &EdgeNgramFilter{MinGram: minGram, MaxGram: maxGram}
}

// Filter implements analysis.TokenFilter.
func (f *EdgeNgramFilter) Filter(input analysis.TokenStream) analysis.TokenStream {
	rv := make(analysis.TokenStream, 0, len(input))
	for _, t := range input {
		runes := []rune(string(t.Term))
		charCount := len(runes)
		if charCount < f.MinGram {
			continue
		}
		max := f.MaxGram
		if charCount < max {
			max = charCount
		}
		for n := f.MinGram; n <= max; n++ {
			prefix := []byte(string(runes[:n]))
			rv = append(rv, &analysis.Token{
				Start:    t.Start,
				End:      t.Start + len(prefix),
				Term:     prefix,
				Position: t.Position,
				Type:     t.Type,
			})
		}
	}
	return rv
}
