// Package query implements the query parser (component G): tokenization,
// stop-word removal, plural normalization, synonym expansion, splitting &
// concatenation, fuzzy expansion by term length, and field weighting, all
// assembled into a single bleve boolean query.
package query

import (
	"strings"

	"github.com/fernsearch/fern/token"
)

// tokenizeLower runs the query-side analysis (base tokenizer, then
// lowercasing) and returns the resulting terms in order.
func tokenizeLower(text string) []string {
	ts := token.NewBaseTokenizer().Tokenize([]byte(text))
	terms := make([]string, 0, len(ts))
	for _, t := range ts {
		terms = append(terms, strings.ToLower(string(t.Term)))
	}
	return terms
}
