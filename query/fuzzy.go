package query

import (
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2"
	bq "github.com/blevesearch/bleve/v2/search/query"

	"github.com/fernsearch/fern/schema"
)

// fuzzyDistance picks an edit distance by term length, per spec section
// 4.G: short terms match exactly, longer terms tolerate more typos.
func fuzzyDistance(term string) int {
	n := utf8.RuneCountInString(term)
	switch {
	case n < 5:
		return 0
	case n < 9:
		return 1
	default:
		return 2
	}
}

// fieldScopedQuery builds the sub-query for one (term, searchable
// attribute) pair. Every string value in a document is flattened into the
// single _json_search field as "<path tokens...><value tokens...>" (see
// schema.Flatten), so scoping a query to a given attribute means anchoring
// a phrase on that attribute's own path tokens immediately preceding the
// term — exact for term matches. Fuzzy terms cannot be phrase-anchored
// this way (bleve phrase queries match literal terms only), so they fall
// back to an unscoped fuzzy match against _json_search, still boosted by
// the attribute's weight.
func fieldScopedQuery(attribute, term string, weight float64) bq.Query {
	d := fuzzyDistance(term)
	if d == 0 {
		terms := append(tokenizeLower(attribute), term)
		pq := bleve.NewPhraseQuery(terms, schema.SearchFieldName)
		pq.SetBoost(weight)
		return pq
	}
	fq := bleve.NewFuzzyQuery(term)
	fq.SetField(schema.SearchFieldName)
	fq.SetFuzziness(d)
	fq.SetBoost(weight)
	return fq
}

// prefixQuery builds an unscoped PrefixQuery against _json_search, for
// the last term of a query (as-you-type support).
func prefixQuery(term string, weight float64) bq.Query {
	q := bleve.NewPrefixQuery(term)
	q.SetField(schema.SearchFieldName)
	q.SetBoost(weight)
	return q
}
