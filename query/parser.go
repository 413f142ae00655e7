package query

import (
	"strings"

	"github.com/blevesearch/bleve/v2"
	bq "github.com/blevesearch/bleve/v2/search/query"

	"github.com/fernsearch/fern/schema"
)

// Parse turns raw query text into the executable bleve query, running the
// full pipeline documented on the package: tokenize, drop stop words,
// normalize plurals, expand synonyms, try splitting/concatenation, then
// assemble a per-word disjunction of alternates (each alternate weighted
// per searchable attribute, exact terms phrase-scoped to their attribute,
// longer terms fuzzy-matched) and require every word position to match.
// The last word's alternates also include a prefix match, so a
// still-being-typed query keeps matching.
func Parse(text string, settings schema.Settings, language string) bq.Query {
	tokens := tokenizeLower(text)
	tokens = removeStopWords(tokens, settings, language)
	if len(tokens) == 0 {
		return bleve.NewMatchNoneQuery()
	}

	alts := make([][]string, len(tokens))
	for i, t := range tokens {
		alts[i] = alternatesFor(t, settings, language)
	}
	for i := 0; i+1 < len(tokens); i++ {
		concat := tryConcat(tokens[i], tokens[i+1])
		alts[i] = append(alts[i], concat)
	}

	last := len(tokens) - 1
	alts[last] = append(alts[last], tokens[last])

	weights := attributeWeights(settings)

	conjuncts := make([]bq.Query, 0, len(alts))
	for i, positionAlts := range alts {
		conjuncts = append(conjuncts, positionQuery(positionAlts, weights, i == last, tokens[i]))
	}
	if len(conjuncts) == 1 {
		return conjuncts[0]
	}
	return bleve.NewConjunctionQuery(conjuncts)
}

// alternatesFor returns every single-word form a token should also be
// searched as: the term itself, its plural stem (if the language applies
// plural normalization), each form's synonym expansions, and a split
// candidate from the built-in compound table.
func alternatesFor(term string, settings schema.Settings, language string) []string {
	seen := map[string]bool{term: true}
	out := []string{term}

	add := func(s string) {
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}

	if languageAppliesPlurals(settings.IgnorePlurals, settings.IgnorePluralsLanguages, language) {
		add(stemPlural(term))
	}
	base := append([]string(nil), out...)
	for _, t := range base {
		for _, e := range expandSynonyms(t, settings.Synonyms) {
			add(e)
		}
	}
	if split, ok := trySplit(term); ok {
		add(split)
	}
	return out
}

// positionQuery builds the disjunction of alternates for one word
// position: each alternate is itself a disjunction across searchable
// attributes. The last position additionally gets an unscoped prefix
// match on the original (un-stemmed) term.
func positionQuery(alternates []string, weights map[string]float64, isLast bool, original string) bq.Query {
	disjuncts := make([]bq.Query, 0, len(alternates)+1)
	for _, alt := range alternates {
		disjuncts = append(disjuncts, alternateQuery(alt, weights))
	}
	if isLast {
		maxWeight := 1.0
		for _, w := range weights {
			if w > maxWeight {
				maxWeight = w
			}
		}
		disjuncts = append(disjuncts, prefixQuery(original, maxWeight))
	}
	if len(disjuncts) == 1 {
		return disjuncts[0]
	}
	dq := bleve.NewDisjunctionQuery(disjuncts)
	dq.SetMin(1)
	return dq
}

// alternateQuery builds the per-attribute disjunction for a single
// candidate term (field weighting, spec section 4.G). With no
// searchable attributes configured, the term is matched unscoped against
// the merged search field at weight 1.
func alternateQuery(term string, weights map[string]float64) bq.Query {
	if len(weights) == 0 {
		return fieldScopedQuery("", term, 1.0)
	}
	disjuncts := make([]bq.Query, 0, len(weights))
	for attr, w := range weights {
		disjuncts = append(disjuncts, fieldScopedQuery(attr, term, w))
	}
	if len(disjuncts) == 1 {
		return disjuncts[0]
	}
	dq := bleve.NewDisjunctionQuery(disjuncts)
	dq.SetMin(1)
	return dq
}

func attributeWeights(settings schema.Settings) map[string]float64 {
	if len(settings.SearchableAttributes) == 0 {
		return nil
	}
	return schema.DeriveWeights(settings.SearchableAttributes, settings.AttributeWeights)
}

// removeStopWords drops tokens present in the tenant's stop-word list for
// language, unless doing so would empty the query entirely.
func removeStopWords(tokens []string, settings schema.Settings, language string) []string {
	if !settings.RemoveStopWords {
		return tokens
	}
	stop := stopWordSet(settings.StopWords[language])
	if len(stop) == 0 {
		return tokens
	}
	filtered := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if !stop[t] {
			filtered = append(filtered, t)
		}
	}
	if len(filtered) == 0 {
		return tokens
	}
	return filtered
}

func stopWordSet(words []string) map[string]bool {
	if len(words) == 0 {
		return nil
	}
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[strings.ToLower(w)] = true
	}
	return set
}
