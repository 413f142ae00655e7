package query

import "github.com/fernsearch/fern/schema"

// expandSynonyms returns every additional term a token should be searched
// as, per the tenant's synonym table. The token itself is not included
// (callers already search it).
func expandSynonyms(term string, rules []schema.SynonymRule) []string {
	var out []string
	seen := map[string]bool{term: true}
	for _, r := range rules {
		for _, e := range r.Expansions(term) {
			if !seen[e] {
				seen[e] = true
				out = append(out, e)
			}
		}
	}
	return out
}
