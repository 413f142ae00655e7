package schema

import "math"

// DeriveWeights computes the effective per-field search weight: a field's
// position in SearchableAttributes sets its default weight at 100^-index
// (so the first field dominates), and AttributeWeights overrides that
// default for any field named in both.
func DeriveWeights(searchableAttributes []string, attributeWeights map[string]float64) map[string]float64 {
	weights := make(map[string]float64, len(searchableAttributes))
	for idx, field := range searchableAttributes {
		defaultWeight := math.Pow(100, -float64(idx))
		if w, ok := attributeWeights[field]; ok {
			weights[field] = w
			continue
		}
		weights[field] = defaultWeight
	}
	return weights
}
