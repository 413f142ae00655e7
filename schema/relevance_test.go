package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveWeightsDefaultsByPosition(t *testing.T) {
	weights := DeriveWeights([]string{"title", "description", "tags"}, nil)
	assert.InDelta(t, 1.0, weights["title"], 1e-9)
	assert.InDelta(t, 0.01, weights["description"], 1e-9)
	assert.InDelta(t, 0.0001, weights["tags"], 1e-9)
}

func TestDeriveWeightsOverride(t *testing.T) {
	weights := DeriveWeights([]string{"title", "description"}, map[string]float64{"description": 0.5})
	assert.InDelta(t, 1.0, weights["title"], 1e-9)
	assert.InDelta(t, 0.5, weights["description"], 1e-9)
}

func TestDeriveWeightsEmpty(t *testing.T) {
	weights := DeriveWeights(nil, nil)
	assert.Empty(t, weights)
}
