package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSettingsIsFacetField(t *testing.T) {
	s := Settings{AttributesForFaceting: []string{"color", "brand"}}
	assert.True(t, s.IsFacetField("color"))
	assert.False(t, s.IsFacetField("price"))
}

func TestSynonymRuleBidirectionalExpansion(t *testing.T) {
	r := SynonymRule{Terms: []string{"couch", "sofa", "settee"}}
	assert.ElementsMatch(t, []string{"sofa", "settee"}, r.Expansions("couch"))
	assert.Nil(t, r.Expansions("chair"))
}

func TestSynonymRuleOneWayExpansion(t *testing.T) {
	r := SynonymRule{OneWay: true, Input: "tv", Synonyms: []string{"television", "telly"}}
	assert.Equal(t, []string{"television", "telly"}, r.Expansions("tv"))
	assert.Nil(t, r.Expansions("television"))
}

func TestRuleMatchesExact(t *testing.T) {
	r := Rule{Pattern: "black friday"}
	assert.True(t, r.Matches("black friday"))
	assert.False(t, r.Matches("black friday deals"))
}

func TestRuleMatchesPrefix(t *testing.T) {
	r := Rule{Pattern: "black", Prefix: true}
	assert.True(t, r.Matches("black friday"))
	assert.False(t, r.Matches("blue"))
}

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	assert.Equal(t, 100, s.MaxValuesPerFacet)
	assert.NotNil(t, s.AttributeWeights)
}
