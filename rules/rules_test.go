package rules

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fernsearch/fern/schema"
)

func hitIDs(hits []Hit) []string {
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	return ids
}

func TestApplyNoEffectsReturnsInputUnchanged(t *testing.T) {
	hits := []Hit{{ID: "a"}, {ID: "b"}}
	out, err := Apply(hits, Effects{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, hitIDs(out))
}

func TestApplyRemovesHidden(t *testing.T) {
	hits := []Hit{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	out, err := Apply(hits, Effects{Hidden: []string{"b"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, hitIDs(out))
}

func TestApplyPinsExistingDocAtTargetPosition(t *testing.T) {
	hits := []Hit{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	effects := Effects{Pins: []schema.PinEffect{{ID: "c", Position: 0}}}
	out, err := Apply(hits, effects, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, hitIDs(out))
}

func TestApplyPinFetchesMissingDocByID(t *testing.T) {
	hits := []Hit{{ID: "a"}, {ID: "b"}}
	effects := Effects{Pins: []schema.PinEffect{{ID: "z", Position: 1}}}
	fetch := func(id string) (map[string]interface{}, bool, error) {
		if id == "z" {
			return map[string]interface{}{"title": "Z"}, true, nil
		}
		return nil, false, nil
	}
	out, err := Apply(hits, effects, fetch)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "z", "b"}, hitIDs(out))
}

func TestApplyPinFetchMissReturnsInputUnpinned(t *testing.T) {
	hits := []Hit{{ID: "a"}, {ID: "b"}}
	effects := Effects{Pins: []schema.PinEffect{{ID: "z", Position: 0}}}
	fetch := func(id string) (map[string]interface{}, bool, error) { return nil, false, nil }
	out, err := Apply(hits, effects, fetch)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, hitIDs(out))
}

func TestApplyPinFetchErrorPropagates(t *testing.T) {
	hits := []Hit{{ID: "a"}}
	effects := Effects{Pins: []schema.PinEffect{{ID: "z", Position: 0}}}
	wantErr := errors.New("boom")
	fetch := func(id string) (map[string]interface{}, bool, error) { return nil, false, wantErr }
	_, err := Apply(hits, effects, fetch)
	assert.ErrorIs(t, err, wantErr)
}

func TestApplyDuplicatePinIDsFirstOccurrenceWins(t *testing.T) {
	hits := []Hit{{ID: "a"}, {ID: "b"}}
	effects := Effects{Pins: []schema.PinEffect{
		{ID: "b", Position: 0},
		{ID: "b", Position: 5},
	}}
	out, err := Apply(hits, effects, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, hitIDs(out))
}

func TestApplyPinsPastEndAreAppended(t *testing.T) {
	hits := []Hit{{ID: "a"}}
	effects := Effects{Pins: []schema.PinEffect{{ID: "z", Position: 10}}}
	fetch := func(id string) (map[string]interface{}, bool, error) {
		return map[string]interface{}{}, true, nil
	}
	out, err := Apply(hits, effects, fetch)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "z"}, hitIDs(out))
}

func TestApplyMultiplePinsSortedByTargetPositionThenInsertionOrder(t *testing.T) {
	hits := []Hit{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}}
	effects := Effects{Pins: []schema.PinEffect{
		{ID: "d", Position: 1},
		{ID: "c", Position: 1},
	}}
	out, err := Apply(hits, effects, nil)
	require.NoError(t, err)
	// Both pins target position 1; "d" was declared first so it goes first,
	// followed by "c", then the remaining original order.
	assert.Equal(t, []string{"a", "d", "c", "b"}, hitIDs(out))
}

func TestMatchingEffectsCollectsFromAllMatchingRules(t *testing.T) {
	allRules := []schema.Rule{
		{Pattern: "shoes", Hides: []string{"x"}},
		{Pattern: "sho", Prefix: true, Pins: []schema.PinEffect{{ID: "y", Position: 0}}},
		{Pattern: "other", Hides: []string{"z"}},
	}
	effects := MatchingEffects("shoes", allRules)
	assert.Equal(t, []string{"x"}, effects.Hidden)
	assert.Equal(t, []schema.PinEffect{{ID: "y", Position: 0}}, effects.Pins)
}
