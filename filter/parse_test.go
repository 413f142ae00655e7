package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEmptyIsMatchAll(t *testing.T) {
	expr, err := Parse("  ")
	require.NoError(t, err)
	_, ok := expr.(MatchAll)
	assert.True(t, ok)
}

func TestParseEquality(t *testing.T) {
	expr, err := Parse(`color:red`)
	require.NoError(t, err)
	eq, ok := expr.(Equality)
	require.True(t, ok)
	assert.Equal(t, "color", eq.Field)
	assert.Equal(t, "red", eq.Value)
}

func TestParseQuotedValue(t *testing.T) {
	expr, err := Parse(`category:"home goods"`)
	require.NoError(t, err)
	eq, ok := expr.(Equality)
	require.True(t, ok)
	assert.Equal(t, "home goods", eq.Value)
}

func TestParseComparisons(t *testing.T) {
	cases := map[string]CompareOp{
		"price>=10": OpGTE,
		"price<=10": OpLTE,
		"price>10":  OpGT,
		"price<10":  OpLT,
	}
	for input, wantOp := range cases {
		expr, err := Parse(input)
		require.NoError(t, err, input)
		cmp, ok := expr.(Compare)
		require.True(t, ok, input)
		assert.Equal(t, "price", cmp.Field)
		assert.Equal(t, wantOp, cmp.Op)
		assert.Equal(t, 10.0, cmp.Value)
	}
}

func TestParseNotAndOr(t *testing.T) {
	expr, err := Parse(`NOT color:red AND price>10 OR stock:available`)
	require.NoError(t, err)
	// AND binds tighter than OR: (NOT color:red AND price>10) OR stock:available
	or, ok := expr.(Or)
	require.True(t, ok)
	and, ok := or.Left.(And)
	require.True(t, ok)
	_, ok = and.Left.(Not)
	assert.True(t, ok)
}

func TestParseParentheses(t *testing.T) {
	expr, err := Parse(`(color:red OR color:blue) AND price<100`)
	require.NoError(t, err)
	and, ok := expr.(And)
	require.True(t, ok)
	_, ok = and.Left.(Or)
	assert.True(t, ok)
}

func TestParseUnterminatedParenIsError(t *testing.T) {
	_, err := Parse(`(color:red`)
	assert.Error(t, err)
}

func TestParseMissingValueIsError(t *testing.T) {
	_, err := Parse(`color:`)
	assert.Error(t, err)
}

func TestParseTrailingGarbageIsError(t *testing.T) {
	_, err := Parse(`color:red )`)
	assert.Error(t, err)
}
