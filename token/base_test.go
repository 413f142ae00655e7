package token

import (
	"testing"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/stretchr/testify/assert"
)

func terms(ts analysis.TokenStream) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = string(t.Term)
	}
	return out
}

func TestBaseTokenizerConcatApostrophe(t *testing.T) {
	ts := NewBaseTokenizer().Tokenize([]byte("O'Kelly"))
	assert.ElementsMatch(t, []string{"O", "Kelly", "OKelly"}, terms(ts))
	assert.Equal(t, 0, ts[0].Position)
	assert.Equal(t, 1, ts[1].Position)
	// the concat token shares the first run's position
	assert.Equal(t, 0, ts[2].Position)
}

func TestBaseTokenizerConcatHyphen(t *testing.T) {
	ts := NewBaseTokenizer().Tokenize([]byte("Abdel-Rahman"))
	assert.ElementsMatch(t, []string{"Abdel", "Rahman", "AbdelRahman"}, terms(ts))
}

func TestBaseTokenizerSuppressesShortConcat(t *testing.T) {
	ts := NewBaseTokenizer().Tokenize([]byte("a.b"))
	assert.ElementsMatch(t, []string{"a", "b"}, terms(ts))
}

func TestBaseTokenizerSuppressesTwoCharHyphenConcat(t *testing.T) {
	ts := NewBaseTokenizer().Tokenize([]byte("a-b"))
	assert.ElementsMatch(t, []string{"a", "b"}, terms(ts))
}

func TestBaseTokenizerWhitespaceSplitsNormally(t *testing.T) {
	ts := NewBaseTokenizer().Tokenize([]byte("hello world"))
	assert.Equal(t, []string{"hello", "world"}, terms(ts))
	assert.Equal(t, 0, ts[0].Position)
	assert.Equal(t, 1, ts[1].Position)
}

func TestBaseTokenizerCJKIdeographsAreSingleRune(t *testing.T) {
	ts := NewBaseTokenizer().Tokenize([]byte("東京市"))
	assert.Equal(t, []string{"東", "京", "市"}, terms(ts))
	for _, tok := range ts {
		assert.Equal(t, analysis.Ideo, tok.Type)
	}
}

func TestBaseTokenizerNULBoundaryBlocksConcat(t *testing.T) {
	ts := NewBaseTokenizer().Tokenize([]byte("path\x00value"))
	assert.Equal(t, []string{"path", "value"}, terms(ts))
}

func TestBaseTokenizerNoConcatAcrossWhitespace(t *testing.T) {
	ts := NewBaseTokenizer().Tokenize([]byte("O' Kelly"))
	assert.ElementsMatch(t, []string{"O", "Kelly"}, terms(ts))
}

func TestBaseTokenizerThreeRunChain(t *testing.T) {
	ts := NewBaseTokenizer().Tokenize([]byte("Abdel-Rahman-Khan"))
	assert.ElementsMatch(t, []string{"Abdel", "Rahman", "Khan", "AbdelRahmanKhan"}, terms(ts))
}

func TestBaseTokenizerEmptyInput(t *testing.T) {
	ts := NewBaseTokenizer().Tokenize([]byte(""))
	assert.Empty(t, ts)
}
