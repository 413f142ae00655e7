// Package token implements Fern's tokenization and analysis pipeline
// (component A): a punctuation-splitting base tokenizer that emits
// concatenated forms ("O'Kelly" -> {O, Kelly, OKelly}), an edge-n-gram
// filter for prefix search, and the ingest/query analyzer compositions that
// wire them together through bleve's analysis registry.
package token

import (
	"unicode"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2/analysis"
)

// BaseTokenizerName is the registry name of the punctuation-splitting
// tokenizer.
const BaseTokenizerName = "fern_base"

// concatPunct is the punctuation set that, appearing exactly once between
// two adjacent alphanumeric runs with no intervening whitespace, joins the
// runs into an extra concatenated token.
var concatPunct = map[rune]bool{'\'': true, '-': true}

func isIdeograph(r rune) bool {
	return unicode.Is(unicode.Han, r)
}

func isAlnumRune(r rune) bool {
	if isIdeograph(r) {
		return false
	}
	return unicode.IsLetter(r) || unicode.IsNumber(r)
}

// BaseTokenizer splits on Unicode whitespace and on the punctuation set
// documented in the engine spec, keeps CJK ideographs as single-rune
// tokens, treats NUL as a hard (non-concat) boundary so JSON-path prefixes
// never merge with values, and emits the extra concat token described
// above.
type BaseTokenizer struct{}

// NewBaseTokenizer constructs a BaseTokenizer. It holds no state and a
// single instance may be reused across documents.
func NewBaseTokenizer() *BaseTokenizer { return &BaseTokenizer{} }

type chainRun struct {
	start, end, position int
	term                 []byte
}

// Tokenize implements analysis.Tokenizer.
func (t *BaseTokenizer) Tokenize(input []byte) analysis.TokenStream {
	runes := []rune(string(input))
	n := len(runes)
	offsets := make([]int, n+1)
	b := 0
	for i, r := range runes {
		offsets[i] = b
		b += utf8.RuneLen(r)
	}
	offsets[n] = b

	var tokens analysis.TokenStream
	var chain []chainRun
	position := 0

	emitChain := func() {
		if len(chain) < 2 {
			chain = nil
			return
		}
		total := 0
		for _, r := range chain {
			total += len(r.term)
		}
		if total >= 3 {
			buf := make([]byte, 0, total)
			for _, r := range chain {
				buf = append(buf, r.term...)
			}
			tokens = append(tokens, &analysis.Token{
				Start:    chain[0].start,
				End:      chain[len(chain)-1].end,
				Term:     buf,
				Position: chain[0].position,
				Type:     analysis.AlphaNumeric,
			})
		}
		chain = nil
	}

	i := 0
	for i < n {
		r := runes[i]

		switch {
		case isIdeograph(r):
			emitChain()
			tokens = append(tokens, &analysis.Token{
				Start:    offsets[i],
				End:      offsets[i+1],
				Term:     []byte(string(r)),
				Position: position,
				Type:     analysis.Ideo,
			})
			position++
			i++

		case unicode.IsSpace(r):
			emitChain()
			i++

		case isAlnumRune(r):
			start := i
			for i < n && isAlnumRune(runes[i]) {
				i++
			}
			term := []byte(string(runes[start:i]))
			tok := &analysis.Token{
				Start:    offsets[start],
				End:      offsets[i],
				Term:     term,
				Position: position,
				Type:     analysis.AlphaNumeric,
			}
			tokens = append(tokens, tok)
			cr := chainRun{start: tok.Start, end: tok.End, position: position, term: term}
			position++

			// Continue a concat chain only when exactly one concat-eligible
			// rune separates this run from the next alphanumeric run, with
			// no gap on either side.
			if i < n && concatPunct[runes[i]] && i+1 < n && isAlnumRune(runes[i+1]) {
				chain = append(chain, cr)
				i++ // consume the single joining rune
				continue
			}
			if chain != nil {
				chain = append(chain, cr)
				emitChain()
			}

		default:
			// Listed punctuation, NUL, and anything else outside the
			// alphanumeric/ideograph/whitespace classes: a hard boundary,
			// never concat-eligible. NUL in particular separates a JSON
			// path from its value, so a concat chain never survives it.
			emitChain()
			i++
		}
	}
	emitChain()

	return tokens
}
