// Package filter implements the filter compiler (component H): the
// boolean/comparison grammar documented in spec section 4.H, parsed into
// an expression tree and compiled against a tenant's settings into an
// executable bleve query.
package filter

import (
	"strings"
	"unicode"

	"github.com/fernsearch/fern/ferrors"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokNumber
	tokColon
	tokGTE
	tokLTE
	tokGT
	tokLT
	tokAnd
	tokOr
	tokNot
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
}

// lex splits a filter expression into tokens. Bareword identifiers (field
// names and unquoted values) run until whitespace or one of the grammar's
// structural characters; quoted strings allow values containing spaces.
func lex(input string) ([]token, error) {
	var tokens []token
	r := []rune(input)
	n := len(r)
	i := 0
	for i < n {
		c := r[i]
		switch {
		case unicode.IsSpace(c):
			i++
		case c == '(':
			tokens = append(tokens, token{tokLParen, "("})
			i++
		case c == ')':
			tokens = append(tokens, token{tokRParen, ")"})
			i++
		case c == ':':
			tokens = append(tokens, token{tokColon, ":"})
			i++
		case c == '>' && i+1 < n && r[i+1] == '=':
			tokens = append(tokens, token{tokGTE, ">="})
			i += 2
		case c == '<' && i+1 < n && r[i+1] == '=':
			tokens = append(tokens, token{tokLTE, "<="})
			i += 2
		case c == '>':
			tokens = append(tokens, token{tokGT, ">"})
			i++
		case c == '<':
			tokens = append(tokens, token{tokLT, "<"})
			i++
		case c == '"':
			start := i + 1
			j := start
			for j < n && r[j] != '"' {
				j++
			}
			if j >= n {
				return nil, ferrors.InvalidQuery("unterminated quoted string in filter expression")
			}
			tokens = append(tokens, token{tokString, string(r[start:j])})
			i = j + 1
		default:
			start := i
			for i < n && !unicode.IsSpace(r[i]) && !strings.ContainsRune("():<>\"", r[i]) {
				i++
			}
			if i == start {
				return nil, ferrors.InvalidQuery("unexpected character %q in filter expression", string(c))
			}
			word := string(r[start:i])
			switch strings.ToUpper(word) {
			case "AND":
				tokens = append(tokens, token{tokAnd, word})
			case "OR":
				tokens = append(tokens, token{tokOr, word})
			case "NOT":
				tokens = append(tokens, token{tokNot, word})
			default:
				if isNumber(word) {
					tokens = append(tokens, token{tokNumber, word})
				} else {
					tokens = append(tokens, token{tokIdent, word})
				}
			}
		}
	}
	tokens = append(tokens, token{tokEOF, ""})
	return tokens, nil
}

func isNumber(s string) bool {
	if s == "" {
		return false
	}
	seenDigit, seenDot := false, false
	for i, r := range s {
		switch {
		case r == '-' && i == 0:
		case r == '.' && !seenDot:
			seenDot = true
		case unicode.IsDigit(r):
			seenDigit = true
		default:
			return false
		}
	}
	return seenDigit
}
