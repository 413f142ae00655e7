package query

// compoundSplits is a small built-in table of known compound words, used
// to try a word-splitting alternative for long single tokens ("hotdog" ->
// "hot dog"). A real deployment would drive this from a frequency
// dictionary; this engine ships only the fixed table since no such
// dictionary is part of its distribution.
var compoundSplits = map[string]string{
	"hotdog":     "hot dog",
	"bluetooth":  "blue tooth",
	"basketball": "basket ball",
	"keyboard":   "key board",
	"background": "back ground",
	"database":   "data base",
	"notebook":   "note book",
	"airline":    "air line",
}

// trySplit looks up word in the built-in compound table.
func trySplit(word string) (string, bool) {
	split, ok := compoundSplits[word]
	return split, ok
}

// tryConcat joins two adjacent words into a single candidate term, tried
// unconditionally (no dictionary needed: the fuzzy/term query against the
// index is itself the filter for whether it was a real word).
func tryConcat(a, b string) string {
	return a + b
}
