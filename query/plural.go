package query

import "strings"

// stemPlural applies a small heuristic English plural stemmer: trailing
// "ies" -> "y", trailing "es" after a sibilant, trailing "s" otherwise.
// It is intentionally conservative (never strips from very short words)
// since over-stemming hurts precision more than under-stemming.
func stemPlural(word string) string {
	n := len(word)
	switch {
	case n > 4 && strings.HasSuffix(word, "ies"):
		return word[:n-3] + "y"
	case n > 5 && hasSibilantEsSuffix(word):
		return word[:n-2]
	case n > 3 && strings.HasSuffix(word, "s") && !strings.HasSuffix(word, "ss"):
		return word[:n-1]
	default:
		return word
	}
}

func hasSibilantEsSuffix(word string) bool {
	for _, suf := range []string{"ses", "xes", "zes", "ches", "shes"} {
		if strings.HasSuffix(word, suf) {
			return true
		}
	}
	return false
}

// languageAppliesPlurals reports whether plural normalization is enabled
// for the given language under the tenant's ignorePlurals setting.
func languageAppliesPlurals(ignoreAll bool, languages []string, language string) bool {
	if ignoreAll {
		return true
	}
	for _, l := range languages {
		if l == language {
			return true
		}
	}
	return false
}
