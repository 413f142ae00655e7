package schema

import (
	"strconv"
	"strings"

	"github.com/fernsearch/fern/ferrors"
)

// FacetFieldName returns the bleve field name that stores a faceting
// attribute's extracted paths as unanalyzed keyword terms, used by both
// the filter compiler (equality filtering) and the facet aggregator
// (bucket counting).
func FacetFieldName(attribute string) string {
	return "_facet." + attribute
}

// IsHierarchicalFacet reports whether a raw facet value is an Algolia-style
// hierarchical object, i.e. an object with at least one "lvlN" key.
func IsHierarchicalFacet(value interface{}) bool {
	m, ok := value.(map[string]interface{})
	if !ok {
		return false
	}
	for k := range m {
		if strings.HasPrefix(k, "lvl") {
			return true
		}
	}
	return false
}

// FacetPath translates an Algolia-style facet value ("A > B > C") into the
// indexed path form ("/field/A/B/C").
func FacetPath(fieldName, value string) string {
	path := strings.ReplaceAll(value, " > ", "/")
	return "/" + fieldName + "/" + path
}

// FacetDisplay reverses FacetPath, turning an indexed path back into its
// Algolia display form.
func FacetDisplay(path string) string {
	trimmed := strings.TrimPrefix(path, "/")
	return strings.ReplaceAll(trimmed, "/", " > ")
}

// DeepestFacetLevel returns the value of the highest-numbered "lvlN" key in
// a hierarchical facet object, for callers that need a single display
// string instead of the full per-level breakdown.
func DeepestFacetLevel(obj map[string]interface{}) (string, bool) {
	maxLevel := -1
	var deepest string
	found := false
	for key, val := range obj {
		suffix, ok := strings.CutPrefix(key, "lvl")
		if !ok {
			continue
		}
		level, err := strconv.Atoi(suffix)
		if err != nil {
			continue
		}
		s, ok := val.(string)
		if !ok {
			continue
		}
		if level > maxLevel {
			maxLevel = level
			deepest = s
			found = true
		}
	}
	return deepest, found
}

// ExtractFacetPaths produces the indexed path(s) for a raw facet value,
// which may be a plain string, an array of strings, or a hierarchical
// "lvlN" object (which yields one path per level, each nested under
// "field.lvlN").
func ExtractFacetPaths(fieldName string, value interface{}) ([]string, error) {
	switch v := value.(type) {
	case map[string]interface{}:
		// Each level is emitted verbatim under "field.lvlN" without the
		// " > " -> "/" translation FacetPath applies to plain strings: a
		// hierarchical value's own ">" separators are part of its display
		// form, not a nested path.
		var paths []string
		for key, val := range v {
			s, ok := val.(string)
			if !ok {
				continue
			}
			nestedField := fieldName + "." + key
			paths = append(paths, "/"+nestedField+"/"+s)
		}
		return paths, nil
	case string:
		return []string{FacetPath(fieldName, v)}, nil
	case []interface{}:
		var paths []string
		for _, item := range v {
			if s, ok := item.(string); ok {
				paths = append(paths, FacetPath(fieldName, s))
			}
		}
		return paths, nil
	default:
		return nil, ferrors.InvalidDocument("invalid facet value type for field %s", fieldName)
	}
}
