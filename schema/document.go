package schema

import (
	"strconv"

	"github.com/fernsearch/fern/ferrors"
	"github.com/google/uuid"
)

// SearchFieldName is the single bleve text field that receives every
// string leaf's tokens, each prefixed with its JSON path.
const SearchFieldName = "_json_search"

// BodyFieldName is the stored field holding the canonical JSON document.
const BodyFieldName = "_body"

// IDFieldName is the term field holding the document's resolved ID.
const IDFieldName = "_id"

// Flattened is the result of walking a document's JSON tree: the terms fed
// into the search field, the numeric leaves (including dates, stored as
// epoch integers) available as fast fields, and the raw top-level values
// that may still need facet-path extraction once settings are known.
type Flattened struct {
	SearchTerms []string
	Numeric     map[string]float64
	RawTopLevel map[string]interface{}
}

// Flatten walks a document's fields, producing path\0value search terms for
// every string leaf and a dotted-path numeric map for every numeric leaf.
// Arrays are expanded positionally (path.0, path.1, ...). RawTopLevel keeps
// the document's unflattened top-level values so a caller can later run
// ExtractFacetPaths against whichever fields settings.AttributesForFaceting
// names.
func Flatten(fields map[string]interface{}) *Flattened {
	f := &Flattened{
		Numeric:     make(map[string]float64),
		RawTopLevel: fields,
	}
	for key, val := range fields {
		walk(key, val, f)
	}
	return f
}

func walk(path string, value interface{}, f *Flattened) {
	switch v := value.(type) {
	case string:
		f.SearchTerms = append(f.SearchTerms, path+"\x00"+v)
	case float64:
		f.Numeric[path] = v
	case int:
		f.Numeric[path] = float64(v)
	case int64:
		f.Numeric[path] = float64(v)
	case bool:
		if v {
			f.Numeric[path] = 1
		} else {
			f.Numeric[path] = 0
		}
	case map[string]interface{}:
		for k, nested := range v {
			walk(path+"."+k, nested, f)
		}
	case []interface{}:
		for i, item := range v {
			walk(path+"."+strconv.Itoa(i), item, f)
		}
	case nil:
		// absent value, nothing to index
	}
}

// ResolveID returns the document's ID: an explicit "objectID" or "_id"
// string field takes precedence, and a fresh UUID is generated otherwise.
// It reports whether the ID was caller-supplied.
func ResolveID(fields map[string]interface{}) (id string, supplied bool) {
	for _, key := range []string{"objectID", "_id"} {
		if v, ok := fields[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s, true
			}
		}
	}
	return uuid.NewString(), false
}

// ValidateFieldReference returns a FieldNotFound-kind error when a filter
// or sort expression names a field absent from both numeric fast fields
// and the document's known dotted paths. Callers pass the set of paths
// observed across ingested documents for the tenant.
func ValidateFieldReference(field string, knownPaths map[string]struct{}) error {
	if _, ok := knownPaths[field]; ok {
		return nil
	}
	return ferrors.FieldNotFound(field)
}
