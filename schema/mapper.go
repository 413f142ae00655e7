package schema

import (
	"github.com/bytedance/sonic"

	"github.com/fernsearch/fern/ferrors"
)

// BuildIndexDocument turns a caller's raw field map into the flat
// representation bleve indexes: the merged search-term field, per-path
// numeric fast fields, the canonical stored body, the ID term, and (for
// every configured faceting attribute present on the document) extracted
// facet paths nested under FacetDocFieldName.
func BuildIndexDocument(id string, fields map[string]interface{}, settings Settings) (map[string]interface{}, error) {
	flattened := Flatten(fields)

	body, err := sonic.Marshal(fields)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.KindInvalidDocument, "marshal document body", err)
	}

	doc := map[string]interface{}{
		IDFieldName:   id,
		BodyFieldName: string(body),
	}
	if len(flattened.SearchTerms) > 0 {
		doc[SearchFieldName] = flattened.SearchTerms
	}
	for path, v := range flattened.Numeric {
		doc[path] = v
	}

	facetFields := make(map[string]interface{})
	for _, attr := range settings.AttributesForFaceting {
		raw, ok := fields[attr]
		if !ok {
			continue
		}
		paths, err := ExtractFacetPaths(attr, raw)
		if err != nil || len(paths) == 0 {
			continue
		}
		facetFields[attr] = paths
	}
	if len(facetFields) > 0 {
		doc[FacetDocFieldName] = facetFields
	}

	return doc, nil
}
