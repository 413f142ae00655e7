package schema

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/fernsearch/fern/token"
)

// FacetDocFieldName is the top-level document field under which every
// faceting attribute's extracted paths live as a sub-field; giving it its
// own dynamic sub-mapping with a keyword default analyzer means an
// arbitrary, per-tenant-configured set of faceting attributes never needs
// the index mapping itself to change.
const FacetDocFieldName = "_facet"

// BuildIndexMapping constructs the single bleve index mapping shared by
// every tenant: an analyzed _json_search field for full-text search, a
// stored-only _body field holding the canonical JSON, a keyword _id
// field, and a dynamic "_facet" sub-document whose string fields default
// to keyword (unanalyzed) indexing. Numeric fast fields fall through to
// bleve's ordinary dynamic mapping, created on demand as documents
// introduce them.
func BuildIndexMapping() *mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	im.DefaultAnalyzer = token.QueryAnalyzerName

	searchField := bleve.NewTextFieldMapping()
	searchField.Analyzer = token.IngestAnalyzerName
	searchField.Store = false

	bodyField := bleve.NewTextFieldMapping()
	bodyField.Index = false
	bodyField.Store = true

	idField := bleve.NewTextFieldMapping()
	idField.Analyzer = "keyword"
	idField.Store = true

	root := bleve.NewDocumentMapping()
	root.AddFieldMappingsAt(SearchFieldName, searchField)
	root.AddFieldMappingsAt(BodyFieldName, bodyField)
	root.AddFieldMappingsAt(IDFieldName, idField)

	facetDoc := bleve.NewDocumentMapping()
	facetDoc.Dynamic = true
	facetDoc.DefaultAnalyzer = "keyword"
	root.AddSubDocumentMapping(FacetDocFieldName, facetDoc)

	im.DefaultMapping = root
	return im
}
