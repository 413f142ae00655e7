package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fernsearch/fern/token"
)

func TestBuildIndexMappingConfiguresFields(t *testing.T) {
	im := BuildIndexMapping()
	require.NotNil(t, im)
	assert.Equal(t, token.QueryAnalyzerName, im.DefaultAnalyzer)
	require.NotNil(t, im.DefaultMapping)

	searchField := im.DefaultMapping.FieldMappingsAt(SearchFieldName)
	require.Len(t, searchField, 1)
	assert.Equal(t, token.IngestAnalyzerName, searchField[0].Analyzer)

	idField := im.DefaultMapping.FieldMappingsAt(IDFieldName)
	require.Len(t, idField, 1)
	assert.Equal(t, "keyword", idField[0].Analyzer)
}
