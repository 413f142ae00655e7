package token

import (
	"fmt"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/registry"
)

// IngestAnalyzerName is the analyzer applied to stored/indexed text: base
// tokenizer, lowercasing, then edge-n-gram expansion so prefix queries match
// without per-query wildcard cost.
const IngestAnalyzerName = "fern_ingest"

// IngestAnalyzerWideName is IngestAnalyzerName with the wider max_gram,
// for fields that want longer indexed prefixes.
const IngestAnalyzerWideName = "fern_ingest_wide"

// QueryAnalyzerName is the analyzer applied to incoming query text: base
// tokenizer and lowercasing only. Fuzzy/prefix expansion happens explicitly
// in the query package, not by over-generating n-grams at analysis time.
const QueryAnalyzerName = "fern_query"

func init() {
	must(registry.RegisterTokenizer(BaseTokenizerName, tokenizerConstructor))
	must(registry.RegisterTokenFilter(EdgeNgramFilterName, edgeNgramConstructor(minGram, defaultMax)))
	must(registry.RegisterTokenFilter(EdgeNgramFilterWideName, edgeNgramConstructor(minGram, wideMax)))
	must(registry.RegisterAnalyzer(IngestAnalyzerName, ingestAnalyzerConstructor(EdgeNgramFilterName)))
	must(registry.RegisterAnalyzer(IngestAnalyzerWideName, ingestAnalyzerConstructor(EdgeNgramFilterWideName)))
	must(registry.RegisterAnalyzer(QueryAnalyzerName, queryAnalyzerConstructor))
}

func must(err error) {
	if err != nil {
		panic(fmt.Sprintf("token: registry registration failed: %v", err))
	}
}

func tokenizerConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.Tokenizer, error) {
	return NewBaseTokenizer(), nil
}

func edgeNgramConstructor(minGram, maxGram int) registry.TokenFilterConstructor {
	return func(config map[string]interface{}, cache *registry.Cache) (analysis.TokenFilter, error) {
		return NewEdgeNgramFilter(minGram, maxGram), nil
	}
}

func ingestAnalyzerConstructor(edgeNgramName string) registry.AnalyzerConstructor {
	return func(config map[string]interface{}, cache *registry.Cache) (*analysis.Analyzer, error) {
		tokenizer, err := cache.TokenizerNamed(BaseTokenizerName)
		if err != nil {
			return nil, err
		}
		lower, err := cache.TokenFilterNamed(lowercase.Name)
		if err != nil {
			return nil, err
		}
		ngram, err := cache.TokenFilterNamed(edgeNgramName)
		if err != nil {
			return nil, err
		}
		return &analysis.Analyzer{
			Tokenizer:    tokenizer,
			TokenFilters: []analysis.TokenFilter{lower, ngram},
		}, nil
	}
}

func queryAnalyzerConstructor(config map[string]interface{}, cache *registry.Cache) (*analysis.Analyzer, error) {
	tokenizer, err := cache.TokenizerNamed(BaseTokenizerName)
	if err != nil {
		return nil, err
	}
	lower, err := cache.TokenFilterNamed(lowercase.Name)
	if err != nil {
		return nil, err
	}
	return &analysis.Analyzer{
		Tokenizer:    tokenizer,
		TokenFilters: []analysis.TokenFilter{lower},
	}, nil
}
