package httpapi

import (
	"github.com/fernsearch/fern/facet"
	"github.com/fernsearch/fern/rules"
	"github.com/fernsearch/fern/schema"
)

// settingsDTO is the wire shape of schema.Settings. Field names follow the
// spec's own naming for tenant settings rather than this module's internal
// Go field names.
type settingsDTO struct {
	AttributesForFaceting  []string            `json:"attributesForFaceting,omitempty"`
	SearchableAttributes   []string            `json:"searchableAttributes,omitempty"`
	AttributeWeights       map[string]float64  `json:"attributeWeights,omitempty"`
	MaxValuesPerFacet      int                 `json:"maxValuesPerFacet,omitempty"`
	Synonyms               []synonymRuleDTO    `json:"synonyms,omitempty"`
	Rules                  []ruleDTO           `json:"rules,omitempty"`
	RemoveStopWords        bool                `json:"removeStopWords,omitempty"`
	StopWords              map[string][]string `json:"stopWords,omitempty"`
	IgnorePlurals          bool                `json:"ignorePlurals,omitempty"`
	IgnorePluralsLanguages []string            `json:"ignorePluralsLanguages,omitempty"`
}

type synonymRuleDTO struct {
	OneWay   bool     `json:"oneWay,omitempty"`
	Terms    []string `json:"terms,omitempty"`
	Input    string   `json:"input,omitempty"`
	Synonyms []string `json:"synonyms,omitempty"`
}

type pinEffectDTO struct {
	ID       string `json:"id"`
	Position int    `json:"position"`
}

type ruleDTO struct {
	Pattern string         `json:"pattern"`
	Prefix  bool           `json:"prefix,omitempty"`
	Pins    []pinEffectDTO `json:"pins,omitempty"`
	Hides   []string       `json:"hides,omitempty"`
}

func settingsFromDTO(d settingsDTO) schema.Settings {
	s := schema.Settings{
		AttributesForFaceting:  d.AttributesForFaceting,
		SearchableAttributes:   d.SearchableAttributes,
		AttributeWeights:       d.AttributeWeights,
		MaxValuesPerFacet:      d.MaxValuesPerFacet,
		RemoveStopWords:        d.RemoveStopWords,
		StopWords:              d.StopWords,
		IgnorePlurals:          d.IgnorePlurals,
		IgnorePluralsLanguages: d.IgnorePluralsLanguages,
	}
	if s.AttributeWeights == nil {
		s.AttributeWeights = map[string]float64{}
	}
	if s.StopWords == nil {
		s.StopWords = map[string][]string{}
	}
	if s.MaxValuesPerFacet == 0 {
		s.MaxValuesPerFacet = 100
	}
	for _, sr := range d.Synonyms {
		s.Synonyms = append(s.Synonyms, schema.SynonymRule{
			OneWay: sr.OneWay, Terms: sr.Terms, Input: sr.Input, Synonyms: sr.Synonyms,
		})
	}
	for _, r := range d.Rules {
		rule := schema.Rule{Pattern: r.Pattern, Prefix: r.Prefix, Hides: r.Hides}
		for _, p := range r.Pins {
			rule.Pins = append(rule.Pins, schema.PinEffect{ID: p.ID, Position: p.Position})
		}
		s.Rules = append(s.Rules, rule)
	}
	return s
}

func settingsToDTO(s schema.Settings) settingsDTO {
	d := settingsDTO{
		AttributesForFaceting:  s.AttributesForFaceting,
		SearchableAttributes:   s.SearchableAttributes,
		AttributeWeights:       s.AttributeWeights,
		MaxValuesPerFacet:      s.MaxValuesPerFacet,
		RemoveStopWords:        s.RemoveStopWords,
		StopWords:              s.StopWords,
		IgnorePlurals:          s.IgnorePlurals,
		IgnorePluralsLanguages: s.IgnorePluralsLanguages,
	}
	for _, sr := range s.Synonyms {
		d.Synonyms = append(d.Synonyms, synonymRuleDTO{
			OneWay: sr.OneWay, Terms: sr.Terms, Input: sr.Input, Synonyms: sr.Synonyms,
		})
	}
	for _, r := range s.Rules {
		rd := ruleDTO{Pattern: r.Pattern, Prefix: r.Prefix, Hides: r.Hides}
		for _, p := range r.Pins {
			rd.Pins = append(rd.Pins, pinEffectDTO{ID: p.ID, Position: p.Position})
		}
		d.Rules = append(d.Rules, rd)
	}
	return d
}

// createTenantRequest is the body of POST /tenants/{tenant}.
type createTenantRequest struct {
	Settings settingsDTO `json:"settings"`
}

// createTenantResponse reports whether the tenant was newly created or
// already existed, per create_tenant's documented idempotence.
type createTenantResponse struct {
	Tenant        string `json:"tenant"`
	AlreadyExists bool   `json:"already_exists"`
}

// addDocumentsRequest is the body of POST /tenants/{tenant}/documents.
type addDocumentsRequest struct {
	Documents []map[string]interface{} `json:"documents"`
}

type addDocumentsResponse struct {
	ObjectIDs []string `json:"objectIDs"`
}

// partialUpdateRequest is the body of PATCH /tenants/{tenant}/documents/{id}.
type partialUpdateRequest map[string]interface{}

type deleteByQueryRequest struct {
	Filter string `json:"filter"`
}

type deleteByQueryResponse struct {
	Deleted int `json:"deleted"`
}

type clearResponse struct {
	Deleted int `json:"deleted"`
}

// facetRequestDTO mirrors facet.Request over the wire.
type facetRequestDTO struct {
	Field     string `json:"field"`
	Path      string `json:"path,omitempty"`
	MaxValues int    `json:"maxValues,omitempty"`
}

type searchRequestDTO struct {
	Query    string            `json:"query"`
	Filter   string            `json:"filter,omitempty"`
	Sort     []string          `json:"sort,omitempty"`
	Limit    int               `json:"limit,omitempty"`
	Offset   int               `json:"offset,omitempty"`
	Facets   []facetRequestDTO `json:"facets,omitempty"`
	Language string            `json:"language,omitempty"`
	// UserID is an analytics hint, not an engine input: when non-empty the
	// request is folded into the as-you-type/pagination dedup window
	// before being counted as a search.
	UserID string `json:"userID,omitempty"`
}

func facetRequestsFromDTO(in []facetRequestDTO) []facet.Request {
	out := make([]facet.Request, 0, len(in))
	for _, f := range in {
		out = append(out, facet.Request{Field: f.Field, Path: f.Path, MaxValues: f.MaxValues})
	}
	return out
}

type hitDTO struct {
	ID     string                 `json:"id"`
	Score  float64                `json:"score"`
	Fields map[string]interface{} `json:"fields"`
}

type bucketDTO struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

type searchResponseDTO struct {
	Hits   []hitDTO               `json:"hits"`
	Total  uint64                 `json:"total"`
	Facets map[string][]bucketDTO `json:"facets,omitempty"`
}

func searchResponseFromHits(hits []rules.Hit, total uint64, facets map[string][]facet.Bucket) searchResponseDTO {
	resp := searchResponseDTO{Total: total}
	resp.Hits = make([]hitDTO, len(hits))
	for i, h := range hits {
		resp.Hits[i] = hitDTO{ID: h.ID, Score: h.Score, Fields: h.Fields}
	}
	if facets != nil {
		resp.Facets = make(map[string][]bucketDTO, len(facets))
		for field, buckets := range facets {
			bs := make([]bucketDTO, len(buckets))
			for i, b := range buckets {
				bs[i] = bucketDTO{Value: b.Value, Count: b.Count}
			}
			resp.Facets[field] = bs
		}
	}
	return resp
}

type errorResponse struct {
	Error string `json:"error"`
}
