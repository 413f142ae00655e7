package filter

import (
	"github.com/blevesearch/bleve/v2"
	bq "github.com/blevesearch/bleve/v2/search/query"

	"github.com/fernsearch/fern/ferrors"
	"github.com/fernsearch/fern/schema"
)

// Compile turns a filter expression into an executable bleve query against
// a tenant's schema. knownNumericFields is the set of dotted field paths
// observed as numeric values across the tenant's ingested documents so
// far ("fast numeric fields are created on demand", spec section 4.D) —
// a range operator against a field outside that set is an error. Equality
// against a field absent from settings.AttributesForFaceting yields a
// query that matches nothing, not an error.
func Compile(expr Expr, settings schema.Settings, knownNumericFields map[string]struct{}) (bq.Query, error) {
	switch e := expr.(type) {
	case MatchAll:
		return bleve.NewMatchAllQuery(), nil

	case Equality:
		if !settings.IsFacetField(e.Field) {
			return bleve.NewMatchNoneQuery(), nil
		}
		path := schema.FacetPath(e.Field, e.Value)
		q := bleve.NewTermQuery(path)
		q.SetField(schema.FacetFieldName(e.Field))
		return q, nil

	case Compare:
		if err := schema.ValidateFieldReference(e.Field, knownNumericFields); err != nil {
			return nil, err
		}
		return compareQuery(e), nil

	case Not:
		inner, err := Compile(e.Expr, settings, knownNumericFields)
		if err != nil {
			return nil, err
		}
		bqry := bleve.NewBooleanQuery()
		bqry.AddMust(bleve.NewMatchAllQuery())
		bqry.AddMustNot(inner)
		return bqry, nil

	case And:
		left, err := Compile(e.Left, settings, knownNumericFields)
		if err != nil {
			return nil, err
		}
		right, err := Compile(e.Right, settings, knownNumericFields)
		if err != nil {
			return nil, err
		}
		return bleve.NewConjunctionQuery([]bq.Query{left, right}), nil

	case Or:
		left, err := Compile(e.Left, settings, knownNumericFields)
		if err != nil {
			return nil, err
		}
		right, err := Compile(e.Right, settings, knownNumericFields)
		if err != nil {
			return nil, err
		}
		dq := bleve.NewDisjunctionQuery([]bq.Query{left, right})
		dq.SetMin(1)
		return dq, nil

	default:
		return nil, ferrors.InvalidQuery("unrecognized filter expression node")
	}
}

func compareQuery(c Compare) bq.Query {
	t, f := true, false
	switch c.Op {
	case OpGTE:
		q := bleve.NewNumericRangeInclusiveQuery(&c.Value, nil, &t, nil)
		q.SetField(c.Field)
		return q
	case OpLTE:
		q := bleve.NewNumericRangeInclusiveQuery(nil, &c.Value, nil, &t)
		q.SetField(c.Field)
		return q
	case OpGT:
		q := bleve.NewNumericRangeInclusiveQuery(&c.Value, nil, &f, nil)
		q.SetField(c.Field)
		return q
	default: // OpLT
		q := bleve.NewNumericRangeInclusiveQuery(nil, &c.Value, nil, &f)
		q.SetField(c.Field)
		return q
	}
}

// CompileString parses and compiles in one step.
func CompileString(input string, settings schema.Settings, knownNumericFields map[string]struct{}) (bq.Query, error) {
	expr, err := Parse(input)
	if err != nil {
		return nil, err
	}
	return Compile(expr, settings, knownNumericFields)
}
