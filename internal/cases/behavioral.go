package cases

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/roach88/apiparity/internal/behavior"
	"github.com/roach88/apiparity/internal/config"
	"github.com/roach88/apiparity/internal/ir"
	"github.com/roach88/apiparity/internal/probe"
	"github.com/roach88/apiparity/internal/spec"
)

// Behavioral categories in catalog order.
const (
	CategoryHealth      = "health"
	CategoryBasic       = "basic"
	CategoryParameters  = "parameters"
	CategoryFiltering   = "filtering"
	CategoryErrors      = "errors"
	CategoryConsistency = "consistency"
	CategoryDataQuality = "data_quality"
	CategoryCustom      = "custom"
)

// BehavioralCategories lists every behavioral category.
var BehavioralCategories = []string{
	CategoryHealth,
	CategoryBasic,
	CategoryParameters,
	CategoryFiltering,
	CategoryErrors,
	CategoryConsistency,
	CategoryDataQuality,
	CategoryCustom,
}

const (
	pageRows    = 5
	sampleRows  = 3
	qualityRows = 50
	filterRows  = 20
)

// catalog accumulates behavioral cases in order.
type catalog struct {
	b      config.Behavioral
	layout behavior.Layout
	cases  []TestCase
}

func (c *catalog) add(category, label, path string, params []Param, assert Assertion, follow ...[]Param) {
	c.cases = append(c.cases, TestCase{
		Seq:      len(c.cases) + 1,
		ID:       fmt.Sprintf("behavioral/%s/%s", category, slug(label)),
		Suite:    ir.SuiteBehavioral,
		Category: category,
		Label:    label,
		Method:   "GET",
		Path:     path,
		Params:   params,
		Follow:   follow,
		Assert:   assert,
	})
}

// search adds a case against the search endpoint.
func (c *catalog) search(category, label string, params []Param, assert Assertion, follow ...[]Param) {
	c.add(category, label, c.b.Endpoint, params, assert, follow...)
}

// query builds query parameters from name/value pairs, dropping pairs
// whose name is unconfigured.
func query(pairs ...string) []Param {
	var out []Param
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i] == "" {
			continue
		}
		out = append(out, Param{Name: pairs[i], In: spec.InQuery, Value: pairs[i+1]})
	}
	return out
}

// firstFailure evaluates checks in order and returns the first outcome
// that is not a pass, or the last pass.
func firstFailure(checks ...func() ir.Outcome) ir.Outcome {
	var o ir.Outcome
	for _, check := range checks {
		if o = check(); !o.Passed() {
			return o
		}
	}
	return o
}

// Behavioral builds the fixed behavioral catalog for cfg. Cases whose
// parameters or fields are not configured are left out. Configured
// expression checks that fail to compile are reported as an error.
func Behavioral(cfg *config.Config) ([]TestCase, error) {
	b := cfg.Behavioral
	c := &catalog{b: b, layout: behavior.LayoutFrom(b)}
	p, f, s := b.Params, b.Fields, b.Samples
	layout := c.layout
	itoa := strconv.Itoa

	if b.HealthPath != "" {
		c.add(CategoryHealth, "health endpoint", b.HealthPath, nil, func(rs []*probe.Result) ir.Outcome {
			return behavior.Health(rs[0], b.HealthStatus)
		})
	}

	c.search(CategoryBasic, "search endpoint exists", nil, func(rs []*probe.Result) ir.Outcome {
		return behavior.Status(rs[0], 200)
	})
	c.search(CategoryBasic, "json is the default format", nil, func(rs []*probe.Result) ir.Outcome {
		return behavior.ContentType(rs[0], "json")
	})
	c.search(CategoryBasic, "response structure", query(p.Rows, itoa(sampleRows)), func(rs []*probe.Result) ir.Outcome {
		return behavior.ResponseStructure(rs[0], layout, b.RequiredFields)
	})
	c.search(CategoryBasic, "document keys match ids", query(p.Rows, itoa(sampleRows)), func(rs []*probe.Result) ir.Outcome {
		return behavior.DocumentKeys(rs[0], layout, sampleRows)
	})

	c.search(CategoryParameters, "format json", query(p.Format, "json"), func(rs []*probe.Result) ir.Outcome {
		return behavior.ContentType(rs[0], "json")
	})
	c.search(CategoryParameters, "format xml", query(p.Format, "xml"), func(rs []*probe.Result) ir.Outcome {
		return behavior.ContentType(rs[0], "xml")
	})
	c.search(CategoryParameters, "rows echoed", query(p.Rows, itoa(sampleRows)), func(rs []*probe.Result) ir.Outcome {
		return firstFailure(
			func() ir.Outcome { return behavior.Echo(rs[0], layout, p.Rows, sampleRows) },
			func() ir.Outcome { return behavior.DocumentKeys(rs[0], layout, sampleRows) },
		)
	})
	over := b.MaxRows + 50
	c.search(CategoryParameters, "rows above maximum", query(p.Rows, itoa(over)), func(rs []*probe.Result) ir.Outcome {
		return behavior.RowsLimit(rs[0], layout, p.Rows, b.MaxRows)
	})
	c.search(CategoryParameters, "offset echoed", query(p.Rows, itoa(pageRows), p.Offset, itoa(pageRows)), func(rs []*probe.Result) ir.Outcome {
		return behavior.Echo(rs[0], layout, p.Offset, pageRows)
	})
	if p.Fields != "" {
		fl := b.IDField
		if f.Title != "" {
			fl += "," + f.Title
		}
		c.search(CategoryParameters, "field selection", query(p.Fields, fl, p.Rows, itoa(sampleRows)), func(rs []*probe.Result) ir.Outcome {
			return behavior.FieldSelection(rs[0], layout)
		})
	}
	if p.Query != "" && s.Query != "" {
		c.search(CategoryParameters, "query term", query(p.Query, s.Query), func(rs []*probe.Result) ir.Outcome {
			return behavior.NonNegativeTotal(rs[0], layout)
		})
	}

	if p.Country != "" && f.Country != "" && s.Country != "" {
		c.search(CategoryFiltering, "country filter", query(p.Country, s.Country, p.Rows, itoa(filterRows)), func(rs []*probe.Result) ir.Outcome {
			return behavior.Filter(rs[0], layout, f.Country, s.Country)
		})
	}
	if p.Language != "" && f.Language != "" && s.Language != "" {
		c.search(CategoryFiltering, "language filter", query(p.Language, s.Language, p.Rows, itoa(filterRows)), func(rs []*probe.Result) ir.Outcome {
			return behavior.Filter(rs[0], layout, f.Language, s.Language)
		})
	}
	dated := p.StartDate != "" && p.EndDate != "" && s.StartDate != "" && s.EndDate != ""
	if dated && f.Date != "" {
		c.search(CategoryFiltering, "date range filter",
			query(p.StartDate, s.StartDate, p.EndDate, s.EndDate, p.Rows, itoa(filterRows)),
			func(rs []*probe.Result) ir.Outcome {
				return behavior.DateRange(rs[0], layout, f.Date, s.StartDate, s.EndDate)
			})
	}

	graceful := func(rs []*probe.Result) ir.Outcome { return behavior.GracefulDegradation(rs[0], layout) }
	c.search(CategoryErrors, "invalid format", query(p.Format, "invalid"), graceful)
	c.search(CategoryErrors, "invalid rows", query(p.Rows, "invalid"), graceful)
	c.search(CategoryErrors, "negative offset", query(p.Offset, "-1"), graceful)
	if dated {
		c.search(CategoryErrors, "inverted date range", query(p.StartDate, s.EndDate, p.EndDate, s.StartDate), graceful)
	}

	repeat := query(p.Country, s.Country, p.Format, "json", p.Rows, "10")
	c.search(CategoryConsistency, "same request twice", repeat, func(rs []*probe.Result) ir.Outcome {
		return firstFailure(
			func() ir.Outcome { return behavior.Consistency(rs[0], rs[1], layout, layout.Ordered) },
			func() ir.Outcome { return behavior.DocumentKeys(rs[0], layout, 10) },
			func() ir.Outcome {
				if p.Country == "" || f.Country == "" || s.Country == "" {
					return ir.Pass("no country filter configured")
				}
				return behavior.Filter(rs[0], layout, f.Country, s.Country)
			},
		)
	}, slices.Clone(repeat))
	first := query(p.Rows, itoa(pageRows), p.Offset, "0")
	second := query(p.Rows, itoa(pageRows), p.Offset, itoa(pageRows))
	c.search(CategoryConsistency, "pagination totals", first, func(rs []*probe.Result) ir.Outcome {
		return behavior.PaginationTotals(rs[0], rs[1], layout)
	}, second)
	c.search(CategoryConsistency, "pages differ", first, func(rs []*probe.Result) ir.Outcome {
		return behavior.PagesDiffer(rs[0], rs[1], layout, pageRows)
	}, second)

	rows := itoa(min(qualityRows, b.MaxRows))
	c.search(CategoryDataQuality, "unique document ids", query(p.Rows, rows), func(rs []*probe.Result) ir.Outcome {
		return behavior.Uniqueness(rs[0], layout)
	})
	c.search(CategoryDataQuality, "non-empty fields", query(p.Rows, rows), func(rs []*probe.Result) ir.Outcome {
		return behavior.NonEmptyFields(rs[0], layout, f.Title)
	})

	for _, check := range b.Checks {
		prog, err := behavior.CompileExpression(check.Name, check.Expr)
		if err != nil {
			return nil, err
		}
		keys := make([]string, 0, len(check.Query))
		for k := range check.Query {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		var params []Param
		for _, k := range keys {
			params = append(params, Param{Name: k, In: spec.InQuery, Value: check.Query[k]})
		}
		c.search(CategoryCustom, check.Name, params, func(rs []*probe.Result) ir.Outcome {
			return behavior.Expression(rs[0], layout, prog)
		})
	}

	return c.cases, nil
}
