package cases

import (
	"fmt"
	"iter"

	"github.com/roach88/apiparity/internal/ir"
	"github.com/roach88/apiparity/internal/spec"
)

// GeneratorConfig tunes openapi case generation.
type GeneratorConfig struct {
	// DateStart and DateEnd name the query parameters that bound a date
	// range. Operations declaring both get an inverted-range invalid case.
	DateStart string
	DateEnd   string
}

// Generator derives openapi cases from an InterfaceSpec. It holds no
// iteration state; every sequence it returns starts fresh.
type Generator struct {
	cfg GeneratorConfig
}

// New creates a Generator.
func New(cfg GeneratorConfig) *Generator {
	return &Generator{cfg: cfg}
}

// draft is a case before it is numbered.
type draft struct {
	label  string
	target string
	params []Param
	expect ExpectClass
}

// Generate returns the cases of strategy st for s, operations in document
// order. Iterating the sequence twice yields identical cases.
func (g *Generator) Generate(s *spec.InterfaceSpec, st Strategy) iter.Seq[TestCase] {
	return func(yield func(TestCase) bool) {
		seq := 0
		seen := make(map[string]int)
		for _, strategy := range st.Expand() {
			for _, op := range s.Operations {
				for _, d := range g.drafts(op, strategy) {
					seq++
					id := fmt.Sprintf("openapi/%s/%s/%s", strategy, op.ID, slug(d.label))
					seen[id]++
					if n := seen[id]; n > 1 {
						id = fmt.Sprintf("%s-%d", id, n)
					}
					tc := TestCase{
						Seq:         seq,
						ID:          id,
						Suite:       ir.SuiteOpenAPI,
						Category:    string(strategy),
						Strategy:    strategy,
						Label:       d.label,
						OperationID: op.ID,
						Method:      op.Method,
						Path:        op.Path,
						Params:      d.params,
						Expect:      d.expect,
						Target:      d.target,
					}
					if !yield(tc) {
						return
					}
				}
			}
		}
	}
}

func (g *Generator) drafts(op *spec.Operation, st Strategy) []draft {
	switch st {
	case StrategyValid:
		return validDrafts(op)
	case StrategyBoundary:
		return boundaryDrafts(op)
	case StrategyInvalid:
		return g.invalidDrafts(op)
	}
	return nil
}

// baseline fills every required parameter with its sample value.
func baseline(op *spec.Operation) []Param {
	var params []Param
	for _, p := range op.Parameters {
		if p.Required {
			params = append(params, Param{Name: p.Name, In: p.In, Value: Sample(p.Schema)})
		}
	}
	return params
}

func validDrafts(op *spec.Operation) []draft {
	out := []draft{{
		label:  "required parameters only",
		params: baseline(op),
		expect: ExpectSuccess,
	}}

	var all []Param
	optional := 0
	for _, p := range op.Parameters {
		if !p.Required {
			optional++
		}
		all = append(all, Param{Name: p.Name, In: p.In, Value: Sample(p.Schema)})
	}
	if optional > 0 {
		out = append(out, draft{label: "all optional parameters", params: all, expect: ExpectSuccess})
	}
	return out
}

func boundaryDrafts(op *spec.Operation) []draft {
	base := baseline(op)
	var out []draft
	for _, p := range op.Parameters {
		s := p.Schema.Resolve()
		if s == nil || !p.Constrained() {
			continue
		}
		add := func(value string, expect ExpectClass, label string) {
			out = append(out, draft{
				label:  fmt.Sprintf("%s %s", p.Name, label),
				target: p.Name,
				params: withParam(base, Param{Name: p.Name, In: p.In, Value: value}),
				expect: expect,
			})
		}

		if len(s.Enum) > 0 {
			for _, v := range s.Enum {
				add(render(v), ExpectSuccess, "enum "+render(v))
			}
			add(notInEnum, ExpectClientError, "outside enum")
		}

		step := stepOf(s)
		if s.Minimum != nil {
			lo := *s.Minimum
			if s.ExclusiveMinimum {
				add(render(lo+step), ExpectSuccess, "just above exclusive minimum")
				add(render(lo), ExpectClientError, "at exclusive minimum")
			} else {
				add(render(lo), ExpectSuccess, "at minimum")
				add(render(lo-step), ExpectClientError, "below minimum")
			}
		}
		if s.Maximum != nil {
			hi := *s.Maximum
			if s.ExclusiveMaximum {
				add(render(hi-step), ExpectSuccess, "just below exclusive maximum")
				add(render(hi), ExpectClientError, "at exclusive maximum")
			} else {
				add(render(hi), ExpectSuccess, "at maximum")
				add(render(hi+step), ExpectClientError, "above maximum")
			}
		}

		if s.MinLength != nil {
			add(fill(*s.MinLength), ExpectSuccess, fmt.Sprintf("length %d at minimum", *s.MinLength))
			if *s.MinLength > 0 {
				add(fill(*s.MinLength-1), ExpectClientError, fmt.Sprintf("length %d below minimum", *s.MinLength-1))
			}
		}
		if s.MaxLength != nil {
			add(fill(*s.MaxLength), ExpectSuccess, fmt.Sprintf("length %d at maximum", *s.MaxLength))
			add(fill(*s.MaxLength+1), ExpectClientError, fmt.Sprintf("length %d above maximum", *s.MaxLength+1))
		}

		switch s.Format {
		case "date":
			add(sampleDate, ExpectSuccess, "valid date")
			add(invalidDate, ExpectClientError, "impossible date")
		case "date-time":
			add(sampleDateTime, ExpectSuccess, "valid date-time")
			add(invalidDate, ExpectClientError, "impossible date-time")
		}
	}
	return out
}

func (g *Generator) invalidDrafts(op *spec.Operation) []draft {
	base := baseline(op)
	var out []draft

	for _, p := range op.Parameters {
		s := p.Schema.Resolve()
		if s == nil {
			continue
		}
		var wrong string
		switch s.PrimaryType() {
		case "integer", "number":
			wrong = notANumber
		case "boolean":
			wrong = notABoolean
		}
		if wrong != "" {
			out = append(out, draft{
				label:  p.Name + " wrong type",
				target: p.Name,
				params: withParam(base, Param{Name: p.Name, In: p.In, Value: wrong}),
				expect: ExpectClientError,
			})
		}
	}

	// Path parameters cannot be omitted without changing the route, so
	// only query, header and cookie parameters are dropped.
	for _, p := range op.Parameters {
		if p.Required && p.In != spec.InPath {
			out = append(out, draft{
				label:  p.Name + " missing",
				target: p.Name,
				params: withoutParam(base, p.Name),
				expect: ExpectClientError,
			})
		}
	}

	for _, p := range op.Parameters {
		s := p.Schema.Resolve()
		if s == nil {
			continue
		}
		var bad string
		switch s.Format {
		case "date", "date-time":
			bad = malformedDate
		case "uuid":
			bad = malformedUUID
		default:
			continue
		}
		out = append(out, draft{
			label:  fmt.Sprintf("%s malformed %s", p.Name, s.Format),
			target: p.Name,
			params: withParam(base, Param{Name: p.Name, In: p.In, Value: bad}),
			expect: ExpectClientError,
		})
	}

	if g.cfg.DateStart != "" && g.cfg.DateEnd != "" {
		start, end := op.Parameter(g.cfg.DateStart), op.Parameter(g.cfg.DateEnd)
		if start != nil && end != nil {
			params := withParam(base, Param{Name: start.Name, In: start.In, Value: invertedStart})
			params = withParam(params, Param{Name: end.Name, In: end.In, Value: invertedEnd})
			out = append(out, draft{
				label:  "inverted date range",
				target: end.Name,
				params: params,
				expect: ExpectClientError,
			})
		}
	}
	return out
}
