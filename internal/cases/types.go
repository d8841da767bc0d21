package cases

import (
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/roach88/apiparity/internal/ir"
	"github.com/roach88/apiparity/internal/probe"
	"github.com/roach88/apiparity/internal/spec"
)

// Strategy selects how openapi cases are derived.
type Strategy string

const (
	StrategyValid    Strategy = "valid"
	StrategyBoundary Strategy = "boundary"
	StrategyInvalid  Strategy = "invalid"
	StrategyAll      Strategy = "all"
)

// ParseStrategy validates a strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(strings.ToLower(strings.TrimSpace(s))); st {
	case StrategyValid, StrategyBoundary, StrategyInvalid, StrategyAll:
		return st, nil
	}
	return "", fmt.Errorf("unknown strategy %q (want valid, boundary, invalid or all)", s)
}

// Expand returns the concrete strategies s stands for, in generation order.
func (s Strategy) Expand() []Strategy {
	if s == StrategyAll {
		return []Strategy{StrategyValid, StrategyBoundary, StrategyInvalid}
	}
	return []Strategy{s}
}

// ExpectClass is the outcome class a case expects from the service.
type ExpectClass string

const (
	ExpectSuccess     ExpectClass = "success"
	ExpectClientError ExpectClass = "client_error"
)

// Matches reports whether status belongs to the class.
func (e ExpectClass) Matches(status int) bool {
	switch e {
	case ExpectSuccess:
		return status >= 200 && status < 300
	case ExpectClientError:
		return status >= 400 && status < 500
	}
	return false
}

// Param is one concrete request parameter.
type Param struct {
	Name  string        `json:"name"`
	In    spec.Location `json:"in"`
	Value string        `json:"value"`
}

// Assertion turns the results of a case's requests into an outcome.
// Results are in Requests order.
type Assertion func(results []*probe.Result) ir.Outcome

// TestCase is one unit of work. Cases are values: the orchestrator copies
// them into jobs and never writes back.
type TestCase struct {
	Seq      int
	ID       string
	Suite    ir.Suite
	Category string
	Strategy Strategy
	Label    string

	OperationID string
	Method      string
	Path        string
	Params      []Param

	// Expect is set for openapi cases.
	Expect ExpectClass

	// Target names the parameter under test, or "" for whole-operation
	// cases.
	Target string

	// Follow lists further requests issued after the first one, each with
	// its own parameters, against the same method and path.
	Follow [][]Param

	// Assert evaluates behavioral cases. Nil for openapi cases.
	Assert Assertion
}

// Param returns the value of the named parameter and whether it is set.
func (tc TestCase) Param(name string) (string, bool) {
	for _, p := range tc.Params {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

// Request builds the first probe request of the case.
func (tc TestCase) Request() probe.Request {
	return buildRequest(tc.Method, tc.Path, tc.Params)
}

// Requests builds every probe request of the case in issue order.
func (tc TestCase) Requests() []probe.Request {
	reqs := []probe.Request{tc.Request()}
	for _, params := range tc.Follow {
		reqs = append(reqs, buildRequest(tc.Method, tc.Path, params))
	}
	return reqs
}

func buildRequest(method, path string, params []Param) probe.Request {
	req := probe.Request{Method: method, Path: path}
	var cookies []string
	for _, p := range params {
		switch p.In {
		case spec.InPath:
			req.Path = strings.ReplaceAll(req.Path, "{"+p.Name+"}", url.PathEscape(p.Value))
		case spec.InHeader:
			if req.Header == nil {
				req.Header = http.Header{}
			}
			req.Header.Set(p.Name, p.Value)
		case spec.InCookie:
			cookies = append(cookies, (&http.Cookie{Name: p.Name, Value: p.Value}).String())
		default:
			if req.Query == nil {
				req.Query = url.Values{}
			}
			req.Query.Add(p.Name, p.Value)
		}
	}
	if len(cookies) > 0 {
		if req.Header == nil {
			req.Header = http.Header{}
		}
		req.Header.Set("Cookie", strings.Join(cookies, "; "))
	}
	return req
}

// withParam returns params with name set to value, replacing an existing
// entry in place or appending a new one.
func withParam(params []Param, p Param) []Param {
	out := slices.Clone(params)
	for i := range out {
		if out[i].Name == p.Name && out[i].In == p.In {
			out[i] = p
			return out
		}
	}
	return append(out, p)
}

// withoutParam returns params minus the named entry.
func withoutParam(params []Param, name string) []Param {
	return slices.DeleteFunc(slices.Clone(params), func(p Param) bool { return p.Name == name })
}

// slug lowercases label and collapses every run of other characters into
// a single dash.
func slug(label string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(label) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
