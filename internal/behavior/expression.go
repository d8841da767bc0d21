package behavior

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/roach88/apiparity/internal/ir"
	"github.com/roach88/apiparity/internal/probe"
)

// Program is a compiled user-defined check.
//
// Expressions see: status (int), headers (map of lower-cased names to the
// first value), body (decoded JSON, numbers as int64/float64), documents
// (the result set as a list of objects) and elapsed_ms.
type Program struct {
	Name   string
	Source string
	prog   *vm.Program
}

func expressionEnv(r *probe.Result, layout Layout) map[string]any {
	env := map[string]any{
		"status":     0,
		"headers":    map[string]string{},
		"body":       map[string]any{},
		"documents":  []any{},
		"elapsed_ms": int64(0),
	}
	if r == nil {
		return env
	}
	env["status"] = r.Status
	headers := make(map[string]string, len(r.Header))
	for k, v := range r.Header {
		if len(v) > 0 {
			headers[strings.ToLower(k)] = v[0]
		}
	}
	env["headers"] = headers
	if obj := r.Object(); obj != nil {
		env["body"] = plain(obj)
		if docs, err := Documents(obj, layout); err == nil {
			list := make([]any, len(docs))
			for i, d := range docs {
				list[i] = plain(d.Fields)
			}
			env["documents"] = list
		}
	}
	env["elapsed_ms"] = r.Elapsed.Milliseconds()
	return env
}

// CompileExpression compiles a boolean check expression.
func CompileExpression(name, source string) (*Program, error) {
	prog, err := expr.Compile(source, expr.Env(expressionEnv(nil, Layout{})), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile check %q: %w", name, err)
	}
	return &Program{Name: name, Source: source, prog: prog}, nil
}

// Expression evaluates p against r. A false result fails; an evaluation
// error fails with the error message.
func Expression(r *probe.Result, layout Layout, p *Program) ir.Outcome {
	if o, bad := transport(r); bad {
		return o
	}
	out, err := expr.Run(p.prog, expressionEnv(r, layout))
	if err != nil {
		return ir.Failf(ir.KindAssertion, "check %q: %v", p.Name, err)
	}
	ok, isBool := out.(bool)
	if !isBool {
		return ir.Failf(ir.KindAssertion, "check %q returned %T, want bool", p.Name, out)
	}
	if !ok {
		return ir.Failf(ir.KindAssertion, "check %q is false: %s", p.Name, p.Source)
	}
	return ir.Pass(fmt.Sprintf("check %q holds", p.Name))
}
