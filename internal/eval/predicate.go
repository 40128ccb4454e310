// Package eval provides the boolean-expression evaluation used by metadata
// checks and automated transactions. Expressions are compiled once and
// evaluated against a Scope.
package eval

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Predicate is a compiled boolean expression.
type Predicate struct {
	src  string
	prog *vm.Program
}

// Compile parses and compiles src. Variables are resolved at evaluation time
// from the scope, so unknown names are not a compile error.
func Compile(src string) (*Predicate, error) {
	prog, err := expr.Compile(src, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("compiling expression %q: %w", src, err)
	}
	return &Predicate{src: src, prog: prog}, nil
}

// MustCompile is Compile for expressions known good at build time; it panics
// on error.
func MustCompile(src string) *Predicate {
	p, err := Compile(src)
	if err != nil {
		panic(err)
	}
	return p
}

// Source returns the original expression text, used in diagnostics.
func (p *Predicate) Source() string { return p.src }

// Eval runs the predicate against the bindings of scope. A nil scope
// evaluates with an empty environment.
func (p *Predicate) Eval(scope Scope) (bool, error) {
	env := map[string]any{}
	if scope != nil {
		env = scope.Env()
	}
	out, err := expr.Run(p.prog, env)
	if err != nil {
		return false, fmt.Errorf("evaluating expression %q: %w", p.src, err)
	}
	b, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("expression %q: expected boolean result, got %T", p.src, out)
	}
	return b, nil
}
