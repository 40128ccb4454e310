package eval

import "time"

// Scope supplies the variable bindings a predicate is evaluated against.
// Transactions and postings implement it; nested scopes layer additional
// bindings on top of a parent.
type Scope interface {
	Env() map[string]any
}

// ValueScope extends a parent scope with the implicit subject of a metadata
// check, bound under the name "value".
type ValueScope struct {
	parent Scope
	value  any
}

// NewValueScope wraps parent with value bound as the implicit subject.
func NewValueScope(parent Scope, value any) *ValueScope {
	return &ValueScope{parent: parent, value: value}
}

func (s *ValueScope) Env() map[string]any {
	env := make(map[string]any)
	if s.parent != nil {
		for k, v := range s.parent.Env() {
			env[k] = v
		}
	}
	env["value"] = s.value
	return env
}

// BaseScope is a root scope for a load call. It carries process-level
// bindings and must be supplied (directly or as the journal default) before
// any journal input is read.
type BaseScope struct {
	bindings map[string]any
}

// NewBaseScope returns a scope pre-bound with "now".
func NewBaseScope() *BaseScope {
	return &BaseScope{bindings: map[string]any{"now": time.Now()}}
}

// Bind adds or replaces a binding.
func (s *BaseScope) Bind(name string, value any) {
	s.bindings[name] = value
}

func (s *BaseScope) Env() map[string]any {
	env := make(map[string]any, len(s.bindings))
	for k, v := range s.bindings {
		env[k] = v
	}
	return env
}
