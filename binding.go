package decillion

import (
	"go/types"
	"strings"
)

// Binding is a symbolic reference to a value available inside a component
// body: a prop field, a local, a closure capture, or a package-level var.
// Identity is the resolved declaration object, not the textual name, so two
// aliases of the same variable compare equal. Field refines the binding to a
// single selected field when the expression is a direct selector on a
// variable (props.Text and props.Size are distinct bindings).
type Binding struct {
	Obj   types.Object
	Field string
}

func (b Binding) String() string {
	if b.Obj == nil {
		return "<nil>"
	}
	if b.Field != "" {
		return b.Obj.Name() + "." + b.Field
	}
	return b.Obj.Name()
}

// BindingSet is an ordered, deduplicated set of bindings. Insertion order is
// preserved so dependency lists are deterministic across runs, which keeps
// generated output and diagnostics reproducible.
type BindingSet struct {
	items []Binding
}

// Add inserts a binding unless it is already present.
func (s *BindingSet) Add(b Binding) {
	for _, have := range s.items {
		if have == b {
			return
		}
	}
	s.items = append(s.items, b)
}

// AddAll inserts every binding from other.
func (s *BindingSet) AddAll(other BindingSet) {
	for _, b := range other.items {
		s.Add(b)
	}
}

// Contains reports whether the set holds b.
func (s BindingSet) Contains(b Binding) bool {
	for _, have := range s.items {
		if have == b {
			return true
		}
	}
	return false
}

// Len returns the number of bindings in the set.
func (s BindingSet) Len() int {
	return len(s.items)
}

// All returns the bindings in insertion order. The returned slice is shared;
// callers must not mutate it.
func (s BindingSet) All() []Binding {
	return s.items
}

func (s BindingSet) String() string {
	names := make([]string, len(s.items))
	for i, b := range s.items {
		names[i] = b.String()
	}
	return "{" + strings.Join(names, ", ") + "}"
}
