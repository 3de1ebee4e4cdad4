package decillion

import "errors"

// The transform's error taxonomy. None of these is ever fatal to a file:
// every one degrades a single component to its unmodified original, and the
// driver keeps going.
var (
	// ErrUnsupportedForm marks a component whose declaration shape is not
	// recognized (method, generic, multiple returns, non-markup body).
	ErrUnsupportedForm = errors.New("unsupported component form")

	// ErrUnresolvedBinding marks a free identifier the type information
	// could not resolve. The enclosing expression is treated as opaque.
	ErrUnresolvedBinding = errors.New("unresolved binding")

	// ErrStructuralAmbiguity marks a render tree whose structural shape
	// cannot be proven static, so no template can be extracted at all.
	ErrStructuralAmbiguity = errors.New("structural shape not provably static")

	// ErrInternalInvariant marks a violated partitioner or synthesizer
	// precondition, e.g. a duplicate slot path. The component is emitted
	// verbatim and the violation is logged.
	ErrInternalInvariant = errors.New("internal invariant violation")
)
