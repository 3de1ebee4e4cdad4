// Package decillion is a compile-time optimizer for declarative UI
// components. It rewrites component functions that build markup through the
// ui DSL into block form: a package-level template compiled once, plus a
// render tail that feeds the template only the values of its dynamic slots.
// The runtime then patches mounted trees slot by slot instead of
// reconciling whole subtrees.
//
// The pass is deliberately conservative: any expression it cannot prove
// static is treated as dynamic, any call it cannot prove pure is opaque and
// re-evaluated every render, and any component it cannot analyze at all is
// emitted verbatim. Transformed output is behaviorally indistinguishable
// from the original; the only difference is how much work the runtime skips.
package decillion

import (
	"github.com/tliron/commonlog"

	"github.com/evilbocchi/decillion/internal/metrics"
)

var log = commonlog.GetLogger("decillion")

// Transformer runs the optimization pass over type-checked files. A
// Transformer is stateless across files and safe for concurrent use: each
// TransformFile call touches only the tree it is handed.
type Transformer struct {
	markupPath  string
	runtimePath string
	runtimeName string
	allow       map[string]bool
	metrics     *metrics.Collector
}

// Option configures a Transformer.
type Option func(*Transformer)

// WithAllowList installs a pure-call allow-list, merged over the defaults
// unless the list replaces them.
func WithAllowList(list *AllowList) Option {
	return func(t *Transformer) {
		t.allow = list.resolve()
	}
}

// WithMarkupPackage overrides the import path of the markup DSL package.
func WithMarkupPackage(path string) Option {
	return func(t *Transformer) {
		t.markupPath = path
	}
}

// WithRuntimePackage overrides the import path and local name of the block
// runtime package referenced by generated code.
func WithRuntimePackage(path, name string) Option {
	return func(t *Transformer) {
		t.runtimePath = path
		t.runtimeName = name
	}
}

// WithMetrics shares a metrics collector across transformers, e.g. one
// collector for a whole build.
func WithMetrics(c *metrics.Collector) Option {
	return func(t *Transformer) {
		t.metrics = c
	}
}

// New creates a Transformer with the default markup/runtime wiring and the
// built-in allow-list.
func New(opts ...Option) *Transformer {
	t := &Transformer{
		markupPath:  defaultMarkupPath,
		runtimePath: defaultRuntimePath,
		runtimeName: defaultRuntimeName,
		allow:       DefaultAllowList().resolve(),
		metrics:     metrics.NewCollector(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Metrics returns the transformer's collector.
func (t *Transformer) Metrics() *metrics.Collector {
	return t.metrics
}

// ComponentResult is the per-component outcome of one file pass. Leaving a
// component unchanged is an expected, frequent outcome, not an error, so it
// is reported as data rather than raised.
type ComponentResult struct {
	Name        string
	Transformed bool
	Reason      string // why the component was left unchanged
	Slots       int
	OpaqueSlots int
}

// Report summarizes one file pass.
type Report struct {
	Components []ComponentResult
	Changed    bool
}

// Transformed returns the number of components rewritten into blocks.
func (r *Report) Transformed() int {
	n := 0
	for _, c := range r.Components {
		if c.Transformed {
			n++
		}
	}
	return n
}
