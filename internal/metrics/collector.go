// Package metrics provides simple built-in metrics collection for the
// transform pipeline with no external dependencies.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Collector aggregates transform statistics. The core pass is single
// threaded per file, but one collector may serve many files transformed in
// parallel, so all counters are atomic.
type Collector struct {
	transformMetrics *TransformMetrics
	operationCounters map[string]*int64
	mu                sync.RWMutex
	startTime         time.Time
}

// TransformMetrics tracks pipeline-level performance data.
type TransformMetrics struct {
	// File processing
	FilesProcessed int64 `json:"files_processed"`

	// Component outcomes
	ComponentsSeen      int64 `json:"components_seen"`
	ComponentsOptimized int64 `json:"components_optimized"`
	ComponentsSkipped   int64 `json:"components_skipped"`

	// Skip/degrade reasons
	SkipDirectives    int64 `json:"skip_directives"`
	UnsupportedForms  int64 `json:"unsupported_forms"`
	StructuralDemotes int64 `json:"structural_demotes"`
	InvariantFailures int64 `json:"invariant_failures"`

	// Analysis results
	SlotsEmitted       int64 `json:"slots_emitted"`
	OpaqueSlots        int64 `json:"opaque_slots"`
	StaticBlocks       int64 `json:"static_blocks"`
	UnresolvedBindings int64 `json:"unresolved_bindings"`

	// Uptime
	StartTime time.Time     `json:"start_time"`
	Uptime    time.Duration `json:"uptime"`
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{
		transformMetrics: &TransformMetrics{
			StartTime: time.Now(),
		},
		operationCounters: make(map[string]*int64),
		startTime:         time.Now(),
	}
}

// IncrementFileProcessed records one completed file pass.
func (c *Collector) IncrementFileProcessed() {
	atomic.AddInt64(&c.transformMetrics.FilesProcessed, 1)
}

// IncrementComponentSeen records a discovered component definition.
func (c *Collector) IncrementComponentSeen() {
	atomic.AddInt64(&c.transformMetrics.ComponentsSeen, 1)
}

// IncrementComponentOptimized records a component rewritten into a block.
func (c *Collector) IncrementComponentOptimized() {
	atomic.AddInt64(&c.transformMetrics.ComponentsOptimized, 1)
}

// IncrementComponentSkipped records a component left unchanged.
func (c *Collector) IncrementComponentSkipped() {
	atomic.AddInt64(&c.transformMetrics.ComponentsSkipped, 1)
}

// IncrementSkipDirective records a component carrying the skip directive.
func (c *Collector) IncrementSkipDirective() {
	atomic.AddInt64(&c.transformMetrics.SkipDirectives, 1)
}

// IncrementUnsupportedForm records a declaration shape the driver could not
// analyze.
func (c *Collector) IncrementUnsupportedForm() {
	atomic.AddInt64(&c.transformMetrics.UnsupportedForms, 1)
}

// IncrementStructuralDemote records a component whose root shape could not
// be proven static.
func (c *Collector) IncrementStructuralDemote() {
	atomic.AddInt64(&c.transformMetrics.StructuralDemotes, 1)
}

// IncrementInvariantFailure records a partitioner/synthesizer invariant
// violation.
func (c *Collector) IncrementInvariantFailure() {
	atomic.AddInt64(&c.transformMetrics.InvariantFailures, 1)
}

// AddSlotsEmitted records the slots of one synthesized block.
func (c *Collector) AddSlotsEmitted(total, opaque int64) {
	atomic.AddInt64(&c.transformMetrics.SlotsEmitted, total)
	atomic.AddInt64(&c.transformMetrics.OpaqueSlots, opaque)
	if total == 0 {
		atomic.AddInt64(&c.transformMetrics.StaticBlocks, 1)
	}
}

// AddUnresolvedBindings records identifiers the classifier could not resolve.
func (c *Collector) AddUnresolvedBindings(n int64) {
	atomic.AddInt64(&c.transformMetrics.UnresolvedBindings, n)
}

// IncrementCustomCounter increments a custom named counter.
func (c *Collector) IncrementCustomCounter(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if counter, exists := c.operationCounters[name]; exists {
		atomic.AddInt64(counter, 1)
	} else {
		var newCounter int64 = 1
		c.operationCounters[name] = &newCounter
	}
}

// GetMetrics returns a copy of the current metrics.
func (c *Collector) GetMetrics() TransformMetrics {
	return TransformMetrics{
		FilesProcessed:      atomic.LoadInt64(&c.transformMetrics.FilesProcessed),
		ComponentsSeen:      atomic.LoadInt64(&c.transformMetrics.ComponentsSeen),
		ComponentsOptimized: atomic.LoadInt64(&c.transformMetrics.ComponentsOptimized),
		ComponentsSkipped:   atomic.LoadInt64(&c.transformMetrics.ComponentsSkipped),
		SkipDirectives:      atomic.LoadInt64(&c.transformMetrics.SkipDirectives),
		UnsupportedForms:    atomic.LoadInt64(&c.transformMetrics.UnsupportedForms),
		StructuralDemotes:   atomic.LoadInt64(&c.transformMetrics.StructuralDemotes),
		InvariantFailures:   atomic.LoadInt64(&c.transformMetrics.InvariantFailures),
		SlotsEmitted:        atomic.LoadInt64(&c.transformMetrics.SlotsEmitted),
		OpaqueSlots:         atomic.LoadInt64(&c.transformMetrics.OpaqueSlots),
		StaticBlocks:        atomic.LoadInt64(&c.transformMetrics.StaticBlocks),
		UnresolvedBindings:  atomic.LoadInt64(&c.transformMetrics.UnresolvedBindings),
		StartTime:           c.transformMetrics.StartTime,
		Uptime:              time.Since(c.startTime),
	}
}

// GetCustomCounters returns all custom counters.
func (c *Collector) GetCustomCounters() map[string]int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make(map[string]int64)
	for name, counter := range c.operationCounters {
		result[name] = atomic.LoadInt64(counter)
	}
	return result
}

// Reset resets all metrics to zero.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	atomic.StoreInt64(&c.transformMetrics.FilesProcessed, 0)
	atomic.StoreInt64(&c.transformMetrics.ComponentsSeen, 0)
	atomic.StoreInt64(&c.transformMetrics.ComponentsOptimized, 0)
	atomic.StoreInt64(&c.transformMetrics.ComponentsSkipped, 0)
	atomic.StoreInt64(&c.transformMetrics.SkipDirectives, 0)
	atomic.StoreInt64(&c.transformMetrics.UnsupportedForms, 0)
	atomic.StoreInt64(&c.transformMetrics.StructuralDemotes, 0)
	atomic.StoreInt64(&c.transformMetrics.InvariantFailures, 0)
	atomic.StoreInt64(&c.transformMetrics.SlotsEmitted, 0)
	atomic.StoreInt64(&c.transformMetrics.OpaqueSlots, 0)
	atomic.StoreInt64(&c.transformMetrics.StaticBlocks, 0)
	atomic.StoreInt64(&c.transformMetrics.UnresolvedBindings, 0)

	c.operationCounters = make(map[string]*int64)

	c.startTime = time.Now()
	c.transformMetrics.StartTime = time.Now()
}

// OptimizationRate returns the share of seen components that were rewritten,
// as a percentage.
func (c *Collector) OptimizationRate() float64 {
	seen := atomic.LoadInt64(&c.transformMetrics.ComponentsSeen)
	optimized := atomic.LoadInt64(&c.transformMetrics.ComponentsOptimized)

	if seen == 0 {
		return 0.0
	}

	return float64(optimized) / float64(seen) * 100.0
}
