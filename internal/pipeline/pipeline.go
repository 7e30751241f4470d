// Package pipeline runs the post-processing passes that populate derived
// attributes on a fully built entity graph. Passes are keyed by priority so
// extensions can interleave their own between the built-in ones; priority 0
// is reserved.
package pipeline

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"docgraph/internal/model"
	"docgraph/internal/observability"
)

type Pass struct {
	Name     string
	Priority int
	Run      func(root *model.TreeRoot) error
}

const (
	PriorityDefaults = 100
	PriorityLink     = 200
)

// Processor holds an ordered sequence of passes. Order is by ascending
// priority, insertion order breaking ties.
type Processor struct {
	passes []Pass
}

// New returns a processor carrying the built-in passes plus any extras.
func New(extras ...Pass) *Processor {
	p := &Processor{}
	p.Add(defaultsPass())
	p.Add(linkPass())
	p.Add(extras...)
	return p
}

func (p *Processor) Add(passes ...Pass) {
	for _, pass := range passes {
		if pass.Priority == 0 {
			panic(fmt.Sprintf("pass %q: priority 0 is reserved", pass.Name))
		}
		p.passes = append(p.passes, pass)
	}
}

// Process runs every pass over the graph in priority order. A pass error
// stops the run; recoverable shortfalls inside passes are reported as
// diagnostics instead.
func (p *Processor) Process(root *model.TreeRoot) error {
	ordered := make([]Pass, len(p.passes))
	copy(ordered, p.passes)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Priority < ordered[j].Priority })

	for _, pass := range ordered {
		start := time.Now()
		if err := pass.Run(root); err != nil {
			return fmt.Errorf("pass %s: %w", pass.Name, err)
		}
		elapsed := time.Since(start)
		observability.PassDuration.WithLabelValues(pass.Name).Observe(elapsed.Seconds())
		slog.Debug("pass complete", "pass", pass.Name, "priority", pass.Priority, "elapsed", elapsed)
	}

	observability.ObjectsRegistered.Set(float64(root.AllObjects.Len()))
	for _, d := range root.Diagnostics() {
		observability.DiagnosticsTotal.WithLabelValues(d.Severity.String()).Inc()
	}
	return nil
}

// eachObject applies fn to every object reachable from the root modules,
// parents before members.
func eachObject(root *model.TreeRoot, fn func(ob model.ApiObject)) {
	for _, mod := range root.RootModules {
		model.Walk(mod, fn)
	}
}
