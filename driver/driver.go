// Package driver implements the backend subgraph optimization driver
// (component H): for every backend actually in use it runs that
// backend's accelerated pre-passes, partitions its layers into maximal
// subgraphs, asks the backend to optimize each one, applies the
// substitutions it returns, and reassigns any subgraph it gave up on.
package driver

import (
	"fmt"

	"github.com/katalvlaran/graphc/assign"
	"github.com/katalvlaran/graphc/backend"
	"github.com/katalvlaran/graphc/diag"
	"github.com/katalvlaran/graphc/graph"
	"github.com/katalvlaran/graphc/pass"
	"github.com/katalvlaran/graphc/passlib"
	"github.com/katalvlaran/graphc/subgraph"
)

// Options carries the knobs the driver needs to reassign a failed
// subgraph (the same inputs component F consulted the first time) and
// the per-backend bag every OptimizeSubgraph call is given verbatim.
type Options struct {
	Preferred []string
	Supported map[string]bool
	Hints     assign.Hints
	Assign    assign.Options
	Model     backend.ModelOptions

	// PerBackendOpaque carries the caller's per-backend option bag,
	// keyed by backend id. The bag for the backend OptimizeSubgraph is
	// currently being asked to handle replaces Model.Opaque for that call.
	PerBackendOpaque map[string]map[string]any
}

// Run drives the per-backend optimize loop over every backend id with
// at least one assigned layer, in the registry's registration order.
func Run(g *graph.Graph, reg *backend.Registry, opts Options, sink *diag.Sink) error {
	for _, id := range reg.Order() {
		b, found := reg.Lookup(id)
		if !found || !usesBackend(g, id) {
			continue
		}

		if b.Accelerated() {
			runAcceleratedPrePasses(g)
		}

		views := subgraph.Select(g, memberOf(id))
		for _, v := range views {
			if err := optimizeOne(g, reg, b, v, opts, sink); err != nil {
				return err
			}
		}
	}
	return nil
}

func usesBackend(g *graph.Graph, id string) bool {
	for _, ref := range g.TopologicalOrder() {
		if l := g.Layer(ref); l != nil && l.Backend == id {
			return true
		}
	}
	return false
}

// memberOf selects exactly the compute layers assigned to id: Input and
// Output layers never belong to a backend's own subgraph (they take
// their backend from a neighbour, per assign.Assign's final pass, and
// carry no workload of their own to optimize).
func memberOf(id string) subgraph.Predicate {
	return func(l *graph.Layer) bool {
		return l.Backend == id && l.Kind != graph.KindInput && l.Kind != graph.KindOutput
	}
}

// runAcceleratedPrePasses runs the small pre-pass group step 1 asks for
// ahead of subgraph selection on a GPU/CPU-accelerated backend.
// Permute-depthwise-weights normalization is not run here: this core's
// Conv2DParams carries no weight/bias tensor reference to renormalize
// (see passlib/fold.go's norm-folding note), so there is no constant
// layout for such a pass to rewrite.
func runAcceleratedPrePasses(g *graph.Graph) {
	mgr := pass.NewManager([]pass.Pass{passlib.FuseConstantPermute{}}, pass.Options{})
	_ = mgr.Run(g)
}

func optimizeOne(g *graph.Graph, reg *backend.Registry, b backend.Backend, v subgraph.View, opts Options, sink *diag.Sink) error {
	model := opts.Model
	model.Opaque = opts.PerBackendOpaque[b.ID()]
	ov, err := b.OptimizeSubgraph(v, model)
	if err != nil {
		sink.Fail(diag.KindRuntime, "", b.ID(), fmt.Errorf("backend %s: %w", b.ID(), err))
		return err
	}

	for _, sub := range ov.Substitutions {
		if err := applySubstitution(g, b.ID(), sub); err != nil {
			sink.Fail(diag.KindRuntime, "", b.ID(), err)
			return err
		}
	}

	for _, failed := range ov.Failed {
		if err := reassignFailed(g, reg, b, failed, opts, sink); err != nil {
			return err
		}
	}
	return nil
}

// applySubstitution performs the substitution and stamps the current
// backend id onto every replacement layer, the invariant step 4
// requires of the region a backend hands back.
func applySubstitution(g *graph.Graph, backendID string, sub subgraph.Substitution) error {
	if err := g.SubstituteSubgraph(sub.Substitutable.ExternalView(), sub.Replacement.ExternalView()); err != nil {
		return fmt.Errorf("backend %s substitution: %w", backendID, err)
	}
	for _, ref := range sub.Replacement.Members {
		if l := g.Layer(ref); l != nil {
			l.Backend = backendID
		}
	}
	return nil
}

// reassignFailed implements step 5: the current backend joins a local
// ignored set (unless it is reference-cpu, the one fallback every
// subgraph may always still land on), and backend assignment runs again
// for exactly the failed subgraph's member layers. An error here aborts
// the whole pipeline, per the spec's stated failure semantics for this
// component.
func reassignFailed(g *graph.Graph, reg *backend.Registry, b backend.Backend, failed subgraph.View, opts Options, sink *diag.Sink) error {
	ignored := map[string]bool{}
	if !backend.IsReferenceCPU(b) {
		ignored[b.ID()] = true
	}
	if err := assign.AssignSubset(g, reg, failed.Members, opts.Preferred, opts.Supported, ignored, opts.Hints, opts.Assign, sink); err != nil {
		return fmt.Errorf("reassigning subgraph after backend %s gave up: %w", b.ID(), err)
	}
	return nil
}
