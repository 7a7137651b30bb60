// Package pass defines the local-rewrite contract the algebraic
// optimizer runs over a graph.Graph, and the Manager that drives the
// walk. Concrete rewrites live in package passlib; this package only
// knows how to walk and apply them.
package pass

import (
	"context"
	"fmt"

	"github.com/katalvlaran/graphc/graph"
)

// Result classifies what a Pass did to the layer at its cursor.
type Result uint8

const (
	NoChange Result = iota
	Substituted
	Erased
)

// Pass is a value-like rewrite: given a mutable graph and a cursor to
// one layer, it performs at most one local rewrite on that layer and its
// immediate neighbourhood. A Pass is expected to be idempotent —
// re-applying it to the same position after it reported NoChange must
// keep reporting NoChange.
type Pass interface {
	Name() string
	Apply(g *graph.Graph, cursor graph.LayerRef) (Result, error)
}

// Options configures a Manager run, mirroring the hook/cancellation
// shape the rest of this module's traversal code follows.
type Options struct {
	// Ctx allows cancellation between passes; if nil, background context
	// is used.
	Ctx context.Context

	// OnApply(passName, layer) is called whenever a pass reports anything
	// other than NoChange.
	OnApply func(passName string, layer graph.LayerRef, result Result)
}

// Manager runs an ordered pass list to a fixed point.
type Manager struct {
	Passes []Pass
	opts   Options
}

// NewManager returns a Manager configured with passes and opts.
func NewManager(passes []Pass, opts Options) *Manager {
	return &Manager{Passes: passes, opts: opts}
}

// Run walks g in reverse topological order, repeatedly applying the
// configured passes to each cursor until either a pass substitutes or
// erases the current layer — restarting the scan from the beginning of
// the (now-changed) order — or every pass declines. The whole walk
// repeats until a full pass over the graph produces no change.
func (m *Manager) Run(g *graph.Graph) error {
	ctx := context.Background()
	if m.opts.Ctx != nil {
		ctx = m.opts.Ctx
	}

	for {
		changedThisSweep := false
		for {
			restarted, err := m.sweepOnce(ctx, g, &changedThisSweep)
			if err != nil {
				return err
			}
			if !restarted {
				break
			}
		}
		if !changedThisSweep {
			return nil
		}
	}
}

// sweepOnce walks the graph once in reverse topological order, applying
// passes at each cursor. It returns restarted=true the moment any pass
// substitutes or erases a layer, since the rewrite may have changed
// arities or topology under layers not yet visited — continuing with a
// stale order would be unsafe. The caller loops sweepOnce until it
// returns restarted=false, i.e. a full pass produced no change.
func (m *Manager) sweepOnce(ctx context.Context, g *graph.Graph, changed *bool) (restarted bool, err error) {
	order := reverseOf(g.TopologicalOrder())
	for _, ref := range order {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		default:
		}

		if g.Layer(ref) == nil {
			continue // erased by an earlier cursor's rewrite this sweep
		}

		for _, p := range m.Passes {
			res, applyErr := p.Apply(g, ref)
			if applyErr != nil {
				return false, fmt.Errorf("pass %q on layer %d: %w", p.Name(), ref, applyErr)
			}
			if res == NoChange {
				continue
			}
			*changed = true
			if m.opts.OnApply != nil {
				m.opts.OnApply(p.Name(), ref, res)
			}
			return true, nil
		}
	}
	return false, nil
}

func reverseOf(order []graph.LayerRef) []graph.LayerRef {
	out := make([]graph.LayerRef, len(order))
	for i, r := range order {
		out[len(order)-1-i] = r
	}
	return out
}
