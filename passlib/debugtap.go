// File: debugtap.go
// Role: optional debug-layer insertion (§4.D's "debug-layer insertion
// (optional, controlled by options)" entry). Unlike every other pass in
// this package, InsertDebugTaps is never part of All() — the top-level
// orchestrator appends it to a pass list itself, only when the caller's
// options ask for debug taps, since an always-on tap would defeat every
// other pass's idempotence check by permanently changing the graph's
// shape.
package passlib

import (
	"github.com/katalvlaran/graphc/graph"
	"github.com/katalvlaran/graphc/pass"
)

// InsertDebugTaps attaches one Debug layer after every tappable layer's
// output slot, rebinding that slot's existing consumers to read through
// the tap instead of straight from the layer. ToFile/Dir mirror the
// debug / debug-to-file options.
type InsertDebugTaps struct {
	ToFile bool
	Dir    string
}

func (InsertDebugTaps) Name() string { return "insert-debug-taps" }

func (p InsertDebugTaps) Apply(g *graph.Graph, cur graph.LayerRef) (pass.Result, error) {
	l := g.Layer(cur)
	if l == nil || !tappable(l.Kind) {
		return pass.NoChange, nil
	}

	changed := false
	for slot := range l.Outputs {
		if alreadyTapped(g, l, slot) {
			continue
		}
		consumers := l.Outputs[slot].Consumers()
		if len(consumers) == 0 {
			continue
		}
		tapRef, err := g.AddDebug("", cur, slot, graph.DebugParams{ToFile: p.ToFile, Path: p.Dir})
		if err != nil {
			return pass.NoChange, err
		}
		for _, c := range consumers {
			if err := g.Rebind(c.Layer, c.Slot, tapRef, 0); err != nil {
				return pass.NoChange, err
			}
		}
		changed = true
	}
	if !changed {
		return pass.NoChange, nil
	}
	return pass.Substituted, nil
}

// tappable excludes kinds a debug tap gains nothing from observing:
// I/O boundaries, constants, and Debug taps themselves (idempotence).
func tappable(k graph.Kind) bool {
	switch k {
	case graph.KindInput, graph.KindOutput, graph.KindDebug, graph.KindConstant:
		return false
	default:
		return true
	}
}

func alreadyTapped(g *graph.Graph, l *graph.Layer, slot int) bool {
	for _, c := range l.Outputs[slot].Consumers() {
		if cl := g.Layer(c.Layer); cl != nil && cl.Kind == graph.KindDebug {
			return true
		}
	}
	return false
}
