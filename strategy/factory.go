// File: factory.go
// Role: per-slot tensor-handle factory choice, the first half of the
// edge-strategy planner (component 4.I).
package strategy

import (
	"github.com/katalvlaran/graphc/backend"
	"github.com/katalvlaran/graphc/graph"
	"github.com/katalvlaran/graphc/handle"
)

// chooseFactory picks the factory id for one OutputSlot, branching on
// the owning layer's kind: Input tallies consumer preferences, Output
// always defers (unreachable today since Output layers carry no output
// slots, kept for the kind's documented rule), everything else scores
// by copy avoidance.
func chooseFactory(g *graph.Graph, backends *backend.Registry, factories *handle.Registry, l *graph.Layer, slot int, opts Options) string {
	switch l.Kind {
	case graph.KindOutput:
		return handle.DeferredFactoryID
	case graph.KindInput:
		return chooseInputFactory(g, backends, factories, l, slot, opts)
	default:
		return chooseInteriorFactory(g, backends, factories, l, slot, opts)
	}
}

func chooseInputFactory(g *graph.Graph, backends *backend.Registry, factories *handle.Registry, l *graph.Layer, slot int, opts Options) string {
	b, found := backends.Lookup(l.Backend)
	if !found || len(b.HandleFactoryPreferences()) == 0 {
		return handle.LegacyFactoryID
	}

	scores := map[string]int{}
	var order []string
	for _, c := range l.Outputs[slot].Consumers() {
		cl := g.Layer(c.Layer)
		cb, found := backends.Lookup(cl.Backend)
		if !found {
			continue
		}
		for _, fid := range cb.HandleFactoryPreferences() {
			if _, seen := scores[fid]; !seen {
				order = append(order, fid)
			}
			scores[fid]++
		}
	}

	best, bestScore := "", -1
	for _, fid := range order {
		f, ok := factories.Lookup(fid)
		if !ok || !inputFactoryEligible(f, opts) {
			continue
		}
		if scores[fid] > bestScore {
			best, bestScore = fid, scores[fid]
		}
	}
	if best == "" {
		return handle.LegacyFactoryID
	}
	return best
}

// inputFactoryEligible implements the map/unmap-or-import-flags filter:
// with import disabled a candidate must support map/unmap, with import
// enabled it must declare non-zero import flags instead.
func inputFactoryEligible(f handle.Factory, opts Options) bool {
	if opts.ImportEnabled {
		return f.ImportFlags() != 0
	}
	return f.SupportsMapUnmap()
}

func chooseInteriorFactory(g *graph.Graph, backends *backend.Registry, factories *handle.Registry, l *graph.Layer, slot int, opts Options) string {
	b, found := backends.Lookup(l.Backend)
	if !found {
		return handle.LegacyFactoryID
	}
	prefs := b.HandleFactoryPreferences()
	if len(prefs) == 0 {
		return handle.LegacyFactoryID
	}

	consumers := l.Outputs[slot].Consumers()
	feedsGraphOutput := false
	for _, c := range consumers {
		if g.Layer(c.Layer).Kind == graph.KindOutput {
			feedsGraphOutput = true
			break
		}
	}

	best, bestScore := "", -1
	for _, fid := range prefs {
		f, ok := factories.Lookup(fid)
		if !ok {
			continue
		}
		if opts.ExportEnabled {
			if exportBlocked(g, f, l, consumers) {
				continue
			}
			if feedsGraphOutput && f.ExportFlags() == 0 {
				continue
			}
		}
		score := copyCost(g, backends, consumers, fid)
		if bestScore == -1 || score < bestScore {
			best, bestScore = fid, score
		}
	}
	if best == "" {
		return handle.LegacyFactoryID
	}
	return best
}

// copyCost tallies one point per outgoing edge whose consumer backend
// does not itself prefer fid, i.e. would need a copy to reach it.
func copyCost(g *graph.Graph, backends *backend.Registry, consumers []struct {
	Layer graph.LayerRef
	Slot  int
}, fid string) int {
	cost := 0
	for _, c := range consumers {
		cl := g.Layer(c.Layer)
		cb, found := backends.Lookup(cl.Backend)
		if !found || !containsStr(cb.HandleFactoryPreferences(), fid) {
			cost++
		}
	}
	return cost
}

func exportBlocked(g *graph.Graph, f handle.Factory, l *graph.Layer, consumers []struct {
	Layer graph.LayerRef
	Slot  int
}) bool {
	for _, c := range consumers {
		cl := g.Layer(c.Layer)
		if f.HasCapability(l.Backend, cl.Backend, handle.CapFallbackImportDisabled) {
			return true
		}
	}
	return false
}
