// Package compat implements the compatibility-layer inserter (component
// J): it walks every edge the edge-strategy planner visited and splices
// in the MemCopy or Import layer a copy-to-target or export-to-target
// strategy calls for. Direct-compatibility edges are left untouched.
package compat

import (
	"fmt"

	"github.com/katalvlaran/graphc/backend"
	"github.com/katalvlaran/graphc/diag"
	"github.com/katalvlaran/graphc/graph"
	"github.com/katalvlaran/graphc/handle"
)

// edgeWork snapshots one outgoing edge's consumer and chosen strategy
// before any splicing begins — InsertBefore mutates the producer slot's
// consumer list, so the loop driving Insert must work off a frozen copy
// rather than re-querying OutputSlot.Consumers mid-iteration.
type edgeWork struct {
	consumer graph.LayerRef
	slot     int
	strategy graph.EdgeStrategy
}

// Insert splices a compatibility layer onto every edge recorded as
// copy-to-target or export-to-target. An edge left StrategyUndefined
// means the planner never ran (or failed without surfacing an error) and
// is treated as a fatal diagnostic here too.
func Insert(g *graph.Graph, backends *backend.Registry, factories *handle.Registry, sink *diag.Sink) error {
	for _, ref := range g.TopologicalOrder() {
		l := g.Layer(ref)
		if l == nil {
			continue
		}
		for slot := range l.Outputs {
			for _, w := range gatherEdges(l, slot) {
				var newLayer graph.LayerRef
				switch w.strategy {
				case graph.StrategyDirect:
					continue
				case graph.StrategyCopy:
					newLayer = g.AddMemCopy("")
				case graph.StrategyExport:
					newLayer = g.AddImport("")
				default:
					err := fmt.Errorf("%w: unresolved edge strategy leaving %s", graph.ErrLayerValidation, l.Name)
					sink.Fail(diag.KindLayerValidation, l.Name, l.Backend, err)
					return err
				}
				if err := splice(g, backends, factories, w.consumer, w.slot, newLayer); err != nil {
					sink.Fail(diag.KindLayerValidation, l.Name, l.Backend, err)
					return err
				}
			}
		}
	}
	return nil
}

func gatherEdges(l *graph.Layer, outSlot int) []edgeWork {
	out := &l.Outputs[outSlot]
	cs := out.Consumers()
	work := make([]edgeWork, len(cs))
	for i, c := range cs {
		work[i] = edgeWork{consumer: c.Layer, slot: c.Slot, strategy: out.Strategy(i)}
	}
	return work
}

// splice inserts newLayer ahead of (consumer, slot) and stamps it with
// the consumer's backend id and a factory id drawn from that backend's
// own preferences, per §4.J: "each inserted layer carries the consumer's
// backend id and the chosen factory id on its single output slot".
func splice(g *graph.Graph, backends *backend.Registry, factories *handle.Registry, consumer graph.LayerRef, slot int, newLayer graph.LayerRef) error {
	if err := g.InsertBefore(consumer, slot, newLayer); err != nil {
		return fmt.Errorf("splicing compatibility layer: %w", err)
	}
	cl := g.Layer(consumer)
	nl := g.Layer(newLayer)
	nl.Backend = cl.Backend
	nl.Outputs[0].FactoryID = preferredFactory(backends, factories, cl.Backend)
	return nil
}

func preferredFactory(backends *backend.Registry, factories *handle.Registry, backendID string) string {
	b, found := backends.Lookup(backendID)
	if !found {
		return handle.LegacyFactoryID
	}
	for _, pref := range b.HandleFactoryPreferences() {
		if _, ok := factories.Lookup(pref); ok {
			return pref
		}
	}
	return handle.LegacyFactoryID
}
