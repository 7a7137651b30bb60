// Package strategy implements the edge-strategy planner: for every
// OutputSlot it picks a tensor-handle factory, then for every edge
// leaving that slot it picks the handshake (direct, export, or copy) the
// compatibility-layer inserter will act on.
package strategy

import (
	"github.com/katalvlaran/graphc/backend"
	"github.com/katalvlaran/graphc/diag"
	"github.com/katalvlaran/graphc/graph"
	"github.com/katalvlaran/graphc/handle"
)

// Options toggles the import/export handshakes the planner may choose.
type Options struct {
	ImportEnabled bool
	ExportEnabled bool
}

// Plan assigns a factory id to every OutputSlot in g and a strategy to
// every edge leaving it. Factory choice runs to completion first because
// edge-strategy selection (for "all other layers") consults both ends'
// chosen factories.
func Plan(g *graph.Graph, backends *backend.Registry, factories *handle.Registry, opts Options, sink *diag.Sink) error {
	order := g.TopologicalOrder()

	for _, ref := range order {
		l := g.Layer(ref)
		if l == nil {
			continue
		}
		for slot := range l.Outputs {
			factoryID := chooseFactory(g, backends, factories, l, slot, opts)
			l.Outputs[slot].FactoryID = factoryID
		}
	}

	for _, ref := range order {
		l := g.Layer(ref)
		if l == nil {
			continue
		}
		for slot := range l.Outputs {
			out := &l.Outputs[slot]
			consumers := out.Consumers()
			for i, c := range consumers {
				strat, err := chooseEdgeStrategy(g, backends, factories, l, out, c.Layer, c.Slot, opts)
				if err != nil {
					sink.Fail(diag.KindLayerValidation, l.Name, l.Backend, err)
					return err
				}
				out.SetStrategy(i, strat)
			}
		}
	}
	return nil
}

func containsStr(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
