// File: edge.go
// Role: per-edge strategy choice, the second half of the edge-strategy
// planner (component 4.I) — the 6-step decision tree over the
// direct < export < copy cost lattice (graph.EdgeStrategy).
package strategy

import (
	"fmt"

	"github.com/katalvlaran/graphc/backend"
	"github.com/katalvlaran/graphc/graph"
	"github.com/katalvlaran/graphc/handle"
)

func chooseEdgeStrategy(
	g *graph.Graph,
	backends *backend.Registry,
	factories *handle.Registry,
	producer *graph.Layer,
	out *graph.OutputSlot,
	consumerRef graph.LayerRef,
	consumerSlot int,
	opts Options,
) (graph.EdgeStrategy, error) {
	consumer := g.Layer(consumerRef)
	sourceFactory, haveSource := factories.Lookup(out.FactoryID)

	var consumerPrefs []string
	if cb, found := backends.Lookup(consumer.Backend); found {
		consumerPrefs = cb.HandleFactoryPreferences()
	}

	// Step 1: legacy source or a consumer backend with no factory
	// preferences at all falls back to copy across backends, direct
	// within the same one.
	if out.FactoryID == handle.LegacyFactoryID || len(consumerPrefs) == 0 {
		if producer.Backend != consumer.Backend {
			return graph.StrategyCopy, nil
		}
		return graph.StrategyDirect, nil
	}

	// Step 2: a graph output consumes any handle.
	if consumer.Kind == graph.KindOutput {
		return graph.StrategyDirect, nil
	}

	// Step 3: the consumer already prefers this exact factory.
	if containsStr(consumerPrefs, out.FactoryID) {
		return graph.StrategyDirect, nil
	}

	// Step 4: export, gated on import-enabled (not export-enabled) per
	// the original CalculateEdgeStrategy — the factory-choice side reads
	// export-enabled, the edge-strategy side reads import-enabled.
	if opts.ImportEnabled && haveSource {
		for _, pref := range consumerPrefs {
			pf, ok := factories.Lookup(pref)
			if !ok {
				continue
			}
			if sourceFactory.ExportFlags()&pf.ImportFlags() == 0 {
				continue
			}
			if capabilityBlocks(sourceFactory, pf, producer.Backend, consumer.Backend) {
				continue
			}
			return graph.StrategyExport, nil
		}
	}

	// Step 5: copy, if both ends support map/unmap.
	if haveSource && sourceFactory.SupportsMapUnmap() {
		for _, pref := range consumerPrefs {
			if pf, ok := factories.Lookup(pref); ok && pf.SupportsMapUnmap() {
				return graph.StrategyCopy, nil
			}
		}
	}

	return graph.StrategyUndefined, fmt.Errorf("%w: no viable edge strategy from %s (%s) to %s (%s)",
		graph.ErrLayerValidation, producer.Name, producer.Backend, consumer.Name, consumer.Backend)
}

func capabilityBlocks(source, target handle.Factory, producerBackend, consumerBackend string) bool {
	for _, f := range []handle.Factory{source, target} {
		if f.HasCapability(producerBackend, consumerBackend, handle.CapPaddingRequired) {
			return true
		}
		if f.HasCapability(producerBackend, consumerBackend, handle.CapFallbackImportDisabled) {
			return true
		}
	}
	return false
}
