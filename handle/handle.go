// Package handle models the tensor-handle-factory boundary: the ability
// to allocate, import, export, and subtensor-slice a tensor buffer.
// Workload execution and actual memory allocation live outside this
// module's scope; a Factory here only answers capability questions the
// edge-strategy planner needs.
package handle

import "github.com/katalvlaran/graphc/graph"

// DeferredFactoryID is the sentinel an Output layer's slot always
// resolves to: the graph's eventual consumer chooses the real factory,
// not this module.
const DeferredFactoryID = "__deferred__"

// LegacyFactoryID is the sentinel returned for a backend that does not
// implement the tensor-allocator interface at all.
const LegacyFactoryID = "__legacy__"

// CapabilityClass names one of the two capability flags the edge-strategy
// planner consults when deciding whether export is viable for an edge.
type CapabilityClass uint8

const (
	CapPaddingRequired CapabilityClass = iota
	CapFallbackImportDisabled
)

// Handle is the opaque result of CreateSubtensorHandle: a view over a
// parent buffer at a given shape and origin. It carries no live memory —
// allocation itself is a downstream concern — only enough identity for
// the planner and compatibility-layer inserter to reason about it.
type Handle struct {
	FactoryID string
	Shape     graph.Shape
	Origin    []uint32
}

// Factory is the tensor-handle-factory contract a backend registers
// against a Registry.
type Factory interface {
	ID() string
	SupportsMapUnmap() bool
	ImportFlags() uint32
	ExportFlags() uint32

	// HasCapability reports whether this factory declares class for the
	// given producer/consumer backend pair (e.g. "requires padding when
	// producer is gpu and consumer is cpu").
	HasCapability(producerBackend, consumerBackend string, class CapabilityClass) bool

	// CreateSubtensorHandle returns a non-owning view over parent at the
	// given shape/origin, or (zero, false) if the factory cannot express
	// that slice (e.g. the origin is not alignment-compatible).
	CreateSubtensorHandle(parent Handle, shape graph.Shape, origin []uint32) (Handle, bool)
}

// Registry maps a factory id to the Factory that implements it. Built
// explicitly by the caller per optimize.Run invocation; no package-level
// singleton.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds or replaces the factory under its own ID().
func (r *Registry) Register(f Factory) {
	r.factories[f.ID()] = f
}

// Lookup returns the factory registered under id, or (nil, false).
func (r *Registry) Lookup(id string) (Factory, bool) {
	f, ok := r.factories[id]
	return f, ok
}

// IDs returns every registered factory id, in no particular order.
func (r *Registry) IDs() []string {
	out := make([]string, 0, len(r.factories))
	for id := range r.factories {
		out = append(out, id)
	}
	return out
}
