// Package backend defines the downstream contract a compute backend
// implements (gpu, cpu-accelerated, reference-cpu, ...) and the registry
// that names them for backend assignment and the subgraph optimization
// driver.
package backend

import (
	"github.com/katalvlaran/graphc/graph"
	"github.com/katalvlaran/graphc/handle"
	"github.com/katalvlaran/graphc/subgraph"
)

// ModelOptions is the subset of optimize.Options a backend needs to see
// when asked to optimize a subgraph, plus its own opaque per-backend bag.
// It is a narrow view rather than the full options struct so this
// package never imports optimize (which imports backend).
type ModelOptions struct {
	ReduceFloat32ToFloat16 bool
	AllowExpandedDims      bool
	Opaque                 map[string]any
}

// Backend is the contract every compute backend implements. Method names
// mirror the external contract: is-layer-supported, handle-factory
// preferences, optimize-subgraph, register-handle-factories.
type Backend interface {
	// ID returns this backend's unique, stable identifier (e.g. "gpu",
	// "cpu-acc", "reference-cpu").
	ID() string

	// IsLayerSupported reports whether l can run on this backend. When
	// dtypeOverride is non-nil, the check is performed as if every
	// relevant tensor already had that data type (used by the float16
	// repair subroutine to probe float32 support before committing to
	// it). reason is populated on a false result for diagnostics.
	IsLayerSupported(l *graph.Layer, dtypeOverride *graph.DataType) (ok bool, reason string)

	// HandleFactoryPreferences returns this backend's tensor-handle
	// factory ids, most preferred first.
	HandleFactoryPreferences() []string

	// OptimizeSubgraph asks the backend to rewrite one region it has been
	// assigned. A backend that has nothing to contribute returns a zero
	// OptimizationViews and a nil error.
	OptimizeSubgraph(v subgraph.View, opts ModelOptions) (subgraph.OptimizationViews, error)

	// RegisterHandleFactories lets the backend populate reg with the
	// tensor-handle factories it provides.
	RegisterHandleFactories(reg *handle.Registry)

	// Accelerated reports whether this backend warrants the driver's
	// GPU/CPU-accelerated pre-pass group before subgraph selection. That
	// group runs fuse-permute-into-constant only; there is no
	// permute-depthwise-weights normalization pass.
	Accelerated() bool
}

// IsReferenceCPU reports whether b is the reference-cpu backend by id,
// the one fallback exempt from the driver's per-subgraph ignored-backend
// bookkeeping.
func IsReferenceCPU(b Backend) bool {
	return b != nil && b.ID() == ReferenceCPUID
}

// ReferenceCPUID is the well-known id the assignment policy's utility-
// kind fallback and the driver's reassignment loop both special-case.
const ReferenceCPUID = "reference-cpu"

// Registry maps a backend id to the Backend instance, built explicitly
// by the caller per optimize.Run invocation.
type Registry struct {
	backends map[string]Backend
	order    []string
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{backends: make(map[string]Backend)}
}

// Register adds b under its own ID(), preserving first-registration
// order for Registry.Order.
func (r *Registry) Register(b Backend) {
	if _, exists := r.backends[b.ID()]; !exists {
		r.order = append(r.order, b.ID())
	}
	r.backends[b.ID()] = b
}

// Lookup returns the backend registered under id, or (nil, false).
func (r *Registry) Lookup(id string) (Backend, bool) {
	b, ok := r.backends[id]
	return b, ok
}

// Order returns every registered backend id in registration order.
func (r *Registry) Order() []string {
	return append([]string(nil), r.order...)
}
