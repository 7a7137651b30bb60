// Package graph is the computation-graph core of the compiler: Layers,
// their typed input/output Slots, TensorInfo, and the Graph that owns
// them.
//
// The Graph G = (L, S) is a directed acyclic multigraph: nodes are Layers
// tagged with a closed Kind, edges run from an OutputSlot to an InputSlot.
// Layers are stored in a slab owned by the Graph and referenced by a
// stable LayerRef index rather than by pointer, so that slots can name
// their owner without a reference cycle (see the package-level design
// note in DESIGN.md).
//
// Construction happens through the per-family Add* methods in this
// package (add_io.go, add_arith.go, add_conv.go, ...), which play the
// role of the external graph-builder façade: each returns a stable
// LayerRef whose slots can then be wired with
// Connect. Structural edits beyond construction go through InsertBefore
// and SubstituteSubgraph; Graph never changes a Layer's arity in place.
//
// Shape and data-type propagation (infer.go and the shape_*.go files)
// runs layer by layer in topological order and either validates a
// pre-set OutputSlot.Info or overwrites it, per InferMethod.
package graph
