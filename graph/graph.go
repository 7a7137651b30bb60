// File: graph.go
// Role: Graph construction, connection, and structural-edit primitives.
// Concurrency: muLayers guards the layer slab; muSlots guards slot
// connections (InputSlot.producer, OutputSlot.consumers). Two locks,
// mirroring the teacher's muVert/muEdgeAdj split, because layer
// allocation and slot wiring are independently contended.
package graph

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Graph owns a slab of Layers and their slot connections. It is acyclic
// at all times (invariant 1): Connect refuses any edge that would close
// a cycle.
type Graph struct {
	muLayers sync.RWMutex
	muSlots  sync.RWMutex

	nextRef uint32
	layers  map[LayerRef]*Layer
	order   []LayerRef // insertion order, for deterministic iteration

	arena *ConstantArena
}

// NewGraph returns an empty Graph with a fresh ConstantArena.
func NewGraph() *Graph {
	return &Graph{
		layers: make(map[LayerRef]*Layer),
		arena:  NewConstantArena(),
	}
}

// Arena exposes the Graph's constant-tensor arena so Add* constructors
// and passes can allocate/rewrite constant buffers.
func (g *Graph) Arena() *ConstantArena { return g.arena }

// newName returns name if non-empty, else a synthetic uuid-based one so
// every layer has a stable diagnostic handle ("Name for
// diagnostics").
func newName(kind Kind, name string) string {
	if name != "" {
		return name
	}
	return fmt.Sprintf("%s#%s", kind.String(), uuid.NewString()[:8])
}

// allocLayer inserts a fully-formed Layer (arity already sized by the
// caller's Add* constructor) and returns its LayerRef. Internal only —
// every exported constructor in add_*.go funnels through this.
func (g *Graph) allocLayer(l *Layer) LayerRef {
	g.muLayers.Lock()
	defer g.muLayers.Unlock()

	ref := LayerRef(atomic.AddUint32(&g.nextRef, 1))
	l.ref = ref
	for i := range l.Inputs {
		l.Inputs[i].owner = ref
		l.Inputs[i].index = i
	}
	for i := range l.Outputs {
		l.Outputs[i].owner = ref
		l.Outputs[i].index = i
	}
	g.layers[ref] = l
	g.order = append(g.order, ref)

	return ref
}

// Layer resolves a LayerRef to its Layer, or nil if unknown.
func (g *Graph) Layer(ref LayerRef) *Layer {
	g.muLayers.RLock()
	defer g.muLayers.RUnlock()
	return g.layers[ref]
}

// MustLayer is Layer but panics on an unknown ref; passes and the
// pipeline use it once a ref is already known to be live.
func (g *Graph) MustLayer(ref LayerRef) *Layer {
	l := g.Layer(ref)
	if l == nil {
		panic(fmt.Sprintf("graph: dangling LayerRef %d", ref))
	}
	return l
}

// Len returns the number of live layers.
func (g *Graph) Len() int {
	g.muLayers.RLock()
	defer g.muLayers.RUnlock()
	return len(g.layers)
}

// ForEachLayer calls fn once per live layer in insertion order. fn must
// not mutate the layer slab (add/erase/substitute); it may freely read
// or mutate slot-level fields such as Backend or FactoryID.
func (g *Graph) ForEachLayer(fn func(ref LayerRef, l *Layer)) {
	g.muLayers.RLock()
	order := append([]LayerRef(nil), g.order...)
	g.muLayers.RUnlock()

	for _, ref := range order {
		if l := g.Layer(ref); l != nil {
			fn(ref, l)
		}
	}
}

// Connect establishes one edge from an OutputSlot to an InputSlot.
// Fails with ErrSlotBound if the consumer is already bound, or
// ErrWouldCycle if the edge would close a cycle.
func (g *Graph) Connect(producer LayerRef, outIdx int, consumer LayerRef, inIdx int) error {
	pl := g.Layer(producer)
	cl := g.Layer(consumer)
	if pl == nil || cl == nil {
		return fmt.Errorf("%w: connect", ErrUnknownLayer)
	}
	if outIdx < 0 || outIdx >= len(pl.Outputs) || inIdx < 0 || inIdx >= len(cl.Inputs) {
		return fmt.Errorf("%w: slot index out of range", ErrInvalidArgument)
	}

	g.muSlots.Lock()
	defer g.muSlots.Unlock()

	if cl.Inputs[inIdx].bound {
		return ErrSlotBound
	}
	if producer == consumer || g.reachableLocked(consumer, producer) {
		return ErrWouldCycle
	}

	cl.Inputs[inIdx].bound = true
	cl.Inputs[inIdx].producer = producer
	cl.Inputs[inIdx].prodSlot = outIdx
	pl.Outputs[outIdx].consumers = append(pl.Outputs[outIdx].consumers, consumerRef{layer: consumer, slot: inIdx})

	return nil
}

// reachableLocked reports whether to is reachable from from by following
// producer edges forward (from -> ... -> to). Callers must hold muSlots.
func (g *Graph) reachableLocked(from, to LayerRef) bool {
	seen := map[LayerRef]bool{from: true}
	stack := []LayerRef{from}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == to {
			return true
		}
		l := g.layers[cur]
		if l == nil {
			continue
		}
		for _, out := range l.Outputs {
			for _, c := range out.consumers {
				if !seen[c.layer] {
					seen[c.layer] = true
					stack = append(stack, c.layer)
				}
			}
		}
	}
	return false
}

// InsertBefore splices a unary layer onto an existing edge so that
// producer -> newLayer -> consumer in a single atomic step. newLayer
// must have exactly one input and one output slot and must not yet be
// connected to anything.
func (g *Graph) InsertBefore(consumer LayerRef, consumerSlot int, newLayer LayerRef) error {
	cl := g.Layer(consumer)
	nl := g.Layer(newLayer)
	if cl == nil || nl == nil {
		return fmt.Errorf("%w: insert_before", ErrUnknownLayer)
	}
	if len(nl.Inputs) != 1 || len(nl.Outputs) != 1 {
		return fmt.Errorf("%w: insert_before requires a unary layer", ErrInvalidArgument)
	}

	g.muSlots.Lock()
	defer g.muSlots.Unlock()

	if consumerSlot < 0 || consumerSlot >= len(cl.Inputs) || !cl.Inputs[consumerSlot].bound {
		return fmt.Errorf("%w: consumer slot not bound", ErrInvalidArgument)
	}
	producer := cl.Inputs[consumerSlot].producer
	producerSlot := cl.Inputs[consumerSlot].prodSlot
	pl := g.layers[producer]

	// Detach producer -> consumer.
	removeConsumerLocked(pl, producerSlot, consumer, consumerSlot)

	// Wire producer -> newLayer.
	nl.Inputs[0].bound = true
	nl.Inputs[0].producer = producer
	nl.Inputs[0].prodSlot = producerSlot
	pl.Outputs[producerSlot].consumers = append(pl.Outputs[producerSlot].consumers, consumerRef{layer: newLayer, slot: 0})

	// Wire newLayer -> consumer.
	cl.Inputs[consumerSlot].bound = true
	cl.Inputs[consumerSlot].producer = newLayer
	cl.Inputs[consumerSlot].prodSlot = 0
	nl.Outputs[0].consumers = append(nl.Outputs[0].consumers, consumerRef{layer: consumer, slot: consumerSlot})
	nl.Outputs[0].Info = pl.Outputs[producerSlot].Info

	return nil
}

func removeConsumerLocked(producer *Layer, outIdx int, consumer LayerRef, inIdx int) {
	out := &producer.Outputs[outIdx]
	for i, c := range out.consumers {
		if c.layer == consumer && c.slot == inIdx {
			out.consumers = append(out.consumers[:i], out.consumers[i+1:]...)
			return
		}
	}
}

// Erase removes a layer with no consumers on any of its outputs.
// Returns ErrHasConsumers otherwise.
func (g *Graph) Erase(ref LayerRef) error {
	g.muSlots.Lock()
	l := g.layers[ref]
	if l == nil {
		g.muSlots.Unlock()
		return fmt.Errorf("%w: erase", ErrUnknownLayer)
	}
	for _, out := range l.Outputs {
		if len(out.consumers) > 0 {
			g.muSlots.Unlock()
			return ErrHasConsumers
		}
	}
	// Detach this layer from its own producers so they lose a consumer.
	for i, in := range l.Inputs {
		if in.bound {
			if pl := g.layers[in.producer]; pl != nil {
				removeConsumerLocked(pl, in.prodSlot, ref, i)
			}
		}
	}
	g.muSlots.Unlock()

	g.muLayers.Lock()
	delete(g.layers, ref)
	for i, r := range g.order {
		if r == ref {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
	g.muLayers.Unlock()

	return nil
}

// TopologicalOrder returns all live layers in a deterministic
// reverse-producer order (producers before consumers), ties broken by
// insertion order so downstream passes are reproducible.
func (g *Graph) TopologicalOrder() []LayerRef {
	g.muLayers.RLock()
	order := append([]LayerRef(nil), g.order...)
	layers := make(map[LayerRef]*Layer, len(g.layers))
	for k, v := range g.layers {
		layers[k] = v
	}
	g.muLayers.RUnlock()

	visited := make(map[LayerRef]bool, len(order))
	result := make([]LayerRef, 0, len(order))
	var visit func(ref LayerRef)
	visit = func(ref LayerRef) {
		if visited[ref] {
			return
		}
		visited[ref] = true
		l := layers[ref]
		if l != nil {
			for _, in := range l.Inputs {
				if in.bound {
					visit(in.producer)
				}
			}
		}
		result = append(result, ref)
	}
	for _, ref := range order {
		visit(ref)
	}
	return result
}

// VerifyConnections asserts every non-Input slot is connected and every
// constant producer has a backing tensor. Returns ErrLayerValidation on
// the first violation found (in topological order).
func (g *Graph) VerifyConnections() error {
	for _, ref := range g.TopologicalOrder() {
		l := g.Layer(ref)
		if l == nil {
			continue
		}
		for i, in := range l.Inputs {
			if !in.bound {
				return fmt.Errorf("%w: layer %q input %d unconnected", ErrLayerValidation, l.Name, i)
			}
		}
		if l.Kind == KindConstant && l.constID == "" {
			return fmt.Errorf("%w: constant layer %q has no backing tensor", ErrNullPointer, l.Name)
		}
	}
	return nil
}
