// File: add_common.go
// Role: shared plumbing for the Add* graph-builder façade (one file per
// layer-kind family, add_io.go/add_arith.go/...), mirroring the teacher's
// per-op-family builder convention.
package graph

import "fmt"

// newLayer allocates a Layer of the given kind with ins/outs slots sized
// up front (arity never changes after construction) and funnels it
// through allocLayer.
func (g *Graph) newLayer(kind Kind, name string, ins, outs int, params Params) (LayerRef, *Layer) {
	l := &Layer{
		Kind:    kind,
		Name:    newName(kind, name),
		Params:  params,
		Inputs:  make([]InputSlot, ins),
		Outputs: make([]OutputSlot, outs),
	}
	ref := g.allocLayer(l)
	return ref, l
}

// addFixedArity is the common path for every kind whose arity is fixed by
// kind.go's fixedArity table: it returns an ErrInvalidArgument error,
// allocating no layer, if called for a kind that doesn't declare a fixed
// arity, so add_*.go constructors for variable-arity kinds must size slots
// themselves instead of calling this helper.
func (g *Graph) addFixedArity(kind Kind, name string, params Params) (LayerRef, *Layer, error) {
	ins, outs, ok := kind.fixedArity()
	if !ok {
		return invalidRef, nil, fmt.Errorf("%w: %s has no fixed arity, use its dedicated constructor", ErrInvalidArgument, kind)
	}
	ref, l := g.newLayer(kind, name, ins, outs, params)
	return ref, l, nil
}
