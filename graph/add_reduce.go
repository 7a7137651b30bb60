// File: add_reduce.go
// Role: Mean/Reduce, BroadcastTo, and BatchMatMul constructors.
package graph

import "fmt"

func (g *Graph) AddMean(name string, in LayerRef, inSlot int, p ReduceParams) (LayerRef, error) {
	if len(p.Axes) == 0 {
		return invalidRef, fmt.Errorf("%w: mean requires at least 1 axis", ErrInvalidArgument)
	}
	return addUnary(g, KindMean, name, in, inSlot, p)
}

func (g *Graph) AddReduce(name string, in LayerRef, inSlot int, p ReduceParams) (LayerRef, error) {
	if len(p.Axes) == 0 {
		return invalidRef, fmt.Errorf("%w: reduce requires at least 1 axis", ErrInvalidArgument)
	}
	return addUnary(g, KindReduce, name, in, inSlot, p)
}

func (g *Graph) AddBroadcastTo(name string, in LayerRef, inSlot int, p BroadcastToParams) (LayerRef, error) {
	if len(p.TargetShape) == 0 {
		return invalidRef, fmt.Errorf("%w: broadcast_to requires a non-empty target shape", ErrInvalidArgument)
	}
	return addUnary(g, KindBroadcastTo, name, in, inSlot, p)
}

func (g *Graph) AddBatchMatMul(name string, a, b LayerRef, aSlot, bSlot int, p BatchMatMulParams) (LayerRef, error) {
	return addBinary2(g, KindBatchMatMul, name, a, b, aSlot, bSlot, p)
}
