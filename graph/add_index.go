// File: add_index.go
// Role: indexing and shape-query constructors.
package graph

import "fmt"

func (g *Graph) AddGather(name string, params, indices LayerRef, paramsSlot, indicesSlot int, p AxisParams) (LayerRef, error) {
	return addBinary2(g, KindGather, name, params, indices, paramsSlot, indicesSlot, p)
}

func (g *Graph) AddGatherNd(name string, params, indices LayerRef, paramsSlot, indicesSlot int) (LayerRef, error) {
	return addBinary2(g, KindGatherNd, name, params, indices, paramsSlot, indicesSlot, noParams{})
}

func (g *Graph) AddScatterNd(name string, base, updates LayerRef, baseSlot, updatesSlot int) (LayerRef, error) {
	return addBinary2(g, KindScatterNd, name, base, updates, baseSlot, updatesSlot, noParams{})
}

// addBinary2 is addBinary with a non-empty params payload (Gather needs
// AxisParams; addBinary always passes noParams{}).
func addBinary2(g *Graph, kind Kind, name string, a, b LayerRef, aSlot, bSlot int, params Params) (LayerRef, error) {
	ref, _ := g.addMust(kind, name, params)
	if err := g.Connect(a, aSlot, ref, 0); err != nil {
		return invalidRef, err
	}
	if err := g.Connect(b, bSlot, ref, 1); err != nil {
		return invalidRef, err
	}
	return ref, nil
}

func (g *Graph) AddSlice(name string, in LayerRef, inSlot int, p SliceParams) (LayerRef, error) {
	if len(p.Begin) != len(p.Size) {
		return invalidRef, fmt.Errorf("%w: slice begin/size length mismatch", ErrInvalidArgument)
	}
	return addUnary(g, KindSlice, name, in, inSlot, p)
}

func (g *Graph) AddStridedSlice(name string, in LayerRef, inSlot int, p SliceParams) (LayerRef, error) {
	if len(p.Begin) != len(p.Size) {
		return invalidRef, fmt.Errorf("%w: strided_slice begin/size length mismatch", ErrInvalidArgument)
	}
	return addUnary(g, KindStridedSlice, name, in, inSlot, p)
}

// AddStack wires len(inputs) producers, each expected to carry the same
// shape, into a single stacked output. Stack has no fixed kind.go arity
// (it depends on how many tensors are being stacked), so it sizes its
// own slots.
func (g *Graph) AddStack(name string, inputs []LayerRef, inputSlots []int, axis int32) (LayerRef, error) {
	if len(inputs) == 0 {
		return invalidRef, fmt.Errorf("%w: stack requires at least 1 input", ErrInvalidArgument)
	}
	ref, _ := g.newLayer(KindStack, name, len(inputs), 1, AxisParams{Axis: axis})
	for i, producer := range inputs {
		if err := g.Connect(producer, inputSlots[i], ref, i); err != nil {
			return invalidRef, err
		}
	}
	return ref, nil
}

// AddTile's repeat counts are carried in BroadcastToParams.TargetShape
// for now (Tile's inference is a pass-through in infer.go pending a
// dedicated multiples-aware shape rule; the repeat counts are preserved
// here for a future inferTile to consume).
func (g *Graph) AddTile(name string, in LayerRef, inSlot int, multiples []uint32) (LayerRef, error) {
	return addUnary(g, KindTile, name, in, inSlot, BroadcastToParams{TargetShape: multiples})
}

func (g *Graph) AddShape(name string, in LayerRef, inSlot int) (LayerRef, error) {
	return addUnary(g, KindShape, name, in, inSlot, nil)
}

func (g *Graph) AddRank(name string, in LayerRef, inSlot int) (LayerRef, error) {
	return addUnary(g, KindRank, name, in, inSlot, nil)
}
