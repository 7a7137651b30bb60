// File: add_concat.go
// Role: Concat/Splitter constructors — the two variable-arity kinds
// whose input/output counts come from their view descriptors, not a
// fixed kind.go entry.
package graph

import "fmt"

// AddConcat wires len(inputs) producers into a fresh Concat layer. One
// view per input is required. Views must not overlap; that is checked at
// InferTensorInfos time once shapes are known, not here.
func (g *Graph) AddConcat(name string, inputs []LayerRef, inputSlots []int, p ConcatParams) (LayerRef, error) {
	if len(inputs) == 0 {
		return invalidRef, fmt.Errorf("%w: concat requires at least 1 input", ErrInvalidArgument)
	}
	if len(p.Views) != len(inputs) {
		return invalidRef, fmt.Errorf("%w: concat has %d views for %d inputs", ErrInvalidArgument, len(p.Views), len(inputs))
	}
	ref, _ := g.newLayer(KindConcat, name, len(inputs), 1, p)
	for i, producer := range inputs {
		if err := g.Connect(producer, inputSlots[i], ref, i); err != nil {
			return invalidRef, err
		}
	}
	return ref, nil
}

// AddSplitter fans a single input out to len(p.Views) outputs.
func (g *Graph) AddSplitter(name string, in LayerRef, inSlot int, p SplitterParams) (LayerRef, error) {
	if len(p.Views) == 0 {
		return invalidRef, fmt.Errorf("%w: splitter requires at least 1 view", ErrInvalidArgument)
	}
	ref, _ := g.newLayer(KindSplitter, name, 1, len(p.Views), p)
	if err := g.Connect(in, inSlot, ref, 0); err != nil {
		return invalidRef, err
	}
	return ref, nil
}
