// File: add_io.go
// Role: Input/Output/Constant constructors — the graph's external
// boundary and its constant-tensor entry point.
package graph

// AddInput creates a binding-point layer with no inputs and one output
// carrying info.
func (g *Graph) AddInput(name string, info TensorInfo, bindingID int) LayerRef {
	ref, l := g.addMust(KindInput, name, InputParams{BindingID: bindingID})
	l.Outputs[0].Info = info
	return ref
}

// AddOutput creates a binding-point layer with one input and no outputs.
func (g *Graph) AddOutput(name string, bindingID int) LayerRef {
	ref, _ := g.addMust(KindOutput, name, OutputParams{BindingID: bindingID})
	return ref
}

// AddConstant stores data in the graph's ConstantArena and creates a
// Constant layer naming it. info.IsConstant is forced true.
func (g *Graph) AddConstant(name string, info TensorInfo, data []byte) LayerRef {
	info.IsConstant = true
	id := g.arena.Put(info, data)
	ref, l := g.addMust(KindConstant, name, ConstantParams{})
	l.constID = id
	l.Outputs[0].Info = info
	return ref
}

// addMust wraps addFixedArity for the kinds this package statically knows
// have a fixed arity; it panics on a kind.go/add_*.go mismatch, which
// would be a programmer error caught long before a real build.
func (g *Graph) addMust(kind Kind, name string, params Params) (LayerRef, *Layer) {
	ref, l, err := g.addFixedArity(kind, name, params)
	if err != nil {
		panic(err)
	}
	return ref, l
}
