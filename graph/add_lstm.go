// File: add_lstm.go
// Role: Lstm/QLstm constructors. Variable arity: kind.go defers to this
// file because whether CIFG/Peephole/Projection/LayerNorm are enabled
// only affects which constant ids LstmParams carries, not the graph's
// actual input slots — every Lstm layer wires the same 3 runtime inputs
// (data, output-state-in, cell-state-in) and 4 outputs (scratch,
// output-state-out, cell-state-out, output), per the optional
// parameter groups design note.
package graph

func addLstmLike(g *Graph, kind Kind, name string, input, outputStateIn, cellStateIn LayerRef, inputSlot, outStateSlot, cellStateSlot int, p LstmParams) (LayerRef, error) {
	if err := validateLstmGroups(&Layer{Name: name}, p); err != nil {
		return invalidRef, err
	}
	ref, _ := g.newLayer(kind, name, 3, 4, p)
	if err := g.Connect(input, inputSlot, ref, 0); err != nil {
		return invalidRef, err
	}
	if err := g.Connect(outputStateIn, outStateSlot, ref, 1); err != nil {
		return invalidRef, err
	}
	if err := g.Connect(cellStateIn, cellStateSlot, ref, 2); err != nil {
		return invalidRef, err
	}
	return ref, nil
}

func (g *Graph) AddLstm(name string, input, outputStateIn, cellStateIn LayerRef, inputSlot, outStateSlot, cellStateSlot int, p LstmParams) (LayerRef, error) {
	return addLstmLike(g, KindLstm, name, input, outputStateIn, cellStateIn, inputSlot, outStateSlot, cellStateSlot, p)
}

func (g *Graph) AddQLstm(name string, input, outputStateIn, cellStateIn LayerRef, inputSlot, outStateSlot, cellStateSlot int, p LstmParams) (LayerRef, error) {
	return addLstmLike(g, KindQLstm, name, input, outputStateIn, cellStateIn, inputSlot, outStateSlot, cellStateSlot, p)
}
