// File: add_arith.go
// Role: arithmetic, elementwise-unary, activation, and logical/comparison
// constructors.
package graph

func addBinary(g *Graph, kind Kind, name string, a, b LayerRef, aSlot, bSlot int) (LayerRef, error) {
	ref, _ := g.addMust(kind, name, noParams{})
	if err := g.Connect(a, aSlot, ref, 0); err != nil {
		return invalidRef, err
	}
	if err := g.Connect(b, bSlot, ref, 1); err != nil {
		return invalidRef, err
	}
	return ref, nil
}

// AddAdd/AddSub/AddMul/AddDiv/AddMaximum/AddMinimum/AddPow connect two
// existing producer slots into a fresh elementwise-binary layer.
func (g *Graph) AddAdd(name string, a, b LayerRef, aSlot, bSlot int) (LayerRef, error) {
	return addBinary(g, KindAdd, name, a, b, aSlot, bSlot)
}
func (g *Graph) AddSub(name string, a, b LayerRef, aSlot, bSlot int) (LayerRef, error) {
	return addBinary(g, KindSub, name, a, b, aSlot, bSlot)
}
func (g *Graph) AddMul(name string, a, b LayerRef, aSlot, bSlot int) (LayerRef, error) {
	return addBinary(g, KindMul, name, a, b, aSlot, bSlot)
}
func (g *Graph) AddDiv(name string, a, b LayerRef, aSlot, bSlot int) (LayerRef, error) {
	return addBinary(g, KindDiv, name, a, b, aSlot, bSlot)
}
func (g *Graph) AddMaximum(name string, a, b LayerRef, aSlot, bSlot int) (LayerRef, error) {
	return addBinary(g, KindMaximum, name, a, b, aSlot, bSlot)
}
func (g *Graph) AddMinimum(name string, a, b LayerRef, aSlot, bSlot int) (LayerRef, error) {
	return addBinary(g, KindMinimum, name, a, b, aSlot, bSlot)
}
func (g *Graph) AddPow(name string, a, b LayerRef, aSlot, bSlot int) (LayerRef, error) {
	return addBinary(g, KindPow, name, a, b, aSlot, bSlot)
}
func (g *Graph) AddLogicalBinary(name string, a, b LayerRef, aSlot, bSlot int) (LayerRef, error) {
	return addBinary(g, KindLogicalBinary, name, a, b, aSlot, bSlot)
}
func (g *Graph) AddComparison(name string, a, b LayerRef, aSlot, bSlot int) (LayerRef, error) {
	return addBinary(g, KindComparison, name, a, b, aSlot, bSlot)
}

// AddPRelu connects an input and a per-channel alpha producer.
func (g *Graph) AddPRelu(name string, input, alpha LayerRef, inputSlot, alphaSlot int) (LayerRef, error) {
	return addBinary(g, KindPRelu, name, input, alpha, inputSlot, alphaSlot)
}

func addUnary(g *Graph, kind Kind, name string, in LayerRef, inSlot int, params Params) (LayerRef, error) {
	if params == nil {
		params = noParams{}
	}
	ref, _ := g.addMust(kind, name, params)
	if err := g.Connect(in, inSlot, ref, 0); err != nil {
		return invalidRef, err
	}
	return ref, nil
}

func (g *Graph) AddFloor(name string, in LayerRef, inSlot int) (LayerRef, error) {
	return addUnary(g, KindFloor, name, in, inSlot, nil)
}
func (g *Graph) AddAbs(name string, in LayerRef, inSlot int) (LayerRef, error) {
	return addUnary(g, KindAbs, name, in, inSlot, nil)
}
func (g *Graph) AddRsqrt(name string, in LayerRef, inSlot int) (LayerRef, error) {
	return addUnary(g, KindRsqrt, name, in, inSlot, nil)
}
func (g *Graph) AddNeg(name string, in LayerRef, inSlot int) (LayerRef, error) {
	return addUnary(g, KindNeg, name, in, inSlot, nil)
}
func (g *Graph) AddExp(name string, in LayerRef, inSlot int) (LayerRef, error) {
	return addUnary(g, KindExp, name, in, inSlot, nil)
}

// AddActivation applies a nonlinearity chosen by p.Func.
func (g *Graph) AddActivation(name string, in LayerRef, inSlot int, p ActivationParams) (LayerRef, error) {
	return addUnary(g, KindActivation, name, in, inSlot, p)
}

// AddSoftmax/AddLogSoftmax apply along a single axis (default last axis
// when p.Axis is left at its zero value by the caller's convention).
func (g *Graph) AddSoftmax(name string, in LayerRef, inSlot int, p AxisParams) (LayerRef, error) {
	return addUnary(g, KindSoftmax, name, in, inSlot, p)
}
func (g *Graph) AddLogSoftmax(name string, in LayerRef, inSlot int, p AxisParams) (LayerRef, error) {
	return addUnary(g, KindLogSoftmax, name, in, inSlot, p)
}
