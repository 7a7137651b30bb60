// File: add_quant.go
// Role: Quantize/Dequantize/FakeQuantization/Cast constructors.
package graph

func (g *Graph) AddQuantize(name string, in LayerRef, inSlot int) (LayerRef, error) {
	return addUnary(g, KindQuantize, name, in, inSlot, nil)
}

func (g *Graph) AddDequantize(name string, in LayerRef, inSlot int) (LayerRef, error) {
	return addUnary(g, KindDequantize, name, in, inSlot, nil)
}

func (g *Graph) AddFakeQuantization(name string, in LayerRef, inSlot int) (LayerRef, error) {
	return addUnary(g, KindFakeQuantization, name, in, inSlot, nil)
}

func (g *Graph) AddCast(name string, in LayerRef, inSlot int, p QuantizeParams) (LayerRef, error) {
	return addUnary(g, KindCast, name, in, inSlot, p)
}
