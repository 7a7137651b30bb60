// File: constdata.go
// Role: read/rewrite access to a Constant layer's backing arena entry,
// for passes that fold a neighbour's effect into the constant's own
// stored bytes rather than leaving it as a separate layer.
package graph

import "fmt"

// ConstantData returns the byte buffer backing a Constant layer, or
// (nil, false) if ref does not name one with a bound tensor.
func (g *Graph) ConstantData(ref LayerRef) ([]byte, bool) {
	l := g.Layer(ref)
	if l == nil || l.Kind != KindConstant || l.constID == "" {
		return nil, false
	}
	t := g.arena.Get(l.constID)
	if t == nil {
		return nil, false
	}
	return t.Data, true
}

// RewriteConstant replaces a Constant layer's backing tensor with a
// freshly-allocated one and releases the old arena entry, following the
// "rewrites allocate a new id and redirect" rule ConstantArena documents.
func (g *Graph) RewriteConstant(ref LayerRef, info TensorInfo, data []byte) error {
	l := g.Layer(ref)
	if l == nil || l.Kind != KindConstant {
		return fmt.Errorf("%w: layer is not a Constant", ErrInvalidArgument)
	}
	info.IsConstant = true
	oldID := l.constID
	l.constID = g.arena.Put(info, data)
	l.Outputs[0].Info = info
	if oldID != "" {
		g.arena.Release(oldID)
	}
	return nil
}
