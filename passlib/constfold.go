// File: constfold.go
// Role: constant-layer normalization — folding a neighbour's effect
// directly into a Constant layer's stored bytes so the neighbour can be
// dropped. Two shapes: a Dequantize that only widens a constant's type,
// and a Permute that only reorders one.
package passlib

import (
	"math"

	"github.com/katalvlaran/graphc/graph"
	"github.com/katalvlaran/graphc/pass"
)

// FoldConstantDequantize recognizes a Constant feeding a single
// Dequantize consumer and rewrites the constant in place as a
// float32 tensor holding the already-dequantized values, dropping the
// Dequantize layer. Quantized integer storage is read according to the
// constant's own DType/QScale/QOffset.
type FoldConstantDequantize struct{}

func (FoldConstantDequantize) Name() string { return "fold-constant-dequantize" }

func (FoldConstantDequantize) Apply(g *graph.Graph, cur graph.LayerRef) (pass.Result, error) {
	l := g.Layer(cur)
	if l == nil || l.Kind != graph.KindConstant {
		return pass.NoChange, nil
	}
	consumers := l.Outputs[0].Consumers()
	if len(consumers) != 1 {
		return pass.NoChange, nil
	}
	deq := g.Layer(consumers[0].Layer)
	if deq == nil || deq.Kind != graph.KindDequantize {
		return pass.NoChange, nil
	}
	info := l.Outputs[0].Info
	if !info.HasQuant || !info.DType.IsQuantized() {
		return pass.NoChange, nil
	}
	data, ok := g.ConstantData(cur)
	if !ok {
		return pass.NoChange, nil
	}

	float32Data, ok := dequantizeToFloat32(data, info)
	if !ok {
		return pass.NoChange, nil
	}
	newInfo := info
	newInfo.DType = graph.DTypeFloat32
	newInfo.HasQuant = false
	newInfo.QScale = 0
	newInfo.QOffset = 0
	if err := g.RewriteConstant(cur, newInfo, float32Data); err != nil {
		return pass.NoChange, err
	}

	deqConsumers := deq.Outputs[0].Consumers()
	for _, c := range deqConsumers {
		if err := g.Rebind(c.Layer, c.Slot, cur, 0); err != nil {
			return pass.NoChange, err
		}
	}
	if err := g.Erase(deq.Ref()); err != nil {
		return pass.NoChange, err
	}
	return pass.Substituted, nil
}

func dequantizeToFloat32(data []byte, info graph.TensorInfo) ([]byte, bool) {
	n := int(info.Shape.NumElements())
	out := make([]byte, n*4)
	for i := 0; i < n; i++ {
		var raw int32
		switch info.DType {
		case graph.DTypeQAsymmU8:
			raw = int32(data[i])
		case graph.DTypeQAsymmS8, graph.DTypeQSymmS8:
			raw = int32(int8(data[i]))
		case graph.DTypeQSymmS16:
			raw = int32(int16(uint16(data[2*i]) | uint16(data[2*i+1])<<8))
		default:
			return nil, false
		}
		v := (float32(raw) - float32(info.QOffset)) * info.QScale
		putFloat32(out[i*4:], v)
	}
	return out, true
}

func putFloat32(b []byte, v float32) {
	bits := math.Float32bits(v)
	b[0] = byte(bits)
	b[1] = byte(bits >> 8)
	b[2] = byte(bits >> 16)
	b[3] = byte(bits >> 24)
}

// FuseConstantPermute recognizes a Constant feeding a single Permute
// consumer and rewrites the constant's stored bytes and shape to the
// already-permuted layout, dropping the Permute layer.
type FuseConstantPermute struct{}

func (FuseConstantPermute) Name() string { return "fuse-constant-permute" }

func (FuseConstantPermute) Apply(g *graph.Graph, cur graph.LayerRef) (pass.Result, error) {
	l := g.Layer(cur)
	if l == nil || l.Kind != graph.KindConstant {
		return pass.NoChange, nil
	}
	consumers := l.Outputs[0].Consumers()
	if len(consumers) != 1 {
		return pass.NoChange, nil
	}
	perm := g.Layer(consumers[0].Layer)
	if perm == nil || perm.Kind != graph.KindPermute {
		return pass.NoChange, nil
	}
	permParams, ok := perm.Params.(graph.PermuteParams)
	if !ok {
		return pass.NoChange, nil
	}

	info := l.Outputs[0].Info
	if info.Shape.Tag != graph.DimsSpecified || len(permParams.Perm) != len(info.Shape.Dims) {
		return pass.NoChange, nil
	}
	elemSize := info.DType.ByteWidth()
	if elemSize == 0 {
		return pass.NoChange, nil
	}
	data, ok := g.ConstantData(cur)
	if !ok {
		return pass.NoChange, nil
	}

	newData := permuteBytes(data, info.Shape.Dims, permParams.Perm, elemSize)
	newShape := make([]uint32, len(info.Shape.Dims))
	for i, p := range permParams.Perm {
		newShape[i] = info.Shape.Dims[p]
	}
	newInfo := info
	newInfo.Shape = graph.NewShape(newShape...)
	if err := g.RewriteConstant(cur, newInfo, newData); err != nil {
		return pass.NoChange, err
	}

	permConsumers := perm.Outputs[0].Consumers()
	for _, c := range permConsumers {
		if err := g.Rebind(c.Layer, c.Slot, cur, 0); err != nil {
			return pass.NoChange, err
		}
	}
	if err := g.Erase(perm.Ref()); err != nil {
		return pass.NoChange, err
	}
	return pass.Substituted, nil
}

// permuteBytes reorders the elements of data (row-major, shape dims,
// each elemSize bytes) so that output axis i holds input axis perm[i],
// i.e. out[i0,i1,...] = in[i_perm(0), i_perm(1), ...].
func permuteBytes(data []byte, shape, perm []uint32, elemSize int) []byte {
	rank := len(shape)
	outShape := make([]int, rank)
	for i, p := range perm {
		outShape[i] = int(shape[p])
	}
	inStrides := make([]int, rank)
	stride := 1
	for i := rank - 1; i >= 0; i-- {
		inStrides[i] = stride
		stride *= int(shape[i])
	}
	total := stride

	out := make([]byte, len(data))
	idx := make([]int, rank)
	for linear := 0; linear < total; linear++ {
		rem := linear
		for i := rank - 1; i >= 0; i-- {
			idx[i] = rem % outShape[i]
			rem /= outShape[i]
		}
		inOffset := 0
		for i := 0; i < rank; i++ {
			inOffset += idx[i] * inStrides[perm[i]]
		}
		copy(out[linear*elemSize:(linear+1)*elemSize], data[inOffset*elemSize:(inOffset+1)*elemSize])
	}
	return out
}
