// File: shape_index.go
// Role: shared shape rules for the indexing and reduction families
// Gather/GatherNd, Slice/StridedSlice, Mean/Reduce,
// BroadcastTo, BatchMatMul.
package graph

import "fmt"

func inferGather(l *Layer, ins []TensorInfo) ([]TensorInfo, error) {
	if len(ins) < 2 {
		return nil, fmt.Errorf("%w: %s requires 2 inputs (params, indices)", ErrInvalidArgument, l.Name)
	}
	p, _ := l.Params.(AxisParams)
	params, indices := ins[0].Shape, ins[1].Shape
	if params.Tag != DimsSpecified {
		out := ins[0]
		out.Shape = Shape{Tag: DimsUnspecified}
		return []TensorInfo{out}, nil
	}
	axis := int(p.Axis)
	if axis < 0 {
		axis += params.Rank()
	}
	if axis < 0 || axis >= params.Rank() {
		return nil, fmt.Errorf("%w: %s gather axis %d out of range for rank %d", ErrLayerValidation, l.Name, p.Axis, params.Rank())
	}
	out := make([]uint32, 0, params.Rank()-1+indices.Rank())
	out = append(out, params.Dims[:axis]...)
	if indices.Tag == DimsSpecified {
		out = append(out, indices.Dims...)
	}
	out = append(out, params.Dims[axis+1:]...)
	info := ins[0]
	info.Shape = Shape{Dims: out, Tag: DimsSpecified}
	return []TensorInfo{info}, nil
}

func inferGatherNd(l *Layer, ins []TensorInfo) ([]TensorInfo, error) {
	if len(ins) < 2 {
		return nil, fmt.Errorf("%w: %s requires 2 inputs (params, indices)", ErrInvalidArgument, l.Name)
	}
	params, indices := ins[0].Shape, ins[1].Shape
	if params.Tag != DimsSpecified || indices.Tag != DimsSpecified || indices.Rank() == 0 {
		info := ins[0]
		info.Shape = Shape{Tag: DimsUnspecified}
		return []TensorInfo{info}, nil
	}
	indexDepth := int(indices.Dims[indices.Rank()-1])
	if indexDepth > params.Rank() {
		return nil, fmt.Errorf("%w: %s gather_nd index depth %d exceeds params rank %d", ErrLayerValidation, l.Name, indexDepth, params.Rank())
	}
	out := make([]uint32, 0, indices.Rank()-1+params.Rank()-indexDepth)
	out = append(out, indices.Dims[:indices.Rank()-1]...)
	out = append(out, params.Dims[indexDepth:]...)
	info := ins[0]
	info.Shape = Shape{Dims: out, Tag: DimsSpecified}
	return []TensorInfo{info}, nil
}

func inferSlice(l *Layer, ins []TensorInfo) ([]TensorInfo, error) {
	if len(ins) < 1 {
		return nil, fmt.Errorf("%w: %s requires 1 input", ErrInvalidArgument, l.Name)
	}
	p, ok := l.Params.(SliceParams)
	if !ok {
		return nil, fmt.Errorf("%w: %s missing SliceParams", ErrInvalidArgument, l.Name)
	}
	in := ins[0].Shape
	if in.Tag != DimsSpecified {
		info := ins[0]
		info.Shape = Shape{Tag: DimsUnspecified}
		return []TensorInfo{info}, nil
	}
	if len(p.Begin) != in.Rank() || len(p.Size) != in.Rank() {
		return nil, fmt.Errorf("%w: %s slice begin/size rank mismatch for input rank %d", ErrLayerValidation, l.Name, in.Rank())
	}
	out := make([]uint32, in.Rank())
	for i := range out {
		stride := int32(1)
		if i < len(p.Stride) && p.Stride[i] != 0 {
			stride = p.Stride[i]
		}
		size := p.Size[i]
		if size < 0 {
			size = int32(in.Dims[i]) - p.Begin[i]
		}
		if stride < 0 {
			stride = -stride
		}
		count := (size + stride - 1) / stride
		if count < 0 {
			count = 0
		}
		if p.Begin[i] < 0 || p.Begin[i]+size > int32(in.Dims[i])+1 {
			return nil, fmt.Errorf("%w: %s slice axis %d out of bounds", ErrLayerValidation, l.Name, i)
		}
		out[i] = uint32(count)
	}
	info := ins[0]
	info.Shape = Shape{Dims: out, Tag: DimsSpecified}
	return []TensorInfo{info}, nil
}

func inferReduce(l *Layer, ins []TensorInfo) ([]TensorInfo, error) {
	if len(ins) < 1 {
		return nil, fmt.Errorf("%w: %s requires 1 input", ErrInvalidArgument, l.Name)
	}
	p, ok := l.Params.(ReduceParams)
	if !ok {
		return nil, fmt.Errorf("%w: %s missing ReduceParams", ErrInvalidArgument, l.Name)
	}
	in := ins[0].Shape
	if in.Tag != DimsSpecified {
		info := ins[0]
		info.Shape = Shape{Tag: DimsUnspecified}
		return []TensorInfo{info}, nil
	}
	reduced := make(map[int]bool, len(p.Axes))
	for _, a := range p.Axes {
		axis := int(a)
		if axis < 0 {
			axis += in.Rank()
		}
		if axis < 0 || axis >= in.Rank() {
			return nil, fmt.Errorf("%w: %s reduce axis %d out of range for rank %d", ErrLayerValidation, l.Name, a, in.Rank())
		}
		reduced[axis] = true
	}
	var out []uint32
	for i, d := range in.Dims {
		if reduced[i] {
			if p.KeepDims {
				out = append(out, 1)
			}
			continue
		}
		out = append(out, d)
	}
	info := ins[0]
	if len(out) == 0 && !p.KeepDims {
		info.Shape = ScalarShape
	} else {
		info.Shape = Shape{Dims: out, Tag: DimsSpecified}
	}
	return []TensorInfo{info}, nil
}

func inferBroadcastTo(l *Layer, ins []TensorInfo) ([]TensorInfo, error) {
	if len(ins) < 1 {
		return nil, fmt.Errorf("%w: %s requires 1 input", ErrInvalidArgument, l.Name)
	}
	p, ok := l.Params.(BroadcastToParams)
	if !ok {
		return nil, fmt.Errorf("%w: %s missing BroadcastToParams", ErrInvalidArgument, l.Name)
	}
	target := NewShape(p.TargetShape...)
	if ins[0].Shape.Tag == DimsSpecified {
		if _, err := broadcastShapes(ins[0].Shape, target); err != nil {
			return nil, err
		}
	}
	out := ins[0]
	out.Shape = target
	return []TensorInfo{out}, nil
}

func inferBatchMatMul(l *Layer, ins []TensorInfo) ([]TensorInfo, error) {
	if len(ins) < 2 {
		return nil, fmt.Errorf("%w: %s requires 2 inputs", ErrInvalidArgument, l.Name)
	}
	p, ok := l.Params.(BatchMatMulParams)
	if !ok {
		return nil, fmt.Errorf("%w: %s missing BatchMatMulParams", ErrInvalidArgument, l.Name)
	}
	a, b := ins[0].Shape, ins[1].Shape
	if a.Rank() < 2 || b.Rank() < 2 {
		return nil, fmt.Errorf("%w: %s requires rank >= 2 operands, got %d and %d", ErrLayerValidation, l.Name, a.Rank(), b.Rank())
	}
	am, ak := a.Dims[a.Rank()-2], a.Dims[a.Rank()-1]
	bk, bn := b.Dims[b.Rank()-2], b.Dims[b.Rank()-1]
	if p.TransposeA {
		am, ak = ak, am
	}
	if p.TransposeB {
		bk, bn = bn, bk
	}
	if ak != bk {
		return nil, fmt.Errorf("%w: %s inner dims mismatch: %d vs %d", ErrLayerValidation, l.Name, ak, bk)
	}
	batch, err := broadcastShapes(Shape{Dims: a.Dims[:a.Rank()-2], Tag: DimsSpecified}, Shape{Dims: b.Dims[:b.Rank()-2], Tag: DimsSpecified})
	if err != nil {
		return nil, err
	}
	out := append(append([]uint32{}, batch.Dims...), am, bn)
	info := ins[0]
	info.Shape = Shape{Dims: out, Tag: DimsSpecified}
	return []TensorInfo{info}, nil
}
