// File: shape_reshape.go
// Role: shared shape rules for the reshape/permute/transpose and
// space/batch/depth-reshuffle families: product-preserving
// rewrites with divisibility checks.
package graph

import "fmt"

func inferReshape(l *Layer, ins []TensorInfo) ([]TensorInfo, error) {
	if len(ins) < 1 {
		return nil, fmt.Errorf("%w: %s requires 1 input", ErrInvalidArgument, l.Name)
	}
	p, ok := l.Params.(ReshapeParams)
	if !ok {
		return nil, fmt.Errorf("%w: %s missing ReshapeParams", ErrInvalidArgument, l.Name)
	}
	target := NewShape(p.TargetShape...)
	if ins[0].Shape.Tag == DimsSpecified && ins[0].Shape.NumElements() != target.NumElements() {
		return nil, fmt.Errorf("%w: %s reshape changes element count: %d != %d", ErrLayerValidation, l.Name, ins[0].Shape.NumElements(), target.NumElements())
	}
	out := ins[0]
	out.Shape = target
	return []TensorInfo{out}, nil
}

func inferPermute(l *Layer, ins []TensorInfo) ([]TensorInfo, error) {
	if len(ins) < 1 {
		return nil, fmt.Errorf("%w: %s requires 1 input", ErrInvalidArgument, l.Name)
	}
	p, ok := l.Params.(PermuteParams)
	if !ok {
		return nil, fmt.Errorf("%w: %s missing PermuteParams", ErrInvalidArgument, l.Name)
	}
	in := ins[0].Shape
	if in.Rank() != len(p.Perm) {
		return nil, fmt.Errorf("%w: %s permutation length %d != input rank %d", ErrLayerValidation, l.Name, len(p.Perm), in.Rank())
	}
	out := make([]uint32, len(p.Perm))
	seen := make([]bool, len(p.Perm))
	for i, axis := range p.Perm {
		if int(axis) < 0 || int(axis) >= len(p.Perm) || seen[axis] {
			return nil, fmt.Errorf("%w: %s axis %d out of range or repeated", ErrLayerValidation, l.Name, axis)
		}
		seen[axis] = true
		out[i] = in.Dims[axis]
	}
	info := ins[0]
	info.Shape = Shape{Dims: out, Tag: DimsSpecified}
	return []TensorInfo{info}, nil
}

func inferTranspose(l *Layer, ins []TensorInfo) ([]TensorInfo, error) {
	return inferPermute(l, ins)
}

func inferSpaceToBatch(l *Layer, ins []TensorInfo) ([]TensorInfo, error) {
	if len(ins) < 1 {
		return nil, fmt.Errorf("%w: %s requires 1 input", ErrInvalidArgument, l.Name)
	}
	p, ok := l.Params.(SpaceBatchParams)
	if !ok {
		return nil, fmt.Errorf("%w: %s missing SpaceBatchParams", ErrInvalidArgument, l.Name)
	}
	in := ins[0].Shape
	nBlocks := len(p.BlockShape)
	if in.Rank() != nBlocks+2 {
		return nil, fmt.Errorf("%w: %s expects rank %d input, got %d", ErrLayerValidation, l.Name, nBlocks+2, in.Rank())
	}
	out := make([]uint32, in.Rank())
	prod := uint64(1)
	for _, b := range p.BlockShape {
		prod *= uint64(b)
	}
	out[0] = uint32(uint64(in.Dims[0]) * prod)
	for i, b := range p.BlockShape {
		padded := in.Dims[1+i]
		if i < len(p.Padding) {
			padded += p.Padding[i].Low + p.Padding[i].High
		}
		if b == 0 || padded%b != 0 {
			return nil, fmt.Errorf("%w: %s spatial dim %d not divisible by block %d", ErrLayerValidation, l.Name, i, b)
		}
		out[1+i] = padded / b
	}
	out[in.Rank()-1] = in.Dims[in.Rank()-1]
	info := ins[0]
	info.Shape = Shape{Dims: out, Tag: DimsSpecified}
	return []TensorInfo{info}, nil
}

func inferBatchToSpace(l *Layer, ins []TensorInfo) ([]TensorInfo, error) {
	if len(ins) < 1 {
		return nil, fmt.Errorf("%w: %s requires 1 input", ErrInvalidArgument, l.Name)
	}
	p, ok := l.Params.(SpaceBatchParams)
	if !ok {
		return nil, fmt.Errorf("%w: %s missing SpaceBatchParams", ErrInvalidArgument, l.Name)
	}
	in := ins[0].Shape
	nBlocks := len(p.BlockShape)
	if in.Rank() != nBlocks+2 {
		return nil, fmt.Errorf("%w: %s expects rank %d input, got %d", ErrLayerValidation, l.Name, nBlocks+2, in.Rank())
	}
	prod := uint64(1)
	for _, b := range p.BlockShape {
		prod *= uint64(b)
	}
	if prod == 0 || uint64(in.Dims[0])%prod != 0 {
		return nil, fmt.Errorf("%w: %s batch %d not divisible by block product %d", ErrLayerValidation, l.Name, in.Dims[0], prod)
	}
	out := make([]uint32, in.Rank())
	out[0] = uint32(uint64(in.Dims[0]) / prod)
	for i, b := range p.BlockShape {
		v := in.Dims[1+i] * b
		if i < len(p.Crops) {
			if v < p.Crops[i].Low+p.Crops[i].High {
				return nil, fmt.Errorf("%w: %s crop exceeds expanded spatial dim %d", ErrLayerValidation, l.Name, i)
			}
			v -= p.Crops[i].Low + p.Crops[i].High
		}
		out[1+i] = v
	}
	out[in.Rank()-1] = in.Dims[in.Rank()-1]
	info := ins[0]
	info.Shape = Shape{Dims: out, Tag: DimsSpecified}
	return []TensorInfo{info}, nil
}

func inferSpaceToDepth(l *Layer, ins []TensorInfo) ([]TensorInfo, error) {
	if len(ins) < 1 {
		return nil, fmt.Errorf("%w: %s requires 1 input", ErrInvalidArgument, l.Name)
	}
	p, ok := l.Params.(DepthSpaceParams)
	if !ok {
		return nil, fmt.Errorf("%w: %s missing DepthSpaceParams", ErrInvalidArgument, l.Name)
	}
	in := ins[0].Shape
	if in.Rank() != 4 {
		return nil, fmt.Errorf("%w: %s expects rank-4 input, got %d", ErrLayerValidation, l.Name, in.Rank())
	}
	b := p.BlockSize
	if b == 0 || in.Dims[1]%b != 0 || in.Dims[2]%b != 0 {
		return nil, fmt.Errorf("%w: %s spatial dims not divisible by block size %d", ErrLayerValidation, l.Name, b)
	}
	info := ins[0]
	info.Shape = NewShape(in.Dims[0], in.Dims[1]/b, in.Dims[2]/b, in.Dims[3]*b*b)
	return []TensorInfo{info}, nil
}

func inferDepthToSpace(l *Layer, ins []TensorInfo) ([]TensorInfo, error) {
	if len(ins) < 1 {
		return nil, fmt.Errorf("%w: %s requires 1 input", ErrInvalidArgument, l.Name)
	}
	p, ok := l.Params.(DepthSpaceParams)
	if !ok {
		return nil, fmt.Errorf("%w: %s missing DepthSpaceParams", ErrInvalidArgument, l.Name)
	}
	in := ins[0].Shape
	if in.Rank() != 4 {
		return nil, fmt.Errorf("%w: %s expects rank-4 input, got %d", ErrLayerValidation, l.Name, in.Rank())
	}
	b := p.BlockSize
	sq := b * b
	if b == 0 || sq == 0 || in.Dims[3]%sq != 0 {
		return nil, fmt.Errorf("%w: %s channel dim not divisible by block^2 %d", ErrLayerValidation, l.Name, sq)
	}
	info := ins[0]
	info.Shape = NewShape(in.Dims[0], in.Dims[1]*b, in.Dims[2]*b, in.Dims[3]/sq)
	return []TensorInfo{info}, nil
}
