// File: shape_elementwise.go
// Role: shared shape rules for the elementwise-binary, elementwise-unary,
// and same-shape-passthrough families.
package graph

import "fmt"

// broadcastShapes implements "broadcast to the max of each matching
// suffix dimension, scalar-size-1 allowed": shapes are aligned on their
// trailing dimension and, for each aligned pair, either they're equal or
// one of them is 1.
func broadcastShapes(a, b Shape) (Shape, error) {
	if a.Tag == DimsScalar {
		return b, nil
	}
	if b.Tag == DimsScalar {
		return a, nil
	}
	la, lb := len(a.Dims), len(b.Dims)
	n := la
	if lb > n {
		n = lb
	}
	out := make([]uint32, n)
	for i := 0; i < n; i++ {
		var da, db uint32 = 1, 1
		if idx := la - 1 - i; idx >= 0 {
			da = a.Dims[idx]
		}
		if idx := lb - 1 - i; idx >= 0 {
			db = b.Dims[idx]
		}
		switch {
		case da == db:
			out[n-1-i] = da
		case da == 1:
			out[n-1-i] = db
		case db == 1:
			out[n-1-i] = da
		default:
			return Shape{}, fmt.Errorf("%w: broadcast mismatch at suffix dim %d: %d vs %d", ErrLayerValidation, i, da, db)
		}
	}
	return Shape{Dims: out, Tag: DimsSpecified}, nil
}

func inferElementwiseBinary(l *Layer, ins []TensorInfo) ([]TensorInfo, error) {
	if len(ins) < 2 {
		return nil, fmt.Errorf("%w: %s requires 2 inputs", ErrInvalidArgument, l.Name)
	}
	shape, err := broadcastShapes(ins[0].Shape, ins[1].Shape)
	if err != nil {
		return nil, err
	}
	dtype := ins[0].DType
	if dtype == DTypeUnknown {
		dtype = ins[1].DType
	}
	return []TensorInfo{{Shape: shape, DType: dtype, QScale: ins[0].QScale, QOffset: ins[0].QOffset, HasQuant: ins[0].HasQuant}}, nil
}

func inferComparison(l *Layer, ins []TensorInfo) ([]TensorInfo, error) {
	out, err := inferElementwiseBinary(l, ins)
	if err != nil {
		return nil, err
	}
	out[0].DType = DTypeBoolean
	out[0].HasQuant = false
	return out, nil
}

func inferElementwiseUnary(l *Layer, ins []TensorInfo) ([]TensorInfo, error) {
	if len(ins) < 1 {
		return nil, fmt.Errorf("%w: %s requires 1 input", ErrInvalidArgument, l.Name)
	}
	return []TensorInfo{ins[0]}, nil
}

func inferSameShape(l *Layer, ins []TensorInfo) ([]TensorInfo, error) {
	out := make([]TensorInfo, len(l.Outputs))
	for i := range out {
		if i < len(ins) {
			out[i] = ins[i]
		} else if len(ins) > 0 {
			out[i] = ins[0]
		}
	}
	return out, nil
}

func inferSameAsFirst(l *Layer, ins []TensorInfo) ([]TensorInfo, error) {
	if len(ins) == 0 {
		return nil, fmt.Errorf("%w: %s requires at least 1 input", ErrInvalidArgument, l.Name)
	}
	return []TensorInfo{ins[0]}, nil
}

func inferCast(l *Layer, ins []TensorInfo) ([]TensorInfo, error) {
	if len(ins) < 1 {
		return nil, fmt.Errorf("%w: %s requires 1 input", ErrInvalidArgument, l.Name)
	}
	p, _ := l.Params.(QuantizeParams)
	out := ins[0]
	out.DType = p.TargetType
	return []TensorInfo{out}, nil
}

// softmaxDefaultScale/Offset are the fixed output quantization parameters
// a quantized-asymmetric-uint8 Softmax is corrected to: scale 1/256, offset 0.
const softmaxDefaultScale = float32(1.0 / 256.0)
const softmaxDefaultOffset = int32(0)

func inferSoftmax(l *Layer, ins []TensorInfo) ([]TensorInfo, error) {
	out, err := inferElementwiseUnary(l, ins)
	if err != nil {
		return nil, err
	}
	if out[0].DType == DTypeQAsymmU8 {
		if !out[0].HasQuant || out[0].QScale != softmaxDefaultScale || out[0].QOffset != softmaxDefaultOffset {
			out[0].HasQuant = true
			out[0].QScale = softmaxDefaultScale
			out[0].QOffset = softmaxDefaultOffset
		}
	}
	return out, nil
}

func inferShapeOf(l *Layer, ins []TensorInfo) ([]TensorInfo, error) {
	if len(ins) < 1 {
		return nil, fmt.Errorf("%w: %s requires 1 input", ErrInvalidArgument, l.Name)
	}
	return []TensorInfo{{Shape: NewShape(uint32(ins[0].Shape.Rank())), DType: DTypeSigned32}}, nil
}

func inferRankOf(l *Layer, ins []TensorInfo) ([]TensorInfo, error) {
	if len(ins) < 1 {
		return nil, fmt.Errorf("%w: %s requires 1 input", ErrInvalidArgument, l.Name)
	}
	return []TensorInfo{{Shape: ScalarShape, DType: DTypeSigned32}}, nil
}
