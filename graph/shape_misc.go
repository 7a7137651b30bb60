// File: shape_misc.go
// Role: shape rules for Resize, Pad, and DetectionPostProcess.
package graph

import "fmt"

func inferResize(l *Layer, ins []TensorInfo) ([]TensorInfo, error) {
	if len(ins) < 1 {
		return nil, fmt.Errorf("%w: %s requires 1 input", ErrInvalidArgument, l.Name)
	}
	p, ok := l.Params.(ResizeParams)
	if !ok {
		return nil, fmt.Errorf("%w: %s missing ResizeParams", ErrInvalidArgument, l.Name)
	}
	in := ins[0].Shape
	if in.Rank() != 4 {
		return nil, fmt.Errorf("%w: %s expects rank-4 input, got %d", ErrLayerValidation, l.Name, in.Rank())
	}
	info := ins[0]
	info.Shape = NewShape(in.Dims[0], p.TargetH, p.TargetW, in.Dims[3])
	return []TensorInfo{info}, nil
}

func inferPad(l *Layer, ins []TensorInfo) ([]TensorInfo, error) {
	if len(ins) < 1 {
		return nil, fmt.Errorf("%w: %s requires 1 input", ErrInvalidArgument, l.Name)
	}
	p, ok := l.Params.(PadParams)
	if !ok {
		return nil, fmt.Errorf("%w: %s missing PadParams", ErrInvalidArgument, l.Name)
	}
	in := ins[0].Shape
	if in.Tag != DimsSpecified {
		info := ins[0]
		info.Shape = Shape{Tag: DimsUnspecified}
		return []TensorInfo{info}, nil
	}
	if len(p.Padding) != in.Rank() {
		return nil, fmt.Errorf("%w: %s padding entries %d != input rank %d", ErrLayerValidation, l.Name, len(p.Padding), in.Rank())
	}
	out := make([]uint32, in.Rank())
	for i, d := range in.Dims {
		out[i] = d + p.Padding[i].Low + p.Padding[i].High
	}
	info := ins[0]
	info.Shape = Shape{Dims: out, Tag: DimsSpecified}
	return []TensorInfo{info}, nil
}

func inferDetectionPostProcess(l *Layer, ins []TensorInfo) ([]TensorInfo, error) {
	if len(ins) < 2 {
		return nil, fmt.Errorf("%w: %s requires 2 inputs (boxes, scores)", ErrInvalidArgument, l.Name)
	}
	p, ok := l.Params.(DetectionPostProcessParams)
	if !ok {
		return nil, fmt.Errorf("%w: %s missing DetectionPostProcessParams", ErrInvalidArgument, l.Name)
	}
	if p.Anchors == "" {
		return nil, fmt.Errorf("%w: %s requires an anchors constant", ErrNullPointer, l.Name)
	}
	boxes := ins[0].Shape
	batch := uint32(1)
	if boxes.Tag == DimsSpecified && boxes.Rank() > 0 {
		batch = boxes.Dims[0]
	}
	n := p.MaxDetections
	shapes := []Shape{
		NewShape(batch, n, 4), // detection boxes
		NewShape(batch, n),    // detection classes
		NewShape(batch, n),    // detection scores
		NewShape(batch),       // num detections
	}
	out := make([]TensorInfo, len(l.Outputs))
	for i := range out {
		if i < len(shapes) {
			out[i] = TensorInfo{Shape: shapes[i], DType: DTypeFloat32}
		} else {
			out[i] = TensorInfo{Shape: shapes[len(shapes)-1], DType: DTypeFloat32}
		}
	}
	return out, nil
}
