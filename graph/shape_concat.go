// File: shape_concat.go
// Role: shared shape rules for Concat/Splitter: views must
// tile the output bounding box exactly with no overlap.
package graph

import "fmt"

// viewsOverlap reports whether two views (given as origin/size pairs of
// equal rank) share any coordinate.
func viewsOverlap(a, b ViewDescriptor) bool {
	for i := range a.Origin {
		aLo, aHi := a.Origin[i], a.Origin[i]+a.Size[i]
		bLo, bHi := b.Origin[i], b.Origin[i]+b.Size[i]
		if aHi <= bLo || bHi <= aLo {
			return false
		}
	}
	return true
}

// boundingBox computes the smallest shape enclosing every view's
// origin+size extent.
func boundingBox(views []ViewDescriptor) []uint32 {
	if len(views) == 0 {
		return nil
	}
	box := make([]uint32, len(views[0].Origin))
	for _, v := range views {
		for i := range box {
			if extent := v.Origin[i] + v.Size[i]; extent > box[i] {
				box[i] = extent
			}
		}
	}
	return box
}

func inferConcat(l *Layer, ins []TensorInfo) ([]TensorInfo, error) {
	p, ok := l.Params.(ConcatParams)
	if !ok {
		return nil, fmt.Errorf("%w: %s missing ConcatParams", ErrInvalidArgument, l.Name)
	}
	if len(p.Views) != len(ins) {
		return nil, fmt.Errorf("%w: %s has %d views for %d inputs", ErrInvalidArgument, l.Name, len(p.Views), len(ins))
	}
	for i := 0; i < len(p.Views); i++ {
		for j := i + 1; j < len(p.Views); j++ {
			if viewsOverlap(p.Views[i], p.Views[j]) {
				return nil, fmt.Errorf("%w: %s views %d and %d overlap", ErrLayerValidation, l.Name, i, j)
			}
		}
	}
	box := boundingBox(p.Views)
	dtype := DTypeUnknown
	var qScale float32
	var qOffset int32
	var hasQuant bool
	if len(ins) > 0 {
		dtype = ins[0].DType
		qScale, qOffset, hasQuant = ins[0].QScale, ins[0].QOffset, ins[0].HasQuant
	}
	return []TensorInfo{{Shape: Shape{Dims: box, Tag: DimsSpecified}, DType: dtype, QScale: qScale, QOffset: qOffset, HasQuant: hasQuant}}, nil
}

func inferSplitter(l *Layer, ins []TensorInfo) ([]TensorInfo, error) {
	if len(ins) < 1 {
		return nil, fmt.Errorf("%w: %s requires 1 input", ErrInvalidArgument, l.Name)
	}
	p, ok := l.Params.(SplitterParams)
	if !ok {
		return nil, fmt.Errorf("%w: %s missing SplitterParams", ErrInvalidArgument, l.Name)
	}
	if len(p.Views) != len(l.Outputs) {
		return nil, fmt.Errorf("%w: %s has %d views for %d outputs", ErrInvalidArgument, l.Name, len(p.Views), len(l.Outputs))
	}
	for i := 0; i < len(p.Views); i++ {
		for j := i + 1; j < len(p.Views); j++ {
			if viewsOverlap(p.Views[i], p.Views[j]) {
				return nil, fmt.Errorf("%w: %s views %d and %d overlap", ErrLayerValidation, l.Name, i, j)
			}
		}
	}
	box := boundingBox(p.Views)
	in := ins[0].Shape
	if in.Tag == DimsSpecified {
		for i, dim := range box {
			if i < len(in.Dims) && dim != in.Dims[i] {
				return nil, fmt.Errorf("%w: %s view bounding box %v does not tile input shape %v", ErrLayerValidation, l.Name, box, in.Dims)
			}
		}
	}
	out := make([]TensorInfo, len(p.Views))
	for i, v := range p.Views {
		info := ins[0]
		info.Shape = Shape{Dims: append([]uint32{}, v.Size...), Tag: DimsSpecified}
		out[i] = info
	}
	return out, nil
}
