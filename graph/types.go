package graph

import "errors"

// Sentinel errors for graph construction and structural edits.
//
// These are grouped here rather than in a separate errors.go because
// every one of them originates from a check inside graph.go/add_*.go and
// is small enough to keep next to the other closed enumerations.
var (
	// ErrInvalidArgument is wrapped by construction-time rejections (bad
	// arity, mismatched parameter lengths, ...). A missing required
	// constant is reported with ErrNullPointer instead, and a zero stride
	// is not rejected at construction: InferTensorInfos reports it with
	// ErrLayerValidation.
	ErrInvalidArgument = errors.New("graph: invalid argument")

	// ErrLayerValidation is wrapped by shape/consistency failures that are
	// only detectable once a Layer's neighbourhood is known (concat view
	// overlap, validate-mode shape mismatch, ...).
	ErrLayerValidation = errors.New("graph: layer validation failed")

	// ErrNullPointer is wrapped when a layer kind that declares required
	// constant inputs is missing one.
	ErrNullPointer = errors.New("graph: required constant missing")

	// ErrSlotBound is returned by Connect when the consumer slot already
	// has a producer.
	ErrSlotBound = errors.New("graph: input slot already bound")

	// ErrWouldCycle is returned by Connect when the new edge would close a
	// cycle.
	ErrWouldCycle = errors.New("graph: connection would introduce a cycle")

	// ErrHasConsumers is returned by Erase when the layer still has a
	// connected consumer.
	ErrHasConsumers = errors.New("graph: layer has consumers")

	// ErrUnknownLayer is returned when a LayerRef does not resolve.
	ErrUnknownLayer = errors.New("graph: unknown layer")

	// ErrSignatureMismatch is returned by SubstituteSubgraph when the
	// replacement's external signature does not match the original's.
	ErrSignatureMismatch = errors.New("graph: substitution signature mismatch")
)

// DataType is the closed element-type enumeration every TensorInfo
// carries.
type DataType uint8

// The closed set of element types the compiler understands. BFloat16 is
// part of the enumeration (infrastructure kept present for it)
// but optimize.Run rejects ReduceFloat32ToBfloat16 at the entry point, so
// it is never produced by inference.
const (
	DTypeUnknown DataType = iota
	DTypeFloat32
	DTypeFloat16
	DTypeBFloat16
	DTypeQAsymmU8
	DTypeQAsymmS8
	DTypeQSymmS8
	DTypeQSymmS16
	DTypeSigned32
	DTypeSigned64
	DTypeBoolean
)

// String renders a DataType for diagnostics.
func (d DataType) String() string {
	switch d {
	case DTypeFloat32:
		return "float32"
	case DTypeFloat16:
		return "float16"
	case DTypeBFloat16:
		return "bfloat16"
	case DTypeQAsymmU8:
		return "qasymm_u8"
	case DTypeQAsymmS8:
		return "qasymm_s8"
	case DTypeQSymmS8:
		return "qsymm_s8"
	case DTypeQSymmS16:
		return "qsymm_s16"
	case DTypeSigned32:
		return "signed32"
	case DTypeSigned64:
		return "signed64"
	case DTypeBoolean:
		return "boolean"
	default:
		return "unknown"
	}
}

// ByteWidth returns the storage size in bytes of one element of this
// type, or 0 for DTypeUnknown. Used by passes that rewrite a constant
// tensor's raw bytes directly (e.g. folding a permute into the constant
// it feeds).
func (d DataType) ByteWidth() int {
	switch d {
	case DTypeFloat32, DTypeSigned32:
		return 4
	case DTypeFloat16, DTypeBFloat16, DTypeQSymmS16:
		return 2
	case DTypeSigned64:
		return 8
	case DTypeQAsymmU8, DTypeQAsymmS8, DTypeQSymmS8, DTypeBoolean:
		return 1
	default:
		return 0
	}
}

// IsQuantized reports whether d carries a scale/zero-point pair.
func (d DataType) IsQuantized() bool {
	switch d {
	case DTypeQAsymmU8, DTypeQAsymmS8, DTypeQSymmS8, DTypeQSymmS16:
		return true
	default:
		return false
	}
}

// Dimensionality distinguishes a fully-specified shape from one that is
// not yet known or that denotes a scalar.
type Dimensionality uint8

const (
	// DimsUnspecified marks a TensorInfo whose Shape has not been inferred
	// yet.
	DimsUnspecified Dimensionality = iota
	// DimsSpecified marks a TensorInfo with a concrete, non-scalar Shape.
	DimsSpecified
	// DimsScalar marks a zero-rank tensor.
	DimsScalar
)

// Shape is an ordered sequence of unsigned dimensions plus the
// dimensionality tag that distinguishes specified/unspecified/scalar.
type Shape struct {
	Dims []uint32
	Tag  Dimensionality
}

// Rank returns the number of dimensions, 0 for scalar or unspecified.
func (s Shape) Rank() int {
	if s.Tag != DimsSpecified {
		return 0
	}
	return len(s.Dims)
}

// NumElements returns the product of all dimensions (1 for scalar).
func (s Shape) NumElements() uint64 {
	if s.Tag == DimsScalar {
		return 1
	}
	var n uint64 = 1
	for _, d := range s.Dims {
		n *= uint64(d)
	}
	return n
}

// Equal reports structural equality, including the dimensionality tag.
func (s Shape) Equal(o Shape) bool {
	if s.Tag != o.Tag {
		return false
	}
	if len(s.Dims) != len(o.Dims) {
		return false
	}
	for i := range s.Dims {
		if s.Dims[i] != o.Dims[i] {
			return false
		}
	}
	return true
}

// NewShape builds a DimsSpecified Shape from literal dimensions.
func NewShape(dims ...uint32) Shape {
	return Shape{Dims: append([]uint32(nil), dims...), Tag: DimsSpecified}
}

// ScalarShape is the shared zero-rank Shape value.
var ScalarShape = Shape{Tag: DimsScalar}

// TensorInfo is shape + element data type + optional per-tensor
// quantization parameters + a constness flag, carried by every
// OutputSlot.
type TensorInfo struct {
	Shape      Shape
	DType      DataType
	QScale     float32
	QOffset    int32
	HasQuant   bool
	IsConstant bool
}

// TypeSpaceEqual reports whether two TensorInfos have identical data type
// and (where applicable) identical quantization parameters. Shape is not
// part of the type-space comparison.
func (t TensorInfo) TypeSpaceEqual(o TensorInfo) bool {
	if t.DType != o.DType {
		return false
	}
	if !t.DType.IsQuantized() {
		return true
	}
	return t.HasQuant == o.HasQuant && t.QScale == o.QScale && t.QOffset == o.QOffset
}

// Equal reports full structural equality: shape, type space, constness.
func (t TensorInfo) Equal(o TensorInfo) bool {
	return t.Shape.Equal(o.Shape) && t.TypeSpaceEqual(o) && t.IsConstant == o.IsConstant
}
