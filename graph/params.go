package graph

// This file declares the kind-specific parameter payloads referenced by
// kind.go's Kind enumeration and built by the Add* constructors in
// add_*.go. Each implements Params via the unexported isLayerParams
// marker method so the compiler enforces that only these types (or a
// caller's own StandIn/PreCompiled payload) satisfy the interface.

type noParams struct{}

func (noParams) isLayerParams() {}

// PadFB is a symmetric (front, back) padding pair for one axis.
type PadFB struct{ Low, High uint32 }

// Conv2DParams parametrizes Convolution2d and DepthwiseConvolution2d.
type Conv2DParams struct {
	StrideH, StrideW     uint32
	DilationH, DilationW uint32
	PadTop, PadBottom     uint32
	PadLeft, PadRight     uint32
	KernelH, KernelW      uint32
	OutChannels           uint32 // ignored for DepthwiseConvolution2d; see DepthMultiplier
	BiasEnabled           bool
	DepthMultiplier       uint32 // DepthwiseConvolution2d only
	DataLayoutNHWC        bool
}

func (Conv2DParams) isLayerParams() {}

// Conv3DParams parametrizes Convolution3d.
type Conv3DParams struct {
	StrideD, StrideH, StrideW       uint32
	DilationD, DilationH, DilationW uint32
	PadFront, PadBack               PadFB
	PadTop, PadBottom                PadFB
	PadLeft, PadRight                PadFB
	KernelD, KernelH, KernelW        uint32
	OutChannels                      uint32
	BiasEnabled                      bool
}

func (Conv3DParams) isLayerParams() {}

// Pooling2DParams parametrizes Pooling2d/Pooling3d (3d adds a depth
// axis via the Depth fields; unused for 2d).
type Pooling2DParams struct {
	KernelD             uint32 // Pooling3d only
	KernelH, KernelW    uint32
	StrideD             uint32 // Pooling3d only
	StrideH, StrideW    uint32
	PadTop, PadBottom   uint32
	PadLeft, PadRight   uint32
	PadFront, PadBack   uint32 // Pooling3d only
	Global              bool // stride==0 selects the "global pooling" branch
	Average             bool // true = average pooling, false = max pooling
}

func (Pooling2DParams) isLayerParams() {}

// FullyConnectedParams parametrizes FullyConnected.
type FullyConnectedParams struct {
	OutputUnits     uint32
	BiasEnabled     bool
	TransposeWeight bool
}

func (FullyConnectedParams) isLayerParams() {}

// ActivationKind selects the nonlinearity an Activation layer applies.
type ActivationKind uint8

const (
	ActRelu ActivationKind = iota
	ActSigmoid
	ActTanh
	ActLinear
	ActLeakyRelu
	ActElu
)

// ActivationParams parametrizes Activation.
type ActivationParams struct {
	Func  ActivationKind
	Alpha float32
}

func (ActivationParams) isLayerParams() {}

// AxisParams is shared by every single-axis op (Softmax, LogSoftmax,
// Concat's default axis, Gather, Mean/Reduce when Axes has one entry).
type AxisParams struct{ Axis int32 }

func (AxisParams) isLayerParams() {}

// ReshapeParams parametrizes Reshape.
type ReshapeParams struct{ TargetShape []uint32 }

func (ReshapeParams) isLayerParams() {}

// PermuteParams parametrizes Permute and Transpose (Transpose is the
// 2-axis-swap special case of the same permutation-vector rule).
type PermuteParams struct{ Perm []uint32 }

func (PermuteParams) isLayerParams() {}

// SpaceBatchParams parametrizes SpaceToBatchNd/BatchToSpaceNd.
type SpaceBatchParams struct {
	BlockShape []uint32
	Crops      []PadFB // BatchToSpaceNd only
	Padding    []PadFB // SpaceToBatchNd only
}

func (SpaceBatchParams) isLayerParams() {}

// DepthSpaceParams parametrizes SpaceToDepth/DepthToSpace.
type DepthSpaceParams struct{ BlockSize uint32 }

func (DepthSpaceParams) isLayerParams() {}

// ChannelShuffleParams parametrizes ChannelShuffle.
type ChannelShuffleParams struct {
	Groups uint32
	Axis   uint32
}

func (ChannelShuffleParams) isLayerParams() {}

// ViewDescriptor is one input/output view for Concat/Splitter: its
// origin (offset per axis) and size, within the bounding box.
type ViewDescriptor struct {
	Origin []uint32
	Size   []uint32
}

// ConcatParams parametrizes Concat.
type ConcatParams struct {
	Axis  int32
	Views []ViewDescriptor // one per input, must tile the bounding box
}

func (ConcatParams) isLayerParams() {}

// SplitterParams parametrizes Splitter.
type SplitterParams struct {
	Axis  int32
	Views []ViewDescriptor // one per output
}

func (SplitterParams) isLayerParams() {}

// SliceParams parametrizes Slice/StridedSlice.
type SliceParams struct {
	Begin, Size, Stride []int32
}

func (SliceParams) isLayerParams() {}

// ReduceOp selects the reduction Reduce applies; Mean is its own kind.
type ReduceOp uint8

const (
	ReduceSum ReduceOp = iota
	ReduceMax
	ReduceMin
	ReduceProd
)

// ReduceParams parametrizes Mean/Reduce.
type ReduceParams struct {
	Axes    []int32
	KeepDims bool
	Op      ReduceOp // unused by Mean
}

func (ReduceParams) isLayerParams() {}

// BroadcastToParams parametrizes BroadcastTo.
type BroadcastToParams struct{ TargetShape []uint32 }

func (BroadcastToParams) isLayerParams() {}

// BatchMatMulParams parametrizes BatchMatMul.
type BatchMatMulParams struct{ TransposeA, TransposeB bool }

func (BatchMatMulParams) isLayerParams() {}

// LstmCifgParams is the optional "coupled input/forget gate disabled"
// parameter group: present unless CifgEnabled.
type LstmCifgParams struct {
	InputToInputWeights  string // ConstantArena id
	RecurrentToInputW    string
	CellToInputWeights   string // peephole-only, may be empty
	InputGateBias        string
}

// LstmPeepholeParams is the optional peephole parameter group.
type LstmPeepholeParams struct {
	CellToForgetWeights string
	CellToOutputWeights string
}

// LstmProjectionParams is the optional projection parameter group.
type LstmProjectionParams struct {
	ProjectionWeights string
	ProjectionBias    string // optional within the group
}

// LstmLayerNormParams is the optional layer-norm parameter group.
type LstmLayerNormParams struct {
	InputLayerNormWeights  string
	ForgetLayerNormWeights string
	CellLayerNormWeights   string
	OutputLayerNormWeights string
}

// LstmParams parametrizes Lstm/QLstm. The base group is always
// required; CIFG/Peephole/Projection/LayerNorm are independently
// optional and each is checked for completeness at construction time
// (an optional-parameter-groups design: each group is all-or-nothing).
type LstmParams struct {
	NumUnits int

	InputToForgetWeights  string
	InputToCellWeights    string
	InputToOutputWeights  string
	RecurrentToForgetW    string
	RecurrentToCellW      string
	RecurrentToOutputW    string
	ForgetGateBias        string
	CellBias              string
	OutputGateBias        string

	CifgEnabled       bool
	Cifg              *LstmCifgParams
	PeepholeEnabled   bool
	Peephole          *LstmPeepholeParams
	ProjectionEnabled bool
	Projection        *LstmProjectionParams
	LayerNormEnabled  bool
	LayerNorm         *LstmLayerNormParams
}

func (LstmParams) isLayerParams() {}

// QuantizeParams parametrizes Cast/Quantize/Dequantize/FakeQuantization
// when they need an explicit target type (Cast only; the others derive
// theirs from the output TensorInfo already stored on the slot).
type QuantizeParams struct{ TargetType DataType }

func (QuantizeParams) isLayerParams() {}

// ResizeMethod selects Resize's interpolation.
type ResizeMethod uint8

const (
	ResizeBilinear ResizeMethod = iota
	ResizeNearestNeighbor
)

// ResizeParams parametrizes Resize.
type ResizeParams struct {
	TargetH, TargetW uint32
	Method           ResizeMethod
	AlignCorners     bool
}

func (ResizeParams) isLayerParams() {}

// PadParams parametrizes Pad.
type PadParams struct {
	Padding  []PadFB
	PadValue float32
}

func (PadParams) isLayerParams() {}

// DetectionPostProcessParams parametrizes DetectionPostProcess.
type DetectionPostProcessParams struct {
	MaxDetections         uint32
	MaxClassesPerDetection uint32
	NmsScoreThreshold      float32
	NmsIoUThreshold        float32
	NumClasses             uint32
	Anchors                string // ConstantArena id, required (NullPointer if missing)
}

func (DetectionPostProcessParams) isLayerParams() {}

// ConstantParams parametrizes Constant layers (the tensor itself lives
// in the Graph's ConstantArena; constID on Layer names it).
type ConstantParams struct{}

func (ConstantParams) isLayerParams() {}

// InputParams parametrizes Input (its binding id, for the upstream
// builder's caller to correlate with a real-world input tensor).
type InputParams struct{ BindingID int }

func (InputParams) isLayerParams() {}

// OutputParams parametrizes Output.
type OutputParams struct{ BindingID int }

func (OutputParams) isLayerParams() {}

// MemCopyParams parametrizes MemCopy (spliced by the compatibility-layer
// inserter) and carries no configuration of its own.
type MemCopyParams = noParams

// ImportParams parametrizes Import (spliced by the compatibility-layer
// inserter).
type ImportParams = noParams

// DebugParams parametrizes Debug taps.
type DebugParams struct {
	ToFile bool
	Path   string
}

func (DebugParams) isLayerParams() {}

// PreCompiledParams and StandInParams carry an opaque backend-defined
// payload the core never interprets.
type PreCompiledParams struct {
	NumInputs, NumOutputs int
	Opaque                any
}

func (PreCompiledParams) isLayerParams() {}

// StandInParams stands in for an externally-defined kind the core does
// not otherwise know about.
type StandInParams struct {
	NumInputs, NumOutputs int
	ExternalName          string
}

func (StandInParams) isLayerParams() {}

// FusedParams carries the result of an internal fusion pass.
type FusedParams struct {
	NumInputs, NumOutputs int
	Origin                []Kind
}

func (FusedParams) isLayerParams() {}
