package graph

// Kind is the closed layer-kind tag. Layer is modeled as a tagged sum
// type over Kind — pattern matching over a closed enumeration rather
// than an abstract-layer-interface hierarchy — where Params holds the
// kind-specific payload and callers switch on Kind, never on a concrete
// Go type assertion hierarchy.
type Kind uint16

const (
	KindUnknown Kind = iota

	// I/O
	KindInput
	KindOutput
	KindConstant

	// Arithmetic / elementwise-binary
	KindAdd
	KindSub
	KindMul
	KindDiv
	KindMaximum
	KindMinimum
	KindPow

	// Elementwise-unary
	KindFloor
	KindAbs
	KindRsqrt
	KindNeg
	KindExp

	// Activation
	KindActivation
	KindSoftmax
	KindLogSoftmax
	KindPRelu

	// Logical / comparison
	KindLogicalBinary
	KindComparison

	// Convolution family
	KindConvolution2d
	KindConvolution3d
	KindDepthwiseConvolution2d
	KindFullyConnected

	// Pooling
	KindPooling2d
	KindPooling3d

	// Normalization family
	KindBatchNormalization
	KindL2Normalization
	KindInstanceNormalization

	// Reshaping
	KindReshape
	KindPermute
	KindTranspose

	// Space/batch/depth
	KindSpaceToBatchNd
	KindBatchToSpaceNd
	KindSpaceToDepth
	KindDepthToSpace
	KindChannelShuffle

	// Concat/Splitter
	KindConcat
	KindSplitter

	// Indexing
	KindGather
	KindGatherNd
	KindSlice
	KindStridedSlice
	KindStack
	KindTile
	KindScatterNd

	// Shape-query
	KindShape
	KindRank

	// Reduction
	KindMean
	KindReduce

	// Broadcast
	KindBroadcastTo

	// Matmul
	KindBatchMatMul

	// LSTM family
	KindLstm
	KindQLstm

	// Quantization
	KindQuantize
	KindDequantize
	KindFakeQuantization
	KindCast

	// Resize / detection / padding
	KindResize
	KindDetectionPostProcess
	KindPad

	// Utility / internal
	KindMemCopy
	KindImport
	KindDebug
	KindPreCompiled
	KindStandIn
	KindFused
)

var kindNames = map[Kind]string{
	KindInput: "Input", KindOutput: "Output", KindConstant: "Constant",
	KindAdd: "Add", KindSub: "Sub", KindMul: "Mul", KindDiv: "Div",
	KindMaximum: "Maximum", KindMinimum: "Minimum", KindPow: "Pow",
	KindFloor: "Floor", KindAbs: "Abs", KindRsqrt: "Rsqrt", KindNeg: "Neg", KindExp: "Exp",
	KindActivation: "Activation", KindSoftmax: "Softmax", KindLogSoftmax: "LogSoftmax", KindPRelu: "PRelu",
	KindLogicalBinary: "LogicalBinary", KindComparison: "Comparison",
	KindConvolution2d: "Convolution2d", KindConvolution3d: "Convolution3d",
	KindDepthwiseConvolution2d: "DepthwiseConvolution2d", KindFullyConnected: "FullyConnected",
	KindPooling2d: "Pooling2d", KindPooling3d: "Pooling3d",
	KindBatchNormalization: "BatchNormalization", KindL2Normalization: "L2Normalization",
	KindInstanceNormalization: "InstanceNormalization",
	KindReshape:               "Reshape", KindPermute: "Permute", KindTranspose: "Transpose",
	KindSpaceToBatchNd: "SpaceToBatchNd", KindBatchToSpaceNd: "BatchToSpaceNd",
	KindSpaceToDepth: "SpaceToDepth", KindDepthToSpace: "DepthToSpace", KindChannelShuffle: "ChannelShuffle",
	KindConcat: "Concat", KindSplitter: "Splitter",
	KindGather: "Gather", KindGatherNd: "GatherNd", KindSlice: "Slice", KindStridedSlice: "StridedSlice",
	KindStack: "Stack", KindTile: "Tile", KindScatterNd: "ScatterNd",
	KindShape: "Shape", KindRank: "Rank",
	KindMean: "Mean", KindReduce: "Reduce",
	KindBroadcastTo: "BroadcastTo",
	KindBatchMatMul: "BatchMatMul",
	KindLstm:        "Lstm", KindQLstm: "QLstm",
	KindQuantize: "Quantize", KindDequantize: "Dequantize", KindFakeQuantization: "FakeQuantization", KindCast: "Cast",
	KindResize: "Resize", KindDetectionPostProcess: "DetectionPostProcess", KindPad: "Pad",
	KindMemCopy: "MemCopy", KindImport: "Import", KindDebug: "Debug",
	KindPreCompiled: "PreCompiled", KindStandIn: "StandIn", KindFused: "Fused",
}

// String renders a Kind for diagnostics; unknown values render as
// "Kind(unknown)" rather than panicking.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Kind(unknown)"
}

// IsUtility reports whether k is one of the internal utility kinds that
// backend assignment is allowed to fall back to reference-cpu for
// (the utility-kind fallback-to-reference-cpu rule).
func (k Kind) IsUtility() bool {
	switch k {
	case KindMemCopy, KindConstant, KindPermute:
		return true
	default:
		return false
	}
}

// fixedArity returns the fixed (numInputs, numOutputs) for kinds whose arity
// does not depend on construction parameters. Variable-arity kinds
// (Concat, Splitter, Stack, Lstm's optional groups) compute their own
// arity in their Add* constructor and are not listed here.
func (k Kind) fixedArity() (ins, outs int, ok bool) {
	switch k {
	case KindInput:
		return 0, 1, true
	case KindOutput:
		return 1, 0, true
	case KindConstant:
		return 0, 1, true
	case KindAdd, KindSub, KindMul, KindDiv, KindMaximum, KindMinimum, KindPow,
		KindLogicalBinary, KindComparison:
		return 2, 1, true
	case KindFloor, KindAbs, KindRsqrt, KindNeg, KindExp, KindActivation, KindSoftmax,
		KindLogSoftmax, KindReshape, KindPermute, KindTranspose, KindSpaceToBatchNd,
		KindBatchToSpaceNd, KindSpaceToDepth, KindDepthToSpace, KindChannelShuffle,
		KindShape, KindRank, KindMean, KindReduce, KindBroadcastTo, KindQuantize,
		KindDequantize, KindFakeQuantization, KindCast, KindMemCopy, KindImport,
		KindPad, KindSlice, KindStridedSlice, KindTile, KindResize:
		return 1, 1, true
	case KindPRelu, KindGather, KindGatherNd, KindScatterNd, KindBatchMatMul:
		return 2, 1, true
	case KindConvolution2d, KindConvolution3d, KindDepthwiseConvolution2d, KindFullyConnected:
		return 1, 1, true // weight/bias tensors are hyperparameters on Params, not connected slots
	case KindPooling2d, KindPooling3d, KindBatchNormalization, KindL2Normalization,
		KindInstanceNormalization:
		return 1, 1, true
	case KindDetectionPostProcess:
		return 3, 4, true
	case KindDebug:
		return 1, 1, true
	case KindPreCompiled, KindStandIn, KindFused:
		return 0, 0, false // variable, set by constructor
	default:
		return 0, 0, false
	}
}
