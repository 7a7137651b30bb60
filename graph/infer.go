package graph

import "fmt"

// InferMethod selects how InferTensorInfos treats a Layer's pre-set
// output TensorInfo.
type InferMethod uint8

const (
	// ValidateOnly requires every pre-set OutputSlot.Info to equal the
	// inferred shape; a mismatch fails with ErrLayerValidation.
	ValidateOnly InferMethod = iota
	// InferAndValidate overwrites the stored TensorInfo with the inferred
	// one.
	InferAndValidate
)

// inferFunc computes output TensorInfos from a Layer's current input
// TensorInfos and its Params. It returns one TensorInfo per output slot,
// or an error (wrapping ErrLayerValidation/ErrInvalidArgument) naming the
// constraint violated.
type inferFunc func(l *Layer, ins []TensorInfo) ([]TensorInfo, error)

var inferTable = map[Kind]inferFunc{
	KindAdd: inferElementwiseBinary, KindSub: inferElementwiseBinary,
	KindMul: inferElementwiseBinary, KindDiv: inferElementwiseBinary,
	KindMaximum: inferElementwiseBinary, KindMinimum: inferElementwiseBinary,
	KindPow: inferElementwiseBinary, KindLogicalBinary: inferElementwiseBinary,
	KindComparison: inferComparison,

	KindFloor: inferElementwiseUnary, KindAbs: inferElementwiseUnary,
	KindRsqrt: inferElementwiseUnary, KindNeg: inferElementwiseUnary,
	KindExp: inferElementwiseUnary, KindActivation: inferElementwiseUnary,
	KindSoftmax: inferSoftmax, KindLogSoftmax: inferElementwiseUnary,
	KindPRelu: inferElementwiseBinary,

	KindConvolution2d: inferConvolution2d, KindConvolution3d: inferConvolution3d,
	KindDepthwiseConvolution2d: inferDepthwiseConvolution2d,
	KindFullyConnected:         inferFullyConnected,
	KindPooling2d:              inferPooling2d, KindPooling3d: inferPooling3d,

	KindBatchNormalization:   inferSameShape,
	KindL2Normalization:      inferSameShape,
	KindInstanceNormalization: inferSameShape,

	KindReshape: inferReshape, KindPermute: inferPermute, KindTranspose: inferTranspose,
	KindSpaceToBatchNd: inferSpaceToBatch, KindBatchToSpaceNd: inferBatchToSpace,
	KindSpaceToDepth: inferSpaceToDepth, KindDepthToSpace: inferDepthToSpace,
	KindChannelShuffle: inferSameShape,

	KindConcat: inferConcat, KindSplitter: inferSplitter,

	KindGather: inferGather, KindGatherNd: inferGatherNd, KindSlice: inferSlice,
	KindStridedSlice: inferSlice, KindStack: inferSameShape, KindTile: inferSameShape,
	KindScatterNd: inferSameAsFirst,

	KindShape: inferShapeOf, KindRank: inferRankOf,

	KindMean: inferReduce, KindReduce: inferReduce,

	KindBroadcastTo: inferBroadcastTo,

	KindBatchMatMul: inferBatchMatMul,

	KindLstm: inferLstm, KindQLstm: inferLstm,

	KindQuantize: inferElementwiseUnary, KindDequantize: inferElementwiseUnary,
	KindFakeQuantization: inferElementwiseUnary, KindCast: inferCast,

	KindResize: inferResize, KindPad: inferPad,
	KindDetectionPostProcess: inferDetectionPostProcess,

	KindMemCopy: inferSameShape, KindImport: inferSameShape, KindDebug: inferSameShape,
}

// resolveInputs gathers the current TensorInfo of every connected input
// slot of l.
func resolveInputs(g *Graph, l *Layer) []TensorInfo {
	ins := make([]TensorInfo, len(l.Inputs))
	for i, in := range l.Inputs {
		if !in.bound {
			continue
		}
		pl := g.Layer(in.producer)
		ins[i] = pl.Outputs[in.prodSlot].Info
	}
	return ins
}

// InferTensorInfos runs shape/dtype propagation layer by layer in
// topological order. In ValidateOnly mode a mismatch between the
// pre-set output and the inferred one fails with ErrLayerValidation; in
// InferAndValidate mode the inferred shape overwrites the stored one.
func (g *Graph) InferTensorInfos(method InferMethod) error {
	for _, ref := range g.TopologicalOrder() {
		l := g.Layer(ref)
		if l == nil || l.Kind == KindInput || l.Kind == KindConstant || l.Kind == KindOutput {
			continue
		}
		fn, ok := inferTable[l.Kind]
		if !ok {
			continue // no declared shape-inference function: pass-through
		}
		ins := resolveInputs(g, l)
		outs, err := fn(l, ins)
		if err != nil {
			return err
		}
		if len(outs) != len(l.Outputs) {
			return fmt.Errorf("%w: %s produced %d outputs, want %d", ErrLayerValidation, l.Name, len(outs), len(l.Outputs))
		}
		for i, info := range outs {
			cur := l.Outputs[i].Info
			switch method {
			case ValidateOnly:
				if cur.Shape.Tag != DimsUnspecified && !cur.Equal(info) {
					return fmt.Errorf("%w: %s output %d: pre-set %v != inferred %v", ErrLayerValidation, l.Name, i, cur.Shape, info.Shape)
				}
				l.Outputs[i].Info = info
			case InferAndValidate:
				l.Outputs[i].Info = info
			}
		}
	}
	return nil
}
