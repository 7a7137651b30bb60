// File: spacedepth.go
// Role: recognizes the canonical depth-to-space-via-batch-to-space
// lowering some graph builders emit when a target lacks a native
// depth-to-space op, and folds it back into one DepthToSpace layer.
//
// The lowering, for an NHWC input [N,H,W,C] with C = b*b*C':
//
//  1. Reshape  [N,H,W,C]       -> [N,H,W,b,b,C']   (split channels)
//  2. Permute  perm=[3,4,0,1,2,5]                   (move the b,b pair
//     to the front, ahead of the batch dimension)
//  3. Reshape  [b,b,N,H,W,C']  -> [b*b*N,H,W,C']    (merge into batch)
//  4. BatchToSpaceNd blockShape=[b,b], crops=0       -> [N,H*b,W*b,C']
//
// Step 4 expects its batch axis laid out block-shape-major ahead of the
// original batch (TensorFlow's own batch_to_space_nd convention), which
// is exactly what step 2's permute produces; composing all four
// reproduces depth-to-space's defining equation element-for-element, so
// the whole chain can be replaced by a single DepthToSpace(blockSize=b)
// reading straight from the original [N,H,W,C] producer. Recognizing
// only the Permute and BatchToSpaceNd pair in isolation (without pinning
// down the flanking reshapes) is not sound: a bare axis permutation can
// never perform the channel/batch axis-splitting these reshapes do, so
// the full four-node shape is the minimum unit this fusion can safely
// match — this is the "permute-plus-batch-to-space" and
// "transpose-plus-batch-to-space" rule from spec.md's pass list.
package passlib

import (
	"github.com/katalvlaran/graphc/graph"
	"github.com/katalvlaran/graphc/pass"
)

// RecognizePermuteBatchToSpaceAsDepthToSpace matches the Permute variant
// of the lowering.
type RecognizePermuteBatchToSpaceAsDepthToSpace struct{}

func (RecognizePermuteBatchToSpaceAsDepthToSpace) Name() string {
	return "recognize-permute-batch-to-space-as-depth-to-space"
}

func (RecognizePermuteBatchToSpaceAsDepthToSpace) Apply(g *graph.Graph, cur graph.LayerRef) (pass.Result, error) {
	return recognizeBatchToSpaceAsDepthToSpace(g, cur, graph.KindPermute)
}

// RecognizeTransposeBatchToSpaceAsDepthToSpace is the Transpose analogue.
type RecognizeTransposeBatchToSpaceAsDepthToSpace struct{}

func (RecognizeTransposeBatchToSpaceAsDepthToSpace) Name() string {
	return "recognize-transpose-batch-to-space-as-depth-to-space"
}

func (RecognizeTransposeBatchToSpaceAsDepthToSpace) Apply(g *graph.Graph, cur graph.LayerRef) (pass.Result, error) {
	return recognizeBatchToSpaceAsDepthToSpace(g, cur, graph.KindTranspose)
}

// recognizeBatchToSpaceAsDepthToSpace runs the match starting from the
// leading Reshape (cur), since that is the node whose own input shape
// names the N,H,W,C this fusion needs to verify against.
func recognizeBatchToSpaceAsDepthToSpace(g *graph.Graph, cur graph.LayerRef, midKind graph.Kind) (pass.Result, error) {
	r1 := g.Layer(cur)
	if r1 == nil || r1.Kind != graph.KindReshape {
		return pass.NoChange, nil
	}
	origProducer, origSlot := r1.Inputs[0].Producer()
	origInfo := g.Layer(origProducer).Outputs[origSlot].Info
	if origInfo.Shape.Tag != graph.DimsSpecified || origInfo.Shape.Rank() != 4 {
		return pass.NoChange, nil
	}
	n, h, w, c := origInfo.Shape.Dims[0], origInfo.Shape.Dims[1], origInfo.Shape.Dims[2], origInfo.Shape.Dims[3]

	midRef, ok := soleConsumerOfKind(g, r1, 0, midKind)
	if !ok {
		return pass.NoChange, nil
	}
	mid := g.Layer(midRef)
	permParams, ok := mid.Params.(graph.PermuteParams)
	if !ok || len(permParams.Perm) != 6 {
		return pass.NoChange, nil
	}
	for i, want := range []uint32{3, 4, 0, 1, 2, 5} {
		if permParams.Perm[i] != want {
			return pass.NoChange, nil
		}
	}

	r2Ref, ok := soleConsumerOfKind(g, mid, 0, graph.KindReshape)
	if !ok {
		return pass.NoChange, nil
	}
	r2 := g.Layer(r2Ref)

	b2sRef, ok := soleConsumerOfKind(g, r2, 0, graph.KindBatchToSpaceNd)
	if !ok {
		return pass.NoChange, nil
	}
	b2s := g.Layer(b2sRef)
	sbp, ok := b2s.Params.(graph.SpaceBatchParams)
	if !ok || len(sbp.BlockShape) != 2 || sbp.BlockShape[0] == 0 || sbp.BlockShape[0] != sbp.BlockShape[1] {
		return pass.NoChange, nil
	}
	for _, cr := range sbp.Crops {
		if cr.Low != 0 || cr.High != 0 {
			return pass.NoChange, nil
		}
	}
	b := sbp.BlockShape[0]
	if c%(b*b) != 0 {
		return pass.NoChange, nil
	}
	cPrime := c / (b * b)

	// Verify the two reshapes actually carry the exact split/merge this
	// fusion depends on; anything else (e.g. a reshape serving some
	// other purpose that merely happens to sit in this position) must
	// not be folded.
	wantR1 := graph.NewShape(n, h, w, b, b, cPrime)
	if !r1.Outputs[0].Info.Shape.Equal(wantR1) {
		return pass.NoChange, nil
	}
	wantR2 := graph.NewShape(b*b*n, h, w, cPrime)
	if !r2.Outputs[0].Info.Shape.Equal(wantR2) {
		return pass.NoChange, nil
	}

	fusedRef, err := g.AddDepthToSpace(r1.Name+"+depth_to_space", origProducer, origSlot, graph.DepthSpaceParams{BlockSize: b})
	if err != nil {
		return pass.NoChange, err
	}
	if _, err := bypassAndErase(g, b2sRef, 0, fusedRef, 0); err != nil {
		return pass.NoChange, err
	}
	if err := g.Erase(r2Ref); err != nil {
		return pass.NoChange, err
	}
	if err := g.Erase(midRef); err != nil {
		return pass.NoChange, err
	}
	if err := g.Erase(cur); err != nil {
		return pass.NoChange, err
	}
	return pass.Substituted, nil
}

// soleConsumerOfKind returns l.Outputs[slot]'s one consumer, provided it
// is exactly one and of kind want.
func soleConsumerOfKind(g *graph.Graph, l *graph.Layer, slot int, want graph.Kind) (graph.LayerRef, bool) {
	consumers := l.Outputs[slot].Consumers()
	if len(consumers) != 1 {
		return 0, false
	}
	next := g.Layer(consumers[0].Layer)
	if next == nil || next.Kind != want {
		return 0, false
	}
	return consumers[0].Layer, true
}
