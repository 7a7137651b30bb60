// File: fold.go
// Role: pad folding into a following convolution/depthwise-convolution.
// Norm folding (batchnorm into a preceding conv) is not yet implemented —
// it requires rewriting the convolution's constant weight/bias tensors
// in the arena, which needs AddXXX-level access to raw float32 storage
// this pass library doesn't yet expose; tracked as a follow-up rather
// than stubbed out silently.
package passlib

import (
	"github.com/katalvlaran/graphc/graph"
	"github.com/katalvlaran/graphc/pass"
)

// FoldPadIntoConv recognizes a Pad feeding a Convolution2d,
// DepthwiseConvolution2d, or Pooling2d, and when the pad only touches
// the spatial (H, W) axes with a zero fill value, folds it into the
// target layer's own padding parameters and drops the Pad layer.
type FoldPadIntoConv struct{}

func (FoldPadIntoConv) Name() string { return "fold-pad-into-conv" }

func (FoldPadIntoConv) Apply(g *graph.Graph, cur graph.LayerRef) (pass.Result, error) {
	l := g.Layer(cur)
	if l == nil {
		return pass.NoChange, nil
	}
	switch l.Kind {
	case graph.KindConvolution2d, graph.KindDepthwiseConvolution2d:
	case graph.KindPooling2d:
	default:
		return pass.NoChange, nil
	}

	producer, prodSlot := l.Inputs[0].Producer()
	padLayer := g.Layer(producer)
	if padLayer == nil || padLayer.Kind != graph.KindPad {
		return pass.NoChange, nil
	}
	padParams, ok := padLayer.Params.(graph.PadParams)
	if !ok || padParams.PadValue != 0 || len(padParams.Padding) != 4 {
		return pass.NoChange, nil
	}
	// NHWC: axis 0 batch, 1 height, 2 width, 3 channel — only H/W may
	// carry padding for this to be foldable into the target's own fields.
	if padParams.Padding[0] != (graph.PadFB{}) || padParams.Padding[3] != (graph.PadFB{}) {
		return pass.NoChange, nil
	}
	// The Pad layer must feed only this layer; folding would change the
	// padded tensor that other consumers still expect.
	if len(padLayer.Outputs[prodSlot].Consumers()) != 1 {
		return pass.NoChange, nil
	}

	switch p := l.Params.(type) {
	case graph.Conv2DParams:
		p.PadTop += padParams.Padding[1].Low
		p.PadBottom += padParams.Padding[1].High
		p.PadLeft += padParams.Padding[2].Low
		p.PadRight += padParams.Padding[2].High
		l.Params = p
	case graph.Pooling2DParams:
		if p.Global {
			return pass.NoChange, nil
		}
		p.PadTop += padParams.Padding[1].Low
		p.PadBottom += padParams.Padding[1].High
		p.PadLeft += padParams.Padding[2].Low
		p.PadRight += padParams.Padding[2].High
		l.Params = p
	default:
		return pass.NoChange, nil
	}

	padProducer, padProdSlot := padLayer.Inputs[0].Producer()
	if err := g.Bypass(producer, prodSlot, padProducer, padProdSlot); err != nil {
		return pass.NoChange, err
	}
	if err := g.Erase(producer); err != nil {
		return pass.NoChange, err
	}
	return pass.Substituted, nil
}
