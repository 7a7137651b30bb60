// File: broadcast.go
// Role: make implicit broadcasting explicit before an elementwise-binary
// layer, so later passes (and backends that can't broadcast implicitly)
// see a concrete BroadcastTo step instead of differently-shaped inputs.
package passlib

import (
	"github.com/katalvlaran/graphc/graph"
	"github.com/katalvlaran/graphc/pass"
)

func isElementwiseBinary(k graph.Kind) bool {
	switch k {
	case graph.KindAdd, graph.KindSub, graph.KindMul, graph.KindDiv,
		graph.KindMaximum, graph.KindMinimum, graph.KindPow,
		graph.KindLogicalBinary, graph.KindComparison:
		return true
	default:
		return false
	}
}

// InsertBroadcastBeforeBinary inserts an explicit BroadcastTo ahead of
// whichever input of an elementwise-binary layer has a smaller shape
// than the layer's output, so the implicit broadcast rule becomes a
// visible graph step.
type InsertBroadcastBeforeBinary struct{}

func (InsertBroadcastBeforeBinary) Name() string { return "insert-broadcast-before-binary" }

func (InsertBroadcastBeforeBinary) Apply(g *graph.Graph, cur graph.LayerRef) (pass.Result, error) {
	l := g.Layer(cur)
	if l == nil || !isElementwiseBinary(l.Kind) {
		return pass.NoChange, nil
	}
	outShape := l.Outputs[0].Info.Shape

	for slot := 0; slot < 2; slot++ {
		producer, prodSlot := l.Inputs[slot].Producer()
		pl := g.Layer(producer)
		if pl == nil {
			continue
		}
		if pl.Kind == graph.KindBroadcastTo {
			continue // already explicit
		}
		inShape := pl.Outputs[prodSlot].Info.Shape
		if inShape.Equal(outShape) {
			continue
		}

		bcast, err := g.AddBroadcastTo("", producer, prodSlot, graph.BroadcastToParams{TargetShape: outShape.Dims})
		if err != nil {
			return pass.NoChange, err
		}
		if err := g.InferTensorInfos(graph.InferAndValidate); err != nil {
			return pass.NoChange, err
		}
		// Rewire only this one input slot onto the new BroadcastTo, not
		// every consumer of (producer, prodSlot) — other consumers of the
		// same producer slot must keep seeing the unbroadcast tensor.
		if err := g.Rebind(cur, slot, bcast, 0); err != nil {
			return pass.NoChange, err
		}
		return pass.Substituted, nil
	}
	return pass.NoChange, nil
}
