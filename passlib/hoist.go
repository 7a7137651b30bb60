// File: hoist.go
// Role: migrate a Permute/Transpose up through a shape-agnostic producer
// instead of leaving it stranded downstream, duplicating it onto every
// input of a multi-input producer along the way.
package passlib

import (
	"github.com/katalvlaran/graphc/graph"
	"github.com/katalvlaran/graphc/pass"
)

// isShapeAgnosticKind reports whether k's operation is indifferent to
// which physical axis carries which logical dimension — elementwise
// arithmetic, activation, quantization, and the MemCopy/Import/Debug
// utility kinds all compute the same result regardless of axis order, so
// a permutation sitting downstream of one can instead be applied to
// every one of its inputs. Kinds whose semantics depend on axis identity
// (convolution, pooling, concat, reshape, reduce-along-an-axis, softmax)
// are deliberately excluded.
func isShapeAgnosticKind(k graph.Kind) bool {
	switch k {
	case graph.KindAdd, graph.KindSub, graph.KindMul, graph.KindDiv,
		graph.KindMaximum, graph.KindMinimum, graph.KindPow,
		graph.KindLogicalBinary, graph.KindComparison,
		graph.KindFloor, graph.KindAbs, graph.KindRsqrt, graph.KindNeg, graph.KindExp,
		graph.KindActivation,
		graph.KindQuantize, graph.KindDequantize, graph.KindFakeQuantization, graph.KindCast,
		graph.KindMemCopy, graph.KindImport, graph.KindDebug:
		return true
	default:
		return false
	}
}

// HoistPermuteAboveShapeAgnosticLayer recognizes a Permute/Transpose
// whose sole producer is a shape-agnostic layer with no other consumer,
// and moves the permutation to the producer's own inputs instead —
// multiplying it once per input when the producer takes more than one.
// Repeated application walks a permute all the way up to the Inputs (or
// Constants, which FuseConstantPermute folds directly) it descends from,
// each hop re-deriving the producer's output shape so later passes see a
// consistent graph.
type HoistPermuteAboveShapeAgnosticLayer struct{}

func (HoistPermuteAboveShapeAgnosticLayer) Name() string {
	return "hoist-permute-above-shape-agnostic-layer"
}

func (HoistPermuteAboveShapeAgnosticLayer) Apply(g *graph.Graph, cur graph.LayerRef) (pass.Result, error) {
	l := g.Layer(cur)
	if l == nil || (l.Kind != graph.KindPermute && l.Kind != graph.KindTranspose) {
		return pass.NoChange, nil
	}
	p, ok := l.Params.(graph.PermuteParams)
	if !ok {
		return pass.NoChange, nil
	}

	producer, prodSlot := l.Inputs[0].Producer()
	pl := g.Layer(producer)
	if pl == nil || !isShapeAgnosticKind(pl.Kind) {
		return pass.NoChange, nil
	}
	if len(pl.Outputs[prodSlot].Consumers()) != 1 {
		// Another consumer still needs pl's output in its current layout;
		// hoisting would change what it sees.
		return pass.NoChange, nil
	}
	for i := range pl.Inputs {
		inProducer, inSlot := pl.Inputs[i].Producer()
		if g.Layer(inProducer).Outputs[inSlot].Info.Shape.Rank() != len(p.Perm) {
			// A lower-rank input (still implicitly broadcasting) isn't safe
			// to permute with this vector; wait for InsertBroadcastBeforeBinary
			// to make the broadcast explicit first.
			return pass.NoChange, nil
		}
	}

	newPerms := make([]graph.LayerRef, len(pl.Inputs))
	for i := range pl.Inputs {
		inProducer, inSlot := pl.Inputs[i].Producer()
		var ref graph.LayerRef
		var err error
		if l.Kind == graph.KindTranspose {
			ref, err = g.AddTranspose("", inProducer, inSlot, graph.PermuteParams{Perm: p.Perm})
		} else {
			ref, err = g.AddPermute("", inProducer, inSlot, graph.PermuteParams{Perm: p.Perm})
		}
		if err != nil {
			return pass.NoChange, err
		}
		newPerms[i] = ref
	}
	if err := g.InferTensorInfos(graph.InferAndValidate); err != nil {
		return pass.NoChange, err
	}

	for i, np := range newPerms {
		if err := g.Rebind(producer, i, np, 0); err != nil {
			return pass.NoChange, err
		}
	}
	if err := g.InferTensorInfos(graph.InferAndValidate); err != nil {
		return pass.NoChange, err
	}

	// pl's output now already carries cur's permutation, so cur itself is
	// redundant: its consumers move straight onto pl.
	return bypassAndErase(g, cur, 0, producer, prodSlot)
}
