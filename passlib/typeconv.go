// File: typeconv.go
// Role: post-assignment type-conversion cleanup — removing a Cast
// immediately undone by a following Cast back to the original type, the
// pattern backend assignment's float16 repair (component E) tends to
// leave behind once a layer ends up on a backend that didn't need the
// detour after all.
package passlib

import (
	"github.com/katalvlaran/graphc/graph"
	"github.com/katalvlaran/graphc/pass"
)

// RemoveRedundantCastPair drops back-to-back Cast layers whose second
// hop returns to the first hop's input data type (float32→float16→
// float32 or the reverse), reconnecting consumers straight to the
// original producer.
type RemoveRedundantCastPair struct{}

func (RemoveRedundantCastPair) Name() string { return "remove-redundant-cast-pair" }

func (RemoveRedundantCastPair) Apply(g *graph.Graph, cur graph.LayerRef) (pass.Result, error) {
	l := g.Layer(cur)
	if l == nil || l.Kind != graph.KindCast {
		return pass.NoChange, nil
	}
	consumers := l.Outputs[0].Consumers()
	if len(consumers) != 1 {
		return pass.NoChange, nil
	}
	next := g.Layer(consumers[0].Layer)
	if next == nil || next.Kind != graph.KindCast {
		return pass.NoChange, nil
	}

	producer, prodSlot := l.Inputs[0].Producer()
	originalType := g.Layer(producer).Outputs[prodSlot].Info.DType
	if next.Outputs[0].Info.DType != originalType {
		return pass.NoChange, nil
	}

	if err := g.Bypass(next.Ref(), 0, producer, prodSlot); err != nil {
		return pass.NoChange, err
	}
	if err := g.Erase(next.Ref()); err != nil {
		return pass.NoChange, err
	}
	if err := g.Erase(cur); err != nil {
		return pass.NoChange, err
	}
	return pass.Erased, nil
}
