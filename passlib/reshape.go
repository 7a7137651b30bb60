// File: reshape.go
// Role: Reshape-manipulation passes: squash consecutive reshapes into
// one, and drop a reshape whose target equals its input shape.
package passlib

import (
	"github.com/katalvlaran/graphc/graph"
	"github.com/katalvlaran/graphc/pass"
)

// DropIdentityReshape removes a Reshape whose output shape equals its
// input shape — it moves no elements and has no effect beyond aliasing.
type DropIdentityReshape struct{}

func (DropIdentityReshape) Name() string { return "drop-identity-reshape" }

func (DropIdentityReshape) Apply(g *graph.Graph, cur graph.LayerRef) (pass.Result, error) {
	l := g.Layer(cur)
	if l == nil || l.Kind != graph.KindReshape {
		return pass.NoChange, nil
	}
	producer, prodSlot := l.Inputs[0].Producer()
	producerInfo := g.Layer(producer).Outputs[prodSlot].Info
	if !producerInfo.Shape.Equal(l.Outputs[0].Info.Shape) {
		return pass.NoChange, nil
	}
	return bypassAndErase(g, cur, 0, producer, prodSlot)
}

// SquashConsecutiveReshapes replaces a Reshape feeding only another
// Reshape with a single Reshape straight from the first's input to the
// second's target shape.
type SquashConsecutiveReshapes struct{}

func (SquashConsecutiveReshapes) Name() string { return "squash-consecutive-reshapes" }

func (SquashConsecutiveReshapes) Apply(g *graph.Graph, cur graph.LayerRef) (pass.Result, error) {
	l := g.Layer(cur)
	if l == nil || l.Kind != graph.KindReshape {
		return pass.NoChange, nil
	}
	consumers := l.Outputs[0].Consumers()
	if len(consumers) != 1 {
		return pass.NoChange, nil
	}
	next := g.Layer(consumers[0].Layer)
	if next == nil || next.Kind != graph.KindReshape {
		return pass.NoChange, nil
	}

	producer, prodSlot := l.Inputs[0].Producer()
	target := next.Outputs[0].Info.Shape.Dims

	fused, err := g.AddReshape("", producer, prodSlot, graph.ReshapeParams{TargetShape: target})
	if err != nil {
		return pass.NoChange, err
	}
	if err := g.InferTensorInfos(graph.InferAndValidate); err != nil {
		return pass.NoChange, err
	}
	if err := g.Bypass(next.Ref(), 0, fused, 0); err != nil {
		return pass.NoChange, err
	}
	if err := g.Erase(next.Ref()); err != nil {
		return pass.NoChange, err
	}
	if err := g.Erase(cur); err != nil {
		return pass.NoChange, err
	}
	return pass.Substituted, nil
}
