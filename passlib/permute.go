// File: permute.go
// Role: permute/transpose manipulation passes.
package passlib

import (
	"github.com/katalvlaran/graphc/graph"
	"github.com/katalvlaran/graphc/pass"
)

// SquashSiblingPermutes finds two sibling Permute (or Transpose) layers
// consuming the very same producer slot with an identical permutation
// vector, and rewires the second's consumers onto the first, erasing the
// now-redundant duplicate.
type SquashSiblingPermutes struct{}

func (SquashSiblingPermutes) Name() string { return "squash-sibling-permutes" }

func (SquashSiblingPermutes) Apply(g *graph.Graph, cur graph.LayerRef) (pass.Result, error) {
	l := g.Layer(cur)
	if l == nil || (l.Kind != graph.KindPermute && l.Kind != graph.KindTranspose) {
		return pass.NoChange, nil
	}
	p, ok := l.Params.(graph.PermuteParams)
	if !ok {
		return pass.NoChange, nil
	}
	producer, prodSlot := l.Inputs[0].Producer()

	for _, c := range g.Layer(producer).Outputs[prodSlot].Consumers() {
		if c.Layer == cur {
			continue
		}
		sibling := g.Layer(c.Layer)
		if sibling == nil || sibling.Kind != l.Kind {
			continue
		}
		sp, ok := sibling.Params.(graph.PermuteParams)
		if !ok || !sameUint32s(sp.Perm, p.Perm) {
			continue
		}
		// Keep cur, drop sibling: redirect sibling's consumers onto cur's
		// output and erase sibling.
		if err := g.Bypass(sibling.Ref(), 0, cur, 0); err != nil {
			return pass.NoChange, err
		}
		if err := g.Erase(sibling.Ref()); err != nil {
			return pass.NoChange, err
		}
		return pass.Substituted, nil
	}
	return pass.NoChange, nil
}

// RemoveInversePermutePair recognizes a Permute immediately followed by
// another Permute whose vector exactly inverts the first, and replaces
// the pair with a direct bypass to the original producer.
type RemoveInversePermutePair struct{}

func (RemoveInversePermutePair) Name() string { return "remove-inverse-permute-pair" }

func (RemoveInversePermutePair) Apply(g *graph.Graph, cur graph.LayerRef) (pass.Result, error) {
	l := g.Layer(cur)
	if l == nil || (l.Kind != graph.KindPermute && l.Kind != graph.KindTranspose) {
		return pass.NoChange, nil
	}
	p, ok := l.Params.(graph.PermuteParams)
	if !ok {
		return pass.NoChange, nil
	}
	consumers := l.Outputs[0].Consumers()
	if len(consumers) != 1 {
		return pass.NoChange, nil
	}
	next := g.Layer(consumers[0].Layer)
	if next == nil || next.Kind != l.Kind {
		return pass.NoChange, nil
	}
	np, ok := next.Params.(graph.PermuteParams)
	if !ok || !isInversePermutation(p.Perm, np.Perm) {
		return pass.NoChange, nil
	}

	producer, prodSlot := l.Inputs[0].Producer()
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

// ConvertNoOpPermuteToReshape replaces a Permute/Transpose that is a
// no-op in memory with a Reshape to the same shape, letting
// reshape-family passes take over. A permutation is a no-op in memory
// not only when it is the literal identity ordering, but whenever every
// size-1 axis it reorders carries no stride of its own to move: drop
// the unit-size axes from the permutation and check what's left still
// visits the surviving axes in their original order.
type ConvertNoOpPermuteToReshape struct{}

func (ConvertNoOpPermuteToReshape) Name() string { return "convert-noop-permute-to-reshape" }

func (ConvertNoOpPermuteToReshape) Apply(g *graph.Graph, cur graph.LayerRef) (pass.Result, error) {
	l := g.Layer(cur)
	if l == nil || (l.Kind != graph.KindPermute && l.Kind != graph.KindTranspose) {
		return pass.NoChange, nil
	}
	p, ok := l.Params.(graph.PermuteParams)
	if !ok {
		return pass.NoChange, nil
	}

	producer, prodSlot := l.Inputs[0].Producer()
	inShape := g.Layer(producer).Outputs[prodSlot].Info.Shape.Dims
	if !isNoOpPermutationInMemory(p.Perm, inShape) {
		return pass.NoChange, nil
	}

	outShape := l.Outputs[0].Info.Shape.Dims
	replacement, err := g.AddReshape("", producer, prodSlot, graph.ReshapeParams{TargetShape: outShape})
	if err != nil {
		return pass.NoChange, err
	}
	if err := g.InferTensorInfos(graph.InferAndValidate); err != nil {
		return pass.NoChange, err
	}
	if err := g.Bypass(cur, 0, replacement, 0); err != nil {
		return pass.NoChange, err
	}
	if err := g.Erase(cur); err != nil {
		return pass.NoChange, err
	}
	return pass.Substituted, nil
}

func sameUint32s(a, b []uint32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// isNoOpPermutationInMemory reports whether perm, applied to a tensor of
// the given input shape, rearranges no actual data: size-1 axes carry no
// stride, so a permutation that only reshuffles them while leaving every
// non-unit axis in its original relative order produces an identical
// memory layout. The literal identity ordering is the special case where
// shape carries no unit axes at all.
func isNoOpPermutationInMemory(perm, shape []uint32) bool {
	last := -1
	for _, axis := range perm {
		if int(axis) >= len(shape) || shape[axis] == 1 {
			continue
		}
		if int(axis) <= last {
			return false
		}
		last = int(axis)
	}
	return true
}

// isInversePermutation reports whether applying perm then inv restores
// the original ordering, i.e. inv[perm[i]] == i for every i.
func isInversePermutation(perm, inv []uint32) bool {
	if len(perm) != len(inv) {
		return false
	}
	for i, pi := range perm {
		if int(pi) >= len(inv) || inv[pi] != uint32(i) {
			return false
		}
	}
	return true
}
