// Package passlib ships the concrete local rewrites the pass manager
// (package pass) drives to a fixed point: permute/transpose/reshape
// squashing, permute hoisting past shape-agnostic layers, pad folding,
// space/depth recognition, broadcast insertion, constant normalization,
// and post-assignment type-conversion cleanup.
// InsertDebugTaps lives here too but is optional and left out of All() —
// see debugtap.go.
package passlib

import (
	"github.com/katalvlaran/graphc/graph"
	"github.com/katalvlaran/graphc/pass"
)

// bypassAndErase is the shared tail of every "replace cur with its own
// producer" rewrite: redirect cur's consumers onto (producer, prodSlot),
// then erase cur now that nothing references it.
func bypassAndErase(g *graph.Graph, cur graph.LayerRef, curSlot int, producer graph.LayerRef, prodSlot int) (pass.Result, error) {
	if err := g.Bypass(cur, curSlot, producer, prodSlot); err != nil {
		return pass.NoChange, err
	}
	if err := g.Erase(cur); err != nil {
		return pass.NoChange, err
	}
	return pass.Erased, nil
}

// All returns every pass in this library, in the order the pass manager
// should consider them at each cursor.
func All() []pass.Pass {
	return []pass.Pass{
		SquashSiblingPermutes{},
		RemoveInversePermutePair{},
		ConvertNoOpPermuteToReshape{},
		HoistPermuteAboveShapeAgnosticLayer{},
		SquashConsecutiveReshapes{},
		DropIdentityReshape{},
		FoldPadIntoConv{},
		FoldConstantDequantize{},
		FuseConstantPermute{},
		RecognizePermuteBatchToSpaceAsDepthToSpace{},
		RecognizeTransposeBatchToSpaceAsDepthToSpace{},
		InsertBroadcastBeforeBinary{},
		RemoveRedundantCastPair{},
	}
}
