// File: add_reshape.go
// Role: reshape/permute/transpose and space/batch/depth constructors.
package graph

import "fmt"

func (g *Graph) AddReshape(name string, in LayerRef, inSlot int, p ReshapeParams) (LayerRef, error) {
	if len(p.TargetShape) == 0 {
		return invalidRef, fmt.Errorf("%w: reshape requires a non-empty target shape", ErrInvalidArgument)
	}
	return addUnary(g, KindReshape, name, in, inSlot, p)
}

func (g *Graph) AddPermute(name string, in LayerRef, inSlot int, p PermuteParams) (LayerRef, error) {
	if len(p.Perm) == 0 {
		return invalidRef, fmt.Errorf("%w: permute requires a non-empty permutation vector", ErrInvalidArgument)
	}
	return addUnary(g, KindPermute, name, in, inSlot, p)
}

func (g *Graph) AddTranspose(name string, in LayerRef, inSlot int, p PermuteParams) (LayerRef, error) {
	if len(p.Perm) == 0 {
		return invalidRef, fmt.Errorf("%w: transpose requires a non-empty permutation vector", ErrInvalidArgument)
	}
	return addUnary(g, KindTranspose, name, in, inSlot, p)
}

func (g *Graph) AddSpaceToBatchNd(name string, in LayerRef, inSlot int, p SpaceBatchParams) (LayerRef, error) {
	if len(p.BlockShape) == 0 {
		return invalidRef, fmt.Errorf("%w: space_to_batch requires a non-empty block shape", ErrInvalidArgument)
	}
	return addUnary(g, KindSpaceToBatchNd, name, in, inSlot, p)
}

func (g *Graph) AddBatchToSpaceNd(name string, in LayerRef, inSlot int, p SpaceBatchParams) (LayerRef, error) {
	if len(p.BlockShape) == 0 {
		return invalidRef, fmt.Errorf("%w: batch_to_space requires a non-empty block shape", ErrInvalidArgument)
	}
	return addUnary(g, KindBatchToSpaceNd, name, in, inSlot, p)
}

func (g *Graph) AddSpaceToDepth(name string, in LayerRef, inSlot int, p DepthSpaceParams) (LayerRef, error) {
	if p.BlockSize == 0 {
		return invalidRef, fmt.Errorf("%w: space_to_depth requires a non-zero block size", ErrInvalidArgument)
	}
	return addUnary(g, KindSpaceToDepth, name, in, inSlot, p)
}

func (g *Graph) AddDepthToSpace(name string, in LayerRef, inSlot int, p DepthSpaceParams) (LayerRef, error) {
	if p.BlockSize == 0 {
		return invalidRef, fmt.Errorf("%w: depth_to_space requires a non-zero block size", ErrInvalidArgument)
	}
	return addUnary(g, KindDepthToSpace, name, in, inSlot, p)
}

func (g *Graph) AddChannelShuffle(name string, in LayerRef, inSlot int, p ChannelShuffleParams) (LayerRef, error) {
	if p.Groups == 0 {
		return invalidRef, fmt.Errorf("%w: channel_shuffle requires a non-zero group count", ErrInvalidArgument)
	}
	return addUnary(g, KindChannelShuffle, name, in, inSlot, p)
}
