// File: add_conv.go
// Role: convolution, pooling, fully-connected, and normalization
// constructors.
package graph

func (g *Graph) AddConvolution2d(name string, in LayerRef, inSlot int, p Conv2DParams) (LayerRef, error) {
	return addUnary(g, KindConvolution2d, name, in, inSlot, p)
}

func (g *Graph) AddDepthwiseConvolution2d(name string, in LayerRef, inSlot int, p Conv2DParams) (LayerRef, error) {
	return addUnary(g, KindDepthwiseConvolution2d, name, in, inSlot, p)
}

func (g *Graph) AddConvolution3d(name string, in LayerRef, inSlot int, p Conv3DParams) (LayerRef, error) {
	return addUnary(g, KindConvolution3d, name, in, inSlot, p)
}

func (g *Graph) AddFullyConnected(name string, in LayerRef, inSlot int, p FullyConnectedParams) (LayerRef, error) {
	return addUnary(g, KindFullyConnected, name, in, inSlot, p)
}

func (g *Graph) AddPooling2d(name string, in LayerRef, inSlot int, p Pooling2DParams) (LayerRef, error) {
	return addUnary(g, KindPooling2d, name, in, inSlot, p)
}

func (g *Graph) AddPooling3d(name string, in LayerRef, inSlot int, p Pooling2DParams) (LayerRef, error) {
	return addUnary(g, KindPooling3d, name, in, inSlot, p)
}

func (g *Graph) AddBatchNormalization(name string, in LayerRef, inSlot int) (LayerRef, error) {
	return addUnary(g, KindBatchNormalization, name, in, inSlot, nil)
}

func (g *Graph) AddL2Normalization(name string, in LayerRef, inSlot int) (LayerRef, error) {
	return addUnary(g, KindL2Normalization, name, in, inSlot, nil)
}

func (g *Graph) AddInstanceNormalization(name string, in LayerRef, inSlot int) (LayerRef, error) {
	return addUnary(g, KindInstanceNormalization, name, in, inSlot, nil)
}
