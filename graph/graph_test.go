package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func float32Info(dims ...uint32) TensorInfo {
	return TensorInfo{Shape: NewShape(dims...), DType: DTypeFloat32}
}

func TestAddInputOutputConnect(t *testing.T) {
	g := NewGraph()
	in := g.AddInput("in", float32Info(1, 4), 0)
	out := g.AddOutput("out", 0)

	require.NoError(t, g.Connect(in, 0, out, 0))
	assert.Equal(t, 2, g.Len())
	assert.NoError(t, g.VerifyConnections())
}

func TestConnectRejectsDoubleBind(t *testing.T) {
	g := NewGraph()
	a := g.AddInput("a", float32Info(1), 0)
	b := g.AddInput("b", float32Info(1), 1)
	out := g.AddOutput("out", 0)

	require.NoError(t, g.Connect(a, 0, out, 0))
	err := g.Connect(b, 0, out, 0)
	assert.ErrorIs(t, err, ErrSlotBound)
}

func TestConnectRejectsCycle(t *testing.T) {
	g := NewGraph()
	a := g.AddInput("a", float32Info(1), 0)
	// newLayer leaves both inputs unbound, so input 1 is still free and
	// only the cycle check can reject the edge below.
	addRef, _ := g.newLayer(KindAdd, "add", 2, 1, nil)
	require.NoError(t, g.Connect(a, 0, addRef, 0))

	// Attempting to feed add's own output back into one of its inputs
	// would close a cycle.
	err := g.Connect(addRef, 0, addRef, 1)
	assert.ErrorIs(t, err, ErrWouldCycle)
}

func TestEraseRejectsLiveConsumers(t *testing.T) {
	g := NewGraph()
	a := g.AddInput("a", float32Info(1), 0)
	out := g.AddOutput("out", 0)
	require.NoError(t, g.Connect(a, 0, out, 0))

	assert.ErrorIs(t, g.Erase(a), ErrHasConsumers)
	require.NoError(t, g.Erase(out))
	require.NoError(t, g.Erase(a))
	assert.Equal(t, 0, g.Len())
}

func TestInsertBeforeSplicesLayer(t *testing.T) {
	g := NewGraph()
	a := g.AddInput("a", float32Info(2, 2), 0)
	out := g.AddOutput("out", 0)
	require.NoError(t, g.Connect(a, 0, out, 0))

	ref, l := g.newLayer(KindPermute, "perm", 1, 1, PermuteParams{Perm: []uint32{1, 0}})
	require.NoError(t, g.InsertBefore(out, 0, ref))
	outLayer := g.Layer(out)
	require.True(t, outLayer.Inputs[0].Bound())
	producer, slot := outLayer.Inputs[0].Producer()
	assert.Equal(t, ref, producer)
	assert.Equal(t, 0, slot)
	assert.Equal(t, KindPermute, l.Kind)
}

func TestTopologicalOrderProducersBeforeConsumers(t *testing.T) {
	g := NewGraph()
	a := g.AddInput("a", float32Info(1), 0)
	b := g.AddInput("b", float32Info(1), 1)
	addRef, err := g.AddAdd("sum", a, b, 0, 0)
	require.NoError(t, err)
	out := g.AddOutput("out", 0)
	require.NoError(t, g.Connect(addRef, 0, out, 0))

	order := g.TopologicalOrder()
	index := make(map[LayerRef]int, len(order))
	for i, r := range order {
		index[r] = i
	}
	assert.Less(t, index[a], index[addRef])
	assert.Less(t, index[b], index[addRef])
	assert.Less(t, index[addRef], index[out])
}

func TestSubstituteSubgraphPreservesExternalWiring(t *testing.T) {
	g := NewGraph()
	a := g.AddInput("a", float32Info(2, 2), 0)
	permRef, err := g.AddPermute("p1", a, 0, PermuteParams{Perm: []uint32{1, 0}})
	require.NoError(t, err)
	permRef2, err := g.AddPermute("p2", permRef, 0, PermuteParams{Perm: []uint32{1, 0}})
	require.NoError(t, err)
	out := g.AddOutput("out", 0)
	require.NoError(t, g.Connect(permRef2, 0, out, 0))
	require.NoError(t, g.InferTensorInfos(InferAndValidate))

	// The squash-able permute pair (perm . perm^-1 = identity) is replaced
	// by a single Reshape-to-same-shape standing in for the identity.
	oldView := ExternalView{
		Inputs:  []ExternalInput{{Layer: permRef, Slot: 0}},
		Outputs: []ExternalOutput{{Layer: permRef2, Slot: 0}},
	}
	newRef, err := g.AddReshape("repl", a, 0, ReshapeParams{TargetShape: []uint32{2, 2}})
	require.NoError(t, err)
	require.NoError(t, g.InferTensorInfos(InferAndValidate))
	newView := ExternalView{
		Inputs:  []ExternalInput{{Layer: newRef, Slot: 0}},
		Outputs: []ExternalOutput{{Layer: newRef, Slot: 0}},
	}

	require.NoError(t, g.SubstituteSubgraph(oldView, newView))
	outLayer := g.Layer(out)
	producer, _ := outLayer.Inputs[0].Producer()
	assert.Equal(t, newRef, producer)
}

func TestConcatRejectsOverlappingViews(t *testing.T) {
	g := NewGraph()
	a := g.AddInput("a", float32Info(2, 2), 0)
	b := g.AddInput("b", float32Info(2, 2), 1)
	ref, err := g.AddConcat("cat", []LayerRef{a, b}, []int{0, 0}, ConcatParams{
		Views: []ViewDescriptor{
			{Origin: []uint32{0, 0}, Size: []uint32{2, 2}},
			{Origin: []uint32{0, 1}, Size: []uint32{2, 2}}, // overlaps the first view
		},
	})
	require.NoError(t, err)
	err = g.InferTensorInfos(InferAndValidate)
	assert.ErrorIs(t, err, ErrLayerValidation)
	_ = ref
}

func TestConvolutionImpossibleGeometryRejected(t *testing.T) {
	g := NewGraph()
	in := g.AddInput("in", float32Info(1, 3, 3, 1), 0)
	ref, err := g.AddConvolution2d("conv", in, 0, Conv2DParams{
		KernelH: 5, KernelW: 5, StrideH: 1, StrideW: 1, OutChannels: 1,
	})
	require.NoError(t, err)
	err = g.InferTensorInfos(InferAndValidate)
	assert.ErrorIs(t, err, ErrLayerValidation)
	_ = ref
}

func TestReshapePreservesElementCount(t *testing.T) {
	g := NewGraph()
	in := g.AddInput("in", float32Info(2, 3), 0)
	ref, err := g.AddReshape("reshape", in, 0, ReshapeParams{TargetShape: []uint32{6}})
	require.NoError(t, err)
	require.NoError(t, g.InferTensorInfos(InferAndValidate))
	shape := g.Layer(ref).Outputs[0].Info.Shape
	assert.Equal(t, []uint32{6}, shape.Dims)

	bad, err := g.AddReshape("bad", in, 0, ReshapeParams{TargetShape: []uint32{7}})
	require.NoError(t, err)
	err = g.InferTensorInfos(InferAndValidate)
	assert.ErrorIs(t, err, ErrLayerValidation)
	_ = bad
}

func TestSoftmaxCorrectsQuantizedScaleOffset(t *testing.T) {
	g := NewGraph()
	info := TensorInfo{Shape: NewShape(1, 4), DType: DTypeQAsymmU8, HasQuant: true, QScale: 0.5, QOffset: 10}
	in := g.AddInput("in", info, 0)
	ref, err := g.AddSoftmax("softmax", in, 0, AxisParams{Axis: -1})
	require.NoError(t, err)
	require.NoError(t, g.InferTensorInfos(InferAndValidate))
	out := g.Layer(ref).Outputs[0].Info
	assert.Equal(t, float32(1.0/256.0), out.QScale)
	assert.Equal(t, int32(0), out.QOffset)
}

func TestBroadcastShapesSuffixRule(t *testing.T) {
	g := NewGraph()
	a := g.AddInput("a", float32Info(4, 1), 0)
	b := g.AddInput("b", float32Info(3), 1)
	ref, err := g.AddAdd("add", a, b, 0, 0)
	require.NoError(t, err)
	require.NoError(t, g.InferTensorInfos(InferAndValidate))
	assert.Equal(t, []uint32{4, 3}, g.Layer(ref).Outputs[0].Info.Shape.Dims)
}

func TestLstmRejectsIncompleteCifgGroup(t *testing.T) {
	g := NewGraph()
	batch := g.AddInput("x", float32Info(1, 8), 0)
	stateIn := g.AddInput("state", float32Info(1, 4), 1)
	cellIn := g.AddInput("cell", float32Info(1, 4), 2)

	p := baseLstmParams()
	p.CifgEnabled = false
	p.Cifg = &LstmCifgParams{} // missing required ids

	_, err := g.AddLstm("lstm", batch, stateIn, cellIn, 0, 0, 0, p)
	assert.ErrorIs(t, err, ErrNullPointer)
}

func baseLstmParams() LstmParams {
	return LstmParams{
		NumUnits:             4,
		CifgEnabled:          true,
		InputToForgetWeights: "w", InputToCellWeights: "w", InputToOutputWeights: "w",
		RecurrentToForgetW: "w", RecurrentToCellW: "w", RecurrentToOutputW: "w",
		ForgetGateBias: "b", CellBias: "b", OutputGateBias: "b",
	}
}

func TestLstmProducesFourOutputs(t *testing.T) {
	g := NewGraph()
	batch := g.AddInput("x", float32Info(1, 8), 0)
	stateIn := g.AddInput("state", float32Info(1, 4), 1)
	cellIn := g.AddInput("cell", float32Info(1, 4), 2)

	ref, err := g.AddLstm("lstm", batch, stateIn, cellIn, 0, 0, 0, baseLstmParams())
	require.NoError(t, err)
	require.NoError(t, g.InferTensorInfos(InferAndValidate))
	l := g.Layer(ref)
	require.Len(t, l.Outputs, 4)
	assert.Equal(t, []uint32{1, 4}, l.Outputs[2].Info.Shape.Dims) // cell state out
}

func TestConstantArenaRefCounting(t *testing.T) {
	g := NewGraph()
	ref := g.AddConstant("w", float32Info(2, 2), []byte{1, 2, 3, 4})
	l := g.Layer(ref)
	require.NotEmpty(t, l.constID)
	tensor := g.Arena().Get(l.constID)
	require.NotNil(t, tensor)

	g.Arena().Retain(l.constID)
	g.Arena().Release(l.constID)
	assert.NotNil(t, g.Arena().Get(l.constID))
	g.Arena().Release(l.constID)
	assert.Nil(t, g.Arena().Get(l.constID))
}
