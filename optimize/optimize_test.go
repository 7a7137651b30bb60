package optimize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/graphc/assign"
	"github.com/katalvlaran/graphc/backend"
	"github.com/katalvlaran/graphc/graph"
	"github.com/katalvlaran/graphc/handle"
	"github.com/katalvlaran/graphc/subgraph"
)

func f32(dims ...uint32) graph.TensorInfo {
	return graph.TensorInfo{Shape: graph.NewShape(dims...), DType: graph.DTypeFloat32}
}

// acceptAllBackend accepts every layer unconditionally and contributes
// no subgraph rewrites of its own, the minimal double needed to drive
// F, H, I and J end to end without a real downstream backend.
type acceptAllBackend struct {
	id    string
	prefs []string
}

func (b *acceptAllBackend) ID() string                         { return b.id }
func (b *acceptAllBackend) HandleFactoryPreferences() []string { return b.prefs }
func (b *acceptAllBackend) IsLayerSupported(*graph.Layer, *graph.DataType) (bool, string) {
	return true, ""
}
func (b *acceptAllBackend) OptimizeSubgraph(subgraph.View, backend.ModelOptions) (subgraph.OptimizationViews, error) {
	return subgraph.OptimizationViews{}, nil
}
func (b *acceptAllBackend) RegisterHandleFactories(*handle.Registry) {}
func (b *acceptAllBackend) Accelerated() bool                        { return false }

type acceptAllFactory struct {
	id       string
	mapUnmap bool
}

func (f *acceptAllFactory) ID() string             { return f.id }
func (f *acceptAllFactory) SupportsMapUnmap() bool  { return f.mapUnmap }
func (f *acceptAllFactory) ImportFlags() uint32     { return 0 }
func (f *acceptAllFactory) ExportFlags() uint32     { return 0 }
func (f *acceptAllFactory) HasCapability(string, string, handle.CapabilityClass) bool {
	return false
}
func (f *acceptAllFactory) CreateSubtensorHandle(parent handle.Handle, shape graph.Shape, origin []uint32) (handle.Handle, bool) {
	return handle.Handle{FactoryID: f.id, Shape: shape, Origin: origin}, true
}

func singleBackendSetup() (*backend.Registry, *handle.Registry, []string, map[string]bool) {
	backends := backend.NewRegistry()
	backends.Register(&acceptAllBackend{id: "cpu", prefs: []string{"cpu-tensor"}})
	factories := handle.NewRegistry()
	factories.Register(&acceptAllFactory{id: "cpu-tensor", mapUnmap: true})
	return backends, factories, []string{"cpu"}, map[string]bool{"cpu": true}
}

// TestRunSquashesInversePermutePair mirrors spec.md §8 Scenario 1:
// Input -> Permute([0,2,3,1]) -> Permute([0,3,1,2]) -> Output should
// collapse to Input -> Output once the whole pipeline has run.
func TestRunSquashesInversePermutePair(t *testing.T) {
	g := graph.NewGraph()
	in := g.AddInput("in", f32(1, 2, 3, 5), 0)
	p1, err := g.AddPermute("p1", in, 0, graph.PermuteParams{Perm: []uint32{0, 2, 3, 1}})
	require.NoError(t, err)
	p2, err := g.AddPermute("p2", p1, 0, graph.PermuteParams{Perm: []uint32{0, 3, 1, 2}})
	require.NoError(t, err)
	out := g.AddOutput("out", 0)
	require.NoError(t, g.Connect(p2, 0, out, 0))
	require.NoError(t, g.InferTensorInfos(graph.InferAndValidate))

	backends, factories, preferred, supported := singleBackendSetup()
	result, sink, err := Run(g, preferred, supported, backends, factories, assign.Hints{}, Options{}, nil)
	require.NoError(t, err)
	assert.False(t, sink.HasFailures())

	producer, _ := result.Graph.Layer(out).Inputs[0].Producer()
	assert.Equal(t, in, producer, "both permutes should have squashed away entirely")
	assert.Equal(t, "cpu", result.Graph.Layer(in).Backend)
}

// TestRunAssignsEveryLayerToTheSinglePreferredBackend exercises
// invariant 1 from spec.md §8: every layer's backend_id ends up in the
// selected-backend set.
func TestRunAssignsEveryLayerToTheSinglePreferredBackend(t *testing.T) {
	g := graph.NewGraph()
	in := g.AddInput("in", f32(1, 4), 0)
	floorRef, err := g.AddFloor("floor", in, 0)
	require.NoError(t, err)
	out := g.AddOutput("out", 0)
	require.NoError(t, g.Connect(floorRef, 0, out, 0))
	require.NoError(t, g.InferTensorInfos(graph.InferAndValidate))

	backends, factories, preferred, supported := singleBackendSetup()
	_, sink, err := Run(g, preferred, supported, backends, factories, assign.Hints{}, Options{}, nil)
	require.NoError(t, err)
	assert.False(t, sink.HasFailures())

	for _, ref := range g.TopologicalOrder() {
		l := g.Layer(ref)
		require.NotNil(t, l)
		assert.Equal(t, "cpu", l.Backend, "layer %s", l.Name)
	}
}

// TestRunEveryEdgeHasADefinedStrategy exercises invariant 2: after I and
// J every consumer edge carries a non-undefined strategy.
func TestRunEveryEdgeHasADefinedStrategy(t *testing.T) {
	g := graph.NewGraph()
	in := g.AddInput("in", f32(1, 4), 0)
	floorRef, err := g.AddFloor("floor", in, 0)
	require.NoError(t, err)
	absRef, err := g.AddAbs("abs", floorRef, 0)
	require.NoError(t, err)
	out := g.AddOutput("out", 0)
	require.NoError(t, g.Connect(absRef, 0, out, 0))
	require.NoError(t, g.InferTensorInfos(graph.InferAndValidate))

	backends, factories, preferred, supported := singleBackendSetup()
	result, _, err := Run(g, preferred, supported, backends, factories, assign.Hints{}, Options{}, nil)
	require.NoError(t, err)

	for _, ref := range result.Graph.TopologicalOrder() {
		l := result.Graph.Layer(ref)
		if l == nil {
			continue
		}
		for slot := range l.Outputs {
			consumers := l.Outputs[slot].Consumers()
			for i := range consumers {
				assert.NotEqual(t, graph.StrategyUndefined, l.Outputs[slot].Strategy(i))
			}
		}
	}
}

func TestRunFailsWithInvalidArgumentOnEmptyPreferences(t *testing.T) {
	g := graph.NewGraph()
	backends := backend.NewRegistry()
	factories := handle.NewRegistry()

	_, sink, err := Run(g, nil, map[string]bool{}, backends, factories, assign.Hints{}, Options{}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, graph.ErrInvalidArgument)
	assert.True(t, sink.HasFailures())
}

func TestRunFailsWithInvalidArgumentWhenNoPreferredBackendIsSupported(t *testing.T) {
	g := graph.NewGraph()
	in := g.AddInput("in", f32(1, 4), 0)
	out := g.AddOutput("out", 0)
	require.NoError(t, g.Connect(in, 0, out, 0))

	backends, factories, _, _ := singleBackendSetup()
	_, sink, err := Run(g, []string{"gpu"}, map[string]bool{"cpu": true}, backends, factories, assign.Hints{}, Options{}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, graph.ErrInvalidArgument)
	assert.True(t, sink.HasFailures())
}

func TestRunRejectsBfloat16ReductionAtEntry(t *testing.T) {
	g := graph.NewGraph()
	backends, factories, preferred, supported := singleBackendSetup()

	_, sink, err := Run(g, preferred, supported, backends, factories, assign.Hints{}, Options{ReduceFloat32ToBfloat16: true}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, graph.ErrInvalidArgument)
	assert.True(t, sink.HasFailures())
}

// TestRunInsertsDebugTapsWhenRequested exercises the optional
// debug-layer insertion path, run only when asked.
func TestRunInsertsDebugTapsWhenRequested(t *testing.T) {
	g := graph.NewGraph()
	in := g.AddInput("in", f32(1, 4), 0)
	floorRef, err := g.AddFloor("floor", in, 0)
	require.NoError(t, err)
	out := g.AddOutput("out", 0)
	require.NoError(t, g.Connect(floorRef, 0, out, 0))
	require.NoError(t, g.InferTensorInfos(graph.InferAndValidate))

	backends, factories, preferred, supported := singleBackendSetup()
	result, _, err := Run(g, preferred, supported, backends, factories, assign.Hints{}, Options{Debug: true}, nil)
	require.NoError(t, err)

	producer, _ := result.Graph.Layer(out).Inputs[0].Producer()
	assert.Equal(t, graph.KindDebug, result.Graph.Layer(producer).Kind)
}

// TestRunHoistsPermuteAboveShapeAgnosticChain mirrors spec.md §8
// Scenario 2: a permute sitting right before Output migrates all the
// way back through a chain of shape-agnostic layers (Activation, Add,
// FakeQuant, Floor, MemCopy, Mul), ending up duplicated right after
// every Input instead, and leaves no permute on the tail.
func TestRunHoistsPermuteAboveShapeAgnosticChain(t *testing.T) {
	g := graph.NewGraph()
	in1 := g.AddInput("in1", f32(1, 5, 2, 3), 0)
	in2 := g.AddInput("in2", f32(1, 5, 2, 3), 1)
	in3 := g.AddInput("in3", f32(1, 5, 2, 3), 2)

	mulRef, err := g.AddMul("mul", in3, in2, 0, 0)
	require.NoError(t, err)
	mc := g.AddMemCopy("mc")
	require.NoError(t, g.Connect(mulRef, 0, mc, 0))
	floorRef, err := g.AddFloor("floor", mc, 0)
	require.NoError(t, err)
	fqRef, err := g.AddFakeQuantization("fq", floorRef, 0)
	require.NoError(t, err)
	addRef, err := g.AddAdd("add", fqRef, in1, 0, 0)
	require.NoError(t, err)
	actRef, err := g.AddActivation("act", addRef, 0, graph.ActivationParams{Func: graph.ActRelu})
	require.NoError(t, err)
	permRef, err := g.AddPermute("perm", actRef, 0, graph.PermuteParams{Perm: []uint32{0, 2, 3, 1}})
	require.NoError(t, err)
	out := g.AddOutput("out", 0)
	require.NoError(t, g.Connect(permRef, 0, out, 0))
	require.NoError(t, g.InferTensorInfos(graph.InferAndValidate))

	backends, factories, preferred, supported := singleBackendSetup()
	result, sink, err := Run(g, preferred, supported, backends, factories, assign.Hints{}, Options{}, nil)
	require.NoError(t, err)
	assert.False(t, sink.HasFailures())

	outProducer, _ := result.Graph.Layer(out).Inputs[0].Producer()
	assert.Equal(t, graph.KindActivation, result.Graph.Layer(outProducer).Kind,
		"the tail permute should have fully hoisted away, leaving Activation feeding Output directly")

	for _, ref := range result.Graph.TopologicalOrder() {
		l := result.Graph.Layer(ref)
		if l == nil || l.Kind != graph.KindPermute {
			continue
		}
		producer, _ := l.Inputs[0].Producer()
		assert.Equal(t, graph.KindInput, result.Graph.Layer(producer).Kind,
			"every surviving permute should sit directly after an Input")
		assert.Equal(t, []uint32{1, 2, 3, 5}, l.Outputs[0].Info.Shape.Dims)
	}
}

func TestLoadOptionsYAMLRoundTrips(t *testing.T) {
	data := []byte("reduceFloat32ToFloat16: true\nimportEnabled: true\n")
	opts, err := LoadOptionsYAML(data)
	require.NoError(t, err)
	assert.True(t, opts.ReduceFloat32ToFloat16)
	assert.True(t, opts.ImportEnabled)
}
