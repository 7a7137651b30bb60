package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/graphc/backend"
	"github.com/katalvlaran/graphc/diag"
	"github.com/katalvlaran/graphc/graph"
	"github.com/katalvlaran/graphc/handle"
	"github.com/katalvlaran/graphc/subgraph"
)

func f32(dims ...uint32) graph.TensorInfo {
	return graph.TensorInfo{Shape: graph.NewShape(dims...), DType: graph.DTypeFloat32}
}

type fakeBackend struct {
	id    string
	prefs []string
}

func (b *fakeBackend) ID() string                         { return b.id }
func (b *fakeBackend) HandleFactoryPreferences() []string { return b.prefs }
func (b *fakeBackend) IsLayerSupported(*graph.Layer, *graph.DataType) (bool, string) {
	return true, ""
}
func (b *fakeBackend) OptimizeSubgraph(subgraph.View, backend.ModelOptions) (subgraph.OptimizationViews, error) {
	return subgraph.OptimizationViews{}, nil
}
func (b *fakeBackend) RegisterHandleFactories(*handle.Registry) {}
func (b *fakeBackend) Accelerated() bool                        { return false }

type fakeFactory struct {
	id          string
	mapUnmap    bool
	importFlags uint32
	exportFlags uint32
	blocked     bool
}

func (f *fakeFactory) ID() string             { return f.id }
func (f *fakeFactory) SupportsMapUnmap() bool { return f.mapUnmap }
func (f *fakeFactory) ImportFlags() uint32    { return f.importFlags }
func (f *fakeFactory) ExportFlags() uint32    { return f.exportFlags }
func (f *fakeFactory) HasCapability(string, string, handle.CapabilityClass) bool {
	return f.blocked
}
func (f *fakeFactory) CreateSubtensorHandle(parent handle.Handle, shape graph.Shape, origin []uint32) (handle.Handle, bool) {
	return handle.Handle{FactoryID: f.id, Shape: shape, Origin: origin}, true
}

// buildTwoBackendGraph: in -> floor -> out, the simplest graph for
// exercising an Input layer's factory-choice-by-consumer rule.
func buildTwoBackendGraph(t *testing.T) (g *graph.Graph, in, floorRef, out graph.LayerRef) {
	t.Helper()
	g = graph.NewGraph()
	in = g.AddInput("in", f32(1, 4), 0)
	var err error
	floorRef, err = g.AddFloor("floor", in, 0)
	require.NoError(t, err)
	out = g.AddOutput("out", 0)
	require.NoError(t, g.Connect(floorRef, 0, out, 0))
	require.NoError(t, g.InferTensorInfos(graph.InferAndValidate))
	return g, in, floorRef, out
}

// buildChainGraph: in -> floor -> abs -> out, used to exercise the
// "all other layers" factory-choice rule on the floor->abs edge in
// isolation from the Input layer's consumer-driven scoring.
func buildChainGraph(t *testing.T) (g *graph.Graph, in, floorRef, absRef, out graph.LayerRef) {
	t.Helper()
	g = graph.NewGraph()
	in = g.AddInput("in", f32(1, 4), 0)
	var err error
	floorRef, err = g.AddFloor("floor", in, 0)
	require.NoError(t, err)
	absRef, err = g.AddAbs("abs", floorRef, 0)
	require.NoError(t, err)
	out = g.AddOutput("out", 0)
	require.NoError(t, g.Connect(absRef, 0, out, 0))
	require.NoError(t, g.InferTensorInfos(graph.InferAndValidate))
	return g, in, floorRef, absRef, out
}

func TestPlanChoosesDirectWhenConsumerAlreadyPrefersTheChosenFactory(t *testing.T) {
	g, in, floorRef, out := buildTwoBackendGraph(t)
	g.Layer(in).Backend = "cpu"
	g.Layer(floorRef).Backend = "cpu"
	g.Layer(out).Backend = "cpu"

	backends := backend.NewRegistry()
	backends.Register(&fakeBackend{id: "cpu", prefs: []string{"tensor"}})

	factories := handle.NewRegistry()
	factories.Register(&fakeFactory{id: "tensor", mapUnmap: true})

	sink := diag.NewSink(nil)
	require.NoError(t, Plan(g, backends, factories, Options{}, sink))

	assert.Equal(t, graph.StrategyDirect, g.Layer(in).Outputs[0].Strategy(0))
}

func TestPlanChoosesCopyWhenSourceFactoryIsLegacyAndBackendsDiffer(t *testing.T) {
	g, in, floorRef, _ := buildTwoBackendGraph(t)
	g.Layer(in).Backend = "gpu"
	g.Layer(floorRef).Backend = "cpu"

	backends := backend.NewRegistry()
	backends.Register(&fakeBackend{id: "gpu", prefs: []string{"gpu-tensor"}})
	backends.Register(&fakeBackend{id: "cpu", prefs: []string{"cpu-tensor"}})

	factories := handle.NewRegistry()
	factories.Register(&fakeFactory{id: "gpu-tensor"})
	// cpu-tensor supports neither map/unmap nor import, so it is never
	// eligible for the Input-layer factory filter and "in" falls back to
	// the legacy sentinel, forcing step 1's cross-backend copy.
	factories.Register(&fakeFactory{id: "cpu-tensor"})

	sink := diag.NewSink(nil)
	require.NoError(t, Plan(g, backends, factories, Options{}, sink))

	assert.Equal(t, handle.LegacyFactoryID, g.Layer(in).Outputs[0].FactoryID)
	assert.Equal(t, graph.StrategyCopy, g.Layer(in).Outputs[0].Strategy(0))
}

func TestPlanOutputConsumerIsAlwaysDirect(t *testing.T) {
	g, _, floorRef, out := buildTwoBackendGraph(t)
	g.Layer(floorRef).Backend = "gpu"
	g.Layer(out).Backend = "gpu"

	backends := backend.NewRegistry()
	backends.Register(&fakeBackend{id: "gpu", prefs: []string{"gpu-tensor"}})

	factories := handle.NewRegistry()
	factories.Register(&fakeFactory{id: "gpu-tensor", mapUnmap: true})

	sink := diag.NewSink(nil)
	require.NoError(t, Plan(g, backends, factories, Options{}, sink))

	assert.Equal(t, graph.StrategyDirect, g.Layer(floorRef).Outputs[0].Strategy(0))
	assert.Empty(t, g.Layer(out).Outputs, "Output layers carry no output slots")
}

func TestPlanExportChosenWhenFlagsIntersectAndNoCapabilityBlocks(t *testing.T) {
	g, _, floorRef, absRef, _ := buildChainGraph(t)
	g.Layer(floorRef).Backend = "gpu"
	g.Layer(absRef).Backend = "cpu"

	backends := backend.NewRegistry()
	backends.Register(&fakeBackend{id: "gpu", prefs: []string{"gpu-tensor"}})
	backends.Register(&fakeBackend{id: "cpu", prefs: []string{"cpu-tensor"}})

	factories := handle.NewRegistry()
	factories.Register(&fakeFactory{id: "gpu-tensor", exportFlags: 0b1})
	factories.Register(&fakeFactory{id: "cpu-tensor", importFlags: 0b1})

	sink := diag.NewSink(nil)
	require.NoError(t, Plan(g, backends, factories, Options{ImportEnabled: true}, sink))

	assert.Equal(t, graph.StrategyExport, g.Layer(floorRef).Outputs[0].Strategy(0))
}

func TestPlanFailsWithUndefinedStrategyWhenNoPathExists(t *testing.T) {
	g, _, floorRef, absRef, _ := buildChainGraph(t)
	g.Layer(floorRef).Backend = "gpu"
	g.Layer(absRef).Backend = "cpu"

	backends := backend.NewRegistry()
	backends.Register(&fakeBackend{id: "gpu", prefs: []string{"gpu-tensor"}})
	backends.Register(&fakeBackend{id: "cpu", prefs: []string{"cpu-tensor"}})

	factories := handle.NewRegistry()
	factories.Register(&fakeFactory{id: "gpu-tensor"})
	factories.Register(&fakeFactory{id: "cpu-tensor"})

	sink := diag.NewSink(nil)
	err := Plan(g, backends, factories, Options{}, sink)
	require.Error(t, err)
	assert.True(t, sink.HasFailures())
}
