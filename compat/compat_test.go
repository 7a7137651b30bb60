package compat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/graphc/backend"
	"github.com/katalvlaran/graphc/diag"
	"github.com/katalvlaran/graphc/graph"
	"github.com/katalvlaran/graphc/handle"
	"github.com/katalvlaran/graphc/strategy"
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
}

func (f *fakeFactory) ID() string             { return f.id }
func (f *fakeFactory) SupportsMapUnmap() bool { return f.mapUnmap }
func (f *fakeFactory) ImportFlags() uint32    { return f.importFlags }
func (f *fakeFactory) ExportFlags() uint32    { return f.exportFlags }
func (f *fakeFactory) HasCapability(string, string, handle.CapabilityClass) bool {
	return false
}
func (f *fakeFactory) CreateSubtensorHandle(parent handle.Handle, shape graph.Shape, origin []uint32) (handle.Handle, bool) {
	return handle.Handle{FactoryID: f.id, Shape: shape, Origin: origin}, true
}

func buildChainGraph(t *testing.T) (g *graph.Graph, floorRef, absRef graph.LayerRef) {
	t.Helper()
	g = graph.NewGraph()
	in := g.AddInput("in", f32(1, 4), 0)
	var err error
	floorRef, err = g.AddFloor("floor", in, 0)
	require.NoError(t, err)
	absRef, err = g.AddAbs("abs", floorRef, 0)
	require.NoError(t, err)
	out := g.AddOutput("out", 0)
	require.NoError(t, g.Connect(absRef, 0, out, 0))
	require.NoError(t, g.InferTensorInfos(graph.InferAndValidate))
	return g, floorRef, absRef
}

func TestInsertSplicesImportOnExportStrategyEdge(t *testing.T) {
	g, floorRef, absRef := buildChainGraph(t)
	g.Layer(floorRef).Backend = "gpu"
	g.Layer(absRef).Backend = "cpu"

	backends := backend.NewRegistry()
	backends.Register(&fakeBackend{id: "gpu", prefs: []string{"gpu-tensor"}})
	backends.Register(&fakeBackend{id: "cpu", prefs: []string{"cpu-tensor"}})

	factories := handle.NewRegistry()
	factories.Register(&fakeFactory{id: "gpu-tensor", exportFlags: 0b1})
	factories.Register(&fakeFactory{id: "cpu-tensor", importFlags: 0b1})

	sink := diag.NewSink(nil)
	require.NoError(t, strategy.Plan(g, backends, factories, strategy.Options{ImportEnabled: true}, sink))
	require.Equal(t, graph.StrategyExport, g.Layer(floorRef).Outputs[0].Strategy(0))

	require.NoError(t, Insert(g, backends, factories, sink))

	producer, _ := g.Layer(absRef).Inputs[0].Producer()
	spliced := g.Layer(producer)
	require.Equal(t, graph.KindImport, spliced.Kind)
	assert.Equal(t, "cpu", spliced.Backend)
	assert.Equal(t, "cpu-tensor", spliced.Outputs[0].FactoryID)

	upstream, _ := spliced.Inputs[0].Producer()
	assert.Equal(t, floorRef, upstream)
}

func TestInsertSplicesMemCopyOnCopyStrategyEdge(t *testing.T) {
	g, floorRef, absRef := buildChainGraph(t)
	g.Layer(floorRef).Backend = "gpu"
	g.Layer(absRef).Backend = "cpu"

	backends := backend.NewRegistry()
	backends.Register(&fakeBackend{id: "gpu", prefs: []string{"gpu-tensor"}})
	backends.Register(&fakeBackend{id: "cpu", prefs: []string{"cpu-tensor"}})

	factories := handle.NewRegistry()
	factories.Register(&fakeFactory{id: "gpu-tensor", mapUnmap: true})
	factories.Register(&fakeFactory{id: "cpu-tensor", mapUnmap: true})

	sink := diag.NewSink(nil)
	require.NoError(t, strategy.Plan(g, backends, factories, strategy.Options{}, sink))
	require.Equal(t, graph.StrategyCopy, g.Layer(floorRef).Outputs[0].Strategy(0))

	require.NoError(t, Insert(g, backends, factories, sink))

	producer, _ := g.Layer(absRef).Inputs[0].Producer()
	spliced := g.Layer(producer)
	require.Equal(t, graph.KindMemCopy, spliced.Kind)
	assert.Equal(t, "cpu", spliced.Backend)
	assert.Equal(t, "cpu-tensor", spliced.Outputs[0].FactoryID)
}

func TestInsertLeavesDirectEdgesUntouched(t *testing.T) {
	g, floorRef, absRef := buildChainGraph(t)
	g.Layer(floorRef).Backend = "cpu"
	g.Layer(absRef).Backend = "cpu"

	backends := backend.NewRegistry()
	backends.Register(&fakeBackend{id: "cpu", prefs: []string{"cpu-tensor"}})

	factories := handle.NewRegistry()
	factories.Register(&fakeFactory{id: "cpu-tensor", mapUnmap: true})

	sink := diag.NewSink(nil)
	require.NoError(t, strategy.Plan(g, backends, factories, strategy.Options{}, sink))
	require.Equal(t, graph.StrategyDirect, g.Layer(floorRef).Outputs[0].Strategy(0))

	require.NoError(t, Insert(g, backends, factories, sink))

	producer, _ := g.Layer(absRef).Inputs[0].Producer()
	assert.Equal(t, floorRef, producer, "a direct edge gets no spliced layer")
}
