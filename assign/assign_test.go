package assign

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

// stubBackend accepts everything except kinds/dtypes explicitly listed
// in rejectKinds/rejectFloat16, so tests can script a specific failure
// mode without a full mock framework.
type stubBackend struct {
	id             string
	rejectKinds    map[graph.Kind]bool
	rejectFloat16  bool
	acceptsFloat32 bool
}

func (s *stubBackend) ID() string { return s.id }

func (s *stubBackend) IsLayerSupported(l *graph.Layer, dtypeOverride *graph.DataType) (bool, string) {
	if s.rejectKinds[l.Kind] {
		return false, "kind not implemented"
	}
	if dtypeOverride != nil && *dtypeOverride == graph.DTypeFloat32 {
		if s.acceptsFloat32 {
			return true, ""
		}
		return false, "float32 not supported either"
	}
	if s.rejectFloat16 {
		for _, in := range l.Inputs {
			if in.Bound() {
				// dtype check left to caller via involvesFloat16; stub just
				// rejects unconditionally when asked to.
			}
		}
		for _, out := range l.Outputs {
			if out.Info.DType == graph.DTypeFloat16 {
				return false, "float16 unsupported by this hardware revision"
			}
		}
		for _, in := range l.Inputs {
			_ = in
		}
	}
	return true, ""
}

func (s *stubBackend) HandleFactoryPreferences() []string { return nil }
func (s *stubBackend) OptimizeSubgraph(v subgraph.View, opts backend.ModelOptions) (subgraph.OptimizationViews, error) {
	return subgraph.OptimizationViews{}, nil
}
func (s *stubBackend) RegisterHandleFactories(reg *handle.Registry) {}
func (s *stubBackend) Accelerated() bool                            { return false }

func newStub(id string) *stubBackend { return &stubBackend{id: id} }

func TestAssignPlacesLayerOnFirstAvailablePreferred(t *testing.T) {
	g := graph.NewGraph()
	in := g.AddInput("in", f32(1, 4), 0)
	addRef, err := g.AddFloor("floor", in, 0)
	require.NoError(t, err)
	out := g.AddOutput("out", 0)
	require.NoError(t, g.Connect(addRef, 0, out, 0))
	require.NoError(t, g.InferTensorInfos(graph.InferAndValidate))

	reg := backend.NewRegistry()
	gpu := newStub("gpu")
	cpu := newStub("reference-cpu")
	reg.Register(gpu)
	reg.Register(cpu)

	sink := diag.NewSink(nil)
	err = Assign(g, reg, []string{"gpu", "reference-cpu"}, map[string]bool{"gpu": true, "reference-cpu": true}, nil, nil, Options{}, sink)
	require.NoError(t, err)
	assert.Equal(t, "gpu", g.Layer(addRef).Backend)
	assert.Equal(t, "gpu", g.Layer(in).Backend, "input backend copied from its consumer")
	assert.Equal(t, "gpu", g.Layer(out).Backend, "output backend copied from its producer")
}

func TestAssignFallsBackToSecondCandidateOnRejection(t *testing.T) {
	g := graph.NewGraph()
	in := g.AddInput("in", f32(1, 4), 0)
	floorRef, err := g.AddFloor("floor", in, 0)
	require.NoError(t, err)
	out := g.AddOutput("out", 0)
	require.NoError(t, g.Connect(floorRef, 0, out, 0))
	require.NoError(t, g.InferTensorInfos(graph.InferAndValidate))

	reg := backend.NewRegistry()
	gpu := newStub("gpu")
	gpu.rejectKinds = map[graph.Kind]bool{graph.KindFloor: true}
	cpu := newStub("reference-cpu")
	reg.Register(gpu)
	reg.Register(cpu)

	sink := diag.NewSink(nil)
	err = Assign(g, reg, []string{"gpu", "reference-cpu"}, map[string]bool{"gpu": true, "reference-cpu": true}, nil, nil, Options{}, sink)
	require.NoError(t, err)
	assert.Equal(t, "reference-cpu", g.Layer(floorRef).Backend)
	assert.NotEmpty(t, sink.Entries())
}

func TestAssignFailsWhenNoCandidateAcceptsNonUtilityLayer(t *testing.T) {
	g := graph.NewGraph()
	in := g.AddInput("in", f32(1, 4), 0)
	floorRef, err := g.AddFloor("floor", in, 0)
	require.NoError(t, err)
	out := g.AddOutput("out", 0)
	require.NoError(t, g.Connect(floorRef, 0, out, 0))
	require.NoError(t, g.InferTensorInfos(graph.InferAndValidate))

	reg := backend.NewRegistry()
	gpu := newStub("gpu")
	gpu.rejectKinds = map[graph.Kind]bool{graph.KindFloor: true}
	reg.Register(gpu)

	sink := diag.NewSink(nil)
	err = Assign(g, reg, []string{"gpu"}, map[string]bool{"gpu": true}, nil, nil, Options{}, sink)
	require.Error(t, err)
	assert.True(t, sink.HasFailures())
}

func TestAssignUsesHintBeforePreferredList(t *testing.T) {
	g := graph.NewGraph()
	in := g.AddInput("in", f32(1, 4), 0)
	floorRef, err := g.AddFloor("floor", in, 0)
	require.NoError(t, err)
	out := g.AddOutput("out", 0)
	require.NoError(t, g.Connect(floorRef, 0, out, 0))
	require.NoError(t, g.InferTensorInfos(graph.InferAndValidate))

	reg := backend.NewRegistry()
	gpu := newStub("gpu")
	cpu := newStub("reference-cpu")
	reg.Register(gpu)
	reg.Register(cpu)

	sink := diag.NewSink(nil)
	hints := Hints{floorRef: "reference-cpu"}
	err = Assign(g, reg, []string{"gpu", "reference-cpu"}, map[string]bool{"gpu": true, "reference-cpu": true}, nil, hints, Options{}, sink)
	require.NoError(t, err)
	assert.Equal(t, "reference-cpu", g.Layer(floorRef).Backend)
	assert.Equal(t, "reference-cpu", g.Layer(floorRef).Hint)
}

func TestAssignRepairsFloat16ByInsertingConversions(t *testing.T) {
	g := graph.NewGraph()
	in := g.AddInput("in", graph.TensorInfo{Shape: graph.NewShape(1, 4), DType: graph.DTypeFloat16}, 0)
	floorRef, err := g.AddFloor("floor", in, 0)
	require.NoError(t, err)
	out := g.AddOutput("out", 0)
	require.NoError(t, g.Connect(floorRef, 0, out, 0))
	require.NoError(t, g.InferTensorInfos(graph.InferAndValidate))

	reg := backend.NewRegistry()
	gpu := newStub("gpu")
	gpu.rejectFloat16 = true
	gpu.acceptsFloat32 = true
	reg.Register(gpu)

	sink := diag.NewSink(nil)
	err = Assign(g, reg, []string{"gpu"}, map[string]bool{"gpu": true}, nil, nil, Options{ReduceFloat32ToFloat16: true}, sink)
	require.NoError(t, err)
	assert.Equal(t, "gpu", g.Layer(floorRef).Backend)

	producer, _ := g.Layer(floorRef).Inputs[0].Producer()
	castLayer := g.Layer(producer)
	require.Equal(t, graph.KindCast, castLayer.Kind, "a float16->float32 conversion should now sit between in and floor")
	upstream, _ := castLayer.Inputs[0].Producer()
	assert.Equal(t, in, upstream)
}

func TestCheckQuantizationScaleRejectsZeroScale(t *testing.T) {
	g := graph.NewGraph()
	in := g.AddInput("in", graph.TensorInfo{
		Shape: graph.NewShape(1, 4), DType: graph.DTypeQAsymmU8, HasQuant: true, QScale: 0,
	}, 0)
	floorRef, err := g.AddFloor("floor", in, 0)
	require.NoError(t, err)
	out := g.AddOutput("out", 0)
	require.NoError(t, g.Connect(floorRef, 0, out, 0))
	require.NoError(t, g.InferTensorInfos(graph.InferAndValidate))

	sink := diag.NewSink(nil)
	err = checkQuantizationScale(g.Layer(floorRef), sink)
	assert.Error(t, err)
}
