package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/graphc/graph"
	"github.com/katalvlaran/graphc/handle"
	"github.com/katalvlaran/graphc/subgraph"
)

type fakeBackend struct {
	id                string
	accelerated       bool
	supportAll        bool
	unsupportedReason string
}

func (b *fakeBackend) ID() string { return b.id }

func (b *fakeBackend) IsLayerSupported(l *graph.Layer, dtypeOverride *graph.DataType) (bool, string) {
	if b.supportAll {
		return true, ""
	}
	return false, b.unsupportedReason
}

func (b *fakeBackend) HandleFactoryPreferences() []string { return []string{b.id + "-tensor"} }

func (b *fakeBackend) OptimizeSubgraph(v subgraph.View, opts ModelOptions) (subgraph.OptimizationViews, error) {
	return subgraph.OptimizationViews{}, nil
}

func (b *fakeBackend) RegisterHandleFactories(reg *handle.Registry) {}

func (b *fakeBackend) Accelerated() bool { return b.accelerated }

func TestRegistryPreservesRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	gpu := &fakeBackend{id: "gpu", supportAll: true, accelerated: true}
	cpu := &fakeBackend{id: "reference-cpu", supportAll: true}
	r.Register(gpu)
	r.Register(cpu)

	assert.Equal(t, []string{"gpu", "reference-cpu"}, r.Order())

	got, ok := r.Lookup("gpu")
	require.True(t, ok)
	assert.Same(t, gpu, got)
}

func TestIsReferenceCPUMatchesByID(t *testing.T) {
	cpu := &fakeBackend{id: ReferenceCPUID, supportAll: true}
	gpu := &fakeBackend{id: "gpu", supportAll: true}
	assert.True(t, IsReferenceCPU(cpu))
	assert.False(t, IsReferenceCPU(gpu))
	assert.False(t, IsReferenceCPU(nil))
}
