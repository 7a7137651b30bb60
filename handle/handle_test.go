package handle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/graphc/graph"
)

type fakeFactory struct {
	id          string
	mapUnmap    bool
	importFlags uint32
	exportFlags uint32
	padding     bool
}

func (f *fakeFactory) ID() string             { return f.id }
func (f *fakeFactory) SupportsMapUnmap() bool { return f.mapUnmap }
func (f *fakeFactory) ImportFlags() uint32    { return f.importFlags }
func (f *fakeFactory) ExportFlags() uint32    { return f.exportFlags }

func (f *fakeFactory) HasCapability(producer, consumer string, class CapabilityClass) bool {
	return class == CapPaddingRequired && f.padding
}

func (f *fakeFactory) CreateSubtensorHandle(parent Handle, shape graph.Shape, origin []uint32) (Handle, bool) {
	return Handle{FactoryID: f.id, Shape: shape, Origin: origin}, true
}

func TestRegistryRegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	f := &fakeFactory{id: "gpu-tensor", mapUnmap: true, exportFlags: 0x1}
	r.Register(f)

	got, ok := r.Lookup("gpu-tensor")
	require.True(t, ok)
	assert.Same(t, f, got)

	_, ok = r.Lookup("missing")
	assert.False(t, ok)
	assert.Contains(t, r.IDs(), "gpu-tensor")
}

func TestCreateSubtensorHandleCarriesShapeAndOrigin(t *testing.T) {
	f := &fakeFactory{id: "cpu-tensor"}
	parent := Handle{FactoryID: "cpu-tensor", Shape: graph.NewShape(4, 4)}
	h, ok := f.CreateSubtensorHandle(parent, graph.NewShape(2, 4), []uint32{2, 0})
	require.True(t, ok)
	assert.Equal(t, []uint32{2, 4}, h.Shape.Dims)
	assert.Equal(t, []uint32{2, 0}, h.Origin)
}
