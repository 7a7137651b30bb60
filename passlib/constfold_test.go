package passlib

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/graphc/graph"
	"github.com/katalvlaran/graphc/pass"
)

func encodeFloat32s(vals ...float32) []byte {
	out := make([]byte, len(vals)*4)
	for i, v := range vals {
		bits := math.Float32bits(v)
		out[i*4] = byte(bits)
		out[i*4+1] = byte(bits >> 8)
		out[i*4+2] = byte(bits >> 16)
		out[i*4+3] = byte(bits >> 24)
	}
	return out
}

func decodeFloat32s(t *testing.T, data []byte) []float32 {
	t.Helper()
	require.Equal(t, 0, len(data)%4)
	out := make([]float32, len(data)/4)
	for i := range out {
		bits := uint32(data[i*4]) | uint32(data[i*4+1])<<8 | uint32(data[i*4+2])<<16 | uint32(data[i*4+3])<<24
		out[i] = math.Float32frombits(bits)
	}
	return out
}

func TestFoldConstantDequantize(t *testing.T) {
	g := graph.NewGraph()
	info := graph.TensorInfo{
		Shape: graph.NewShape(3), DType: graph.DTypeQAsymmU8,
		HasQuant: true, QScale: 0.5, QOffset: 10,
	}
	constRef := g.AddConstant("scale", info, []byte{10, 12, 20})
	deqRef, err := g.AddDequantize("deq", constRef, 0)
	require.NoError(t, err)
	out := g.AddOutput("out", 0)
	require.NoError(t, g.Connect(deqRef, 0, out, 0))
	require.NoError(t, g.InferTensorInfos(graph.InferAndValidate))

	res := applyUntilChange(t, g, FoldConstantDequantize{}, constRef)
	assert.Equal(t, pass.Substituted, res)

	producer, prodSlot := g.Layer(out).Inputs[0].Producer()
	assert.Equal(t, constRef, producer)
	newInfo := g.Layer(constRef).Outputs[prodSlot].Info
	assert.Equal(t, graph.DTypeFloat32, newInfo.DType)
	assert.False(t, newInfo.HasQuant)

	data, ok := g.ConstantData(constRef)
	require.True(t, ok)
	vals := decodeFloat32s(t, data)
	assert.InDeltaSlice(t, []float32{0, 1, 5}, vals, 1e-6)
}

func TestFuseConstantPermute(t *testing.T) {
	g := graph.NewGraph()
	// 2x3 row-major float32 matrix: [[1,2,3],[4,5,6]].
	info := f32(2, 3)
	data := encodeFloat32s(1, 2, 3, 4, 5, 6)
	constRef := g.AddConstant("mat", info, data)
	permRef, err := g.AddPermute("transpose", constRef, 0, graph.PermuteParams{Perm: []uint32{1, 0}})
	require.NoError(t, err)
	out := g.AddOutput("out", 0)
	require.NoError(t, g.Connect(permRef, 0, out, 0))
	require.NoError(t, g.InferTensorInfos(graph.InferAndValidate))

	res := applyUntilChange(t, g, FuseConstantPermute{}, constRef)
	assert.Equal(t, pass.Substituted, res)

	producer, prodSlot := g.Layer(out).Inputs[0].Producer()
	assert.Equal(t, constRef, producer)
	newInfo := g.Layer(constRef).Outputs[prodSlot].Info
	assert.Equal(t, []uint32{3, 2}, newInfo.Shape.Dims)

	newData, ok := g.ConstantData(constRef)
	require.True(t, ok)
	// Transposed: [[1,4],[2,5],[3,6]].
	assert.InDeltaSlice(t, []float32{1, 4, 2, 5, 3, 6}, decodeFloat32s(t, newData), 1e-6)
}

