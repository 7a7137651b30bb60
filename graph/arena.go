package graph

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// ConstantTensor is a reference-counted constant tensor buffer. Clones
// share storage by copying the id, not the Data slice (
// "Clones copy ids; rewrites allocate a new id and redirect").
type ConstantTensor struct {
	ID    string
	Info  TensorInfo
	Data  []byte
	refs  int32
}

// ConstantArena is an id -> *ConstantTensor store owned by a Graph. A
// pass that needs to rewrite a constant (e.g. the float16->float32
// narrowing repair) allocates a fresh id via Put rather than mutating
// the shared buffer in place.
type ConstantArena struct {
	tensors map[string]*ConstantTensor
}

// NewConstantArena returns an empty arena.
func NewConstantArena() *ConstantArena {
	return &ConstantArena{tensors: make(map[string]*ConstantTensor)}
}

// Put stores a freshly-allocated constant tensor and returns its id.
func (a *ConstantArena) Put(info TensorInfo, data []byte) string {
	id := uuid.NewString()
	a.tensors[id] = &ConstantTensor{ID: id, Info: info, Data: data, refs: 1}
	return id
}

// Get resolves an id to its tensor, or nil if unknown.
func (a *ConstantArena) Get(id string) *ConstantTensor {
	return a.tensors[id]
}

// Retain increments the reference count for a clone that now also
// points at id.
func (a *ConstantArena) Retain(id string) {
	if t := a.tensors[id]; t != nil {
		atomic.AddInt32(&t.refs, 1)
	}
}

// Release decrements the reference count and drops the tensor once it
// reaches zero.
func (a *ConstantArena) Release(id string) {
	t := a.tensors[id]
	if t == nil {
		return
	}
	if atomic.AddInt32(&t.refs, -1) <= 0 {
		delete(a.tensors, id)
	}
}

// String implements fmt.Stringer for diagnostics.
func (t *ConstantTensor) String() string {
	return fmt.Sprintf("const(%s, %s, %dB)", t.ID, t.Info.DType, len(t.Data))
}
