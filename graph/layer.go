package graph

// LayerRef is a stable index into a Graph's layer slab (
// "store layers in a slab owned by the graph, and reference them by
// stable indices", avoiding a layer/slot reference cycle). The zero
// value is never a valid reference; NewGraph never hands out index 0.
type LayerRef uint32

const invalidRef LayerRef = 0

// EdgeStrategy is the per-edge handshake policy chosen by the
// edge-strategy planner.
type EdgeStrategy uint8

const (
	// StrategyUndefined marks an edge the planner has not visited yet, or
	// could not resolve — a terminal StrategyUndefined fails the planner.
	StrategyUndefined EdgeStrategy = iota
	StrategyDirect
	StrategyExport
	StrategyCopy
)

func (s EdgeStrategy) String() string {
	switch s {
	case StrategyDirect:
		return "direct"
	case StrategyExport:
		return "export"
	case StrategyCopy:
		return "copy"
	default:
		return "undefined"
	}
}

// UnassignedBackend is the sentinel backend id every Layer starts with.
const UnassignedBackend = ""

// InputSlot holds at most one back-reference to a producing OutputSlot.
type InputSlot struct {
	owner    LayerRef
	index    int
	bound    bool
	producer LayerRef
	prodSlot int
}

// Bound reports whether this slot has a connected producer.
func (s *InputSlot) Bound() bool { return s.bound }

// Producer returns the (layer, slot-index) this input is bound to. Only
// meaningful when Bound() is true.
func (s *InputSlot) Producer() (LayerRef, int) { return s.producer, s.prodSlot }

// consumerRef names one InputSlot an OutputSlot feeds.
type consumerRef struct {
	layer    LayerRef
	slot     int
	strategy EdgeStrategy
}

// OutputSlot carries a TensorInfo, a chosen tensor-handle-factory id, and
// — in 1:1 correspondence with its consumer list — a per-edge strategy.
type OutputSlot struct {
	owner     LayerRef
	index     int
	Info      TensorInfo
	FactoryID string
	consumers []consumerRef
}

// Consumers returns the (layer, slot-index) pairs this output feeds, in
// the order edges were connected.
func (s *OutputSlot) Consumers() []struct {
	Layer LayerRef
	Slot  int
} {
	out := make([]struct {
		Layer LayerRef
		Slot  int
	}, len(s.consumers))
	for i, c := range s.consumers {
		out[i] = struct {
			Layer LayerRef
			Slot  int
		}{c.layer, c.slot}
	}
	return out
}

// Strategy returns the edge strategy recorded for the i-th consumer, or
// StrategyUndefined if i is out of range.
func (s *OutputSlot) Strategy(i int) EdgeStrategy {
	if i < 0 || i >= len(s.consumers) {
		return StrategyUndefined
	}
	return s.consumers[i].strategy
}

// SetStrategy records the edge strategy for the i-th consumer. Used only
// by the strategy package.
func (s *OutputSlot) SetStrategy(i int, strat EdgeStrategy) {
	if i >= 0 && i < len(s.consumers) {
		s.consumers[i].strategy = strat
	}
}

// Params is the marker interface every kind-specific parameter payload
// implements. It carries no methods beyond the marker because dispatch
// happens on Layer.Kind, per the tagged-sum-type design.
type Params interface {
	isLayerParams()
}

// Layer is a node in the computation graph: a closed Kind tag, a fixed
// arity (InputSlots/OutputSlots, sized once at construction and never
// resized thereafter — edits proceed by substitution), a mutable backend
// id, an optional hint, a diagnostic Name, and a kind-specific Params
// payload.
type Layer struct {
	ref     LayerRef
	Kind    Kind
	Name    string
	Backend string
	Hint    string
	Params  Params

	Inputs  []InputSlot
	Outputs []OutputSlot

	// constID, when non-empty, names the entry in the owning Graph's
	// ConstantArena holding this layer's constant value. Only Constant
	// layers carry one (set by AddConstant and RewriteConstant).
	constID string
}

// Ref returns this layer's stable reference within its owning Graph.
func (l *Layer) Ref() LayerRef { return l.ref }

// Arity returns (numInputs, numOutputs).
func (l *Layer) Arity() (int, int) { return len(l.Inputs), len(l.Outputs) }
