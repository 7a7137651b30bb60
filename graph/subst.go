// File: subst.go
// Role: Atomic subgraph substitution, the only structural edit that
// changes more than one layer's connections at once.
package graph

import "fmt"

// ExternalView describes the external signature of a connected region:
// its ordered external input slots (consumer side, bound to a producer
// outside the view) and its ordered external output slots (producer
// side, feeding a consumer outside the view). Both SubstituteSubgraph
// arguments must expose the same signature by multiplicity and
// TensorInfo.
type ExternalView struct {
	Inputs  []ExternalInput
	Outputs []ExternalOutput
}

// ExternalInput names one externally-bound InputSlot of the view.
type ExternalInput struct {
	Layer LayerRef
	Slot  int
}

// ExternalOutput names one OutputSlot of the view that feeds at least
// one consumer outside the view.
type ExternalOutput struct {
	Layer LayerRef
	Slot  int
}

func signature(g *Graph, v ExternalView) ([]TensorInfo, []TensorInfo, error) {
	ins := make([]TensorInfo, len(v.Inputs))
	for i, e := range v.Inputs {
		l := g.Layer(e.Layer)
		if l == nil || e.Slot < 0 || e.Slot >= len(l.Inputs) {
			return nil, nil, fmt.Errorf("%w: external input out of range", ErrInvalidArgument)
		}
		if !l.Inputs[e.Slot].bound {
			return nil, nil, fmt.Errorf("%w: external input unbound", ErrInvalidArgument)
		}
		pl := g.Layer(l.Inputs[e.Slot].producer)
		ins[i] = pl.Outputs[l.Inputs[e.Slot].prodSlot].Info
	}
	outs := make([]TensorInfo, len(v.Outputs))
	for i, e := range v.Outputs {
		l := g.Layer(e.Layer)
		if l == nil || e.Slot < 0 || e.Slot >= len(l.Outputs) {
			return nil, nil, fmt.Errorf("%w: external output out of range", ErrInvalidArgument)
		}
		outs[i] = l.Outputs[e.Slot].Info
	}
	return ins, outs, nil
}

// SubstituteSubgraph atomically replaces oldView with newView. Both
// views must expose the same ordered external input/output slots by
// multiplicity and TensorInfo (ErrSignatureMismatch otherwise). On
// success every external consumer that pointed into oldView now points
// at the corresponding slot of newView, and oldView's layers are
// detached (eligible for Erase once nothing else references them); the
// caller is responsible for erasing now-dangling interior layers of
// oldView if it owns no other references to them.
func (g *Graph) SubstituteSubgraph(oldView, newView ExternalView) error {
	if len(oldView.Inputs) != len(newView.Inputs) || len(oldView.Outputs) != len(newView.Outputs) {
		return ErrSignatureMismatch
	}
	oldIns, oldOuts, err := signature(g, oldView)
	if err != nil {
		return err
	}
	newIns, newOuts, err := signature(g, newView)
	if err != nil {
		return err
	}
	for i := range oldIns {
		if !oldIns[i].Equal(newIns[i]) {
			return fmt.Errorf("%w: external input %d", ErrSignatureMismatch, i)
		}
	}
	for i := range oldOuts {
		if !oldOuts[i].Equal(newOuts[i]) {
			return fmt.Errorf("%w: external output %d", ErrSignatureMismatch, i)
		}
	}

	g.muSlots.Lock()
	defer g.muSlots.Unlock()

	// Rewire every external consumer of oldView's outputs onto newView's
	// corresponding output.
	for i, oldOut := range oldView.Outputs {
		oldLayer := g.layers[oldOut.Layer]
		newOut := newView.Outputs[i]
		newLayer := g.layers[newOut.Layer]
		oslot := &oldLayer.Outputs[oldOut.Slot]
		nslot := &newLayer.Outputs[newOut.Slot]
		for _, c := range oslot.consumers {
			// Only rewire consumers that are external to oldView.
			if inView(oldView, c.layer, c.slot, true) {
				continue
			}
			cl := g.layers[c.layer]
			cl.Inputs[c.slot].producer = newOut.Layer
			cl.Inputs[c.slot].prodSlot = newOut.Slot
			nslot.consumers = append(nslot.consumers, c)
		}
		oslot.consumers = nil
	}

	// Rewire newView's external inputs onto oldView's original producers.
	for i, newIn := range newView.Inputs {
		oldIn := oldView.Inputs[i]
		oldLayer := g.layers[oldIn.Layer]
		producer := oldLayer.Inputs[oldIn.Slot].producer
		prodSlot := oldLayer.Inputs[oldIn.Slot].prodSlot
		newLayer := g.layers[newIn.Layer]
		newLayer.Inputs[newIn.Slot].bound = true
		newLayer.Inputs[newIn.Slot].producer = producer
		newLayer.Inputs[newIn.Slot].prodSlot = prodSlot
		pOut := &g.layers[producer].Outputs[prodSlot]
		pOut.consumers = append(pOut.consumers, consumerRef{layer: newIn.Layer, slot: newIn.Slot})
		// Detach the old binding so oldLayer no longer counts as a consumer.
		removeConsumerLocked(g.layers[producer], prodSlot, oldIn.Layer, oldIn.Slot)
		oldLayer.Inputs[oldIn.Slot].bound = false
	}

	return nil
}

func inView(v ExternalView, layer LayerRef, slot int, isInput bool) bool {
	// A consumer (layer, slot) is "external" to the view by construction
	// (callers build ExternalView.Outputs only from slots with outside
	// consumers), so inView here only needs to guard against the rare
	// case of a view output feeding another member of the same view —
	// which cannot happen for a valid ExternalView (such an edge would be
	// interior, not external). Kept defensive rather than assumed.
	for _, e := range v.Inputs {
		if e.Layer == layer {
			return true
		}
	}
	return false
}
