// Package assign implements backend assignment: walking the graph in
// topological order and, for every compute layer, picking the backend
// that will run it. It also owns the attempt-assignment subroutine's
// float16-repair detour, since the two are only ever invoked together.
package assign

import (
	"fmt"

	"github.com/katalvlaran/graphc/backend"
	"github.com/katalvlaran/graphc/diag"
	"github.com/katalvlaran/graphc/graph"
)

// Hints maps a layer to the backend id its builder asked for, keyed by
// LayerRef rather than Name since a caller may reuse names across
// layers.
type Hints map[graph.LayerRef]string

// Options carries the knobs Assign consults while placing a layer.
type Options struct {
	// ReduceFloat32ToFloat16 enables the attempt-assignment subroutine's
	// float16-repair detour (inserting explicit conversions around a
	// layer a backend rejects only because of float16).
	ReduceFloat32ToFloat16 bool
}

// outcome is the attempt-assignment subroutine's three-state result:
// ok commits the candidate, warningOnly lets the caller try the next
// candidate, error aborts the whole assignment.
type outcome uint8

const (
	outcomeOK outcome = iota
	outcomeWarning
)

// Assign walks g in topological order and places every compute layer on
// a backend, consulting reg, the ordered preferred list, the device's
// supported set, a set of backend ids to ignore, and any
// per-layer hints. Input layers take their backend from their first
// consumer and Output layers from their producer once every compute
// layer has one, since neither does any computation itself.
func Assign(
	g *graph.Graph,
	reg *backend.Registry,
	preferred []string,
	supported map[string]bool,
	ignored map[string]bool,
	hints Hints,
	opts Options,
	sink *diag.Sink,
) error {
	available := availablePreferred(preferred, supported, ignored)
	if len(available) == 0 {
		err := fmt.Errorf("%w: no preferred backend remains available", graph.ErrInvalidArgument)
		sink.Fail(diag.KindInvalidArgument, "", "", err)
		return err
	}

	order := g.TopologicalOrder()
	var inputRefs, outputRefs []graph.LayerRef

	for _, ref := range order {
		l := g.Layer(ref)
		if l == nil {
			continue
		}
		switch l.Kind {
		case graph.KindInput:
			inputRefs = append(inputRefs, ref)
			continue
		case graph.KindOutput:
			outputRefs = append(outputRefs, ref)
			continue
		}

		if err := checkQuantizationScale(l, sink); err != nil {
			sink.Fail(diag.KindLayerValidation, l.Name, "", err)
			return err
		}

		if err := assignLayer(g, reg, l, available, supported, ignored, hints, opts, sink); err != nil {
			return err
		}
	}

	for _, ref := range inputRefs {
		l := g.Layer(ref)
		consumers := l.Outputs[0].Consumers()
		if len(consumers) == 0 {
			continue
		}
		l.Backend = g.Layer(consumers[0].Layer).Backend
	}
	for _, ref := range outputRefs {
		l := g.Layer(ref)
		if !l.Inputs[0].Bound() {
			continue
		}
		producer, _ := l.Inputs[0].Producer()
		l.Backend = g.Layer(producer).Backend
	}
	return nil
}

// AssignSubset re-runs policy steps 4-7 for exactly the layers named by
// refs, leaving every other layer in g untouched. Used by the backend
// subgraph optimization driver to reassign a failed subgraph's member
// layers after growing its local ignored-backend set, without re-walking
// (and potentially re-placing) the rest of the graph.
func AssignSubset(
	g *graph.Graph,
	reg *backend.Registry,
	refs []graph.LayerRef,
	preferred []string,
	supported map[string]bool,
	ignored map[string]bool,
	hints Hints,
	opts Options,
	sink *diag.Sink,
) error {
	available := availablePreferred(preferred, supported, ignored)
	if len(available) == 0 {
		err := fmt.Errorf("%w: no preferred backend remains available", graph.ErrInvalidArgument)
		sink.Fail(diag.KindInvalidArgument, "", "", err)
		return err
	}
	for _, ref := range refs {
		l := g.Layer(ref)
		if l == nil || l.Kind == graph.KindInput || l.Kind == graph.KindOutput {
			continue
		}
		if err := checkQuantizationScale(l, sink); err != nil {
			sink.Fail(diag.KindLayerValidation, l.Name, "", err)
			return err
		}
		if err := assignLayer(g, reg, l, available, supported, ignored, hints, opts, sink); err != nil {
			return err
		}
	}
	return nil
}

func availablePreferred(preferred []string, supported, ignored map[string]bool) []string {
	out := make([]string, 0, len(preferred))
	for _, id := range preferred {
		if supported[id] && !ignored[id] {
			out = append(out, id)
		}
	}
	return out
}

// assignLayer implements policy steps 4-7: hint first, then the
// available-preferred list in order, then the utility-kind fallback.
func assignLayer(
	g *graph.Graph,
	reg *backend.Registry,
	l *graph.Layer,
	available []string,
	supported, ignored map[string]bool,
	hints Hints,
	opts Options,
	sink *diag.Sink,
) error {
	if hint, ok := hints[l.Ref()]; ok && hint != "" && supported[hint] && !ignored[hint] {
		if b, found := reg.Lookup(hint); found {
			res, err := attemptAssign(g, reg, l, b, available, opts, sink)
			if err != nil {
				sink.Fail(diag.KindRuntime, l.Name, hint, err)
				return err
			}
			if res == outcomeOK {
				l.Hint = hint
				l.Backend = hint
				return nil
			}
		}
	}

	for _, candidateID := range available {
		b, found := reg.Lookup(candidateID)
		if !found {
			continue
		}
		res, err := attemptAssign(g, reg, l, b, available, opts, sink)
		if err != nil {
			sink.Fail(diag.KindRuntime, l.Name, candidateID, err)
			return err
		}
		if res == outcomeOK {
			l.Backend = candidateID
			return nil
		}
	}

	if l.Kind.IsUtility() {
		if b, found := reg.Lookup(backend.ReferenceCPUID); found {
			if ok, _ := b.IsLayerSupported(l, nil); ok {
				l.Backend = backend.ReferenceCPUID
				sink.Warn(diag.KindRuntime, l.Name, backend.ReferenceCPUID,
					"utility layer %s fell back to reference-cpu after every preferred backend declined it", l.Kind)
				return nil
			}
		}
	}

	err := fmt.Errorf("%w: no backend accepted layer %s (%s)", graph.ErrLayerValidation, l.Name, l.Kind)
	sink.Fail(diag.KindLayerValidation, l.Name, "", err)
	return err
}

// softmaxDefaultScale/Offset mirror the graph package's shape-inference
// policy for a quantized Softmax output: scale 1/256, offset 0. Kept as
// a local constant because assign, not graph, is where the sink can log
// the correction as a warning rather than applying it silently.
const (
	softmaxDefaultScale  = float32(1.0 / 256.0)
	softmaxDefaultOffset = int32(0)
)

// checkQuantizationScale implements policy step 3: every quantized-
// asymmetric-uint8 output must carry a non-zero scale, and a Softmax
// output of that type must carry the fixed scale/offset pair (shape
// inference already enforces this silently; this is the point in the
// pipeline where a sink is available to record it as a warning).
func checkQuantizationScale(l *graph.Layer, sink *diag.Sink) error {
	for i := range l.Outputs {
		info := l.Outputs[i].Info
		if info.DType != graph.DTypeQAsymmU8 {
			continue
		}
		if l.Kind == graph.KindSoftmax {
			if !info.HasQuant || info.QScale != softmaxDefaultScale || info.QOffset != softmaxDefaultOffset {
				sink.Warn(diag.KindLayerValidation, l.Name, "",
					"qasymm_u8 softmax output %d scale/offset auto-corrected to %v/%v", i, softmaxDefaultScale, softmaxDefaultOffset)
				info.HasQuant = true
				info.QScale = softmaxDefaultScale
				info.QOffset = softmaxDefaultOffset
				l.Outputs[i].Info = info
			}
			continue
		}
		if info.HasQuant && info.QScale == 0 {
			return fmt.Errorf("%w: %s output %d: qasymm_u8 scale must be non-zero", graph.ErrLayerValidation, l.Name, i)
		}
	}
	return nil
}
