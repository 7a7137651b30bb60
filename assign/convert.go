// File: convert.go
// Role: the attempt-assignment subroutine (component 4.E) backend
// assignment calls for every candidate: probe support, and if a
// rejection is specifically a float16 objection, try to repair it by
// splicing explicit conversions around the layer instead of giving up
// on the candidate outright.
package assign

import (
	"strings"

	"github.com/katalvlaran/graphc/backend"
	"github.com/katalvlaran/graphc/diag"
	"github.com/katalvlaran/graphc/graph"
)

// attemptAssign tentatively assigns l to b and probes support. On a
// float16-specific rejection it tries the repair detour before giving
// up on this candidate; any other rejection is reported as a warning so
// the caller can move on to the next candidate.
func attemptAssign(g *graph.Graph, reg *backend.Registry, l *graph.Layer, b backend.Backend, available []string, opts Options, sink *diag.Sink) (outcome, error) {
	prevBackend := l.Backend
	l.Backend = b.ID()

	ok, reason := b.IsLayerSupported(l, nil)
	if ok {
		return outcomeOK, nil
	}

	if opts.ReduceFloat32ToFloat16 && mentionsFloat16(reason) && involvesFloat16(g, l) && !isConversionKind(l.Kind) {
		f32 := graph.DTypeFloat32
		if okF32, _ := b.IsLayerSupported(l, &f32); okF32 {
			if err := repairFloat16(g, reg, l, b, available, sink); err != nil {
				l.Backend = prevBackend
				return outcomeWarning, err
			}
			return outcomeOK, nil
		}
	}

	l.Backend = prevBackend
	sink.Warn(diag.KindRuntime, l.Name, b.ID(), "backend %s declined layer %s: %s", b.ID(), l.Name, reason)
	return outcomeWarning, nil
}

func mentionsFloat16(reason string) bool {
	return strings.Contains(strings.ToLower(reason), "float16")
}

func isConversionKind(k graph.Kind) bool {
	switch k {
	case graph.KindCast, graph.KindQuantize, graph.KindDequantize, graph.KindFakeQuantization:
		return true
	default:
		return false
	}
}

func involvesFloat16(g *graph.Graph, l *graph.Layer) bool {
	for _, in := range l.Inputs {
		if !in.Bound() {
			continue
		}
		producer, slot := in.Producer()
		if g.Layer(producer).Outputs[slot].Info.DType == graph.DTypeFloat16 {
			return true
		}
	}
	for _, out := range l.Outputs {
		if out.Info.DType == graph.DTypeFloat16 {
			return true
		}
	}
	return false
}

// repairFloat16 inserts a float16->float32 conversion ahead of every
// float16 input (rewriting a single-consumer constant producer in place
// instead of inserting one) and a float32->float16 conversion after
// every float16 output, then assigns each inserted conversion its own
// backend: the candidate first, otherwise the available-preferred list.
func repairFloat16(g *graph.Graph, reg *backend.Registry, l *graph.Layer, candidate backend.Backend, available []string, sink *diag.Sink) error {
	// Record which outputs are float16 before the input repairs re-infer
	// l's output infos.
	f16Out := make([]bool, len(l.Outputs))
	for i := range l.Outputs {
		f16Out[i] = l.Outputs[i].Info.DType == graph.DTypeFloat16
	}
	for slot := range l.Inputs {
		if !l.Inputs[slot].Bound() {
			continue
		}
		producer, prodSlot := l.Inputs[slot].Producer()
		pl := g.Layer(producer)
		if pl.Outputs[prodSlot].Info.DType != graph.DTypeFloat16 {
			continue
		}

		if pl.Kind == graph.KindConstant && len(pl.Outputs[prodSlot].Consumers()) == 1 {
			info := pl.Outputs[prodSlot].Info
			info.DType = graph.DTypeFloat32
			pl.Outputs[prodSlot].Info = info
			continue
		}

		convRef, err := g.AddCast("", producer, prodSlot, graph.QuantizeParams{TargetType: graph.DTypeFloat32})
		if err != nil {
			return err
		}
		if err := g.Rebind(l.Ref(), slot, convRef, 0); err != nil {
			return err
		}
		if err := g.InferTensorInfos(graph.InferAndValidate); err != nil {
			return err
		}
		assignConversionBackend(reg, g.Layer(convRef), candidate, available, sink)
	}

	for slot := range l.Outputs {
		out := &l.Outputs[slot]
		if !f16Out[slot] {
			continue
		}
		downstream := out.Consumers()
		if len(downstream) == 0 {
			out.Info.DType = graph.DTypeFloat32
			continue
		}

		out.Info.DType = graph.DTypeFloat32
		convRef, err := g.AddCast("", l.Ref(), slot, graph.QuantizeParams{TargetType: graph.DTypeFloat16})
		if err != nil {
			return err
		}
		for _, c := range downstream {
			if err := g.Rebind(c.Layer, c.Slot, convRef, 0); err != nil {
				return err
			}
		}
		if err := g.InferTensorInfos(graph.InferAndValidate); err != nil {
			return err
		}
		assignConversionBackend(reg, g.Layer(convRef), candidate, available, sink)
	}

	return nil
}

// assignConversionBackend places an inserted conversion layer on the
// candidate backend if it accepts it, otherwise the first backend in
// available that does.
func assignConversionBackend(reg *backend.Registry, l *graph.Layer, candidate backend.Backend, available []string, sink *diag.Sink) {
	if ok, _ := candidate.IsLayerSupported(l, nil); ok {
		l.Backend = candidate.ID()
		return
	}
	for _, id := range available {
		if id == candidate.ID() {
			continue
		}
		b, found := reg.Lookup(id)
		if !found {
			continue
		}
		if ok, _ := b.IsLayerSupported(l, nil); ok {
			l.Backend = id
			return
		}
	}
	sink.Warn(diag.KindRuntime, l.Name, "", "no available backend accepted inserted conversion %s", l.Name)
}
