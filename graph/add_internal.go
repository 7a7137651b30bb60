// File: add_internal.go
// Role: MemCopy/Import/Debug constructors used by the compatibility-layer
// inserter and debug-tap pass, plus the PreCompiled/StandIn/Fused
// constructors used by the driver and optimizer when a subgraph is
// replaced wholesale.
package graph

import "fmt"

// AddMemCopy and AddImport are unary layers spliced onto an existing edge
// by InsertBefore; callers typically don't Connect them directly.
func (g *Graph) AddMemCopy(name string) LayerRef {
	ref, _ := g.addMust(KindMemCopy, name, noParams{})
	return ref
}

func (g *Graph) AddImport(name string) LayerRef {
	ref, _ := g.addMust(KindImport, name, noParams{})
	return ref
}

func (g *Graph) AddDebug(name string, in LayerRef, inSlot int, p DebugParams) (LayerRef, error) {
	return addUnary(g, KindDebug, name, in, inSlot, p)
}

// AddPreCompiled creates a backend-opaque layer with the given arity; the
// backend driver is solely responsible for wiring its inputs/outputs
// after construction.
func (g *Graph) AddPreCompiled(name string, numIns, numOuts int, p PreCompiledParams) LayerRef {
	p.NumInputs, p.NumOutputs = numIns, numOuts
	ref, _ := g.newLayer(KindPreCompiled, name, numIns, numOuts, p)
	return ref
}

// AddStandIn creates a placeholder for an externally-defined kind the
// core does not interpret.
func (g *Graph) AddStandIn(name string, numIns, numOuts int, p StandInParams) LayerRef {
	p.NumInputs, p.NumOutputs = numIns, numOuts
	ref, _ := g.newLayer(KindStandIn, name, numIns, numOuts, p)
	return ref
}

// AddFused creates the result of an internal fusion pass, recording which
// original kinds it replaces in p.Origin for diagnostics.
func (g *Graph) AddFused(name string, numIns, numOuts int, p FusedParams) (LayerRef, error) {
	if len(p.Origin) == 0 {
		return invalidRef, fmt.Errorf("%w: fused layer requires a non-empty origin list", ErrInvalidArgument)
	}
	p.NumInputs, p.NumOutputs = numIns, numOuts
	ref, _ := g.newLayer(KindFused, name, numIns, numOuts, p)
	return ref, nil
}
