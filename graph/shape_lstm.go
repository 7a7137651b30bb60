// File: shape_lstm.go
// Role: shape/validation rules for the Lstm/QLstm family: the CIFG
// input-gate group is required when CIFG is disabled, and Peephole/
// Projection/LayerNorm must each be internally complete when enabled.
package graph

import "fmt"

// validateLstmGroups checks that every required optional group (the
// input-gate group when CIFG is disabled, and each enabled Peephole/
// Projection/LayerNorm group) carries its required constant ids,
// returning ErrNullPointer naming the first one missing.
func validateLstmGroups(l *Layer, p LstmParams) error {
	if !p.CifgEnabled {
		if p.Cifg == nil {
			return fmt.Errorf("%w: %s CIFG disabled but input-gate parameter group absent", ErrNullPointer, l.Name)
		}
		if p.Cifg.InputToInputWeights == "" || p.Cifg.RecurrentToInputW == "" || p.Cifg.InputGateBias == "" {
			return fmt.Errorf("%w: %s CIFG group missing a required weight/bias id", ErrNullPointer, l.Name)
		}
	}
	if p.PeepholeEnabled {
		if p.Peephole == nil {
			return fmt.Errorf("%w: %s peephole enabled but parameter group absent", ErrNullPointer, l.Name)
		}
		if p.Peephole.CellToForgetWeights == "" || p.Peephole.CellToOutputWeights == "" {
			return fmt.Errorf("%w: %s peephole group missing a required weight id", ErrNullPointer, l.Name)
		}
	}
	if p.ProjectionEnabled {
		if p.Projection == nil || p.Projection.ProjectionWeights == "" {
			return fmt.Errorf("%w: %s projection enabled but weights missing", ErrNullPointer, l.Name)
		}
	}
	if p.LayerNormEnabled {
		if p.LayerNorm == nil {
			return fmt.Errorf("%w: %s layer-norm enabled but parameter group absent", ErrNullPointer, l.Name)
		}
		ln := p.LayerNorm
		if ln.ForgetLayerNormWeights == "" || ln.CellLayerNormWeights == "" || ln.OutputLayerNormWeights == "" {
			return fmt.Errorf("%w: %s layer-norm group missing a required weight id", ErrNullPointer, l.Name)
		}
		if !p.CifgEnabled && ln.InputLayerNormWeights == "" {
			return fmt.Errorf("%w: %s layer-norm group missing input weights (CIFG disabled)", ErrNullPointer, l.Name)
		}
	}
	if p.InputToForgetWeights == "" || p.InputToCellWeights == "" || p.InputToOutputWeights == "" ||
		p.RecurrentToForgetW == "" || p.RecurrentToCellW == "" || p.RecurrentToOutputW == "" ||
		p.ForgetGateBias == "" || p.CellBias == "" || p.OutputGateBias == "" {
		return fmt.Errorf("%w: %s base LSTM group missing a required weight/bias id", ErrNullPointer, l.Name)
	}
	return nil
}

// inferLstm derives the scratch/state/output shapes from the input batch
// dimension and NumUnits. Projection's output width is assumed equal to
// NumUnits, since the projection weight matrix itself lives in the
// constant arena and is not consulted for its shape here.
func inferLstm(l *Layer, ins []TensorInfo) ([]TensorInfo, error) {
	if len(ins) < 1 {
		return nil, fmt.Errorf("%w: %s requires at least 1 input", ErrInvalidArgument, l.Name)
	}
	p, ok := l.Params.(LstmParams)
	if !ok {
		return nil, fmt.Errorf("%w: %s missing LstmParams", ErrInvalidArgument, l.Name)
	}
	if err := validateLstmGroups(l, p); err != nil {
		return nil, err
	}
	in := ins[0].Shape
	if in.Rank() < 1 {
		return nil, fmt.Errorf("%w: %s requires a ranked input", ErrLayerValidation, l.Name)
	}
	batch := in.Dims[0]
	numUnits := uint32(p.NumUnits)

	scratchGates := uint32(4)
	if p.CifgEnabled {
		scratchGates = 3
	}

	outs := make([]TensorInfo, len(l.Outputs))
	shapes := []Shape{
		NewShape(batch, scratchGates*numUnits), // scratch buffer
		NewShape(batch, numUnits),              // output state out
		NewShape(batch, numUnits),              // cell state out
		NewShape(batch, numUnits),              // output
	}
	for i := range outs {
		if i < len(shapes) {
			outs[i] = TensorInfo{Shape: shapes[i], DType: ins[0].DType}
		} else {
			outs[i] = TensorInfo{Shape: shapes[len(shapes)-1], DType: ins[0].DType}
		}
	}
	return outs, nil
}
