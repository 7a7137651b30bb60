// File: shape_conv.go
// Role: shared shape rules for the convolution and pooling families
// output = 1 + floor((in + pad_low + pad_high -
// effective_kernel) / stride), effective kernel accounting for dilation.
package graph

import "fmt"

// effectiveKernel returns kernel + (kernel-1)*(dilation-1), the dilated
// receptive field size.
func effectiveKernel(kernel, dilation uint32) uint32 {
	if dilation == 0 {
		dilation = 1
	}
	return kernel + (kernel-1)*(dilation-1)
}

// convOutDim applies the shared convolution/pooling output-size formula
// for one spatial axis. Returns an error if the geometry is impossible
// (effective window larger than the padded input, or non-positive
// stride).
func convOutDim(in, padLow, padHigh, kernel, dilation, stride uint32, axis string) (uint32, error) {
	if stride == 0 {
		return 0, fmt.Errorf("%w: stride zero on axis %s (not a global-pooling request)", ErrLayerValidation, axis)
	}
	eff := effectiveKernel(kernel, dilation)
	padded := in + padLow + padHigh
	if eff > padded {
		return 0, fmt.Errorf("%w: kernel/stride geometry impossible on axis %s: effective kernel %d > padded input %d", ErrLayerValidation, axis, eff, padded)
	}
	return 1 + (padded-eff)/stride, nil
}

func inferConvolution2d(l *Layer, ins []TensorInfo) ([]TensorInfo, error) {
	if len(ins) < 1 {
		return nil, fmt.Errorf("%w: %s requires 1 input", ErrInvalidArgument, l.Name)
	}
	p, ok := l.Params.(Conv2DParams)
	if !ok {
		return nil, fmt.Errorf("%w: %s missing Conv2DParams", ErrInvalidArgument, l.Name)
	}
	in := ins[0].Shape
	if in.Rank() != 4 {
		return nil, fmt.Errorf("%w: %s expects rank-4 input, got rank %d", ErrLayerValidation, l.Name, in.Rank())
	}
	// NHWC.
	n, h, w := in.Dims[0], in.Dims[1], in.Dims[2]
	oh, err := convOutDim(h, p.PadTop, p.PadBottom, p.KernelH, p.DilationH, p.StrideH, "H")
	if err != nil {
		return nil, err
	}
	ow, err := convOutDim(w, p.PadLeft, p.PadRight, p.KernelW, p.DilationW, p.StrideW, "W")
	if err != nil {
		return nil, err
	}
	return []TensorInfo{{Shape: NewShape(n, oh, ow, p.OutChannels), DType: ins[0].DType, QScale: ins[0].QScale, QOffset: ins[0].QOffset, HasQuant: ins[0].HasQuant}}, nil
}

func inferDepthwiseConvolution2d(l *Layer, ins []TensorInfo) ([]TensorInfo, error) {
	if len(ins) < 1 {
		return nil, fmt.Errorf("%w: %s requires 1 input", ErrInvalidArgument, l.Name)
	}
	p, ok := l.Params.(Conv2DParams)
	if !ok {
		return nil, fmt.Errorf("%w: %s missing Conv2DParams", ErrInvalidArgument, l.Name)
	}
	in := ins[0].Shape
	if in.Rank() != 4 {
		return nil, fmt.Errorf("%w: %s expects rank-4 input, got rank %d", ErrLayerValidation, l.Name, in.Rank())
	}
	n, h, w, c := in.Dims[0], in.Dims[1], in.Dims[2], in.Dims[3]
	oh, err := convOutDim(h, p.PadTop, p.PadBottom, p.KernelH, p.DilationH, p.StrideH, "H")
	if err != nil {
		return nil, err
	}
	ow, err := convOutDim(w, p.PadLeft, p.PadRight, p.KernelW, p.DilationW, p.StrideW, "W")
	if err != nil {
		return nil, err
	}
	mult := p.DepthMultiplier
	if mult == 0 {
		mult = 1
	}
	return []TensorInfo{{Shape: NewShape(n, oh, ow, c*mult), DType: ins[0].DType, QScale: ins[0].QScale, QOffset: ins[0].QOffset, HasQuant: ins[0].HasQuant}}, nil
}

func inferConvolution3d(l *Layer, ins []TensorInfo) ([]TensorInfo, error) {
	if len(ins) < 1 {
		return nil, fmt.Errorf("%w: %s requires 1 input", ErrInvalidArgument, l.Name)
	}
	p, ok := l.Params.(Conv3DParams)
	if !ok {
		return nil, fmt.Errorf("%w: %s missing Conv3DParams", ErrInvalidArgument, l.Name)
	}
	in := ins[0].Shape
	if in.Rank() != 5 {
		return nil, fmt.Errorf("%w: %s expects rank-5 input, got rank %d", ErrLayerValidation, l.Name, in.Rank())
	}
	n, d, h, w := in.Dims[0], in.Dims[1], in.Dims[2], in.Dims[3]
	od, err := convOutDim(d, p.PadFront.Low, p.PadBack.High, p.KernelD, p.DilationD, p.StrideD, "D")
	if err != nil {
		return nil, err
	}
	oh, err := convOutDim(h, p.PadTop.Low, p.PadBottom.High, p.KernelH, p.DilationH, p.StrideH, "H")
	if err != nil {
		return nil, err
	}
	ow, err := convOutDim(w, p.PadLeft.Low, p.PadRight.High, p.KernelW, p.DilationW, p.StrideW, "W")
	if err != nil {
		return nil, err
	}
	return []TensorInfo{{Shape: NewShape(n, od, oh, ow, p.OutChannels), DType: ins[0].DType}}, nil
}

func poolOutDim(in, padLow, padHigh, kernel, stride uint32, axis string) (uint32, error) {
	return convOutDim(in, padLow, padHigh, kernel, 1, stride, axis)
}

func inferPooling2d(l *Layer, ins []TensorInfo) ([]TensorInfo, error) {
	if len(ins) < 1 {
		return nil, fmt.Errorf("%w: %s requires 1 input", ErrInvalidArgument, l.Name)
	}
	p, ok := l.Params.(Pooling2DParams)
	if !ok {
		return nil, fmt.Errorf("%w: %s missing Pooling2DParams", ErrInvalidArgument, l.Name)
	}
	in := ins[0].Shape
	if in.Rank() != 4 {
		return nil, fmt.Errorf("%w: %s expects rank-4 input, got rank %d", ErrLayerValidation, l.Name, in.Rank())
	}
	n, h, w, c := in.Dims[0], in.Dims[1], in.Dims[2], in.Dims[3]
	if p.Global {
		return []TensorInfo{{Shape: NewShape(n, 1, 1, c), DType: ins[0].DType}}, nil
	}
	oh, err := poolOutDim(h, p.PadTop, p.PadBottom, p.KernelH, p.StrideH, "H")
	if err != nil {
		return nil, err
	}
	ow, err := poolOutDim(w, p.PadLeft, p.PadRight, p.KernelW, p.StrideW, "W")
	if err != nil {
		return nil, err
	}
	return []TensorInfo{{Shape: NewShape(n, oh, ow, c), DType: ins[0].DType}}, nil
}

func inferPooling3d(l *Layer, ins []TensorInfo) ([]TensorInfo, error) {
	if len(ins) < 1 {
		return nil, fmt.Errorf("%w: %s requires 1 input", ErrInvalidArgument, l.Name)
	}
	p, ok := l.Params.(Pooling2DParams)
	if !ok {
		return nil, fmt.Errorf("%w: %s missing Pooling2DParams", ErrInvalidArgument, l.Name)
	}
	in := ins[0].Shape
	if in.Rank() != 5 {
		return nil, fmt.Errorf("%w: %s expects rank-5 input, got rank %d", ErrLayerValidation, l.Name, in.Rank())
	}
	n, d, h, w, c := in.Dims[0], in.Dims[1], in.Dims[2], in.Dims[3], in.Dims[4]
	if p.Global {
		return []TensorInfo{{Shape: NewShape(n, 1, 1, 1, c), DType: ins[0].DType}}, nil
	}
	od, err := poolOutDim(d, p.PadFront, p.PadBack, p.KernelD, p.StrideD, "D")
	if err != nil {
		return nil, err
	}
	oh, err := poolOutDim(h, p.PadTop, p.PadBottom, p.KernelH, p.StrideH, "H")
	if err != nil {
		return nil, err
	}
	ow, err := poolOutDim(w, p.PadLeft, p.PadRight, p.KernelW, p.StrideW, "W")
	if err != nil {
		return nil, err
	}
	return []TensorInfo{{Shape: NewShape(n, od, oh, ow, c), DType: ins[0].DType}}, nil
}

func inferFullyConnected(l *Layer, ins []TensorInfo) ([]TensorInfo, error) {
	if len(ins) < 1 {
		return nil, fmt.Errorf("%w: %s requires 1 input", ErrInvalidArgument, l.Name)
	}
	p, ok := l.Params.(FullyConnectedParams)
	if !ok {
		return nil, fmt.Errorf("%w: %s missing FullyConnectedParams", ErrInvalidArgument, l.Name)
	}
	in := ins[0].Shape
	if in.Rank() < 1 {
		return nil, fmt.Errorf("%w: %s requires a ranked input", ErrLayerValidation, l.Name)
	}
	return []TensorInfo{{Shape: NewShape(in.Dims[0], p.OutputUnits), DType: ins[0].DType}}, nil
}
