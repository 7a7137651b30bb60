// File: add_resize.go
// Role: Resize/Pad/DetectionPostProcess constructors.
package graph

import "fmt"

func (g *Graph) AddResize(name string, in LayerRef, inSlot int, p ResizeParams) (LayerRef, error) {
	if p.TargetH == 0 || p.TargetW == 0 {
		return invalidRef, fmt.Errorf("%w: resize requires non-zero target dimensions", ErrInvalidArgument)
	}
	return addUnary(g, KindResize, name, in, inSlot, p)
}

func (g *Graph) AddPad(name string, in LayerRef, inSlot int, p PadParams) (LayerRef, error) {
	if len(p.Padding) == 0 {
		return invalidRef, fmt.Errorf("%w: pad requires at least 1 padding entry", ErrInvalidArgument)
	}
	return addUnary(g, KindPad, name, in, inSlot, p)
}

// AddDetectionPostProcess wires the 3 fixed runtime inputs (boxes,
// scores, anchors) into the 4 detection outputs (boxes, classes, scores,
// num-detections) kind.go's fixedArity already declares for
// KindDetectionPostProcess. The anchors constant named in p.Anchors is
// required; its absence fails immediately rather than waiting for
// InferTensorInfos.
func (g *Graph) AddDetectionPostProcess(name string, boxes, scores, anchors LayerRef, boxesSlot, scoresSlot, anchorsSlot int, p DetectionPostProcessParams) (LayerRef, error) {
	if p.Anchors == "" {
		return invalidRef, fmt.Errorf("%w: detection_post_process requires an anchors constant", ErrNullPointer)
	}
	ref, _ := g.addMust(KindDetectionPostProcess, name, p)
	if err := g.Connect(boxes, boxesSlot, ref, 0); err != nil {
		return invalidRef, err
	}
	if err := g.Connect(scores, scoresSlot, ref, 1); err != nil {
		return invalidRef, err
	}
	if err := g.Connect(anchors, anchorsSlot, ref, 2); err != nil {
		return invalidRef, err
	}
	return ref, nil
}
