package guide

import "fmt"

// WithStepBox returns a copy of g with step index's box replaced by box, or
// cleared when box is nil. changed is false when the edit would leave the
// guide as it is, in which case g itself is returned.
func WithStepBox(g *RepairGuide, index int, box *BoundingBox) (out *RepairGuide, changed bool, err error) {
	if g == nil || index < 0 || index >= len(g.RepairSteps) {
		return g, false, NewValidationError("step", fmt.Sprintf("%d", index), ErrStepIndex)
	}
	if box != nil && !box.Valid() {
		return g, false, NewValidationError("boundingBox", fmt.Sprintf("%+v", *box), ErrBoundingBox)
	}

	cur := g.RepairSteps[index].BoundingBox
	switch {
	case cur == nil && box == nil:
		return g, false, nil
	case cur != nil && box != nil && *cur == *box:
		return g, false, nil
	}

	out = g.Clone()
	if box == nil {
		out.RepairSteps[index].BoundingBox = nil
	} else {
		b := *box
		out.RepairSteps[index].BoundingBox = &b
	}
	return out, true, nil
}
