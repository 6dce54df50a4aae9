package guide

import "fmt"

// scalarFields is the number of single-string fields at the head of a
// flattened guide.
const scalarFields = 5

// Layout records the list lengths of a flattened guide so the translated
// sequence can be split back along the same boundaries.
type Layout struct {
	Tools       int `json:"tools"`
	Materials   int `json:"materials"`
	Warnings    int `json:"warnings"`
	Steps       int `json:"steps"`
	Maintenance int `json:"maintenance"`
}

// Total is the flattened length described by the layout.
func (l Layout) Total() int {
	return scalarFields + l.Tools + l.Materials + l.Warnings + l.Steps + l.Maintenance
}

// Flatten emits every translatable string of g in a fixed order: the five
// scalar fields, then tools, materials, warnings, step descriptions and
// maintenance tips.
func Flatten(g *RepairGuide) ([]string, Layout) {
	layout := Layout{
		Tools:       len(g.RequiredTools),
		Materials:   len(g.RequiredMaterials),
		Warnings:    len(g.SafetyWarnings),
		Steps:       len(g.RepairSteps),
		Maintenance: len(g.PreventativeMaintenance),
	}
	out := make([]string, 0, layout.Total())
	out = append(out, g.Diagnosis, g.EstimatedCost, g.MachineDowntime, g.ManualLaborTime, g.PartAvailability)
	out = append(out, g.RequiredTools...)
	out = append(out, g.RequiredMaterials...)
	out = append(out, g.SafetyWarnings...)
	for _, s := range g.RepairSteps {
		out = append(out, s.Description)
	}
	out = append(out, g.PreventativeMaintenance...)
	return out, layout
}

// Unflatten rebuilds a guide from translated strings. Step bounding boxes
// are carried over from src. A length mismatch is an error, never a partial
// reassembly.
func Unflatten(src *RepairGuide, layout Layout, translated []string) (*RepairGuide, error) {
	if len(translated) != layout.Total() {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrTranslationCount, len(translated), layout.Total())
	}
	if len(src.RepairSteps) != layout.Steps {
		return nil, fmt.Errorf("%w: source has %d steps, layout has %d", ErrTranslationCount, len(src.RepairSteps), layout.Steps)
	}

	pos := 0
	next := func(n int) []string {
		part := make([]string, n)
		copy(part, translated[pos:pos+n])
		pos += n
		return part
	}

	head := next(scalarFields)
	out := &RepairGuide{
		Diagnosis:        head[0],
		EstimatedCost:    head[1],
		MachineDowntime:  head[2],
		ManualLaborTime:  head[3],
		PartAvailability: head[4],
	}
	out.RequiredTools = next(layout.Tools)
	out.RequiredMaterials = next(layout.Materials)
	out.SafetyWarnings = next(layout.Warnings)

	descs := next(layout.Steps)
	out.RepairSteps = make([]RepairStep, layout.Steps)
	for i, d := range descs {
		out.RepairSteps[i].Description = d
		if box := src.RepairSteps[i].BoundingBox; box != nil {
			b := *box
			out.RepairSteps[i].BoundingBox = &b
		}
	}
	out.PreventativeMaintenance = next(layout.Maintenance)
	return out, nil
}
