// Package guide holds the repair guide domain model and the local rules that
// apply to it: submission validation, structural completeness, annotation
// edits and the flatten/unflatten layout used for translation.
package guide

import "time"

// BoundingBox is an image-relative rectangle with every component in [0,1].
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Valid reports whether all four components are inside the unit range.
func (b BoundingBox) Valid() bool {
	for _, v := range []float64{b.X, b.Y, b.Width, b.Height} {
		if v < 0 || v > 1 {
			return false
		}
	}
	return true
}

// RepairStep is one ordered instruction of a guide.
type RepairStep struct {
	Description string       `json:"description"`
	BoundingBox *BoundingBox `json:"boundingBox,omitempty"`
}

// RepairGuide is the structured recommendation returned by the model.
type RepairGuide struct {
	Diagnosis               string       `json:"diagnosis"`
	EstimatedCost           string       `json:"estimatedCost"`
	MachineDowntime         string       `json:"machineDowntime"`
	ManualLaborTime         string       `json:"manualLaborTime"`
	PartAvailability        string       `json:"partAvailability"`
	RequiredTools           []string     `json:"requiredTools"`
	RequiredMaterials       []string     `json:"requiredMaterials"`
	SafetyWarnings          []string     `json:"safetyWarnings"`
	RepairSteps             []RepairStep `json:"repairSteps"`
	PreventativeMaintenance []string     `json:"preventativeMaintenance"`
}

// Clone returns a deep copy so callers can edit without touching shared state.
func (g *RepairGuide) Clone() *RepairGuide {
	if g == nil {
		return nil
	}
	c := *g
	c.RequiredTools = cloneStrings(g.RequiredTools)
	c.RequiredMaterials = cloneStrings(g.RequiredMaterials)
	c.SafetyWarnings = cloneStrings(g.SafetyWarnings)
	c.PreventativeMaintenance = cloneStrings(g.PreventativeMaintenance)
	if g.RepairSteps != nil {
		c.RepairSteps = make([]RepairStep, len(g.RepairSteps))
		for i, s := range g.RepairSteps {
			c.RepairSteps[i] = RepairStep{Description: s.Description}
			if s.BoundingBox != nil {
				box := *s.BoundingBox
				c.RepairSteps[i].BoundingBox = &box
			}
		}
	}
	return &c
}

// StripBoxes removes every step bounding box in place.
func (g *RepairGuide) StripBoxes() {
	for i := range g.RepairSteps {
		g.RepairSteps[i].BoundingBox = nil
	}
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

// ArComponent is one component reported by live detection.
type ArComponent struct {
	Name        string      `json:"name"`
	BoundingBox BoundingBox `json:"boundingBox"`
}

// Chat roles.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// ChatMessage is one turn shown in the chat panel.
type ChatMessage struct {
	Role string    `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// Media is an uploaded image or video attached to a submission. Size is
// set when the upload was too large to keep and Data was discarded.
type Media struct {
	MIMEType string `json:"mime_type"`
	Name     string `json:"name,omitempty"`
	Size     int64  `json:"size,omitempty"`
	Data     []byte `json:"-"`
}

// Len reports the upload size in bytes.
func (m *Media) Len() int64 {
	if n := int64(len(m.Data)); n > m.Size {
		return n
	}
	return m.Size
}

// Submission is a problem report awaiting analysis.
type Submission struct {
	Description string
	Media       *Media
}
