package guide

import (
	"fmt"
	"strings"
)

// MaxMediaSize is the upload ceiling for submission media.
const MaxMediaSize = 50 * 1024 * 1024

var imageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

var videoTypes = map[string]bool{
	"video/mp4":       true,
	"video/webm":      true,
	"video/quicktime": true,
}

// AllowedMediaTypes lists every accepted MIME type.
func AllowedMediaTypes() []string {
	return []string{"image/jpeg", "image/png", "video/mp4", "video/webm", "video/quicktime"}
}

// NormalizeDescription trims surrounding whitespace.
func NormalizeDescription(s string) string {
	return strings.TrimSpace(s)
}

// ValidateDescription rejects empty and all-whitespace descriptions alike.
func ValidateDescription(s string) error {
	if NormalizeDescription(s) == "" {
		return NewValidationError("description", "", ErrEmptyDescription)
	}
	return nil
}

// ValidateMedia checks type and size. A nil media is valid.
func ValidateMedia(m *Media) error {
	if m == nil {
		return nil
	}
	mime := strings.ToLower(strings.TrimSpace(strings.SplitN(m.MIMEType, ";", 2)[0]))
	if !imageTypes[mime] && !videoTypes[mime] {
		return NewValidationError("media", m.MIMEType, ErrMediaType)
	}
	if m.Len() > MaxMediaSize {
		return NewValidationError("media", fmt.Sprintf("%d bytes", m.Len()), ErrMediaTooLarge)
	}
	return nil
}

// ValidateSubmission runs both checks independently and returns every
// failure, description first.
func ValidateSubmission(s Submission) []error {
	var errs []error
	if err := ValidateDescription(s.Description); err != nil {
		errs = append(errs, err)
	}
	if err := ValidateMedia(s.Media); err != nil {
		errs = append(errs, err)
	}
	return errs
}

// Validate reports whether every required field of the guide is present.
// Materials and maintenance may be empty; steps may not.
func (g *RepairGuide) Validate() error {
	if g == nil {
		return ErrIncompleteGuide
	}
	required := []struct{ field, value string }{
		{"diagnosis", g.Diagnosis},
		{"estimatedCost", g.EstimatedCost},
		{"machineDowntime", g.MachineDowntime},
		{"manualLaborTime", g.ManualLaborTime},
		{"partAvailability", g.PartAvailability},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return NewValidationError(r.field, "", ErrIncompleteGuide)
		}
	}
	if g.RequiredTools == nil {
		return NewValidationError("requiredTools", "", ErrIncompleteGuide)
	}
	if g.SafetyWarnings == nil {
		return NewValidationError("safetyWarnings", "", ErrIncompleteGuide)
	}
	if len(g.RepairSteps) == 0 {
		return NewValidationError("repairSteps", "", ErrIncompleteGuide)
	}
	for i, s := range g.RepairSteps {
		if strings.TrimSpace(s.Description) == "" {
			return NewValidationError(fmt.Sprintf("repairSteps[%d].description", i), "", ErrIncompleteGuide)
		}
		if s.BoundingBox != nil && !s.BoundingBox.Valid() {
			return NewValidationError(fmt.Sprintf("repairSteps[%d].boundingBox", i), "", ErrBoundingBox)
		}
	}
	return nil
}

// Normalize fills optional lists so a decoded guide always serializes with
// arrays rather than nulls.
func (g *RepairGuide) Normalize() {
	if g.RequiredMaterials == nil {
		g.RequiredMaterials = []string{}
	}
	if g.PreventativeMaintenance == nil {
		g.PreventativeMaintenance = []string{}
	}
}
