package live

import (
	"errors"
	"fmt"
	"strings"
)

// CaptureMode selects what the capture view does with the camera.
type CaptureMode string

const (
	ModeImage CaptureMode = "image"
	ModeVideo CaptureMode = "video"
	ModeAR    CaptureMode = "ar"
)

// ParseCaptureMode parses a mode name, case-insensitively.
func ParseCaptureMode(s string) (CaptureMode, error) {
	switch m := CaptureMode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeImage, ModeVideo, ModeAR:
		return m, nil
	}
	return "", fmt.Errorf("unknown capture mode %q", s)
}

// Live reports whether the mode runs a detection session.
func (m CaptureMode) Live() bool { return m == ModeAR }

// ErrUnsupportedControl is returned for a control the device did not report.
var ErrUnsupportedControl = errors.New("camera control not supported by this device")

// Range is the span a device reports for a continuous control.
type Range struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Step float64 `json:"step,omitempty"`
}

func (r Range) clamp(v float64) float64 {
	if v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}

// Capabilities describes the optional hardware controls of a camera track.
// A nil range means the control is absent.
type Capabilities struct {
	Torch bool   `json:"torch"`
	Zoom  *Range `json:"zoom,omitempty"`
	Pan   *Range `json:"pan,omitempty"`
	Tilt  *Range `json:"tilt,omitempty"`
}

// Controls is a partial control request. Nil fields are left unchanged.
type Controls struct {
	Torch *bool    `json:"torch,omitempty"`
	Zoom  *float64 `json:"zoom,omitempty"`
	Pan   *float64 `json:"pan,omitempty"`
	Tilt  *float64 `json:"tilt,omitempty"`
}

// Apply checks req against the capabilities. Requests for absent controls
// fail with ErrUnsupportedControl; zoom, pan and tilt are clamped into range.
func (c Capabilities) Apply(req Controls) (Controls, error) {
	var out Controls
	if req.Torch != nil {
		if !c.Torch {
			return Controls{}, fmt.Errorf("torch: %w", ErrUnsupportedControl)
		}
		v := *req.Torch
		out.Torch = &v
	}

	continuous := []struct {
		name string
		rng  *Range
		in   *float64
		out  **float64
	}{
		{"zoom", c.Zoom, req.Zoom, &out.Zoom},
		{"pan", c.Pan, req.Pan, &out.Pan},
		{"tilt", c.Tilt, req.Tilt, &out.Tilt},
	}
	for _, ctl := range continuous {
		if ctl.in == nil {
			continue
		}
		if ctl.rng == nil {
			return Controls{}, fmt.Errorf("%s: %w", ctl.name, ErrUnsupportedControl)
		}
		v := ctl.rng.clamp(*ctl.in)
		*ctl.out = &v
	}
	return out, nil
}
