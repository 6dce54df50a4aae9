package guide

import (
	"regexp"
	"strconv"
	"strings"
)

var durationPattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:-|to|–)?\s*(\d+(?:\.\d+)?)?\s*(minutes?|mins?|hours?|hrs?|h|days?|weeks?)\b`)

var unitHours = map[string]float64{
	"minute": 1.0 / 60, "minutes": 1.0 / 60, "min": 1.0 / 60, "mins": 1.0 / 60,
	"hour": 1, "hours": 1, "hr": 1, "hrs": 1, "h": 1,
	"day": 24, "days": 24,
	"week": 168, "weeks": 168,
}

// ParseHours extracts the upper bound of a free-text duration such as
// "2-3 hours" or "1 day". ok is false when no duration is recognised.
func ParseHours(s string) (hours float64, ok bool) {
	m := durationPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	num := m[1]
	if m[2] != "" {
		num = m[2]
	}
	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, false
	}
	return v * unitHours[strings.ToLower(m[3])], true
}

// LaborExceedsDowntime reports whether the guide's labor time is known to be
// longer than its downtime. Unparseable values are never a violation.
func (g *RepairGuide) LaborExceedsDowntime() bool {
	labor, ok := ParseHours(g.ManualLaborTime)
	if !ok {
		return false
	}
	downtime, ok := ParseHours(g.MachineDowntime)
	if !ok {
		return false
	}
	return labor > downtime
}
