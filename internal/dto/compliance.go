package dto

import "image/color"

// DefaultThreshold is the confidence a box has to exceed to count.
const DefaultThreshold = 0.5

var (
	ColorMissing = color.RGBA{R: 255, A: 255}
	ColorWorn    = color.RGBA{G: 255, A: 255}
	ColorOther   = color.RGBA{B: 255, A: 255}
	ColorText    = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// ComplianceResult is the outcome of one compliance analysis.
type ComplianceResult struct {
	Image              []byte
	AllRequiredPresent bool
	Boxes              []DetectionBox
}

// MissingItems lists the missing-item labels above threshold, once each.
func (r ComplianceResult) MissingItems(threshold float64) []string {
	seen := make(map[Label]bool)
	var items []string
	for _, b := range r.Boxes {
		if b.Confidence > threshold && b.Label.Missing() && !seen[b.Label] {
			seen[b.Label] = true
			items = append(items, b.Label.String())
		}
	}
	return items
}

// AllRequiredPresent is false when any box above threshold carries a
// missing-item label. The comparison is strict: c == threshold does not count.
func AllRequiredPresent(boxes []DetectionBox, threshold float64) bool {
	for _, b := range boxes {
		if b.Confidence > threshold && b.Label.Missing() {
			return false
		}
	}
	return true
}

// Visible filters boxes down to the ones that get drawn.
func Visible(boxes []DetectionBox, threshold float64) []DetectionBox {
	var out []DetectionBox
	for _, b := range boxes {
		if b.Confidence > threshold {
			out = append(out, b)
		}
	}
	return out
}

// BoxColor picks the annotation colour for a compliance label.
func BoxColor(l Label) color.RGBA {
	switch {
	case l.Missing():
		return ColorMissing
	case l.Worn():
		return ColorWorn
	}
	return ColorOther
}

// Annotation is one rectangle with caption to draw on a frame.
type Annotation struct {
	Box     DetectionBox
	Color   color.RGBA
	Caption string
}
