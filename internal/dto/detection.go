package dto

import (
	"fmt"
	"math"
)

// Label is a class of the compliance model. The person model reuses
// ClassPerson for its single COCO class.
type Label int

const (
	Hardhat Label = iota
	Mask
	NoHardhat
	NoMask
	NoSafetyVest
	Person
	SafetyVest
	Unknown Label = -1
)

// PersonClassID is the COCO class id of "person" in the person model output.
const PersonClassID = 0

var labelNames = map[Label]string{
	Hardhat:      "Hardhat",
	Mask:         "Mask",
	NoHardhat:    "NO-Hardhat",
	NoMask:       "NO-Mask",
	NoSafetyVest: "NO-Safety Vest",
	Person:       "Person",
	SafetyVest:   "Safety Vest",
}

// LabelForClass maps a compliance model class id to its Label.
func LabelForClass(classID int) Label {
	l := Label(classID)
	if _, ok := labelNames[l]; ok {
		return l
	}
	return Unknown
}

func (l Label) String() string {
	if name, ok := labelNames[l]; ok {
		return name
	}
	return "unknown"
}

// Missing reports whether the label flags a required item that is not worn.
func (l Label) Missing() bool {
	return l == NoHardhat || l == NoMask || l == NoSafetyVest
}

// Worn reports whether the label flags a required item that is worn.
func (l Label) Worn() bool {
	return l == Hardhat || l == Mask || l == SafetyVest
}

// DetectionBox is one labelled bounding box produced by an inference call.
// X1<=X2 and Y1<=Y2.
type DetectionBox struct {
	Label      Label
	ClassID    int
	Confidence float64
	X1         int
	Y1         int
	X2         int
	Y2         int
}

// Width returns the box width in pixels.
func (b DetectionBox) Width() int { return b.X2 - b.X1 }

// Height returns the box height in pixels.
func (b DetectionBox) Height() int { return b.Y2 - b.Y1 }

// Caption is the text drawn next to the box, e.g. "NO-Mask 0.87".
func (b DetectionBox) Caption() string {
	return fmt.Sprintf("%s %.2f", b.Label, b.Confidence)
}

// NewBox builds a box from raw detector output, normalising the corner order
// and rounding confidence up to two decimals.
func NewBox(classID int, label Label, confidence float64, x1, y1, x2, y2 int) DetectionBox {
	if x2 < x1 {
		x1, x2 = x2, x1
	}
	if y2 < y1 {
		y1, y2 = y2, y1
	}
	return DetectionBox{
		Label:      label,
		ClassID:    classID,
		Confidence: RoundConfidence(confidence),
		X1:         x1,
		Y1:         y1,
		X2:         x2,
		Y2:         y2,
	}
}

// RoundConfidence rounds c up to two decimals and clamps it into [0,1].
func RoundConfidence(c float64) float64 {
	r := math.Ceil(c*100) / 100
	switch {
	case r < 0:
		return 0
	case r > 1:
		return 1
	}
	return r
}
