package dto

import "testing"

func TestAllRequiredPresent_ThresholdIsStrict(t *testing.T) {
	tests := []struct {
		name     string
		boxes    []DetectionBox
		expected bool
	}{
		{"no boxes", nil, true},
		{"missing at threshold", []DetectionBox{{Label: NoHardhat, Confidence: 0.5}}, true},
		{"missing above threshold", []DetectionBox{{Label: NoHardhat, Confidence: 0.51}}, false},
		{"missing below threshold", []DetectionBox{{Label: NoMask, Confidence: 0.3}}, true},
		{"worn items only", []DetectionBox{{Label: Hardhat, Confidence: 0.9}, {Label: SafetyVest, Confidence: 0.8}}, true},
		{"person is not missing", []DetectionBox{{Label: Person, Confidence: 0.99}}, true},
		{"unknown is not missing", []DetectionBox{{Label: Unknown, Confidence: 0.99}}, true},
		{"one of many missing", []DetectionBox{{Label: Hardhat, Confidence: 0.9}, {Label: NoSafetyVest, Confidence: 0.7}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AllRequiredPresent(tt.boxes, DefaultThreshold); got != tt.expected {
				t.Errorf("AllRequiredPresent() = %v, expected %v", got, tt.expected)
			}
		})
	}
}

func TestMissingItems(t *testing.T) {
	r := ComplianceResult{Boxes: []DetectionBox{
		{Label: NoMask, Confidence: 0.9},
		{Label: NoMask, Confidence: 0.7},
		{Label: NoHardhat, Confidence: 0.5},
		{Label: NoSafetyVest, Confidence: 0.6},
		{Label: Mask, Confidence: 0.9},
	}}

	items := r.MissingItems(DefaultThreshold)
	if len(items) != 2 {
		t.Fatalf("Expected 2 missing items, got %v", items)
	}
	if items[0] != "NO-Mask" || items[1] != "NO-Safety Vest" {
		t.Errorf("Unexpected missing items %v", items)
	}
}

func TestVisible(t *testing.T) {
	boxes := []DetectionBox{
		{Label: Hardhat, Confidence: 0.5},
		{Label: Mask, Confidence: 0.51},
		{Label: Unknown, Confidence: 0.8},
	}

	visible := Visible(boxes, DefaultThreshold)
	if len(visible) != 2 {
		t.Fatalf("Expected 2 visible boxes, got %d", len(visible))
	}
	if visible[0].Label != Mask || visible[1].Label != Unknown {
		t.Errorf("Unexpected visible boxes %+v", visible)
	}
}

func TestBoxColor(t *testing.T) {
	if BoxColor(NoSafetyVest) != ColorMissing {
		t.Error("Missing items should be red")
	}
	if BoxColor(Hardhat) != ColorWorn {
		t.Error("Worn items should be green")
	}
	if BoxColor(Person) != ColorOther || BoxColor(Unknown) != ColorOther {
		t.Error("Other classes should be blue")
	}
}
