// Package decode turns raw detection network output into boxes in image
// coordinates. It has no OpenCV dependency.
package decode

import (
	"fmt"
	"strings"
)

// Format names the output layout of a detection network.
type Format string

const (
	// SSD output is rows of [batch, class, confidence, left, top, right, bottom]
	// with coordinates relative to the image (0..1), e.g. SSD MobileNet exports.
	SSD Format = "ssd"
	// YOLO output is [1, 4+classes, candidates]: cx, cy, w, h in input pixels
	// followed by one score per class, e.g. YOLOv8 ONNX exports.
	YOLO Format = "yolo"
)

// ParseFormat accepts "ssd" or "yolo", case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case SSD, YOLO:
		return f, nil
	}
	return "", fmt.Errorf("unknown model format %q (want %q or %q)", s, SSD, YOLO)
}

// Candidate is one decoded box before class mapping and overlap suppression.
type Candidate struct {
	Class      int
	Confidence float64
	X1, Y1     int
	X2, Y2     int
}

// SSDRows decodes SSD output for an image of width x height.
func SSDRows(data []float32, width, height int) ([]Candidate, error) {
	if len(data)%7 != 0 {
		return nil, fmt.Errorf("unexpected SSD output size %d, want rows of 7", len(data))
	}

	w, h := float32(width), float32(height)
	out := make([]Candidate, 0, len(data)/7)
	for i := 0; i+7 <= len(data); i += 7 {
		row := data[i : i+7]
		out = append(out, Candidate{
			Class:      int(row[1]),
			Confidence: float64(row[2]),
			X1:         int(row[3] * w),
			Y1:         int(row[4] * h),
			X2:         int(row[5] * w),
			Y2:         int(row[6] * h),
		})
	}
	return out, nil
}

// YOLOOutput decodes YOLO output of shape dims for an image of width x height
// that was resized to inputSize x inputSize. Candidates whose best class score
// does not reach minConfidence are dropped.
func YOLOOutput(data []float32, dims []int, inputSize, width, height int, minConfidence float64) ([]Candidate, error) {
	if len(dims) != 3 || dims[0] != 1 || dims[1] < 5 {
		return nil, fmt.Errorf("unexpected YOLO output shape %v, want [1, 4+classes, candidates]", dims)
	}
	channels, n := dims[1], dims[2]
	if len(data) != channels*n {
		return nil, fmt.Errorf("YOLO output has %d values, shape %v needs %d", len(data), dims, channels*n)
	}
	if inputSize <= 0 {
		return nil, fmt.Errorf("invalid input size %d", inputSize)
	}

	sx := float32(width) / float32(inputSize)
	sy := float32(height) / float32(inputSize)
	at := func(ch, i int) float32 { return data[ch*n+i] }

	var out []Candidate
	for i := 0; i < n; i++ {
		best, score := 0, float32(0)
		for c := 0; c < channels-4; c++ {
			if v := at(4+c, i); v > score {
				best, score = c, v
			}
		}
		if float64(score) < minConfidence {
			continue
		}

		cx, cy, bw, bh := at(0, i), at(1, i), at(2, i), at(3, i)
		out = append(out, Candidate{
			Class:      best,
			Confidence: float64(score),
			X1:         int((cx - bw/2) * sx),
			Y1:         int((cy - bh/2) * sy),
			X2:         int((cx + bw/2) * sx),
			Y2:         int((cy + bh/2) * sy),
		})
	}
	return out, nil
}
