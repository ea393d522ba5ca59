package ai

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"ppemonitor/internal/dto"
)

const (
	boxThickness  = 3
	textScale     = 0.8
	textThickness = 2
	textPadding   = 6
	minTextTop    = 35
)

// Annotator draws labelled rectangles on JPEG frames.
type Annotator struct{}

// NewAnnotator creates an Annotator.
func NewAnnotator() *Annotator {
	return &Annotator{}
}

// Annotate draws every annotation and re-encodes the frame as JPEG.
func (a *Annotator) Annotate(img []byte, annotations []dto.Annotation) ([]byte, error) {
	if len(annotations) == 0 {
		return img, nil
	}

	mat, err := gocv.IMDecode(img, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	defer mat.Close()

	for _, an := range annotations {
		rect := image.Rect(an.Box.X1, an.Box.Y1, an.Box.X2, an.Box.Y2)
		if err := gocv.Rectangle(&mat, rect, an.Color, boxThickness); err != nil {
			return nil, fmt.Errorf("failed to draw rectangle: %w", err)
		}

		if an.Caption == "" {
			continue
		}
		if err := drawCaption(&mat, an); err != nil {
			return nil, err
		}
	}

	buf, err := gocv.IMEncode(".jpg", mat)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	defer buf.Close()

	out := make([]byte, len(buf.GetBytes()))
	copy(out, buf.GetBytes())
	return out, nil
}

// drawCaption renders white text on a filled box in the annotation colour,
// kept inside the top and left edges of the frame.
func drawCaption(mat *gocv.Mat, an dto.Annotation) error {
	origin := image.Pt(max(0, an.Box.X1), max(minTextTop, an.Box.Y1))
	size := gocv.GetTextSize(an.Caption, gocv.FontHersheySimplex, textScale, textThickness)

	background := image.Rect(
		origin.X-textPadding, origin.Y-size.Y-textPadding,
		origin.X+size.X+textPadding, origin.Y+textPadding,
	)
	if err := gocv.Rectangle(mat, background, an.Color, -1); err != nil {
		return fmt.Errorf("failed to draw caption background: %w", err)
	}
	if err := gocv.PutText(mat, an.Caption, origin, gocv.FontHersheySimplex, textScale, dto.ColorText, textThickness); err != nil {
		return fmt.Errorf("failed to draw text: %w", err)
	}
	return nil
}
