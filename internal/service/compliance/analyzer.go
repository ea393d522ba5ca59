package compliance

import (
	"ppemonitor/internal/dto"
	"ppemonitor/internal/logger"
)

// Detector returns the boxes found on a JPEG frame.
type Detector interface {
	Detect(image []byte) ([]dto.DetectionBox, error)
}

// Annotator draws annotations on a JPEG frame.
type Annotator interface {
	Annotate(image []byte, annotations []dto.Annotation) ([]byte, error)
}

// Analyzer runs the safety-equipment model over a frame and marks the result.
type Analyzer struct {
	detector  Detector
	annotator Annotator
	threshold float64
	logger    *logger.Logger
}

func NewAnalyzer(detector Detector, annotator Annotator, threshold float64, logger *logger.Logger) *Analyzer {
	return &Analyzer{
		detector:  detector,
		annotator: annotator,
		threshold: threshold,
		logger:    logger,
	}
}

// Analyze never fails on detector errors: they count as an empty result.
// Boxes above threshold are drawn red (missing item), green (worn item) or
// blue (anything else). If drawing fails the unannotated frame is returned.
func (a *Analyzer) Analyze(image []byte) dto.ComplianceResult {
	boxes, err := a.detector.Detect(image)
	if err != nil {
		a.logger.Warning("Compliance detection failed: %v", err)
		boxes = nil
	}

	result := dto.ComplianceResult{
		Image:              image,
		AllRequiredPresent: dto.AllRequiredPresent(boxes, a.threshold),
		Boxes:              boxes,
	}

	visible := dto.Visible(boxes, a.threshold)
	annotations := make([]dto.Annotation, 0, len(visible))
	for _, b := range visible {
		a.logger.Info("Compliance: %s", b.Caption())
		annotations = append(annotations, dto.Annotation{
			Box:     b,
			Color:   dto.BoxColor(b.Label),
			Caption: b.Caption(),
		})
	}

	if len(annotations) > 0 {
		annotated, err := a.annotator.Annotate(image, annotations)
		if err != nil {
			a.logger.Error("Failed to annotate compliance result: %v", err)
			return result
		}
		result.Image = annotated
	}

	return result
}
