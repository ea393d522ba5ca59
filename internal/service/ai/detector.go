package ai

import (
	"errors"
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"ppemonitor/internal/config"
	"ppemonitor/internal/dto"
	"ppemonitor/internal/logger"
	"ppemonitor/internal/service/ai/decode"
)

// ErrNetworkNotLoaded is returned by Detect when the model could not be loaded.
var ErrNetworkNotLoaded = errors.New("detection network not initialized")

// ClassMapper turns a raw model class id into the class id and label we report.
// Returning false drops the detection.
type ClassMapper func(raw int) (classID int, label dto.Label, keep bool)

const (
	// YOLO exports report every anchor, so low scores are dropped before NMS.
	yoloMinConfidence = 0.25
	yoloNMSThreshold  = 0.45
)

// DetectorService runs a DNN over JPEG frames. SSD networks report rows of
// [batch, class, confidence, left, top, right, bottom]; YOLO networks report
// [1, 4+classes, candidates]. It keeps no state between calls apart from the
// loaded network.
type DetectorService struct {
	name       string
	net        gocv.Net
	loaded     bool
	modelPath  string
	configPath string
	format     decode.Format
	inputSize  int
	mapClass   ClassMapper
	logger     *logger.Logger
	mu         sync.Mutex
}

// NewPersonDetector creates a detector restricted to the person class.
func NewPersonDetector(cfg *config.Config, logger *logger.Logger) *DetectorService {
	personClass := cfg.PersonModelClass
	return newDetectorService("person", cfg.PersonModelPath, cfg.PersonConfigPath, cfg.PersonModelFormat, cfg.PersonInputSize, logger,
		func(raw int) (int, dto.Label, bool) {
			if raw != personClass {
				return 0, dto.Unknown, false
			}
			return dto.PersonClassID, dto.Person, true
		})
}

// NewComplianceDetector creates a detector for the safety-equipment classes.
// Unknown class ids are kept and reported as dto.Unknown.
func NewComplianceDetector(cfg *config.Config, logger *logger.Logger) *DetectorService {
	offset := cfg.PPEClassOffset
	return newDetectorService("compliance", cfg.PPEModelPath, cfg.PPEConfigPath, cfg.PPEModelFormat, cfg.PPEInputSize, logger,
		func(raw int) (int, dto.Label, bool) {
			classID := raw - offset
			return classID, dto.LabelForClass(classID), true
		})
}

func newDetectorService(name, modelPath, configPath, format string, inputSize int, logger *logger.Logger, mapClass ClassMapper) *DetectorService {
	service := &DetectorService{
		name:       name,
		modelPath:  modelPath,
		configPath: configPath,
		inputSize:  inputSize,
		mapClass:   mapClass,
		logger:     logger,
	}

	f, err := decode.ParseFormat(format)
	if err != nil {
		service.logger.Warning("Could not initialize %s detection network: %v", name, err)
		return service
	}
	service.format = f

	if err := service.initializeNet(); err != nil {
		service.logger.Warning("Could not initialize %s detection network: %v", name, err)
		return service
	}

	return service
}

// initializeNet loads the DNN network and sets backend/target preferences.
func (s *DetectorService) initializeNet() error {
	if _, err := os.Stat(s.modelPath); os.IsNotExist(err) {
		return fmt.Errorf("model file not found: %s", s.modelPath)
	}

	if s.configPath != "" {
		if _, err := os.Stat(s.configPath); os.IsNotExist(err) {
			return fmt.Errorf("config file not found: %s", s.configPath)
		}
	}

	net := gocv.ReadNet(s.modelPath, s.configPath)

	if net.Empty() {
		return fmt.Errorf("failed to load network")
	}
	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)

	if errBackend != nil || errTarget != nil {
		net.Close()
		return fmt.Errorf("failed to set preferable backend or target")
	}

	s.net = net
	s.loaded = true
	s.logger.Info("%s detection network initialized successfully", s.name)
	return nil
}

// Detect decodes a JPEG frame and returns every box the model reports.
// Threshold filtering is left to the caller.
func (s *DetectorService) Detect(imageBytes []byte) ([]dto.DetectionBox, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		return nil, ErrNetworkNotLoaded
	}

	mat, err := gocv.IMDecode(imageBytes, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	defer mat.Close()

	if mat.Empty() {
		return nil, fmt.Errorf("decoded image is empty")
	}

	size := image.Pt(s.inputSize, s.inputSize)
	var blob gocv.Mat
	if s.format == decode.YOLO {
		blob = gocv.BlobFromImage(mat, 1.0/255.0, size, gocv.NewScalar(0, 0, 0, 0), true, false)
	} else {
		blob = gocv.BlobFromImage(mat, 1.0/127.5, size, gocv.NewScalar(127.5, 127.5, 127.5, 0), true, false)
	}
	defer blob.Close()

	s.net.SetInput(blob, "")

	output := s.net.Forward("")
	defer output.Close()

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s output: %w", s.name, err)
	}

	var candidates []decode.Candidate
	if s.format == decode.YOLO {
		candidates, err = decode.YOLOOutput(data, output.Size(), s.inputSize, mat.Cols(), mat.Rows(), yoloMinConfidence)
		if err == nil {
			candidates = suppressOverlaps(candidates)
		}
	} else {
		candidates, err = decode.SSDRows(data, mat.Cols(), mat.Rows())
	}
	if err != nil {
		return nil, fmt.Errorf("%s model (%s): %w", s.name, s.format, err)
	}

	var results []dto.DetectionBox
	for _, c := range candidates {
		classID, label, keep := s.mapClass(c.Class)
		if !keep {
			continue
		}
		results = append(results, dto.NewBox(classID, label, c.Confidence, c.X1, c.Y1, c.X2, c.Y2))
	}

	return results, nil
}

// suppressOverlaps keeps the strongest of overlapping YOLO candidates.
func suppressOverlaps(candidates []decode.Candidate) []decode.Candidate {
	if len(candidates) == 0 {
		return candidates
	}

	rects := make([]image.Rectangle, len(candidates))
	scores := make([]float32, len(candidates))
	for i, c := range candidates {
		rects[i] = image.Rect(c.X1, c.Y1, c.X2, c.Y2)
		scores[i] = float32(c.Confidence)
	}

	indices := gocv.NMSBoxes(rects, scores, yoloMinConfidence, yoloNMSThreshold)
	kept := make([]decode.Candidate, 0, len(indices))
	for _, i := range indices {
		kept = append(kept, candidates[i])
	}
	return kept
}

// Close releases the network.
func (s *DetectorService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		return nil
	}
	s.loaded = false
	return s.net.Close()
}
