package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"ppemonitor/internal/config"
	"ppemonitor/internal/dto"
	"ppemonitor/internal/logger"
	"ppemonitor/internal/model"
	"ppemonitor/internal/repository"
)

const (
	snapshotPrefix = "result_photo_"
	snapshotExt    = ".jpg"
)

// ErrNotFound is returned when a snapshot file does not exist or the name is not a plain file name.
var ErrNotFound = errors.New("snapshot not found")

// SnapshotService writes snapshots to disk and indexes them in the catalogue.
// The catalogue is optional; without repositories only files are written.
type SnapshotService struct {
	dir           string
	threshold     float64
	mu            sync.Mutex
	logger        *logger.Logger
	snapshotRepo  repository.SnapshotRepository
	detectionRepo repository.DetectionRepository
}

// NewSnapshotService creates a new SnapshotService for the configured directory.
func NewSnapshotService(config *config.Config, logger *logger.Logger, snapshotRepo repository.SnapshotRepository, detectionRepo repository.DetectionRepository) *SnapshotService {
	return &SnapshotService{
		dir:           config.SnapshotDirectory,
		threshold:     config.ConfidenceThreshold,
		logger:        logger,
		snapshotRepo:  snapshotRepo,
		detectionRepo: detectionRepo,
	}
}

// Dir returns the directory snapshots are written to.
func (s *SnapshotService) Dir() string {
	return s.dir
}

// ForSession binds the service to one capture session.
func (s *SnapshotService) ForSession(sessionID string) *SessionSnapshots {
	return &SessionSnapshots{service: s, sessionID: sessionID}
}

// Save writes the annotated image and records it. Errors are logged, never returned.
// A name that is already taken keeps its first image and catalogue row.
func (s *SnapshotService) Save(sessionID, name string, result dto.ComplianceResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snapshotRepo != nil {
		exists, err := s.snapshotRepo.Exists(name)
		if err != nil {
			s.logger.Error("Error checking snapshot %s: %v", name, err)
			return
		}
		if exists {
			s.logger.Warning("[%s] Snapshot %s already recorded, skipping", sessionID, name)
			return
		}
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		s.logger.Error("Error creating directory: %v", err)
		return
	}

	fullpath := filepath.Join(s.dir, name)
	if err := writeNew(fullpath, result.Image); err != nil {
		if errors.Is(err, os.ErrExist) {
			s.logger.Warning("[%s] Snapshot file %s already exists, skipping", sessionID, name)
			return
		}
		s.logger.Error("Error saving snapshot %s: %v", name, err)
		return
	}

	if err := s.index(sessionID, name, fullpath, int64(len(result.Image)), result); err != nil {
		s.logger.Error("Error saving snapshot to database %s: %v", name, err)
		return
	}

	s.logger.Info("Snapshot %s saved (%d bytes)", name, len(result.Image))
}

// writeNew creates path exclusively and writes data, removing the file if the write fails.
func writeNew(path string, data []byte) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(path)
		return err
	}
	if err := file.Close(); err != nil {
		os.Remove(path)
		return err
	}
	return nil
}

// Index records an existing snapshot file in the catalogue without touching the file.
func (s *SnapshotService) Index(sessionID, name string, result dto.ComplianceResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fullpath := filepath.Join(s.dir, name)
	info, err := os.Stat(fullpath)
	if err != nil {
		return fmt.Errorf("stat %s: %w", name, err)
	}
	return s.index(sessionID, name, fullpath, info.Size(), result)
}

func (s *SnapshotService) index(sessionID, name, fullpath string, size int64, result dto.ComplianceResult) error {
	if s.snapshotRepo == nil {
		return nil
	}

	ts, err := ParseSnapshotName(name)
	if err != nil {
		ts = time.Now()
	}

	var detections []model.Detection
	for _, b := range dto.Visible(result.Boxes, s.threshold) {
		detections = append(detections, model.Detection{
			Label:      b.Label.String(),
			X:          b.X1,
			Y:          b.Y1,
			Width:      b.Width(),
			Height:     b.Height(),
			Confidence: b.Confidence,
		})
	}

	_, err = s.snapshotRepo.Insert(&model.Snapshot{
		Filename:           name,
		SessionID:          sessionID,
		Timestamp:          ts,
		FilePath:           fullpath,
		FileSize:           size,
		AllRequiredPresent: result.AllRequiredPresent,
	}, detections)
	return err
}

// Path resolves a snapshot file name inside the snapshot directory.
// Names with path separators or dot segments are rejected as not found.
func (s *SnapshotService) Path(name string) (string, error) {
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name || strings.ContainsAny(name, `/\`) {
		return "", ErrNotFound
	}

	if s.snapshotRepo != nil {
		snap, err := s.snapshotRepo.GetByFilename(name)
		if err != nil {
			s.logger.Error("Error looking up snapshot %s: %v", name, err)
		} else if snap != nil && isFile(snap.FilePath) {
			return snap.FilePath, nil
		}
	}

	fullpath := filepath.Join(s.dir, name)
	if !isFile(fullpath) {
		return "", ErrNotFound
	}
	return fullpath, nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// List returns one page of the catalogue, newest first, and the total count.
func (s *SnapshotService) List(filter *model.SnapshotFilter) ([]dto.SnapshotInfo, int, error) {
	if s.snapshotRepo == nil {
		return nil, 0, nil
	}

	snapshots, err := s.snapshotRepo.GetAll(filter)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.snapshotRepo.GetTotalCount(filter)
	if err != nil {
		s.logger.Error("Error counting snapshots: %v", err)
		total = len(snapshots)
	}

	infos := make([]dto.SnapshotInfo, 0, len(snapshots))
	for _, snap := range snapshots {
		var detections []model.Detection
		if s.detectionRepo != nil {
			detections, err = s.detectionRepo.GetBySnapshotID(snap.ID)
			if err != nil {
				s.logger.Error("Error getting detections for snapshot %d: %v", snap.ID, err)
			}
		}

		infos = append(infos, dto.SnapshotInfo{
			Name:               snap.Filename,
			Timestamp:          snap.Timestamp,
			AllRequiredPresent: snap.AllRequiredPresent,
			Labels:             labelsOf(detections),
			Detections:         detectionInfos(detections),
		})
	}

	return infos, total, nil
}

// labelsOf returns the distinct labels of detections, sorted.
func labelsOf(detections []model.Detection) []string {
	seen := make(map[string]bool)
	labels := []string{}
	for _, d := range detections {
		if !seen[d.Label] {
			seen[d.Label] = true
			labels = append(labels, d.Label)
		}
	}
	sort.Strings(labels)
	return labels
}

func detectionInfos(detections []model.Detection) []dto.DetectionInfo {
	infos := make([]dto.DetectionInfo, 0, len(detections))
	for _, d := range detections {
		infos = append(infos, dto.DetectionInfo{
			Label:      d.Label,
			Confidence: d.Confidence,
			X:          d.X,
			Y:          d.Y,
			Width:      d.Width,
			Height:     d.Height,
		})
	}
	return infos
}

// ParseSnapshotName extracts the capture time from result_photo_<unix>.jpg.
func ParseSnapshotName(name string) (time.Time, error) {
	if !IsSnapshotName(name) {
		return time.Time{}, fmt.Errorf("not a snapshot name: %s", name)
	}
	raw := strings.TrimSuffix(strings.TrimPrefix(name, snapshotPrefix), snapshotExt)
	unix, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid snapshot timestamp %q: %w", raw, err)
	}
	return time.Unix(unix, 0), nil
}

// IsSnapshotName reports whether name looks like a snapshot file name.
func IsSnapshotName(name string) bool {
	return strings.HasPrefix(name, snapshotPrefix) && strings.HasSuffix(name, snapshotExt)
}

// SessionSnapshots saves snapshots on behalf of one capture session.
type SessionSnapshots struct {
	service   *SnapshotService
	sessionID string
}

// Save writes and indexes a snapshot for the session.
func (s *SessionSnapshots) Save(name string, result dto.ComplianceResult) {
	s.service.Save(s.sessionID, name, result)
}
