package repository

import (
	"ppemonitor/internal/model"
)

// SnapshotRepository defines the interface for snapshot catalogue operations.
type SnapshotRepository interface {
	// Create operations
	Insert(s *model.Snapshot, detections []model.Detection) (int64, error)

	// Read operations
	GetByFilename(filename string) (*model.Snapshot, error)
	GetAll(filter *model.SnapshotFilter) ([]model.Snapshot, error)
	GetTotalCount(filter *model.SnapshotFilter) (int, error)
	Exists(filename string) (bool, error)
}

// DetectionRepository defines the interface for snapshot detection operations.
type DetectionRepository interface {
	// Read operations
	GetBySnapshotID(snapshotID int64) ([]model.Detection, error)
}
