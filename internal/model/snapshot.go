package model

import "time"

// Snapshot represents a persisted, analysis-annotated frame.
type Snapshot struct {
	ID                 int64     `json:"id"`
	Filename           string    `json:"filename"`
	SessionID          string    `json:"session_id"`
	Timestamp          time.Time `json:"timestamp"`
	FilePath           string    `json:"filepath"`
	FileSize           int64     `json:"filesize"`
	AllRequiredPresent bool      `json:"all_required_present"`
}

// Detection represents one box found by the compliance analysis of a snapshot.
type Detection struct {
	ID         int64   `json:"id"`
	SnapshotID int64   `json:"snapshot_id"`
	Label      string  `json:"label"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Confidence float64 `json:"confidence"`
}

// SnapshotFilter contains filtering options for querying snapshots.
type SnapshotFilter struct {
	OnlyNonCompliant bool
	Label            string
	Limit            int
	Offset           int
}
