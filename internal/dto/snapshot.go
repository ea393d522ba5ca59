package dto

import (
	"encoding/json"
	"time"
)

// SnapshotInfo describes a stored snapshot for the listing endpoint.
type SnapshotInfo struct {
	Name               string          `json:"name"`
	Timestamp          time.Time       `json:"timestamp"`
	AllRequiredPresent bool            `json:"allRequiredPresent"`
	Labels             []string        `json:"labels"`
	Detections         []DetectionInfo `json:"detections"`
}

// DetectionInfo is one recorded box of a snapshot.
type DetectionInfo struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
}

// MarshalJSON formats the timestamp as date and time of day, like the gallery does.
func (s SnapshotInfo) MarshalJSON() ([]byte, error) {
	type Alias SnapshotInfo
	return json.Marshal(&struct {
		Date      string `json:"date"`
		TimeOfDay string `json:"timeOfDay"`
		Alias
	}{
		Date:      s.Timestamp.Format("02-01-2006"),
		TimeOfDay: s.Timestamp.Format("15:04:05"),
		Alias:     (Alias)(s),
	})
}

// SnapshotsPage is a paginated response payload for the snapshot listing.
type SnapshotsPage struct {
	Snapshots   []SnapshotInfo `json:"snapshots"`
	Length      int            `json:"length"`
	TotalPages  int            `json:"totalPages"`
	CurrentPage int            `json:"currentPage"`
	Limit       int            `json:"pageSize"`
}
