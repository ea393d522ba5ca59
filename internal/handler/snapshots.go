package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"ppemonitor/internal/dto"
	"ppemonitor/internal/logger"
	"ppemonitor/internal/model"
	"ppemonitor/internal/service"
)

// GetSnapshotsHandler returns one page of the snapshot catalogue, newest first.
func GetSnapshotsHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page := atoiDefault(q.Get("page"), 1)
		limit := atoiDefault(q.Get("limit"), 24)

		filter := &model.SnapshotFilter{
			OnlyNonCompliant: q.Get("nonCompliant") == "true",
			Label:            q.Get("label"),
			Limit:            limit,
			Offset:           (page - 1) * limit,
		}

		snapshots, total, err := manager.GetSnapshotService().List(filter)
		if err != nil {
			logger.Error("Error querying snapshots from database: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		data := dto.SnapshotsPage{
			Snapshots:   snapshots,
			Length:      total,
			TotalPages:  (total + limit - 1) / limit,
			CurrentPage: page,
			Limit:       limit,
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(data); err != nil {
			logger.Error("Error encoding JSON response: %v", err)
		}
	}
}

// atoiDefault converts string to int or returns a default when conversion fails or value <= 0.
func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}
