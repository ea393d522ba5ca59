package handler

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"

	"ppemonitor/internal/config"
	"ppemonitor/internal/logger"
	"ppemonitor/internal/service"
	"ppemonitor/internal/service/stream"
)

// IndexHandler serves index.html from the static directory.
func IndexHandler(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filePath := filepath.Join(cfg.StaticDirectory, "index.html")
		if _, err := os.Stat(filePath); err != nil {
			http.NotFound(w, r)
			return
		}
		http.ServeFile(w, r, filePath)
	}
}

// VideoFeedHandler streams the processed camera feed as multipart JPEG parts.
// The stream ends when the viewer disconnects or the camera stops delivering frames.
func VideoFeedHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", stream.ContentType)
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(http.StatusOK)

		if err := manager.StreamTo(r.Context(), w); err != nil {
			logger.Warning("Video feed ended: %v", err)
		}
	}
}

// ResultPhotoHandler serves a saved snapshot by file name.
func ResultPhotoHandler(manager *service.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filePath, err := manager.GetSnapshotService().Path(r.PathValue("filename"))
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"message": "File not found"})
			return
		}
		http.ServeFile(w, r, filePath)
	}
}
