package route

import (
	"net/http"

	"ppemonitor/internal/config"
	"ppemonitor/internal/handler"
	"ppemonitor/internal/logger"
	"ppemonitor/internal/service"
)

// SetupRoutes registers the page, the live feed, snapshot access, the event
// socket and the supporting API and log endpoints.
func SetupRoutes(manager *service.Manager, cfg *config.Config, logger *logger.Logger) http.Handler {
	mux := http.NewServeMux()

	// Viewer
	mux.HandleFunc("GET /{$}", handler.IndexHandler(cfg))
	mux.HandleFunc("GET /video_feed", handler.VideoFeedHandler(manager, logger))
	mux.HandleFunc("GET /result_photo/{filename...}", handler.ResultPhotoHandler(manager))
	mux.HandleFunc("GET /ws", handler.EventsWebsocketHandler(manager, logger))

	// API endpoints
	mux.HandleFunc("GET /api/snapshots", handler.GetSnapshotsHandler(manager, logger))

	// Log endpoints
	mux.HandleFunc("GET /logs/{level}", handler.ShowLogsHandler(logger))
	mux.HandleFunc("POST /logs/{level}/clear", handler.ClearLogsHandler(logger))

	return mux
}
