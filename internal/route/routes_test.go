package route

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"ppemonitor/internal/config"
	"ppemonitor/internal/logger"
	"ppemonitor/internal/service"
	"ppemonitor/internal/service/storage"
	"ppemonitor/internal/service/stream"
	"ppemonitor/internal/service/websocket"
)

func setupRouter(t *testing.T) http.Handler {
	t.Helper()

	cfg := &config.Config{
		SnapshotDirectory: t.TempDir(),
		StaticDirectory:   t.TempDir(),
	}
	log := logger.NewDiscard()
	open := func() (stream.Source, error) { return nil, storage.ErrNotFound }
	manager := service.NewManager(open, nil, nil, nil, websocket.NewHubService(log),
		storage.NewSnapshotService(cfg, log, nil, nil), cfg, log)

	return SetupRoutes(manager, cfg, log)
}

func TestSetupRoutes(t *testing.T) {
	router := setupRouter(t)

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/result_photo/ghost.jpg", http.StatusNotFound},
		{http.MethodPost, "/video_feed", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/snapshots", http.StatusOK},
		{http.MethodGet, "/logs/verbose", http.StatusNotFound},
		{http.MethodGet, "/unknown", http.StatusNotFound},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
		if rec.Code != tt.want {
			t.Errorf("%s %s: expected %d, got %d", tt.method, tt.path, tt.want, rec.Code)
		}
	}
}

func TestSetupRoutes_ResultPhotoNotFoundBody(t *testing.T) {
	router := setupRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/result_photo/ghost.jpg", nil))

	if got := rec.Body.String(); got != "{\"message\":\"File not found\"}\n" {
		t.Errorf("Unexpected body %q", got)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Unexpected content type %q", ct)
	}
}
