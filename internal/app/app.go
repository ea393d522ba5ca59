package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"ppemonitor/internal/config"
	"ppemonitor/internal/logger"
	"ppemonitor/internal/repository/sqlite"
	"ppemonitor/internal/route"
	"ppemonitor/internal/service"
	"ppemonitor/internal/service/ai"
	"ppemonitor/internal/service/capture"
	"ppemonitor/internal/service/compliance"
	"ppemonitor/internal/service/storage"
	"ppemonitor/internal/service/stream"
	"ppemonitor/internal/service/websocket"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	config             *config.Config
	logger             *logger.Logger
	db                 *sqlite.DB
	personDetector     *ai.DetectorService
	complianceDetector *ai.DetectorService
	hubService         *websocket.HubService
	snapshotService    *storage.SnapshotService
	manager            *service.Manager
}

func NewApp() (*App, error) {
	cfg := config.Load()
	log := logger.NewLogger(cfg)

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}
	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	persons := ai.NewPersonDetector(cfg, log)
	ppe := ai.NewComplianceDetector(cfg, log)
	annotator := ai.NewAnnotator()
	analyzer := compliance.NewAnalyzer(ppe, annotator, cfg.ConfidenceThreshold, log)

	hub := websocket.NewHubService(log)
	snapshots := storage.NewSnapshotService(cfg, log, sqlite.NewSnapshotRepository(db), sqlite.NewDetectionRepository(db))

	open := func() (stream.Source, error) {
		source, err := capture.OpenDevice(cfg)
		if err != nil {
			return nil, err
		}
		return source, nil
	}
	mng := service.NewManager(open, persons, analyzer, annotator, hub, snapshots, cfg, log)

	return &App{
		config:             cfg,
		logger:             log,
		db:                 db,
		personDetector:     persons,
		complianceDetector: ppe,
		hubService:         hub,
		snapshotService:    snapshots,
		manager:            mng,
	}, nil
}

// Run serves HTTP until SIGINT/SIGTERM, then shuts down. Open video feeds see
// their request context cancelled and release the camera.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer a.Close()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.config.Port),
		Handler:           route.SetupRoutes(a.manager, a.config, a.logger),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("PPE monitor listening on http://localhost:%d", a.config.Port)
		a.logger.Info("Camera: %s, snapshots: %s, database: %s", a.config.CameraDevice, a.config.SnapshotDirectory, a.config.DatabasePath)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Close releases the models and the database.
func (a *App) Close() {
	if err := a.personDetector.Close(); err != nil {
		a.logger.Error("Failed to close person detector: %v", err)
	}
	if err := a.complianceDetector.Close(); err != nil {
		a.logger.Error("Failed to close compliance detector: %v", err)
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("Failed to close database: %v", err)
	}
}
