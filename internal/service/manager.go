package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"

	"ppemonitor/internal/config"
	"ppemonitor/internal/logger"
	"ppemonitor/internal/service/gate"
	"ppemonitor/internal/service/storage"
	"ppemonitor/internal/service/stream"
	"ppemonitor/internal/service/websocket"
)

// SourceOpener opens a fresh capture source for one viewer.
type SourceOpener func() (stream.Source, error)

// Manager ties capture, gating, snapshot storage and the event hub together.
// Every StreamTo call is an independent capture session with its own gate state.
type Manager struct {
	openSource       SourceOpener
	personDetector   gate.Detector
	analyzer         gate.Analyzer
	annotator        gate.Annotator
	websocketService *websocket.HubService
	snapshotService  *storage.SnapshotService
	config           *config.Config
	logger           *logger.Logger
	clock            gate.Clock
}

func NewManager(openSource SourceOpener, personDetector gate.Detector, analyzer gate.Analyzer, annotator gate.Annotator,
	websocketService *websocket.HubService, snapshotService *storage.SnapshotService, config *config.Config, logger *logger.Logger) *Manager {
	return &Manager{
		openSource:       openSource,
		personDetector:   personDetector,
		analyzer:         analyzer,
		annotator:        annotator,
		websocketService: websocketService,
		snapshotService:  snapshotService,
		config:           config,
		logger:           logger,
		clock:            gate.SystemClock(),
	}
}

// WithClock replaces the clock used by new sessions.
func (m *Manager) WithClock(clock gate.Clock) *Manager {
	m.clock = clock
	return m
}

// StreamTo runs one capture session, writing multipart chunks to w until the
// source ends or ctx is cancelled. A cancelled ctx is a normal end.
func (m *Manager) StreamTo(ctx context.Context, w io.Writer) error {
	source, err := m.openSource()
	if err != nil {
		return fmt.Errorf("open capture source: %w", err)
	}

	sessionID := uuid.NewString()
	g := gate.New(gate.Deps{
		Persons:     m.personDetector,
		Analyzer:    m.analyzer,
		Annotator:   m.annotator,
		Broadcaster: m.websocketService,
		Snapshots:   m.snapshotService.ForSession(sessionID),
		Clock:       m.clock,
		Logger:      m.logger,
	}, gate.OptionsFromConfig(m.config, sessionID))

	m.logger.Info("[%s] Capture session started", sessionID)
	err = stream.NewPublisher(source, g, m.logger).Run(ctx, w)

	switch {
	case err == nil:
		m.logger.Info("[%s] Capture source ended", sessionID)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		m.logger.Info("[%s] Viewer left, capture session closed", sessionID)
		return nil
	default:
		m.logger.Warning("[%s] Capture session ended: %v", sessionID, err)
	}
	return err
}

func (m *Manager) GetWebsocketService() *websocket.HubService {
	return m.websocketService
}

func (m *Manager) GetSnapshotService() *storage.SnapshotService {
	return m.snapshotService
}
