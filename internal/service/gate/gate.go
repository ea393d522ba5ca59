package gate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ppemonitor/internal/config"
	"ppemonitor/internal/dto"
	"ppemonitor/internal/logger"
)

// Detector runs the person model over a JPEG frame.
type Detector interface {
	Detect(image []byte) ([]dto.DetectionBox, error)
}

// Analyzer runs the compliance analysis over a JPEG frame.
type Analyzer interface {
	Analyze(image []byte) dto.ComplianceResult
}

// Annotator draws annotations on a JPEG frame.
type Annotator interface {
	Annotate(image []byte, annotations []dto.Annotation) ([]byte, error)
}

// Broadcaster delivers a text message to every connected client.
type Broadcaster interface {
	Broadcast(message string)
}

// SnapshotSaver persists an analysed frame. Failures are the saver's to log.
type SnapshotSaver interface {
	Save(name string, result dto.ComplianceResult)
}

// Phase is the externally visible state of the gate.
type Phase int

const (
	Idle Phase = iota
	PersonHolding
	Cooldown
)

func (p Phase) String() string {
	switch p {
	case PersonHolding:
		return "person-holding"
	case Cooldown:
		return "cooldown"
	}
	return "idle"
}

// State is the gate's mutable state. It belongs to one capture session and is
// only touched by the goroutine calling Process.
type State struct {
	PersonPresent          bool
	LastPersonSeenAt       time.Time
	PhotoPending           bool
	AnalysisSuspendedUntil time.Time
}

// Options tune the gate timings and messages.
type Options struct {
	HoldWindow      time.Duration
	Cooldown        time.Duration
	Debounce        time.Duration
	Threshold       float64
	PresenceSignal  string
	AdvisoryMessage string
	SessionID       string
}

// OptionsFromConfig builds Options from the process configuration.
func OptionsFromConfig(cfg *config.Config, sessionID string) Options {
	return Options{
		HoldWindow:      cfg.HoldWindow,
		Cooldown:        cfg.Cooldown,
		Debounce:        cfg.Debounce,
		Threshold:       cfg.ConfidenceThreshold,
		PresenceSignal:  cfg.PresenceSignal,
		AdvisoryMessage: cfg.AdvisoryMessage,
		SessionID:       sessionID,
	}
}

// Deps are the collaborators of a gate.
type Deps struct {
	Persons     Detector
	Analyzer    Analyzer
	Annotator   Annotator
	Broadcaster Broadcaster
	Snapshots   SnapshotSaver
	Clock       Clock
	Logger      *logger.Logger
}

// Gate decides per frame whether to run person detection, when to take the
// compliance snapshot and when to signal clients.
type Gate struct {
	deps  Deps
	opts  Options
	state State
}

func New(deps Deps, opts Options) *Gate {
	if deps.Clock == nil {
		deps.Clock = SystemClock()
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewDiscard()
	}
	return &Gate{deps: deps, opts: opts}
}

// State returns a copy of the current state.
func (g *Gate) State() State {
	return g.state
}

// Phase reports the phase the gate is in at now.
func (g *Gate) Phase(now time.Time) Phase {
	switch {
	case !g.state.AnalysisSuspendedUntil.IsZero() && !now.After(g.state.AnalysisSuspendedUntil):
		return Cooldown
	case g.state.PersonPresent && now.Sub(g.state.LastPersonSeenAt) <= g.opts.HoldWindow:
		return PersonHolding
	}
	return Idle
}

// SnapshotName is the file name of a snapshot taken at t.
func SnapshotName(t time.Time) string {
	return fmt.Sprintf("result_photo_%d.jpg", t.Unix())
}

// Process runs one frame through the gate and returns the frame to publish.
// It only fails when ctx is cancelled while waiting out the debounce.
func (g *Gate) Process(ctx context.Context, frame []byte) ([]byte, error) {
	now := g.deps.Clock.Now()
	expired := now.Sub(g.state.LastPersonSeenAt) > g.opts.HoldWindow

	if g.state.PersonPresent && !expired {
		return frame, nil
	}

	if g.state.PersonPresent && expired {
		g.state.PersonPresent = false
		if g.state.PhotoPending {
			frame = g.takeSnapshot(frame, now)
		}
	}

	if !now.After(g.state.AnalysisSuspendedUntil) {
		return frame, nil
	}

	return g.detectPersons(ctx, frame, now)
}

// takeSnapshot analyses the frame once, saves it, tells clients analysis
// pauses and starts the cool-down.
func (g *Gate) takeSnapshot(frame []byte, now time.Time) []byte {
	result := g.deps.Analyzer.Analyze(frame)
	if result.Image == nil {
		result.Image = frame
	}

	name := SnapshotName(now)
	g.deps.Snapshots.Save(name, result)
	if missing := result.MissingItems(g.opts.Threshold); len(missing) > 0 {
		g.deps.Logger.Info("[%s] Snapshot taken and saved as %s, missing: %s",
			g.opts.SessionID, name, strings.Join(missing, ", "))
	} else {
		g.deps.Logger.Info("[%s] Snapshot taken and saved as %s, all required equipment present",
			g.opts.SessionID, name)
	}

	g.deps.Broadcaster.Broadcast(g.opts.AdvisoryMessage)

	g.state.PhotoPending = false
	g.state.AnalysisSuspendedUntil = now.Add(g.opts.Cooldown)
	return result.Image
}

// detectPersons runs the person pass. Every confident person box re-arms the
// hold window, waits the debounce and sends the presence signal.
func (g *Gate) detectPersons(ctx context.Context, frame []byte, now time.Time) ([]byte, error) {
	boxes, err := g.deps.Persons.Detect(frame)
	if err != nil {
		g.deps.Logger.Warning("[%s] Person detection failed: %v", g.opts.SessionID, err)
		return frame, nil
	}

	var annotations []dto.Annotation
	for _, b := range boxes {
		if b.ClassID != dto.PersonClassID || b.Confidence <= g.opts.Threshold {
			continue
		}

		g.state.PersonPresent = true
		g.state.LastPersonSeenAt = now
		g.state.PhotoPending = true
		g.deps.Logger.Info("[%s] Person detected, confidence %.2f", g.opts.SessionID, b.Confidence)

		if err := g.deps.Clock.Sleep(ctx, g.opts.Debounce); err != nil {
			return g.annotate(frame, annotations), err
		}
		g.deps.Broadcaster.Broadcast(g.opts.PresenceSignal)

		annotations = append(annotations, dto.Annotation{
			Box:     b,
			Color:   dto.ColorWorn,
			Caption: fmt.Sprintf("%s %.2f", dto.Person, b.Confidence),
		})
	}

	return g.annotate(frame, annotations), nil
}

func (g *Gate) annotate(frame []byte, annotations []dto.Annotation) []byte {
	if len(annotations) == 0 {
		return frame
	}
	annotated, err := g.deps.Annotator.Annotate(frame, annotations)
	if err != nil {
		g.deps.Logger.Error("[%s] Failed to annotate frame: %v", g.opts.SessionID, err)
		return frame
	}
	return annotated
}
