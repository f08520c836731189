package video

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/looplab/fsm"

	"github.com/sebas/incallcore/internal/incall/metrics"
)

// PreviewState tracks how far the local preview has been wired up.
type PreviewState int

const (
	PreviewNone PreviewState = iota
	PreviewCameraSet
	PreviewCapabilitiesReceived
	PreviewSurfaceSet
)

var previewStateNames = []string{"NONE", "CAMERA_SET", "CAPABILITIES_RECEIVED", "SURFACE_SET"}

func (s PreviewState) String() string {
	if s >= 0 && int(s) < len(previewStateNames) {
		return previewStateNames[s]
	}
	return fmt.Sprintf("Unknown(%d)", s)
}

func parsePreviewState(s string) PreviewState {
	for i, n := range previewStateNames {
		if n == s {
			return PreviewState(i)
		}
	}
	return PreviewNone
}

// Preview machine events.
const (
	eventCameraSet    = "camera_set"
	eventCapabilities = "capabilities"
	eventSurfaceSet   = "surface_set"
	eventRelease      = "release"
)

// previewMachine wraps the preview surface FSM. Only the edges
// NONE→CAMERA_SET→CAPABILITIES_RECEIVED→SURFACE_SET and any→NONE exist.
type previewMachine struct {
	fsm     *fsm.FSM
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func newPreviewMachine(logger *slog.Logger, m *metrics.Metrics) *previewMachine {
	if logger == nil {
		logger = slog.Default()
	}
	p := &previewMachine{logger: logger, metrics: m}
	none := PreviewNone.String()
	cameraSet := PreviewCameraSet.String()
	caps := PreviewCapabilitiesReceived.String()
	surface := PreviewSurfaceSet.String()
	p.fsm = fsm.NewFSM(
		none,
		fsm.Events{
			{Name: eventCameraSet, Src: []string{none}, Dst: cameraSet},
			{Name: eventCapabilities, Src: []string{cameraSet}, Dst: caps},
			{Name: eventSurfaceSet, Src: []string{caps}, Dst: surface},
			{Name: eventRelease, Src: []string{cameraSet, caps, surface}, Dst: none},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				p.logger.Debug("[Video] Preview state changed", "from", e.Src, "to", e.Dst, "event", e.Event)
				p.metrics.PreviewTransition(e.Src, e.Dst)
			},
		},
	)
	return p
}

// State returns the current preview state.
func (p *previewMachine) State() PreviewState {
	return parsePreviewState(p.fsm.Current())
}

// fire applies event and reports whether the transition happened.
func (p *previewMachine) fire(event string) bool {
	if !p.fsm.Can(event) {
		return false
	}
	if err := p.fsm.Event(context.Background(), event); err != nil {
		p.logger.Error("[Video] Preview transition failed", "event", event, "state", p.fsm.Current(), "error", err)
		return false
	}
	return true
}

func (p *previewMachine) cameraSet() bool    { return p.fire(eventCameraSet) }
func (p *previewMachine) capabilities() bool { return p.fire(eventCapabilities) }
func (p *previewMachine) surfaceSet() bool   { return p.fire(eventSurfaceSet) }

// release returns to NONE. It is a no-op when already there.
func (p *previewMachine) release() bool { return p.fire(eventRelease) }
