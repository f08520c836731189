// Package orientation maps the primary call to a screen-orientation request.
package orientation

import (
	"fmt"
	"log/slog"

	"github.com/sebas/incallcore/internal/incall/call"
	"github.com/sebas/incallcore/internal/incall/metrics"
)

// Orientation is the request handed to the host activity.
type Orientation int

const (
	Unspecified Orientation = iota
	AllowRotation
	DisallowRotation
	Landscape
	Portrait
	FullSensor
)

func (o Orientation) String() string {
	switch o {
	case Unspecified:
		return "UNSPECIFIED"
	case AllowRotation:
		return "ALLOW_ROTATION"
	case DisallowRotation:
		return "DISALLOW_ROTATION"
	case Landscape:
		return "LANDSCAPE"
	case Portrait:
		return "PORTRAIT"
	case FullSensor:
		return "FULL_SENSOR"
	default:
		return fmt.Sprintf("Unknown(%d)", o)
	}
}

// Sink receives orientation requests.
type Sink interface {
	SetInCallAllowsOrientationChange(o Orientation)
}

// For computes the orientation for a call.
func For(c *call.Call) Orientation {
	if c == nil || c.State == call.StateOnHold || !c.IsVideoCallOrUpgrade() {
		return DisallowRotation
	}
	mode := c.OrientationMode()
	if mode == call.OrientationModeUnspecified {
		return AllowRotation
	}
	return FromMode(mode)
}

// FromMode converts a carrier hint to a fixed orientation.
func FromMode(mode call.OrientationMode) Orientation {
	switch mode {
	case call.OrientationModeLandscape:
		return Landscape
	case call.OrientationModePortrait:
		return Portrait
	case call.OrientationModeDynamic:
		return FullSensor
	default:
		return Unspecified
	}
}

// Config configures a Policy.
type Config struct {
	Sink    Sink
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Policy tracks the primary call and pushes orientation changes to the sink.
// Changes are held back while the activity is not showing.
type Policy struct {
	sink    Sink
	logger  *slog.Logger
	metrics *metrics.Metrics

	primary    *call.Call
	showing    bool
	videoState call.VideoState
	mode       call.OrientationMode
	current    Orientation
	hasEmitted bool
}

// New creates a policy. The activity is assumed not showing until told otherwise.
func New(cfg Config) *Policy {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Policy{
		sink:    cfg.Sink,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
		mode:    call.OrientationModeUnspecified,
	}
}

// OnPrimaryCallChanged adopts a new primary call.
func (p *Policy) OnPrimaryCallChanged(c *call.Call) {
	p.primary = c
	if c == nil {
		p.mode = call.OrientationModeUnspecified
		p.videoState = call.VideoAudioOnly
	}
	p.maybeUpdate()
}

// OnDetailsChanged re-evaluates when the primary call's details change.
// Details for any other call are ignored.
func (p *Policy) OnDetailsChanged(c *call.Call) {
	if c == nil || !call.SameCall(c, p.primary) {
		return
	}
	p.primary = c
	p.maybeUpdate()
}

// OnSessionModificationStateChange re-evaluates once a negotiation settles.
func (p *Policy) OnSessionModificationStateChange(c *call.Call, state call.SessionModificationState) {
	if state != call.SessionNoRequest || !call.SameCall(c, p.primary) {
		return
	}
	p.primary = c
	p.maybeUpdate()
}

// OnUiShowing records activity visibility and flushes any held-back change.
func (p *Policy) OnUiShowing(showing bool) {
	p.showing = showing
	p.maybeUpdate()
}

// Refresh re-evaluates the primary call.
func (p *Policy) Refresh() {
	p.maybeUpdate()
}

func (p *Policy) maybeUpdate() {
	if !p.showing {
		return
	}

	c := p.primary
	if c != nil {
		if vs := c.VideoState; vs != p.videoState {
			p.logger.Debug("[Orientation] Video state changed", "call", c.ID, "from", p.videoState, "to", vs)
			p.videoState = vs
		}
		if mode := c.OrientationMode(); mode != p.mode {
			p.logger.Debug("[Orientation] Orientation mode changed", "call", c.ID, "from", p.mode, "to", mode)
			p.mode = mode
		}
	}

	o := For(c)
	if p.hasEmitted && o == p.current {
		return
	}
	p.current = o
	p.hasEmitted = true
	p.metrics.OrientationChanged(o.String())
	p.logger.Debug("[Orientation] Requesting orientation", "orientation", o)
	if p.sink != nil {
		p.sink.SetInCallAllowsOrientationChange(o)
	}
}

// Current returns the last requested orientation.
func (p *Policy) Current() Orientation {
	if !p.hasEmitted {
		return For(p.primary)
	}
	return p.current
}

// IsDynamic reports whether the primary video call follows the full sensor.
func (p *Policy) IsDynamic() bool {
	return p.primary.IsVideoCall() && p.mode == call.OrientationModeDynamic
}
