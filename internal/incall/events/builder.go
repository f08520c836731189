package events

import (
	"time"

	"github.com/google/uuid"
)

// Builder constructs core events with consistent defaults.
type Builder struct {
	source string
	now    func() time.Time
}

// NewBuilder creates an event builder. source names the emitting activity.
func NewBuilder(source string) *Builder {
	return &Builder{source: source, now: time.Now}
}

// WithClock overrides the timestamp source.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

func (b *Builder) newBase(eventType EventType, callID string) BaseEvent {
	return BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		EventTime: b.now().UTC(),
		Call:      callID,
		Source:    b.source,
	}
}

func (b *Builder) PrimaryChanged(callID, previousID, role string) *PrimaryChangedEvent {
	return &PrimaryChangedEvent{
		BaseEvent:      b.newBase(PrimaryChanged, callID),
		PreviousCallID: previousID,
		Role:           role,
	}
}

func (b *Builder) OrientationChanged(callID, orientation string) *OrientationChangedEvent {
	return &OrientationChangedEvent{
		BaseEvent:   b.newBase(OrientationChanged, callID),
		Orientation: orientation,
	}
}

func (b *Builder) MenuChanged(callID string, enabled, disabled []string) *MenuChangedEvent {
	return &MenuChangedEvent{
		BaseEvent: b.newBase(MenuChanged, callID),
		Enabled:   enabled,
		Disabled:  disabled,
	}
}

func (b *Builder) VideoMode(callID string, active bool, videoState string) *VideoModeEvent {
	return &VideoModeEvent{
		BaseEvent:  b.newBase(VideoModeChanged, callID),
		Active:     active,
		VideoState: videoState,
	}
}

func (b *Builder) PreviewState(callID, from, to string) *PreviewStateEvent {
	return &PreviewStateEvent{
		BaseEvent: b.newBase(PreviewStateChanged, callID),
		From:      from,
		To:        to,
	}
}

// CarrierResponseBuilder constructs CarrierResponseEvent.
type CarrierResponseBuilder struct {
	event *CarrierResponseEvent
}

// CarrierResponse starts building a CarrierResponseEvent.
func (b *Builder) CarrierResponse(callID, kind string) *CarrierResponseBuilder {
	return &CarrierResponseBuilder{
		event: &CarrierResponseEvent{
			BaseEvent: b.newBase(CarrierResponse, callID),
			Kind:      kind,
		},
	}
}

func (cb *CarrierResponseBuilder) Result(code int) *CarrierResponseBuilder {
	cb.event.Result = code
	return cb
}

func (cb *CarrierResponseBuilder) TimedOut() *CarrierResponseBuilder {
	cb.event.TimedOut = true
	return cb
}

func (cb *CarrierResponseBuilder) Build() *CarrierResponseEvent {
	return cb.event
}

func (b *Builder) EnrichedUpdated(callID string, valid, hasLocation, hasImage bool) *EnrichedUpdatedEvent {
	return &EnrichedUpdatedEvent{
		BaseEvent:     b.newBase(EnrichedUpdated, callID),
		Valid:         valid,
		HasLocation:   hasLocation,
		HasImageBytes: hasImage,
	}
}
