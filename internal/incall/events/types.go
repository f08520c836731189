// Package events describes the notifications the in-call core emits to its
// observers and the publishers that carry them.
package events

import "time"

// EventType identifies the type of core event
type EventType string

const (
	// PrimaryChanged fires when the primary call identity changes (including to none)
	PrimaryChanged EventType = "primary.changed"
	// OrientationChanged fires when the requested orientation changes
	OrientationChanged EventType = "orientation.changed"
	// MenuChanged fires when the action menu contents change
	MenuChanged EventType = "menu.changed"
	// VideoModeChanged fires on entering or leaving video mode
	VideoModeChanged EventType = "video.mode"
	// PreviewStateChanged fires on every preview surface transition
	PreviewStateChanged EventType = "video.preview"
	// CarrierResponse fires when the carrier answers (or fails to answer) a request
	CarrierResponse EventType = "carrier.response"
	// EnrichedUpdated fires when enriched call data for a call changes
	EnrichedUpdated EventType = "enriched.updated"
)

// Event is the base interface for all core events
type Event interface {
	Type() EventType
	Subject() string
	Timestamp() time.Time
	// CallID returns the call the event concerns, empty if none
	CallID() string
	// Attrs returns slog key/value pairs describing the payload
	Attrs() []any
}

// BaseEvent contains fields common to all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType EventType `json:"event_type"`
	EventTime time.Time `json:"event_time"`
	Call      string    `json:"call_id,omitempty"`
	Source    string    `json:"source,omitempty"`
}

func (e BaseEvent) Type() EventType      { return e.EventType }
func (e BaseEvent) Timestamp() time.Time { return e.EventTime }
func (e BaseEvent) CallID() string       { return e.Call }
func (e BaseEvent) Subject() string      { return CallSubject(e.Call, e.EventType) }

// PrimaryChangedEvent reports a new primary call.
type PrimaryChangedEvent struct {
	BaseEvent
	PreviousCallID string `json:"previous_call_id,omitempty"`
	Role           string `json:"role,omitempty"`
}

func (e *PrimaryChangedEvent) Attrs() []any {
	return []any{"previous", e.PreviousCallID, "role", e.Role}
}

// OrientationChangedEvent reports a new requested orientation.
type OrientationChangedEvent struct {
	BaseEvent
	Orientation string `json:"orientation"`
}

func (e *OrientationChangedEvent) Attrs() []any {
	return []any{"orientation", e.Orientation}
}

// MenuChangedEvent reports the enabled action set.
type MenuChangedEvent struct {
	BaseEvent
	Enabled  []string `json:"enabled"`
	Disabled []string `json:"disabled"`
}

func (e *MenuChangedEvent) Attrs() []any {
	return []any{"enabled", e.Enabled, "disabled", e.Disabled}
}

// VideoModeEvent reports entering or leaving video mode.
type VideoModeEvent struct {
	BaseEvent
	Active     bool   `json:"active"`
	VideoState string `json:"video_state"`
}

func (e *VideoModeEvent) Attrs() []any {
	return []any{"active", e.Active, "video_state", e.VideoState}
}

// PreviewStateEvent reports a preview surface transition.
type PreviewStateEvent struct {
	BaseEvent
	From string `json:"from"`
	To   string `json:"to"`
}

func (e *PreviewStateEvent) Attrs() []any {
	return []any{"from", e.From, "to", e.To}
}

// CarrierResponseEvent reports a carrier request outcome.
type CarrierResponseEvent struct {
	BaseEvent
	Kind     string `json:"kind"`
	Result   int    `json:"result"`
	TimedOut bool   `json:"timed_out,omitempty"`
}

func (e *CarrierResponseEvent) Attrs() []any {
	return []any{"kind", e.Kind, "result", e.Result, "timed_out", e.TimedOut}
}

// EnrichedUpdatedEvent reports a change to a call's enriched data.
type EnrichedUpdatedEvent struct {
	BaseEvent
	Valid         bool `json:"valid"`
	HasLocation   bool `json:"has_location"`
	HasImageBytes bool `json:"has_image_bytes"`
}

func (e *EnrichedUpdatedEvent) Attrs() []any {
	return []any{"valid", e.Valid, "location", e.HasLocation, "image", e.HasImageBytes}
}
