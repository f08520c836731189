// Package replay drives the in-call core from a JSON scenario of host events,
// with host collaborators that log every command they receive.
package replay

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/sebas/incallcore/internal/incall/call"
)

// Scenario is a named sequence of host events.
type Scenario struct {
	Name  string `json:"name"`
	Steps []Step `json:"steps"`
}

// CallSpec describes one call snapshot.
type CallSpec struct {
	ID                  string         `json:"id"`
	State               string         `json:"state"`
	VideoState          string         `json:"video_state,omitempty"`
	RequestedVideoState string         `json:"requested_video_state,omitempty"`
	SessionModification string         `json:"session_modification,omitempty"`
	Capabilities        []string       `json:"capabilities,omitempty"`
	Conference          bool           `json:"conference,omitempty"`
	Emergency           bool           `json:"emergency,omitempty"`
	RemotelyHeld        bool           `json:"remotely_held,omitempty"`
	Wifi                bool           `json:"wifi,omitempty"`
	Extras              map[string]any `json:"extras,omitempty"`
	IntentExtras        map[string]any `json:"intent_extras,omitempty"`
	// SDP is the negotiated local session description. When present it
	// decides the video state and announces the peer frame size.
	SDP string `json:"sdp,omitempty"`
}

// Step is one host event. Op selects which of the other fields apply.
type Step struct {
	Op string `json:"op"`

	State string     `json:"state,omitempty"`
	Calls []CallSpec `json:"calls,omitempty"`
	Call  *CallSpec  `json:"call,omitempty"`

	CallID   string `json:"call_id,omitempty"`
	Value    *bool  `json:"value,omitempty"`
	Action   string `json:"action,omitempty"`
	Transfer string `json:"transfer,omitempty"`
	Number   string `json:"number,omitempty"`
	Target   string `json:"target,omitempty"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
	Rotation int    `json:"rotation,omitempty"`
	Surface  string `json:"surface,omitempty"`
	ID       string `json:"id,omitempty"`
	Event    string `json:"event,omitempty"`
	Mode     string `json:"mode,omitempty"`
	Kind     string `json:"kind,omitempty"`
	Result   int    `json:"result,omitempty"`
	Duration string `json:"duration,omitempty"`
	Capable  *bool  `json:"capable,omitempty"`
}

// Parse decodes a scenario document.
func Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if len(sc.Steps) == 0 {
		return nil, ErrEmptyScenario
	}
	for i, st := range sc.Steps {
		if st.Op == "" {
			return nil, &StepError{Index: i, Err: ErrMissingOp}
		}
	}
	return &sc, nil
}

// LoadFile reads and decodes a scenario file.
func LoadFile(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return Parse(data)
}

// Built is a call snapshot plus what its SDP announced about the peer.
type Built struct {
	Call       *call.Call
	PeerWidth  int
	PeerHeight int
}

// Build converts s into a call snapshot. phoneID is stored in the
// extras when s does not carry one.
func (s CallSpec) Build(phoneID int) (Built, error) {
	if s.ID == "" {
		return Built{}, ErrMissingCallID
	}
	state, err := call.ParseState(s.State)
	if err != nil {
		return Built{}, fmt.Errorf("call %s: %w", s.ID, err)
	}
	c := &call.Call{
		ID:             s.ID,
		State:          state,
		IsConference:   s.Conference,
		IsEmergency:    s.Emergency,
		IsRemotelyHeld: s.RemotelyHeld,
		IsWifi:         s.Wifi,
		Extras:         call.Extras{},
	}
	if c.VideoState, err = call.ParseVideoState(s.VideoState); err != nil {
		return Built{}, fmt.Errorf("call %s: %w", s.ID, err)
	}
	if c.RequestedVideoState, err = call.ParseVideoState(s.RequestedVideoState); err != nil {
		return Built{}, fmt.Errorf("call %s: %w", s.ID, err)
	}
	if s.SessionModification != "" {
		if c.SessionModification, err = call.ParseSessionModificationState(s.SessionModification); err != nil {
			return Built{}, fmt.Errorf("call %s: %w", s.ID, err)
		}
	}
	if c.Capabilities, err = call.ParseCapabilities(s.Capabilities); err != nil {
		return Built{}, fmt.Errorf("call %s: %w", s.ID, err)
	}
	for k, v := range s.Extras {
		c.Extras[k] = v
	}
	if _, ok := c.Extras[call.ExtraPhoneID]; !ok {
		c.Extras[call.ExtraPhoneID] = phoneID
	}
	if len(s.IntentExtras) > 0 {
		c.IntentExtras = call.Extras(s.IntentExtras)
	}

	b := Built{Call: c}
	if s.SDP == "" {
		return b, nil
	}
	summary, err := call.SummarizeSDP([]byte(s.SDP))
	switch {
	case errors.Is(err, call.ErrNoVideoMedia):
		c.VideoState = call.VideoAudioOnly
	case err != nil:
		return Built{}, fmt.Errorf("call %s: %w", s.ID, err)
	default:
		c.VideoState = summary.VideoState
		b.PeerWidth, b.PeerHeight = summary.PeerWidth, summary.PeerHeight
	}
	return b, nil
}
