package call

import "fmt"

// State represents the lifecycle state of a single call as reported by the host.
type State int

const (
	StateInvalid State = iota
	StateDialing
	StateConnecting
	StateIncoming
	StateCallWaiting
	StateActive
	StateOnHold
	StateDisconnecting
	StateDisconnected
)

// String returns the string representation of the call state
func (s State) String() string {
	switch s {
	case StateInvalid:
		return "INVALID"
	case StateDialing:
		return "DIALING"
	case StateConnecting:
		return "CONNECTING"
	case StateIncoming:
		return "INCOMING"
	case StateCallWaiting:
		return "CALL_WAITING"
	case StateActive:
		return "ACTIVE"
	case StateOnHold:
		return "ONHOLD"
	case StateDisconnecting:
		return "DISCONNECTING"
	case StateDisconnected:
		return "DISCONNECTED"
	default:
		return fmt.Sprintf("Unknown(%d)", s)
	}
}

// ParseState converts a state name back to a State.
func ParseState(s string) (State, error) {
	for st := StateInvalid; st <= StateDisconnected; st++ {
		if st.String() == s {
			return st, nil
		}
	}
	return StateInvalid, fmt.Errorf("%w: state %q", ErrUnknownValue, s)
}

// IsIncoming reports whether the call is ringing (new or waiting).
func (s State) IsIncoming() bool {
	return s == StateIncoming || s == StateCallWaiting
}

// IsDialing reports whether the call is an outgoing call not yet answered.
func (s State) IsDialing() bool {
	return s == StateDialing || s == StateConnecting
}

// IsTerminal returns true if the call is going away.
func (s State) IsTerminal() bool {
	return s == StateDisconnecting || s == StateDisconnected
}

// GlobalState is the host's aggregate in-call state used to pick the primary call.
type GlobalState int

const (
	GlobalNoCalls GlobalState = iota
	GlobalIncoming
	GlobalOutgoing
	GlobalPendingOutgoing
	GlobalInCall
)

func (g GlobalState) String() string {
	switch g {
	case GlobalNoCalls:
		return "NO_CALLS"
	case GlobalIncoming:
		return "INCOMING"
	case GlobalOutgoing:
		return "OUTGOING"
	case GlobalPendingOutgoing:
		return "PENDING_OUTGOING"
	case GlobalInCall:
		return "INCALL"
	default:
		return fmt.Sprintf("Unknown(%d)", g)
	}
}

// ParseGlobalState converts a global state name back to a GlobalState.
func ParseGlobalState(s string) (GlobalState, error) {
	for g := GlobalNoCalls; g <= GlobalInCall; g++ {
		if g.String() == s {
			return g, nil
		}
	}
	return GlobalNoCalls, fmt.Errorf("%w: global state %q", ErrUnknownValue, s)
}

// SessionModificationState tracks an in-flight video-state negotiation.
type SessionModificationState int

const (
	SessionNoRequest SessionModificationState = iota
	SessionWaitingForUpgradeResponse
	SessionReceivedUpgradeRequest
	SessionUpgradeRejected
	SessionUpgradeCancelled
)

func (m SessionModificationState) String() string {
	switch m {
	case SessionNoRequest:
		return "NO_REQUEST"
	case SessionWaitingForUpgradeResponse:
		return "WAITING_FOR_UPGRADE_TO_VIDEO_RESPONSE"
	case SessionReceivedUpgradeRequest:
		return "RECEIVED_UPGRADE_TO_VIDEO_REQUEST"
	case SessionUpgradeRejected:
		return "UPGRADE_REJECTED"
	case SessionUpgradeCancelled:
		return "UPGRADE_CANCELLED"
	default:
		return fmt.Sprintf("Unknown(%d)", m)
	}
}

// ParseSessionModificationState converts a name back to a SessionModificationState.
func ParseSessionModificationState(s string) (SessionModificationState, error) {
	if s == "" {
		return SessionNoRequest, nil
	}
	for m := SessionNoRequest; m <= SessionUpgradeCancelled; m++ {
		if m.String() == s {
			return m, nil
		}
	}
	return SessionNoRequest, fmt.Errorf("%w: session modification state %q", ErrUnknownValue, s)
}

// SessionEvent is a video session event pushed by the host video call.
type SessionEvent int

const (
	SessionEventNone SessionEvent = iota
	SessionEventRxPause
	SessionEventRxResume
	SessionEventTxStart
	SessionEventTxStop
	SessionEventCameraFailure
	SessionEventCameraReady
)

func (e SessionEvent) String() string {
	switch e {
	case SessionEventNone:
		return "NONE"
	case SessionEventRxPause:
		return "RX_PAUSE"
	case SessionEventRxResume:
		return "RX_RESUME"
	case SessionEventTxStart:
		return "TX_START"
	case SessionEventTxStop:
		return "TX_STOP"
	case SessionEventCameraFailure:
		return "CAMERA_FAILURE"
	case SessionEventCameraReady:
		return "CAMERA_READY"
	default:
		return fmt.Sprintf("Unknown(%d)", e)
	}
}

// ParseSessionEvent converts a name back to a SessionEvent.
func ParseSessionEvent(s string) (SessionEvent, error) {
	for e := SessionEventNone; e <= SessionEventCameraReady; e++ {
		if e.String() == s {
			return e, nil
		}
	}
	return SessionEventNone, fmt.Errorf("%w: session event %q", ErrUnknownValue, s)
}
