package actionmenu

import (
	"github.com/sebas/incallcore/internal/incall/call"
	"github.com/sebas/incallcore/internal/incall/carrier"
)

// Inputs is everything the menu depends on. Compute is a pure function of it.
type Inputs struct {
	Call *call.Call

	// Carrier configuration for the call's SIM.
	DeflectSupported      bool
	CancelModifySupported bool
	HideMeConfigured      bool

	// Host settings.
	PipModeSelectable              bool
	AddParticipantOnlyInConference bool
	TTYMode                        carrier.TTYMode

	// Activity and user state.
	Foreground       bool
	MultiWindow      bool
	UserUnlocked     bool
	CameraPermission bool

	// Latches held by the model.
	HideMe            bool
	UpgradeRequested  bool
	CancelRequestSent bool
}

// awaitingUpgradeResponse is true while an outgoing upgrade is outstanding.
func (in Inputs) awaitingUpgradeResponse() bool {
	return in.Call.HasSentVideoUpgradeRequest() || in.UpgradeRequested
}

// upgradePending is true while any upgrade negotiation is in flight.
func (in Inputs) upgradePending() bool {
	return in.Call.IsVideoUpgrade() || in.UpgradeRequested
}

// menuOrder is the fixed presentation order. The hide-me slot resolves to
// HIDE_ME or SHOW_ME depending on the latch.
var menuOrder = []ActionID{
	ActionAddParticipant,
	ActionDeflect,
	ActionTransfer,
	ActionManageConference,
	ActionHideMe,
	ActionDialpad,
	ActionAcceptAsVideoTx,
	ActionAcceptAsVideoRx,
	ActionModifyCall,
	ActionPipMode,
	ActionCancelModifyCall,
}

// Compute evaluates every entry for the given inputs.
func Compute(in Inputs) Menu {
	menu := make(Menu, 0, len(menuOrder))
	for _, id := range menuOrder {
		if id == ActionHideMe && in.HideMe {
			id = ActionShowMe
		}
		menu = append(menu, Entry{ID: id, Enabled: in.Call != nil && enabled(id, in)})
	}
	return menu
}

func enabled(id ActionID, in Inputs) bool {
	c := in.Call
	state := c.State
	isActiveVideo := state == call.StateActive && c.IsVideoCall()

	switch id {
	case ActionAddParticipant:
		return c.Capabilities.Has(call.CapAddParticipant) &&
			in.UserUnlocked &&
			!in.awaitingUpgradeResponse() &&
			(!in.AddParticipantOnlyInConference || c.IsConference)
	case ActionDeflect:
		return in.DeflectSupported &&
			state.IsIncoming() &&
			c.VideoState.IsAudioOnly() &&
			!in.upgradePending()
	case ActionTransfer:
		return c.TransferCapabilities() != 0 && !in.upgradePending()
	case ActionManageConference:
		return isActiveVideo &&
			c.Capabilities.Has(call.CapManageConference) &&
			!in.upgradePending()
	case ActionPipMode:
		return in.PipModeSelectable && in.Foreground && isActiveVideo && !in.upgradePending()
	case ActionHideMe, ActionShowMe:
		return in.HideMeConfigured &&
			in.CameraPermission &&
			in.Foreground &&
			isActiveVideo &&
			!in.upgradePending()
	case ActionDialpad:
		return c.IsVideoCall() && !state.IsIncoming() && state != call.StateOnHold
	case ActionAcceptAsVideoTx, ActionAcceptAsVideoRx:
		return c.IsReceivedBidirectionalUpgrade() ||
			(state.IsIncoming() && c.VideoState.IsBidirectional())
	case ActionModifyCall:
		return (state == call.StateActive || state == call.StateOnHold) &&
			c.Capabilities.HasVoiceOrVideoCapabilities() &&
			!c.HasReceivedVideoUpgradeRequest() &&
			!in.awaitingUpgradeResponse()
	case ActionCancelModifyCall:
		return in.CancelModifySupported && in.awaitingUpgradeResponse() && !in.CancelRequestSent
	}
	return false
}

// ShowMoreButton decides whether the overflow affordance is offered at all.
func ShowMoreButton(in Inputs, menu Menu) bool {
	c := in.Call
	if c == nil || in.MultiWindow || c.IsEmergency {
		return false
	}
	switch c.State {
	case call.StateDialing, call.StateConnecting, call.StateDisconnecting:
		return false
	}
	if in.awaitingUpgradeResponse() && !menu.IsEnabled(ActionCancelModifyCall) {
		return false
	}
	return true
}

// TransferOptions lists the transfer variants allowed by the call's bitmask.
func TransferOptions(c *call.Call) []call.TransferType {
	caps := c.TransferCapabilities()
	var out []call.TransferType
	for _, t := range []call.TransferType{call.TransferBlind, call.TransferAssured, call.TransferConsultative} {
		if caps&int(t) != 0 {
			out = append(out, t)
		}
	}
	return out
}

// ModifyOptions lists the video states the call may be modified to. The
// current state is never offered.
func ModifyOptions(c *call.Call) []call.VideoState {
	if c == nil {
		return nil
	}
	caps := c.Capabilities
	current := c.VideoState & call.VideoBidirectional
	var out []call.VideoState
	if caps.HasVoiceCapabilities() && current != call.VideoAudioOnly {
		out = append(out, call.VideoAudioOnly)
	}
	if caps.HasTransmitVideoCapabilities() && current != call.VideoTx {
		out = append(out, call.VideoTx)
	}
	if caps.HasReceiveVideoCapabilities() && current != call.VideoRx {
		out = append(out, call.VideoRx)
	}
	if caps.HasTransmitVideoCapabilities() && caps.HasReceiveVideoCapabilities() && current != call.VideoBidirectional {
		out = append(out, call.VideoBidirectional)
	}
	return out
}
