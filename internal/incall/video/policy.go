package video

import "github.com/sebas/incallcore/internal/incall/call"

// ShouldShowVideoUI reports whether c puts the screen into video mode.
func ShouldShowVideoUI(c *call.Call) bool {
	return c != nil && c.State != call.StateDisconnected && c.IsVideoCallOrUpgrade()
}

// ShowIncomingVideo reports whether the remote view should be visible.
// Dialing calls show incoming video for early media.
func ShowIncomingVideo(vs call.VideoState, state call.State, incomingAvailable bool) bool {
	live := state == call.StateActive || state.IsDialing() || state == call.StateConnecting
	return !vs.IsPaused() && vs.IsReceptionEnabled() && live && incomingAvailable
}

// ShowOutgoingVideo reports whether the local preview should be visible.
func ShowOutgoingVideo(cameraPermission bool, vs call.VideoState, mod call.SessionModificationState, rxUpgrade bool) bool {
	if !cameraPermission {
		return false
	}
	upgrading := mod == call.SessionWaitingForUpgradeResponse || mod == call.SessionReceivedUpgradeRequest
	return vs.IsTransmissionEnabled() || (vs.IsAudioOnly() && upgrading && !rxUpgrade)
}

// CameraInputs is everything IsCameraRequired depends on.
type CameraInputs struct {
	Foreground          bool
	StaticImage         bool
	VideoState          call.VideoState
	SessionModification call.SessionModificationState
	RxUpgrade           bool
}

// IsCameraRequired reports whether the camera must be open.
func IsCameraRequired(in CameraInputs) bool {
	if !in.Foreground || in.StaticImage || in.RxUpgrade {
		return false
	}
	vs := in.VideoState
	upgrading := in.SessionModification == call.SessionWaitingForUpgradeResponse ||
		in.SessionModification == call.SessionReceivedUpgradeRequest
	return vs.IsBidirectional() || vs.IsTransmissionEnabled() || (vs.IsAudioOnly() && upgrading)
}

// Facing is a camera direction.
type Facing int

const (
	FacingFront Facing = iota
	FacingBack
)

func (f Facing) String() string {
	if f == FacingBack {
		return "BACK"
	}
	return "FRONT"
}

// FacingFor picks the camera for a video state: transmit-only calls use the
// back camera, everything else the front one.
func FacingFor(vs call.VideoState) Facing {
	if vs.IsTxOnly() {
		return FacingBack
	}
	return FacingFront
}

// ShowGreenScreen reports whether the remote view is replaced by the
// placeholder screen used while no remote video can be expected.
func ShowGreenScreen(c *call.Call, incomingAvailable bool) bool {
	if c == nil {
		return false
	}
	state := c.State
	if (state.IsDialing() || state == call.StateConnecting) && !incomingAvailable {
		return true
	}
	if state == call.StateIncoming {
		return true
	}
	return !c.HasSentVideoUpgradeRequest() && !c.IsModifyToVideoRx() && c.IsVideoUpgrade()
}
