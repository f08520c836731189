package call

// Call is a snapshot of a host call. Identity is the ID; every other field
// may change between snapshots of the same call.
type Call struct {
	ID                  string
	State               State
	VideoState          VideoState
	RequestedVideoState VideoState
	Capabilities        Capability
	SessionModification SessionModificationState

	IsConference   bool
	IsEmergency    bool
	IsRemotelyHeld bool
	IsWifi         bool

	Extras       Extras
	IntentExtras Extras
}

// SameCall reports whether a and b refer to the same host call.
func SameCall(a, b *Call) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.ID == b.ID
}

// IsVideoCall returns true when the current video state carries video.
func (c *Call) IsVideoCall() bool {
	return c != nil && c.VideoState.IsVideo()
}

// HasSentVideoUpgradeRequest returns true while an outgoing upgrade awaits a response.
func (c *Call) HasSentVideoUpgradeRequest() bool {
	return c != nil && c.SessionModification == SessionWaitingForUpgradeResponse
}

// HasReceivedVideoUpgradeRequest returns true while a remote upgrade awaits the user.
func (c *Call) HasReceivedVideoUpgradeRequest() bool {
	return c != nil && c.SessionModification == SessionReceivedUpgradeRequest
}

// IsVideoUpgrade returns true while any upgrade is in flight.
func (c *Call) IsVideoUpgrade() bool {
	return c.HasSentVideoUpgradeRequest() || c.HasReceivedVideoUpgradeRequest()
}

// IsVideoCallOrUpgrade returns true for video calls and voice calls being upgraded.
func (c *Call) IsVideoCallOrUpgrade() bool {
	return c.IsVideoCall() || c.IsVideoUpgrade()
}

// IsModifyToVideoRx returns true when an upgrade targets receive-only video.
func (c *Call) IsModifyToVideoRx() bool {
	return c != nil && c.IsVideoUpgrade() && c.RequestedVideoState.IsRxOnly()
}

// IsReceivedBidirectionalUpgrade returns true for a pending remote bidirectional upgrade.
func (c *Call) IsReceivedBidirectionalUpgrade() bool {
	return c.HasReceivedVideoUpgradeRequest() && c.RequestedVideoState.IsBidirectional()
}

// PhoneID returns the SIM slot the call is on, or 0.
func (c *Call) PhoneID() int {
	if c == nil {
		return 0
	}
	return c.Extras.Int(ExtraPhoneID, 0)
}

// TransferCapabilities returns the transfer-capabilities bitmask.
func (c *Call) TransferCapabilities() int {
	if c == nil {
		return 0
	}
	return c.Extras.Int(ExtraTransferCapabilities, 0)
}

// OrientationMode returns the carrier orientation hint.
func (c *Call) OrientationMode() OrientationMode {
	if c == nil {
		return OrientationModeUnspecified
	}
	return OrientationMode(c.Extras.Int(ExtraOrientationMode, int(OrientationModeUnspecified)))
}

// IsVideoCRBT returns true for a dialing call receiving a video ring-back tone.
func (c *Call) IsVideoCRBT() bool {
	return c != nil && c.State == StateDialing && c.VideoState.IsRxOnly()
}

// Clone returns a copy that can be mutated without affecting c.
func (c *Call) Clone() *Call {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Extras = cloneExtras(c.Extras)
	cp.IntentExtras = cloneExtras(c.IntentExtras)
	return &cp
}

func cloneExtras(e Extras) Extras {
	if e == nil {
		return nil
	}
	out := make(Extras, len(e))
	for k, v := range e {
		if b, ok := v.(Extras); ok {
			v = cloneExtras(b)
		}
		out[k] = v
	}
	return out
}
