package call

import (
	"fmt"
	"strings"
)

// VideoState is the video profile bitfield of a call.
type VideoState int

const (
	VideoAudioOnly     VideoState = 0
	VideoTx            VideoState = 1 << 0
	VideoRx            VideoState = 1 << 1
	VideoPaused        VideoState = 1 << 2
	VideoBidirectional            = VideoTx | VideoRx
)

// IsAudioOnly returns true when neither direction carries video.
func (v VideoState) IsAudioOnly() bool { return v&(VideoTx|VideoRx) == 0 }

// IsTransmissionEnabled returns true when the local side sends video.
func (v VideoState) IsTransmissionEnabled() bool { return v&VideoTx != 0 }

// IsReceptionEnabled returns true when the local side receives video.
func (v VideoState) IsReceptionEnabled() bool { return v&VideoRx != 0 }

func (v VideoState) IsBidirectional() bool { return v&VideoBidirectional == VideoBidirectional }

func (v VideoState) IsTxOnly() bool { return v&VideoBidirectional == VideoTx }

func (v VideoState) IsRxOnly() bool { return v&VideoBidirectional == VideoRx }

func (v VideoState) IsPaused() bool { return v&VideoPaused != 0 }

// IsVideo returns true if either direction carries video.
func (v VideoState) IsVideo() bool { return !v.IsAudioOnly() }

func (v VideoState) String() string {
	var b strings.Builder
	switch {
	case v.IsBidirectional():
		b.WriteString("BIDIRECTIONAL")
	case v.IsTxOnly():
		b.WriteString("TX")
	case v.IsRxOnly():
		b.WriteString("RX")
	default:
		b.WriteString("AUDIO_ONLY")
	}
	if v.IsPaused() {
		b.WriteString("|PAUSED")
	}
	return b.String()
}

// ParseVideoState accepts AUDIO_ONLY, TX, RX, BIDIRECTIONAL with an optional |PAUSED suffix.
func ParseVideoState(s string) (VideoState, error) {
	var v VideoState
	for _, part := range strings.Split(s, "|") {
		switch strings.ToUpper(strings.TrimSpace(part)) {
		case "", "AUDIO_ONLY", "AUDIO":
		case "TX":
			v |= VideoTx
		case "RX":
			v |= VideoRx
		case "BIDIRECTIONAL", "VIDEO":
			v |= VideoBidirectional
		case "PAUSED":
			v |= VideoPaused
		default:
			return 0, fmt.Errorf("%w: video state %q", ErrUnknownValue, s)
		}
	}
	return v, nil
}

// Capability is the call capability bitmask.
type Capability int

const (
	CapAddParticipant Capability = 1 << iota
	CapManageConference
	CapDowngradeForbidden
	CapVTLocalTx
	CapVTLocalRx
	CapVTRemoteTx
	CapVTRemoteRx
)

var capabilityNames = []struct {
	cap  Capability
	name string
}{
	{CapAddParticipant, "ADD_PARTICIPANT"},
	{CapManageConference, "MANAGE_CONFERENCE"},
	{CapDowngradeForbidden, "DOWNGRADE_FORBIDDEN"},
	{CapVTLocalTx, "VT_LOCAL_TX"},
	{CapVTLocalRx, "VT_LOCAL_RX"},
	{CapVTRemoteTx, "VT_REMOTE_TX"},
	{CapVTRemoteRx, "VT_REMOTE_RX"},
}

// Has reports whether all bits of c are set.
func (c Capability) Has(other Capability) bool { return c&other == other }

func (c Capability) String() string {
	var names []string
	for _, cn := range capabilityNames {
		if c.Has(cn.cap) {
			names = append(names, cn.name)
		}
	}
	if len(names) == 0 {
		return "NONE"
	}
	return strings.Join(names, "|")
}

// ParseCapabilities parses a list of capability names.
func ParseCapabilities(names []string) (Capability, error) {
	var c Capability
	for _, n := range names {
		found := false
		for _, cn := range capabilityNames {
			if strings.EqualFold(n, cn.name) {
				c |= cn.cap
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("%w: capability %q", ErrUnknownValue, n)
		}
	}
	return c, nil
}

// HasVoiceCapabilities reports whether the call may be downgraded to voice.
func (c Capability) HasVoiceCapabilities() bool { return !c.Has(CapDowngradeForbidden) }

// HasTransmitVideoCapabilities requires local transmit and remote receive.
func (c Capability) HasTransmitVideoCapabilities() bool {
	return c.Has(CapVTLocalTx | CapVTRemoteRx)
}

// HasReceiveVideoCapabilities requires local receive and remote transmit.
func (c Capability) HasReceiveVideoCapabilities() bool {
	return c.Has(CapVTLocalRx | CapVTRemoteTx)
}

func (c Capability) HasVoiceOrVideoCapabilities() bool {
	return c.HasVoiceCapabilities() || c.HasTransmitVideoCapabilities() || c.HasReceiveVideoCapabilities()
}

// CallTypeString renders a video state the way carrier menus label it.
func CallTypeString(v VideoState) string {
	switch {
	case v.IsBidirectional():
		return "VT"
	case v.IsTxOnly():
		return "VT_TX"
	case v.IsRxOnly():
		return "VT_RX"
	default:
		return "VOLTE"
	}
}
