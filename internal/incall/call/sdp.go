package call

import (
	"fmt"
	"strconv"
	"strings"

	psdp "github.com/pion/sdp/v3"
)

// MediaSummary is what the video pipeline needs from a negotiated session
// description: the resulting video state and the peer frame size, if announced.
type MediaSummary struct {
	VideoState VideoState
	PeerWidth  int
	PeerHeight int
}

var directions = []string{"sendrecv", "sendonly", "recvonly", "inactive"}

// SummarizeSDP derives the video state of a call from its local session
// description. A missing video m-line or a zero port means audio only.
func SummarizeSDP(body []byte) (MediaSummary, error) {
	sd := &psdp.SessionDescription{}
	if err := sd.Unmarshal(body); err != nil {
		return MediaSummary{}, fmt.Errorf("failed to parse SDP: %w", err)
	}

	sessionDir := "sendrecv"
	for _, d := range directions {
		if _, ok := sd.Attribute(d); ok {
			sessionDir = d
			break
		}
	}

	for _, md := range sd.MediaDescriptions {
		if md.MediaName.Media != "video" {
			continue
		}
		var summary MediaSummary
		if md.MediaName.Port.Value == 0 {
			return summary, nil
		}

		dir := sessionDir
		for _, d := range directions {
			if _, ok := md.Attribute(d); ok {
				dir = d
				break
			}
		}
		switch dir {
		case "sendrecv":
			summary.VideoState = VideoBidirectional
		case "sendonly":
			summary.VideoState = VideoTx
		case "recvonly":
			summary.VideoState = VideoRx
		case "inactive":
			summary.VideoState = VideoBidirectional | VideoPaused
		}

		if v, ok := md.Attribute("framesize"); ok {
			summary.PeerWidth, summary.PeerHeight = parseFrameSize(v)
		}
		return summary, nil
	}
	return MediaSummary{}, ErrNoVideoMedia
}

// parseFrameSize reads "<pt> <w>-<h>".
func parseFrameSize(v string) (int, int) {
	fields := strings.Fields(v)
	if len(fields) != 2 {
		return 0, 0
	}
	wh := strings.SplitN(fields[1], "-", 2)
	if len(wh) != 2 {
		return 0, 0
	}
	w, errW := strconv.Atoi(wh[0])
	h, errH := strconv.Atoi(wh[1])
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return 0, 0
	}
	return w, h
}
