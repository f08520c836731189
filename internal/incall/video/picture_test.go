package video

import (
	"errors"
	"testing"

	"github.com/sebas/incallcore/internal/incall/call"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		in      string
		want    Size
		wantErr bool
	}{
		{"640x480", Size{640, 480}, false},
		{" 320X240 ", Size{320, 240}, false},
		{"640", Size{}, true},
		{"0x480", Size{}, true},
		{"axb", Size{}, true},
	}
	for _, tt := range tests {
		got, err := ParseSize(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseSize(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err != nil && !errors.Is(err, ErrInvalidSize) {
			t.Errorf("ParseSize(%q) error = %v, want ErrInvalidSize", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseSize(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPreviewLayout(t *testing.T) {
	fixed := Size{640, 480}
	tests := []struct {
		name      string
		mode      PictureMode
		camera    Size
		fixed     *Size
		landscape bool
		want      Layout
	}{
		{"pip camera size", PictureModePip, Size{1280, 720}, nil, true, Layout{Kind: LayoutPip, Size: Size{1280, 720}}},
		{"pip portrait", PictureModePip, Size{1280, 720}, nil, false, Layout{Kind: LayoutPip, Size: Size{720, 1280}}},
		{"pip clamped", PictureModePip, Size{1280, 720}, &fixed, true, Layout{Kind: LayoutPip, Size: Size{640, 480}}},
		{"preview only fixed", PictureModePreviewOnly, Size{1280, 720}, &fixed, false, Layout{Kind: LayoutFullscreen, Size: Size{480, 640}}},
		{"preview only match parent", PictureModePreviewOnly, Size{1280, 720}, nil, false, Layout{Kind: LayoutFullscreen, MatchParent: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PreviewLayout(tt.mode, tt.camera, tt.fixed, tt.landscape); got != tt.want {
				t.Errorf("PreviewLayout() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParsePictureMode(t *testing.T) {
	for _, p := range []PictureMode{PictureModePip, PictureModePreviewOnly, PictureModeIncomingOnly} {
		got, err := ParsePictureMode(p.String())
		if err != nil || got != p {
			t.Errorf("ParsePictureMode(%q) = %v, %v", p.String(), got, err)
		}
	}
	if _, err := ParsePictureMode("NONE"); !errors.Is(err, ErrInvalidPictureMode) {
		t.Errorf("ParsePictureMode(NONE) error = %v, want ErrInvalidPictureMode", err)
	}
}

func TestIsCameraRequired(t *testing.T) {
	tests := []struct {
		name string
		in   CameraInputs
		want bool
	}{
		{"bidirectional", CameraInputs{Foreground: true, VideoState: call.VideoBidirectional}, true},
		{"tx only", CameraInputs{Foreground: true, VideoState: call.VideoTx}, true},
		{"rx only", CameraInputs{Foreground: true, VideoState: call.VideoRx}, false},
		{"background", CameraInputs{VideoState: call.VideoBidirectional}, false},
		{"static image", CameraInputs{Foreground: true, StaticImage: true, VideoState: call.VideoBidirectional}, false},
		{"voice", CameraInputs{Foreground: true}, false},
		{"upgrade sent", CameraInputs{Foreground: true, SessionModification: call.SessionWaitingForUpgradeResponse}, true},
		{"upgrade received", CameraInputs{Foreground: true, SessionModification: call.SessionReceivedUpgradeRequest}, true},
		{"rx upgrade", CameraInputs{Foreground: true, SessionModification: call.SessionWaitingForUpgradeResponse, RxUpgrade: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsCameraRequired(tt.in); got != tt.want {
				t.Errorf("IsCameraRequired(%+v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestShowIncomingVideo(t *testing.T) {
	tests := []struct {
		name      string
		vs        call.VideoState
		state     call.State
		available bool
		want      bool
	}{
		{"active", call.VideoBidirectional, call.StateActive, true, true},
		{"not available", call.VideoBidirectional, call.StateActive, false, false},
		{"tx only", call.VideoTx, call.StateActive, true, false},
		{"early media", call.VideoRx, call.StateDialing, true, true},
		{"held", call.VideoBidirectional, call.StateOnHold, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShowIncomingVideo(tt.vs, tt.state, tt.available); got != tt.want {
				t.Errorf("ShowIncomingVideo() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestShowOutgoingVideo(t *testing.T) {
	if ShowOutgoingVideo(false, call.VideoBidirectional, call.SessionNoRequest, false) {
		t.Error("ShowOutgoingVideo() = true without camera permission")
	}
	if !ShowOutgoingVideo(true, call.VideoTx, call.SessionNoRequest, false) {
		t.Error("ShowOutgoingVideo() = false for tx")
	}
	if !ShowOutgoingVideo(true, call.VideoAudioOnly, call.SessionWaitingForUpgradeResponse, false) {
		t.Error("ShowOutgoingVideo() = false while upgrading")
	}
	if ShowOutgoingVideo(true, call.VideoAudioOnly, call.SessionWaitingForUpgradeResponse, true) {
		t.Error("ShowOutgoingVideo() = true for a receive-only upgrade")
	}
}

func TestFacingFor(t *testing.T) {
	if got := FacingFor(call.VideoTx); got != FacingBack {
		t.Errorf("FacingFor(tx) = %v, want BACK", got)
	}
	if got := FacingFor(call.VideoBidirectional); got != FacingFront {
		t.Errorf("FacingFor(bidirectional) = %v, want FRONT", got)
	}
}

func TestPreviewMachineEdges(t *testing.T) {
	m := newPreviewMachine(nil, nil)
	if m.capabilities() || m.surfaceSet() || m.release() {
		t.Fatal("transition allowed from NONE")
	}
	if !m.cameraSet() {
		t.Fatal("cameraSet() from NONE refused")
	}
	if m.surfaceSet() {
		t.Error("surfaceSet() allowed before capabilities")
	}
	if !m.capabilities() || !m.surfaceSet() {
		t.Fatalf("forward transitions refused, state %v", m.State())
	}
	if m.cameraSet() || m.capabilities() {
		t.Error("backward transition allowed from SURFACE_SET")
	}
	if !m.release() || m.State() != PreviewNone {
		t.Errorf("release() state = %v, want NONE", m.State())
	}
}
