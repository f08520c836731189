package replay

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/sebas/incallcore/internal/incall/app"
	"github.com/sebas/incallcore/internal/incall/call"
	"github.com/sebas/incallcore/internal/incall/carrier"
	"github.com/sebas/incallcore/internal/incall/events"
	"github.com/sebas/incallcore/internal/incall/looper"
)

const videoSDP = "v=0\r\n" +
	"o=- 1 1 IN IP4 10.0.0.1\r\n" +
	"s=-\r\n" +
	"t=0 0\r\n" +
	"m=video 49172 RTP/AVP 99\r\n" +
	"a=framesize:99 640-480\r\n" +
	"a=sendrecv\r\n"

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParse(t *testing.T) {
	if _, err := Parse([]byte(`{"name":"x","steps":[]}`)); !errors.Is(err, ErrEmptyScenario) {
		t.Errorf("Parse(no steps) error = %v, want ErrEmptyScenario", err)
	}

	_, err := Parse([]byte(`{"steps":[{"op":"state"},{"value":true}]}`))
	var se *StepError
	if !errors.As(err, &se) || se.Index != 1 || !errors.Is(err, ErrMissingOp) {
		t.Errorf("Parse(missing op) error = %v, want StepError at 1 wrapping ErrMissingOp", err)
	}

	if _, err := Parse([]byte(`{`)); err == nil {
		t.Error("Parse(bad json) error = nil")
	}

	sc, err := Parse([]byte(`{"name":"basic","steps":[{"op":"foreground","value":true}]}`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if sc.Name != "basic" || len(sc.Steps) != 1 || sc.Steps[0].Value == nil || !*sc.Steps[0].Value {
		t.Errorf("Parse() = %+v", sc)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.json")
	if err := os.WriteFile(path, []byte(`{"steps":[{"op":"wait","duration":"1s"}]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	sc, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if sc.Steps[0].Duration != "1s" {
		t.Errorf("Duration = %q, want 1s", sc.Steps[0].Duration)
	}
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("LoadFile(missing) error = nil")
	}
}

func TestBuild(t *testing.T) {
	cs := CallSpec{
		ID:                  "c1",
		State:               "ACTIVE",
		VideoState:          "BIDIRECTIONAL",
		SessionModification: "RECEIVED_UPGRADE_TO_VIDEO_REQUEST",
		Capabilities:        []string{"ADD_PARTICIPANT"},
		Extras:              map[string]any{"OrientationMode": float64(1)},
	}
	b, err := cs.Build(2)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	c := b.Call
	if c.State != call.StateActive || c.VideoState != call.VideoBidirectional {
		t.Errorf("call = %v %v, want ACTIVE BIDIRECTIONAL", c.State, c.VideoState)
	}
	if c.SessionModification != call.SessionReceivedUpgradeRequest {
		t.Errorf("SessionModification = %v", c.SessionModification)
	}
	if !c.Capabilities.Has(call.CapAddParticipant) {
		t.Error("ADD_PARTICIPANT capability missing")
	}
	if got := c.Extras.Int(call.ExtraPhoneID, -1); got != 2 {
		t.Errorf("phone id = %d, want 2", got)
	}

	if _, err := (CallSpec{State: "ACTIVE"}).Build(0); !errors.Is(err, ErrMissingCallID) {
		t.Errorf("Build(no id) error = %v, want ErrMissingCallID", err)
	}
	if _, err := (CallSpec{ID: "c1", State: "RINGING"}).Build(0); !errors.Is(err, call.ErrUnknownValue) {
		t.Errorf("Build(bad state) error = %v, want ErrUnknownValue", err)
	}
}

func TestBuildFromSDP(t *testing.T) {
	b, err := CallSpec{ID: "c1", State: "ACTIVE", SDP: videoSDP}.Build(0)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if b.Call.VideoState != call.VideoBidirectional {
		t.Errorf("VideoState = %v, want BIDIRECTIONAL", b.Call.VideoState)
	}
	if b.PeerWidth != 640 || b.PeerHeight != 480 {
		t.Errorf("peer = %dx%d, want 640x480", b.PeerWidth, b.PeerHeight)
	}

	audio := "v=0\r\no=- 1 1 IN IP4 10.0.0.1\r\ns=-\r\nt=0 0\r\nm=audio 49170 RTP/AVP 0\r\n"
	b, err = CallSpec{ID: "c1", State: "ACTIVE", VideoState: "BIDIRECTIONAL", SDP: audio}.Build(0)
	if err != nil {
		t.Fatalf("Build(audio) error = %v", err)
	}
	if !b.Call.VideoState.IsAudioOnly() {
		t.Errorf("VideoState = %v, want audio only", b.Call.VideoState)
	}
}

type runnerHarness struct {
	runner *Runner
	host   *Host
	core   *app.Core
	sched  *looper.Manual
}

func newRunnerHarness(t *testing.T, ini string) *runnerHarness {
	t.Helper()
	cfg, err := carrier.LoadFile([]byte(ini))
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	host := NewHost(discard())
	sched := looper.NewManual(time.Unix(0, 0))
	core, err := app.New(app.Config{
		Host:      host.Collaborators(),
		Carrier:   cfg,
		Settings:  cfg.Settings(),
		Scheduler: sched,
		Publisher: events.NewNoopPublisher(),
		Executor:  func(fn func()) { fn() },
		Logger:    discard(),
	})
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}
	t.Cleanup(func() { core.Close() })

	dispatch := DispatcherFunc(func(_ context.Context, fn func()) error {
		fn()
		sched.RunPending()
		return nil
	})
	return &runnerHarness{
		host:  host,
		core:  core,
		sched: sched,
		runner: &Runner{
			Core:       core,
			Host:       host,
			Dispatcher: dispatch,
			Logger:     discard(),
			Wait: func(_ context.Context, d time.Duration) error {
				sched.Advance(d)
				return nil
			},
		},
	}
}

func (h *runnerHarness) saw(prefix string) bool {
	for _, line := range h.host.Transcript() {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

func TestRunnerCancelModify(t *testing.T) {
	h := newRunnerHarness(t, "[carrier]\ncancel_modify_call = true\n")
	sc, err := Parse([]byte(`{"name":"cancel","steps":[
		{"op":"foreground","value":true},
		{"op":"state","state":"INCALL","calls":[
			{"id":"c1","state":"ACTIVE","session_modification":"WAITING_FOR_UPGRADE_TO_VIDEO_RESPONSE"}]},
		{"op":"select","action":"cancel_modify_call"},
		{"op":"carrier_response","kind":"cancel_modify","result":0}
	]}`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if err := h.runner.Run(context.Background(), sc); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !h.saw("SendCancelModifyCall") {
		t.Errorf("no cancel request in %v", h.host.Transcript())
	}
	if !h.saw("CarrierResponse kind=cancel_modify result=0") {
		t.Errorf("no carrier response in %v", h.host.Transcript())
	}
	if p := h.core.Tracker().Primary(); p == nil || p.ID != "c1" {
		t.Errorf("Primary() = %v, want c1", p)
	}
}

func TestRunnerNoPendingResponse(t *testing.T) {
	h := newRunnerHarness(t, "")
	sc := &Scenario{Steps: []Step{{Op: OpCarrierResponse, Kind: "deflect"}}}
	err := h.runner.Run(context.Background(), sc)
	var se *StepError
	if !errors.As(err, &se) || se.Index != 0 || !errors.Is(err, ErrNoPending) {
		t.Errorf("Run() error = %v, want StepError wrapping ErrNoPending", err)
	}

	sc = &Scenario{Steps: []Step{{Op: OpCarrierResponse, Kind: "hangup"}}}
	if err := h.runner.Run(context.Background(), sc); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("Run(bad kind) error = %v, want ErrUnknownKind", err)
	}
}

func TestRunnerUnknownOp(t *testing.T) {
	h := newRunnerHarness(t, "")
	sc := &Scenario{Steps: []Step{
		{Op: OpInteraction},
		{Op: "teleport"},
	}}
	err := h.runner.Run(context.Background(), sc)
	var se *StepError
	if !errors.As(err, &se) || se.Index != 1 || !errors.Is(err, ErrUnknownOp) {
		t.Errorf("Run() error = %v, want StepError at 1 wrapping ErrUnknownOp", err)
	}
}

func TestRunnerMissingValue(t *testing.T) {
	h := newRunnerHarness(t, "")
	sc := &Scenario{Steps: []Step{{Op: OpForeground}}}
	if err := h.runner.Run(context.Background(), sc); !errors.Is(err, ErrMissingValue) {
		t.Errorf("Run() error = %v, want ErrMissingValue", err)
	}
}

func TestRunnerRejectedSelectContinues(t *testing.T) {
	h := newRunnerHarness(t, "")
	sc := &Scenario{Steps: []Step{
		{Op: OpSelect, Action: "PIP_MODE"},
		{Op: OpInteraction},
	}}
	if err := h.runner.Run(context.Background(), sc); err != nil {
		t.Errorf("Run() error = %v, want rejected select to be logged only", err)
	}
}

func TestRunnerVideoCallFromSDP(t *testing.T) {
	h := newRunnerHarness(t, "")
	yes := true
	sc := &Scenario{Steps: []Step{
		{Op: OpForeground, Value: &yes},
		{Op: OpCameraPermission, Value: &yes},
		{Op: OpState, State: "INCALL", Calls: []CallSpec{{ID: "c1", State: "ACTIVE", SDP: videoSDP}}},
		{Op: OpSurface, Surface: "display", ID: "display-1"},
		{Op: OpWait, Duration: "10s"},
	}}
	if err := h.runner.Run(context.Background(), sc); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !h.core.Video().IsVideoMode() {
		t.Error("IsVideoMode() = false for a bidirectional SDP")
	}
	if !h.saw("SetRemoteVideoSize") {
		t.Errorf("peer size not forwarded: %v", h.host.Transcript())
	}
	if !h.saw("SetDisplaySurface call=c1 surface=display-1") {
		t.Errorf("display surface not bound: %v", h.host.Transcript())
	}
}

func TestRunnerFullscreenAndSurfaceRelease(t *testing.T) {
	h := newRunnerHarness(t, "[settings]\nauto_fullscreen = true\n")
	yes, no := true, false
	sc := &Scenario{Steps: []Step{
		{Op: OpForeground, Value: &yes},
		{Op: OpCameraPermission, Value: &yes},
		{Op: OpState, State: "INCALL", Calls: []CallSpec{{ID: "c1", State: "ACTIVE", VideoState: "BIDIRECTIONAL"}}},
		{Op: OpSurface, Surface: "preview", ID: "preview-1"},
		{Op: OpSurface, Surface: "display", ID: "display-1"},
		{Op: OpTouchExplore, Value: &yes},
		{Op: OpWait, Duration: "1m"},
		{Op: OpSurfaceClick},
		{Op: OpFullscreen, Value: &no},
		{Op: OpSurface, Surface: "preview_released"},
		{Op: OpSurface, Surface: "display_released"},
	}}
	if err := h.runner.Run(context.Background(), sc); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	var fullscreen []string
	for _, line := range h.host.Transcript() {
		if strings.HasPrefix(line, "SetFullscreen") {
			fullscreen = append(fullscreen, line)
		}
	}
	if want := []string{"SetFullscreen on=true"}; !reflect.DeepEqual(fullscreen, want) {
		t.Errorf("fullscreen commands = %v, want %v", fullscreen, want)
	}
	if h.core.Video().IsFullscreen() {
		t.Error("IsFullscreen() = true after host left fullscreen")
	}
	if !containsLine(h.host.Transcript(), "SetPreviewSurface call=c1 surface=") {
		t.Errorf("preview surface not released: %v", h.host.Transcript())
	}
	if !containsLine(h.host.Transcript(), "SetDisplaySurface call=c1 surface=") {
		t.Errorf("display surface not released: %v", h.host.Transcript())
	}
	if got := h.core.Video().CameraID(); got != "" {
		t.Errorf("CameraID() = %q after preview released, want none", got)
	}
}

func containsLine(lines []string, want string) bool {
	for _, l := range lines {
		if l == want {
			return true
		}
	}
	return false
}

func TestRunnerDetailsSessionModification(t *testing.T) {
	h := newRunnerHarness(t, "")
	sc := &Scenario{Steps: []Step{
		{Op: OpState, State: "INCALL", Calls: []CallSpec{{ID: "c1", State: "ACTIVE"}}},
		{Op: OpDetails, Call: &CallSpec{
			ID:                  "c1",
			State:               "ACTIVE",
			RequestedVideoState: "BIDIRECTIONAL",
			SessionModification: "RECEIVED_UPGRADE_TO_VIDEO_REQUEST",
		}},
	}}
	if err := h.runner.Run(context.Background(), sc); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	c := h.core.List().Get("c1")
	if c == nil || c.SessionModification != call.SessionReceivedUpgradeRequest {
		t.Errorf("List().Get(c1) = %v, want upgrade request", c)
	}
}

func TestRunnerDisconnectUnknownCall(t *testing.T) {
	h := newRunnerHarness(t, "")
	sc := &Scenario{Steps: []Step{{Op: OpDisconnect, CallID: "nope"}}}
	if err := h.runner.Run(context.Background(), sc); !errors.Is(err, ErrMissingCallID) {
		t.Errorf("Run() error = %v, want ErrMissingCallID", err)
	}
}

func TestHostRespondOnce(t *testing.T) {
	h := NewHost(discard())
	var got []int
	if err := h.SendCallDeflectRequest(0, "+15550100", func(r int) { got = append(got, r) }); err != nil {
		t.Fatalf("SendCallDeflectRequest() error = %v", err)
	}
	if err := h.Respond(carrier.RequestDeflect, 3); err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if err := h.Respond(carrier.RequestDeflect, 0); !errors.Is(err, ErrNoPending) {
		t.Errorf("second Respond() error = %v, want ErrNoPending", err)
	}
	if len(got) != 1 || got[0] != 3 {
		t.Errorf("callback results = %v, want [3]", got)
	}
}

func TestRunnerScenarioFile(t *testing.T) {
	ini, err := os.ReadFile(filepath.Join("testdata", "carrier.ini"))
	if err != nil {
		t.Fatal(err)
	}
	h := newRunnerHarness(t, string(ini))
	sc, err := LoadFile(filepath.Join("testdata", "video_call.json"))
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if err := h.runner.Run(context.Background(), sc); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	for _, want := range []string{
		"SetCamera call=c1",
		"SetDisplaySurface call=c1 surface=display-1",
		"SetPauseImage call=c1",
		"ShowPictureModePicker",
		"SendCancelModifyCall",
		"CarrierResponse kind=cancel_modify",
	} {
		if !h.saw(want) {
			t.Errorf("transcript has no %q", want)
		}
	}

	cancels := 0
	for _, line := range h.host.Transcript() {
		if strings.HasPrefix(line, "SendCancelModifyCall") {
			cancels++
		}
	}
	if cancels != 1 {
		t.Errorf("cancel requests = %d, want 1", cancels)
	}
	if h.core.State() != call.GlobalNoCalls {
		t.Errorf("State() = %v, want NO_CALLS", h.core.State())
	}
}
