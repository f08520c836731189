package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"testing"
	"time"

	"github.com/sebas/incallcore/internal/incall/actionmenu"
	"github.com/sebas/incallcore/internal/incall/call"
	"github.com/sebas/incallcore/internal/incall/carrier"
	"github.com/sebas/incallcore/internal/incall/enriched"
	"github.com/sebas/incallcore/internal/incall/events"
	"github.com/sebas/incallcore/internal/incall/looper"
	"github.com/sebas/incallcore/internal/incall/metrics"
	"github.com/sebas/incallcore/internal/incall/orientation"
	"github.com/sebas/incallcore/internal/incall/video"
)

type fakeVideoHost struct {
	cameras []string
	pause   []string
}

func (h *fakeVideoHost) SetCamera(_ string, id string) error {
	h.cameras = append(h.cameras, id)
	return nil
}
func (h *fakeVideoHost) RequestCameraCapabilities(string)          {}
func (h *fakeVideoHost) SetPreviewSurface(string, video.SurfaceID) {}
func (h *fakeVideoHost) SetDisplaySurface(string, video.SurfaceID) {}
func (h *fakeVideoHost) SetDeviceOrientation(string, int)          {}
func (h *fakeVideoHost) SetPauseImage(_ string, uri string)        { h.pause = append(h.pause, "set:"+uri) }
func (h *fakeVideoHost) ClearPauseImage(string)                    { h.pause = append(h.pause, "clear") }

type fakeVideoView struct {
	pickers int
}

func (v *fakeVideoView) ShowVideoViews(video.Views)              {}
func (v *fakeVideoView) SetPreviewLayout(video.Layout)           {}
func (v *fakeVideoView) SetRemoteVideoSize(video.Size)           {}
func (v *fakeVideoView) ShowCameraPermissionNotice()             {}
func (v *fakeVideoView) ShowDefaultImageNotice()                 {}
func (v *fakeVideoView) ShowPictureModePicker(video.PictureMode) { v.pickers++ }
func (v *fakeVideoView) DismissPictureModePicker()               {}

type fakeCommands struct {
	dialpad []bool
}

func (c *fakeCommands) ShowDialpad(v bool)                         { c.dialpad = append(c.dialpad, v) }
func (c *fakeCommands) Answer(string, call.VideoState)             {}
func (c *fakeCommands) AcceptVideoRequest(string, call.VideoState) {}
func (c *fakeCommands) UpgradeToVideo(string, call.VideoState)     {}
func (c *fakeCommands) ShowAddParticipant(string)                  {}
func (c *fakeCommands) ShowManageConference(string)                {}
func (c *fakeCommands) ShowPipPicker()                             { panic("picker must be routed to video") }

type fakeExtension struct {
	pending carrier.ResponseFunc
}

func (e *fakeExtension) SendCallDeflectRequest(int, string, carrier.ResponseFunc) error {
	return nil
}
func (e *fakeExtension) SendCallTransferRequest(int, call.TransferType, string, carrier.ResponseFunc) error {
	return nil
}
func (e *fakeExtension) SendCancelModifyCall(_ int, cb carrier.ResponseFunc) error {
	e.pending = cb
	return nil
}

type fakeSink struct {
	got []orientation.Orientation
}

func (s *fakeSink) SetInCallAllowsOrientationChange(o orientation.Orientation) {
	s.got = append(s.got, o)
}

type fakeCardView struct {
	updates int
}

func (v *fakeCardView) Update(*enriched.Record, *enriched.Data) { v.updates++ }
func (v *fakeCardView) SetVisible(bool)                         {}
func (v *fakeCardView) SetEnabled(bool)                         {}
func (v *fakeCardView) ShowSmallView(bool)                      {}
func (v *fakeCardView) ShowFailed(enriched.Priority)            {}
func (v *fakeCardView) ShowDetail(bool)                         {}
func (v *fakeCardView) MapSize() (int, int)                     { return 320, 200 }
func (v *fakeCardView) Open(string)                             {}

type coreHarness struct {
	core      *Core
	video     *fakeVideoHost
	videoView *fakeVideoView
	commands  *fakeCommands
	extension *fakeExtension
	sink      *fakeSink
	sched     *looper.Manual
	pub       *events.ChannelPublisher
	metrics   *metrics.Metrics
}

func newCoreHarness(t *testing.T, ini string, fetcher enriched.ImageFetcher) *coreHarness {
	t.Helper()
	cfg, err := carrier.LoadFile([]byte(ini))
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	h := &coreHarness{
		video:     &fakeVideoHost{},
		videoView: &fakeVideoView{},
		commands:  &fakeCommands{},
		extension: &fakeExtension{},
		sink:      &fakeSink{},
		sched:     looper.NewManual(time.Unix(0, 0)),
		pub:       events.NewChannelPublisher(256),
		metrics:   metrics.New(),
	}
	h.core, err = New(Config{
		Host: Host{
			Video:        h.video,
			VideoView:    h.videoView,
			Commands:     h.commands,
			Extension:    h.extension,
			Orientation:  h.sink,
			Fetcher:      fetcher,
			EnrichedView: &fakeCardView{},
		},
		Carrier:   cfg,
		Settings:  cfg.Settings(),
		Scheduler: h.sched,
		Publisher: h.pub,
		Executor:  func(fn func()) { fn() },
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Metrics:   h.metrics,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { h.core.Close() })
	return h
}

func (h *coreHarness) types() []events.EventType {
	var out []events.EventType
	for _, ev := range h.pub.Drain() {
		out = append(out, ev.Type())
	}
	return out
}

func videoCall(id string) *call.Call {
	return &call.Call{ID: id, State: call.StateActive, VideoState: call.VideoBidirectional}
}

func TestNewRequiresCollaborators(t *testing.T) {
	sched := looper.NewManual(time.Unix(0, 0))
	host := Host{Video: &fakeVideoHost{}, Commands: &fakeCommands{}}

	if _, err := New(Config{Host: host}); !errors.Is(err, ErrNoScheduler) {
		t.Errorf("New() without scheduler error = %v, want ErrNoScheduler", err)
	}
	if _, err := New(Config{Scheduler: sched, Host: Host{Commands: &fakeCommands{}}}); !errors.Is(err, ErrMissingHost) {
		t.Errorf("New() without video host error = %v, want ErrMissingHost", err)
	}
	if _, err := New(Config{Scheduler: sched, Host: Host{Video: &fakeVideoHost{}}}); !errors.Is(err, ErrMissingHost) {
		t.Errorf("New() without commands error = %v, want ErrMissingHost", err)
	}
	if _, err := New(Config{Scheduler: sched, Host: host}); err != nil {
		t.Errorf("New() error = %v", err)
	}
}

func TestPrimaryChangeDeliveryOrder(t *testing.T) {
	h := newCoreHarness(t, "", nil)
	h.core.OnUiShowing(true)
	h.pub.Drain()

	c := videoCall("c1")
	if err := h.core.OnStateChange(call.GlobalInCall, call.NewList(c)); err != nil {
		t.Fatalf("OnStateChange() error = %v", err)
	}

	got := h.types()
	want := []events.EventType{
		events.OrientationChanged,
		events.MenuChanged,
		events.PrimaryChanged,
		events.VideoModeChanged,
	}
	if len(got) < len(want) || !reflect.DeepEqual(got[:len(want)], want) {
		t.Errorf("events = %v, want prefix %v", got, want)
	}
	if p := h.core.Tracker().Primary(); p == nil || p.ID != "c1" {
		t.Errorf("Primary() = %v, want c1", p)
	}
	if !h.core.Video().IsVideoMode() {
		t.Error("IsVideoMode() = false, want true")
	}
	if last := h.sink.got[len(h.sink.got)-1]; last != orientation.AllowRotation {
		t.Errorf("orientation = %v, want %v", last, orientation.AllowRotation)
	}
}

func TestStateChangeRejected(t *testing.T) {
	h := newCoreHarness(t, "", nil)
	if err := h.core.OnStateChange(call.GlobalState(99), call.NewList()); err == nil {
		t.Fatal("OnStateChange(99) error = nil, want error")
	}
	if h.core.State() != call.GlobalNoCalls {
		t.Errorf("State() = %v, want %v", h.core.State(), call.GlobalNoCalls)
	}
}

func TestDetailsChangeReachesEveryComponent(t *testing.T) {
	h := newCoreHarness(t, "", nil)
	h.core.OnUiShowing(true)
	voice := &call.Call{ID: "c1", State: call.StateActive}
	if err := h.core.OnStateChange(call.GlobalInCall, call.NewList(voice)); err != nil {
		t.Fatalf("OnStateChange() error = %v", err)
	}
	if h.core.Video().IsVideoMode() {
		t.Fatal("IsVideoMode() = true for a voice call")
	}
	if h.core.Menu().Menu().IsEnabled(actionmenu.ActionDialpad) {
		t.Fatal("DIALPAD enabled for a voice call")
	}

	h.core.OnDetailsChanged(videoCall("c1"))

	if got := h.core.Orientation().Current(); got != orientation.AllowRotation {
		t.Errorf("orientation = %v, want %v", got, orientation.AllowRotation)
	}
	if !h.core.Menu().Menu().IsEnabled(actionmenu.ActionDialpad) {
		t.Error("DIALPAD disabled after upgrade")
	}
	if !h.core.Video().IsVideoMode() {
		t.Error("IsVideoMode() = false after upgrade")
	}
	if p := h.core.List().Get("c1"); p == nil || !p.IsVideoCall() {
		t.Errorf("List().Get(c1) = %v, want video snapshot", p)
	}
}

func TestPipPickerRoutedToVideo(t *testing.T) {
	h := newCoreHarness(t, "[settings]\ndisable_pip_mode = true\n", nil)
	h.core.OnUiShowing(true)
	if err := h.core.OnStateChange(call.GlobalInCall, call.NewList(videoCall("c1"))); err != nil {
		t.Fatalf("OnStateChange() error = %v", err)
	}

	if err := h.core.SelectAction(actionmenu.ActionPipMode); err != nil {
		t.Fatalf("SelectAction(PIP_MODE) error = %v", err)
	}
	if h.videoView.pickers != 1 {
		t.Errorf("pickers = %d, want 1", h.videoView.pickers)
	}
}

func TestHideMeRoutedToVideo(t *testing.T) {
	h := newCoreHarness(t, "[carrier]\nconfig_enable_hide_me = true\nconfig_transmit_static_image = true\n", nil)
	h.core.SetCameraPermission(true)
	h.core.OnUiShowing(true)
	if err := h.core.OnStateChange(call.GlobalInCall, call.NewList(videoCall("c1"))); err != nil {
		t.Fatalf("OnStateChange() error = %v", err)
	}

	if err := h.core.SelectAction(actionmenu.ActionHideMe); err != nil {
		t.Fatalf("SelectAction(HIDE_ME) error = %v", err)
	}
	if !h.core.Menu().HideMe() {
		t.Error("HideMe() = false after HIDE_ME")
	}
	if _, ok := h.core.Video().PauseImage(); !ok {
		t.Errorf("PauseImage() not set, host saw %v", h.video.pause)
	}
	if !h.core.Menu().Menu().IsEnabled(actionmenu.ActionShowMe) {
		t.Error("SHOW_ME not offered after HIDE_ME")
	}
}

func TestHideMeResetBetweenCalls(t *testing.T) {
	h := newCoreHarness(t, "[carrier]\nconfig_enable_hide_me = true\nconfig_transmit_static_image = true\n", nil)
	h.core.SetCameraPermission(true)
	h.core.OnUiShowing(true)
	if err := h.core.OnStateChange(call.GlobalInCall, call.NewList(videoCall("c1"))); err != nil {
		t.Fatalf("OnStateChange() error = %v", err)
	}
	if err := h.core.SelectAction(actionmenu.ActionHideMe); err != nil {
		t.Fatalf("SelectAction(HIDE_ME) error = %v", err)
	}
	if err := h.core.OnStateChange(call.GlobalNoCalls, call.NewList()); err != nil {
		t.Fatalf("OnStateChange(NO_CALLS) error = %v", err)
	}
	if err := h.core.OnStateChange(call.GlobalInCall, call.NewList(videoCall("c2"))); err != nil {
		t.Fatalf("OnStateChange() error = %v", err)
	}

	if h.core.Menu().HideMe() {
		t.Error("HideMe() = true on a new call")
	}
	menu := h.core.Menu().Menu()
	if !menu.IsEnabled(actionmenu.ActionHideMe) || menu.IsEnabled(actionmenu.ActionShowMe) {
		t.Errorf("enabled = %v, want HIDE_ME and not SHOW_ME", menu.EnabledIDs())
	}
	if _, ok := h.core.Video().PauseImage(); ok {
		t.Error("PauseImage() set on a new call before HIDE_ME")
	}

	if err := h.core.SelectAction(actionmenu.ActionHideMe); err != nil {
		t.Fatalf("SelectAction(HIDE_ME) error = %v", err)
	}
	if _, ok := h.core.Video().PauseImage(); !ok {
		t.Errorf("PauseImage() not set after one HIDE_ME, host saw %v", h.video.pause)
	}
}

func TestCarrierResponsePublished(t *testing.T) {
	h := newCoreHarness(t, "[carrier]\ncancel_modify_call = true\n", nil)
	upgrading := &call.Call{
		ID:                  "c1",
		State:               call.StateActive,
		SessionModification: call.SessionWaitingForUpgradeResponse,
	}
	if err := h.core.OnStateChange(call.GlobalInCall, call.NewList(upgrading)); err != nil {
		t.Fatalf("OnStateChange() error = %v", err)
	}
	if err := h.core.SelectAction(actionmenu.ActionCancelModifyCall); err != nil {
		t.Fatalf("SelectAction(CANCEL_MODIFY_CALL) error = %v", err)
	}
	if h.extension.pending == nil {
		t.Fatal("cancel request not sent")
	}
	h.pub.Drain()

	h.extension.pending(carrier.ResultSuccess)
	h.sched.RunPending()

	var got *events.CarrierResponseEvent
	for _, ev := range h.pub.Drain() {
		if e, ok := ev.(*events.CarrierResponseEvent); ok {
			got = e
		}
	}
	if got == nil {
		t.Fatal("no carrier response event")
	}
	if got.Kind != carrier.RequestCancelModify.String() || got.Result != 0 || got.TimedOut {
		t.Errorf("event = %+v, want cancel_modify result 0", got)
	}
	if got.CallID() != "c1" {
		t.Errorf("CallID() = %q, want c1", got.CallID())
	}
}

func TestCarrierTimeoutPublished(t *testing.T) {
	h := newCoreHarness(t, "[carrier]\ncancel_modify_call = true\n", nil)
	upgrading := &call.Call{
		ID:                  "c1",
		State:               call.StateActive,
		SessionModification: call.SessionWaitingForUpgradeResponse,
	}
	if err := h.core.OnStateChange(call.GlobalInCall, call.NewList(upgrading)); err != nil {
		t.Fatalf("OnStateChange() error = %v", err)
	}
	if err := h.core.SelectAction(actionmenu.ActionCancelModifyCall); err != nil {
		t.Fatalf("SelectAction(CANCEL_MODIFY_CALL) error = %v", err)
	}
	h.pub.Drain()

	h.sched.Advance(actionmenu.DefaultCancelResponseTimeout)

	timedOut := false
	for _, ev := range h.pub.Drain() {
		if e, ok := ev.(*events.CarrierResponseEvent); ok && e.TimedOut {
			timedOut = true
		}
	}
	if !timedOut {
		t.Error("no timed-out carrier response event")
	}
}

func TestEnrichedUpdatePublished(t *testing.T) {
	fetcher := enriched.ImageFetcherFunc(func(context.Context, enriched.Location, int, int) ([]byte, error) {
		return []byte("png"), nil
	})
	h := newCoreHarness(t, "", fetcher)

	c := &call.Call{
		ID:    "c1",
		State: call.StateIncoming,
		Extras: call.Extras{call.ExtraEnrichedCall: call.Extras{
			enriched.KeySubject:   "Lunch?",
			enriched.KeyLatitude:  37.422,
			enriched.KeyLongitude: -122.084,
		}},
	}
	if err := h.core.OnIncomingCall(c, nil); err != nil {
		t.Fatalf("OnIncomingCall() error = %v", err)
	}
	h.pub.Drain()
	h.sched.RunPending()

	var got *events.EnrichedUpdatedEvent
	for _, ev := range h.pub.Drain() {
		if e, ok := ev.(*events.EnrichedUpdatedEvent); ok {
			got = e
		}
	}
	if got == nil {
		t.Fatal("no enriched update event")
	}
	if !got.Valid || !got.HasLocation || !got.HasImageBytes {
		t.Errorf("event = %+v, want valid with location and image", got)
	}
	if r := h.core.Binder().Record("c1"); r == nil || !r.HasImage() {
		t.Errorf("Record(c1) = %+v, want image", r)
	}

	snap, err := h.metrics.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if snap["incall_location_image_fetches_total{result=ok}"] != 1 {
		t.Errorf("ok fetches = %v, want 1", snap["incall_location_image_fetches_total{result=ok}"])
	}
}

func TestIncomingCallRequiresCall(t *testing.T) {
	h := newCoreHarness(t, "", nil)
	if err := h.core.OnIncomingCall(nil, nil); !errors.Is(err, call.ErrNilCall) {
		t.Errorf("OnIncomingCall(nil) error = %v, want ErrNilCall", err)
	}
}
