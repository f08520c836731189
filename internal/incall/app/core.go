// Package app wires the in-call components into a single core driven by host
// callbacks. Every exported Core method must run on the core thread.
package app

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/sebas/incallcore/internal/incall/actionmenu"
	"github.com/sebas/incallcore/internal/incall/call"
	"github.com/sebas/incallcore/internal/incall/carrier"
	"github.com/sebas/incallcore/internal/incall/enriched"
	"github.com/sebas/incallcore/internal/incall/events"
	"github.com/sebas/incallcore/internal/incall/looper"
	"github.com/sebas/incallcore/internal/incall/metrics"
	"github.com/sebas/incallcore/internal/incall/orientation"
	"github.com/sebas/incallcore/internal/incall/permission"
	"github.com/sebas/incallcore/internal/incall/prefs"
	"github.com/sebas/incallcore/internal/incall/tracker"
	"github.com/sebas/incallcore/internal/incall/video"
)

// Host bundles the collaborators implemented by the host process.
type Host struct {
	Video          video.Host
	VideoView      video.View
	Screen         video.Screen
	MenuView       actionmenu.View
	Commands       actionmenu.Commands
	Extension      carrier.Extension
	Orientation    orientation.Sink
	Permission     permission.Host
	Fetcher        enriched.ImageFetcher
	EnrichedView   enriched.View
	CapabilityView enriched.CapabilityView
}

// Config configures a Core.
type Config struct {
	Host      Host
	Carrier   carrier.Config
	Settings  carrier.Settings
	Scheduler looper.Scheduler
	Prefs     prefs.Store
	Publisher events.Publisher
	// Executor runs location image fetches. Defaults to one goroutine per fetch.
	Executor enriched.Executor
	// Source names the activity in published events.
	Source string

	CancelResponseTimeout time.Duration
	CapabilityTimeout     time.Duration
	FetchTimeout          time.Duration

	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Core owns the in-call components and delivers host callbacks to them in
// order: tracker, orientation, menu, video, enriched.
type Core struct {
	logger    *slog.Logger
	metrics   *metrics.Metrics
	publisher events.Publisher
	events    *events.Builder

	tracker     *tracker.Tracker
	orientation *orientation.Policy
	menu        *actionmenu.Model
	video       *video.Coordinator
	storage     *permission.StorageGate
	binder      *enriched.Binder
	presenter   *enriched.Presenter
	capability  *enriched.CapabilityCheck

	state       call.GlobalState
	list        *call.List
	lastPrimary string
	videoMode   bool
	preview     video.PreviewState
}

// New builds a core with no calls.
func New(cfg Config) (*Core, error) {
	if cfg.Scheduler == nil {
		return nil, ErrNoScheduler
	}
	if cfg.Host.Video == nil {
		return nil, fmt.Errorf("%w: video host", ErrMissingHost)
	}
	if cfg.Host.Commands == nil {
		return nil, fmt.Errorf("%w: call commands", ErrMissingHost)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Carrier == nil {
		cfg.Carrier = carrier.Empty()
	}
	if cfg.Publisher == nil {
		cfg.Publisher = events.NewNoopPublisher()
	}
	if cfg.Executor == nil {
		cfg.Executor = enriched.GoExecutor
	}
	if cfg.Source == "" {
		cfg.Source = "incall"
	}

	c := &Core{
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
		publisher: cfg.Publisher,
		events:    events.NewBuilder(cfg.Source),
		state:     call.GlobalNoCalls,
		list:      call.NewList(),
	}

	c.tracker = tracker.New(tracker.Config{Logger: cfg.Logger, Metrics: cfg.Metrics})
	c.orientation = orientation.New(orientation.Config{
		Sink:    orientationSink{core: c, sink: cfg.Host.Orientation},
		Logger:  cfg.Logger,
		Metrics: cfg.Metrics,
	})
	c.storage = permission.NewStorageGate(permission.StorageGateConfig{
		Host:   cfg.Host.Permission,
		Prefs:  cfg.Prefs,
		Logger: cfg.Logger,
	})
	c.menu = actionmenu.New(actionmenu.Config{
		View:                  menuView{core: c, view: cfg.Host.MenuView},
		Commands:              commands{core: c, Commands: cfg.Host.Commands},
		Carrier:               cfg.Carrier,
		Extension:             cfg.Host.Extension,
		Scheduler:             cfg.Scheduler,
		Settings:              cfg.Settings,
		CancelResponseTimeout: cfg.CancelResponseTimeout,
		OnHideMeChanged:       c.onHideMeChanged,
		OnResponse:            c.onCarrierResponse,
		Logger:                cfg.Logger,
		Metrics:               cfg.Metrics,
	})
	c.video = video.New(video.Config{
		Host:        cfg.Host.Video,
		View:        cfg.Host.VideoView,
		Screen:      cfg.Host.Screen,
		Carrier:     cfg.Carrier,
		Settings:    cfg.Settings,
		Scheduler:   cfg.Scheduler,
		Storage:     c.storage,
		Orientation: c.orientation,
		Logger:      cfg.Logger,
		Metrics:     cfg.Metrics,
	})
	c.binder = enriched.NewBinder(enriched.BinderConfig{
		Fetcher:      cfg.Host.Fetcher,
		Executor:     cfg.Executor,
		Scheduler:    cfg.Scheduler,
		Storage:      c.storage,
		FetchTimeout: cfg.FetchTimeout,
		Logger:       cfg.Logger,
		Metrics:      cfg.Metrics,
	})
	c.presenter = enriched.NewPresenter(enriched.PresenterConfig{
		Binder: c.binder,
		View:   cfg.Host.EnrichedView,
		Logger: cfg.Logger,
	})
	c.capability = enriched.NewCapabilityCheck(enriched.CapabilityConfig{
		View:      cfg.Host.CapabilityView,
		Scheduler: cfg.Scheduler,
		Timeout:   cfg.CapabilityTimeout,
		Logger:    cfg.Logger,
		Metrics:   cfg.Metrics,
	})

	// Registration order is delivery order.
	c.tracker.AddListener(c.orientation)
	c.tracker.AddListener(c.menu)
	c.tracker.AddListener(tracker.ListenerFunc(c.onPrimaryChanged))
	c.binder.AddListener(enriched.UpdateListenerFunc(c.onEnrichedUpdated))

	c.logger.Debug("[Core] Created", "source", cfg.Source)
	return c, nil
}

func (c *Core) Tracker() *tracker.Tracker             { return c.tracker }
func (c *Core) Orientation() *orientation.Policy      { return c.orientation }
func (c *Core) Menu() *actionmenu.Model               { return c.menu }
func (c *Core) Video() *video.Coordinator             { return c.video }
func (c *Core) Storage() *permission.StorageGate      { return c.storage }
func (c *Core) Binder() *enriched.Binder              { return c.binder }
func (c *Core) Presenter() *enriched.Presenter        { return c.presenter }
func (c *Core) Capability() *enriched.CapabilityCheck { return c.capability }
func (c *Core) State() call.GlobalState               { return c.state }
func (c *Core) List() *call.List                      { return c.list }

// OnStateChange delivers a host global state transition.
func (c *Core) OnStateChange(state call.GlobalState, list *call.List) error {
	if list == nil {
		list = call.NewList()
	}
	if err := c.tracker.OnStateChange(c.state, state, list); err != nil {
		return err
	}
	c.logger.Debug("[Core] State changed", "from", c.state, "to", state, "calls", list.Len())
	c.state = state
	c.list = list
	c.refreshPrimary()
	c.video.OnStateChange(state, list)
	c.binder.OnCallListChange(list)
	c.presenter.OnStateChange(state, list)
	c.syncVideo()
	return nil
}

// OnIncomingCall delivers a new ringing call. It is handled as a transition to INCOMING.
func (c *Core) OnIncomingCall(incoming *call.Call, list *call.List) error {
	if incoming == nil {
		return fmt.Errorf("incoming call: %w", call.ErrNilCall)
	}
	if err := c.tracker.OnIncomingCall(c.state, incoming, list); err != nil {
		return err
	}
	c.logger.Info("[Core] Incoming call", "call", incoming.ID, "video_state", incoming.VideoState)
	c.state = call.GlobalIncoming
	c.list = c.tracker.List()
	c.refreshPrimary()
	c.video.OnStateChange(c.state, c.list)
	c.binder.OnIncomingCall(incoming)
	c.binder.OnCallListChange(c.list)
	c.presenter.OnIncomingCall(c.list)
	c.syncVideo()
	return nil
}

// OnCallListChange delivers a new call list without a state transition.
func (c *Core) OnCallListChange(list *call.List) {
	c.tracker.OnCallListChange(list)
	c.list = c.tracker.List()
	c.refreshPrimary()
	c.video.OnStateChange(c.state, c.list)
	c.binder.OnCallListChange(c.list)
	c.presenter.OnStateChange(c.state, c.list)
	c.syncVideo()
}

// OnDetailsChanged delivers a newer snapshot of one call.
func (c *Core) OnDetailsChanged(updated *call.Call) {
	if updated == nil {
		return
	}
	known := c.replace(updated)
	c.orientation.OnDetailsChanged(updated)
	c.menu.OnDetailsChanged(updated)
	if known {
		c.video.OnStateChange(c.state, c.list)
	} else {
		c.video.OnDetailsChanged(updated)
	}
	c.binder.OnDetailsChanged(updated)
	c.presenter.OnDetailsChanged(updated)
	c.syncVideo()
}

// OnSessionModificationStateChange delivers a video negotiation update.
func (c *Core) OnSessionModificationStateChange(updated *call.Call) {
	if updated == nil {
		return
	}
	c.replace(updated)
	state := updated.SessionModification
	c.orientation.OnSessionModificationStateChange(updated, state)
	c.menu.OnSessionModificationStateChange(updated, state)
	c.video.OnSessionModificationStateChange(updated)
	c.binder.OnDetailsChanged(updated)
	c.presenter.OnDetailsChanged(updated)
	c.syncVideo()
}

// OnDisconnect forgets per-call enriched data.
func (c *Core) OnDisconnect(gone *call.Call) {
	c.binder.OnDisconnect(gone)
}

// OnUiShowing delivers activity visibility.
func (c *Core) OnUiShowing(showing bool) {
	c.logger.Debug("[Core] UI showing", "showing", showing)
	c.orientation.OnUiShowing(showing)
	c.menu.SetForeground(showing)
	c.video.OnUiShowing(showing)
	c.presenter.SetForeground(showing)
	c.syncVideo()
}

func (c *Core) SetCameraPermission(granted bool) {
	c.menu.SetCameraPermission(granted)
	c.video.SetCameraPermission(granted)
	c.syncVideo()
}

func (c *Core) SetMultiWindow(on bool)  { c.menu.SetMultiWindow(on) }
func (c *Core) SetUserUnlocked(on bool) { c.menu.SetUserUnlocked(on) }

// SetSettings applies new host settings.
func (c *Core) SetSettings(s carrier.Settings) {
	c.menu.SetSettings(s)
	c.video.SetSettings(s)
	c.syncVideo()
}

// OnCarrierConfigChanged re-reads carrier flags after the configuration was reloaded.
func (c *Core) OnCarrierConfigChanged() {
	c.logger.Info("[Core] Carrier configuration changed")
	c.menu.OnCarrierConfigChanged()
	c.video.OnCarrierConfigChanged()
	c.syncVideo()
}

// SelectAction dispatches a menu action.
func (c *Core) SelectAction(id actionmenu.ActionID) error {
	err := c.menu.Select(id)
	c.syncVideo()
	return err
}

// SelectTransfer completes a transfer with the chosen variant.
func (c *Core) SelectTransfer(t call.TransferType, number string) error {
	return c.menu.SelectTransfer(t, number)
}

// SelectModify completes a modify-call request with the chosen video state.
func (c *Core) SelectModify(target call.VideoState) error {
	return c.menu.SelectModify(target)
}

func (c *Core) DismissOptions() { c.menu.DismissOptions() }

func (c *Core) OnCameraDimensionsChanged(callID string, w, h int) {
	c.video.OnCameraDimensionsChanged(callID, w, h)
	c.syncVideo()
}

func (c *Core) OnPeerDimensionsChanged(callID string, w, h int) {
	c.video.OnPeerDimensionsChanged(callID, w, h)
}

func (c *Core) OnDeviceOrientationChanged(rotation int) {
	c.video.OnDeviceOrientationChanged(rotation)
}

func (c *Core) OnPreviewSurfaceCreated(s video.SurfaceID) {
	c.video.OnPreviewSurfaceCreated(s)
	c.syncVideo()
}

func (c *Core) OnPreviewSurfaceDestroyed(changingConfigurations bool) {
	c.video.OnPreviewSurfaceDestroyed(changingConfigurations)
	c.syncVideo()
}

// OnPreviewSurfaceReleased is delivered when the host drops the preview
// surface for good; the camera closes.
func (c *Core) OnPreviewSurfaceReleased() {
	c.video.OnPreviewSurfaceReleased()
	c.syncVideo()
}

func (c *Core) OnDisplaySurfaceCreated(s video.SurfaceID) {
	c.video.OnDisplaySurfaceCreated(s)
}

func (c *Core) OnDisplaySurfaceReleased() { c.video.OnDisplaySurfaceReleased() }

func (c *Core) OnSessionEvent(callID string, ev call.SessionEvent) {
	c.video.OnSessionEvent(callID, ev)
}

func (c *Core) SetPictureMode(p video.PictureMode) error {
	err := c.video.SetPictureMode(p)
	c.syncVideo()
	return err
}

func (c *Core) OnUserInteraction()            { c.video.OnUserInteraction() }
func (c *Core) SetDialpadVisible(v bool)      { c.video.SetDialpadVisible(v) }
func (c *Core) OnAnswerViewGrab(grabbed bool) { c.presenter.OnAnswerViewGrab(grabbed) }

// SetTouchExploration records the accessibility touch-explore mode.
func (c *Core) SetTouchExploration(enabled bool) { c.video.SetTouchExploration(enabled) }

// OnSurfaceClick toggles fullscreen from a tap on the video surface.
func (c *Core) OnSurfaceClick() { c.video.OnSurfaceClick() }

// OnFullscreenModeChanged records a fullscreen change the host made itself.
func (c *Core) OnFullscreenModeChanged(on bool) { c.video.OnFullscreenModeChanged(on) }

// OnStoragePermissionResult delivers the host's storage permission answer.
func (c *Core) OnStoragePermissionResult(granted bool) {
	c.storage.OnResult(granted)
	c.syncVideo()
}

// StartCapabilityCheck asks whether number supports enriched calling.
func (c *Core) StartCapabilityCheck(number string) { c.capability.Start(number) }

func (c *Core) OnCapabilityResult(number string, capable bool) {
	c.capability.OnResult(number, capable)
}

func (c *Core) OnCapabilityNetworkFailure() { c.capability.OnNetworkFailure() }

func (c *Core) OnMapClicked() error         { return c.presenter.OnMapClicked() }
func (c *Core) OnSharedImageClicked() error { return c.presenter.OnSharedImageClicked() }

// Close releases the event publisher.
func (c *Core) Close() error {
	return c.publisher.Close()
}

// replace swaps updated into the call list. It reports whether the call was known.
func (c *Core) replace(updated *call.Call) bool {
	if !c.list.Contains(updated) {
		return false
	}
	calls := c.list.Calls()
	for i, existing := range calls {
		if existing.ID == updated.ID {
			calls[i] = updated
		}
	}
	c.list = call.NewList(calls...)
	c.tracker.OnCallListChange(c.list)
	return true
}

// refreshPrimary hands the tracker's freshest primary snapshot to components
// that only hear about identity changes from the tracker.
func (c *Core) refreshPrimary() {
	p := c.tracker.Primary()
	if p == nil {
		return
	}
	c.orientation.OnDetailsChanged(p)
	c.menu.OnDetailsChanged(p)
}

// syncVideo publishes video mode and preview transitions observed since the last call.
func (c *Core) syncVideo() {
	p := c.video.Primary()
	if mode := c.video.IsVideoMode(); mode != c.videoMode {
		c.videoMode = mode
		vs := call.VideoAudioOnly
		if p != nil {
			vs = p.VideoState
		}
		c.publish(c.events.VideoMode(idOf(p), mode, vs.String()))
	}
	if st := c.video.PreviewState(); st != c.preview {
		c.publish(c.events.PreviewState(idOf(p), c.preview.String(), st.String()))
		c.preview = st
	}
}

func (c *Core) onPrimaryChanged(p *call.Call) {
	c.publish(c.events.PrimaryChanged(idOf(p), c.lastPrimary, c.tracker.Role().String()))
	c.lastPrimary = idOf(p)
}

func (c *Core) onHideMeChanged(enabled bool) {
	c.video.SetHideMe(enabled)
}

func (c *Core) onCarrierResponse(callID string, kind carrier.RequestKind, result int, timedOut bool) {
	b := c.events.CarrierResponse(callID, kind.String())
	if timedOut {
		b.TimedOut()
	} else {
		b.Result(result)
	}
	c.publish(b.Build())
}

func (c *Core) onEnrichedUpdated(r *enriched.Record) {
	d := r.Data()
	c.publish(c.events.EnrichedUpdated(r.CallID, d.IsValid(), d.IsValidLocation(), r.HasImage()))
}

func (c *Core) publish(ev events.Event) {
	c.publisher.PublishAsync(ev)
}

func idOf(c *call.Call) string {
	if c == nil {
		return ""
	}
	return c.ID
}
