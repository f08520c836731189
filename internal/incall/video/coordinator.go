// Package video coordinates the video call screen: camera and preview surface
// lifecycle, pause-image substitution, picture mode and auto-fullscreen.
package video

import (
	"context"
	"log/slog"

	"github.com/sebas/incallcore/internal/incall/call"
	"github.com/sebas/incallcore/internal/incall/carrier"
	"github.com/sebas/incallcore/internal/incall/looper"
	"github.com/sebas/incallcore/internal/incall/metrics"
	"github.com/sebas/incallcore/internal/incall/notify"
	"github.com/sebas/incallcore/internal/incall/permission"
)

// Default camera ids used when the host does not configure any.
const (
	DefaultFrontCameraID = "0"
	DefaultBackCameraID  = "1"
)

// SurfaceID identifies a host surface. The empty id means no surface.
type SurfaceID string

// Host is the host's video-call API for the primary call.
type Host interface {
	// SetCamera opens cameraID for the call, or closes the camera when cameraID is empty.
	SetCamera(callID, cameraID string) error
	RequestCameraCapabilities(callID string)
	SetPreviewSurface(callID string, surface SurfaceID)
	SetDisplaySurface(callID string, surface SurfaceID)
	SetDeviceOrientation(callID string, rotation int)
	// SetPauseImage substitutes uri for the outgoing stream. The empty uri selects the default image.
	SetPauseImage(callID, uri string)
	ClearPauseImage(callID string)
}

// Screen is the activity-level state the coordinator drives.
type Screen interface {
	SetFullscreen(fullscreen bool)
	WakeScreen()
}

// Views is what the video screen shows.
type Views struct {
	ShowPreview  bool
	ShowIncoming bool
	RemotelyHeld bool
	GreenScreen  bool
	// StaticImage replaces the live preview with the hide-me image.
	StaticImage    bool
	StaticImageURI string
}

// View renders the video call screen.
type View interface {
	ShowVideoViews(v Views)
	SetPreviewLayout(l Layout)
	SetRemoteVideoSize(s Size)
	ShowCameraPermissionNotice()
	ShowDefaultImageNotice()
	ShowPictureModePicker(current PictureMode)
	DismissPictureModePicker()
}

// OrientationRefresher re-evaluates the orientation request.
type OrientationRefresher interface {
	Refresh()
}

// SessionEventListener receives call session events.
type SessionEventListener interface {
	OnSessionEvent(callID string, ev call.SessionEvent)
}

// Config configures a Coordinator.
type Config struct {
	Host        Host
	View        View
	Screen      Screen
	Carrier     carrier.Config
	Settings    carrier.Settings
	Scheduler   looper.Scheduler
	Storage     *permission.StorageGate
	Orientation OrientationRefresher

	FrontCameraID string
	BackCameraID  string

	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Coordinator owns the camera and the video screen state for the primary call.
// All methods must be called on the core thread.
type Coordinator struct {
	host        Host
	view        View
	screen      Screen
	carrier     carrier.Config
	settings    carrier.Settings
	fixedSize   *Size
	scheduler   looper.Scheduler
	storage     *permission.StorageGate
	orientation OrientationRefresher
	frontCamera string
	backCamera  string
	logger      *slog.Logger
	metrics     *metrics.Metrics

	sessionListeners *notify.List[SessionEventListener]
	lastEvent        call.SessionEvent
	lastEventCall    string

	primary    *call.Call
	videoState call.VideoState
	callState  call.State
	videoMode  bool

	foreground       bool
	cameraPermission bool
	dialpadVisible   bool
	touchExplore     bool
	rotation         int

	preview        *previewMachine
	cameraID       string
	cameraCall     string
	previewSurface SurfaceID
	displaySurface SurfaceID
	cameraSize     Size
	peerSize       Size
	noticeShown    map[string]bool

	hideMe        bool
	hideMeGranted bool
	pauseImage    *string

	incomingAvailable bool

	fullscreen     bool
	fullscreenTask *looper.Task

	picture       PictureMode
	pickerShowing bool

	views      Views
	layout     Layout
	layoutSent bool
}

// New creates a coordinator with no primary call, in the background.
func New(cfg Config) *Coordinator {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.FrontCameraID == "" {
		cfg.FrontCameraID = DefaultFrontCameraID
	}
	if cfg.BackCameraID == "" {
		cfg.BackCameraID = DefaultBackCameraID
	}
	v := &Coordinator{
		host:             cfg.Host,
		view:             cfg.View,
		screen:           cfg.Screen,
		carrier:          cfg.Carrier,
		scheduler:        cfg.Scheduler,
		storage:          cfg.Storage,
		orientation:      cfg.Orientation,
		frontCamera:      cfg.FrontCameraID,
		backCamera:       cfg.BackCameraID,
		logger:           cfg.Logger,
		metrics:          cfg.Metrics,
		sessionListeners: notify.NewList[SessionEventListener]("video-session", cfg.Logger),
		callState:        call.StateInvalid,
		preview:          newPreviewMachine(cfg.Logger, cfg.Metrics),
		noticeShown:      make(map[string]bool),
		picture:          PictureModePip,
	}
	v.applySettings(cfg.Settings)
	return v
}

// Primary returns the call the video screen is tracking.
func (v *Coordinator) Primary() *call.Call { return v.primary }

// IsVideoMode reports whether the video screen is up.
func (v *Coordinator) IsVideoMode() bool { return v.videoMode }

// PreviewState returns the preview surface state.
func (v *Coordinator) PreviewState() PreviewState { return v.preview.State() }

// CameraID returns the open camera, or "" when closed.
func (v *Coordinator) CameraID() string { return v.cameraID }

// PauseImage returns the pause image URI and whether one is set.
func (v *Coordinator) PauseImage() (string, bool) {
	if v.pauseImage == nil {
		return "", false
	}
	return *v.pauseImage, true
}

// Views returns what the video screen currently shows.
func (v *Coordinator) Views() Views { return v.views }

// PictureMode returns the current picture mode.
func (v *Coordinator) PictureMode() PictureMode { return v.picture }

// IsFullscreen reports the fullscreen flag.
func (v *Coordinator) IsFullscreen() bool { return v.fullscreen }

// AutoFullscreenPending reports whether auto-fullscreen is scheduled.
func (v *Coordinator) AutoFullscreenPending() bool { return v.fullscreenTask.Pending() }

// IncomingVideoAvailable reports the latched RX_PAUSE/RX_RESUME state.
func (v *Coordinator) IncomingVideoAvailable() bool { return v.incomingAvailable }

// OnStateChange selects the video primary for the host's global state. An
// incoming call does not displace an active video call.
func (v *Coordinator) OnStateChange(state call.GlobalState, list *call.List) {
	if state == call.GlobalNoCalls {
		if v.videoMode {
			v.exitVideoMode()
		}
		v.resetCallScoped()
	}

	var primary, current *call.Call
	switch state {
	case call.GlobalIncoming:
		current = list.Incoming()
		if primary = list.ActiveVideo(); primary == nil {
			primary = current
		}
		v.dismissPicker("incoming call")
	case call.GlobalOutgoing:
		primary = list.Outgoing()
		current = primary
	case call.GlobalPendingOutgoing:
		primary = list.PendingOutgoing()
		current = primary
	case call.GlobalInCall:
		primary = list.Active()
		current = primary
	}

	if !call.SameCall(primary, v.primary) {
		v.onPrimaryChanged(primary)
	} else if primary != nil {
		v.update(primary)
	}

	if current != nil {
		v.maybeExitFullscreen(current)
		v.maybeAutoFullscreen(current)
	}
}

// OnDetailsChanged handles a detail update. Updates for other calls are ignored.
func (v *Coordinator) OnDetailsChanged(c *call.Call) {
	if c == nil || !call.SameCall(c, v.primary) {
		return
	}
	v.update(c)
}

// OnSessionModificationStateChange handles a negotiation update for the primary call.
func (v *Coordinator) OnSessionModificationStateChange(c *call.Call) {
	v.OnDetailsChanged(c)
}

// OnUiShowing records whether the activity is in the foreground.
func (v *Coordinator) OnUiShowing(showing bool) {
	if v.foreground == showing {
		return
	}
	v.foreground = showing
	v.logger.Debug("[Video] UI showing changed", "showing", showing, "preview", v.preview.State())

	if !ShouldShowVideoUI(v.primary) {
		v.releaseCamera()
		return
	}
	if !showing && v.orientation != nil {
		v.orientation.Refresh()
	}
	v.refresh()
}

// SetCameraPermission records the camera permission.
func (v *Coordinator) SetCameraPermission(granted bool) {
	if v.cameraPermission == granted {
		return
	}
	v.cameraPermission = granted
	v.refresh()
}

// SetSettings applies new host settings.
func (v *Coordinator) SetSettings(s carrier.Settings) {
	v.applySettings(s)
	if !s.AutoFullscreen {
		v.CancelAutoFullscreen()
	}
	v.refresh()
}

// OnCarrierConfigChanged re-reads carrier flags.
func (v *Coordinator) OnCarrierConfigChanged() {
	v.refresh()
}

func (v *Coordinator) applySettings(s carrier.Settings) {
	v.settings = s
	v.fixedSize = nil
	if s.LocalPreviewSurfaceSize == "" {
		return
	}
	size, err := ParseSize(s.LocalPreviewSurfaceSize)
	if err != nil {
		v.logger.Warn("[Video] Ignoring preview surface size", "value", s.LocalPreviewSurfaceSize, "error", err)
		return
	}
	v.fixedSize = &size
}

func (v *Coordinator) onPrimaryChanged(c *call.Call) {
	v.logger.Debug("[Video] Primary call changed", "from", callID(v.primary), "to", callID(c))
	if v.cameraID != "" && (c == nil || v.cameraCall != c.ID) {
		// The camera belongs to the previous call.
		v.releaseCamera()
	}
	if v.pauseImage != nil && v.primary != nil {
		v.host.ClearPauseImage(v.primary.ID)
		v.pauseImage = nil
	}
	v.primary = nil
	v.videoState = call.VideoAudioOnly
	v.callState = call.StateInvalid
	v.update(c)
}

// update runs the per-call-change procedure for the (possibly new) primary.
func (v *Coordinator) update(c *call.Call) {
	prev := v.primary
	prevVS, prevState := v.videoState, v.callState
	v.primary = c
	if c == nil {
		v.videoState = call.VideoAudioOnly
		v.callState = call.StateInvalid
	} else {
		v.videoState = c.VideoState
		v.callState = c.State
	}

	show := ShouldShowVideoUI(c)
	switch {
	case show && !v.videoMode:
		v.enterVideoMode()
	case !show && v.videoMode:
		v.exitVideoMode()
	}

	if c != nil && call.SameCall(prev, c) && c.VideoState != prevVS {
		switch {
		case prevVS.IsAudioOnly() && c.IsVideoCall():
			v.wakeScreen("upgraded to video")
		case prevVS.IsBidirectional() && c.VideoState.IsRxOnly():
			v.wakeScreen("peer stopped receiving")
		}
	}

	if v.pickerShowing && (c == nil || !c.IsVideoCall() || c.HasReceivedVideoUpgradeRequest() || c.State.IsTerminal()) {
		v.dismissPicker("call changed")
	}

	if !v.videoMode {
		return
	}
	v.refresh()
	if c.VideoState != prevVS || c.State != prevState {
		v.maybeAutoFullscreen(c)
	}
}

func (v *Coordinator) enterVideoMode() {
	c := v.primary
	v.videoMode = true
	v.logger.Info("[Video] Entering video mode", "call", c.ID, "video_state", c.VideoState)
	if v.displaySurface != "" {
		v.host.SetDisplaySurface(c.ID, v.displaySurface)
	}
	v.host.SetDeviceOrientation(c.ID, v.rotation)
	if v.orientation != nil {
		v.orientation.Refresh()
	}
}

func (v *Coordinator) exitVideoMode() {
	v.logger.Info("[Video] Exiting video mode", "call", callID(v.primary))
	v.CancelAutoFullscreen()
	v.releaseCamera()
	if v.pauseImage != nil && v.primary != nil {
		v.host.ClearPauseImage(v.primary.ID)
	}
	v.pauseImage = nil
	v.videoMode = false
	v.setViews(Views{})
	v.layoutSent = false
	v.setFullscreen(false)
	v.dismissPicker("video mode ended")
	if v.orientation != nil {
		v.orientation.Refresh()
	}
}

// resetCallScoped clears everything that lives only as long as there are calls.
func (v *Coordinator) resetCallScoped() {
	v.hideMe = false
	v.hideMeGranted = false
	v.incomingAvailable = false
	v.picture = PictureModePip
	v.previewSurface = ""
	v.displaySurface = ""
	v.cameraSize = Size{}
	v.peerSize = Size{}
	v.noticeShown = make(map[string]bool)
}

// refresh re-evaluates camera, pause image and views for the primary call.
func (v *Coordinator) refresh() {
	if v.primary == nil {
		return
	}
	v.syncCamera()
	v.syncPauseImage()
	v.syncViews()
}

func (v *Coordinator) cameraInputs() CameraInputs {
	c := v.primary
	return CameraInputs{
		Foreground:          v.foreground,
		StaticImage:         v.transmitStaticImage(),
		VideoState:          c.VideoState,
		SessionModification: c.SessionModification,
		RxUpgrade:           c.IsModifyToVideoRx(),
	}
}

func (v *Coordinator) syncCamera() {
	c := v.primary
	required := v.videoMode && c != nil && IsCameraRequired(v.cameraInputs())
	if required && !v.cameraPermission {
		v.maybeShowPermissionNotice(c)
		required = false
	}
	if !required {
		v.releaseCamera()
		return
	}

	id := v.frontCamera
	if FacingFor(c.VideoState) == FacingBack {
		id = v.backCamera
	}
	if v.cameraID == id && v.cameraCall == c.ID {
		return
	}
	if v.cameraID != "" {
		v.releaseCamera()
	}
	v.openCamera(c, id)
}

func (v *Coordinator) openCamera(c *call.Call, id string) {
	if err := v.host.SetCamera(c.ID, id); err != nil {
		v.logger.Error("[Video] Failed to set camera", "call", c.ID, "camera", id, "error", err)
		v.metrics.Camera("failed")
		v.preview.release()
		return
	}
	v.cameraID = id
	v.cameraCall = c.ID
	v.preview.cameraSet()
	v.metrics.Camera("open")
	v.logger.Info("[Video] Camera opened", "call", c.ID, "camera", id, "facing", FacingFor(c.VideoState))
	v.host.RequestCameraCapabilities(c.ID)
}

func (v *Coordinator) releaseCamera() {
	if v.cameraID == "" {
		v.preview.release()
		return
	}
	if err := v.host.SetCamera(v.cameraCall, ""); err != nil {
		v.logger.Warn("[Video] Failed to close camera", "call", v.cameraCall, "camera", v.cameraID, "error", err)
	}
	v.logger.Info("[Video] Camera closed", "call", v.cameraCall, "camera", v.cameraID)
	v.metrics.Camera("close")
	v.cameraID = ""
	v.cameraCall = ""
	v.preview.release()
}

func (v *Coordinator) maybeShowPermissionNotice(c *call.Call) {
	if !v.settings.CameraPermissionDialogAllowed || v.noticeShown[c.ID] {
		return
	}
	v.noticeShown[c.ID] = true
	v.logger.Info("[Video] Camera permission missing", "call", c.ID)
	if v.view != nil {
		v.view.ShowCameraPermissionNotice()
	}
}

func (v *Coordinator) staticImageSupported() bool {
	c := v.primary
	return c != nil && v.carrier != nil && v.carrier.IsCarrierConfigEnabled(c.PhoneID(), carrier.KeyTransmitStaticImage)
}

// transmitStaticImage reports whether a still image replaces the camera.
func (v *Coordinator) transmitStaticImage() bool {
	return v.staticImageSupported() && (v.hideMe || !v.foreground)
}

// pauseImageURI returns the configured image when hide-me was granted storage
// access, otherwise the default image.
func (v *Coordinator) pauseImageURI() string {
	if v.hideMe && v.hideMeGranted && v.carrier != nil {
		return v.carrier.StaticImageURI(v.primary.PhoneID())
	}
	return ""
}

func (v *Coordinator) syncPauseImage() {
	c := v.primary
	want := v.videoMode && c != nil &&
		v.transmitStaticImage() &&
		c.VideoState.IsTransmissionEnabled() &&
		c.State == call.StateActive
	if !want {
		if v.pauseImage != nil && c != nil {
			v.logger.Debug("[Video] Clearing pause image", "call", c.ID)
			v.host.ClearPauseImage(c.ID)
			v.pauseImage = nil
		}
		return
	}
	uri := v.pauseImageURI()
	if v.pauseImage != nil && *v.pauseImage == uri {
		return
	}
	v.logger.Debug("[Video] Setting pause image", "call", c.ID, "uri", uri, "default", uri == "")
	v.host.SetPauseImage(c.ID, uri)
	v.pauseImage = &uri
}

// SetHideMe toggles transmitting the still image instead of the camera.
func (v *Coordinator) SetHideMe(enabled bool) {
	if v.hideMe == enabled {
		return
	}
	v.hideMe = enabled
	v.hideMeGranted = false
	v.logger.Debug("[Video] Hide me changed", "enabled", enabled, "call", callID(v.primary))
	if enabled && !isActiveVideo(v.primary) {
		v.logger.Warn("[Video] Hide me set for a call that is not an active video call", "call", callID(v.primary))
	}
	v.refresh()

	if !enabled || v.primary == nil || v.carrier == nil {
		return
	}
	if v.carrier.StaticImageURI(v.primary.PhoneID()) == "" || v.storage == nil {
		return
	}
	v.storage.Request(context.Background(), v.onStoragePermission)
}

func (v *Coordinator) onStoragePermission(granted bool) {
	if !v.hideMe {
		return
	}
	v.hideMeGranted = granted
	if !granted {
		v.logger.Info("[Video] Storage permission denied, using default image")
		if v.view != nil {
			v.view.ShowDefaultImageNotice()
		}
	}
	v.refresh()
}

func (v *Coordinator) computeViews() Views {
	c := v.primary
	if !v.videoMode || c == nil {
		return Views{}
	}
	crbt := c.IsVideoCRBT() && v.carrier != nil && v.carrier.IsCarrierConfigEnabled(c.PhoneID(), carrier.KeyVideoCRBT)
	outgoing := v.picture.ShowPreview &&
		ShowOutgoingVideo(v.cameraPermission, c.VideoState, c.SessionModification, c.IsModifyToVideoRx()) &&
		!crbt
	static := v.transmitStaticImage()

	views := Views{
		ShowPreview:  outgoing && !static,
		ShowIncoming: v.picture.ShowIncoming && ShowIncomingVideo(c.VideoState, c.State, v.incomingAvailable),
		RemotelyHeld: c.IsRemotelyHeld,
		GreenScreen:  ShowGreenScreen(c, v.incomingAvailable),
	}
	if outgoing && static && v.hideMe {
		views.StaticImage = true
		views.StaticImageURI = v.pauseImageURI()
	}
	return views
}

func (v *Coordinator) syncViews() {
	v.setViews(v.computeViews())
	if !v.videoMode {
		return
	}
	layout := PreviewLayout(v.picture, v.cameraSize, v.fixedSize, v.landscape())
	if v.layoutSent && layout == v.layout {
		return
	}
	v.layout = layout
	v.layoutSent = true
	v.logger.Debug("[Video] Preview layout changed", "layout", layout, "mode", v.picture)
	if v.view != nil {
		v.view.SetPreviewLayout(layout)
	}
}

func (v *Coordinator) setViews(views Views) {
	if views == v.views {
		return
	}
	v.views = views
	v.logger.Debug("[Video] Video views changed",
		"preview", views.ShowPreview,
		"incoming", views.ShowIncoming,
		"remotely_held", views.RemotelyHeld,
		"static_image", views.StaticImage,
	)
	if v.view != nil {
		v.view.ShowVideoViews(views)
	}
}

func (v *Coordinator) landscape() bool {
	return v.rotation == 90 || v.rotation == 270
}

func (v *Coordinator) wakeScreen(reason string) {
	v.logger.Debug("[Video] Waking screen", "reason", reason)
	if v.screen != nil {
		v.screen.WakeScreen()
	}
}

func (v *Coordinator) isPrimary(id string) bool {
	return v.primary != nil && v.primary.ID == id
}

func isActiveVideo(c *call.Call) bool {
	return c.IsVideoCall() && c.State == call.StateActive
}

func callID(c *call.Call) string {
	if c == nil {
		return ""
	}
	return c.ID
}
