package replay

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/sebas/incallcore/internal/incall/actionmenu"
	"github.com/sebas/incallcore/internal/incall/app"
	"github.com/sebas/incallcore/internal/incall/call"
	"github.com/sebas/incallcore/internal/incall/carrier"
	"github.com/sebas/incallcore/internal/incall/enriched"
	"github.com/sebas/incallcore/internal/incall/orientation"
	"github.com/sebas/incallcore/internal/incall/video"
)

// Host implements every host collaborator by logging the command and
// recording it in a transcript. Carrier requests stay pending until the
// scenario answers them.
type Host struct {
	logger *slog.Logger

	mu         sync.Mutex
	transcript []string
	pending    map[carrier.RequestKind]carrier.ResponseFunc
	storage    bool
	mapW, mapH int
}

// NewHost creates a host. The enriched map view reports mapW x mapH.
func NewHost(logger *slog.Logger) *Host {
	if logger == nil {
		logger = slog.Default()
	}
	return &Host{
		logger:  logger,
		pending: make(map[carrier.RequestKind]carrier.ResponseFunc),
		mapW:    480,
		mapH:    270,
	}
}

// Collaborators returns the host bundle for app.Config.
func (h *Host) Collaborators() app.Host {
	return app.Host{
		Video:          h,
		VideoView:      h,
		Screen:         h,
		MenuView:       h,
		Commands:       h,
		Extension:      h,
		Orientation:    h,
		Permission:     h,
		Fetcher:        h,
		EnrichedView:   h,
		CapabilityView: h,
	}
}

// Transcript returns a copy of every command received so far.
func (h *Host) Transcript() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.transcript))
	copy(out, h.transcript)
	return out
}

func (h *Host) record(cmd string, args ...any) {
	parts := make([]string, 0, len(args)/2+1)
	parts = append(parts, cmd)
	for i := 0; i+1 < len(args); i += 2 {
		parts = append(parts, fmt.Sprintf("%v=%v", args[i], args[i+1]))
	}
	h.mu.Lock()
	h.transcript = append(h.transcript, strings.Join(parts, " "))
	h.mu.Unlock()
	h.logger.Info("[Replay] "+cmd, args...)
}

// SetStoragePermission changes what HasReadStoragePermission reports.
func (h *Host) SetStoragePermission(granted bool) {
	h.mu.Lock()
	h.storage = granted
	h.mu.Unlock()
}

// Respond answers the pending carrier request of kind. It may be called from
// any goroutine.
func (h *Host) Respond(kind carrier.RequestKind, result int) error {
	h.mu.Lock()
	cb, ok := h.pending[kind]
	delete(h.pending, kind)
	h.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoPending, kind)
	}
	h.record("CarrierResponse", "kind", kind, "result", result)
	cb(result)
	return nil
}

func (h *Host) hold(kind carrier.RequestKind, cb carrier.ResponseFunc) {
	h.mu.Lock()
	h.pending[kind] = cb
	h.mu.Unlock()
}

// Video host.

func (h *Host) SetCamera(callID, cameraID string) error {
	h.record("SetCamera", "call", callID, "camera", cameraID)
	return nil
}

func (h *Host) RequestCameraCapabilities(callID string) {
	h.record("RequestCameraCapabilities", "call", callID)
}

func (h *Host) SetPreviewSurface(callID string, s video.SurfaceID) {
	h.record("SetPreviewSurface", "call", callID, "surface", s)
}

func (h *Host) SetDisplaySurface(callID string, s video.SurfaceID) {
	h.record("SetDisplaySurface", "call", callID, "surface", s)
}

func (h *Host) SetDeviceOrientation(callID string, rotation int) {
	h.record("SetDeviceOrientation", "call", callID, "rotation", rotation)
}

func (h *Host) SetPauseImage(callID, uri string) {
	h.record("SetPauseImage", "call", callID, "uri", uri)
}

func (h *Host) ClearPauseImage(callID string) {
	h.record("ClearPauseImage", "call", callID)
}

// Video view and screen.

func (h *Host) ShowVideoViews(v video.Views) {
	h.record("ShowVideoViews", "preview", v.ShowPreview, "incoming", v.ShowIncoming,
		"held", v.RemotelyHeld, "static", v.StaticImage)
}

func (h *Host) SetPreviewLayout(l video.Layout) { h.record("SetPreviewLayout", "layout", l) }
func (h *Host) SetRemoteVideoSize(s video.Size) { h.record("SetRemoteVideoSize", "size", s) }
func (h *Host) ShowCameraPermissionNotice()     { h.record("ShowCameraPermissionNotice") }
func (h *Host) ShowDefaultImageNotice()         { h.record("ShowDefaultImageNotice") }

func (h *Host) ShowPictureModePicker(current video.PictureMode) {
	h.record("ShowPictureModePicker", "current", current)
}

func (h *Host) DismissPictureModePicker()     { h.record("DismissPictureModePicker") }
func (h *Host) SetFullscreen(fullscreen bool) { h.record("SetFullscreen", "on", fullscreen) }
func (h *Host) WakeScreen()                   { h.record("WakeScreen") }

// Menu view.

func (h *Host) OnMenuChanged(menu actionmenu.Menu, showMore bool) {
	enabled, _ := menu.Names()
	h.record("OnMenuChanged", "enabled", strings.Join(enabled, ","), "more", showMore)
}

func (h *Host) ShowTransferOptions(callID string, options []call.TransferType) {
	h.record("ShowTransferOptions", "call", callID, "options", options)
}

func (h *Host) ShowModifyOptions(callID string, options []call.VideoState) {
	h.record("ShowModifyOptions", "call", callID, "options", options)
}

func (h *Host) DismissOptions()                { h.record("DismissOptions") }
func (h *Host) ShowNotice(n actionmenu.Notice) { h.record("ShowNotice", "notice", n) }

// Call commands.

func (h *Host) ShowDialpad(visible bool) { h.record("ShowDialpad", "visible", visible) }

func (h *Host) Answer(callID string, vs call.VideoState) {
	h.record("Answer", "call", callID, "video_state", vs)
}

func (h *Host) AcceptVideoRequest(callID string, vs call.VideoState) {
	h.record("AcceptVideoRequest", "call", callID, "video_state", vs)
}

func (h *Host) UpgradeToVideo(callID string, vs call.VideoState) {
	h.record("UpgradeToVideo", "call", callID, "video_state", vs)
}

func (h *Host) ShowAddParticipant(callID string)   { h.record("ShowAddParticipant", "call", callID) }
func (h *Host) ShowManageConference(callID string) { h.record("ShowManageConference", "call", callID) }
func (h *Host) ShowPipPicker()                     { h.record("ShowPipPicker") }

// Carrier extension.

func (h *Host) SendCallDeflectRequest(phoneID int, number string, cb carrier.ResponseFunc) error {
	h.record("SendCallDeflectRequest", "phone", phoneID, "number", number)
	h.hold(carrier.RequestDeflect, cb)
	return nil
}

func (h *Host) SendCallTransferRequest(phoneID int, t call.TransferType, number string, cb carrier.ResponseFunc) error {
	h.record("SendCallTransferRequest", "phone", phoneID, "type", t, "number", number)
	h.hold(carrier.RequestTransfer, cb)
	return nil
}

func (h *Host) SendCancelModifyCall(phoneID int, cb carrier.ResponseFunc) error {
	h.record("SendCancelModifyCall", "phone", phoneID)
	h.hold(carrier.RequestCancelModify, cb)
	return nil
}

// Orientation sink.

func (h *Host) SetInCallAllowsOrientationChange(o orientation.Orientation) {
	h.record("SetInCallAllowsOrientationChange", "orientation", o)
}

// Permission host.

func (h *Host) HasReadStoragePermission() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.storage
}

func (h *Host) RequestReadStoragePermission() { h.record("RequestReadStoragePermission") }
func (h *Host) ShowPermissionExplainer()      { h.record("ShowPermissionExplainer") }

// Enriched call.

// FetchLocationImage returns a placeholder image naming the location.
func (h *Host) FetchLocationImage(ctx context.Context, loc enriched.Location, width, height int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h.record("FetchLocationImage", "lat", loc.Lat, "lon", loc.Lon, "width", width, "height", height)
	return []byte(fmt.Sprintf("map:%f,%f:%dx%d", loc.Lat, loc.Lon, width, height)), nil
}

func (h *Host) Update(r *enriched.Record, d *enriched.Data) {
	h.record("EnrichedUpdate", "call", r.CallID, "subject", d.Subject, "priority", d.Priority,
		"image_bytes", len(r.Image), "permission", r.Permission)
}

func (h *Host) SetVisible(visible bool)        { h.record("EnrichedSetVisible", "visible", visible) }
func (h *Host) SetEnabled(enabled bool)        { h.record("EnrichedSetEnabled", "enabled", enabled) }
func (h *Host) ShowSmallView(small bool)       { h.record("EnrichedShowSmallView", "small", small) }
func (h *Host) ShowFailed(p enriched.Priority) { h.record("EnrichedShowFailed", "priority", p) }
func (h *Host) ShowDetail(show bool)           { h.record("EnrichedShowDetail", "show", show) }
func (h *Host) MapSize() (int, int)            { return h.mapW, h.mapH }
func (h *Host) Open(uri string)                { h.record("Open", "uri", uri) }

func (h *Host) SetEnrichedEnabled(enabled bool) { h.record("SetEnrichedEnabled", "enabled", enabled) }
func (h *Host) ShowCheckProgress(show bool)     { h.record("ShowCheckProgress", "show", show) }
