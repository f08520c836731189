package actionmenu

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/sebas/incallcore/internal/incall/call"
	"github.com/sebas/incallcore/internal/incall/carrier"
	"github.com/sebas/incallcore/internal/incall/looper"
	"github.com/sebas/incallcore/internal/incall/metrics"
)

// DefaultCancelResponseTimeout bounds how long a cancel-upgrade request may go unanswered before it is reported.
const DefaultCancelResponseTimeout = 10 * time.Second

// Notice is a user-visible message raised by the menu.
type Notice int

const (
	NoticeTTYModifyUnavailable Notice = iota
)

func (n Notice) String() string {
	switch n {
	case NoticeTTYModifyUnavailable:
		return "TTY_MODIFY_UNAVAILABLE"
	default:
		return fmt.Sprintf("Unknown(%d)", n)
	}
}

// View renders the menu and its option pickers.
type View interface {
	OnMenuChanged(menu Menu, showMore bool)
	ShowTransferOptions(callID string, options []call.TransferType)
	ShowModifyOptions(callID string, options []call.VideoState)
	DismissOptions()
	ShowNotice(n Notice)
}

// Commands is the host call-command interface used by dispatch.
type Commands interface {
	ShowDialpad(visible bool)
	Answer(callID string, videoState call.VideoState)
	AcceptVideoRequest(callID string, videoState call.VideoState)
	UpgradeToVideo(callID string, videoState call.VideoState)
	ShowAddParticipant(callID string)
	ShowManageConference(callID string)
	ShowPipPicker()
}

// ResponseObserver is told about carrier outcomes after the menu has handled them.
type ResponseObserver func(callID string, kind carrier.RequestKind, result int, timedOut bool)

// Config configures a Model.
type Config struct {
	View      View
	Commands  Commands
	Carrier   carrier.Config
	Extension carrier.Extension
	Scheduler looper.Scheduler
	Settings  carrier.Settings

	CancelResponseTimeout time.Duration

	// OnHideMeChanged is called after the hide-me latch toggles.
	OnHideMeChanged func(enabled bool)
	OnResponse      ResponseObserver

	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

const noOptions ActionID = -1

// Model holds the menu for the primary call. All methods must be called on the core thread.
type Model struct {
	view      View
	commands  Commands
	carrier   carrier.Config
	extension carrier.Extension
	scheduler looper.Scheduler
	settings  carrier.Settings
	logger    *slog.Logger
	metrics   *metrics.Metrics

	cancelTimeout   time.Duration
	onHideMeChanged func(bool)
	onResponse      ResponseObserver

	primary          *call.Call
	foreground       bool
	multiWindow      bool
	userUnlocked     bool
	cameraPermission bool

	hideMe           bool
	upgradeRequested bool
	upgradeTarget    call.VideoState
	cancelSent       bool
	cancelWatchdog   *looper.Task
	optionsShowing   ActionID

	menu     Menu
	showMore bool
}

// New creates a model with no primary call.
func New(cfg Config) *Model {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.CancelResponseTimeout <= 0 {
		cfg.CancelResponseTimeout = DefaultCancelResponseTimeout
	}
	m := &Model{
		view:            cfg.View,
		commands:        cfg.Commands,
		carrier:         cfg.Carrier,
		extension:       cfg.Extension,
		scheduler:       cfg.Scheduler,
		settings:        cfg.Settings,
		logger:          cfg.Logger,
		metrics:         cfg.Metrics,
		cancelTimeout:   cfg.CancelResponseTimeout,
		onHideMeChanged: cfg.OnHideMeChanged,
		onResponse:      cfg.OnResponse,
		userUnlocked:    true,
		optionsShowing:  noOptions,
	}
	m.menu = Compute(m.Inputs())
	return m
}

// Inputs snapshots everything Compute depends on.
func (m *Model) Inputs() Inputs {
	in := Inputs{
		Call:                           m.primary,
		PipModeSelectable:              m.settings.PipModeSelectable,
		AddParticipantOnlyInConference: m.settings.AddParticipantOnlyInConference,
		TTYMode:                        m.settings.TTYMode,
		Foreground:                     m.foreground,
		MultiWindow:                    m.multiWindow,
		UserUnlocked:                   m.userUnlocked,
		CameraPermission:               m.cameraPermission,
		HideMe:                         m.hideMe,
		UpgradeRequested:               m.upgradeRequested,
		CancelRequestSent:              m.cancelSent,
	}
	if m.carrier != nil && m.primary != nil {
		phone := m.primary.PhoneID()
		in.DeflectSupported = m.carrier.IsCallDeflectionSupported(phone)
		in.CancelModifySupported = m.carrier.IsCancelModifyCallSupported(phone)
		in.HideMeConfigured = m.carrier.IsCarrierConfigEnabled(phone, carrier.KeyHideMe)
	}
	return in
}

// Menu returns the current menu.
func (m *Model) Menu() Menu { return m.menu }

// ShowMoreButton returns the current overflow affordance visibility.
func (m *Model) ShowMoreButton() bool { return m.showMore }

// HideMe returns the hide-me latch.
func (m *Model) HideMe() bool { return m.hideMe }

// Rows returns the enabled entries laid out for the bottom sheet.
func (m *Model) Rows() [][]ActionID { return m.menu.Rows(OptionsPerRow) }

// Recompute re-evaluates the menu and notifies the view if it changed.
func (m *Model) Recompute() Menu {
	in := m.Inputs()
	menu := Compute(in)
	showMore := ShowMoreButton(in, menu)

	if m.optionsShowing != noOptions && !menu.IsEnabled(m.optionsShowing) {
		m.dismissOptions()
	}

	if menu.Equal(m.menu) && showMore == m.showMore {
		return m.menu
	}
	m.menu = menu
	m.showMore = showMore
	m.metrics.MenuChanged()
	enabled, _ := menu.Names()
	m.logger.Debug("[Menu] Menu changed", "call", idOf(m.primary), "enabled", enabled, "more", showMore)
	if m.view != nil {
		m.view.OnMenuChanged(menu, showMore)
	}
	return menu
}

// OnPrimaryCallChanged adopts a new primary call. Per-call latches reset;
// hide-me lasts until no call is left.
func (m *Model) OnPrimaryCallChanged(c *call.Call) {
	if !call.SameCall(c, m.primary) {
		m.upgradeRequested = false
		m.upgradeTarget = call.VideoAudioOnly
		m.cancelSent = false
		m.stopCancelWatchdog()
		m.dismissOptions()
	}
	m.primary = c
	if c == nil && m.hideMe {
		m.hideMe = false
		m.logger.Debug("[Menu] Hide me reset, no calls left")
		if m.onHideMeChanged != nil {
			m.onHideMeChanged(false)
		}
	}
	m.Recompute()
}

// OnDetailsChanged refreshes the primary call snapshot.
func (m *Model) OnDetailsChanged(c *call.Call) {
	if c == nil || !call.SameCall(c, m.primary) {
		return
	}
	m.primary = c
	switch {
	case c.SessionModification != call.SessionNoRequest:
		// The host now reports the negotiation itself.
		m.upgradeRequested = false
	case m.upgradeRequested && c.VideoState&m.upgradeTarget == m.upgradeTarget:
		m.logger.Debug("[Menu] Requested video state reached", "call", c.ID, "video_state", c.VideoState)
		m.upgradeRequested = false
	}
	m.Recompute()
}

// OnSessionModificationStateChange clears the local upgrade latch.
func (m *Model) OnSessionModificationStateChange(c *call.Call, state call.SessionModificationState) {
	if c == nil || !call.SameCall(c, m.primary) {
		return
	}
	m.primary = c
	m.upgradeRequested = false
	m.logger.Debug("[Menu] Session modification state", "call", c.ID, "state", state)
	m.Recompute()
}

func (m *Model) SetForeground(v bool) {
	m.foreground = v
	m.Recompute()
}

func (m *Model) SetMultiWindow(v bool) {
	m.multiWindow = v
	m.Recompute()
}

func (m *Model) SetUserUnlocked(v bool) {
	m.userUnlocked = v
	m.Recompute()
}

func (m *Model) SetCameraPermission(v bool) {
	m.cameraPermission = v
	m.Recompute()
}

// SetSettings applies new host settings (TTY mode, PiP, add-participant policy).
func (m *Model) SetSettings(s carrier.Settings) {
	m.settings = s
	m.Recompute()
}

// OnCarrierConfigChanged re-reads carrier flags.
func (m *Model) OnCarrierConfigChanged() {
	m.Recompute()
}

// Select dispatches a menu action.
func (m *Model) Select(id ActionID) error {
	c := m.primary
	if c == nil {
		return m.fail(id, "skipped", ErrNoPrimaryCall)
	}
	if !m.menu.IsEnabled(id) {
		if id == ActionCancelModifyCall && m.cancelSent {
			m.logger.Warn("[Menu] Cancel modify call already requested, ignoring", "call", c.ID)
			return m.fail(id, "suppressed", ErrRequestPending)
		}
		return m.fail(id, "disabled", ErrActionDisabled)
	}

	m.logger.Info("[Menu] Action selected", "call", c.ID, "action", id)

	switch id {
	case ActionAddParticipant:
		m.commands.ShowAddParticipant(c.ID)
	case ActionDeflect:
		return m.deflect(c)
	case ActionTransfer:
		m.optionsShowing = ActionTransfer
		if m.view != nil {
			m.view.ShowTransferOptions(c.ID, TransferOptions(c))
		}
	case ActionManageConference:
		m.commands.ShowManageConference(c.ID)
	case ActionHideMe, ActionShowMe:
		m.toggleHideMe()
	case ActionDialpad:
		m.commands.ShowDialpad(true)
	case ActionAcceptAsVideoTx:
		m.acceptAsVideo(c, call.VideoTx)
	case ActionAcceptAsVideoRx:
		m.acceptAsVideo(c, call.VideoRx)
	case ActionModifyCall:
		if err := m.checkTTY(); err != nil {
			return m.fail(id, "failed", err)
		}
		m.optionsShowing = ActionModifyCall
		if m.view != nil {
			m.view.ShowModifyOptions(c.ID, ModifyOptions(c))
		}
	case ActionPipMode:
		m.commands.ShowPipPicker()
	case ActionCancelModifyCall:
		return m.cancelModify(c)
	default:
		return m.fail(id, "failed", ErrUnknownAction)
	}
	m.metrics.Action(id.String(), "dispatched")
	return nil
}

// SelectTransfer completes a TRANSFER selection with the chosen variant.
// number is required except for consultative transfer.
func (m *Model) SelectTransfer(transfer call.TransferType, number string) error {
	c := m.primary
	if c == nil {
		return m.fail(ActionTransfer, "skipped", ErrNoPrimaryCall)
	}
	if !m.menu.IsEnabled(ActionTransfer) {
		return m.fail(ActionTransfer, "disabled", ErrActionDisabled)
	}
	if !containsTransfer(TransferOptions(c), transfer) {
		return m.fail(ActionTransfer, "failed", fmt.Errorf("%w: %s", ErrInvalidOption, transfer))
	}

	target := ""
	if transfer != call.TransferConsultative || number != "" {
		t, err := carrier.NormalizeTarget(number)
		if err != nil {
			m.logger.Warn("[Menu] Transfer skipped: no usable target", "call", c.ID, "type", transfer, "error", err)
			return m.fail(ActionTransfer, "skipped", err)
		}
		target = t
	}
	if m.extension == nil {
		return m.fail(ActionTransfer, "failed", ErrNoCarrierClient)
	}

	m.dismissOptions()
	callID := c.ID
	err := m.extension.SendCallTransferRequest(c.PhoneID(), transfer, target, func(result int) {
		m.post(func() { m.handleResponse(callID, carrier.RequestTransfer, result) })
	})
	if err != nil {
		m.logger.Error("[Menu] Failed to send transfer request", "call", callID, "error", err)
		m.metrics.CarrierRequest(carrier.RequestTransfer.String(), "send_failed")
		return m.fail(ActionTransfer, "failed", err)
	}
	m.logger.Info("[Menu] Transfer requested", "call", callID, "type", transfer, "target", target)
	m.metrics.CarrierRequest(carrier.RequestTransfer.String(), "sent")
	m.metrics.Action(ActionTransfer.String(), "dispatched")
	return nil
}

// SelectModify completes a MODIFY_CALL selection with the target video state.
func (m *Model) SelectModify(target call.VideoState) error {
	c := m.primary
	if c == nil {
		return m.fail(ActionModifyCall, "skipped", ErrNoPrimaryCall)
	}
	if err := m.checkTTY(); err != nil {
		return m.fail(ActionModifyCall, "failed", err)
	}
	if !m.menu.IsEnabled(ActionModifyCall) {
		return m.fail(ActionModifyCall, "disabled", ErrActionDisabled)
	}
	if !containsVideoState(ModifyOptions(c), target) {
		return m.fail(ActionModifyCall, "failed", fmt.Errorf("%w: %s", ErrInvalidOption, target))
	}

	m.dismissOptions()
	m.logger.Info("[Menu] Requesting call modification", "call", c.ID, "from", c.VideoState, "to", target)
	m.commands.UpgradeToVideo(c.ID, target)
	current := c.VideoState & call.VideoBidirectional
	if target&^current != 0 {
		m.upgradeRequested = true
		m.upgradeTarget = target & call.VideoBidirectional
	}
	m.metrics.Action(ActionModifyCall.String(), "dispatched")
	m.Recompute()
	return nil
}

// DismissOptions closes any open option picker.
func (m *Model) DismissOptions() {
	m.dismissOptions()
}

func (m *Model) dismissOptions() {
	if m.optionsShowing == noOptions {
		return
	}
	m.optionsShowing = noOptions
	if m.view != nil {
		m.view.DismissOptions()
	}
}

func (m *Model) checkTTY() error {
	if m.settings.TTYMode == carrier.TTYOff {
		return nil
	}
	m.logger.Info("[Menu] Call modification blocked by TTY", "mode", m.settings.TTYMode)
	if m.view != nil {
		m.view.ShowNotice(NoticeTTYModifyUnavailable)
	}
	return ErrTTYEnabled
}

func (m *Model) toggleHideMe() {
	m.hideMe = !m.hideMe
	m.logger.Debug("[Menu] Hide me toggled", "enabled", m.hideMe)
	m.Recompute()
	if m.onHideMeChanged != nil {
		m.onHideMeChanged(m.hideMe)
	}
}

func (m *Model) acceptAsVideo(c *call.Call, vs call.VideoState) {
	if c.State.IsIncoming() {
		m.commands.Answer(c.ID, vs)
		return
	}
	m.commands.AcceptVideoRequest(c.ID, vs)
}

func (m *Model) deflect(c *call.Call) error {
	phone := c.PhoneID()
	raw := ""
	if m.carrier != nil {
		raw = m.carrier.CallDeflectNumber(phone)
	}
	number, err := carrier.NormalizeTarget(raw)
	if err != nil {
		m.logger.Warn("[Menu] Deflect skipped: no usable deflect number", "call", c.ID, "phone", phone, "error", err)
		return m.fail(ActionDeflect, "skipped", err)
	}
	if m.extension == nil {
		return m.fail(ActionDeflect, "failed", ErrNoCarrierClient)
	}

	callID := c.ID
	err = m.extension.SendCallDeflectRequest(phone, number, func(result int) {
		m.post(func() { m.handleResponse(callID, carrier.RequestDeflect, result) })
	})
	if err != nil {
		m.logger.Error("[Menu] Failed to send deflect request", "call", callID, "error", err)
		m.metrics.CarrierRequest(carrier.RequestDeflect.String(), "send_failed")
		return m.fail(ActionDeflect, "failed", err)
	}
	m.logger.Info("[Menu] Deflect requested", "call", callID, "number", number)
	m.metrics.CarrierRequest(carrier.RequestDeflect.String(), "sent")
	m.metrics.Action(ActionDeflect.String(), "dispatched")
	return nil
}

func (m *Model) cancelModify(c *call.Call) error {
	if m.extension == nil {
		return m.fail(ActionCancelModifyCall, "failed", ErrNoCarrierClient)
	}
	callID := c.ID
	err := m.extension.SendCancelModifyCall(c.PhoneID(), func(result int) {
		m.post(func() { m.handleResponse(callID, carrier.RequestCancelModify, result) })
	})
	if err != nil {
		m.logger.Error("[Menu] Failed to send cancel modify call request", "call", callID, "error", err)
		m.metrics.CarrierRequest(carrier.RequestCancelModify.String(), "send_failed")
		return m.fail(ActionCancelModifyCall, "failed", err)
	}

	m.cancelSent = true
	m.stopCancelWatchdog()
	if m.scheduler != nil {
		m.cancelWatchdog = m.scheduler.PostDelayed(m.cancelTimeout, func() { m.onCancelTimeout(callID) })
	}
	m.logger.Info("[Menu] Cancel modify call requested", "call", callID)
	m.metrics.CarrierRequest(carrier.RequestCancelModify.String(), "sent")
	m.metrics.Action(ActionCancelModifyCall.String(), "dispatched")
	m.Recompute()
	return nil
}

func (m *Model) onCancelTimeout(callID string) {
	m.cancelWatchdog = nil
	if !m.cancelSent || callID != idOf(m.primary) {
		return
	}
	// The latch stays set: only a carrier response re-enables cancel.
	m.logger.Warn("[Menu] No response to cancel modify call request",
		"call", callID,
		"timeout", m.cancelTimeout,
	)
	m.metrics.CarrierRequest(carrier.RequestCancelModify.String(), "timeout")
	if m.onResponse != nil {
		m.onResponse(callID, carrier.RequestCancelModify, -1, true)
	}
}

func (m *Model) handleResponse(callID string, kind carrier.RequestKind, result int) {
	if err := carrier.ResultError(kind, result); err != nil {
		m.logger.Warn("[Menu] Carrier request failed", "call", callID, "kind", kind, "error", err)
		m.metrics.CarrierRequest(kind.String(), "error")
	} else {
		m.logger.Info("[Menu] Carrier request succeeded", "call", callID, "kind", kind)
		m.metrics.CarrierRequest(kind.String(), "ok")
	}

	// Any response clears the cancel latch, whatever the result code.
	if kind == carrier.RequestCancelModify && callID == idOf(m.primary) {
		m.stopCancelWatchdog()
		m.cancelSent = false
		m.Recompute()
	}
	if m.onResponse != nil {
		m.onResponse(callID, kind, result, false)
	}
}

func (m *Model) stopCancelWatchdog() {
	if m.cancelWatchdog != nil {
		m.cancelWatchdog.Cancel()
		m.cancelWatchdog = nil
	}
}

func (m *Model) post(fn func()) {
	if m.scheduler == nil {
		fn()
		return
	}
	m.scheduler.Post(fn)
}

func (m *Model) fail(id ActionID, outcome string, err error) error {
	m.metrics.Action(id.String(), outcome)
	return &DispatchError{Action: id, Err: err}
}

func containsTransfer(opts []call.TransferType, t call.TransferType) bool {
	for _, o := range opts {
		if o == t {
			return true
		}
	}
	return false
}

func containsVideoState(opts []call.VideoState, v call.VideoState) bool {
	for _, o := range opts {
		if o == v {
			return true
		}
	}
	return false
}

func idOf(c *call.Call) string {
	if c == nil {
		return ""
	}
	return c.ID
}
