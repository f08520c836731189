package enriched

import (
	"fmt"
	"log/slog"

	"github.com/sebas/incallcore/internal/incall/call"
)

// View renders the enriched call card.
type View interface {
	Update(r *Record, d *Data)
	SetVisible(visible bool)
	SetEnabled(enabled bool)
	ShowSmallView(small bool)
	ShowFailed(p Priority)
	ShowDetail(show bool)
	// MapSize returns the size of the map image view, zero until laid out.
	MapSize() (width, height int)
	// Open hands a URI to an external viewer.
	Open(uri string)
}

// PresenterConfig configures a Presenter.
type PresenterConfig struct {
	Binder *Binder
	View   View
	Logger *slog.Logger
}

// Presenter decides what the enriched call card shows for the current call.
type Presenter struct {
	binder *Binder
	view   View
	logger *slog.Logger

	state      call.GlobalState
	list       *call.List
	last       *Data
	foreground bool
}

// NewPresenter creates a presenter and subscribes it to binder updates.
func NewPresenter(cfg PresenterConfig) *Presenter {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	p := &Presenter{
		binder: cfg.Binder,
		view:   cfg.View,
		logger: cfg.Logger,
		state:  call.GlobalNoCalls,
		list:   call.NewList(),
	}
	cfg.Binder.AddListener(p)
	return p
}

// CurrentCall picks the call the card describes for a global state.
func CurrentCall(state call.GlobalState, list *call.List) *call.Call {
	switch state {
	case call.GlobalIncoming:
		return list.Incoming()
	case call.GlobalOutgoing, call.GlobalPendingOutgoing:
		if c := list.Outgoing(); c != nil {
			return c
		}
		return list.PendingOutgoing()
	case call.GlobalInCall:
		for _, c := range []*call.Call{
			list.Active(),
			list.Disconnecting(),
			list.Disconnected(),
			list.Background(),
			list.SecondBackground(),
		} {
			if c != nil {
				return c
			}
		}
	}
	return nil
}

// Current returns the call the card describes.
func (p *Presenter) Current() *call.Call { return CurrentCall(p.state, p.list) }

// OnStateChange re-evaluates the card for a new global state.
func (p *Presenter) OnStateChange(state call.GlobalState, list *call.List) {
	if list == nil {
		list = call.NewList()
	}
	p.state = state
	p.list = list
	p.update(p.Current())
}

// OnIncomingCall re-evaluates the card for a ringing call.
func (p *Presenter) OnIncomingCall(list *call.List) {
	p.OnStateChange(call.GlobalIncoming, list)
}

// OnDetailsChanged swaps in a newer snapshot of c and re-evaluates.
func (p *Presenter) OnDetailsChanged(c *call.Call) {
	if c == nil || !p.list.Contains(c) {
		p.update(p.Current())
		return
	}
	calls := p.list.Calls()
	next := make([]*call.Call, 0, len(calls))
	for _, existing := range calls {
		if existing.ID == c.ID {
			existing = c
		}
		next = append(next, existing)
	}
	p.list = call.NewList(next...)
	p.update(p.Current())
}

// SetForeground records whether the activity is visible. Shared images are
// only requested in the foreground.
func (p *Presenter) SetForeground(foreground bool) {
	if p.foreground == foreground {
		return
	}
	p.foreground = foreground
	if foreground {
		p.update(p.Current())
	}
}

// OnEnrichedUpdated re-renders the card when the current call's record changed.
func (p *Presenter) OnEnrichedUpdated(r *Record) {
	c := p.Current()
	if c == nil || c.ID != r.CallID {
		return
	}
	p.render(c)
}

// OnAnswerViewGrab hides the details while the answer control is dragged.
func (p *Presenter) OnAnswerViewGrab(grabbed bool) {
	if p.view != nil {
		p.view.ShowDetail(!grabbed)
	}
}

// OnMapClicked opens the current call's location in a map viewer.
func (p *Presenter) OnMapClicked() error {
	d := p.binder.Bind(p.Current())
	if !d.IsValidLocation() {
		return ErrNoLocation
	}
	uri := GeoURI(*d.Location)
	p.logger.Info("[Enriched] Opening map", "uri", uri)
	p.view.Open(uri)
	return nil
}

// OnSharedImageClicked opens the current call's shared image in an image viewer.
func (p *Presenter) OnSharedImageClicked() error {
	d := p.binder.Bind(p.Current())
	if !d.IsValidSharedImage() {
		return ErrNoSharedImage
	}
	uri := FileURI(d.ImageURI)
	p.logger.Info("[Enriched] Opening shared image", "uri", uri)
	p.view.Open(uri)
	return nil
}

func (p *Presenter) update(c *call.Call) {
	if c == nil || p.view == nil {
		return
	}
	d := p.binder.Bind(c)
	if c.IsConference || c.IsVideoCall() {
		p.logger.Debug("[Enriched] Hidden for conference or video call", "call", c.ID)
		p.view.SetVisible(false)
		p.last = nil
		return
	}

	ringing := c.State.IsIncoming()
	switch {
	case d.IsValid() && !d.Equal(p.last):
		p.view.SetVisible(d.Status != StatusFailed)
		p.view.SetEnabled(!ringing)
		p.render(c)
	case !d.IsValid():
		p.view.SetVisible(false)
		if d != nil && d.Status == StatusFailed && (p.last == nil || p.last.Status != StatusFailed) {
			prio := d.Priority
			if p.last != nil {
				prio = p.last.Priority
			}
			p.logger.Info("[Enriched] Enriched call failed", "call", c.ID, "priority", prio)
			p.view.ShowFailed(prio)
		}
		p.last = d
	}

	if ringing {
		p.view.ShowSmallView(true)
	} else {
		p.view.ShowSmallView(false)
		p.view.ShowDetail(true)
	}

	if !p.last.IsValid() {
		return
	}
	if p.binder.CanRequestLocationImage(c) {
		w, h := p.view.MapSize()
		if err := p.binder.RequestLocationImage(c, w, h); err != nil {
			p.logger.Debug("[Enriched] Location image not requested", "call", c.ID, "error", err)
		}
	}
	if p.binder.CanRequestSharedImage(c, p.foreground) {
		if err := p.binder.RequestSharedImage(c); err != nil {
			p.logger.Debug("[Enriched] Shared image not requested", "call", c.ID, "error", err)
		}
	}
}

func (p *Presenter) render(c *call.Call) {
	r := p.binder.Record(c.ID)
	if r == nil {
		return
	}
	d := r.Data()
	if d == nil {
		return
	}
	p.view.Update(r, d)
	p.last = d
}

// IsEnrichedCall reports whether c should be presented as an enriched call.
func IsEnrichedCall(c *call.Call, d *Data) bool {
	return c != nil && d.IsValid() &&
		!c.IsWifi &&
		!c.IsVideoCall() &&
		!c.IsConference &&
		!c.HasReceivedVideoUpgradeRequest()
}

// Notice selects the ongoing-call notification text for an enriched call.
type Notice int

const (
	NoticeOngoingNormal Notice = iota
	NoticeOngoingHigh
	NoticeIncomingNormal
	NoticeIncomingHigh
	NoticeOnHoldNormal
	NoticeOnHoldHigh
	NoticeDialingNormal
	NoticeDialingHigh
)

func (n Notice) String() string {
	switch n {
	case NoticeOngoingNormal:
		return "ongoing_normal_priority"
	case NoticeOngoingHigh:
		return "ongoing_high_priority"
	case NoticeIncomingNormal:
		return "incoming_normal_priority"
	case NoticeIncomingHigh:
		return "incoming_high_priority"
	case NoticeOnHoldNormal:
		return "on_hold_normal_priority"
	case NoticeOnHoldHigh:
		return "on_hold_high_priority"
	case NoticeDialingNormal:
		return "dialing_normal_priority"
	case NoticeDialingHigh:
		return "dialing_high_priority"
	default:
		return fmt.Sprintf("Unknown(%d)", n)
	}
}

// NotificationNotice picks the notification text variant for c.
func NotificationNotice(c *call.Call, d *Data, incomingOrWaiting bool) Notice {
	high := d != nil && d.Priority == PriorityHigh
	var n Notice
	switch {
	case incomingOrWaiting:
		n = NoticeIncomingNormal
	case c != nil && c.State == call.StateOnHold:
		n = NoticeOnHoldNormal
	case c != nil && c.State.IsDialing():
		n = NoticeDialingNormal
	default:
		n = NoticeOngoingNormal
	}
	if high {
		n++
	}
	return n
}
