// Package tracker selects the primary call from the host call list and fans
// out primary-call changes.
package tracker

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/sebas/incallcore/internal/incall/call"
	"github.com/sebas/incallcore/internal/incall/metrics"
	"github.com/sebas/incallcore/internal/incall/notify"
)

// ErrInvalidState is returned for a global state outside the known set.
var ErrInvalidState = errors.New("invalid global in-call state")

// Role describes how the primary call was selected.
type Role int

const (
	RoleNone Role = iota
	RoleIncoming
	RoleOutgoing
	RolePendingOutgoing
	RoleInCall
)

func (r Role) String() string {
	switch r {
	case RoleNone:
		return "none"
	case RoleIncoming:
		return "incoming"
	case RoleOutgoing:
		return "outgoing"
	case RolePendingOutgoing:
		return "pending_outgoing"
	case RoleInCall:
		return "incall"
	default:
		return fmt.Sprintf("Unknown(%d)", r)
	}
}

// Listener receives primary call changes. c is nil when there is no primary call.
type Listener interface {
	OnPrimaryCallChanged(c *call.Call)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(c *call.Call)

func (f ListenerFunc) OnPrimaryCallChanged(c *call.Call) { f(c) }

// Config configures a Tracker.
type Config struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Tracker holds the primary call. All methods must be called on the core thread.
type Tracker struct {
	logger    *slog.Logger
	metrics   *metrics.Metrics
	listeners *notify.List[Listener]

	primary *call.Call
	role    Role
	state   call.GlobalState
	list    *call.List
}

// New creates a tracker with no primary call.
func New(cfg Config) *Tracker {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Tracker{
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
		listeners: notify.NewList[Listener]("primary", cfg.Logger),
		list:      call.NewList(),
	}
}

// AddListener registers l and returns its registration id.
func (t *Tracker) AddListener(l Listener) string {
	return t.listeners.Add(l)
}

func (t *Tracker) RemoveListener(id string) bool {
	return t.listeners.Remove(id)
}

// Select applies the priority rules to a global state and call list.
func Select(state call.GlobalState, list *call.List) (*call.Call, Role, error) {
	switch state {
	case call.GlobalIncoming:
		return list.Incoming(), RoleIncoming, nil
	case call.GlobalOutgoing:
		return list.Outgoing(), RoleOutgoing, nil
	case call.GlobalPendingOutgoing:
		return list.PendingOutgoing(), RolePendingOutgoing, nil
	case call.GlobalInCall:
		if c := list.Active(); c != nil {
			return c, RoleInCall, nil
		}
		return list.Background(), RoleInCall, nil
	case call.GlobalNoCalls:
		return nil, RoleNone, nil
	default:
		return nil, RoleNone, fmt.Errorf("%w: %v", ErrInvalidState, state)
	}
}

// OnStateChange consumes a host state transition.
func (t *Tracker) OnStateChange(oldState, newState call.GlobalState, list *call.List) error {
	if list == nil {
		list = call.NewList()
	}
	selected, role, err := Select(newState, list)
	if err != nil {
		t.logger.Error("[Tracker] Dropping state change", "old", oldState, "new", newState, "error", err)
		return err
	}
	t.state = newState
	t.list = list
	t.update(selected, role)
	return nil
}

// OnIncomingCall is handled as a transition to INCOMING.
func (t *Tracker) OnIncomingCall(oldState call.GlobalState, incoming *call.Call, list *call.List) error {
	if list == nil || !list.Contains(incoming) {
		list = call.NewList(append(list.Calls(), incoming)...)
	}
	return t.OnStateChange(oldState, call.GlobalIncoming, list)
}

// OnCallListChange refreshes the call list without a state transition. A newer
// snapshot of the same primary replaces the held one silently; if the primary
// left the list, selection is re-run for the current state.
func (t *Tracker) OnCallListChange(list *call.List) {
	if list == nil {
		list = call.NewList()
	}
	t.list = list
	selected, role, err := Select(t.state, list)
	if err != nil {
		return
	}
	t.update(selected, role)
}

func (t *Tracker) update(selected *call.Call, role Role) {
	if call.SameCall(selected, t.primary) {
		// Same identity: keep the freshest snapshot, no notification.
		t.primary = selected
		t.role = role
		return
	}

	previous := t.primary
	t.primary = selected
	t.role = role
	t.metrics.PrimaryChanged()
	t.logger.Debug("[Tracker] Primary call changed",
		"previous", callID(previous),
		"primary", callID(selected),
		"role", role,
	)
	t.listeners.Each(func(l Listener) { l.OnPrimaryCallChanged(selected) })
}

// Primary returns the primary call or nil.
func (t *Tracker) Primary() *call.Call { return t.primary }

// Role returns how the primary was selected.
func (t *Tracker) Role() Role { return t.role }

// State returns the last host global state.
func (t *Tracker) State() call.GlobalState { return t.state }

// List returns the last call list snapshot.
func (t *Tracker) List() *call.List { return t.list }

// IsPrimary reports whether c is the primary call.
func (t *Tracker) IsPrimary(c *call.Call) bool {
	return c != nil && call.SameCall(c, t.primary)
}

func callID(c *call.Call) string {
	if c == nil {
		return ""
	}
	return c.ID
}
