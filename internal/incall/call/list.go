package call

// List is a read-only snapshot of the host call list. Calls keep host order.
type List struct {
	calls []*Call
}

// NewList builds a snapshot from the given calls. Nil entries are skipped.
func NewList(calls ...*Call) *List {
	l := &List{calls: make([]*Call, 0, len(calls))}
	for _, c := range calls {
		if c != nil {
			l.calls = append(l.calls, c)
		}
	}
	return l
}

// Calls returns every call in the snapshot.
func (l *List) Calls() []*Call {
	if l == nil {
		return nil
	}
	out := make([]*Call, len(l.calls))
	copy(out, l.calls)
	return out
}

// Len returns the number of calls.
func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.calls)
}

// Get returns the call with the given ID, or nil.
func (l *List) Get(id string) *Call {
	if l == nil {
		return nil
	}
	for _, c := range l.calls {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// Contains reports whether a call with the same identity is in the list.
func (l *List) Contains(c *Call) bool {
	return c != nil && l.Get(c.ID) != nil
}

func (l *List) nthWithState(n int, states ...State) *Call {
	if l == nil {
		return nil
	}
	for _, c := range l.calls {
		for _, s := range states {
			if c.State == s {
				if n == 0 {
					return c
				}
				n--
				break
			}
		}
	}
	return nil
}

// Incoming returns the first ringing call.
func (l *List) Incoming() *Call { return l.nthWithState(0, StateIncoming, StateCallWaiting) }

// Outgoing returns the first dialing call.
func (l *List) Outgoing() *Call { return l.nthWithState(0, StateDialing) }

// PendingOutgoing returns the first call still being set up by the host.
func (l *List) PendingOutgoing() *Call { return l.nthWithState(0, StateConnecting) }

func (l *List) Active() *Call { return l.nthWithState(0, StateActive) }

// Background returns the first held call.
func (l *List) Background() *Call { return l.nthWithState(0, StateOnHold) }

// SecondBackground returns the second held call.
func (l *List) SecondBackground() *Call { return l.nthWithState(1, StateOnHold) }

func (l *List) Disconnecting() *Call { return l.nthWithState(0, StateDisconnecting) }

func (l *List) Disconnected() *Call { return l.nthWithState(0, StateDisconnected) }

// ActiveVideo returns the active call if it is a video call.
func (l *List) ActiveVideo() *Call {
	if c := l.Active(); c.IsVideoCall() {
		return c
	}
	return nil
}
