package actionmenu

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownAction   = errors.New("unknown action")
	ErrNoPrimaryCall   = errors.New("no primary call")
	ErrActionDisabled  = errors.New("action disabled")
	ErrTTYEnabled      = errors.New("call modification unavailable while TTY is on")
	ErrInvalidOption   = errors.New("option not offered")
	ErrRequestPending  = errors.New("request already pending")
	ErrNoCarrierClient = errors.New("carrier extension unavailable")
)

// DispatchError reports why a selection did not result in a command.
type DispatchError struct {
	Action ActionID
	Err    error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch %s: %v", e.Action, e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}
