package replay

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyScenario = errors.New("scenario has no steps")
	ErrMissingOp     = errors.New("step has no op")
	ErrUnknownOp     = errors.New("unknown op")
	ErrMissingCallID = errors.New("call has no id")
	ErrMissingValue  = errors.New("step needs a value")
	ErrNoPending     = errors.New("no pending carrier request")
	ErrUnknownKind   = errors.New("unknown carrier request kind")
)

// StepError reports which step of a scenario failed.
type StepError struct {
	Index int
	Op    string
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s): %v", e.Index, e.Op, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
