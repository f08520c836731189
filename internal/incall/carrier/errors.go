package carrier

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingTarget is returned when no deflect/transfer number is configured or given.
	ErrMissingTarget = errors.New("missing target number")

	// ErrInvalidTarget is returned when a target cannot be dialed.
	ErrInvalidTarget = errors.New("invalid target number")

	// ErrCarrierRejected is wrapped by RequestError for non-zero result codes.
	ErrCarrierRejected = errors.New("carrier rejected request")
)

// RequestError reports a non-zero carrier response.
type RequestError struct {
	Kind   RequestKind
	Result int
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("carrier %s request failed: result=%d", e.Kind, e.Result)
}

func (e *RequestError) Unwrap() error {
	return ErrCarrierRejected
}

// ResultError converts a response code into an error, nil for success.
func ResultError(kind RequestKind, result int) error {
	if result == ResultSuccess {
		return nil
	}
	return &RequestError{Kind: kind, Result: result}
}
