package call

import "errors"

var (
	// ErrUnknownValue is returned when an enum name cannot be parsed.
	ErrUnknownValue = errors.New("unknown value")

	// ErrNoVideoMedia is returned when an SDP body has no video m-line.
	ErrNoVideoMedia = errors.New("no video media description")

	ErrNilCall = errors.New("nil call")
)
