package app

import "errors"

var (
	// ErrNoScheduler is returned when the core is built without a task scheduler.
	ErrNoScheduler = errors.New("core requires a scheduler")
	// ErrMissingHost is returned when a required host collaborator is nil.
	ErrMissingHost = errors.New("missing host collaborator")
)
