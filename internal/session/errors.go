package session

import "errors"

var (
	// ErrServiceStopped is returned when binding to a service that has
	// already terminated.
	ErrServiceStopped = errors.New("session: service has stopped")

	// ErrSessionLive is returned when the service is asked to hold a
	// second session while one is still live.
	ErrSessionLive = errors.New("session: a session is already live")
)
