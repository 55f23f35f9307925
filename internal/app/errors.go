package service

import "errors"

var (
	// ErrNotStarted is returned by operations called before Start or after Stop.
	ErrNotStarted = errors.New("service not started")
	// ErrInFlight is returned for a retried request id whose first attempt
	// has not finished yet.
	ErrInFlight = errors.New("request already in flight")
)
