package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound   = errors.New("key not found")
	ErrWrongType  = errors.New("operation against a key holding the wrong kind of value")
	ErrNotInteger = errors.New("value is not an integer")
	ErrBadScore   = errors.New("score is not a number")
	ErrBadPattern = errors.New("invalid key pattern")
	ErrClosed     = errors.New("store closed")
)
