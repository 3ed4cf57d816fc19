package session

import "errors"

var (
	// ErrSessionNotFound indicates no session matches the given reference.
	ErrSessionNotFound = errors.New("session not found")
	// ErrInvalidInput indicates invalid session input.
	ErrInvalidInput = errors.New("invalid session input")
)
