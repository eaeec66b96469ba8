package domain

import "errors"

// Error taxonomy surfaced to callers. All are recoverable.
var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidTransition  = errors.New("invalid state transition")
	ErrDuplicateRequest   = errors.New("a pending request for this trainer already exists")
	ErrAlreadyConnected   = errors.New("client is already connected to this trainer")
	ErrEmailTaken         = errors.New("user with this email already exists")
	ErrEmptyBody          = errors.New("message body is empty")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid email or password")
)
