package domain

import (
	"errors"
	"fmt"
)

// Error classes shared by every layer. Specific errors wrap one of these so
// handlers can pick a status code with errors.Is.
var (
	ErrValidation = errors.New("validation error")
	ErrAuth       = errors.New("authorization error")
	ErrConflict   = errors.New("conflict")
	ErrNotFound   = errors.New("not found")
	ErrTransport  = errors.New("transport error")
	ErrUnknown    = errors.New("unknown error")
)

var (
	ErrInvalidEmail      = fmt.Errorf("%w: invalid email address", ErrValidation)
	ErrAlreadyOnWaitlist = fmt.Errorf("%w: email already on waitlist", ErrConflict)
	ErrWaitlistNotFound  = fmt.Errorf("%w: waitlist entry", ErrNotFound)

	ErrNoContext        = fmt.Errorf("%w: no interview context", ErrNotFound)
	ErrNoConversationID = fmt.Errorf("%w: no conversation id", ErrNotFound)

	ErrRoomToken      = fmt.Errorf("%w: interview token unavailable", ErrUnknown)
	ErrRoomConnection = fmt.Errorf("%w: voice room connection lost", ErrTransport)
	ErrMediaDevice    = fmt.Errorf("%w: media device unavailable", ErrTransport)
)
