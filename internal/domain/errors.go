package domain

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidState is returned when a transition is requested from the
	// wrong status: joining an ended session, editing a non-active one,
	// accepting a non-pending invitation.
	ErrInvalidState = errors.New("invalid state")
	// ErrAlreadyInProgress is returned when a screen share is requested
	// while ScreenShareUserID is already set, by anyone including the caller.
	ErrAlreadyInProgress = errors.New("screen share already in progress")
	// ErrTargetNotConnected is terminal for a relayed message: the
	// destination has no live connection and nothing is buffered. The
	// sender decides whether to resend.
	ErrTargetNotConnected = errors.New("target not connected")
)
