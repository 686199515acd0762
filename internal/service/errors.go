package service

import (
	"errors"
	"fmt"

	"github.com/mossy-p/challenge-lobby/internal/store"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrCodesExhausted     = errors.New("could not allocate a room code")
)

// Error is a categorized failure whose message is safe to show to clients.
// Kind is one of the sentinels above.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

func invalid(format string, args ...any) error {
	return &Error{Kind: ErrValidation, Msg: fmt.Sprintf(format, args...)}
}

func forbidden(msg string) error {
	return &Error{Kind: ErrForbidden, Msg: msg}
}

func notFound(msg string) error {
	return &Error{Kind: ErrNotFound, Msg: msg}
}

// ConflictError is returned when a join or start is refused because of the
// room's state. Exactly one flag is set.
type ConflictError struct {
	RoomFull    bool
	GameStarted bool
}

func (e *ConflictError) Error() string {
	if e.RoomFull {
		return "Room is full"
	}
	return "Game has already started"
}

func roomErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return notFound("Room not found")
	}
	return err
}

func userErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return notFound("User not found")
	}
	return err
}
