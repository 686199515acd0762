// Package store persists rooms and users. Room writes are optimistic: an
// update re-reads the document, applies the caller's change, and commits only
// if nobody else wrote in between.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/mossy-p/challenge-lobby/internal/models"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrCodeTaken  = errors.New("room code already taken")
	ErrUserExists = errors.New("username or email already exists")
	ErrContention = errors.New("room updated concurrently too many times")
	ErrStorage    = errors.New("storage failure")
)

const (
	DefaultCodeRetention = 24 * time.Hour
	DefaultMaxRetries    = 16
)

// UpdateFunc mutates a freshly read room. Returning an error aborts the write
// and the error is handed back to the caller as is.
type UpdateFunc func(room *models.Room) error

// RoomRepository is the rooms collection keyed by code
type RoomRepository interface {
	// Create stores a new room. ErrCodeTaken when the code is live or still reserved.
	Create(ctx context.Context, room *models.Room) error
	Get(ctx context.Context, code string) (*models.Room, error)
	Update(ctx context.Context, code string, fn UpdateFunc) (*models.Room, error)
	Delete(ctx context.Context, code string) error
	// DeleteIf removes the room only if pred holds on its current state
	DeleteIf(ctx context.Context, code string, pred func(room *models.Room) bool) (bool, error)
	// ListWaiting returns rooms that have not started, newest first
	ListWaiting(ctx context.Context) ([]*models.Room, error)
	// ListArmed returns codes of waiting rooms whose start timer is armed
	ListArmed(ctx context.Context) ([]string, error)
}

// UserRepository is the users collection keyed by username, unique on email
type UserRepository interface {
	Create(ctx context.Context, user models.User) error
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	// Update replaces the record stored under username. user.Username may differ (rename).
	Update(ctx context.Context, username string, user models.User) error
	List(ctx context.Context) ([]models.User, error)
}

func storageErr(err error) error {
	return errors.Join(ErrStorage, err)
}

// abortErr carries an UpdateFunc error out of a transaction callback
type abortErr struct {
	err error
}

func (e abortErr) Error() string { return e.err.Error() }

func (e abortErr) Unwrap() error { return e.err }

func indexedWaiting(room *models.Room) bool {
	return !room.IsStarted
}

func indexedArmed(room *models.Room) bool {
	return !room.IsStarted && room.StartTimer != nil
}
