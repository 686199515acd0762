// Package game holds the room lifecycle rules. Functions mutate the room in
// place and never touch storage; callers run them inside a repository update.
package game

import (
	"errors"
	"math/rand"
	"time"

	"github.com/mossy-p/challenge-lobby/internal/models"
)

// ErrRule is wrapped by every RuleError
var ErrRule = errors.New("game rule violation")

// RuleError is returned when an action is not allowed in the room's current state
type RuleError struct {
	Reason string
}

func (e *RuleError) Error() string { return e.Reason }

func (e *RuleError) Unwrap() error { return ErrRule }

func ruleErr(reason string) error {
	return &RuleError{Reason: reason}
}

// Intn returns a value in [0, n)
type Intn func(n int) int

// DefaultIntn is backed by math/rand
var DefaultIntn Intn = rand.Intn

// JoinOutcome is the typed result of Join
type JoinOutcome int

const (
	Joined JoinOutcome = iota
	AlreadyMember
	RoomFull
	GameStarted
)

func (o JoinOutcome) String() string {
	switch o {
	case Joined:
		return "joined"
	case AlreadyMember:
		return "already_member"
	case RoomFull:
		return "room_full"
	case GameStarted:
		return "game_started"
	default:
		return "unknown"
	}
}

// Rejected reports whether the outcome left the room untouched because of a conflict
func (o JoinOutcome) Rejected() bool {
	return o == RoomFull || o == GameStarted
}

// Join adds username while the room is open and below capacity. Members are
// let back in whatever the room state is.
func Join(room *models.Room, username string, now time.Time) JoinOutcome {
	if room.HasPlayer(username) {
		return AlreadyMember
	}
	if room.IsStarted {
		return GameStarted
	}
	if len(room.Players) >= room.MaxPlayers {
		return RoomFull
	}

	room.Players = append(room.Players, models.NewPlayer(username, now))
	room.LastActivity = now

	// Arm the grace period once the room is one seat short
	if len(room.Players) == room.MaxPlayers-1 && room.StartTimer == nil {
		t := now
		room.StartTimer = &t
	}
	return Joined
}

// ForceJoin is the admin path: no capacity or phase checks. Reports whether a
// new entry was added.
func ForceJoin(room *models.Room, username string, now time.Time) bool {
	if room.HasPlayer(username) {
		return false
	}
	room.Players = append(room.Players, models.NewPlayer(username, now))
	room.LastActivity = now
	return true
}

// ShouldStart reports whether the auto-start conditions hold
func ShouldStart(room *models.Room, now time.Time) bool {
	if room.IsStarted {
		return false
	}
	if len(room.Players) >= room.MaxPlayers {
		return true
	}
	if room.StartTimer == nil {
		return false
	}
	return now.Sub(*room.StartTimer) >= time.Duration(room.AutoStartTime)*time.Second
}

// CheckAndStart starts the room when ShouldStart holds. No-op once started.
func CheckAndStart(room *models.Room, now time.Time, intn Intn) bool {
	if !ShouldStart(room, now) {
		return false
	}
	Start(room, now, intn)
	return true
}

// Start moves the room into the challenge phase and draws a challenger
func Start(room *models.Room, now time.Time, intn Intn) {
	AssignRoles(room, intn)
	for i := range room.Players {
		room.Players[i].Health = room.Settings.MaxHealth
	}
	room.IsStarted = true
	room.Phase = models.PhaseChallenge
	room.Status = models.StatusActive
	room.LastActivity = now
}

// Stop puts the room back to joining and clears per-game player state.
// Membership and roles are kept.
func Stop(room *models.Room, now time.Time) {
	room.IsStarted = false
	room.Phase = models.PhaseJoining
	room.Status = models.StatusWaiting
	room.StartTimer = nil
	room.LastActivity = now
	for i := range room.Players {
		room.Players[i].Health = models.DefaultHealth
		room.Players[i].Ready = false
		room.Players[i].Challenges = []models.Challenge{}
	}
}

// AssignRoles marks exactly one uniformly drawn player as challenger
func AssignRoles(room *models.Room, intn Intn) {
	if len(room.Players) == 0 {
		return
	}
	if intn == nil {
		intn = DefaultIntn
	}
	pick := intn(len(room.Players))
	for i := range room.Players {
		if i == pick {
			room.Players[i].Role = models.RoleChallenger
		} else {
			room.Players[i].Role = models.RolePlayer
		}
	}
}
