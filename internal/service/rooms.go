// Package service orchestrates room and user operations on top of the
// repositories and the game rules.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mossy-p/challenge-lobby/internal/game"
	"github.com/mossy-p/challenge-lobby/internal/models"
	"github.com/mossy-p/challenge-lobby/internal/roomcode"
	"github.com/mossy-p/challenge-lobby/internal/store"
)

const (
	DefaultCodeAttempts = 5
	maxRoomName         = 50
)

// errUnchanged aborts an update that has nothing to write
var errUnchanged = errors.New("unchanged")

// Actor is the caller of a room operation. Admin is resolved by the caller
// from the user repository, never from request input.
type Actor struct {
	Username string
	Admin    bool
}

// CodeGenerator draws candidate room codes
type CodeGenerator interface {
	Generate() string
}

type CreateRoomInput struct {
	Name          string
	MaxPlayers    int
	Creator       string
	AutoStartTime int
	MaxHealth     int
	MinDamage     int
	MaxDamage     int
}

type JoinResult struct {
	Room        *models.Room
	GameStarted bool
}

type ChallengeInput struct {
	From   string
	To     string
	Text   string
	Points int
}

type RoomService struct {
	rooms        store.RoomRepository
	codes        CodeGenerator
	intn         game.Intn
	now          func() time.Time
	newID        func() string
	codeAttempts int
	publicURL    string
	logger       *slog.Logger
}

type Option func(*RoomService)

func WithLogger(logger *slog.Logger) Option {
	return func(s *RoomService) {
		s.logger = logger
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *RoomService) {
		s.now = now
	}
}

// WithIntn replaces the random source used for role assignment
func WithIntn(intn game.Intn) Option {
	return func(s *RoomService) {
		s.intn = intn
	}
}

func WithCodeGenerator(codes CodeGenerator) Option {
	return func(s *RoomService) {
		s.codes = codes
	}
}

func WithIDs(newID func() string) Option {
	return func(s *RoomService) {
		s.newID = newID
	}
}

// WithPublicURL sets the base URL join links are built from
func WithPublicURL(url string) Option {
	return func(s *RoomService) {
		s.publicURL = strings.TrimRight(url, "/")
	}
}

func NewRoomService(rooms store.RoomRepository, opts ...Option) *RoomService {
	s := &RoomService{
		rooms:        rooms,
		codes:        roomcode.New(),
		intn:         game.DefaultIntn,
		now:          time.Now,
		newID:        uuid.NewString,
		codeAttempts: DefaultCodeAttempts,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateRoom validates the input, allocates a fresh code and stores the room
// with its creator as the first player
func (s *RoomService) CreateRoom(ctx context.Context, in CreateRoomInput) (*models.Room, error) {
	room, err := s.newRoom(in)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < s.codeAttempts; attempt++ {
		room.Code = s.codes.Generate()
		err := s.rooms.Create(ctx, room)
		if err == nil {
			s.logger.Info("room created",
				slog.String("code", room.Code),
				slog.String("creator", room.Creator),
				slog.Int("maxPlayers", room.MaxPlayers),
			)
			return room, nil
		}
		if !errors.Is(err, store.ErrCodeTaken) {
			return nil, err
		}
		s.logger.Debug("room code collision", slog.String("code", room.Code), slog.Int("attempt", attempt+1))
	}
	return nil, ErrCodesExhausted
}

func (s *RoomService) newRoom(in CreateRoomInput) (*models.Room, error) {
	name := strings.TrimSpace(in.Name)
	creator := strings.TrimSpace(in.Creator)
	if name == "" || creator == "" || in.MaxPlayers == 0 {
		return nil, invalid("Missing required fields")
	}
	if len(name) > maxRoomName {
		return nil, invalid("name must be at most %d characters", maxRoomName)
	}
	if in.MaxPlayers < models.MinPlayers || in.MaxPlayers > models.MaxPlayers {
		return nil, invalid("maxPlayers must be between %d and %d", models.MinPlayers, models.MaxPlayers)
	}

	autoStart, err := withDefault("startTimer", in.AutoStartTime, models.DefaultAutoStartTime, models.MinAutoStartTime, models.MaxAutoStartTime)
	if err != nil {
		return nil, err
	}
	maxHealth, err := withDefault("maxHealth", in.MaxHealth, models.DefaultHealth, models.MinHealthSetting, models.MaxHealthSetting)
	if err != nil {
		return nil, err
	}
	minDamage, err := withDefault("minDamage", in.MinDamage, models.DefaultMinDamage, models.MinDamageFloor, models.MinDamageCeil)
	if err != nil {
		return nil, err
	}
	maxDamage, err := withDefault("maxDamage", in.MaxDamage, models.DefaultMaxDamage, models.MaxDamageFloor, models.MaxDamageCeil)
	if err != nil {
		return nil, err
	}
	if minDamage > maxDamage {
		return nil, invalid("minDamage must not exceed maxDamage")
	}

	now := s.now()
	return &models.Room{
		ID:            s.newID(),
		Name:          name,
		MaxPlayers:    in.MaxPlayers,
		Creator:       creator,
		Players:       []models.Player{models.NewPlayer(creator, now)},
		Phase:         models.PhaseJoining,
		Status:        models.StatusWaiting,
		AutoStartTime: autoStart,
		Settings: models.Settings{
			MaxHealth: maxHealth,
			MinDamage: minDamage,
			MaxDamage: maxDamage,
		},
		CreatedAt:    now,
		LastActivity: now,
	}, nil
}

// withDefault substitutes def for zero and range-checks anything else
func withDefault(field string, v, def, lo, hi int) (int, error) {
	if v == 0 {
		return def, nil
	}
	if v < lo || v > hi {
		return 0, invalid("%s must be between %d and %d", field, lo, hi)
	}
	return v, nil
}

// JoinRoom adds the actor to the room. Admins bypass capacity and phase
// checks; everyone else goes through the join rules and may trigger the
// auto-start in the same write.
func (s *RoomService) JoinRoom(ctx context.Context, code string, actor Actor) (*JoinResult, error) {
	if actor.Username == "" {
		return nil, invalid("Room code and username are required")
	}

	var outcome game.JoinOutcome
	room, err := s.rooms.Update(ctx, code, func(room *models.Room) error {
		now := s.now()
		if actor.Admin {
			game.ForceJoin(room, actor.Username, now)
			return nil
		}
		outcome = game.Join(room, actor.Username, now)
		if outcome.Rejected() {
			return &ConflictError{
				RoomFull:    outcome == game.RoomFull,
				GameStarted: outcome == game.GameStarted,
			}
		}
		game.CheckAndStart(room, now, s.intn)
		return nil
	})
	if err != nil {
		var conflict *ConflictError
		if errors.As(err, &conflict) {
			s.logger.Info("join rejected",
				slog.String("code", code),
				slog.String("username", actor.Username),
				slog.String("reason", outcome.String()),
			)
		}
		return nil, roomErr(err)
	}

	s.logger.Info("player joined",
		slog.String("code", code),
		slog.String("username", actor.Username),
		slog.Bool("admin", actor.Admin),
		slog.Bool("gameStarted", room.IsStarted),
	)
	return &JoinResult{Room: room, GameStarted: room.IsStarted}, nil
}

// StartRoom starts the game. Members may start a waiting room holding at
// least two players; admins may start any room.
func (s *RoomService) StartRoom(ctx context.Context, code string, actor Actor) (*models.Room, error) {
	room, err := s.rooms.Update(ctx, code, func(room *models.Room) error {
		if room.IsStarted {
			if actor.Admin {
				return errUnchanged
			}
			return &ConflictError{GameStarted: true}
		}
		if !actor.Admin {
			if !room.HasPlayer(actor.Username) {
				return forbidden("Only room members can start the game")
			}
			if len(room.Players) < models.MinPlayers {
				return forbidden("At least 2 players are needed to start")
			}
		}
		game.Start(room, s.now(), s.intn)
		return nil
	})
	if errors.Is(err, errUnchanged) {
		return s.GetRoom(ctx, code)
	}
	if err != nil {
		return nil, roomErr(err)
	}

	s.logger.Info("game started", slog.String("code", code), slog.String("by", actor.Username), slog.Bool("admin", actor.Admin))
	return room, nil
}

// StopRoom resets a room to the joining phase. Admin only.
func (s *RoomService) StopRoom(ctx context.Context, code string, actor Actor) (*models.Room, error) {
	if !actor.Admin {
		return nil, forbidden("Admin access required")
	}
	room, err := s.rooms.Update(ctx, code, func(room *models.Room) error {
		game.Stop(room, s.now())
		return nil
	})
	if err != nil {
		return nil, roomErr(err)
	}

	s.logger.Info("game stopped", slog.String("code", code), slog.String("by", actor.Username))
	return room, nil
}

// DeleteRoom removes the room when the actor created it or is an admin
func (s *RoomService) DeleteRoom(ctx context.Context, code string, actor Actor) error {
	deleted, err := s.rooms.DeleteIf(ctx, code, func(room *models.Room) bool {
		return actor.Admin || (actor.Username != "" && room.Creator == actor.Username)
	})
	if err != nil {
		return roomErr(err)
	}
	if !deleted {
		return forbidden("Only the room creator can delete the room")
	}

	s.logger.Info("room deleted", slog.String("code", code), slog.String("by", actor.Username))
	return nil
}

// ListWaitingRooms returns rooms that have not started, newest first
func (s *RoomService) ListWaitingRooms(ctx context.Context) ([]*models.Room, error) {
	return s.rooms.ListWaiting(ctx)
}

func (s *RoomService) GetRoom(ctx context.Context, code string) (*models.Room, error) {
	room, err := s.rooms.Get(ctx, code)
	if err != nil {
		return nil, roomErr(err)
	}
	return room, nil
}

// SetReady toggles the member's ready flag before the game starts
func (s *RoomService) SetReady(ctx context.Context, code, username string, ready bool) (*models.Room, error) {
	if username == "" {
		return nil, invalid("username is required")
	}
	room, err := s.rooms.Update(ctx, code, func(room *models.Room) error {
		if !room.HasPlayer(username) {
			return forbidden("Player is not in this room")
		}
		return game.SetReady(room, username, ready, s.now())
	})
	if err != nil {
		return nil, roomErr(err)
	}
	return room, nil
}

// IssueChallenge records a challenge from the room's challenger
func (s *RoomService) IssueChallenge(ctx context.Context, code string, in ChallengeInput) (*models.Room, error) {
	if in.From == "" || in.To == "" {
		return nil, invalid("from and to are required")
	}
	id := s.newID()
	room, err := s.rooms.Update(ctx, code, func(room *models.Room) error {
		if !room.HasPlayer(in.From) {
			return forbidden("Player is not in this room")
		}
		_, err := game.IssueChallenge(room, game.ChallengeInput{
			ID:     id,
			From:   in.From,
			To:     in.To,
			Text:   in.Text,
			Points: in.Points,
		}, s.now())
		return err
	})
	if err != nil {
		return nil, roomErr(err)
	}

	s.logger.Info("challenge issued",
		slog.String("code", code),
		slog.String("id", id),
		slog.String("from", in.From),
		slog.String("to", in.To),
		slog.Int("points", in.Points),
		slog.Int("phase", int(room.Phase)),
	)
	return room, nil
}

// Vote records one member's verdict on a pending challenge
func (s *RoomService) Vote(ctx context.Context, code, voter, challengeID string, accept bool) (*models.Room, error) {
	if voter == "" {
		return nil, invalid("username is required")
	}
	room, err := s.rooms.Update(ctx, code, func(room *models.Room) error {
		if !room.HasPlayer(voter) {
			return forbidden("Player is not in this room")
		}
		return game.Vote(room, voter, challengeID, accept, s.now())
	})
	if err != nil {
		return nil, roomErr(err)
	}
	return room, nil
}

// ArmedRooms returns codes of waiting rooms whose start timer is running
func (s *RoomService) ArmedRooms(ctx context.Context) ([]string, error) {
	return s.rooms.ListArmed(ctx)
}

// CheckAndStart starts the room if its auto-start conditions hold. Rooms
// that are gone are reported as not started.
func (s *RoomService) CheckAndStart(ctx context.Context, code string) (bool, error) {
	_, err := s.rooms.Update(ctx, code, func(room *models.Room) error {
		if !game.CheckAndStart(room, s.now(), s.intn) {
			return errUnchanged
		}
		return nil
	})
	switch {
	case err == nil:
		s.logger.Info("game auto-started", slog.String("code", code))
		return true, nil
	case errors.Is(err, errUnchanged), errors.Is(err, store.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// CleanupInactive deletes waiting rooms idle for longer than maxIdle and
// returns how many were removed
func (s *RoomService) CleanupInactive(ctx context.Context, maxIdle time.Duration) (int, error) {
	rooms, err := s.rooms.ListWaiting(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := s.now().Add(-maxIdle)
	removed := 0
	var errs error
	for _, r := range rooms {
		if !r.LastActivity.Before(cutoff) {
			continue
		}
		deleted, err := s.rooms.DeleteIf(ctx, r.Code, func(room *models.Room) bool {
			return !room.IsStarted && room.LastActivity.Before(cutoff)
		})
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			errs = errors.Join(errs, err)
			continue
		}
		if deleted {
			removed++
			s.logger.Info("inactive room removed", slog.String("code", r.Code), slog.Time("lastActivity", r.LastActivity))
		}
	}
	return removed, errs
}

// RoomJoinLink returns the shareable URL for an existing room
func (s *RoomService) RoomJoinLink(ctx context.Context, code string) (string, error) {
	room, err := s.GetRoom(ctx, code)
	if err != nil {
		return "", err
	}
	return s.publicURL + "/join/" + room.Code, nil
}
