package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/mossy-p/challenge-lobby/internal/auth"
	"github.com/mossy-p/challenge-lobby/internal/models"
	"github.com/mossy-p/challenge-lobby/internal/store"
)

// TokenIssuer signs bearer tokens for logged in users
type TokenIssuer interface {
	Issue(username string) (string, error)
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

type SettingsInput struct {
	Username        string
	NewUsername     string
	Email           string
	CurrentPassword string
	NewPassword     string
}

type AdminSeed struct {
	Username string
	Email    string
	Password string
}

type UserService struct {
	users  store.UserRepository
	tokens TokenIssuer
	logger *slog.Logger
}

func NewUserService(users store.UserRepository, tokens TokenIssuer, logger *slog.Logger) *UserService {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserService{users: users, tokens: tokens, logger: logger}
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if in.Username == "" || in.Email == "" || in.Password == "" {
		return models.User{}, invalid("All fields are required")
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return models.User{}, err
	}
	user := models.User{Username: in.Username, Email: in.Email, Password: hash}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrUserExists) {
			return models.User{}, invalid("Username or email already exists")
		}
		return models.User{}, err
	}

	s.logger.Info("user registered", slog.String("username", user.Username))
	return user.Public(), nil
}

// Login checks the password and returns a bearer token with the public user
func (s *UserService) Login(ctx context.Context, username, password string) (string, models.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return "", models.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return "", models.User{}, err
	}
	if !auth.CheckPassword(user.Password, password) {
		s.logger.Info("login failed", slog.String("username", username))
		return "", models.User{}, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.Username)
	if err != nil {
		return "", models.User{}, err
	}
	return token, user.Public(), nil
}

// UpdateSettings renames the user, changes the email or the password. A
// password change requires the current password.
func (s *UserService) UpdateSettings(ctx context.Context, in SettingsInput) (models.User, error) {
	user, err := s.users.GetByUsername(ctx, in.Username)
	if err != nil {
		return models.User{}, userErr(err)
	}

	if in.CurrentPassword != "" && !auth.CheckPassword(user.Password, in.CurrentPassword) {
		return models.User{}, invalid("Current password is incorrect")
	}

	updated := *user
	if n := strings.TrimSpace(in.NewUsername); n != "" && n != user.Username {
		if len(n) < 3 || len(n) > 20 {
			return models.User{}, invalid("username must be between 3 and 20 characters")
		}
		updated.Username = n
	}
	if e := strings.TrimSpace(in.Email); e != "" {
		updated.Email = e
	}
	if in.NewPassword != "" {
		if in.CurrentPassword == "" {
			return models.User{}, invalid("Current password is required to set a new password")
		}
		hash, err := auth.HashPassword(in.NewPassword)
		if err != nil {
			return models.User{}, err
		}
		updated.Password = hash
	}

	if err := s.users.Update(ctx, user.Username, updated); err != nil {
		if errors.Is(err, store.ErrUserExists) {
			return models.User{}, invalid("Username or email is already in use")
		}
		return models.User{}, userErr(err)
	}

	s.logger.Info("user settings updated", slog.String("username", user.Username), slog.String("now", updated.Username))
	return updated.Public(), nil
}

// ListUsers returns every user without credentials. Every account counts
// as online; there is no presence tracking.
func (s *UserService) ListUsers(ctx context.Context) (models.UserListResponse, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return models.UserListResponse{}, err
	}
	out := make([]models.User, len(users))
	for i, u := range users {
		out[i] = u.Public()
	}
	return models.UserListResponse{Total: len(out), Online: len(out), Users: out}, nil
}

// IsAdmin reports whether username belongs to an admin. Unknown users are
// not admins.
func (s *UserService) IsAdmin(ctx context.Context, username string) (bool, error) {
	if username == "" {
		return false, nil
	}
	user, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return user.IsAdmin, nil
}

// EnsureAdmin creates the seed admin account, or promotes it if it exists
func (s *UserService) EnsureAdmin(ctx context.Context, seed AdminSeed) error {
	user, err := s.users.GetByUsername(ctx, seed.Username)
	switch {
	case err == nil:
		if user.IsAdmin {
			return nil
		}
		user.IsAdmin = true
		if err := s.users.Update(ctx, user.Username, *user); err != nil {
			return err
		}
		s.logger.Info("admin promoted", slog.String("username", user.Username))
		return nil
	case !errors.Is(err, store.ErrNotFound):
		return err
	}

	hash, err := auth.HashPassword(seed.Password)
	if err != nil {
		return err
	}
	err = s.users.Create(ctx, models.User{
		Username: seed.Username,
		Email:    seed.Email,
		Password: hash,
		IsAdmin:  true,
	})
	if err != nil && !errors.Is(err, store.ErrUserExists) {
		return err
	}
	s.logger.Info("admin user created", slog.String("username", seed.Username))
	return nil
}
