package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mossy-p/challenge-lobby/internal/models"
)

const uniqueViolation = "23505"

const usersSchema = `
	CREATE TABLE IF NOT EXISTS users (
		username TEXT PRIMARY KEY,
		email    TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		is_admin BOOLEAN NOT NULL DEFAULT FALSE
	)
`

// PostgresUserStore is a UserRepository backed by the users table
type PostgresUserStore struct {
	db *sqlx.DB
}

func NewPostgresUserStore(
	db *sqlx.DB,
) *PostgresUserStore {
	return &PostgresUserStore{db: db}
}

// EnsureSchema creates the users table when missing
func (s *PostgresUserStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, usersSchema); err != nil {
		return storageErr(err)
	}
	return nil
}

func (s *PostgresUserStore) Create(ctx context.Context, user models.User) error {
	query := `
		INSERT INTO users (username, email, password, is_admin)
		VALUES (:username, :email, :password, :is_admin)
	`

	_, err := s.db.NamedExecContext(ctx, query, user)
	if err != nil {
		return pgErr(err)
	}
	return nil
}

func (s *PostgresUserStore) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User

	query := `
		SELECT username, email, password, is_admin
		FROM users
		WHERE username = $1
	`

	err := s.db.GetContext(ctx, &user, query, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, storageErr(err)
	}
	return &user, nil
}

func (s *PostgresUserStore) Update(ctx context.Context, username string, user models.User) error {
	query := `
		UPDATE users
		SET username = $1, email = $2, password = $3, is_admin = $4
		WHERE username = $5
	`

	res, err := s.db.ExecContext(ctx, query, user.Username, user.Email, user.Password, user.IsAdmin, username)
	if err != nil {
		return pgErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr(err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresUserStore) List(ctx context.Context) ([]models.User, error) {
	users := []models.User{}

	query := `
		SELECT username, email, password, is_admin
		FROM users
		ORDER BY username
	`

	if err := s.db.SelectContext(ctx, &users, query); err != nil {
		return nil, storageErr(err)
	}
	return users, nil
}

func pgErr(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return ErrUserExists
	}
	return storageErr(err)
}
