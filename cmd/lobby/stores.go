package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/mossy-p/challenge-lobby/config"
	lobbyredis "github.com/mossy-p/challenge-lobby/internal/redis"
	"github.com/mossy-p/challenge-lobby/internal/store"
	"github.com/redis/go-redis/v9"
)

// stores holds the selected repositories and the connections behind them
type stores struct {
	rooms store.RoomRepository
	users store.UserRepository

	redis *redis.Client
	db    *sqlx.DB
}

func openStores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*stores, error) {
	st := &stores{}

	if cfg.Store == config.StoreRedis || cfg.UserStore == config.UserStoreRedis {
		client, err := lobbyredis.Connect(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		st.redis = client
		logger.Info("redis connection established", slog.String("host", cfg.Redis.Host), slog.Int("db", cfg.Redis.DB))
	}

	switch cfg.Store {
	case config.StoreRedis:
		st.rooms = store.NewRedisRoomStore(st.redis,
			store.WithCodeRetention(cfg.CodeRetention),
			store.WithTimeout(cfg.Redis.Timeout),
		)
	default:
		st.rooms = store.NewMemoryRoomStore(store.WithMemoryRetention(cfg.CodeRetention))
	}

	switch cfg.UserStore {
	case config.UserStoreRedis:
		st.users = store.NewRedisUserStore(st.redis)
	case config.UserStorePostgres:
		db, err := sqlx.ConnectContext(ctx, "postgres", cfg.Postgres.DSN())
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
		}
		st.db = db
		pg := store.NewPostgresUserStore(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			st.Close()
			return nil, err
		}
		st.users = pg
		logger.Info("postgres connection established", slog.String("host", cfg.Postgres.Host), slog.String("db", cfg.Postgres.Name))
	default:
		st.users = store.NewMemoryUserStore()
	}

	logger.Info("stores ready", slog.String("rooms", cfg.Store), slog.String("users", cfg.UserStore))
	return st, nil
}

func (s *stores) Close() error {
	var errs error
	if s.redis != nil {
		errs = errors.Join(errs, s.redis.Close())
	}
	if s.db != nil {
		errs = errors.Join(errs, s.db.Close())
	}
	return errs
}
