package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mossy-p/challenge-lobby/config"
	"github.com/mossy-p/challenge-lobby/internal/auth"
	"github.com/mossy-p/challenge-lobby/internal/handlers"
	"github.com/mossy-p/challenge-lobby/internal/scheduler"
	"github.com/mossy-p/challenge-lobby/internal/service"
)

const shutdownTimeout = 10 * time.Second

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	tokens := auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL)
	users := service.NewUserService(st.users, tokens, logger)
	if err := users.EnsureAdmin(ctx, adminSeed(cfg)); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	rooms := service.NewRoomService(st.rooms,
		service.WithLogger(logger),
		service.WithPublicURL(cfg.PublicURL),
	)

	sched := scheduler.New(rooms,
		scheduler.WithSweepInterval(cfg.SweepInterval),
		scheduler.WithCleanupInterval(cfg.CleanupInterval),
		scheduler.WithMaxIdle(cfg.RoomMaxIdle),
		scheduler.WithLogger(logger),
	)
	if err := sched.Start(ctx); err != nil {
		return err
	}
	defer sched.Stop()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := handlers.NewRouter(handlers.New(rooms, users, logger), tokens, cfg.AllowedOrigins, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting lobby server", slog.String("port", cfg.Port), slog.String("environment", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
