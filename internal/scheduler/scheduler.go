// Package scheduler runs the background loops that start rooms whose timer
// expired and remove rooms nobody touched for a while.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

const (
	DefaultSweepInterval   = time.Second
	DefaultCleanupInterval = time.Hour
	DefaultMaxIdle         = time.Hour
)

var ErrAlreadyRunning = errors.New("scheduler already running")

// Rooms is the part of the room service the scheduler drives
type Rooms interface {
	ArmedRooms(ctx context.Context) ([]string, error)
	CheckAndStart(ctx context.Context, code string) (bool, error)
	CleanupInactive(ctx context.Context, maxIdle time.Duration) (int, error)
}

type Scheduler struct {
	rooms           Rooms
	sweepInterval   time.Duration
	cleanupInterval time.Duration
	maxIdle         time.Duration
	logger          *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type Option func(*Scheduler)

func WithSweepInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		s.sweepInterval = d
	}
}

func WithCleanupInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		s.cleanupInterval = d
	}
}

// WithMaxIdle sets how long a waiting room may sit untouched
func WithMaxIdle(d time.Duration) Option {
	return func(s *Scheduler) {
		s.maxIdle = d
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

func New(rooms Rooms, opts ...Option) *Scheduler {
	s := &Scheduler{
		rooms:           rooms,
		sweepInterval:   DefaultSweepInterval,
		cleanupInterval: DefaultCleanupInterval,
		maxIdle:         DefaultMaxIdle,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches both loops. They run until ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg.Add(2)
	go s.loop(ctx, s.sweepInterval, s.Sweep)
	go s.loop(ctx, s.cleanupInterval, s.Cleanup)

	s.logger.Info("scheduler started",
		slog.Duration("sweep", s.sweepInterval),
		slog.Duration("cleanup", s.cleanupInterval),
	)
	return nil
}

// Stop cancels the loops and waits for them to return
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, every time.Duration, tick func(context.Context) int) {
	defer s.wg.Done()
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tick(ctx)
		}
	}
}

// Sweep checks every armed room once and returns how many it started.
// A failing room is logged and skipped.
func (s *Scheduler) Sweep(ctx context.Context) int {
	codes, err := s.rooms.ArmedRooms(ctx)
	if err != nil {
		s.logger.Error("list armed rooms", slog.String("error", err.Error()))
		return 0
	}

	started := 0
	for _, code := range codes {
		if ctx.Err() != nil {
			break
		}
		ok, err := s.rooms.CheckAndStart(ctx, code)
		if err != nil {
			s.logger.Warn("auto-start check failed", slog.String("code", code), slog.String("error", err.Error()))
			continue
		}
		if ok {
			started++
		}
	}
	return started
}

// Cleanup removes idle waiting rooms and returns how many went away
func (s *Scheduler) Cleanup(ctx context.Context) int {
	removed, err := s.rooms.CleanupInactive(ctx, s.maxIdle)
	if err != nil {
		s.logger.Error("cleanup inactive rooms", slog.String("error", err.Error()), slog.Int("removed", removed))
	}
	if removed > 0 {
		s.logger.Info("inactive rooms cleaned up", slog.Int("removed", removed))
	}
	return removed
}
