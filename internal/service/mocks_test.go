package service

import (
	"context"
	"sync"
	"time"

	"github.com/mossy-p/challenge-lobby/internal/models"
	"github.com/mossy-p/challenge-lobby/internal/store"
	"github.com/stretchr/testify/mock"
)

type roomRepoMock struct {
	mock.Mock
}

func (m *roomRepoMock) Create(ctx context.Context, room *models.Room) error {
	return m.Called(ctx, room).Error(0)
}

func (m *roomRepoMock) Get(ctx context.Context, code string) (*models.Room, error) {
	args := m.Called(ctx, code)
	room, _ := args.Get(0).(*models.Room)
	return room, args.Error(1)
}

func (m *roomRepoMock) Update(ctx context.Context, code string, _ store.UpdateFunc) (*models.Room, error) {
	args := m.Called(ctx, code)
	room, _ := args.Get(0).(*models.Room)
	return room, args.Error(1)
}

func (m *roomRepoMock) Delete(ctx context.Context, code string) error {
	return m.Called(ctx, code).Error(0)
}

func (m *roomRepoMock) DeleteIf(ctx context.Context, code string, _ func(room *models.Room) bool) (bool, error) {
	args := m.Called(ctx, code)
	return args.Bool(0), args.Error(1)
}

func (m *roomRepoMock) ListWaiting(ctx context.Context) ([]*models.Room, error) {
	args := m.Called(ctx)
	rooms, _ := args.Get(0).([]*models.Room)
	return rooms, args.Error(1)
}

func (m *roomRepoMock) ListArmed(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	codes, _ := args.Get(0).([]string)
	return codes, args.Error(1)
}

type tokenIssuerMock struct {
	mock.Mock
}

func (m *tokenIssuerMock) Issue(username string) (string, error) {
	args := m.Called(username)
	return args.String(0), args.Error(1)
}

// fixedCodes hands out codes in order, cycling
type fixedCodes struct {
	mu    sync.Mutex
	codes []string
	next  int
}

func (f *fixedCodes) Generate() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.codes[f.next%len(f.codes)]
	f.next++
	return c
}

// clock is a settable time source
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
