package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mossy-p/challenge-lobby/internal/models"
)

// MemoryRoomStore is a process-local RoomRepository. Update reads a copy,
// applies fn outside the lock and commits only if the version is unchanged.
type MemoryRoomStore struct {
	mu         sync.RWMutex
	rooms      map[string]*models.Room
	reserved   map[string]time.Time
	retention  time.Duration
	maxRetries int
	now        func() time.Time
}

type MemoryOption func(*MemoryRoomStore)

func WithMemoryRetention(d time.Duration) MemoryOption {
	return func(s *MemoryRoomStore) {
		s.retention = d
	}
}

func WithMemoryMaxRetries(n int) MemoryOption {
	return func(s *MemoryRoomStore) {
		s.maxRetries = n
	}
}

func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryRoomStore) {
		s.now = now
	}
}

func NewMemoryRoomStore(opts ...MemoryOption) *MemoryRoomStore {
	s := &MemoryRoomStore{
		rooms:      make(map[string]*models.Room),
		reserved:   make(map[string]time.Time),
		retention:  DefaultCodeRetention,
		maxRetries: DefaultMaxRetries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryRoomStore) Create(_ context.Context, room *models.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rooms[room.Code]; ok {
		return ErrCodeTaken
	}
	if until, ok := s.reserved[room.Code]; ok && s.now().Before(until) {
		return ErrCodeTaken
	}
	s.rooms[room.Code] = room.Clone()
	s.reserved[room.Code] = s.now().Add(s.retention)
	return nil
}

func (s *MemoryRoomStore) Get(_ context.Context, code string) (*models.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	room, ok := s.rooms[code]
	if !ok {
		return nil, ErrNotFound
	}
	return room.Clone(), nil
}

func (s *MemoryRoomStore) Update(ctx context.Context, code string, fn UpdateFunc) (*models.Room, error) {
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, storageErr(err)
		}
		room, err := s.Get(ctx, code)
		if err != nil {
			return nil, err
		}
		seen := room.Version
		if err := fn(room); err != nil {
			return nil, err
		}
		room.Version = seen + 1

		s.mu.Lock()
		current, ok := s.rooms[code]
		switch {
		case !ok:
			s.mu.Unlock()
			return nil, ErrNotFound
		case current.Version != seen:
			s.mu.Unlock()
			continue
		}
		s.rooms[code] = room.Clone()
		s.mu.Unlock()
		return room, nil
	}
	return nil, ErrContention
}

func (s *MemoryRoomStore) Delete(ctx context.Context, code string) error {
	_, err := s.DeleteIf(ctx, code, nil)
	return err
}

func (s *MemoryRoomStore) DeleteIf(_ context.Context, code string, pred func(room *models.Room) bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[code]
	if !ok {
		return false, ErrNotFound
	}
	if pred != nil && !pred(room.Clone()) {
		return false, nil
	}
	delete(s.rooms, code)
	return true, nil
}

func (s *MemoryRoomStore) ListWaiting(_ context.Context) ([]*models.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rooms := make([]*models.Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		if indexedWaiting(room) {
			rooms = append(rooms, room.Clone())
		}
	}
	sort.Slice(rooms, func(i, j int) bool {
		return rooms[i].CreatedAt.After(rooms[j].CreatedAt)
	})
	return rooms, nil
}

func (s *MemoryRoomStore) ListArmed(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	codes := make([]string, 0)
	for code, room := range s.rooms {
		if indexedArmed(room) {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)
	return codes, nil
}

// MemoryUserStore is a process-local UserRepository
type MemoryUserStore struct {
	mu    sync.RWMutex
	users map[string]models.User
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: make(map[string]models.User)}
}

func (s *MemoryUserStore) Create(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.Username]; ok {
		return ErrUserExists
	}
	if s.emailTaken(user.Email, "") {
		return ErrUserExists
	}
	s.users[user.Username] = user
	return nil
}

func (s *MemoryUserStore) GetByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[username]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *MemoryUserStore) Update(_ context.Context, username string, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[username]; !ok {
		return ErrNotFound
	}
	if user.Username != username {
		if _, ok := s.users[user.Username]; ok {
			return ErrUserExists
		}
	}
	if s.emailTaken(user.Email, username) {
		return ErrUserExists
	}
	delete(s.users, username)
	s.users[user.Username] = user
	return nil
}

func (s *MemoryUserStore) List(_ context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (s *MemoryUserStore) emailTaken(email, except string) bool {
	for name, u := range s.users {
		if name != except && u.Email == email {
			return true
		}
	}
	return false
}
