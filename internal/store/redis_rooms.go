package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/mossy-p/challenge-lobby/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	roomKeyPrefix = "room:"
	codeKeyPrefix = "code:"
	waitingKey    = "rooms:waiting"
	armedKey      = "rooms:armed"
)

// RedisRoomStore keeps each room as a JSON document under room:<code>.
// rooms:waiting (ZSET by creation time) and rooms:armed (SET) are written in
// the same MULTI as the document so they never drift from it.
type RedisRoomStore struct {
	client     *redis.Client
	retention  time.Duration
	maxRetries int
	timeout    time.Duration
}

type RedisOption func(*RedisRoomStore)

// WithCodeRetention sets how long a code stays reserved after creation
func WithCodeRetention(d time.Duration) RedisOption {
	return func(s *RedisRoomStore) {
		s.retention = d
	}
}

// WithMaxRetries bounds optimistic retries per write
func WithMaxRetries(n int) RedisOption {
	return func(s *RedisRoomStore) {
		s.maxRetries = n
	}
}

// WithTimeout bounds every repository call
func WithTimeout(d time.Duration) RedisOption {
	return func(s *RedisRoomStore) {
		s.timeout = d
	}
}

func NewRedisRoomStore(client *redis.Client, opts ...RedisOption) *RedisRoomStore {
	s := &RedisRoomStore{
		client:     client,
		retention:  DefaultCodeRetention,
		maxRetries: DefaultMaxRetries,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.maxRetries <= 0 {
		s.maxRetries = DefaultMaxRetries
	}
	return s
}

func roomKey(code string) string { return roomKeyPrefix + code }

func codeKey(code string) string { return codeKeyPrefix + code }

func (s *RedisRoomStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *RedisRoomStore) Create(ctx context.Context, room *models.Room) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	data, err := json.Marshal(room)
	if err != nil {
		return storageErr(err)
	}

	rk, ck := roomKey(room.Code), codeKey(room.Code)
	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, rk, ck).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrCodeTaken
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, ck, room.ID, s.retention)
			pipe.Set(ctx, rk, data, 0)
			writeIndexes(ctx, pipe, room)
			return nil
		})
		return err
	}, rk, ck)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrCodeTaken), errors.Is(err, redis.TxFailedErr):
		return ErrCodeTaken
	default:
		return storageErr(err)
	}
}

func (s *RedisRoomStore) Get(ctx context.Context, code string) (*models.Room, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	data, err := s.client.Get(ctx, roomKey(code)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr(err)
	}
	return decodeRoom(data)
}

func (s *RedisRoomStore) Update(ctx context.Context, code string, fn UpdateFunc) (*models.Room, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	key := roomKey(code)
	var updated *models.Room
	err := s.watch(ctx, key, func(tx *redis.Tx) error {
		room, err := readRoom(ctx, tx, key)
		if err != nil {
			return err
		}
		if err := fn(room); err != nil {
			return abortErr{err: err}
		}
		room.Version++
		data, err := json.Marshal(room)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			writeIndexes(ctx, pipe, room)
			return nil
		})
		if err != nil {
			return err
		}
		updated = room
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *RedisRoomStore) Delete(ctx context.Context, code string) error {
	_, err := s.deleteIf(ctx, code, nil)
	return err
}

func (s *RedisRoomStore) DeleteIf(ctx context.Context, code string, pred func(room *models.Room) bool) (bool, error) {
	return s.deleteIf(ctx, code, pred)
}

func (s *RedisRoomStore) deleteIf(ctx context.Context, code string, pred func(room *models.Room) bool) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	key := roomKey(code)
	deleted := false
	err := s.watch(ctx, key, func(tx *redis.Tx) error {
		room, err := readRoom(ctx, tx, key)
		if err != nil {
			return err
		}
		if pred != nil && !pred(room) {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.ZRem(ctx, waitingKey, code)
			pipe.SRem(ctx, armedKey, code)
			return nil
		})
		if err != nil {
			return err
		}
		deleted = true
		return nil
	})
	return deleted, err
}

func (s *RedisRoomStore) ListWaiting(ctx context.Context) ([]*models.Room, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	codes, err := s.client.ZRevRange(ctx, waitingKey, 0, -1).Result()
	if err != nil {
		return nil, storageErr(err)
	}
	rooms := make([]*models.Room, 0, len(codes))
	if len(codes) == 0 {
		return rooms, nil
	}

	keys := make([]string, len(codes))
	for i, code := range codes {
		keys[i] = roomKey(code)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, storageErr(err)
	}
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue // deleted between ZREVRANGE and MGET
		}
		room, err := decodeRoom([]byte(raw))
		if err != nil {
			return nil, err
		}
		if !room.IsStarted {
			rooms = append(rooms, room)
		}
	}
	return rooms, nil
}

func (s *RedisRoomStore) ListArmed(ctx context.Context) ([]string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	codes, err := s.client.SMembers(ctx, armedKey).Result()
	if err != nil {
		return nil, storageErr(err)
	}
	return codes, nil
}

func (s *RedisRoomStore) watch(ctx context.Context, key string, fn func(tx *redis.Tx) error) error {
	return watchRetry(ctx, s.client, s.maxRetries, fn, key)
}

// watchRetry runs fn under WATCH keys and retries when another client wrote
// one of them first
func watchRetry(ctx context.Context, client *redis.Client, maxRetries int, fn func(tx *redis.Tx) error, keys ...string) error {
	for attempt := 0; attempt < maxRetries; attempt++ {
		err := client.Watch(ctx, fn, keys...)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		var aborted abortErr
		if errors.As(err, &aborted) {
			return aborted.err
		}
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return storageErr(err)
	}
	return ErrContention
}

func readRoom(ctx context.Context, tx *redis.Tx, key string) (*models.Room, error) {
	data, err := tx.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeRoom(data)
}

func decodeRoom(data []byte) (*models.Room, error) {
	var room models.Room
	if err := json.Unmarshal(data, &room); err != nil {
		return nil, storageErr(err)
	}
	return &room, nil
}

func writeIndexes(ctx context.Context, pipe redis.Pipeliner, room *models.Room) {
	if indexedWaiting(room) {
		pipe.ZAdd(ctx, waitingKey, redis.Z{
			Score:  float64(room.CreatedAt.UnixMilli()),
			Member: room.Code,
		})
	} else {
		pipe.ZRem(ctx, waitingKey, room.Code)
	}
	if indexedArmed(room) {
		pipe.SAdd(ctx, armedKey, room.Code)
	} else {
		pipe.SRem(ctx, armedKey, room.Code)
	}
}
