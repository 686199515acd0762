package store

import (
	"context"
	"encoding/json"
	"errors"
	"sort"

	"github.com/mossy-p/challenge-lobby/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	userKeyPrefix  = "user:"
	emailKeyPrefix = "user-email:"
	usersKey       = "users"
)

// RedisUserStore keeps users as JSON under user:<username> with an email
// index under user-email:<email>
type RedisUserStore struct {
	client     *redis.Client
	maxRetries int
}

func NewRedisUserStore(client *redis.Client) *RedisUserStore {
	return &RedisUserStore{client: client, maxRetries: DefaultMaxRetries}
}

func userKey(username string) string { return userKeyPrefix + username }

func emailKey(email string) string { return emailKeyPrefix + email }

func (s *RedisUserStore) Create(ctx context.Context, user models.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return storageErr(err)
	}
	uk, ek := userKey(user.Username), emailKey(user.Email)

	return watchRetry(ctx, s.client, s.maxRetries, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, uk, ek).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return abortErr{err: ErrUserExists}
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, uk, data, 0)
			pipe.Set(ctx, ek, user.Username, 0)
			pipe.SAdd(ctx, usersKey, user.Username)
			return nil
		})
		return err
	}, uk, ek)
}

func (s *RedisUserStore) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	data, err := s.client.Get(ctx, userKey(username)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr(err)
	}
	return decodeUser(data)
}

func (s *RedisUserStore) Update(ctx context.Context, username string, user models.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return storageErr(err)
	}
	oldKey, newKey, newEmail := userKey(username), userKey(user.Username), emailKey(user.Email)

	return watchRetry(ctx, s.client, s.maxRetries, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, oldKey).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		current, err := decodeUser(raw)
		if err != nil {
			return err
		}

		renamed := user.Username != username
		if renamed {
			n, err := tx.Exists(ctx, newKey).Result()
			if err != nil {
				return err
			}
			if n > 0 {
				return abortErr{err: ErrUserExists}
			}
		}
		emailChanged := user.Email != current.Email
		if emailChanged {
			owner, err := tx.Get(ctx, newEmail).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
			if owner != "" && owner != username {
				return abortErr{err: ErrUserExists}
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if renamed {
				pipe.Del(ctx, oldKey)
				pipe.SRem(ctx, usersKey, username)
				pipe.SAdd(ctx, usersKey, user.Username)
			}
			if emailChanged {
				pipe.Del(ctx, emailKey(current.Email))
			}
			pipe.Set(ctx, newEmail, user.Username, 0)
			pipe.Set(ctx, newKey, data, 0)
			return nil
		})
		return err
	}, oldKey, newKey, newEmail)
}

// List returns every user ordered by username
func (s *RedisUserStore) List(ctx context.Context) ([]models.User, error) {
	names, err := s.client.SMembers(ctx, usersKey).Result()
	if err != nil {
		return nil, storageErr(err)
	}
	users := make([]models.User, 0, len(names))
	if len(names) == 0 {
		return users, nil
	}
	sort.Strings(names)

	keys := make([]string, len(names))
	for i, name := range names {
		keys[i] = userKey(name)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, storageErr(err)
	}
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		u, err := decodeUser([]byte(raw))
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, nil
}

func decodeUser(data []byte) (*models.User, error) {
	var u models.User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, storageErr(err)
	}
	return &u, nil
}
