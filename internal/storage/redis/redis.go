package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/cornenkiV/web-ads/internal/storage"

	goredis "github.com/redis/go-redis/v9"
)

// DefaultKey - ключ refresh-токена, если в конфиге пусто.
const DefaultKey = "web-ads:refresh_token"

type Storage struct {
	rdb *goredis.Client
	key string
}

// New создаёт клиент Redis из URL (например, redis://:pass@host:6379/0).
func New(ctx context.Context, redisURL, key string) (*Storage, error) {
	const op = "storage.redis.New"

	opt, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rdb := goredis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return NewWithClient(rdb, key), nil
}

// NewWithClient оборачивает готовый клиент.
func NewWithClient(rdb *goredis.Client, key string) *Storage {
	if key == "" {
		key = DefaultKey
	}

	return &Storage{rdb: rdb, key: key}
}

// Close закрывает клиент Redis.
func (s *Storage) Close() error { return s.rdb.Close() }

func (s *Storage) Load(ctx context.Context) (string, error) {
	const op = "storage.redis.Load"

	v, err := s.rdb.Get(ctx, s.key).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return "", fmt.Errorf("%s: %w", op, err)
	}

	return v, nil
}

// Save хранит токен без TTL: срок жизни определяет сервер.
func (s *Storage) Save(ctx context.Context, token string) error {
	const op = "storage.redis.Save"

	if err := s.rdb.Set(ctx, s.key, token, 0).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Storage) Delete(ctx context.Context) error {
	const op = "storage.redis.Delete"

	if err := s.rdb.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

var _ storage.RefreshTokenStore = (*Storage)(nil)
