package logos

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"github.com/redis/go-redis/v9"
	"time"
)

// Storage caches raw logo bytes by source URL.
type Storage struct {
	redis *redis.Client
}

func NewStorage(client *redis.Client) *Storage {
	return &Storage{
		redis: client,
	}
}

func key(url string) string {
	sum := sha256.Sum256([]byte(url))
	return "logo:" + hex.EncodeToString(sum[:])
}

// Get returns the cached logo, or nil when the URL is not cached.
func (s *Storage) Get(ctx context.Context, url string) ([]byte, error) {
	data, err := s.redis.Get(ctx, key(url)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

func (s *Storage) Set(ctx context.Context, url string, data []byte, expiration time.Duration) error {
	return s.redis.Set(ctx, key(url), data, expiration).Err()
}

func (s *Storage) Clear(ctx context.Context, url string) error {
	return s.redis.Del(ctx, key(url)).Err()
}
