package scans

import (
	"context"
	"fmt"
	"github.com/redis/go-redis/v9"
	"time"
)

// Storage remembers recent scans so repeated hits from one client within a
// window are counted once.
type Storage struct {
	redis *redis.Client
}

func NewStorage(client *redis.Client) *Storage {
	return &Storage{
		redis: client,
	}
}

// Seen marks the scan of qrCodeID by client and reports whether the same
// client already scanned it within window.
func (s *Storage) Seen(ctx context.Context, qrCodeID, client string, window time.Duration) (bool, error) {
	fresh, err := s.redis.SetNX(ctx, fmt.Sprintf("scan:%s:%s", qrCodeID, client), 1, window).Result()
	if err != nil {
		return false, err
	}
	return !fresh, nil
}
