package redis

import (
	"context"
	"fmt"
	"github.com/Badsnus/qr-studio/internal/adapters/database/redis/logos"
	"github.com/Badsnus/qr-studio/internal/adapters/database/redis/scans"
	"github.com/redis/go-redis/v9"
)

type Client struct {
	Logos *logos.Storage
	Scans *scans.Storage
}

type Options struct {
	Host     string
	Port     string
	Password string
}

func New(opts Options) (*Client, error) {
	logoStorage := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", opts.Host, opts.Port),
		Password: opts.Password,
		DB:       0,
	})
	if err := logoStorage.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping logo storage: %w", err)
	}

	scanStorage := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", opts.Host, opts.Port),
		Password: opts.Password,
		DB:       1,
	})
	if err := scanStorage.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping scan storage: %w", err)
	}

	return &Client{
		Logos: logos.NewStorage(logoStorage),
		Scans: scans.NewStorage(scanStorage),
	}, nil
}
