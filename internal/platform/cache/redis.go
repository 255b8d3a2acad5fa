package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Options selects the Redis endpoint. Addr is required.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// New connects to Redis at addr with default options.
func New(ctx context.Context, addr string) (*redis.Client, error) {
	return NewWithOptions(ctx, Options{Addr: addr})
}

// NewWithOptions connects and pings. The client is closed when the ping fails.
func NewWithOptions(ctx context.Context, opts Options) (*redis.Client, error) {
	if opts.Addr == "" {
		return nil, fmt.Errorf("platform/cache: empty address")
	}
	client := redis.NewClient(&redis.Options{
		Addr:       opts.Addr,
		Password:   opts.Password,
		DB:         opts.DB,
		ClientName: "terracore",
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("platform/cache: ping %s: %w", opts.Addr, err)
	}

	return client, nil
}
