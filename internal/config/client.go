package config

import (
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	client "github.com/MrEthical07/goAuthClient"
)

// NewBuilder returns a Builder carrying the client configuration, logger,
// and the selected token backend. The returned close func releases the Redis
// connection, if one was opened, and must be called after the Client is
// closed.
func (c *Config) NewBuilder(logger *slog.Logger) (*client.Builder, func() error, error) {
	b := client.New().WithConfig(c.ClientConfig()).WithLogger(logger)
	closer := func() error { return nil }

	if c.Tokens.Backend != BackendRedis {
		return b, closer, nil
	}

	opts, err := redis.ParseURL(c.Tokens.RedisURL)
	if err != nil {
		return nil, closer, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	return b.WithRedis(rdb), rdb.Close, nil
}
