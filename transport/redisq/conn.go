package redisq

import (
	"context"
	"fmt"
	"time"

	"github.com/BaSui01/seriesflow/internal/tlsutil"
	"github.com/BaSui01/seriesflow/types"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Config holds the connection and queue settings.
type Config struct {
	Addr         string        `yaml:"addr" json:"addr"`
	Password     string        `yaml:"password" json:"password"`
	DB           int           `yaml:"db" json:"db"`
	PoolSize     int           `yaml:"pool_size" json:"pool_size"`
	MaxRetries   int           `yaml:"max_retries" json:"max_retries"`
	Key          string        `yaml:"key" json:"key"`
	BlockTimeout time.Duration `yaml:"block_timeout" json:"block_timeout"`
	TTL          time.Duration `yaml:"ttl" json:"ttl"`
	TLS          bool          `yaml:"tls" json:"tls"`
}

// DefaultConfig returns local defaults.
func DefaultConfig() Config {
	return Config{
		Addr:         "localhost:6379",
		PoolSize:     10,
		MaxRetries:   3,
		Key:          "seriesflow:stream",
		BlockTimeout: 5 * time.Second,
		TTL:          10 * time.Minute,
	}
}

// Connect opens a client and verifies it with PING.
func Connect(ctx context.Context, cfg Config, logger *zap.Logger) (*redis.Client, error) {
	opts := &redis.Options{
		Addr:       cfg.Addr,
		Password:   cfg.Password,
		DB:         cfg.DB,
		PoolSize:   cfg.PoolSize,
		MaxRetries: cfg.MaxRetries,
	}
	if cfg.TLS {
		opts.TLSConfig = tlsutil.DefaultTLSConfig()
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, types.NewError(types.ErrTransport, fmt.Sprintf("connect to redis at %s", cfg.Addr)).
			WithCause(err).WithRetryable(true)
	}

	if logger != nil {
		logger.Info("redis connected", zap.String("addr", cfg.Addr), zap.Int("pool_size", cfg.PoolSize))
	}
	return client, nil
}

func metaKey(key string) string { return key + ":meta" }
