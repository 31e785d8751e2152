package redis

import (
	"context"
	"time"

	"github.com/datatrails/go-datatrails-bankcache/readiness"
	"github.com/go-redis/redis/v8"
)

const (
	pingTimeout = 5 * time.Second
)

// NewRedisClient connects to the node or cluster described by cfg and pings
// it until it answers or the configured attempts are used up. The client is
// long lived and has its own internal pool.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (UniversalClient, error) {
	log := cfg.Log()

	var client redis.UniversalClient
	if cfg.IsCluster() {
		copts, err := cfg.GetClusterOptions()
		if err != nil {
			return nil, ConfigError(err, cfg.URL())
		}
		client = redis.NewClusterClient(copts)
	} else {
		opts, err := cfg.GetOptions()
		if err != nil {
			return nil, ConfigError(err, cfg.URL())
		}
		client = redis.NewClient(opts)
	}

	log.Infof("connecting to redis: %s", cfg.URL())
	err := readiness.Repeat(ctx, cfg.ConnectAttempts(), cfg.ConnectInterval(), func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		status := client.Ping(ctx)
		if status.Err() != nil {
			log.Infof("failed ping: %v (%v)", status.Err(), status.FullName())
		}
		return status.Err()
	})
	if err != nil {
		_ = client.Close()
		return nil, ConnectError(err, cfg.URL())
	}
	return client, nil
}
