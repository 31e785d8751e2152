package redis

import (
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"time"

	env "github.com/datatrails/go-datatrails-bankcache/environment"
	"github.com/go-redis/redis/v8"
)

const (
	RedisNodeAddressSuffix     = "REDIS_STORE_ADDRESS"
	RedisDBSuffix              = "REDIS_STORE_DB"
	RedisUsernameSuffix        = "REDIS_STORE_USERNAME"
	RedisPasswordFileSuffix    = "REDIS_STORE_PASSWORD_FILENAME" //nolint:gosec
	RedisUnixSocketSuffix      = "REDIS_UNIX_SOCKET_PATH"
	RedisClusterModeSuffix     = "REDIS_CLUSTER_MODE"
	RedisClusterNodesSuffix    = "REDIS_CLUSTER_NODES"
	RedisTLSSuffix             = "REDIS_TLS"
	RedisConnectAttemptsSuffix = "REDIS_CONNECT_ATTEMPTS"
	RedisConnectIntervalSuffix = "REDIS_CONNECT_INTERVAL"

	defaultAddress         = "localhost:6379"
	defaultConnectAttempts = 3
	defaultConnectInterval = 2 * time.Second

	// The go-redis default is 10 * GOMAXPROCS(0) which is unreliable in
	// containers. Each cluster node gets its own pool.
	nodePoolSize = 10
)

var (
	ErrNoClusterNodes = errors.New("cluster mode requires at least one node")
	ErrNotCluster     = errors.New("unexpected config type when requesting ClusterOptions")
	ErrIsCluster      = errors.New("unexpected config type when requesting Options")
)

type RedisConfig interface {
	GetClusterOptions() (*redis.ClusterOptions, error)
	GetOptions() (*redis.Options, error)
	IsCluster() bool
	URL() string
	ConnectAttempts() int
	ConnectInterval() time.Duration
	Log() Logger
}

type clusterConfig struct {
	log             Logger
	cluster         bool
	useTLS          bool
	connectAttempts int
	connectInterval time.Duration
	clusterOptions  redis.ClusterOptions
	options         redis.Options
}

type ConfigOption func(*clusterConfig)

// WithAddress sets the host:port of a single node.
func WithAddress(addr string) ConfigOption {
	return func(cfg *clusterConfig) {
		cfg.options.Network = "tcp"
		cfg.options.Addr = addr
	}
}

// WithUnixSocket connects to a single node over a unix domain socket.
func WithUnixSocket(path string) ConfigOption {
	return func(cfg *clusterConfig) {
		cfg.options.Network = "unix"
		cfg.options.Addr = path
	}
}

func WithDB(db int) ConfigOption {
	return func(cfg *clusterConfig) {
		cfg.options.DB = db
	}
}

func WithCredentials(username, password string) ConfigOption {
	return func(cfg *clusterConfig) {
		cfg.options.Username = username
		cfg.options.Password = password
		cfg.clusterOptions.Username = username
		cfg.clusterOptions.Password = password
	}
}

// WithClusterNodes switches to cluster mode using addrs as startup nodes.
func WithClusterNodes(addrs ...string) ConfigOption {
	return func(cfg *clusterConfig) {
		cfg.cluster = true
		cfg.clusterOptions.Addrs = append([]string{}, addrs...)
		cfg.clusterOptions.MaxRedirects = len(addrs)
	}
}

func WithTLS() ConfigOption {
	return func(cfg *clusterConfig) {
		cfg.useTLS = true
	}
}

func WithConnectRetry(attempts int, interval time.Duration) ConfigOption {
	return func(cfg *clusterConfig) {
		cfg.connectAttempts = attempts
		cfg.connectInterval = interval
	}
}

// NewConfig returns a single node configuration for localhost:6379 adjusted
// by opts.
func NewConfig(log Logger, opts ...ConfigOption) (RedisConfig, error) {
	cfg := &clusterConfig{
		log:             log,
		connectAttempts: defaultConnectAttempts,
		connectInterval: defaultConnectInterval,
		options: redis.Options{
			Network: "tcp",
			Addr:    defaultAddress,
		},
		clusterOptions: redis.ClusterOptions{
			PoolSize: nodePoolSize,
		},
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.cluster && len(cfg.clusterOptions.Addrs) == 0 {
		return nil, ConfigError(ErrNoClusterNodes, RedisClusterNodesSuffix)
	}
	if cfg.useTLS {
		cfg.options.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		cfg.clusterOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return cfg, nil
}

// FromEnv assumes conventional service env vars, see the package
// documentation.
func FromEnv(log Logger) (RedisConfig, error) {
	password, err := env.ReadIndirect(RedisPasswordFileSuffix, "")
	if err != nil {
		return nil, ConfigError(err, RedisPasswordFileSuffix)
	}

	opts := []ConfigOption{
		WithCredentials(env.GetWithDefault(RedisUsernameSuffix, ""), password),
		WithConnectRetry(
			env.GetIntWithDefault(RedisConnectAttemptsSuffix, defaultConnectAttempts),
			env.GetDurationWithDefault(RedisConnectIntervalSuffix, defaultConnectInterval),
		),
	}

	if env.GetTruthy(RedisClusterModeSuffix) {
		nodes := env.GetListWithDefault(RedisClusterNodesSuffix, nil)
		log.InfoR("redis cluster nodes", nodes)
		opts = append(opts, WithClusterNodes(nodes...))
	} else if socket := env.GetWithDefault(RedisUnixSocketSuffix, ""); socket != "" {
		opts = append(opts, WithUnixSocket(socket), WithDB(env.GetIntWithDefault(RedisDBSuffix, 0)))
	} else {
		opts = append(opts,
			WithAddress(env.GetWithDefault(RedisNodeAddressSuffix, defaultAddress)),
			WithDB(env.GetIntWithDefault(RedisDBSuffix, 0)),
		)
	}
	if env.GetTruthy(RedisTLSSuffix) {
		opts = append(opts, WithTLS())
	}
	return NewConfig(log, opts...)
}

func (cfg *clusterConfig) Log() Logger {
	return cfg.log
}

func (cfg *clusterConfig) IsCluster() bool {
	return cfg.cluster
}

func (cfg *clusterConfig) ConnectAttempts() int {
	return cfg.connectAttempts
}

func (cfg *clusterConfig) ConnectInterval() time.Duration {
	return cfg.connectInterval
}

func (cfg *clusterConfig) GetClusterOptions() (*redis.ClusterOptions, error) {
	if cfg.IsCluster() {
		return &cfg.clusterOptions, nil
	}
	return nil, ErrNotCluster
}

func (cfg *clusterConfig) GetOptions() (*redis.Options, error) {
	if !cfg.IsCluster() {
		return &cfg.options, nil
	}
	return nil, ErrIsCluster
}

// URL is for logging only, it never includes credentials.
func (cfg *clusterConfig) URL() string {
	if cfg.IsCluster() {
		return "redis-cluster://" + strings.Join(cfg.clusterOptions.Addrs, ",")
	}
	if cfg.options.Network == "unix" {
		return "unix://" + cfg.options.Addr
	}
	scheme := "redis"
	if cfg.useTLS {
		scheme = "rediss"
	}
	return fmt.Sprintf("%s://%s/%d", scheme, cfg.options.Addr, cfg.options.DB)
}
