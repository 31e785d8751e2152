// Command bankcache reads and writes a redis backed bank cache, and can
// serve it over http.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/datatrails/go-datatrails-bankcache/bankcache"
	"github.com/datatrails/go-datatrails-bankcache/codec"
	"github.com/datatrails/go-datatrails-bankcache/environment"
	"github.com/datatrails/go-datatrails-bankcache/logger"
	"github.com/datatrails/go-datatrails-bankcache/redis"
)

const (
	serviceName = "bankcache"

	SerializerEnv = "BANKCACHE_SERIALIZER"
)

var (
	// Version is set via ldflags during build
	Version = "dev"
)

func main() {
	logger.New(environment.GetLogLevel(logger.InfoLevel))
	defer logger.OnExit()

	err := rootCmd.ExecuteContext(context.Background())
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	logger.OnExit()
	os.Exit(exitCode(err))
}

var rootCmd = &cobra.Command{
	Use:   "bankcache",
	Short: "Hierarchical bank/key cache on redis",
	Long: `bankcache stores values under keys in a tree of banks, such as
minions/alpha, kept in redis.

The redis connection is configured by the REDIS_* environment variables.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().String("serializer", environment.GetWithDefault(SerializerEnv, codec.CBORName),
		"value serializer, cbor or json")
	rootCmd.PersistentFlags().Duration("timeout", 10*time.Second, "timeout for each command")
}

// exitCode is 2 when the requested key or bank does not exist and 1 for any
// other failure.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var notFound errNotFound
	if errors.As(err, &notFound) {
		return 2
	}
	return 1
}

// openCache connects to redis and returns a cache using the configured
// serializer. The caller must Close it.
func openCache(ctx context.Context, cmd *cobra.Command, log logger.Logger, opts ...bankcache.CacheOption) (*bankcache.Cache, error) {
	name, _ := cmd.Flags().GetString("serializer")
	serializer, err := codec.New(name)
	if err != nil {
		return nil, err
	}

	cfg, err := redis.FromEnv(log)
	if err != nil {
		return nil, err
	}
	client, err := redis.NewRedisClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	opts = append([]bankcache.CacheOption{
		bankcache.WithLayout(bankcache.LayoutFromEnv()),
		bankcache.WithSerializer(serializer),
	}, opts...)
	cache, err := bankcache.New(log, client, opts...)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return cache, nil
}

// commandContext bounds a one shot command by the --timeout flag.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx := cmd.Context()
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
