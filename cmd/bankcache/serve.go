package main

import (
	"github.com/spf13/cobra"

	"github.com/datatrails/go-datatrails-bankcache/bankcache"
	"github.com/datatrails/go-datatrails-bankcache/environment"
	"github.com/datatrails/go-datatrails-bankcache/httpapi"
	"github.com/datatrails/go-datatrails-bankcache/httpserver"
	"github.com/datatrails/go-datatrails-bankcache/logger"
	"github.com/datatrails/go-datatrails-bankcache/metrics"
	"github.com/datatrails/go-datatrails-bankcache/startup"
	"github.com/datatrails/go-datatrails-bankcache/tracing"
)

const (
	PortEnv     = "PORT"
	defaultPort = "8080"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the cache over http until interrupted",
	Long: `Serve the bank cache json api on PORT (default 8080).

If USE_METRICS is set prometheus metrics are served on METRICS_PORT
(default 9090). Spans are reported to ZIPKIN_ENDPOINT if it is set.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("port", environment.GetWithDefault(PortEnv, defaultPort), "api port")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	log := logger.Sugar.WithServiceName(serviceName)
	port, _ := cmd.Flags().GetString("port")

	closer, err := tracing.NewFromEnv(log, serviceName, "")
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}

	m := metrics.NewFromEnvironment(log, serviceName)

	cache, err := openCache(ctx, cmd, log, bankcache.WithObserver(metrics.NewCacheObservers(m)))
	if err != nil {
		return err
	}
	defer cache.Close()

	opts := []startup.ListenersOption{
		startup.WithListener(httpserver.New(log, "api", port, httpapi.NewRouter(log, cache, m))),
	}
	if m != nil {
		opts = append(opts, startup.WithListener(httpserver.New(log, "metrics", m.Port(), m.NewPromHandler())))
	}

	listeners := startup.NewListeners(log, serviceName, opts...)
	log.Infof("%s api listening on port %s", serviceName, port)
	return listeners.Listen(ctx)
}
