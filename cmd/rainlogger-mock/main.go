package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/time/rate"

	"github.com/kroma-labs/rainlogger-go/httpserver"
	"github.com/kroma-labs/rainlogger-go/internal/cli"
	"github.com/kroma-labs/rainlogger-go/internal/config"
	"github.com/kroma-labs/rainlogger-go/internal/mockbackend"
)

var version = "dev" // set with -ldflags at build time

func main() {
	root := &cobra.Command{
		Use:   "rainlogger-mock",
		Short: "Serve a local rainlogger API",
		Long: `rainlogger-mock serves the rainlogger auth and rainlog endpoints from
memory, seeded with an admin account and a month of sample logs.

Configuration comes from MOCK_* environment variables.`,
		Version:      version,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := root.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func serve(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	level, err := cfg.Logging.ZerologLevel()
	if err != nil {
		return err
	}
	logger := cli.NewLogger(os.Stderr, level).With().Str("service", "rainlogger-mock").Logger()

	tp := sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.AlwaysSample()))
	otel.SetTracerProvider(tp)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("tracer provider shutdown failed")
		}
	}()

	backendCfg := mockbackend.DefaultConfig()
	backendCfg.JWTSecret = cfg.Mock.JWTSecret
	backendCfg.AdminEmail = cfg.Mock.AdminEmail
	backendCfg.AdminPassword = cfg.Mock.AdminPassword
	backendCfg.LoginRateLimit = rate.Limit(cfg.Mock.LoginRateLimit)
	backendCfg.LoginBurst = cfg.Mock.LoginBurst
	backendCfg.Logger = logger
	backendCfg.Version = version

	if cfg.Mock.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Mock.RedisAddr})
		defer rdb.Close()
		backendCfg.Redis = rdb
		logger.Info().Str("addr", cfg.Mock.RedisAddr).Msg("sharing login limits through redis")
	}

	backend, err := mockbackend.New(backendCfg)
	if err != nil {
		return err
	}

	srv := httpserver.New(
		httpserver.WithAddr(cfg.Mock.Addr),
		httpserver.WithServiceName("rainlogger-mock"),
		httpserver.WithLogger(logger),
		httpserver.WithTracing(httpserver.TracingConfig{}),
		httpserver.WithMetrics(httpserver.MetricsConfig{}),
		httpserver.WithMiddleware(httpserver.DefaultMiddleware(logger, "/ping", "/livez", "/readyz", "/metrics")),
		httpserver.WithHandler(backend.Handler()),
	)

	logger.Info().
		Str("addr", cfg.Mock.Addr).
		Str("admin", cfg.Mock.AdminEmail).
		Msg("rainlogger mock listening")
	return srv.ListenAndServe(ctx)
}
