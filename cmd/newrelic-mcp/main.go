package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/saturnines/newrelic-mcp/pkg/config"
	"github.com/saturnines/newrelic-mcp/pkg/dispatch"
	"github.com/saturnines/newrelic-mcp/pkg/handlers"
	"github.com/saturnines/newrelic-mcp/pkg/metrics"
	"github.com/saturnines/newrelic-mcp/pkg/registry"
	"github.com/saturnines/newrelic-mcp/pkg/retry"
	"github.com/saturnines/newrelic-mcp/pkg/server"
	"github.com/saturnines/newrelic-mcp/pkg/transport/graphql"
)

var version = "dev"

type flags struct {
	configPath    string
	envFile       string
	apiKey        string
	accountID     string
	region        string
	timeout       int
	rateLimit     int
	retryAttempts int
	logLevel      string
	metricsAddr   string
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	f := &flags{}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve New Relic operations over MCP stdio",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd, f)
		},
	}

	rootCmd := &cobra.Command{
		Use:           "newrelic-mcp",
		Short:         "MCP server for New Relic NerdGraph",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          serveCmd.RunE,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&f.configPath, "config", "", "path to a JSON or YAML config file")
	pf.StringVar(&f.envFile, "env-file", ".env", "dotenv file merged under the process environment")
	pf.StringVar(&f.apiKey, "api-key", "", "New Relic user API key")
	pf.StringVar(&f.accountID, "account-id", "", "default New Relic account id")
	pf.StringVar(&f.region, "region", "", "US or EU")
	pf.IntVar(&f.timeout, "timeout", 0, "request timeout in seconds")
	pf.IntVar(&f.rateLimit, "rate-limit", 0, "NerdGraph requests per minute")
	pf.IntVar(&f.retryAttempts, "retry-attempts", 0, "attempts for retryable transport failures")
	pf.StringVar(&f.logLevel, "log-level", "info", "debug, info, warn or error")
	pf.StringVar(&f.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")

	rootCmd.AddCommand(serveCmd, newOperationsCmd(), newVersionCmd())
	return rootCmd
}

func newOperationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "operations",
		Short: "Print the operation catalog as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(registry.Default().List())
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

// overrides collects only the flags the user actually set
func overrides(cmd *cobra.Command, f *flags) config.Settings {
	var s config.Settings
	changed := cmd.Flags().Changed
	if changed("api-key") {
		s.APIKey = config.String(f.apiKey)
	}
	if changed("account-id") {
		s.SetAccountID(f.accountID)
	}
	if changed("region") {
		s.Region = config.String(f.region)
	}
	if changed("timeout") {
		s.Timeout = config.Int(f.timeout)
	}
	if changed("rate-limit") {
		s.RateLimit = config.Int(f.rateLimit)
	}
	if changed("retry-attempts") {
		s.RetryAttempts = config.Int(f.retryAttempts)
	}
	return s
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}

func serve(cmd *cobra.Command, f *flags) error {
	logger, err := newLogger(f.logLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	env, err := config.LoadEnv(f.envFile)
	if err != nil {
		logger.Error("load env file", zap.String("path", f.envFile), zap.Error(err))
		return err
	}
	creds, err := config.Resolve(env, f.configPath, overrides(cmd, f))
	if err != nil {
		logger.Error("invalid configuration", zap.Error(err))
		return err
	}
	logger.Info("configuration resolved", zap.Object("credentials", creds))

	promRegistry := prometheus.NewRegistry()
	collectors, err := metrics.New(promRegistry)
	if err != nil {
		return err
	}

	client := graphql.NewClientFromCredentials(creds,
		graphql.WithLogger(logger),
		graphql.WithObserver(collectors),
		graphql.WithUserAgent("newrelic-mcp/"+version),
	)
	transport := retry.New(client, retry.DefaultConfig(creds.RetryAttempts()), retry.WithLogger(logger))

	dispatcher, err := dispatch.New(registry.Default(), handlers.All(transport, logger),
		dispatch.WithLogger(logger),
		dispatch.WithObserver(collectors),
		dispatch.WithDefaultAccountID(creds.AccountID()),
	)
	if err != nil {
		return err
	}

	srv, err := server.New(dispatcher, version, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if f.metricsAddr != "" {
		metricsServer := &http.Server{
			Addr:              f.metricsAddr,
			Handler:           metrics.Handler(promRegistry),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("serving metrics", zap.String("addr", f.metricsAddr))
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsServer.Shutdown(shutdownCtx)
		}()
	}

	err = srv.Serve(ctx, os.Stdin, os.Stdout)
	if err != nil && ctx.Err() == nil {
		logger.Error("MCP server stopped", zap.Error(err))
		return err
	}
	logger.Info("shutting down")
	return nil
}
