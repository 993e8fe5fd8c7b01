package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"

	"pointbox/customer-web/internal/backend"
	"pointbox/customer-web/internal/config"
	"pointbox/customer-web/internal/health"
	internalhttp "pointbox/customer-web/internal/http"
	"pointbox/customer-web/internal/i18n"
	"pointbox/customer-web/internal/store"
)

const (
	appName = "pointbox-web"
	Version = "0.1.0"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           appName,
		Short:         "PointBox customer web front end",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), config.Load())
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the web server (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), config.Load())
		},
	})
	cmd.AddCommand(localesCmd())
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s\n", appName, Version)
		},
	})
	return cmd
}

func localesCmd() *cobra.Command {
	var dir string
	locales := &cobra.Command{
		Use:   "locales",
		Short: "Inspect translation files",
	}
	check := &cobra.Command{
		Use:   "check",
		Short: "Report keys missing from a language",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if dir == "" {
				dir = cfg.LocalesDir
			}
			catalog, err := loadCatalog(dir, cfg.DefaultLanguage)
			if err != nil {
				return err
			}
			total := 0
			for _, lang := range i18n.Languages {
				missing := catalog.Missing(lang)
				total += len(missing)
				for _, key := range missing {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", lang, key)
				}
			}
			if total > 0 {
				return fmt.Errorf("%d translation keys missing", total)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "all languages complete")
			return nil
		},
	}
	check.Flags().StringVar(&dir, "dir", "", "Locale directory (defaults to LOCALES_DIR, then the embedded files)")
	locales.AddCommand(check)
	return locales
}

func loadCatalog(dir, defaultLang string) (*i18n.Catalog, error) {
	if dir == "" {
		return i18n.LoadEmbedded(defaultLang)
	}
	return i18n.LoadDir(dir, defaultLang)
}

func newLogger(cfg config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if cfg.DebugRequests {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

func serve(parent context.Context, cfg config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	var (
		redisClient *redis.Client
		states      store.Scoper
	)
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			cancel()
			return fmt.Errorf("redis ping failed: %w", err)
		}
		cancel()
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close error", "error", err)
			}
		}()
		states = store.NewRedis(redisClient, cfg.RedisKeyPrefix, cfg.SessionTTL)
	} else {
		logger.Warn("REDIS_ADDR not set, browser state is kept in memory")
		states = store.NewMemory()
	}

	catalog, err := loadCatalog(cfg.LocalesDir, cfg.DefaultLanguage)
	if err != nil {
		return fmt.Errorf("load locales: %w", err)
	}
	if cfg.LocalesDir != "" {
		if err := catalog.Watch(ctx, cfg.LocalesDir, logger); err != nil {
			return fmt.Errorf("watch locales: %w", err)
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	api := backend.New(backend.Options{
		BaseURL:     cfg.BackendURL,
		Timeout:     cfg.BackendTimeout,
		DeviceToken: cfg.DeviceToken,
		Logger:      logger,
		Metrics:     backend.NewMetrics(registry),
	})

	server, err := internalhttp.NewServer(cfg, api, states, catalog, logger)
	if err != nil {
		return fmt.Errorf("server init failed: %w", err)
	}
	server.WithMetricsHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errs := make(chan error, 2)
	go func() {
		logger.Info("customer web http listening", "addr", cfg.HTTPAddr, "backend", cfg.BackendURL)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- fmt.Errorf("http server error: %w", err)
		}
	}()

	var (
		grpcServer   *grpc.Server
		healthServer *grpchealth.Server
	)
	if cfg.GRPCAddr != "" {
		grpcServer = grpc.NewServer()
		healthServer = health.Register(grpcServer)
		if redisClient != nil {
			health.Watch(ctx, healthServer, func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			}, 30*time.Second, logger)
		}
		listener, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return fmt.Errorf("grpc listen error: %w", err)
		}
		go func() {
			logger.Info("customer web grpc health listening", "addr", cfg.GRPCAddr)
			if err := grpcServer.Serve(listener); err != nil {
				errs <- fmt.Errorf("grpc server error: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errs:
	}

	if healthServer != nil {
		healthServer.Shutdown()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", "error", err)
	}
	if grpcServer != nil {
		health.Stop(grpcServer, healthServer)
	}
	return runErr
}
