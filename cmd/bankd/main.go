package main

import (
	"bank_manager/internal/api"
	"bank_manager/internal/config"
	"bank_manager/internal/currency"
	"bank_manager/internal/processor"
	"bank_manager/internal/repository/memory"
	"bank_manager/internal/service"
	"bank_manager/internal/session"
	"bank_manager/pkg/metrics"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

const (
	appName = "bankd"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   appName,
		Short: "In-memory bank account manager",
		Long: `Serves dollar and tenge accounts over HTTP.

Clients register, log in and move money between accounts; transfers between
currencies are converted at the configured USD/KZT rate. Account lifecycle
announcements are printed to stdout.`,
		SilenceUsage: true,
		RunE:         runServer,
	}

	rootCmd.Flags().StringP("config", "c", "", "Path to configuration file (YAML)")
	rootCmd.Flags().StringP("log-level", "l", "", "Log level (debug, info, warn, error)")
	rootCmd.Flags().String("addr", "", "HTTP listen address")

	return rootCmd
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to get config flag: %w", err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		if _, err := config.ParseLevel(level); err != nil {
			return nil, err
		}
		cfg.Logging.Level = level
	}
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Address = addr
	}

	return cfg, nil
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Logging.Level)
	logger.Info("Starting application", slog.String("name", appName))

	app, err := newApplication(cfg, os.Stdout, logger)
	if err != nil {
		return err
	}

	metricsServer := app.metrics.StartMetricsServer(cfg.Server.MetricsAddress)
	httpServer := startHTTPServer(cfg.Server.Address, app.handler, logger)
	waitForShutdown(logger, httpServer, metricsServer)
	logger.Info("Application shutdown complete")
	return nil
}

type application struct {
	directory *service.Directory
	session   *session.Session
	metrics   *metrics.MetricsCollector
	handler   http.Handler
}

// newApplication wires the core around a fresh in-memory store. Lifecycle
// announcements go to console.
func newApplication(cfg *config.Config, console io.Writer, logger *slog.Logger) (*application, error) {
	converter, err := currency.NewConverter(cfg.Exchange.UsdToKzt)
	if err != nil {
		return nil, err
	}

	metricsCollector := metrics.NewMetricsCollector(logger)
	accountRepo := memory.NewAccountRepository()
	notifier := service.NewNotifier(logger)
	directory := service.NewDirectory(accountRepo, notifier, logger)
	sess := session.New(directory, logger)
	adminGate := session.NewAdminGate(cfg.Admin, logger)
	txProcessor := processor.NewTransactionProcessor(accountRepo, converter, metricsCollector, logger)

	notifier.Subscribe(service.NewConsoleObserver(console))
	notifier.Subscribe(metricsCollector)
	notifier.Subscribe(sess)

	logger.Info("Core wired",
		slog.String("usd_to_kzt", converter.Rate().String()),
		slog.Int("lifecycle_observers", notifier.Len()))

	apiHandler := api.NewAPIHandler(directory, sess, adminGate, txProcessor, cfg.Server.RequestTimeout, logger)

	return &application{
		directory: directory,
		session:   sess,
		metrics:   metricsCollector,
		handler:   apiHandler.Routes(),
	}, nil
}

func setupLogger(level string) *slog.Logger {
	lvl, _ := config.ParseLevel(level)
	opts := &slog.HandlerOptions{
		Level: lvl,
	}

	handler := slog.NewJSONHandler(os.Stderr, opts)
	return slog.New(handler)
}

func startHTTPServer(addr string, handler http.Handler, logger *slog.Logger) *http.Server {
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	return server
}

func waitForShutdown(
	logger *slog.Logger,
	httpServer *http.Server,
	metricsServer *http.Server,
) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	logger.Info("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown failed", slog.String("error", err.Error()))
	}

	if err := metricsServer.Shutdown(ctx); err != nil {
		logger.Error("Metrics server shutdown failed", slog.String("error", err.Error()))
	}
}
