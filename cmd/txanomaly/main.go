package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"txanomaly/internal/config"
	"txanomaly/internal/exporter"
	"txanomaly/internal/infrastructure"
	"txanomaly/internal/operations"
	"txanomaly/internal/sink"
	"txanomaly/internal/storage"
	"txanomaly/pkg/contracts"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one detection run and returns the process exit code
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("txanomaly", flag.ContinueOnError)
	fs.SetOutput(stderr)
	dataDir := fs.String("data", "", "data directory holding the cleaned extract (defaults to paths.data_dir)")
	configFile := fs.String("config", "", "YAML configuration file (defaults to $TXA_CONFIG)")
	fetchURI := fs.String("fetch", "", "gs:// or s3:// object to download as the input extract before the run")
	showVersion := fs.Bool("version", false, "print version information and exit")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *showVersion {
		fmt.Fprintln(stdout, contracts.GetFullVersionString("txanomaly"))
		return 0
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	paths, err := config.NewPaths(cfg.Paths, *dataDir)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}
	defer infrastructure.CloseLogFile()
	paths.LogPathResolution(logger)

	providers, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFromTelemetry(cfg.Telemetry), logger)
	if err != nil {
		logger.Error("Failed to initialize telemetry", slog.String("error", err.Error()))
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	summary, err := detect(ctx, cfg, paths, *fetchURI, logger, providers)
	if textErr := providers.WriteMetricsTextfile(cfg.Telemetry.MetricsTextfile); textErr != nil {
		logger.Warn("Failed to write metrics textfile", slog.String("error", textErr.Error()))
	}
	if err != nil {
		logger.Error("Anomaly detection failed", slog.String("error", err.Error()))
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if err := exporter.PrintSummary(stdout, *summary, paths.ReportsDir); err != nil {
		logger.Error("Failed to print summary", slog.String("error", err.Error()))
		return 1
	}
	return 0
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

// detect fetches the input when asked, opens the optional publisher and
// sinks, and runs the pipeline
func detect(ctx context.Context, cfg *config.Config, paths *config.Paths, fetchURI string,
	logger *slog.Logger, providers *infrastructure.OTelProviders) (*exporter.RunSummary, error) {
	if fetchURI != "" {
		logger.Info("Fetching input extract",
			slog.String("uri", fetchURI),
			slog.String("destination", paths.InputFile))
		if err := storage.Fetch(ctx, fetchURI, paths.InputFile, cfg.Storage); err != nil {
			return nil, fmt.Errorf("fetch input: %w", err)
		}
	}

	publisher, err := storage.NewPublisher(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("open publisher: %w", err)
	}
	if publisher != nil {
		defer publisher.Close()
	}

	sinks, err := sink.Open(ctx, cfg.Sink, logger)
	if err != nil {
		return nil, fmt.Errorf("open sinks: %w", err)
	}
	defer func() {
		if err := sinks.Close(); err != nil {
			logger.Warn("Failed to close sinks", slog.String("error", err.Error()))
		}
	}()

	pipeline, err := operations.NewPipeline(cfg, paths, operations.Options{
		Logger:    logger,
		OTel:      providers,
		Publisher: publisher,
		Sinks:     sinks,
	})
	if err != nil {
		return nil, err
	}
	return pipeline.Run(ctx)
}
