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

	"txanomaly/internal/config"
	"txanomaly/internal/infrastructure"
	"txanomaly/internal/quality"
	"txanomaly/pkg/contracts"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run checks and cleans the raw extract and returns the process exit code
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("txquality", flag.ContinueOnError)
	fs.SetOutput(stderr)
	dataDir := fs.String("data", "", "data directory holding the raw extract (defaults to paths.data_dir)")
	configFile := fs.String("config", "", "YAML configuration file (defaults to $TXA_CONFIG)")
	showVersion := fs.Bool("version", false, "print version information and exit")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *showVersion {
		fmt.Fprintln(stdout, contracts.GetFullVersionString("txquality"))
		return 0
	}

	var cfg *config.Config
	var err error
	if *configFile != "" {
		cfg, err = config.LoadFile(*configFile)
	} else {
		cfg, err = config.Load()
	}
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

	ctx = infrastructure.EnsureTraceID(ctx)
	logger.InfoContext(ctx, "Starting data quality run",
		slog.String("raw_file", paths.RawFile),
		slog.String("output", paths.InputFile))

	report, err := quality.NewRunner(paths, cfg.Quality, logger).Run(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "Data quality run failed", slog.String("error", err.Error()))
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if err := quality.PrintReport(stdout, report); err != nil {
		return 1
	}
	return 0
}
