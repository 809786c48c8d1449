package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"txanomaly/internal/anomaly"
	"txanomaly/internal/config"
	"txanomaly/internal/exporter"
)

// Run is one finished pipeline run
type Run struct {
	Summary exporter.RunSummary
	Result  *anomaly.Result
}

// Sink receives finished runs
type Sink interface {
	Name() string
	Write(ctx context.Context, run Run) error
	Close() error
}

// Sinks fans a run out to several sinks in order
type Sinks []Sink

// Write writes run to every sink and stops at the first failure
func (s Sinks) Write(ctx context.Context, run Run) error {
	for _, sk := range s {
		if err := sk.Write(ctx, run); err != nil {
			return fmt.Errorf("sink %s: %w", sk.Name(), err)
		}
	}
	return nil
}

// Close closes every sink
func (s Sinks) Close() error {
	var errs []error
	for _, sk := range s {
		if err := sk.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close sink %s: %w", sk.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Open builds the sinks enabled in cfg. No configured sink yields an empty
// Sinks value.
func Open(ctx context.Context, cfg config.SinkConfig, logger *slog.Logger) (Sinks, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var sinks Sinks

	if cfg.Driver != "" {
		s, err := OpenSQL(ctx, cfg.Driver, cfg.DSN)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
		logger.Info("SQL sink enabled", slog.String("driver", cfg.Driver))
	}

	if cfg.BigQueryProject != "" {
		s, err := OpenBigQuery(ctx, cfg.BigQueryProject, cfg.BigQueryDataset, cfg.BigQueryTable)
		if err != nil {
			_ = sinks.Close()
			return nil, err
		}
		sinks = append(sinks, s)
		logger.Info("BigQuery sink enabled",
			slog.String("project", cfg.BigQueryProject),
			slog.String("dataset", cfg.BigQueryDataset),
			slog.String("table", cfg.BigQueryTable))
	}

	return sinks, nil
}
