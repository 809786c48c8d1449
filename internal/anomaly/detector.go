package anomaly

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apperrors "txanomaly/internal/errors"
	"txanomaly/internal/transactions"
)

// TracerName names the tracer used for detection stage spans
const TracerName = "txanomaly.anomaly"

// Detector runs the detection stages in order over one table
type Detector struct {
	cfg    Config
	logger *slog.Logger
	tracer trace.Tracer
}

// NewDetector validates cfg and returns a detector. A nil logger falls
// back to the default logger.
func NewDetector(cfg Config, logger *slog.Logger) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidConfig, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{
		cfg:    cfg,
		logger: logger,
		tracer: otel.Tracer(TracerName),
	}, nil
}

// Config returns the detector's parameters
func (d *Detector) Config() Config {
	return d.cfg
}

// Run executes preprocessing, both detection branches and fusion. The
// records are not modified.
func (d *Detector) Run(ctx context.Context, records []transactions.Record) (*Result, error) {
	start := time.Now()
	ctx, span := d.tracer.Start(ctx, "anomaly.detect",
		trace.WithAttributes(attribute.Int("rows", len(records))))
	defer span.End()

	d.logger.InfoContext(ctx, "starting anomaly detection",
		"rows", len(records),
		"period", d.cfg.Period,
		"trees", d.cfg.Trees,
		"neighbors", d.cfg.Neighbors,
	)

	if len(records) == 0 {
		span.SetStatus(codes.Error, "empty input")
		return nil, apperrors.ErrEmptyInput
	}

	var txs []Transaction
	d.stage(ctx, "preprocess", func() {
		txs = Preprocess(records)
	})
	missing := 0
	for _, tx := range txs {
		if !tx.HasTime {
			missing++
		}
	}
	if missing > 0 {
		d.logger.WarnContext(ctx, "rows without a parseable timestamp",
			"rows", missing,
			"total", len(txs),
		)
	}

	var ts TimeSeriesResult
	d.stage(ctx, "timeseries", func() {
		buckets := AggregateHourly(txs)
		ts = DetectHourly(buckets, d.cfg)
	})
	if !ts.Decomposed {
		d.logger.WarnContext(ctx, "hourly series too short for decomposition, residual test skipped",
			"hours", len(ts.Hours),
			"min_hours", d.cfg.MinLength(),
		)
	}

	var features []FeatureVector
	d.stage(ctx, "features", func() {
		features = BuildFeatures(txs)
	})

	var scores []RowScore
	var scoreErr error
	d.stage(ctx, "row_models", func() {
		scores, scoreErr = ScoreRows(features, d.cfg)
	})
	if scoreErr != nil {
		span.RecordError(scoreErr)
		span.SetStatus(codes.Error, "row scoring failed")
		return nil, fmt.Errorf("score rows: %w", scoreErr)
	}

	var rows []ScoredTransaction
	d.stage(ctx, "fusion", func() {
		rows = Fuse(txs, features, scores, ts, d.cfg)
	})

	summary := Summarize(rows, ts)
	span.SetAttributes(
		attribute.Int("row_anomalies", summary.RowLevelAnomalies),
		attribute.Int("hourly_anomalies", summary.HourlyAnomalies),
	)

	d.logger.InfoContext(ctx, "anomaly detection complete",
		"rows", summary.TotalTransactions,
		"hours", len(ts.Hours),
		"row_anomalies", summary.RowLevelAnomalies,
		"hourly_anomalies", summary.HourlyAnomalies,
		"decomposed", ts.Decomposed,
		"duration", time.Since(start),
	)

	return &Result{Rows: rows, TimeSeries: ts, Summary: summary}, nil
}

// stage runs fn inside a child span and logs its duration
func (d *Detector) stage(ctx context.Context, name string, fn func()) {
	start := time.Now()
	_, span := d.tracer.Start(ctx, "anomaly."+name)
	fn()
	span.End()
	d.logger.DebugContext(ctx, "detection stage finished",
		"stage", name,
		"duration", time.Since(start),
	)
}
