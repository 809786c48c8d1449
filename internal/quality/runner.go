package quality

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"txanomaly/internal/config"
	"txanomaly/internal/exporter"
	"txanomaly/internal/transactions"
	"txanomaly/internal/validation"
)

// TransactionsTable is the table name used in TDQ reports
const TransactionsTable = "transactions"

// Report is the outcome of one data-quality run
type Report struct {
	Raw       TableReport
	Clean     TableReport
	Rules     []RuleResult
	RawRows   int
	CleanRows int
}

// Runner runs TDQ, cleaning and BDQ over the raw transactions extract
type Runner struct {
	paths  *config.Paths
	cfg    config.QualityConfig
	writer *exporter.CSVWriter
	logger *slog.Logger
}

// NewRunner creates a runner reading paths.RawFile and writing its reports
// to the data directory
func NewRunner(paths *config.Paths, cfg config.QualityConfig, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		paths:  paths,
		cfg:    cfg,
		writer: exporter.NewCSVWriter(paths, logger),
		logger: logger,
	}
}

// Run checks the raw table, cleans it, checks the result and counts rule
// violations. It writes tdq_raw.csv, tdq_clean.csv, the cleaned extract
// and bdq_report.csv.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	maxGap := time.Duration(r.cfg.MaxGapSeconds) * time.Second

	if err := validation.NewFileValidator(r.logger).ValidateExtract(r.paths.RawFile); err != nil {
		return nil, err
	}
	table, err := transactions.LoadTable(ctx, r.paths.RawFile)
	if err != nil {
		return nil, err
	}

	report := &Report{RawRows: len(table.Rows)}
	report.Raw = CheckTable(TransactionsTable, table.Header, table.Rows, TransactionSchema, maxGap)
	if err := r.writeTableReport(config.TDQRawFile, report.Raw); err != nil {
		return nil, err
	}
	r.logger.InfoContext(ctx, "TDQ before cleaning",
		slog.Int("rows", report.RawRows),
		slog.Int("duplicate_rows", report.Raw.DuplicateRows),
		slog.Int("missing_timestamps", report.Raw.MissingTimestamps))

	records, err := table.Records()
	if err != nil {
		return nil, err
	}

	cleaned := CleanTransactions(records)
	report.CleanRows = len(cleaned)
	rows := make([][]string, len(cleaned))
	for i, rec := range cleaned {
		rows[i] = rec.Values()
	}
	report.Clean = CheckTable(TransactionsTable, transactions.Columns, rows, TransactionSchema, maxGap)
	if err := r.writeTableReport(config.TDQCleanFile, report.Clean); err != nil {
		return nil, err
	}
	if err := writeCleaned(r.paths.InputFile, cleaned); err != nil {
		return nil, err
	}
	r.logger.InfoContext(ctx, "Cleaned transactions",
		slog.Int("rows_in", len(records)),
		slog.Int("rows_out", report.CleanRows),
		slog.String("file", r.paths.InputFile))

	rules, err := NewRuleSet(DefaultRules(r.cfg.Channels))
	if err != nil {
		return nil, err
	}
	report.Rules, err = rules.Evaluate(cleaned)
	if err != nil {
		return nil, err
	}
	bdq := make([][]string, len(report.Rules))
	for i, res := range report.Rules {
		bdq[i] = res.Record()
	}
	if err := r.writer.WriteSimpleCSV(r.paths.GetDataPath(config.BDQFile), RuleResultHeaders, bdq); err != nil {
		return nil, fmt.Errorf("write %s: %w", config.BDQFile, err)
	}

	return report, nil
}

func (r *Runner) writeTableReport(name string, report TableReport) error {
	path := r.paths.GetDataPath(name)
	if err := r.writer.WriteSimpleCSV(path, TableReportHeaders, [][]string{report.Record()}); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// writeCleaned replaces path with records through a temporary file
func writeCleaned(path string, records []transactions.Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := transactions.WriteCSV(tmp, records); err != nil {
		tmp.Close()
		return fmt.Errorf("write cleaned transactions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
