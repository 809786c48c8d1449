package sink

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"txanomaly/internal/anomaly"
)

// Supported SQL drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// dialect holds what differs between the supported databases
type dialect struct {
	name      string
	timestamp string
	float     string
	boolean   string
	numbered  bool
}

var dialects = map[string]dialect{
	DriverSQLite:   {name: DriverSQLite, timestamp: "DATETIME", float: "REAL", boolean: "BOOLEAN"},
	DriverPostgres: {name: DriverPostgres, timestamp: "TIMESTAMPTZ", float: "DOUBLE PRECISION", boolean: "BOOLEAN", numbered: true},
}

// placeholders returns n bind parameters in the dialect's style
func (d dialect) placeholders(n int) string {
	ps := make([]string, n)
	for i := range ps {
		if d.numbered {
			ps[i] = fmt.Sprintf("$%d", i+1)
		} else {
			ps[i] = "?"
		}
	}
	return strings.Join(ps, ", ")
}

func (d dialect) schema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS anomaly_runs (
			run_id TEXT PRIMARY KEY,
			started_at ` + d.timestamp + `,
			total_transactions INTEGER NOT NULL,
			row_level_anomalies INTEGER NOT NULL,
			hourly_anomalies INTEGER NOT NULL,
			decomposed ` + d.boolean + ` NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS transaction_anomalies (
			run_id TEXT NOT NULL,
			row_key INTEGER NOT NULL,
			transaction_id TEXT,
			account_id TEXT,
			transaction_timestamp ` + d.timestamp + `,
			amount ` + d.float + `,
			iso_score ` + d.float + `,
			lof_score ` + d.float + `,
			iso_anomaly ` + d.boolean + `,
			lof_anomaly ` + d.boolean + `,
			ts_anomaly ` + d.boolean + `,
			final_anomaly_score ` + d.float + `,
			final_anomaly_flag ` + d.boolean + `,
			PRIMARY KEY (run_id, row_key)
		)`,
		`CREATE TABLE IF NOT EXISTS hourly_anomalies (
			run_id TEXT NOT NULL,
			hour ` + d.timestamp + ` NOT NULL,
			tx_count INTEGER,
			tx_amount ` + d.float + `,
			stl_resid_z ` + d.float + `,
			tx_count_z ` + d.float + `,
			ts_anomaly ` + d.boolean + `,
			PRIMARY KEY (run_id, hour)
		)`,
	}
}

func (d dialect) insert(table string, columns ...string) string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(columns, ", "), d.placeholders(len(columns)))
}

// SQLSink writes runs to a SQL database
type SQLSink struct {
	db      *sql.DB
	dialect dialect
}

// OpenSQL opens driver at dsn and creates the result tables
func OpenSQL(ctx context.Context, driver, dsn string) (*SQLSink, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}
	s, err := NewSQLSink(db, driver)
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLSink wraps an open database. driver selects the SQL dialect.
func NewSQLSink(db *sql.DB, driver string) (*SQLSink, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported SQL driver %q", driver)
	}
	return &SQLSink{db: db, dialect: d}, nil
}

// Name implements Sink
func (s *SQLSink) Name() string { return s.dialect.name }

// Migrate creates the result tables when they do not exist
func (s *SQLSink) Migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.schema() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Write stores run in one transaction
func (s *SQLSink) Write(ctx context.Context, run Run) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	sum := run.Summary
	_, err = tx.ExecContext(ctx,
		s.dialect.insert("anomaly_runs",
			"run_id", "started_at", "total_transactions", "row_level_anomalies", "hourly_anomalies", "decomposed"),
		sum.RunID, sum.StartedAt.UTC(), sum.TotalTransactions, sum.RowLevelAnomalies, sum.HourlyAnomalies, sum.Decomposed)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	if err = s.writeRows(ctx, tx, sum.RunID, run.Result.Rows); err != nil {
		return err
	}
	if err = s.writeHours(ctx, tx, sum.RunID, run.Result.TimeSeries.Hours); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *SQLSink) writeRows(ctx context.Context, tx *sql.Tx, runID string, rows []anomaly.ScoredTransaction) error {
	stmt, err := tx.PrepareContext(ctx, s.dialect.insert("transaction_anomalies",
		"run_id", "row_key", "transaction_id", "account_id", "transaction_timestamp", "amount",
		"iso_score", "lof_score", "iso_anomaly", "lof_anomaly", "ts_anomaly",
		"final_anomaly_score", "final_anomaly_flag"))
	if err != nil {
		return fmt.Errorf("prepare rows: %w", err)
	}
	defer stmt.Close()

	for i := range rows {
		r := &rows[i]
		ts := sql.NullTime{Time: r.Time.UTC(), Valid: r.HasTime}
		_, err := stmt.ExecContext(ctx,
			runID, r.Row, r.TransactionID, r.AccountID, ts, r.AmountValue,
			r.Scores.Iso, r.Scores.Lof, r.Scores.IsoAnomaly, r.Scores.LofAnomaly, r.TSAnomaly,
			r.FinalScore, r.Flag)
		if err != nil {
			return fmt.Errorf("insert row %d: %w", r.Row, err)
		}
	}
	return nil
}

func (s *SQLSink) writeHours(ctx context.Context, tx *sql.Tx, runID string, hours []anomaly.HourlyAnomaly) error {
	stmt, err := tx.PrepareContext(ctx, s.dialect.insert("hourly_anomalies",
		"run_id", "hour", "tx_count", "tx_amount", "stl_resid_z", "tx_count_z", "ts_anomaly"))
	if err != nil {
		return fmt.Errorf("prepare hours: %w", err)
	}
	defer stmt.Close()

	for _, h := range hours {
		_, err := stmt.ExecContext(ctx, runID, h.Hour.UTC(), h.Count, h.Amount, h.ResidZ, h.CountZ, h.Anomaly)
		if err != nil {
			return fmt.Errorf("insert hour %s: %w", h.Hour.UTC().Format(anomaly.DateLayout+" 15:04"), err)
		}
	}
	return nil
}

// Close closes the database
func (s *SQLSink) Close() error {
	return s.db.Close()
}
