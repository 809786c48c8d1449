package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
)

// Report file names written under the reports directory
const (
	RowAnomaliesFile    = "transaction_row_anomalies.csv"
	HourlyAnomaliesFile = "ts_hourly_anomalies.csv"
	SummaryFile         = "summary.json"
	WorkbookFile        = "anomaly_report.xlsx"

	DistributionPlot = "distribution.png"
	DailyPlot        = "daily_anomalies.png"
	HourlyPlot       = "ts_anomalies.png"

	TDQRawFile   = "tdq_raw.csv"
	TDQCleanFile = "tdq_clean.csv"
	BDQFile      = "bdq_report.csv"
)

// Paths contains every file system location used by a run.
// All locations derive from DataDir.
type Paths struct {
	DataDir    string
	InputFile  string
	RawFile    string
	ReportsDir string
	VisualsDir string
}

// NewPaths resolves the configured layout. A non-empty dataDir overrides
// the configured data directory.
func NewPaths(cfg PathsConfig, dataDir string) (*Paths, error) {
	if dataDir == "" {
		dataDir = cfg.DataDir
	}
	abs, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory %s: %w", dataDir, err)
	}

	reports := filepath.Join(abs, filepath.FromSlash(cfg.ReportsDir))
	return &Paths{
		DataDir:    abs,
		InputFile:  filepath.Join(abs, cfg.InputFile),
		RawFile:    filepath.Join(abs, cfg.RawFile),
		ReportsDir: reports,
		VisualsDir: filepath.Join(reports, cfg.VisualsDir),
	}, nil
}

// GetReportPath returns the path for a file in the reports directory
func (p *Paths) GetReportPath(filename string) string {
	return filepath.Join(p.ReportsDir, filename)
}

// GetVisualPath returns the path for an image in the visuals directory
func (p *Paths) GetVisualPath(filename string) string {
	return filepath.Join(p.VisualsDir, filename)
}

// GetDataPath returns the path for a file directly under the data directory
func (p *Paths) GetDataPath(filename string) string {
	return filepath.Join(p.DataDir, filename)
}

// Rebase returns a copy of p whose report and visual locations live under
// root instead of the real reports directory. The input locations are kept.
func (p *Paths) Rebase(root string) *Paths {
	rel, err := filepath.Rel(p.ReportsDir, p.VisualsDir)
	if err != nil {
		rel = filepath.Base(p.VisualsDir)
	}
	return &Paths{
		DataDir:    p.DataDir,
		InputFile:  p.InputFile,
		RawFile:    p.RawFile,
		ReportsDir: root,
		VisualsDir: filepath.Join(root, rel),
	}
}

// LogPathResolution logs the resolved locations at debug level
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("resolved paths",
		slog.String("data_dir", p.DataDir),
		slog.String("input_file", p.InputFile),
		slog.String("reports_dir", p.ReportsDir),
		slog.String("visuals_dir", p.VisualsDir))
}
