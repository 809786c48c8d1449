package exporter

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"txanomaly/internal/anomaly"
)

// RunSummary is the summary of one pipeline run as persisted and printed
type RunSummary struct {
	anomaly.Summary

	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	Decomposed bool      `json:"decomposed"`
	// Published lists the remote locations the report was copied to
	Published []string `json:"published,omitempty"`
}

// WriteSummary writes s as indented JSON
func WriteSummary(path string, s RunSummary) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

// ReadSummary reads a summary written by WriteSummary
func ReadSummary(path string) (RunSummary, error) {
	var s RunSummary
	data, err := os.ReadFile(path)
	if err != nil {
		return s, err
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parse summary %s: %w", path, err)
	}
	return s, nil
}

// PrintSummary writes a short human readable summary of the run
func PrintSummary(w io.Writer, s RunSummary, reportsDir string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Anomaly detection summary\n")
	fmt.Fprintf(tw, "  run id\t%s\n", s.RunID)
	fmt.Fprintf(tw, "  total transactions\t%d\n", s.TotalTransactions)
	fmt.Fprintf(tw, "  row-level anomalies\t%d\n", s.RowLevelAnomalies)
	fmt.Fprintf(tw, "  hourly anomalies\t%d\n", s.HourlyAnomalies)
	if !s.Decomposed {
		fmt.Fprintf(tw, "  note\tseries too short for decomposition, count test only\n")
	}
	fmt.Fprintf(tw, "  reports\t%s\n", reportsDir)
	for _, uri := range s.Published {
		fmt.Fprintf(tw, "  published\t%s\n", uri)
	}
	return tw.Flush()
}
