// Package exporter writes the anomaly report artifacts.
//
// CSVWriter is the core writer: headers, streaming for large tables, and
// an optional UTF-8 BOM for spreadsheet tools. On top of it:
//
//   - WriteRowAnomalies / WriteHourlyAnomalies write the two result tables
//   - WriteWorkbook writes both tables and the summary to one .xlsx file
//   - WriteSummary / PrintSummary persist and display the run summary
//
// Numbers are written in their shortest exact decimal form and timestamps
// as "2006-01-02 15:04:05" so two runs over the same input produce
// byte-identical files.
//
// Example usage:
//
//	w := exporter.NewCSVWriter(paths, logger)
//	if err := w.WriteRowAnomalies(result.Rows); err != nil {
//	    return err
//	}
//	if err := w.WriteHourlyAnomalies(result.TimeSeries.Hours); err != nil {
//	    return err
//	}
package exporter
