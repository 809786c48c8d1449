// Package visuals renders the report plots as PNG files with gonum/plot.
//
// Three plots are produced for a run:
//
//   - distribution.png: histogram of the final anomaly score
//   - daily_anomalies.png: flagged transactions per calendar date
//   - ts_anomalies.png: hourly amount with the anomalous hours marked
//
// RenderAll draws them concurrently. Each plot reads the result without
// modifying it.
package visuals
