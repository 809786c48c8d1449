// Package anomaly detects anomalous transactions in a static extract.
//
// Detection runs in a single pass over an in-memory table. Two branches
// start from the preprocessed rows and meet in score fusion:
//
//	records -> Preprocess -> AggregateHourly -> DetectHourly ----\
//	                     \-> BuildFeatures  -> ScoreRows -------> Fuse
//
// # Time-series branch
//
// Transactions are resampled onto a gap-free hourly grid. The amount track
// is decomposed with robust STL (period 24) and the residual and the hourly
// count are scored with population z-scores. An hour is flagged when
// |resid z| > 3.5 or |count z| > 4.0. Grids shorter than two periods are
// not decomposed; only the count test applies to them.
//
// # Row branch
//
// Each row gets six features: amount, log1p(amount), normalized merchant
// and channel frequencies, and a sine/cosine encoding of the hour. An
// isolation forest (200 trees, seed 42) and a local outlier factor (k=20)
// are fitted on the full matrix. Their raw scores are min-max normalized
// to [0,1]; a constant score array normalizes to zeros.
//
// # Fusion
//
// Rows are joined to the hourly flag by the hour they fall in:
//
//	score = clip(0.55*iso + 0.45*lof + 0.15*ts, 0, 1)
//	flag  = score > 0.65
//
// Every stage takes an immutable Config and returns new values keyed by
// row (Transaction.Row) or by hour; nothing is aligned by position.
//
// # Usage Example
//
//	det, err := anomaly.NewDetector(anomaly.DefaultConfig(), logger)
//	if err != nil {
//	    return err
//	}
//	result, err := det.Run(ctx, records)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(result.Summary.RowLevelAnomalies)
package anomaly
