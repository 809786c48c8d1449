// Package quality implements the data-quality stages that prepare the
// transactions extract for anomaly detection.
//
//   - CheckTable computes technical data-quality (TDQ) counts for a table
//   - CleanTransactions removes duplicates and rows without a timestamp
//     and makes amounts non-negative
//   - RuleSet counts business-rule (BDQ) violations with CEL predicates
//
// None of these functions modify their inputs.
package quality
