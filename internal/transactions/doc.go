// Package transactions reads and writes the cleaned transactions extract.
//
// The loader keeps timestamps and amounts as raw text so that parsing and
// coercion stay in one place (anomaly.Preprocess). Loading fails only for
// conditions that make a run meaningless: a missing file, a header without
// the required columns, or a table with no rows.
package transactions
