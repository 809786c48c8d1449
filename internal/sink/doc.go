// Package sink persists the results of a run outside the report directory.
//
// SQLSink writes a run record, the scored transactions and the hourly
// grid to SQLite (modernc.org/sqlite) or PostgreSQL (lib/pq). BigQuerySink
// streams the scored transactions into a BigQuery table. Both are opt-in
// and are built from config.SinkConfig by Open.
package sink
