package sink

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"

	"txanomaly/internal/anomaly"
)

// BigQueryBatchSize is the number of rows sent per streaming insert
const BigQueryBatchSize = 500

// Inserter streams rows into one table. *bigquery.Inserter implements it.
type Inserter interface {
	Put(ctx context.Context, src interface{}) error
}

// AnomalyRow is one scored transaction as stored in BigQuery
type AnomalyRow struct {
	RunID         string                 `bigquery:"run_id"`
	RowKey        int64                  `bigquery:"row_key"`
	TransactionID string                 `bigquery:"transaction_id"`
	AccountID     bigquery.NullString    `bigquery:"account_id"`
	Timestamp     bigquery.NullTimestamp `bigquery:"transaction_timestamp"`
	Amount        float64                `bigquery:"amount"`
	Merchant      bigquery.NullString    `bigquery:"merchant_category"`
	Channel       bigquery.NullString    `bigquery:"channel"`
	IsoScore      float64                `bigquery:"iso_score"`
	LofScore      float64                `bigquery:"lof_score"`
	TSAnomaly     bool                   `bigquery:"ts_anomaly"`
	FinalScore    float64                `bigquery:"final_anomaly_score"`
	FinalFlag     bool                   `bigquery:"final_anomaly_flag"`
	RunStartedAt  time.Time              `bigquery:"run_started_at"`
}

// NewAnomalyRow maps a scored transaction to its BigQuery row
func NewAnomalyRow(runID string, startedAt time.Time, r *anomaly.ScoredTransaction) *AnomalyRow {
	return &AnomalyRow{
		RunID:         runID,
		RowKey:        int64(r.Row),
		TransactionID: r.TransactionID,
		AccountID:     nullString(r.AccountID),
		Timestamp:     bigquery.NullTimestamp{Timestamp: r.Time.UTC(), Valid: r.HasTime},
		Amount:        r.AmountValue,
		Merchant:      nullString(r.MerchantCategory),
		Channel:       nullString(r.Channel),
		IsoScore:      r.Scores.Iso,
		LofScore:      r.Scores.Lof,
		TSAnomaly:     r.TSAnomaly,
		FinalScore:    r.FinalScore,
		FinalFlag:     r.Flag,
		RunStartedAt:  startedAt.UTC(),
	}
}

// AnomalySchema is the table schema inferred from AnomalyRow
func AnomalySchema() (bigquery.Schema, error) {
	schema, err := bigquery.InferSchema(AnomalyRow{})
	if err != nil {
		return nil, fmt.Errorf("infer schema: %w", err)
	}
	return schema, nil
}

func nullString(s string) bigquery.NullString {
	return bigquery.NullString{StringVal: s, Valid: s != ""}
}

// BigQuerySink streams scored transactions into a BigQuery table
type BigQuerySink struct {
	client   *bigquery.Client
	table    *bigquery.Table
	inserter Inserter
}

// OpenBigQuery connects to project and creates dataset.table when missing
func OpenBigQuery(ctx context.Context, project, dataset, table string) (*BigQuerySink, error) {
	client, err := bigquery.NewClient(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("bigquery.NewClient: %w", err)
	}
	t := client.Dataset(dataset).Table(table)
	s := &BigQuerySink{client: client, table: t, inserter: t.Inserter()}
	if err := s.ensureTable(ctx); err != nil {
		client.Close()
		return nil, err
	}
	return s, nil
}

// NewBigQuerySinkWithInserter returns a sink that writes through inserter
func NewBigQuerySinkWithInserter(inserter Inserter) *BigQuerySink {
	return &BigQuerySink{inserter: inserter}
}

func (s *BigQuerySink) ensureTable(ctx context.Context) error {
	_, err := s.table.Metadata(ctx)
	if err == nil {
		return nil
	}
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) || apiErr.Code != http.StatusNotFound {
		return fmt.Errorf("table metadata: %w", err)
	}

	schema, err := AnomalySchema()
	if err != nil {
		return err
	}
	meta := &bigquery.TableMetadata{
		Schema: schema,
		TimePartitioning: &bigquery.TimePartitioning{
			Type:  bigquery.DayPartitioningType,
			Field: "run_started_at",
		},
	}
	if err := s.table.Create(ctx, meta); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	return nil
}

// Name implements Sink
func (s *BigQuerySink) Name() string { return "bigquery" }

// Write streams every row of run in batches. Insert ids make a retried
// batch idempotent.
func (s *BigQuerySink) Write(ctx context.Context, run Run) error {
	schema, err := AnomalySchema()
	if err != nil {
		return err
	}
	rows := run.Result.Rows
	runID := run.Summary.RunID
	for start := 0; start < len(rows); start += BigQueryBatchSize {
		end := min(start+BigQueryBatchSize, len(rows))
		batch := make([]*bigquery.StructSaver, 0, end-start)
		for i := start; i < end; i++ {
			batch = append(batch, &bigquery.StructSaver{
				Struct:   NewAnomalyRow(runID, run.Summary.StartedAt, &rows[i]),
				Schema:   schema,
				InsertID: runID + "-" + strconv.Itoa(rows[i].Row),
			})
		}
		if err := s.inserter.Put(ctx, batch); err != nil {
			return fmt.Errorf("insert rows %d-%d: %w", start, end-1, err)
		}
	}
	return nil
}

// Close closes the client
func (s *BigQuerySink) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}
