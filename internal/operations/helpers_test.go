package operations

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"txanomaly/internal/config"
	"txanomaly/internal/transactions"
)

var runStart = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

// funcStep runs fn as a pipeline step
type funcStep struct {
	BaseStage
	fn func(ctx context.Context, state *OperationState) error
}

func newFuncStep(id, name string, fn func(ctx context.Context, state *OperationState) error) Step {
	return &funcStep{BaseStage: NewBaseStage(id, name), fn: fn}
}

func (s *funcStep) Execute(ctx context.Context, state *OperationState) error {
	return s.fn(ctx, state)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// writeExtract writes n seeded transactions spread over the given number
// of hours to the input file of paths
func writeExtract(t *testing.T, paths *config.Paths, n, hours int) {
	t.Helper()
	rng := rand.New(rand.NewSource(7))
	merchants := []string{"grocery", "fuel", "travel", "dining"}
	channels := []string{"pos", "online", "atm"}
	start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	records := make([]transactions.Record, n)
	for i := range records {
		ts := start.Add(time.Duration(i%hours)*time.Hour + time.Duration(rng.Intn(3600))*time.Second)
		amount := (60 + 25*math.Sin(2*math.Pi*float64(ts.Hour())/24)) * (0.8 + 0.4*rng.Float64())
		if i == n/2 {
			amount = 25000
		}
		records[i] = transactions.Record{
			TransactionID:    fmt.Sprintf("tx-%05d", i),
			AccountID:        fmt.Sprintf("acc-%03d", rng.Intn(40)),
			Timestamp:        ts.Format("2006-01-02 15:04:05"),
			Amount:           fmt.Sprintf("%.2f", amount),
			TransactionType:  "purchase",
			MerchantCategory: merchants[rng.Intn(len(merchants))],
			Channel:          channels[rng.Intn(len(channels))],
		}
	}

	require.NoError(t, os.MkdirAll(filepath.Dir(paths.InputFile), 0755))
	f, err := os.Create(paths.InputFile)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, transactions.WriteCSV(f, records))
}

// testSetup returns a configuration and paths rooted in a fresh directory
func testSetup(t *testing.T) (*config.Config, *config.Paths) {
	t.Helper()
	cfg := config.Default()
	cfg.Report.PlotWidth = 4
	cfg.Report.PlotHeight = 2
	paths, err := config.NewPaths(cfg.Paths, t.TempDir())
	require.NoError(t, err)
	return cfg, paths
}

func fixedOptions(runID string) Options {
	return Options{
		Logger: discardLogger(),
		RunID:  runID,
		Now:    func() time.Time { return runStart },
	}
}

// leftovers lists the staging and backup directories beside the reports
func leftovers(t *testing.T, paths *config.Paths) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(filepath.Dir(paths.ReportsDir), ".*-*"))
	require.NoError(t, err)
	return matches
}
