package visuals

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/vg"

	"txanomaly/internal/anomaly"
	"txanomaly/internal/config"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func testResult() *anomaly.Result {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	var rows []anomaly.ScoredTransaction
	var hours []anomaly.HourlyAnomaly
	for i := 0; i < 72; i++ {
		ts := start.Add(time.Duration(i) * time.Hour)
		score := float64(i%10) / 10
		rows = append(rows, anomaly.ScoredTransaction{
			Transaction: anomaly.Transaction{
				Row:     i,
				Time:    ts,
				HasTime: true,
				Date:    ts.Format(anomaly.DateLayout),
			},
			FinalScore: score,
			Flag:       score > 0.65,
		})
		hours = append(hours, anomaly.HourlyAnomaly{
			HourlyBucket: anomaly.HourlyBucket{Hour: ts, Count: 1, Amount: float64(100 + i%24)},
			Anomaly:      i == 40,
		})
	}
	return &anomaly.Result{Rows: rows, TimeSeries: anomaly.TimeSeriesResult{Hours: hours}}
}

func testRenderer() *Renderer {
	cfg := config.Default().Report
	cfg.PlotWidth, cfg.PlotHeight = 4, 2
	return NewRenderer(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRenderAll(t *testing.T) {
	paths, err := config.NewPaths(config.Default().Paths, t.TempDir())
	require.NoError(t, err)

	require.NoError(t, testRenderer().RenderAll(context.Background(), paths, testResult()))

	for _, name := range []string{config.DistributionPlot, config.DailyPlot, config.HourlyPlot} {
		data, err := os.ReadFile(paths.GetVisualPath(name))
		require.NoError(t, err, name)
		assert.True(t, bytes.HasPrefix(data, pngMagic), "%s is not a PNG", name)
	}
}

func TestRenderAllCancelled(t *testing.T) {
	paths, err := config.NewPaths(config.Default().Paths, t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = testRenderer().RenderAll(ctx, paths, testResult())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPlotsEmptyInput(t *testing.T) {
	p, err := ScoreDistribution(nil)
	require.NoError(t, err)
	assert.NotNil(t, p)

	p, err = DailyAnomalies(nil)
	require.NoError(t, err)
	assert.NotNil(t, p)

	p, err = HourlyAnomalies(nil)
	require.NoError(t, err)
	assert.NotNil(t, p)
}

func TestHourlyAnomaliesRender(t *testing.T) {
	res := testResult()
	quiet := make([]anomaly.HourlyAnomaly, len(res.TimeSeries.Hours))
	copy(quiet, res.TimeSeries.Hours)
	for i := range quiet {
		quiet[i].Anomaly = false
	}

	for name, hours := range map[string][]anomaly.HourlyAnomaly{
		"with flagged hours": res.TimeSeries.Hours,
		"without flagged":    quiet,
	} {
		t.Run(name, func(t *testing.T) {
			p, err := HourlyAnomalies(hours)
			require.NoError(t, err)

			wt, err := p.WriterTo(4*vg.Inch, 2*vg.Inch, "png")
			require.NoError(t, err)
			var buf bytes.Buffer
			_, err = wt.WriteTo(&buf)
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))
		})
	}
	assert.True(t, res.TimeSeries.Hours[40].Anomaly, "input must not be modified")
}

func TestScoreDistributionConstant(t *testing.T) {
	rows := make([]anomaly.ScoredTransaction, 10)
	p, err := ScoreDistribution(rows)
	require.NoError(t, err)
	assert.NotNil(t, p)
}
