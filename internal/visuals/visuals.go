package visuals

import (
	"context"
	"fmt"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"txanomaly/internal/anomaly"
	"txanomaly/internal/config"
)

// HistogramBins is the number of bins of the score distribution
const HistogramBins = 50

var (
	lineColor    = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	anomalyColor = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

// Renderer draws report plots at a fixed size
type Renderer struct {
	width  vg.Length
	height vg.Length
	logger *slog.Logger
}

// NewRenderer returns a renderer sized from the report configuration, in
// inches
func NewRenderer(cfg config.ReportConfig, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{
		width:  vg.Length(cfg.PlotWidth) * vg.Inch,
		height: vg.Length(cfg.PlotHeight) * vg.Inch,
		logger: logger,
	}
}

// RenderAll writes the three plots of result into the visuals directory of
// paths. The first failure cancels the remaining plots.
func (r *Renderer) RenderAll(ctx context.Context, paths *config.Paths, result *anomaly.Result) error {
	if err := os.MkdirAll(paths.VisualsDir, 0755); err != nil {
		return fmt.Errorf("failed to create visuals directory: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	jobs := []struct {
		file string
		draw func() (*plot.Plot, error)
	}{
		{config.DistributionPlot, func() (*plot.Plot, error) { return ScoreDistribution(result.Rows) }},
		{config.DailyPlot, func() (*plot.Plot, error) { return DailyAnomalies(result.Rows) }},
		{config.HourlyPlot, func() (*plot.Plot, error) { return HourlyAnomalies(result.TimeSeries.Hours) }},
	}

	for _, job := range jobs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p, err := job.draw()
			if err != nil {
				return fmt.Errorf("draw %s: %w", job.file, err)
			}
			return r.save(ctx, p, paths.GetVisualPath(job.file))
		})
	}
	return g.Wait()
}

func (r *Renderer) save(ctx context.Context, p *plot.Plot, path string) error {
	if err := p.Save(r.width, r.height, path); err != nil {
		return fmt.Errorf("save plot %s: %w", filepath.Base(path), err)
	}
	r.logger.DebugContext(ctx, "plot written", slog.String("file", path))
	return nil
}

// ScoreDistribution is a histogram of the final anomaly score
func ScoreDistribution(rows []anomaly.ScoredTransaction) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Final anomaly score distribution"
	p.X.Label.Text = "final_anomaly_score"
	p.Y.Label.Text = "transactions"

	if len(rows) == 0 {
		return p, nil
	}
	values := make(plotter.Values, len(rows))
	for i := range rows {
		values[i] = rows[i].FinalScore
	}
	h, err := plotter.NewHist(values, HistogramBins)
	if err != nil {
		return nil, err
	}
	h.FillColor = lineColor
	h.LineStyle.Width = vg.Points(0.5)
	p.Add(h)
	return p, nil
}

// DailyAnomalies is the number of flagged transactions per calendar date
func DailyAnomalies(rows []anomaly.ScoredTransaction) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Daily row-level anomalies"
	p.X.Label.Text = "date"
	p.Y.Label.Text = "flagged transactions"
	p.X.Tick.Marker = plot.TimeTicks{Format: anomaly.DateLayout}
	p.Add(plotter.NewGrid())

	dates, counts := anomaly.DailyFlagCounts(rows)
	if len(dates) == 0 {
		return p, nil
	}
	pts := make(plotter.XYs, len(dates))
	for i, d := range dates {
		pts[i] = plotter.XY{X: float64(d.Unix()), Y: float64(counts[i])}
	}
	line, points, err := plotter.NewLinePoints(pts)
	if err != nil {
		return nil, err
	}
	line.Color = lineColor
	points.Color = lineColor
	points.Shape = draw.CircleGlyph{}
	p.Add(line, points)
	return p, nil
}

// HourlyAnomalies is the hourly amount with anomalous hours in red
func HourlyAnomalies(hours []anomaly.HourlyAnomaly) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Hourly transaction amount"
	p.X.Label.Text = "hour"
	p.Y.Label.Text = "tx_amount"
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02\n15:04"}
	p.Add(plotter.NewGrid())

	if len(hours) == 0 {
		return p, nil
	}
	series := make(plotter.XYs, len(hours))
	var flagged plotter.XYs
	for i, h := range hours {
		xy := plotter.XY{X: float64(h.Hour.Unix()), Y: h.Amount}
		series[i] = xy
		if h.Anomaly {
			flagged = append(flagged, xy)
		}
	}

	line, err := plotter.NewLine(series)
	if err != nil {
		return nil, err
	}
	line.Color = lineColor
	p.Add(line)
	p.Legend.Add("tx_amount", line)

	if len(flagged) > 0 {
		marks, err := plotter.NewScatter(flagged)
		if err != nil {
			return nil, err
		}
		marks.Color = anomalyColor
		marks.Shape = draw.CircleGlyph{}
		marks.Radius = vg.Points(3)
		p.Add(marks)
		p.Legend.Add("ts_anomaly", marks)
	}
	return p, nil
}
