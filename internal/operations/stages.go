package operations

import (
	"context"
	"fmt"
	"log/slog"

	"txanomaly/internal/anomaly"
	"txanomaly/internal/config"
	"txanomaly/internal/exporter"
	"txanomaly/internal/sink"
	"txanomaly/internal/storage"
	"txanomaly/internal/transactions"
	"txanomaly/internal/validation"
	"txanomaly/internal/visuals"
)

// Step IDs of the built-in pipeline
const (
	StepLoad     = "load"
	StepDetect   = "detect"
	StepTables   = "tables"
	StepWorkbook = "workbook"
	StepPlots    = "plots"
	StepSummary  = "summary"
	StepPublish  = "publish"
	StepSink     = "sink"
	StepCommit   = "commit"
)

// LoadStage reads the cleaned transactions extract
type LoadStage struct {
	BaseStage
	validator *validation.FileValidator
	logger    *slog.Logger
}

// NewLoadStage creates the load step
func NewLoadStage(logger *slog.Logger) *LoadStage {
	return &LoadStage{
		BaseStage: NewBaseStage(StepLoad, "Load transactions"),
		validator: validation.NewFileValidator(logger),
		logger:    logger,
	}
}

func (s *LoadStage) Execute(ctx context.Context, state *OperationState) error {
	if err := s.validator.ValidateExtract(state.Paths.InputFile); err != nil {
		return err
	}
	records, err := transactions.Load(ctx, state.Paths.InputFile)
	if err != nil {
		return err
	}
	state.Records = records
	s.logger.InfoContext(ctx, "Loaded transactions",
		slog.String("file", state.Paths.InputFile),
		slog.Int("rows", len(records)))
	return nil
}

// DetectStage runs both detection branches and the score fusion
type DetectStage struct {
	BaseStage
	detector *anomaly.Detector
}

// NewDetectStage creates the detection step
func NewDetectStage(detector *anomaly.Detector) *DetectStage {
	return &DetectStage{BaseStage: NewBaseStage(StepDetect, "Detect anomalies"), detector: detector}
}

func (s *DetectStage) Execute(ctx context.Context, state *OperationState) error {
	if len(state.Records) == 0 {
		return fmt.Errorf("no records loaded")
	}
	result, err := s.detector.Run(ctx, state.Records)
	if err != nil {
		return err
	}
	state.Result = result
	state.Summary.Summary = result.Summary
	state.Summary.Decomposed = result.TimeSeries.Decomposed
	return nil
}

// TablesStage writes the row-level and hourly CSV tables
type TablesStage struct {
	BaseStage
	logger *slog.Logger
}

// NewTablesStage creates the table step
func NewTablesStage(logger *slog.Logger) *TablesStage {
	return &TablesStage{BaseStage: NewBaseStage(StepTables, "Write anomaly tables"), logger: logger}
}

func (s *TablesStage) Execute(ctx context.Context, state *OperationState) error {
	if state.Result == nil {
		return fmt.Errorf("no detection result")
	}
	writer := exporter.NewCSVWriter(state.Paths, s.logger)
	if err := writer.WriteRowAnomalies(state.Result.Rows); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return writer.WriteHourlyAnomalies(state.Result.TimeSeries.Hours)
}

// WorkbookStage writes the optional xlsx workbook
type WorkbookStage struct {
	BaseStage
}

// NewWorkbookStage creates the workbook step
func NewWorkbookStage() *WorkbookStage {
	return &WorkbookStage{BaseStage: NewBaseStage(StepWorkbook, "Write workbook")}
}

func (s *WorkbookStage) Execute(ctx context.Context, state *OperationState) error {
	if state.Result == nil {
		return fmt.Errorf("no detection result")
	}
	return exporter.WriteWorkbook(state.Paths.GetReportPath(config.WorkbookFile), state.Result, state.Summary)
}

// PlotsStage renders the three charts
type PlotsStage struct {
	BaseStage
	renderer *visuals.Renderer
}

// NewPlotsStage creates the plot step
func NewPlotsStage(renderer *visuals.Renderer) *PlotsStage {
	return &PlotsStage{BaseStage: NewBaseStage(StepPlots, "Render plots"), renderer: renderer}
}

func (s *PlotsStage) Execute(ctx context.Context, state *OperationState) error {
	if state.Result == nil {
		return fmt.Errorf("no detection result")
	}
	return s.renderer.RenderAll(ctx, state.Paths, state.Result)
}

// SummaryStage persists summary.json
type SummaryStage struct {
	BaseStage
}

// NewSummaryStage creates the summary step
func NewSummaryStage() *SummaryStage {
	return &SummaryStage{BaseStage: NewBaseStage(StepSummary, "Write summary")}
}

func (s *SummaryStage) Execute(ctx context.Context, state *OperationState) error {
	return exporter.WriteSummary(state.Paths.GetReportPath(config.SummaryFile), state.Summary)
}

// PublishStage copies the staged report directory to object storage. The
// local summary is rewritten afterwards to record the remote location.
type PublishStage struct {
	BaseStage
	publisher *storage.Publisher
}

// NewPublishStage creates the publish step
func NewPublishStage(publisher *storage.Publisher) *PublishStage {
	return &PublishStage{BaseStage: NewBaseStage(StepPublish, "Publish reports"), publisher: publisher}
}

func (s *PublishStage) Execute(ctx context.Context, state *OperationState) error {
	uri, err := s.publisher.Publish(ctx, state.Paths.ReportsDir, state.ID)
	if err != nil {
		return err
	}
	state.Summary.Published = append(state.Summary.Published, uri)
	return exporter.WriteSummary(state.Paths.GetReportPath(config.SummaryFile), state.Summary)
}

// SinkStage writes the result tables to the configured databases
type SinkStage struct {
	BaseStage
	sinks sink.Sinks
}

// NewSinkStage creates the sink step
func NewSinkStage(sinks sink.Sinks) *SinkStage {
	return &SinkStage{BaseStage: NewBaseStage(StepSink, "Write sinks"), sinks: sinks}
}

func (s *SinkStage) Execute(ctx context.Context, state *OperationState) error {
	if state.Result == nil {
		return fmt.Errorf("no detection result")
	}
	return s.sinks.Write(ctx, sink.Run{Summary: state.Summary, Result: state.Result})
}
