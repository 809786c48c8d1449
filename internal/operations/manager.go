package operations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"txanomaly/internal/anomaly"
	"txanomaly/internal/config"
	"txanomaly/internal/exporter"
	"txanomaly/internal/infrastructure"
	"txanomaly/internal/sink"
	"txanomaly/internal/storage"
	"txanomaly/internal/validation"
	"txanomaly/internal/visuals"
)

// Options carries the optional collaborators of a Pipeline
type Options struct {
	Logger    *slog.Logger
	OTel      *infrastructure.OTelProviders
	Publisher *storage.Publisher
	Sinks     sink.Sinks
	Config    *Config

	// RunID fixes the run identifier. Empty generates a UUID.
	RunID string
	// Now stamps the run start. Nil uses time.Now.
	Now func() time.Time
}

// Pipeline runs the registered steps against a staging directory and
// commits the staged reports only when every step succeeded
type Pipeline struct {
	registry *Registry
	config   *Config
	paths    *config.Paths
	tracer   *OperationTracer
	logger   *slog.Logger
	runID    string
	now      func() time.Time

	// skipped holds the disabled optional steps and why
	skipped []skippedStep
}

type skippedStep struct {
	id, name, reason string
}

// NewPipeline builds the default step sequence for cfg. The workbook,
// plots, publish and sink steps are registered only when enabled.
func NewPipeline(cfg *config.Config, paths *config.Paths, opts Options) (*Pipeline, error) {
	if cfg == nil || paths == nil {
		return nil, fmt.Errorf("pipeline requires a configuration and paths")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = infrastructure.WithComponent(logger, "pipeline")

	tracer, err := NewOperationTracer(opts.OTel)
	if err != nil {
		return nil, err
	}
	detector, err := anomaly.NewDetector(cfg.Detection, logger)
	if err != nil {
		return nil, NewStepError(StepDetect, err)
	}

	p := &Pipeline{
		registry: NewRegistry(),
		config:   opts.Config,
		paths:    paths,
		tracer:   tracer,
		logger:   logger,
		runID:    opts.RunID,
		now:      opts.Now,
	}
	if p.config == nil {
		p.config = NewConfig()
	}
	if p.now == nil {
		p.now = time.Now
	}

	steps := []Step{
		NewLoadStage(logger),
		NewDetectStage(detector),
		NewTablesStage(logger),
	}
	if cfg.Report.Workbook {
		steps = append(steps, NewWorkbookStage())
	} else {
		p.skip(StepWorkbook, "Write workbook", "workbook disabled")
	}
	if cfg.Report.Plots {
		steps = append(steps, NewPlotsStage(visuals.NewRenderer(cfg.Report, logger)))
	} else {
		p.skip(StepPlots, "Render plots", "plots disabled")
	}
	steps = append(steps, NewSummaryStage())
	if opts.Publisher != nil {
		steps = append(steps, NewPublishStage(opts.Publisher))
	} else {
		p.skip(StepPublish, "Publish reports", "no publish destination")
	}
	if len(opts.Sinks) > 0 {
		steps = append(steps, NewSinkStage(opts.Sinks))
	} else {
		p.skip(StepSink, "Write sinks", "no sinks configured")
	}
	for _, step := range steps {
		if err := p.registry.Register(step); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Pipeline) skip(id, name, reason string) {
	p.skipped = append(p.skipped, skippedStep{id: id, name: name, reason: reason})
}

// Registry returns the step registry. Steps registered before Run
// execute after the built-in ones.
func (p *Pipeline) Registry() *Registry {
	return p.registry
}

// Run executes every registered step in order and publishes the reports
// directory atomically. On failure the previous reports directory is left
// untouched and nothing of the run remains on disk.
func (p *Pipeline) Run(ctx context.Context) (*exporter.RunSummary, error) {
	runID := p.runID
	if runID == "" {
		runID = uuid.New().String()
	}
	ctx = infrastructure.WithTraceID(ctx, runID)
	ctx, span := p.tracer.TraceRun(ctx, runID)

	summary, err := p.run(ctx, runID)
	p.tracer.EndRun(ctx, span, summary, err)
	return summary, err
}

func (p *Pipeline) run(ctx context.Context, runID string) (summary *exporter.RunSummary, err error) {
	validator := validation.NewFileValidator(p.logger)
	if err := validator.ValidateOutputDirectory(filepath.Dir(p.paths.ReportsDir)); err != nil {
		return nil, NewStepError(StepCommit, err)
	}

	staging := stagingDir(p.paths.ReportsDir, runID)
	if err := os.RemoveAll(staging); err != nil {
		return nil, NewStepError(StepCommit, fmt.Errorf("clear staging directory: %w", err))
	}
	if err := os.MkdirAll(staging, 0755); err != nil {
		return nil, NewStepError(StepCommit, fmt.Errorf("create staging directory: %w", err))
	}
	defer func() {
		if err == nil {
			return
		}
		if rmErr := os.RemoveAll(staging); rmErr != nil {
			infrastructure.WithError(p.logger, rmErr).WarnContext(ctx, "Failed to remove staging directory",
				slog.String("path", staging))
		}
	}()

	state := NewOperationState(runID, p.paths.Rebase(staging))
	state.Summary.RunID = runID
	state.Summary.StartedAt = p.now().UTC()
	state.Start()
	for _, s := range p.skipped {
		stepState := NewStepState(s.id, s.name)
		stepState.Skip(s.reason)
		state.SetStage(s.id, stepState)
		p.logger.DebugContext(ctx, "Step skipped",
			slog.String("run_id", runID),
			slog.String("step", s.id),
			slog.String("reason", stepState.Message))
	}

	steps := p.registry.List()
	p.logger.InfoContext(ctx, "Pipeline started",
		slog.String("run_id", runID),
		slog.Int("steps", len(steps)),
		slog.String("staging", staging))

	for i, step := range steps {
		if ctxErr := ctx.Err(); ctxErr != nil {
			p.logger.WarnContext(ctx, "Pipeline cancelled",
				slog.String("run_id", runID),
				slog.String("step", step.ID()))
			err = NewCancellationError(step.ID(), ctxErr)
			state.Fail(err)
			return nil, err
		}

		p.logger.InfoContext(ctx, "Executing step",
			slog.String("run_id", runID),
			slog.String("step", step.ID()),
			slog.Int("step_number", i+1),
			slog.Int("total_steps", len(steps)))

		if err = p.executeStep(ctx, state, step); err != nil {
			state.Fail(err)
			return nil, err
		}
	}

	if err = p.commit(ctx, state, staging); err != nil {
		state.Fail(err)
		return nil, err
	}
	state.Complete()

	p.logger.InfoContext(ctx, "Pipeline completed",
		slog.String("run_id", runID),
		slog.String("reports", p.paths.ReportsDir),
		slog.Int("transactions", state.Summary.TotalTransactions),
		slog.Int("row_anomalies", state.Summary.RowLevelAnomalies),
		slog.Int("hourly_anomalies", state.Summary.HourlyAnomalies),
		slog.Duration("duration", state.EndTime.Sub(state.StartTime)))

	out := state.Summary
	return &out, nil
}

// executeStep runs one step under its timeout and span
func (p *Pipeline) executeStep(ctx context.Context, state *OperationState, step Step) error {
	stepState := NewStepState(step.ID(), step.Name())
	state.SetStage(step.ID(), stepState)

	stepCtx, cancel := context.WithTimeout(ctx, p.config.GetStageTimeout(step.ID()))
	defer cancel()
	stepCtx, span := p.tracer.TraceStep(stepCtx, state.ID, step.ID())

	stepState.Start()
	start := time.Now()
	err := step.Execute(stepCtx, state)
	duration := time.Since(start)
	p.tracer.EndStep(stepCtx, span, state.ID, step.ID(), duration, err)

	if err != nil {
		stepState.Fail(err)
		infrastructure.WithError(p.logger, err).ErrorContext(ctx, "Step failed",
			slog.String("run_id", state.ID),
			slog.String("step", step.ID()),
			slog.Duration("duration", duration))
		return NewStepError(step.ID(), err)
	}

	stepState.Complete()
	p.logger.InfoContext(ctx, "Step completed",
		slog.String("run_id", state.ID),
		slog.String("step", step.ID()),
		slog.Duration("duration", duration))
	return nil
}

// commit swaps the staging directory into place of the reports directory
func (p *Pipeline) commit(ctx context.Context, state *OperationState, staging string) error {
	ctx, span := p.tracer.TraceStep(ctx, state.ID, StepCommit)
	start := time.Now()
	err := swapDir(ctx, staging, p.paths.ReportsDir, state.ID, p.logger)
	p.tracer.EndStep(ctx, span, state.ID, StepCommit, time.Since(start), err)
	if err != nil {
		return NewStepError(StepCommit, err)
	}
	return nil
}

func stagingDir(reportsDir, runID string) string {
	return filepath.Join(filepath.Dir(reportsDir), ".staging-"+runID)
}

// removeAll is replaced in tests
var removeAll = os.RemoveAll

// swapDir renames staging to target. An existing target is moved aside
// first and restored if the second rename fails. Once staging is in place
// the swap has succeeded; a leftover backup is only logged.
func swapDir(ctx context.Context, staging, target, runID string, logger *slog.Logger) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("create reports parent: %w", err)
	}

	backup := ""
	if _, err := os.Stat(target); err == nil {
		backup = filepath.Join(filepath.Dir(target), ".previous-"+runID)
		if err := os.RemoveAll(backup); err != nil {
			return fmt.Errorf("clear backup directory: %w", err)
		}
		if err := os.Rename(target, backup); err != nil {
			return fmt.Errorf("move previous reports aside: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat reports directory: %w", err)
	}

	if err := os.Rename(staging, target); err != nil {
		if backup != "" {
			if restoreErr := os.Rename(backup, target); restoreErr != nil {
				return errors.Join(
					fmt.Errorf("install reports: %w", err),
					fmt.Errorf("restore previous reports: %w", restoreErr))
			}
		}
		return fmt.Errorf("install reports: %w", err)
	}

	if backup != "" {
		if err := removeAll(backup); err != nil {
			infrastructure.WithError(logger, err).WarnContext(ctx, "Failed to remove previous reports",
				slog.String("path", backup))
		}
	}
	return nil
}
