// Package operations runs the anomaly detection pipeline as an ordered
// sequence of steps.
//
// Core Components:
//
// Pipeline: builds the default steps from the configuration, executes them
// in registration order and commits the result. Every step writes into a
// staging directory next to the reports directory. The staging directory
// replaces the reports directory only after the last step succeeded, so a
// failed or cancelled run leaves the previous reports untouched.
//
// Step: a single unit of work. The built-in steps are load, detect,
// tables, workbook, plots, summary, publish and sink. The workbook, plots,
// publish and sink steps are registered only when enabled.
//
// Registry: keeps the registered steps in order.
//
// OperationState: carries the loaded records, the detection result and
// the run summary between steps.
//
// Example usage:
//
//	pipeline, err := operations.NewPipeline(cfg, paths, operations.Options{
//		Logger: logger,
//		OTel:   providers,
//	})
//	if err != nil {
//		return err
//	}
//	summary, err := pipeline.Run(ctx)
//
// Step failures are returned as *errors.AppError values whose type names
// the failure class and whose step names the failed step.
package operations
