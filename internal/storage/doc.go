// Package storage copies report directories to, and input files from,
// object storage.
//
// Locations are URIs of the form gs://bucket/prefix (Google Cloud Storage)
// or s3://bucket/prefix (Amazon S3 and compatible endpoints). Both backends
// implement Store; Publisher walks a local directory and uploads every
// file below <prefix>/<run_id>/.
//
// Example usage:
//
//	pub, err := storage.NewPublisher(ctx, cfg.Storage, logger)
//	if err != nil {
//	    return err
//	}
//	defer pub.Close()
//	uri, err := pub.Publish(ctx, paths.ReportsDir, runID)
package storage
