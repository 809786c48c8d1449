// Package config provides configuration loading for the anomaly pipeline.
//
// # Configuration Sources
//
// Configuration is assembled from the following sources, later sources
// overriding earlier ones:
//
//  1. Struct defaults (`default:` tags)
//  2. Environment variables with the TXA_ prefix
//  3. An optional YAML file (TXA_CONFIG, config.yaml or configs/config.yaml)
//
// # Environment Variables
//
// Ambient settings follow the pattern TXA_<SECTION>_<FIELD>:
//
//	TXA_LOGGING_LEVEL=debug
//	TXA_PATHS_DATA_DIR=/srv/data
//	TXA_TELEMETRY_METRICS_TEXTFILE=/var/lib/node_exporter/txanomaly.prom
//	TXA_STORAGE_PUBLISH_URI=gs://reports-bucket/anomaly
//
// Detection parameters (thresholds, model sizes, fusion weights) are not
// read from the environment. They come from anomaly.DefaultConfig and may
// only be overridden by the `detection:` block of the YAML file.
//
// # Path Management
//
// Paths derives every input and output location from the data directory:
//
//	paths, err := config.NewPaths(cfg.Paths, dataDirFlag)
//	rows := paths.GetReportPath(config.RowAnomaliesFile)
package config
