package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"txanomaly/internal/anomaly"
	apperrors "txanomaly/internal/errors"
)

// EnvPrefix namespaces every environment variable read by Load.
const EnvPrefix = "TXA"

// ErrInvalidConfig is returned when a loaded configuration fails validation.
var ErrInvalidConfig = apperrors.ErrInvalidConfig

// Config represents the complete application configuration
type Config struct {
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
	Report    ReportConfig    `yaml:"report" envconfig:"REPORT"`
	Storage   StorageConfig   `yaml:"storage" envconfig:"STORAGE"`
	Sink      SinkConfig      `yaml:"sink" envconfig:"SINK"`
	Quality   QualityConfig   `yaml:"quality" envconfig:"QUALITY"`

	// Detection parameters come from the YAML file only.
	Detection anomaly.Config `yaml:"detection" ignored:"true"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info" validate:"oneof=debug info warn warning error"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/txanomaly.log"`
}

// PathsConfig contains file system layout relative to the data directory
type PathsConfig struct {
	DataDir    string `yaml:"data_dir" envconfig:"DATA_DIR" default:"data" validate:"required"`
	InputFile  string `yaml:"input_file" envconfig:"INPUT_FILE" default:"cleaned_transactions.csv" validate:"required"`
	RawFile    string `yaml:"raw_file" envconfig:"RAW_FILE" default:"transactions.csv" validate:"required"`
	ReportsDir string `yaml:"reports_dir" envconfig:"REPORTS_DIR" default:"reports/anomaly" validate:"required"`
	VisualsDir string `yaml:"visuals_dir" envconfig:"VISUALS_DIR" default:"visuals" validate:"required"`
}

// TelemetryConfig controls tracing and run metrics
type TelemetryConfig struct {
	EnableTracing   bool   `yaml:"enable_tracing" envconfig:"ENABLE_TRACING" default:"false"`
	TraceExporter   string `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" default:"stdout" validate:"oneof=stdout none"`
	EnableMetrics   bool   `yaml:"enable_metrics" envconfig:"ENABLE_METRICS" default:"true"`
	MetricsTextfile string `yaml:"metrics_textfile" envconfig:"METRICS_TEXTFILE"`
	Environment     string `yaml:"environment" envconfig:"ENVIRONMENT" default:"development"`
}

// ReportConfig controls the optional report artifacts
type ReportConfig struct {
	Workbook   bool    `yaml:"workbook" envconfig:"WORKBOOK" default:"false"`
	Plots      bool    `yaml:"plots" envconfig:"PLOTS" default:"true"`
	PlotWidth  float64 `yaml:"plot_width" envconfig:"PLOT_WIDTH" default:"12" validate:"gt=0"`
	PlotHeight float64 `yaml:"plot_height" envconfig:"PLOT_HEIGHT" default:"4" validate:"gt=0"`
}

// StorageConfig configures publishing of the report directory to object storage
type StorageConfig struct {
	PublishURI      string `yaml:"publish_uri" envconfig:"PUBLISH_URI" validate:"omitempty,startswith=gs://|startswith=s3://"`
	S3Region        string `yaml:"s3_region" envconfig:"S3_REGION" default:"us-east-1"`
	S3Endpoint      string `yaml:"s3_endpoint" envconfig:"S3_ENDPOINT"`
	CredentialsFile string `yaml:"credentials_file" envconfig:"CREDENTIALS_FILE"`

	// UploadRate caps published objects per second. Zero is unlimited.
	UploadRate float64 `yaml:"upload_rate" envconfig:"UPLOAD_RATE" default:"0" validate:"gte=0"`
}

// SinkConfig configures the optional database sinks for result tables
type SinkConfig struct {
	Driver          string `yaml:"driver" envconfig:"DRIVER" validate:"omitempty,oneof=sqlite postgres"`
	DSN             string `yaml:"dsn" envconfig:"DSN" validate:"required_with=Driver"`
	BigQueryProject string `yaml:"bigquery_project" envconfig:"BIGQUERY_PROJECT"`
	BigQueryDataset string `yaml:"bigquery_dataset" envconfig:"BIGQUERY_DATASET" validate:"required_with=BigQueryProject"`
	BigQueryTable   string `yaml:"bigquery_table" envconfig:"BIGQUERY_TABLE" default:"transaction_anomalies"`
}

// QualityConfig configures the data-quality checks run by txquality
type QualityConfig struct {
	// Channels lists the accepted channel values. Empty disables the check.
	Channels      []string `yaml:"channels" envconfig:"CHANNELS"`
	MaxGapSeconds int      `yaml:"max_gap_seconds" envconfig:"MAX_GAP_SECONDS" default:"7200" validate:"gt=0"`
}

// Load loads configuration from defaults, environment variables and an
// optional YAML file. Values present in the file take precedence over the
// environment, which takes precedence over struct defaults.
func Load() (*Config, error) {
	return LoadFile(getConfigFilePath())
}

// LoadFile is Load with an explicit config file path. An empty path skips
// the file.
func LoadFile(configFile string) (*Config, error) {
	cfg := Config{Detection: anomaly.DefaultConfig()}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if configFile != "" {
		if err := loadFromFile(configFile, &cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file %s: %w", configFile, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// loadFromFile overlays the keys present in a YAML file onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate checks struct tags and the detection parameters
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := c.Detection.Validate(); err != nil {
		return fmt.Errorf("%w: detection: %v", ErrInvalidConfig, err)
	}
	return nil
}

// getConfigFilePath returns the file named by TXA_CONFIG, or else the first
// config file found in the usual locations
func getConfigFilePath() string {
	if explicit := os.Getenv(ConfigFileEnv); explicit != "" {
		return explicit
	}

	locations := []string{
		"config.yaml",
		"configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Default returns the configuration produced by Load with an empty
// environment and no config file.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "console",
			FilePath: "logs/txanomaly.log",
		},
		Paths: PathsConfig{
			DataDir:    "data",
			InputFile:  "cleaned_transactions.csv",
			RawFile:    "transactions.csv",
			ReportsDir: "reports/anomaly",
			VisualsDir: "visuals",
		},
		Telemetry: TelemetryConfig{
			TraceExporter: "stdout",
			EnableMetrics: true,
			Environment:   "development",
		},
		Report: ReportConfig{
			Plots:      true,
			PlotWidth:  12,
			PlotHeight: 4,
		},
		Storage: StorageConfig{
			S3Region: "us-east-1",
		},
		Sink: SinkConfig{
			BigQueryTable: "transaction_anomalies",
		},
		Quality: QualityConfig{
			MaxGapSeconds: 7200,
		},
		Detection: anomaly.DefaultConfig(),
	}
}
