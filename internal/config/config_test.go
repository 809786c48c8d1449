package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// TestLoadFile tests precedence between defaults, environment and file
func TestLoadFile(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		file        string
		wantErr     bool
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "defaults with no env vars and no file",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, Default(), cfg)
			},
		},
		{
			name: "environment overrides defaults",
			env: map[string]string{
				"TXA_LOGGING_LEVEL":              "debug",
				"TXA_PATHS_DATA_DIR":             "/srv/data",
				"TXA_TELEMETRY_METRICS_TEXTFILE": "/tmp/txa.prom",
				"TXA_REPORT_WORKBOOK":            "true",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.Equal(t, "/srv/data", cfg.Paths.DataDir)
				assert.Equal(t, "/tmp/txa.prom", cfg.Telemetry.MetricsTextfile)
				assert.True(t, cfg.Report.Workbook)
				assert.Equal(t, "cleaned_transactions.csv", cfg.Paths.InputFile)
			},
		},
		{
			name: "file overrides environment",
			env:  map[string]string{"TXA_LOGGING_LEVEL": "debug", "TXA_LOGGING_OUTPUT": "both"},
			file: `
logging:
  level: warn
report:
  plots: false
`,
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "warn", cfg.Logging.Level)
				assert.Equal(t, "both", cfg.Logging.Output, "keys absent from the file keep the env value")
				assert.False(t, cfg.Report.Plots)
			},
		},
		{
			name: "detection block overlays defaults",
			file: `
detection:
  trees: 50
  resid_z_threshold: 3.0
  seed: 7
`,
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 50, cfg.Detection.Trees)
				assert.Equal(t, 3.0, cfg.Detection.ResidZThreshold)
				assert.Equal(t, int64(7), cfg.Detection.Seed)
				assert.Equal(t, 4.0, cfg.Detection.CountZThreshold)
				assert.Equal(t, 0.65, cfg.Detection.FinalThreshold)
			},
		},
		{
			name: "detection is not read from the environment",
			env:  map[string]string{"TXA_DETECTION_TREES": "5"},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 200, cfg.Detection.Trees)
			},
		},
		{
			name:    "invalid log level",
			env:     map[string]string{"TXA_LOGGING_LEVEL": "loud"},
			wantErr: true,
		},
		{
			name:    "even seasonal smoother",
			file:    "detection:\n  seasonal_smoother: 8\n",
			wantErr: true,
		},
		{
			name:    "contamination out of range",
			file:    "detection:\n  contamination: 0.9\n",
			wantErr: true,
		},
		{
			name:    "unsupported publish scheme",
			env:     map[string]string{"TXA_STORAGE_PUBLISH_URI": "ftp://host/reports"},
			wantErr: true,
		},
		{
			name:    "sink driver without dsn",
			env:     map[string]string{"TXA_SINK_DRIVER": "sqlite"},
			wantErr: true,
		},
		{
			name: "sink with dsn",
			env:  map[string]string{"TXA_SINK_DRIVER": "sqlite", "TXA_SINK_DSN": "file:results.db"},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "sqlite", cfg.Sink.Driver)
			},
		},
		{
			name:    "malformed yaml",
			file:    "logging: [unclosed",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.file != "" {
				path = writeConfigFile(t, tt.file)
			}

			cfg, err := LoadFile(path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.validateCfg(t, cfg)
		})
	}
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidationErrorsWrapSentinel(t *testing.T) {
	cfg := Default()
	cfg.Report.PlotWidth = 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = Default()
	cfg.Detection.Neighbors = 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	assert.NoError(t, Default().Validate())
}

func TestLoadUsesConfigEnv(t *testing.T) {
	path := writeConfigFile(t, "paths:\n  data_dir: from-file\n")
	t.Setenv(ConfigFileEnv, path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Paths.DataDir)
}
