package operations

import (
	"time"
)

// Default step timeouts
const (
	DefaultStageTimeout   = 30 * time.Minute
	DefaultPublishTimeout = 10 * time.Minute
	DefaultSinkTimeout    = 10 * time.Minute
)

// Config represents the pipeline execution configuration
type Config struct {
	// Step-specific timeouts
	StageTimeouts map[string]time.Duration `json:"stage_timeouts"`
}

// NewConfig returns the default pipeline configuration
func NewConfig() *Config {
	return &Config{
		StageTimeouts: map[string]time.Duration{
			StepPublish: DefaultPublishTimeout,
			StepSink:    DefaultSinkTimeout,
		},
	}
}

// GetStageTimeout returns the timeout for a specific Step
func (c *Config) GetStageTimeout(stageID string) time.Duration {
	if timeout, ok := c.StageTimeouts[stageID]; ok {
		return timeout
	}
	return DefaultStageTimeout
}

// SetStageTimeout sets the timeout for a specific Step
func (c *Config) SetStageTimeout(stageID string, timeout time.Duration) {
	if c.StageTimeouts == nil {
		c.StageTimeouts = make(map[string]time.Duration)
	}
	c.StageTimeouts[stageID] = timeout
}
