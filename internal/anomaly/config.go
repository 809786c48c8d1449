package anomaly

import (
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"
)

// Detection defaults
const (
	DefaultPeriod             = 24
	DefaultMinPeriods         = 2
	DefaultSeasonalSmoother   = 7
	DefaultInnerIterations    = 2
	DefaultRobustIterations   = 15
	DefaultResidZThreshold    = 3.5
	DefaultCountZThreshold    = 4.0
	DefaultTrees              = 200
	DefaultMaxSamples         = 256
	DefaultContamination      = 0.01
	DefaultNeighbors          = 20
	DefaultSeed               = 42
	DefaultModelFlagThreshold = 0.7
	DefaultIsolationWeight    = 0.55
	DefaultDensityWeight      = 0.45
	DefaultTimeSeriesWeight   = 0.15
	DefaultFinalThreshold     = 0.65
)

// Config holds every detection parameter. It is passed by value into each
// stage and never modified after validation.
type Config struct {
	// Time-series detection
	Period           int     `yaml:"period" validate:"gte=2"`
	MinPeriods       int     `yaml:"min_periods" validate:"gte=2"`
	SeasonalSmoother int     `yaml:"seasonal_smoother" validate:"gte=3"`
	InnerIterations  int     `yaml:"inner_iterations" validate:"gte=1"`
	RobustIterations int     `yaml:"robust_iterations" validate:"gte=0"`
	ResidZThreshold  float64 `yaml:"resid_z_threshold" validate:"gt=0"`
	CountZThreshold  float64 `yaml:"count_z_threshold" validate:"gt=0"`

	// Row models
	Trees              int     `yaml:"trees" validate:"gte=1"`
	MaxSamples         int     `yaml:"max_samples" validate:"gte=2"`
	Contamination      float64 `yaml:"contamination" validate:"gt=0,lte=0.5"`
	Neighbors          int     `yaml:"neighbors" validate:"gte=1"`
	Seed               int64   `yaml:"seed"`
	ModelFlagThreshold float64 `yaml:"model_flag_threshold" validate:"gte=0,lte=1"`

	// Fusion
	IsolationWeight  float64 `yaml:"isolation_weight" validate:"gte=0"`
	DensityWeight    float64 `yaml:"density_weight" validate:"gte=0"`
	TimeSeriesWeight float64 `yaml:"time_series_weight" validate:"gte=0"`
	FinalThreshold   float64 `yaml:"final_threshold" validate:"gte=0,lte=1"`
}

// DefaultConfig returns the documented detection parameters
func DefaultConfig() Config {
	return Config{
		Period:             DefaultPeriod,
		MinPeriods:         DefaultMinPeriods,
		SeasonalSmoother:   DefaultSeasonalSmoother,
		InnerIterations:    DefaultInnerIterations,
		RobustIterations:   DefaultRobustIterations,
		ResidZThreshold:    DefaultResidZThreshold,
		CountZThreshold:    DefaultCountZThreshold,
		Trees:              DefaultTrees,
		MaxSamples:         DefaultMaxSamples,
		Contamination:      DefaultContamination,
		Neighbors:          DefaultNeighbors,
		Seed:               DefaultSeed,
		ModelFlagThreshold: DefaultModelFlagThreshold,
		IsolationWeight:    DefaultIsolationWeight,
		DensityWeight:      DefaultDensityWeight,
		TimeSeriesWeight:   DefaultTimeSeriesWeight,
		FinalThreshold:     DefaultFinalThreshold,
	}
}

// Validate checks parameter ranges
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	if c.SeasonalSmoother%2 == 0 {
		return fmt.Errorf("seasonal smoother must be odd, got %d", c.SeasonalSmoother)
	}
	return nil
}

// MinLength is the shortest hourly series that is decomposed
func (c Config) MinLength() int {
	return c.Period * c.MinPeriods
}

// TrendSmoother is the smallest odd integer not below
// 1.5*period/(1-1.5/seasonal).
func (c Config) TrendSmoother() int {
	t := int(math.Ceil(1.5 * float64(c.Period) / (1 - 1.5/float64(c.SeasonalSmoother))))
	if t%2 == 0 {
		t++
	}
	return t
}

// LowPassSmoother is the smallest odd integer greater than the period
func (c Config) LowPassSmoother() int {
	l := c.Period + 1
	if l%2 == 0 {
		l++
	}
	return l
}
