// Package config builds the immutable run configuration every pipeline
// stage receives. No stage reads process-wide state; everything a stage
// needs is carried here.
package config

import (
	"os"
	"runtime"
	"strconv"

	"bayesrisk/domain/core"
)

// Config represents the complete run configuration
type Config struct {
	Sampling       SamplingConfig
	Priors         PriorConfig
	Calibration    CalibrationConfig
	Decision       DecisionConfig
	HosmerLemeshow HLConfig
	CrossVal       CrossValConfig
	Paths          PathConfig
}

// SamplingConfig holds MCMC settings for the primary fit
type SamplingConfig struct {
	Chains       int
	Warmup       int
	Iterations   int     // retained sampling iterations per chain
	TargetAccept float64 // step-size adaptation target, near 1
	Seed         int64
	CoreCap      int     // bound on concurrently running chains / refits
}

// PriorConfig holds the prior scales of the model
type PriorConfig struct {
	GroupScale     float64 // multi-level factor coefficients, tighter shrinkage
	CoefScale      float64 // remaining non-intercept coefficients
	InterceptScale float64 // wider, never shrunk
	Autoscale      bool    // scale non-group priors by predictor spread
}

// CalibrationConfig holds calibration-curve settings
type CalibrationConfig struct {
	Bins                  int
	TrainDrawSubsample    int
	ValidateDrawSubsample int
}

// DecisionConfig holds decision-curve-analysis settings
type DecisionConfig struct {
	ThresholdMin         float64
	ThresholdMax         float64
	ThresholdStep        float64
	BootstrapResamples   int
	CaseControl          bool
	PopulationPrevalence float64 // required when CaseControl is set
}

// HLConfig bounds the Hosmer-Lemeshow group count
type HLConfig struct {
	MinGroups int
	MaxGroups int
}

// CrossValConfig holds the reduced-cost settings for leave-one-out refits
type CrossValConfig struct {
	Chains     int
	Warmup     int
	Iterations int
	FlatScale  float64 // single prior scale for all coefficients
}

// PathConfig holds input/output locations
type PathConfig struct {
	TrainFile      string
	ValidationFile string // optional external-validation dataset
	OutputDir      string
}

// Load reads configuration from the environment, applying study defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Sampling: SamplingConfig{
			Chains:       getEnvInt("MCMC_CHAINS", 4),
			Warmup:       getEnvInt("MCMC_WARMUP", 1000),
			Iterations:   getEnvInt("MCMC_ITERATIONS", 1000),
			TargetAccept: getEnvFloat("MCMC_TARGET_ACCEPT", 0.99),
			Seed:         int64(getEnvInt("MCMC_SEED", 20240613)),
			CoreCap:      getEnvInt("CORE_CAP", defaultCoreCap()),
		},
		Priors: PriorConfig{
			GroupScale:     getEnvFloat("PRIOR_GROUP_SCALE", 0.5),
			CoefScale:      getEnvFloat("PRIOR_COEF_SCALE", 2.5),
			InterceptScale: getEnvFloat("PRIOR_INTERCEPT_SCALE", 10),
			Autoscale:      getEnvBool("PRIOR_AUTOSCALE", true),
		},
		Calibration: CalibrationConfig{
			Bins:                  getEnvInt("CALIBRATION_BINS", 15),
			TrainDrawSubsample:    getEnvInt("CALIBRATION_TRAIN_DRAWS", 2000),
			ValidateDrawSubsample: getEnvInt("CALIBRATION_VALIDATE_DRAWS", 500),
		},
		Decision: DecisionConfig{
			ThresholdMin:         getEnvFloat("DCA_THRESHOLD_MIN", 0.05),
			ThresholdMax:         getEnvFloat("DCA_THRESHOLD_MAX", 0.95),
			ThresholdStep:        getEnvFloat("DCA_THRESHOLD_STEP", 0.01),
			BootstrapResamples:   getEnvInt("DCA_BOOTSTRAP", 1000),
			CaseControl:          getEnvBool("DCA_CASE_CONTROL", false),
			PopulationPrevalence: getEnvFloat("DCA_POPULATION_PREVALENCE", -1),
		},
		HosmerLemeshow: HLConfig{
			MinGroups: getEnvInt("HL_MIN_GROUPS", 5),
			MaxGroups: getEnvInt("HL_MAX_GROUPS", 10),
		},
		CrossVal: CrossValConfig{
			Chains:     getEnvInt("LOO_CHAINS", 2),
			Warmup:     getEnvInt("LOO_WARMUP", 250),
			Iterations: getEnvInt("LOO_ITERATIONS", 250),
			FlatScale:  getEnvFloat("LOO_PRIOR_SCALE", 2.5),
		},
		Paths: PathConfig{
			TrainFile:      os.Getenv("TRAIN_FILE"),
			ValidationFile: os.Getenv("VALIDATION_FILE"),
			OutputDir:      getEnvString("OUTPUT_DIR", "artifacts"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration once, at the pipeline boundary.
func (c *Config) Validate() error {
	if c.Sampling.Chains < 1 {
		return core.NewConfigError("MCMC_CHAINS", "must be at least 1")
	}
	if c.Sampling.Warmup < 1 || c.Sampling.Iterations < 1 {
		return core.NewConfigError("MCMC_WARMUP/MCMC_ITERATIONS", "must be at least 1")
	}
	if c.Sampling.TargetAccept <= 0 || c.Sampling.TargetAccept >= 1 {
		return core.NewConfigError("MCMC_TARGET_ACCEPT", "must lie in (0,1)")
	}
	if c.Priors.GroupScale <= 0 || c.Priors.CoefScale <= 0 || c.Priors.InterceptScale <= 0 {
		return core.NewConfigError("PRIOR_*_SCALE", "prior scales must be positive")
	}
	if c.Calibration.Bins < 2 {
		return core.NewConfigError("CALIBRATION_BINS", "must be at least 2")
	}
	if c.Decision.ThresholdMin <= 0 || c.Decision.ThresholdMax >= 1 ||
		c.Decision.ThresholdMin >= c.Decision.ThresholdMax || c.Decision.ThresholdStep <= 0 {
		return core.NewConfigError("DCA_THRESHOLD_*", "grid must satisfy 0 < min < max < 1 with positive step")
	}
	if c.Decision.CaseControl && (c.Decision.PopulationPrevalence <= 0 || c.Decision.PopulationPrevalence >= 1) {
		// The correction constant must be supplied explicitly, never assumed.
		return core.NewConfigError("DCA_POPULATION_PREVALENCE", "required in (0,1) when DCA_CASE_CONTROL is set")
	}
	if c.HosmerLemeshow.MinGroups < 2 || c.HosmerLemeshow.MaxGroups < c.HosmerLemeshow.MinGroups {
		return core.NewConfigError("HL_MIN_GROUPS/HL_MAX_GROUPS", "need 2 <= min <= max")
	}
	return nil
}

// ThresholdGrid expands the decision-curve grid.
func (c *Config) ThresholdGrid() []float64 {
	grid := make([]float64, 0)
	for t := c.Decision.ThresholdMin; t <= c.Decision.ThresholdMax+1e-9; t += c.Decision.ThresholdStep {
		grid = append(grid, t)
	}
	return grid
}

func defaultCoreCap() int {
	cores := runtime.NumCPU()
	if cores > 4 {
		return 4
	}
	return cores
}

func getEnvString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
