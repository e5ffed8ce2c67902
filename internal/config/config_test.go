package config

import (
	"errors"
	"testing"

	"bayesrisk/domain/core"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
	if cfg.Sampling.Chains != 4 {
		t.Errorf("default chain count: got %d", cfg.Sampling.Chains)
	}
	if cfg.Calibration.Bins != 15 {
		t.Errorf("default calibration bins: got %d", cfg.Calibration.Bins)
	}
	if cfg.Sampling.TargetAccept != 0.99 {
		t.Errorf("default target acceptance: got %v", cfg.Sampling.TargetAccept)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("MCMC_CHAINS", "2")
	t.Setenv("MCMC_SEED", "999")
	t.Setenv("DCA_BOOTSTRAP", "50")
	t.Setenv("PRIOR_GROUP_SCALE", "0.25")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Sampling.Chains != 2 || cfg.Sampling.Seed != 999 {
		t.Errorf("sampling overrides not applied: %+v", cfg.Sampling)
	}
	if cfg.Decision.BootstrapResamples != 50 {
		t.Errorf("bootstrap override not applied: %d", cfg.Decision.BootstrapResamples)
	}
	if cfg.Priors.GroupScale != 0.25 {
		t.Errorf("prior override not applied: %v", cfg.Priors.GroupScale)
	}
}

// The case-control prevalence correction is a required explicit input,
// never a default.
func TestValidate_CaseControlRequiresPrevalence(t *testing.T) {
	t.Setenv("DCA_CASE_CONTROL", "true")
	if _, err := Load(); err == nil {
		t.Fatal("case-control without a population prevalence must fail validation")
	}

	t.Setenv("DCA_POPULATION_PREVALENCE", "0.12")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("explicit prevalence should validate: %v", err)
	}
	if cfg.Decision.PopulationPrevalence != 0.12 {
		t.Errorf("prevalence not applied: %v", cfg.Decision.PopulationPrevalence)
	}
}

func TestValidate_BadValues(t *testing.T) {
	cases := map[string]string{
		"MCMC_CHAINS":        "0",
		"MCMC_TARGET_ACCEPT": "1.5",
		"CALIBRATION_BINS":   "1",
		"DCA_THRESHOLD_MIN":  "0",
		"HL_MIN_GROUPS":      "1",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load()
			if !errors.Is(err, core.ErrConfig) {
				t.Fatalf("%s=%s should fail validation with a config error, got %v", key, value, err)
			}
		})
	}
}

func TestThresholdGrid(t *testing.T) {
	t.Setenv("DCA_THRESHOLD_MIN", "0.05")
	t.Setenv("DCA_THRESHOLD_MAX", "0.95")
	t.Setenv("DCA_THRESHOLD_STEP", "0.01")
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	grid := cfg.ThresholdGrid()
	if len(grid) != 91 {
		t.Errorf("expected 91 grid points, got %d", len(grid))
	}
	if grid[0] != 0.05 {
		t.Errorf("grid starts at %v", grid[0])
	}
}
