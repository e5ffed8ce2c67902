package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"bayesrisk/domain/core"
	"bayesrisk/domain/model"
	"bayesrisk/internal/config"
	"bayesrisk/internal/logging"
	"bayesrisk/internal/testkit"
)

// reducedConfig keeps the end-to-end run fast while exercising every
// stage.
func reducedConfig(t *testing.T) *config.Config {
	t.Setenv("MCMC_CHAINS", "2")
	t.Setenv("MCMC_WARMUP", "400")
	t.Setenv("MCMC_ITERATIONS", "400")
	t.Setenv("MCMC_TARGET_ACCEPT", "0.9")
	t.Setenv("MCMC_SEED", "61")
	t.Setenv("LOO_CHAINS", "1")
	t.Setenv("LOO_WARMUP", "60")
	t.Setenv("LOO_ITERATIONS", "60")
	t.Setenv("DCA_BOOTSTRAP", "200")
	t.Setenv("CALIBRATION_TRAIN_DRAWS", "200")
	t.Setenv("CALIBRATION_VALIDATE_DRAWS", "100")

	cfg, err := config.Load()
	if err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestPipeline_EndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("full pipeline run skipped in short mode")
	}

	cfg := reducedConfig(t)
	log := logging.NewLogger(logging.LogLevelError)
	train := testkit.DefaultScenario(67).Generate()

	pipeline := NewPipeline(cfg, log)
	result, err := pipeline.Run(context.Background(), train, nil)
	if err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}

	// Convergence: every parameter at worst "Need check"
	for _, p := range result.Convergence.Parameters {
		if p.Rhat > 1.05 {
			t.Errorf("parameter %s: Rhat %v > 1.05", p.Parameter, p.Rhat)
		}
	}

	if got := len(result.CalibrationTrain.Bins); got == 0 || got > cfg.Calibration.Bins {
		t.Errorf("calibration curve has %d bins, configured %d", got, cfg.Calibration.Bins)
	}

	if got, want := len(result.Decision.Points), len(cfg.ThresholdGrid()); got != want {
		t.Errorf("decision curve covers %d of %d grid points", got, want)
	}

	c := result.Classification
	for name, v := range map[string]float64{
		"accuracy": c.Accuracy, "precision": c.Precision, "recall": c.Recall,
		"specificity": c.Specificity, "f1": c.F1,
	} {
		if v < 0 || v > 1 {
			t.Errorf("%s = %v outside [0,1]", name, v)
		}
	}
	if c.Kappa < -1 || c.Kappa > 1 {
		t.Errorf("kappa = %v outside [-1,1]", c.Kappa)
	}

	if len(result.AUC.Samples) != cfg.Sampling.Chains*cfg.Sampling.Iterations {
		t.Errorf("AUC posterior has %d samples", len(result.AUC.Samples))
	}
	if result.AUC.Peak < 0.5 {
		t.Errorf("informative model should discriminate: AUC peak %v", result.AUC.Peak)
	}

	if len(result.CrossVal.Predictions) != train.N {
		t.Errorf("cross-validation produced %d predictions for %d subjects",
			len(result.CrossVal.Predictions), train.N)
	}
	if len(result.CrossVal.Failures) != 0 {
		t.Errorf("unexpected refit failures: %v", result.CrossVal.Failures)
	}

	if result.HosmerLemeshow.Groups < cfg.HosmerLemeshow.MinGroups ||
		result.HosmerLemeshow.Groups > cfg.HosmerLemeshow.MaxGroups {
		t.Errorf("HL group count %d outside configured bounds", result.HosmerLemeshow.Groups)
	}

	// Artifacts land on disk and pass the integrity check
	dir := t.TempDir()
	if err := WriteArtifacts(result, dir); err != nil {
		t.Fatalf("artifact write failed: %v", err)
	}
	for _, file := range []string{
		"posterior_summary.csv", "convergence_report.csv", "calibration_train.csv",
		"auc_posterior.csv", "crossval_predictions.csv", "decision_curve.csv",
		"classification_report.csv", "hosmer_lemeshow.csv",
	} {
		if _, err := os.Stat(filepath.Join(dir, file)); err != nil {
			t.Errorf("missing artifact file %s", file)
		}
	}
}

func TestPipeline_ExternalValidation(t *testing.T) {
	if testing.Short() {
		t.Skip("full pipeline run skipped in short mode")
	}

	cfg := reducedConfig(t)
	log := logging.NewLogger(logging.LogLevelError)
	train := testkit.DefaultScenario(71).Generate()
	validation := testkit.DefaultScenario(73).Generate()

	result, err := NewPipeline(cfg, log).Run(context.Background(), train, validation)
	if err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}
	if result.CalibrationValidate == nil {
		t.Fatal("external validation must produce a validation calibration curve")
	}

	dir := t.TempDir()
	if err := WriteArtifacts(result, dir); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "calibration_validate.csv")); err != nil {
		t.Error("missing calibration_validate.csv")
	}
}

// Subjects whose refits failed must drop out of the decision-curve
// input entirely; a failed refit is not a zero-probability prediction.
func TestDecisionInputs_ExcludesFailedRefits(t *testing.T) {
	cv := &model.CrossValidationResult{
		Predictions: []float64{0.8, 0, 0.4, 0, 0.6},
		Failures: map[int]error{
			1: errors.New("chain init"),
			3: errors.New("chain init"),
		},
	}
	outcome := []float64{1, 1, 0, 0, 1}

	preds, outcomes, err := decisionInputs(cv, outcome)
	if err != nil {
		t.Fatalf("decisionInputs failed: %v", err)
	}
	wantPreds := []float64{0.8, 0.4, 0.6}
	wantOutcomes := []float64{1, 0, 1}
	if len(preds) != len(wantPreds) {
		t.Fatalf("expected %d usable predictions, got %d", len(wantPreds), len(preds))
	}
	for i := range wantPreds {
		if preds[i] != wantPreds[i] || outcomes[i] != wantOutcomes[i] {
			t.Errorf("slot %d: got (%v, %v), want (%v, %v)",
				i, preds[i], outcomes[i], wantPreds[i], wantOutcomes[i])
		}
	}
}

func TestDecisionInputs_AllFailedAborts(t *testing.T) {
	cv := &model.CrossValidationResult{
		Predictions: make([]float64, 4),
		Failures: map[int]error{
			0: errors.New("canceled"), 1: errors.New("canceled"),
			2: errors.New("canceled"), 3: errors.New("canceled"),
		},
	}

	_, _, err := decisionInputs(cv, []float64{1, 0, 1, 0})
	if err == nil {
		t.Fatal("expected an error when every refit failed")
	}
	if !core.IsConvergenceFailure(err) {
		t.Errorf("expected a convergence-class error, got %v", err)
	}
}
