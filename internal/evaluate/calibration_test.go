package evaluate

import (
	"math"
	"math/rand"
	"testing"

	"bayesrisk/domain/model"
	"bayesrisk/internal/logging"
)

// calibratedMatrix builds draws whose predicted probabilities equal
// the true outcome rates, with a little per-draw posterior jitter.
func calibratedMatrix(subjects, draws int, seed int64) (*model.PredictedProbabilityMatrix, []float64) {
	rng := rand.New(rand.NewSource(seed))
	base := make([]float64, subjects)
	y := make([]float64, subjects)
	for j := range base {
		base[j] = 0.05 + 0.9*rng.Float64()
		if rng.Float64() < base[j] {
			y[j] = 1
		}
	}
	probs := make([][]float64, draws)
	for d := range probs {
		row := make([]float64, subjects)
		for j := range row {
			p := base[j] + 0.01*rng.NormFloat64()
			row[j] = math.Min(0.999, math.Max(0.001, p))
		}
		probs[d] = row
	}
	return &model.PredictedProbabilityMatrix{Probs: probs}, y
}

func TestCalibration_WellCalibratedSlope(t *testing.T) {
	probs, y := calibratedMatrix(2000, 200, 9)
	rng := rand.New(rand.NewSource(1))
	curve := Calibration(probs, y, 15, 100, rng, logging.NewLogger(logging.LogLevelError))

	if len(curve.Bins) != 15 {
		t.Fatalf("expected 15 bins, got %d", len(curve.Bins))
	}
	if curve.UsedFallback {
		t.Error("well-spread probabilities should not trigger the fallback")
	}

	// Regress observed on predicted across bins; slope should be 1
	slope := regressionSlope(curve)
	if math.Abs(slope-1) > 0.15 {
		t.Errorf("calibration slope = %v, want 1", slope)
	}

	for i := 1; i < len(curve.Bins); i++ {
		if curve.Bins[i].Predicted < curve.Bins[i-1].Predicted {
			t.Fatal("bins must be ordered by predicted probability")
		}
	}
	for _, bin := range curve.Bins {
		if bin.ObservedLower > bin.Observed || bin.Observed > bin.ObservedUpper {
			t.Errorf("band [%v, %v] does not bracket the median %v",
				bin.ObservedLower, bin.ObservedUpper, bin.Observed)
		}
	}
}

func TestCalibration_DegenerateFallback(t *testing.T) {
	subjects, draws := 200, 50
	rows := make([][]float64, draws)
	for d := range rows {
		row := make([]float64, subjects)
		for j := range row {
			row[j] = 0.3
		}
		rows[d] = row
	}
	probs := &model.PredictedProbabilityMatrix{Probs: rows}
	y := make([]float64, subjects)
	for j := 0; j < 60; j++ {
		y[j] = 1
	}

	rng := rand.New(rand.NewSource(2))
	curve := Calibration(probs, y, 15, 25, rng, logging.NewLogger(logging.LogLevelError))

	if !curve.UsedFallback {
		t.Error("constant probabilities must trigger the equal-width fallback")
	}
	if len(curve.Bins) == 0 || len(curve.Bins) > 15 {
		t.Errorf("fallback curve has %d bins", len(curve.Bins))
	}
}

func TestCalibration_SubsampleLargerThanDraws(t *testing.T) {
	probs, y := calibratedMatrix(100, 20, 4)
	rng := rand.New(rand.NewSource(3))
	curve := Calibration(probs, y, 10, 500, rng, logging.NewLogger(logging.LogLevelError))
	if len(curve.Bins) == 0 {
		t.Fatal("oversampling the draw pool should still produce a curve")
	}
}

func regressionSlope(curve model.CalibrationCurve) float64 {
	n := float64(len(curve.Bins))
	var sx, sy, sxy, sxx float64
	for _, bin := range curve.Bins {
		sx += bin.Predicted
		sy += bin.Observed
		sxy += bin.Predicted * bin.Observed
		sxx += bin.Predicted * bin.Predicted
	}
	return (n*sxy - sx*sy) / (n*sxx - sx*sx)
}
