package evaluate

import (
	"math"
	"math/rand"
	"testing"

	"bayesrisk/domain/model"
)

func TestRankAUC_PerfectSeparation(t *testing.T) {
	scores := []float64{0.1, 0.2, 0.3, 0.8, 0.9}
	y := []float64{0, 0, 0, 1, 1}
	if auc := RankAUC(scores, y); auc != 1 {
		t.Errorf("perfectly separated scores should give AUC 1, got %v", auc)
	}
	// Inverted scores give the mirror image
	inverted := []float64{0.9, 0.8, 0.7, 0.2, 0.1}
	if auc := RankAUC(inverted, y); auc != 0 {
		t.Errorf("anti-separated scores should give AUC 0, got %v", auc)
	}
}

func TestRankAUC_Ties(t *testing.T) {
	scores := []float64{0.5, 0.5, 0.5, 0.5}
	y := []float64{0, 1, 0, 1}
	if auc := RankAUC(scores, y); math.Abs(auc-0.5) > 1e-12 {
		t.Errorf("all-tied scores should give AUC 0.5 by midranks, got %v", auc)
	}
}

func TestRankAUC_DegenerateOutcomes(t *testing.T) {
	scores := []float64{0.2, 0.4, 0.6}
	if auc := RankAUC(scores, []float64{1, 1, 1}); !math.IsNaN(auc) {
		t.Errorf("single-class outcome should give NaN, got %v", auc)
	}
}

// Label-independent random predictors center the AUC posterior at 0.5.
func TestAUCPosterior_NullCentersAtHalf(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	subjects, draws := 400, 300

	y := make([]float64, subjects)
	for j := range y {
		if rng.Float64() < 0.3 {
			y[j] = 1
		}
	}
	rows := make([][]float64, draws)
	for d := range rows {
		row := make([]float64, subjects)
		for j := range row {
			row[j] = rng.Float64()
		}
		rows[d] = row
	}

	post := AUCPosterior(&model.PredictedProbabilityMatrix{Probs: rows}, y)
	if len(post.Samples) != draws {
		t.Fatalf("expected %d AUC samples, got %d", draws, len(post.Samples))
	}

	mean := 0.0
	for _, a := range post.Samples {
		mean += a
	}
	mean /= float64(draws)
	if math.Abs(mean-0.5) > 0.02 {
		t.Errorf("null AUC posterior mean = %v, want near 0.5", mean)
	}
	if math.Abs(post.Peak-0.5) > 0.05 {
		t.Errorf("null AUC posterior peak = %v, want near 0.5", post.Peak)
	}
}

func TestKDEPeak_LocatesCluster(t *testing.T) {
	rng := rand.New(rand.NewSource(23))
	samples := make([]float64, 0, 1000)
	// Tight cluster at 0.8 with a thin background
	for i := 0; i < 900; i++ {
		samples = append(samples, 0.8+0.01*rng.NormFloat64())
	}
	for i := 0; i < 100; i++ {
		samples = append(samples, rng.Float64())
	}
	if peak := kdePeak(samples); math.Abs(peak-0.8) > 0.05 {
		t.Errorf("KDE peak = %v, want near 0.8", peak)
	}
}
