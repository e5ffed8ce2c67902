package decision

import (
	"math"
	"math/rand"
	"testing"
)

func grid(min, max, step float64) []float64 {
	out := make([]float64, 0)
	for t := min; t <= max+1e-9; t += step {
		out = append(out, t)
	}
	return out
}

// At the threshold equal to the prevalence, treating everyone and
// treating no one break even.
func TestTreatAll_BreakEvenAtPrevalence(t *testing.T) {
	prevalence := 0.3
	if nb := TreatAllNetBenefit(prevalence, prevalence); math.Abs(nb) > 1e-12 {
		t.Errorf("treat-all at t=prevalence should equal treat-none (0), got %v", nb)
	}
	if nb := TreatAllNetBenefit(0.1, prevalence); nb <= 0 {
		t.Errorf("treat-all below prevalence should be positive, got %v", nb)
	}
	if nb := TreatAllNetBenefit(0.5, prevalence); nb >= 0 {
		t.Errorf("treat-all above prevalence should be negative, got %v", nb)
	}
}

func TestAnalyze_CoversGrid(t *testing.T) {
	rng := rand.New(rand.NewSource(47))
	n := 300
	probs := make([]float64, n)
	y := make([]float64, n)
	for i := range probs {
		probs[i] = rng.Float64()
		if rng.Float64() < probs[i] {
			y[i] = 1
		}
	}

	thresholds := grid(0.05, 0.95, 0.01)
	curve := Analyze(probs, y, Options{
		Thresholds:         thresholds,
		BootstrapResamples: 200,
		Seed:               1,
	})

	if len(curve.Points) != len(thresholds) {
		t.Fatalf("curve has %d points for a %d-threshold grid", len(curve.Points), len(thresholds))
	}
	for _, pt := range curve.Points {
		if pt.TreatNone != 0 {
			t.Fatal("treat-none must be identically zero")
		}
		if pt.Lower > pt.NetBenefit || pt.NetBenefit > pt.Upper {
			t.Errorf("band [%v, %v] does not bracket the estimate %v at t=%v",
				pt.Lower, pt.Upper, pt.NetBenefit, pt.Threshold)
		}
	}
}

// An informative model should dominate treat-all over the high end of
// the grid.
func TestAnalyze_InformativeModelBeatsTreatAll(t *testing.T) {
	rng := rand.New(rand.NewSource(53))
	n := 500
	probs := make([]float64, n)
	y := make([]float64, n)
	for i := range probs {
		probs[i] = rng.Float64()
		if rng.Float64() < probs[i] {
			y[i] = 1
		}
	}

	curve := Analyze(probs, y, Options{
		Thresholds:         grid(0.6, 0.9, 0.05),
		BootstrapResamples: 300,
		Seed:               2,
	})
	for _, pt := range curve.Points {
		if pt.NetBenefit < pt.TreatAll-0.02 {
			t.Errorf("calibrated model below treat-all at t=%v: %v < %v",
				pt.Threshold, pt.NetBenefit, pt.TreatAll)
		}
	}
}

func TestAnalyze_CaseControlReweighting(t *testing.T) {
	// Half cases, half controls in the sample; population prevalence 0.1
	n := 400
	probs := make([]float64, n)
	y := make([]float64, n)
	for i := range probs {
		if i < n/2 {
			y[i] = 1
			probs[i] = 0.9
		} else {
			probs[i] = 0.1
		}
	}

	popPrev := 0.1
	thresholds := []float64{0.5}
	curve := Analyze(probs, y, Options{
		Thresholds:           thresholds,
		BootstrapResamples:   200,
		CaseControl:          true,
		PopulationPrevalence: popPrev,
		Seed:                 3,
	})

	// With perfect separation, weighted TP rate is the population
	// prevalence and there are no false positives.
	want := popPrev
	if math.Abs(curve.Points[0].NetBenefit-want) > 0.02 {
		t.Errorf("case-control net benefit = %v, want near %v", curve.Points[0].NetBenefit, want)
	}
	if got := curve.Points[0].TreatAll; math.Abs(got-TreatAllNetBenefit(0.5, popPrev)) > 1e-12 {
		t.Errorf("treat-all must use the population prevalence, got %v", got)
	}
}

func TestAnalyze_Deterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(59))
	n := 100
	probs := make([]float64, n)
	y := make([]float64, n)
	for i := range probs {
		probs[i] = rng.Float64()
		if rng.Float64() < 0.3 {
			y[i] = 1
		}
	}
	opts := Options{Thresholds: grid(0.1, 0.9, 0.1), BootstrapResamples: 100, Seed: 7}
	first := Analyze(probs, y, opts)
	second := Analyze(probs, y, opts)
	for i := range first.Points {
		if first.Points[i] != second.Points[i] {
			t.Fatal("identical seeds must reproduce the identical curve")
		}
	}
}
