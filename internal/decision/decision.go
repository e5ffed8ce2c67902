// Package decision computes bootstrap net-benefit curves for
// decision-curve analysis, with case-control reweighting toward a
// supplied target population prevalence.
package decision

import (
	"math/rand"

	"github.com/montanaflynn/stats"

	"bayesrisk/domain/model"
)

// Options configures the analysis.
type Options struct {
	Thresholds         []float64
	BootstrapResamples int
	// CaseControl reweights the observed case and control proportions
	// to PopulationPrevalence; when unset, the observed prevalence is
	// used and weights are 1.
	CaseControl          bool
	PopulationPrevalence float64
	Seed                 int64
}

// Analyze bootstraps the net-benefit curve over the threshold grid.
// Each resample draws subjects with replacement at the input size and
// contributes one net-benefit value per threshold; the point estimate
// is the median and the band the 2.5/97.5 percentiles. Treat-all and
// treat-none reference curves are deterministic.
func Analyze(probs, y []float64, opts Options) model.DecisionCurve {
	n := len(probs)
	rng := rand.New(rand.NewSource(opts.Seed))

	prevalence := observedPrevalence(y)
	caseWeight, controlWeight := 1.0, 1.0
	if opts.CaseControl && prevalence > 0 && prevalence < 1 {
		caseWeight = opts.PopulationPrevalence / prevalence
		controlWeight = (1 - opts.PopulationPrevalence) / (1 - prevalence)
		prevalence = opts.PopulationPrevalence
	}

	// One resample yields a full curve; collect per-threshold columns.
	samples := make([][]float64, len(opts.Thresholds))
	for t := range samples {
		samples[t] = make([]float64, opts.BootstrapResamples)
	}
	idx := make([]int, n)
	for b := 0; b < opts.BootstrapResamples; b++ {
		for i := range idx {
			idx[i] = rng.Intn(n)
		}
		for t, threshold := range opts.Thresholds {
			samples[t][b] = netBenefit(probs, y, idx, threshold, caseWeight, controlWeight)
		}
	}

	curve := model.DecisionCurve{Points: make([]model.DecisionPoint, len(opts.Thresholds))}
	for t, threshold := range opts.Thresholds {
		column := stats.Float64Data(samples[t])
		median, _ := stats.Median(column)
		lower, _ := stats.Percentile(column, 2.5)
		upper, _ := stats.Percentile(column, 97.5)
		curve.Points[t] = model.DecisionPoint{
			Threshold:  threshold,
			NetBenefit: median,
			Lower:      lower,
			Upper:      upper,
			TreatAll:   TreatAllNetBenefit(threshold, prevalence),
			TreatNone:  0,
		}
	}
	return curve
}

// netBenefit is the weighted true-positive rate minus the weighted
// false-positive rate scaled by the odds of the threshold.
func netBenefit(probs, y []float64, idx []int, threshold, caseWeight, controlWeight float64) float64 {
	tp, fp, total := 0.0, 0.0, 0.0
	for _, i := range idx {
		if y[i] == 1 {
			total += caseWeight
			if probs[i] >= threshold {
				tp += caseWeight
			}
		} else {
			total += controlWeight
			if probs[i] >= threshold {
				fp += controlWeight
			}
		}
	}
	if total == 0 {
		return 0
	}
	return tp/total - fp/total*threshold/(1-threshold)
}

// TreatAllNetBenefit is the reference curve under universal
// intervention; it crosses treat-none exactly at the prevalence.
func TreatAllNetBenefit(threshold, prevalence float64) float64 {
	return prevalence - (1-prevalence)*threshold/(1-threshold)
}

func observedPrevalence(y []float64) float64 {
	if len(y) == 0 {
		return 0
	}
	events := 0.0
	for _, v := range y {
		events += v
	}
	return events / float64(len(y))
}
