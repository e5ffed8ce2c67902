// Package model holds the entities flowing between pipeline stages.
// Every type here is produced once by its stage and never mutated.
package model

// Prior is a Normal prior on one coefficient.
type Prior struct {
	Location  float64
	Scale     float64
	Autoscale bool // divide Scale by the design column's empirical spread
}

// PriorSpec maps every model coefficient to exactly one prior. The
// intercept carries its own separate, wider prior.
type PriorSpec struct {
	Intercept    Prior
	Coefficients map[string]Prior
}

// PosteriorSampleSet is the pooled post-warmup output of one fit:
// one row per retained draw across all chains, one column per
// coefficient on the original (pre-reparameterization) basis.
type PosteriorSampleSet struct {
	Draws      [][]float64 // draws x parameters
	Parameters []string
	Chains     int
	PerChain   int // retained draws per chain; chain c owns rows [c*PerChain, (c+1)*PerChain)
}

// NumDraws returns the total pooled draw count.
func (s *PosteriorSampleSet) NumDraws() int {
	return len(s.Draws)
}

// Chain returns the rows belonging to chain c.
func (s *PosteriorSampleSet) Chain(c int) [][]float64 {
	return s.Draws[c*s.PerChain : (c+1)*s.PerChain]
}

// Column extracts one parameter across all pooled draws.
func (s *PosteriorSampleSet) Column(j int) []float64 {
	col := make([]float64, len(s.Draws))
	for i, draw := range s.Draws {
		col[i] = draw[j]
	}
	return col
}

// ConvergenceLabel classifies a parameter's Rhat.
type ConvergenceLabel string

const (
	ConvergenceGood      ConvergenceLabel = "Good"
	ConvergenceNeedCheck ConvergenceLabel = "Need check"
	ConvergenceBad       ConvergenceLabel = "Bad"
)

// ParameterDiagnostic holds per-parameter convergence statistics.
type ParameterDiagnostic struct {
	Parameter string
	Rhat      float64
	ESS       float64
	Label     ConvergenceLabel
}

// ConvergenceReport covers every parameter of a fit.
type ConvergenceReport struct {
	Parameters []ParameterDiagnostic
}

// MaxRhat returns the largest Rhat in the report.
func (r ConvergenceReport) MaxRhat() float64 {
	max := 0.0
	for _, p := range r.Parameters {
		if p.Rhat > max {
			max = p.Rhat
		}
	}
	return max
}

// ParameterSummary is one row of the posterior summary table.
type ParameterSummary struct {
	Parameter string
	Mean      float64
	SD        float64
	Q2_5      float64
	Median    float64
	Q97_5     float64
}

// PredictedProbabilityMatrix holds model-implied outcome probabilities,
// one row per posterior draw, one column per subject.
type PredictedProbabilityMatrix struct {
	Probs [][]float64 // draws x subjects
}

// NumDraws returns the draw count.
func (m *PredictedProbabilityMatrix) NumDraws() int { return len(m.Probs) }

// NumSubjects returns the subject count.
func (m *PredictedProbabilityMatrix) NumSubjects() int {
	if len(m.Probs) == 0 {
		return 0
	}
	return len(m.Probs[0])
}

// Marginal pools every draw's probabilities into one flat slice.
func (m *PredictedProbabilityMatrix) Marginal() []float64 {
	out := make([]float64, 0, m.NumDraws()*m.NumSubjects())
	for _, row := range m.Probs {
		out = append(out, row...)
	}
	return out
}

// Mean returns the per-subject posterior mean probability.
func (m *PredictedProbabilityMatrix) Mean() []float64 {
	n := m.NumSubjects()
	out := make([]float64, n)
	for _, row := range m.Probs {
		for j, p := range row {
			out[j] += p
		}
	}
	for j := range out {
		out[j] /= float64(m.NumDraws())
	}
	return out
}

// CalibrationBin is one point of a calibration curve.
type CalibrationBin struct {
	Predicted     float64 // median of per-draw bin mean predictions
	Observed      float64 // median of per-draw bin observed rates
	ObservedLower float64 // 2.5th percentile
	ObservedUpper float64 // 97.5th percentile
}

// CalibrationCurve orders bins by predicted probability.
type CalibrationCurve struct {
	Bins         []CalibrationBin
	UsedFallback bool // equal-width edges were substituted for quantiles
}

// AUCPosterior is one ROC AUC per posterior draw plus its KDE peak.
type AUCPosterior struct {
	Samples []float64
	Peak    float64
}

// CrossValidationResult holds one out-of-sample prediction per subject.
type CrossValidationResult struct {
	Predictions []float64
	// Failures maps subject index to the refit error. A failed refit
	// is surfaced here, never masked as a zero prediction.
	Failures map[int]error
}

// Completed pairs each successful prediction with its outcome,
// dropping every subject whose refit failed. Downstream consumers
// must use this rather than Predictions when Failures is non-empty.
func (r *CrossValidationResult) Completed(outcome []float64) (preds, outcomes []float64) {
	preds = make([]float64, 0, len(r.Predictions))
	outcomes = make([]float64, 0, len(r.Predictions))
	for i, p := range r.Predictions {
		if _, failed := r.Failures[i]; failed {
			continue
		}
		preds = append(preds, p)
		outcomes = append(outcomes, outcome[i])
	}
	return preds, outcomes
}

// DecisionPoint is one threshold of a decision curve.
type DecisionPoint struct {
	Threshold  float64
	NetBenefit float64
	Lower      float64
	Upper      float64
	TreatAll   float64
	TreatNone  float64
}

// DecisionCurve spans the configured threshold grid.
type DecisionCurve struct {
	Points []DecisionPoint
}

// ClassificationReport holds the Youden-optimal cutoff and the
// confusion-matrix metrics derived at it.
type ClassificationReport struct {
	Threshold      float64
	TruePositives  int
	FalsePositives int
	TrueNegatives  int
	FalseNegatives int
	Accuracy       float64
	Precision      float64
	Recall         float64
	Specificity    float64
	F1             float64
	Kappa          float64
}

// HLTestResult is the Hosmer-Lemeshow goodness-of-fit outcome.
type HLTestResult struct {
	Groups    int
	ChiSquare float64
	PValue    float64
}
