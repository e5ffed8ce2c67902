// Package diagnostics computes per-parameter MCMC convergence
// statistics: split-Rhat, effective sample size, and the three-way
// convergence label.
package diagnostics

import (
	"math"

	"bayesrisk/domain/model"
)

// Label thresholds, evaluated in order.
const (
	rhatGood      = 1.01
	rhatNeedCheck = 1.05
)

// Report computes the full convergence report for a sample set.
func Report(set *model.PosteriorSampleSet) model.ConvergenceReport {
	report := model.ConvergenceReport{
		Parameters: make([]model.ParameterDiagnostic, len(set.Parameters)),
	}
	for j, name := range set.Parameters {
		sequences := splitChains(set, j)
		rhat := splitRhat(sequences)
		ess := effectiveSampleSize(sequences)
		report.Parameters[j] = model.ParameterDiagnostic{
			Parameter: name,
			Rhat:      rhat,
			ESS:       ess,
			Label:     Classify(rhat),
		}
	}
	return report
}

// Classify maps an Rhat to its convergence label.
func Classify(rhat float64) model.ConvergenceLabel {
	switch {
	case rhat <= rhatGood:
		return model.ConvergenceGood
	case rhat <= rhatNeedCheck:
		return model.ConvergenceNeedCheck
	default:
		return model.ConvergenceBad
	}
}

// splitChains extracts parameter j per chain and halves each chain,
// the split underlying split-Rhat.
func splitChains(set *model.PosteriorSampleSet, j int) [][]float64 {
	half := set.PerChain / 2
	sequences := make([][]float64, 0, 2*set.Chains)
	for c := 0; c < set.Chains; c++ {
		chain := set.Chain(c)
		first := make([]float64, half)
		second := make([]float64, half)
		for i := 0; i < half; i++ {
			first[i] = chain[i][j]
			second[i] = chain[set.PerChain-half+i][j]
		}
		sequences = append(sequences, first, second)
	}
	return sequences
}

// splitRhat is the potential scale reduction factor over the split
// sequences; it approaches 1 as the chains agree.
func splitRhat(sequences [][]float64) float64 {
	m := len(sequences)
	n := len(sequences[0])
	if m < 2 || n < 2 {
		return math.NaN()
	}

	means := make([]float64, m)
	variances := make([]float64, m)
	for s, seq := range sequences {
		means[s], variances[s] = meanVariance(seq)
	}

	_, betweenVar := meanVariance(means)
	b := float64(n) * betweenVar

	w := 0.0
	for _, v := range variances {
		w += v
	}
	w /= float64(m)
	if w == 0 {
		return 1
	}

	varPlus := float64(n-1)/float64(n)*w + b/float64(n)
	return math.Sqrt(varPlus / w)
}

// effectiveSampleSize combines per-sequence autocovariances with the
// between-sequence variance and truncates the autocorrelation sum at
// the first negative paired term (Geyer's initial positive sequence).
func effectiveSampleSize(sequences [][]float64) float64 {
	m := len(sequences)
	n := len(sequences[0])
	if m < 1 || n < 4 {
		return math.NaN()
	}

	means := make([]float64, m)
	variances := make([]float64, m)
	for s, seq := range sequences {
		means[s], variances[s] = meanVariance(seq)
	}
	w := 0.0
	for _, v := range variances {
		w += v
	}
	w /= float64(m)

	_, betweenVar := meanVariance(means)
	b := float64(n) * betweenVar
	varPlus := float64(n-1)/float64(n)*w + b/float64(n)
	if varPlus == 0 {
		return float64(m * n)
	}

	// Lag-t autocovariance averaged over sequences
	acov := func(t int) float64 {
		total := 0.0
		for s, seq := range sequences {
			sum := 0.0
			for i := 0; i+t < n; i++ {
				sum += (seq[i] - means[s]) * (seq[i+t] - means[s])
			}
			total += sum / float64(n)
		}
		return total / float64(m)
	}

	rhoSum := 0.0
	for t := 1; t+1 < n; t += 2 {
		rhoOdd := 1 - (w-acov(t))/varPlus
		rhoEven := 1 - (w-acov(t+1))/varPlus
		pair := rhoOdd + rhoEven
		if pair < 0 {
			break
		}
		rhoSum += pair
	}

	ess := float64(m*n) / (1 + 2*rhoSum)
	if ess > float64(m*n) {
		ess = float64(m * n)
	}
	return ess
}

func meanVariance(values []float64) (float64, float64) {
	n := float64(len(values))
	if n == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean := sum / n
	if n < 2 {
		return mean, 0
	}
	ss := 0.0
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return mean, ss / (n - 1)
}
