// Package evaluate holds the posterior-based model evaluators:
// calibration binning, the AUC posterior, the Hosmer-Lemeshow test,
// and threshold classification metrics.
package evaluate

import (
	"math/rand"
	"sort"

	"github.com/montanaflynn/stats"

	"bayesrisk/domain/model"
	"bayesrisk/internal/logging"
)

// degenerateSpreadSD is the marginal-probability spread below which
// quantile edges collapse and the equal-width fallback takes over.
const degenerateSpreadSD = 1e-6

// Calibration builds the quantile-binned calibration curve with
// posterior uncertainty bands. For each of subsample draws (sampled
// without replacement when enough draws exist), subjects are assigned
// to bins by that draw's predicted probabilities; the curve aggregates
// per-draw bin means by median and 2.5/97.5 percentiles, exposing
// sampling uncertainty directly rather than binomial noise alone.
func Calibration(probs *model.PredictedProbabilityMatrix, y []float64, bins, subsample int, rng *rand.Rand, log *logging.Logger) model.CalibrationCurve {
	marginal := probs.Marginal()
	edges, fallback := binEdges(marginal, bins, log)

	drawIdx := sampleDraws(probs.NumDraws(), subsample, rng)

	nBins := len(edges) - 1
	predicted := make([][]float64, nBins)
	observed := make([][]float64, nBins)

	for _, d := range drawIdx {
		row := probs.Probs[d]
		sumPred := make([]float64, nBins)
		sumObs := make([]float64, nBins)
		count := make([]int, nBins)
		for j, p := range row {
			b := locateBin(edges, p)
			sumPred[b] += p
			sumObs[b] += y[j]
			count[b]++
		}
		for b := 0; b < nBins; b++ {
			if count[b] == 0 {
				continue
			}
			predicted[b] = append(predicted[b], sumPred[b]/float64(count[b]))
			observed[b] = append(observed[b], sumObs[b]/float64(count[b]))
		}
	}

	curve := model.CalibrationCurve{UsedFallback: fallback}
	for b := 0; b < nBins; b++ {
		if len(observed[b]) == 0 {
			continue
		}
		predMed, _ := stats.Median(stats.Float64Data(predicted[b]))
		obsMed, _ := stats.Median(stats.Float64Data(observed[b]))
		lower, _ := stats.Percentile(stats.Float64Data(observed[b]), 2.5)
		upper, _ := stats.Percentile(stats.Float64Data(observed[b]), 97.5)
		curve.Bins = append(curve.Bins, model.CalibrationBin{
			Predicted:     predMed,
			Observed:      obsMed,
			ObservedLower: lower,
			ObservedUpper: upper,
		})
	}
	sort.Slice(curve.Bins, func(i, j int) bool { return curve.Bins[i].Predicted < curve.Bins[j].Predicted })
	return curve
}

// binEdges derives bin boundaries from quantiles of the pooled
// predicted-probability distribution, falling back to equal-width
// edges when the distribution is nearly degenerate and widening
// further when even those collapse.
func binEdges(marginal []float64, bins int, log *logging.Logger) ([]float64, bool) {
	data := stats.Float64Data(marginal)
	sd, _ := stats.StandardDeviation(data)

	fallback := sd < degenerateSpreadSD
	var edges []float64
	if !fallback {
		edges = make([]float64, 0, bins+1)
		min, _ := stats.Min(data)
		max, _ := stats.Max(data)
		edges = append(edges, min)
		for k := 1; k < bins; k++ {
			q, _ := stats.Percentile(data, 100*float64(k)/float64(bins))
			edges = append(edges, q)
		}
		edges = append(edges, max)
		edges = dedupeEdges(edges)
		if len(edges) < 3 {
			fallback = true
		}
	}
	if fallback {
		if log != nil {
			log.Warn("degenerate predicted-probability spread (sd=%.2e), using equal-width calibration bins", sd)
		}
		min, _ := stats.Min(data)
		max, _ := stats.Max(data)
		edges = equalWidthEdges(min, max, bins)
		if len(dedupeEdges(edges)) < 3 {
			// Widen around the mean until at least two bins exist
			mean, _ := stats.Mean(data)
			edges = equalWidthEdges(mean-1e-3, mean+1e-3, bins)
		}
	}
	return edges, fallback
}

func equalWidthEdges(min, max float64, bins int) []float64 {
	edges := make([]float64, bins+1)
	width := (max - min) / float64(bins)
	for k := 0; k <= bins; k++ {
		edges[k] = min + float64(k)*width
	}
	return edges
}

func dedupeEdges(edges []float64) []float64 {
	out := edges[:1]
	for _, e := range edges[1:] {
		if e > out[len(out)-1] {
			out = append(out, e)
		}
	}
	return out
}

// locateBin finds the bin of p; values outside the edge range clamp to
// the outermost bins.
func locateBin(edges []float64, p float64) int {
	n := len(edges) - 1
	return sort.SearchFloat64s(edges[1:n], p)
}

// sampleDraws picks the draw subsample: without replacement when the
// pool is large enough, with replacement otherwise.
func sampleDraws(draws, subsample int, rng *rand.Rand) []int {
	if subsample >= draws {
		idx := make([]int, subsample)
		for i := range idx {
			idx[i] = rng.Intn(draws)
		}
		return idx
	}
	perm := rng.Perm(draws)
	return perm[:subsample]
}
