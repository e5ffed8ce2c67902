package evaluate

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"

	"bayesrisk/domain/model"
)

// kdeGridSize is the resolution of the density grid used to locate
// the posterior AUC peak.
const kdeGridSize = 512

// AUCPosterior computes the ROC AUC of every posterior draw's
// probability vector against the true outcomes, returning the full
// distribution and its kernel-density peak.
func AUCPosterior(probs *model.PredictedProbabilityMatrix, y []float64) model.AUCPosterior {
	samples := make([]float64, probs.NumDraws())
	for d, row := range probs.Probs {
		samples[d] = RankAUC(row, y)
	}
	return model.AUCPosterior{
		Samples: samples,
		Peak:    kdePeak(samples),
	}
}

// RankAUC is the Mann-Whitney form of the ROC AUC with midranks for
// ties.
func RankAUC(scores, y []float64) float64 {
	n := len(scores)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return scores[idx[a]] < scores[idx[b]] })

	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j+1 < n && scores[idx[j+1]] == scores[idx[i]] {
			j++
		}
		// Midrank for the tie block [i, j]
		mid := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			ranks[idx[k]] = mid
		}
		i = j + 1
	}

	pos, rankSum := 0.0, 0.0
	for i := 0; i < n; i++ {
		if y[i] == 1 {
			pos++
			rankSum += ranks[i]
		}
	}
	neg := float64(n) - pos
	if pos == 0 || neg == 0 {
		return math.NaN()
	}
	return (rankSum - pos*(pos+1)/2) / (pos * neg)
}

// kdePeak locates the mode of a Gaussian kernel density estimate with
// Silverman's bandwidth over a fixed grid.
func kdePeak(samples []float64) float64 {
	finite := make([]float64, 0, len(samples))
	for _, s := range samples {
		if !math.IsNaN(s) {
			finite = append(finite, s)
		}
	}
	if len(finite) == 0 {
		return math.NaN()
	}

	data := stats.Float64Data(finite)
	sd, _ := stats.StandardDeviation(data)
	min, _ := stats.Min(data)
	max, _ := stats.Max(data)
	if sd == 0 || min == max {
		return finite[0]
	}

	h := 1.06 * sd * math.Pow(float64(len(finite)), -0.2)
	norm := distuv.UnitNormal

	bestX, bestDensity := min, math.Inf(-1)
	for g := 0; g < kdeGridSize; g++ {
		x := min + (max-min)*float64(g)/float64(kdeGridSize-1)
		density := 0.0
		for _, s := range finite {
			density += norm.Prob((x - s) / h)
		}
		if density > bestDensity {
			bestDensity = density
			bestX = x
		}
	}
	return bestX
}
