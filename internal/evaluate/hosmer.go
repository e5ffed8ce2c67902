package evaluate

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"

	"bayesrisk/domain/model"
)

// HosmerLemeshow runs the goodness-of-fit test on per-subject
// predicted probabilities. The group count adapts to the event count,
// g = min(maxGroups, events/5), never below minGroups; subjects are
// partitioned into g quantile groups of predicted probability and the
// chi-square statistic compares observed with expected events per
// group, on g-2 degrees of freedom.
func HosmerLemeshow(probs, y []float64, minGroups, maxGroups int) (model.HLTestResult, error) {
	n := len(probs)
	if n != len(y) {
		return model.HLTestResult{}, fmt.Errorf("probability and outcome lengths differ: %d vs %d", n, len(y))
	}

	events := 0
	for _, v := range y {
		if v == 1 {
			events++
		}
	}
	g := events / 5
	if g > maxGroups {
		g = maxGroups
	}
	if g < minGroups {
		g = minGroups
	}
	if n < g {
		return model.HLTestResult{}, fmt.Errorf("%d subjects cannot fill %d groups", n, g)
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return probs[idx[a]] < probs[idx[b]] })

	chiSq := 0.0
	for group := 0; group < g; group++ {
		lo := group * n / g
		hi := (group + 1) * n / g
		observed, expected := 0.0, 0.0
		size := float64(hi - lo)
		for _, i := range idx[lo:hi] {
			observed += y[i]
			expected += probs[i]
		}
		denom := expected * (1 - expected/size)
		if denom <= 0 {
			continue
		}
		d := observed - expected
		chiSq += d * d / denom
	}

	chi := distuv.ChiSquared{K: float64(g - 2)}
	return model.HLTestResult{
		Groups:    g,
		ChiSquare: chiSq,
		PValue:    1 - chi.CDF(chiSq),
	}, nil
}
