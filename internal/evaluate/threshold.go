package evaluate

import (
	"sort"

	"bayesrisk/domain/model"
)

// Classify finds the cutoff maximizing Youden's index
// (sensitivity + specificity - 1) over the ROC curve and derives the
// confusion-matrix metrics at it. Subjects with predicted probability
// at or above the cutoff are classified positive.
func Classify(probs, y []float64) model.ClassificationReport {
	candidates := uniqueSorted(probs)

	bestThreshold, bestYouden := 0.5, -1.0
	for _, t := range candidates {
		tp, fp, tn, fn := confusion(probs, y, t)
		sens := safeRatio(float64(tp), float64(tp+fn))
		spec := safeRatio(float64(tn), float64(tn+fp))
		if j := sens + spec - 1; j > bestYouden {
			bestYouden = j
			bestThreshold = t
		}
	}

	tp, fp, tn, fn := confusion(probs, y, bestThreshold)
	n := float64(tp + fp + tn + fn)
	accuracy := safeRatio(float64(tp+tn), n)
	precision := safeRatio(float64(tp), float64(tp+fp))
	recall := safeRatio(float64(tp), float64(tp+fn))
	specificity := safeRatio(float64(tn), float64(tn+fp))
	f1 := safeRatio(2*precision*recall, precision+recall)

	// Cohen's kappa from the marginal agreement expected by chance
	pYes := safeRatio(float64(tp+fp), n) * safeRatio(float64(tp+fn), n)
	pNo := safeRatio(float64(tn+fn), n) * safeRatio(float64(tn+fp), n)
	pe := pYes + pNo
	kappa := 0.0
	if pe != 1 {
		kappa = (accuracy - pe) / (1 - pe)
	}

	return model.ClassificationReport{
		Threshold:      bestThreshold,
		TruePositives:  tp,
		FalsePositives: fp,
		TrueNegatives:  tn,
		FalseNegatives: fn,
		Accuracy:       accuracy,
		Precision:      precision,
		Recall:         recall,
		Specificity:    specificity,
		F1:             f1,
		Kappa:          kappa,
	}
}

func confusion(probs, y []float64, threshold float64) (tp, fp, tn, fn int) {
	for i, p := range probs {
		positive := p >= threshold
		switch {
		case positive && y[i] == 1:
			tp++
		case positive && y[i] == 0:
			fp++
		case !positive && y[i] == 0:
			tn++
		default:
			fn++
		}
	}
	return tp, fp, tn, fn
}

func uniqueSorted(values []float64) []float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	out := sorted[:0]
	for i, v := range sorted {
		if i == 0 || v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}

func safeRatio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}
