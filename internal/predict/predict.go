// Package predict maps posterior draws and a design matrix onto the
// predicted-probability matrix consumed by every downstream evaluator.
package predict

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"bayesrisk/domain/dataset"
	"bayesrisk/domain/model"
)

// Probabilities applies the logit link row-wise per draw: one batched
// matrix product B X^T followed by the inverse link. The design matrix
// may differ from the one used for fitting, which is how external
// validation reuses a training fit.
func Probabilities(set *model.PosteriorSampleSet, dm *dataset.DesignMatrix) (*model.PredictedProbabilityMatrix, error) {
	draws := set.NumDraws()
	if draws == 0 {
		return nil, fmt.Errorf("posterior sample set is empty")
	}
	p := len(set.Parameters)
	if dm.P() != p {
		return nil, fmt.Errorf("design matrix has %d coefficients, posterior has %d", dm.P(), p)
	}

	flat := make([]float64, draws*p)
	for i, draw := range set.Draws {
		copy(flat[i*p:(i+1)*p], draw)
	}
	betas := mat.NewDense(draws, p, flat)

	var eta mat.Dense
	eta.Mul(betas, dm.X.T())

	n := dm.Rows()
	probs := make([][]float64, draws)
	for i := 0; i < draws; i++ {
		row := make([]float64, n)
		for j := 0; j < n; j++ {
			row[j] = invLogit(eta.At(i, j))
		}
		probs[i] = row
	}
	return &model.PredictedProbabilityMatrix{Probs: probs}, nil
}

func invLogit(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}
