package sampler

import (
	"bayesrisk/domain/dataset"
	"bayesrisk/domain/model"
	"bayesrisk/internal/config"
)

// BuildPriors constructs the structured prior of the study model:
// zero-centered Normal priors on every coefficient, a tighter scale for
// the multi-level factor's dummies, a wide non-shrinking intercept, and
// optional autoscaling of the remaining priors by predictor spread.
func BuildPriors(dm *dataset.DesignMatrix, pc config.PriorConfig) model.PriorSpec {
	spec := model.PriorSpec{
		Intercept:    model.Prior{Location: 0, Scale: pc.InterceptScale},
		Coefficients: make(map[string]model.Prior, dm.P()-1),
	}
	for j := 1; j < dm.P(); j++ {
		if dm.GroupCoef[j] {
			spec.Coefficients[dm.Names[j]] = model.Prior{Location: 0, Scale: pc.GroupScale}
			continue
		}
		spec.Coefficients[dm.Names[j]] = model.Prior{Location: 0, Scale: pc.CoefScale, Autoscale: pc.Autoscale}
	}
	return spec
}

// FlatPriors gives every non-intercept coefficient the same scale, the
// simplified prior used by leave-one-out refits.
func FlatPriors(dm *dataset.DesignMatrix, scale float64, interceptScale float64) model.PriorSpec {
	spec := model.PriorSpec{
		Intercept:    model.Prior{Location: 0, Scale: interceptScale},
		Coefficients: make(map[string]model.Prior, dm.P()-1),
	}
	for j := 1; j < dm.P(); j++ {
		spec.Coefficients[dm.Names[j]] = model.Prior{Location: 0, Scale: scale}
	}
	return spec
}

// resolveScales flattens a PriorSpec onto the design's coefficient
// order, applying autoscaling against each column's empirical spread.
func resolveScales(dm *dataset.DesignMatrix, priors model.PriorSpec) (locs, scales []float64) {
	p := dm.P()
	locs = make([]float64, p)
	scales = make([]float64, p)
	locs[0] = priors.Intercept.Location
	scales[0] = priors.Intercept.Scale
	for j := 1; j < p; j++ {
		prior := priors.Coefficients[dm.Names[j]]
		locs[j] = prior.Location
		scales[j] = prior.Scale
		if prior.Autoscale && dm.ColumnSD[j] > 0 {
			scales[j] = prior.Scale / dm.ColumnSD[j]
		}
	}
	return locs, scales
}
