package dataset

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Standardization holds training-set centering and scaling for the
// continuous predictors. Validation data must reuse the training
// parameters so both datasets live on the same scale.
type Standardization struct {
	Mean map[string]float64
	SD   map[string]float64
}

// DesignMatrix is the model-ready encoding of a Dataset: an intercept
// column, dummy columns for each categorical factor (reference level
// omitted), and standardized continuous columns.
type DesignMatrix struct {
	X     *mat.Dense // n x p, intercept first
	Names []string   // coefficient names, "(Intercept)" first
	// GroupCoef marks coefficients belonging to the designated
	// multi-level factor, which carry tighter shrinkage priors.
	GroupCoef []bool
	// ColumnSD is the empirical spread of each design column, used
	// for prior autoscaling. 1 for the intercept.
	ColumnSD []float64
	Std      Standardization
}

// Standardize computes centering and scaling from this dataset's
// continuous columns.
func (ds *Dataset) Standardize() Standardization {
	st := Standardization{
		Mean: make(map[string]float64, len(ds.Continuous)),
		SD:   make(map[string]float64, len(ds.Continuous)),
	}
	for name, values := range ds.Continuous {
		mean, sd := meanSD(values)
		if sd == 0 {
			sd = 1
		}
		st.Mean[name] = mean
		st.SD[name] = sd
	}
	return st
}

// Encode builds the design matrix using the dataset's own
// standardization. Use EncodeWith for validation data.
func (ds *Dataset) Encode() *DesignMatrix {
	return ds.EncodeWith(ds.Standardize())
}

// EncodeWith builds the design matrix using externally supplied
// standardization parameters.
func (ds *Dataset) EncodeWith(st Standardization) *DesignMatrix {
	group := ds.Schema.CategoricalGroup()

	names := []string{"(Intercept)"}
	groupCoef := []bool{false}
	type column struct {
		fill func(row int) float64
	}
	cols := []column{{fill: func(int) float64 { return 1 }}}

	for _, spec := range ds.Schema.Columns {
		switch spec.Role {
		case RoleCategorical, RoleBinary:
			codes := ds.Categorical[spec.Name]
			inGroup := group != nil && spec.Name == group.Name
			// one dummy per non-reference level
			for level := 1; level < len(spec.Levels); level++ {
				level := level
				name := spec.Name
				if spec.Role == RoleCategorical {
					name += "." + spec.Levels[level]
				}
				names = append(names, name)
				groupCoef = append(groupCoef, inGroup)
				cols = append(cols, column{fill: func(row int) float64 {
					if codes[row] == level {
						return 1
					}
					return 0
				}})
			}
		case RoleContinuous:
			values := ds.Continuous[spec.Name]
			mean, sd := st.Mean[spec.Name], st.SD[spec.Name]
			if sd == 0 {
				sd = 1
			}
			names = append(names, spec.Name)
			groupCoef = append(groupCoef, false)
			cols = append(cols, column{fill: func(row int) float64 {
				return (values[row] - mean) / sd
			}})
		}
	}

	p := len(cols)
	x := mat.NewDense(ds.N, p, nil)
	for j, c := range cols {
		for i := 0; i < ds.N; i++ {
			x.Set(i, j, c.fill(i))
		}
	}

	columnSD := make([]float64, p)
	columnSD[0] = 1
	for j := 1; j < p; j++ {
		_, sd := meanSD(mat.Col(nil, j, x))
		if sd == 0 {
			sd = 1
		}
		columnSD[j] = sd
	}

	return &DesignMatrix{X: x, Names: names, GroupCoef: groupCoef, ColumnSD: columnSD, Std: st}
}

// P returns the number of model coefficients including the intercept.
func (dm *DesignMatrix) P() int {
	return len(dm.Names)
}

// Rows returns the number of subjects in the design.
func (dm *DesignMatrix) Rows() int {
	r, _ := dm.X.Dims()
	return r
}

func meanSD(values []float64) (float64, float64) {
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
	return mean, math.Sqrt(ss / (n - 1))
}
