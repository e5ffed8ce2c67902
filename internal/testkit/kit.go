// Package testkit generates synthetic study datasets from known
// logistic models, the fixtures behind the statistical tests.
package testkit

import (
	"math"
	"math/rand"

	"bayesrisk/domain/dataset"
)

// LogisticScenario describes a synthetic cohort drawn from a known
// logistic model over the default study schema.
type LogisticScenario struct {
	N    int
	Seed int64
	// StageCounts fixes how many subjects fall in each of the four
	// stage levels; the counts must sum to N.
	StageCounts [4]int
	Intercept   float64
	// Coefs are true coefficients keyed by design-column name
	// (stage.mild, stage.moderate, stage.severe, sex, smoker, age,
	// bmi, biomarker_a, biomarker_b). Continuous predictors are drawn
	// standard normal, so these live on the standardized scale.
	Coefs map[string]float64
}

// Generate draws the cohort. The same scenario and seed always yield
// the same dataset.
func (s LogisticScenario) Generate() *dataset.Dataset {
	rng := rand.New(rand.NewSource(s.Seed))
	schema := dataset.DefaultSchema()

	stage := make([]int, 0, s.N)
	for level, count := range s.StageCounts {
		for k := 0; k < count; k++ {
			stage = append(stage, level)
		}
	}
	rng.Shuffle(len(stage), func(i, j int) { stage[i], stage[j] = stage[j], stage[i] })

	ds := &dataset.Dataset{
		Schema:      schema,
		N:           s.N,
		Outcome:     make([]float64, s.N),
		Categorical: map[string][]int{"stage": stage, "sex": nil, "smoker": nil},
		Continuous:  make(map[string][]float64),
	}
	sex := make([]int, s.N)
	smoker := make([]int, s.N)
	for i := 0; i < s.N; i++ {
		if rng.Float64() < 0.5 {
			sex[i] = 1
		}
		if rng.Float64() < 0.3 {
			smoker[i] = 1
		}
	}
	ds.Categorical["sex"] = sex
	ds.Categorical["smoker"] = smoker

	for _, name := range []string{"age", "bmi", "biomarker_a", "biomarker_b"} {
		values := make([]float64, s.N)
		for i := range values {
			values[i] = rng.NormFloat64()
		}
		ds.Continuous[name] = values
	}

	stageNames := []string{"", "stage.mild", "stage.moderate", "stage.severe"}
	for i := 0; i < s.N; i++ {
		eta := s.Intercept
		if stage[i] > 0 {
			eta += s.Coefs[stageNames[stage[i]]]
		}
		eta += float64(sex[i]) * s.Coefs["sex"]
		eta += float64(smoker[i]) * s.Coefs["smoker"]
		for _, name := range []string{"age", "bmi", "biomarker_a", "biomarker_b"} {
			eta += ds.Continuous[name][i] * s.Coefs[name]
		}
		if rng.Float64() < sigmoid(eta) {
			ds.Outcome[i] = 1
		}
	}
	return ds
}

// DefaultScenario is the end-to-end test cohort: 200 subjects,
// outcome prevalence near 0.3, stage counts [140,30,20,10].
func DefaultScenario(seed int64) LogisticScenario {
	return LogisticScenario{
		N:           200,
		Seed:        seed,
		StageCounts: [4]int{140, 30, 20, 10},
		Intercept:   -1.1,
		Coefs: map[string]float64{
			"stage.mild":     0.4,
			"stage.moderate": 0.8,
			"stage.severe":   1.2,
			"sex":            0.3,
			"smoker":         0.5,
			"age":            0.6,
			"bmi":            0.2,
			"biomarker_a":    0.8,
			"biomarker_b":    -0.4,
		},
	}
}

func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}
