package dataset

import (
	"fmt"
	"math"
	"strconv"

	"bayesrisk/domain/core"
)

// RawTable is the untyped output of an ingestion adapter: a header row
// and string cells, exactly as read from the file.
type RawTable struct {
	Columns []string
	Rows    [][]string
}

// Dataset is the validated, typed study table. Immutable after
// validation; every downstream stage reads it, none mutates it.
type Dataset struct {
	Schema      Schema
	N           int
	Outcome     []float64            // 0 or 1 per subject
	Categorical map[string][]int     // level index per subject, reference = 0
	Continuous  map[string][]float64 // mean-imputed where missing
	Warnings    []string             // data-quality findings, reported not hidden
}

// sparseLevelThreshold flags categorical levels observed in fewer
// subjects than this as near-empty.
const sparseLevelThreshold = 5

// ValidateTable is the typed validation boundary of the pipeline: it
// either returns a Dataset or a SchemaError. Later stages assume a
// Dataset is well-formed and perform no schema checks of their own.
func ValidateTable(table RawTable, schema Schema) (*Dataset, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}

	colIndex := make(map[string]int, len(table.Columns))
	for i, name := range table.Columns {
		colIndex[name] = i
	}
	for _, required := range schema.RequiredColumns() {
		if _, ok := colIndex[required]; !ok {
			return nil, core.NewMissingColumnError(required)
		}
	}

	n := len(table.Rows)
	ds := &Dataset{
		Schema:      schema,
		N:           n,
		Outcome:     make([]float64, n),
		Categorical: make(map[string][]int),
		Continuous:  make(map[string][]float64),
	}

	// Outcome must be present and strictly binary
	yIdx := colIndex[schema.Outcome]
	for r, row := range table.Rows {
		cell := row[yIdx]
		if cell == "" {
			return nil, fmt.Errorf("%w: row %d", core.ErrMissingOutcome, r)
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil || (v != 0 && v != 1) {
			return nil, core.NewNonBinaryOutcomeError(r, cell)
		}
		ds.Outcome[r] = v
	}

	for _, spec := range schema.Columns {
		idx := colIndex[spec.Name]
		switch spec.Role {
		case RoleCategorical, RoleBinary:
			codes, err := encodeLevels(table.Rows, idx, spec)
			if err != nil {
				return nil, err
			}
			ds.Categorical[spec.Name] = codes
			ds.warnSparseLevels(spec, codes)
		case RoleContinuous:
			values, warn := parseContinuous(table.Rows, idx, spec.Name)
			ds.Continuous[spec.Name] = values
			if warn != "" {
				ds.Warnings = append(ds.Warnings, warn)
			}
		}
	}

	return ds, nil
}

// encodeLevels maps cell strings onto the schema's fixed vocabulary.
// A cell outside the vocabulary is a schema violation, not a new level.
func encodeLevels(rows [][]string, idx int, spec ColumnSpec) ([]int, error) {
	levelCode := make(map[string]int, len(spec.Levels))
	for code, level := range spec.Levels {
		levelCode[level] = code
	}

	codes := make([]int, len(rows))
	seen := make(map[string]bool)
	for r, row := range rows {
		cell := row[idx]
		code, ok := levelCode[cell]
		if !ok {
			seen[cell] = true
			continue
		}
		codes[r] = code
	}
	if len(seen) > 0 {
		got := make([]string, 0, len(seen))
		for level := range seen {
			got = append(got, level)
		}
		return nil, core.NewInvalidLevelsError(spec.Name, got, spec.Levels)
	}
	return codes, nil
}

// parseContinuous reads a numeric column, mean-imputing missing cells.
// Missingness is a warning, not an error.
func parseContinuous(rows [][]string, idx int, name string) ([]float64, string) {
	values := make([]float64, len(rows))
	missing := make([]int, 0)
	sum, count := 0.0, 0
	for r, row := range rows {
		cell := row[idx]
		v, err := strconv.ParseFloat(cell, 64)
		if cell == "" || err != nil || math.IsNaN(v) {
			missing = append(missing, r)
			continue
		}
		values[r] = v
		sum += v
		count++
	}
	if len(missing) == 0 {
		return values, ""
	}
	mean := 0.0
	if count > 0 {
		mean = sum / float64(count)
	}
	for _, r := range missing {
		values[r] = mean
	}
	return values, fmt.Sprintf("column %q: %d missing values mean-imputed", name, len(missing))
}

func (ds *Dataset) warnSparseLevels(spec ColumnSpec, codes []int) {
	counts := make([]int, len(spec.Levels))
	for _, c := range codes {
		counts[c]++
	}
	for code, count := range counts {
		if count > 0 && count < sparseLevelThreshold {
			ds.Warnings = append(ds.Warnings,
				fmt.Sprintf("column %q: level %q near-empty (%d subjects)", spec.Name, spec.Levels[code], count))
		}
	}
}

// EventCount returns the number of subjects with outcome 1.
func (ds *Dataset) EventCount() int {
	events := 0
	for _, y := range ds.Outcome {
		if y == 1 {
			events++
		}
	}
	return events
}

// Prevalence returns the observed outcome proportion.
func (ds *Dataset) Prevalence() float64 {
	if ds.N == 0 {
		return 0
	}
	return float64(ds.EventCount()) / float64(ds.N)
}

// WithoutSubject returns a copy of the dataset with subject i removed,
// for leave-one-out refitting. The receiver is not modified.
func (ds *Dataset) WithoutSubject(i int) *Dataset {
	out := &Dataset{
		Schema:      ds.Schema,
		N:           ds.N - 1,
		Outcome:     dropFloat(ds.Outcome, i),
		Categorical: make(map[string][]int, len(ds.Categorical)),
		Continuous:  make(map[string][]float64, len(ds.Continuous)),
	}
	for name, codes := range ds.Categorical {
		out.Categorical[name] = dropInt(codes, i)
	}
	for name, values := range ds.Continuous {
		out.Continuous[name] = dropFloat(values, i)
	}
	return out
}

// Subject returns a single-subject dataset holding row i, used to
// build the held-out design row in cross-validation.
func (ds *Dataset) Subject(i int) *Dataset {
	out := &Dataset{
		Schema:      ds.Schema,
		N:           1,
		Outcome:     []float64{ds.Outcome[i]},
		Categorical: make(map[string][]int, len(ds.Categorical)),
		Continuous:  make(map[string][]float64, len(ds.Continuous)),
	}
	for name, codes := range ds.Categorical {
		out.Categorical[name] = []int{codes[i]}
	}
	for name, values := range ds.Continuous {
		out.Continuous[name] = []float64{values[i]}
	}
	return out
}

func dropFloat(s []float64, i int) []float64 {
	out := make([]float64, 0, len(s)-1)
	out = append(out, s[:i]...)
	return append(out, s[i+1:]...)
}

func dropInt(s []int, i int) []int {
	out := make([]int, 0, len(s)-1)
	out = append(out, s[:i]...)
	return append(out, s[i+1:]...)
}
