package dataset

import (
	"bayesrisk/domain/core"
)

// ColumnRole categorizes predictor columns by statistical type
type ColumnRole string

const (
	RoleOutcome     ColumnRole = "outcome"
	RoleCategorical ColumnRole = "categorical"
	RoleBinary      ColumnRole = "binary"
	RoleContinuous  ColumnRole = "continuous"
)

// ColumnSpec describes one column of the study table
type ColumnSpec struct {
	Name   string     `json:"name"`
	Role   ColumnRole `json:"role"`
	Levels []string   `json:"levels,omitempty"` // fixed vocabulary, reference level first
}

// Schema is the explicit, versioned description of the study table.
// Levels are supplied as configuration and validated at ingestion,
// never inferred from the data.
type Schema struct {
	Version string       `json:"version"`
	Outcome string       `json:"outcome"`
	Columns []ColumnSpec `json:"columns"`
}

// DefaultSchema describes the fixed predictor set of the study design:
// one 4-level ordinal-like stage factor, two binary predictors, and
// four continuous predictors.
func DefaultSchema() Schema {
	return Schema{
		Version: "1.0.0",
		Outcome: "y",
		Columns: []ColumnSpec{
			{Name: "stage", Role: RoleCategorical, Levels: []string{"none", "mild", "moderate", "severe"}},
			{Name: "sex", Role: RoleBinary, Levels: []string{"0", "1"}},
			{Name: "smoker", Role: RoleBinary, Levels: []string{"0", "1"}},
			{Name: "age", Role: RoleContinuous},
			{Name: "bmi", Role: RoleContinuous},
			{Name: "biomarker_a", Role: RoleContinuous},
			{Name: "biomarker_b", Role: RoleContinuous},
		},
	}
}

// RequiredColumns lists every column the schema expects, outcome first.
func (s Schema) RequiredColumns() []string {
	cols := make([]string, 0, len(s.Columns)+1)
	cols = append(cols, s.Outcome)
	for _, c := range s.Columns {
		cols = append(cols, c.Name)
	}
	return cols
}

// CategoricalGroup returns the designated multi-level factor of the
// design, or nil if the schema carries none.
func (s Schema) CategoricalGroup() *ColumnSpec {
	for i := range s.Columns {
		if s.Columns[i].Role == RoleCategorical {
			return &s.Columns[i]
		}
	}
	return nil
}

// Validate checks the schema itself is usable before any data is read.
func (s Schema) Validate() error {
	if s.Outcome == "" {
		return core.NewConfigError("schema.outcome", "outcome column name is empty")
	}
	for _, c := range s.Columns {
		switch c.Role {
		case RoleCategorical:
			if len(c.Levels) < 2 {
				return core.NewConfigError("schema.columns", "categorical column "+c.Name+" needs at least 2 levels")
			}
		case RoleBinary:
			if len(c.Levels) != 2 {
				return core.NewConfigError("schema.columns", "binary column "+c.Name+" needs exactly 2 levels")
			}
		case RoleContinuous:
			// no level vocabulary
		default:
			return core.NewConfigError("schema.columns", "unknown role for column "+c.Name)
		}
	}
	return nil
}
