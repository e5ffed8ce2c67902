package dataset

import (
	"strings"
	"testing"

	"bayesrisk/domain/core"
)

func validTable() RawTable {
	columns := []string{"y", "stage", "sex", "smoker", "age", "bmi", "biomarker_a", "biomarker_b"}
	rows := [][]string{
		{"1", "none", "0", "1", "62", "27.1", "1.4", "0.2"},
		{"0", "mild", "1", "0", "55", "31.0", "0.9", "0.8"},
		{"0", "moderate", "0", "0", "47", "24.2", "1.1", "0.5"},
		{"1", "severe", "1", "1", "71", "29.5", "2.0", "0.1"},
		{"0", "none", "0", "0", "58", "26.0", "1.2", "0.4"},
	}
	return RawTable{Columns: columns, Rows: rows}
}

func TestValidateTable_Valid(t *testing.T) {
	ds, err := ValidateTable(validTable(), DefaultSchema())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ds.N != 5 {
		t.Errorf("expected 5 subjects, got %d", ds.N)
	}
	if ds.EventCount() != 2 {
		t.Errorf("expected 2 events, got %d", ds.EventCount())
	}
	if got := ds.Categorical["stage"]; got[3] != 3 {
		t.Errorf("severe should encode to 3, got %d", got[3])
	}
}

func TestValidateTable_MissingColumn(t *testing.T) {
	table := validTable()
	table.Columns[4] = "height" // drop "age"
	_, err := ValidateTable(table, DefaultSchema())
	if !core.IsSchemaError(err) {
		t.Fatalf("expected schema error, got %v", err)
	}
	if !strings.Contains(err.Error(), "age") {
		t.Errorf("error should name the missing column: %v", err)
	}
}

func TestValidateTable_NonBinaryOutcome(t *testing.T) {
	table := validTable()
	table.Rows[2][0] = "2"
	_, err := ValidateTable(table, DefaultSchema())
	if !core.IsSchemaError(err) {
		t.Fatalf("expected schema error, got %v", err)
	}
}

func TestValidateTable_MissingOutcome(t *testing.T) {
	table := validTable()
	table.Rows[1][0] = ""
	_, err := ValidateTable(table, DefaultSchema())
	if !core.IsSchemaError(err) {
		t.Fatalf("expected schema error, got %v", err)
	}
}

func TestValidateTable_InvalidLevel(t *testing.T) {
	table := validTable()
	table.Rows[0][1] = "terminal"
	_, err := ValidateTable(table, DefaultSchema())
	if !core.IsSchemaError(err) {
		t.Fatalf("expected schema error, got %v", err)
	}
	if !strings.Contains(err.Error(), "terminal") {
		t.Errorf("error should name the offending level: %v", err)
	}
}

func TestValidateTable_MissingContinuousWarns(t *testing.T) {
	table := validTable()
	table.Rows[0][4] = ""
	ds, err := ValidateTable(table, DefaultSchema())
	if err != nil {
		t.Fatalf("missing continuous value must not be fatal: %v", err)
	}
	if len(ds.Warnings) == 0 {
		t.Fatal("expected a data-quality warning")
	}
	// Imputed with the mean of the remaining values
	want := (55.0 + 47 + 71 + 58) / 4
	if got := ds.Continuous["age"][0]; got != want {
		t.Errorf("expected mean imputation %v, got %v", want, got)
	}
}

func TestEncode_Shape(t *testing.T) {
	ds, err := ValidateTable(validTable(), DefaultSchema())
	if err != nil {
		t.Fatal(err)
	}
	dm := ds.Encode()

	// intercept + 3 stage dummies + sex + smoker + 4 continuous
	if dm.P() != 10 {
		t.Fatalf("expected 10 coefficients, got %d: %v", dm.P(), dm.Names)
	}
	if dm.Names[0] != "(Intercept)" {
		t.Errorf("first coefficient should be the intercept, got %s", dm.Names[0])
	}
	groupCount := 0
	for _, g := range dm.GroupCoef {
		if g {
			groupCount++
		}
	}
	if groupCount != 3 {
		t.Errorf("expected 3 stage-group coefficients, got %d", groupCount)
	}
	// Continuous columns are standardized against their own dataset
	for j, name := range dm.Names {
		if name != "age" {
			continue
		}
		sum := 0.0
		for i := 0; i < dm.Rows(); i++ {
			sum += dm.X.At(i, j)
		}
		if sum > 1e-9 || sum < -1e-9 {
			t.Errorf("standardized column should be centered, sum=%v", sum)
		}
	}
}

func TestWithoutSubject(t *testing.T) {
	ds, err := ValidateTable(validTable(), DefaultSchema())
	if err != nil {
		t.Fatal(err)
	}
	loo := ds.WithoutSubject(1)
	if loo.N != 4 {
		t.Fatalf("expected 4 subjects, got %d", loo.N)
	}
	if loo.Outcome[1] != ds.Outcome[2] {
		t.Error("subject removal shifted the wrong rows")
	}
	if ds.N != 5 {
		t.Error("receiver must not be modified")
	}

	held := ds.Subject(1)
	if held.N != 1 || held.Outcome[0] != ds.Outcome[1] {
		t.Error("single-subject extraction is wrong")
	}
}
