package app

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"bayesrisk/domain/artifacts"
	"bayesrisk/domain/core"
	"bayesrisk/domain/model"
)

// artifactFiles maps each artifact kind to its output file name.
var artifactFiles = map[artifacts.Kind]string{
	artifacts.KindPosteriorSummary:     "posterior_summary.csv",
	artifacts.KindConvergenceReport:    "convergence_report.csv",
	artifacts.KindCalibrationTrain:     "calibration_train.csv",
	artifacts.KindCalibrationValidate:  "calibration_validate.csv",
	artifacts.KindAUCPosterior:         "auc_posterior.csv",
	artifacts.KindCrossValPredictions:  "crossval_predictions.csv",
	artifacts.KindDecisionCurve:        "decision_curve.csv",
	artifacts.KindClassificationReport: "classification_report.csv",
	artifacts.KindHosmerLemeshow:       "hosmer_lemeshow.csv",
}

// WriteArtifacts emits every produced artifact as a flat CSV record
// set under dir, then verifies each expected file exists on disk.
func WriteArtifacts(result *Result, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	writers := map[artifacts.Kind]func() ([][]string, error){
		artifacts.KindPosteriorSummary:     result.posteriorSummaryRecords,
		artifacts.KindConvergenceReport:    result.convergenceRecords,
		artifacts.KindCalibrationTrain:     func() ([][]string, error) { return calibrationRecords(result.CalibrationTrain), nil },
		artifacts.KindAUCPosterior:         result.aucRecords,
		artifacts.KindCrossValPredictions:  result.crossValRecords,
		artifacts.KindDecisionCurve:        result.decisionRecords,
		artifacts.KindClassificationReport: result.classificationRecords,
		artifacts.KindHosmerLemeshow:       result.hosmerRecords,
	}
	if result.CalibrationValidate != nil {
		writers[artifacts.KindCalibrationValidate] = func() ([][]string, error) {
			return calibrationRecords(*result.CalibrationValidate), nil
		}
	}

	for kind, records := range writers {
		if !result.Produced[kind] {
			continue
		}
		recs, err := records()
		if err != nil {
			return err
		}
		if err := writeCSV(filepath.Join(dir, artifactFiles[kind]), recs); err != nil {
			return err
		}
	}

	// End-of-run integrity check against the filesystem
	missing := make([]string, 0)
	for _, kind := range artifacts.Expected(result.CalibrationValidate != nil) {
		if _, err := os.Stat(filepath.Join(dir, artifactFiles[kind])); err != nil {
			missing = append(missing, string(kind))
		}
	}
	if len(missing) > 0 {
		return core.NewArtifactIntegrityError(missing)
	}
	return nil
}

func (r *Result) posteriorSummaryRecords() ([][]string, error) {
	records := [][]string{{"parameter", "mean", "sd", "q2.5", "median", "q97.5"}}
	for _, s := range r.Summary {
		records = append(records, []string{
			s.Parameter, ftoa(s.Mean), ftoa(s.SD), ftoa(s.Q2_5), ftoa(s.Median), ftoa(s.Q97_5),
		})
	}
	return records, nil
}

func (r *Result) convergenceRecords() ([][]string, error) {
	records := [][]string{{"parameter", "rhat", "ess", "label"}}
	for _, p := range r.Convergence.Parameters {
		records = append(records, []string{p.Parameter, ftoa(p.Rhat), ftoa(p.ESS), string(p.Label)})
	}
	return records, nil
}

func calibrationRecords(curve model.CalibrationCurve) [][]string {
	records := [][]string{{"predicted", "observed", "observed_lower", "observed_upper"}}
	for _, bin := range curve.Bins {
		records = append(records, []string{
			ftoa(bin.Predicted), ftoa(bin.Observed), ftoa(bin.ObservedLower), ftoa(bin.ObservedUpper),
		})
	}
	return records
}

func (r *Result) aucRecords() ([][]string, error) {
	records := [][]string{{"draw", "auc"}}
	for i, v := range r.AUC.Samples {
		records = append(records, []string{strconv.Itoa(i), ftoa(v)})
	}
	return records, nil
}

func (r *Result) crossValRecords() ([][]string, error) {
	records := [][]string{{"subject", "prediction", "error"}}
	for i, p := range r.CrossVal.Predictions {
		errText := ""
		if err, failed := r.CrossVal.Failures[i]; failed {
			errText = err.Error()
		}
		records = append(records, []string{strconv.Itoa(i), ftoa(p), errText})
	}
	return records, nil
}

func (r *Result) decisionRecords() ([][]string, error) {
	records := [][]string{{"threshold", "net_benefit", "lower", "upper", "treat_all", "treat_none"}}
	for _, pt := range r.Decision.Points {
		records = append(records, []string{
			ftoa(pt.Threshold), ftoa(pt.NetBenefit), ftoa(pt.Lower), ftoa(pt.Upper),
			ftoa(pt.TreatAll), ftoa(pt.TreatNone),
		})
	}
	return records, nil
}

func (r *Result) classificationRecords() ([][]string, error) {
	c := r.Classification
	return [][]string{
		{"threshold", "tp", "fp", "tn", "fn", "accuracy", "precision", "recall", "specificity", "f1", "kappa"},
		{
			ftoa(c.Threshold), strconv.Itoa(c.TruePositives), strconv.Itoa(c.FalsePositives),
			strconv.Itoa(c.TrueNegatives), strconv.Itoa(c.FalseNegatives),
			ftoa(c.Accuracy), ftoa(c.Precision), ftoa(c.Recall), ftoa(c.Specificity), ftoa(c.F1), ftoa(c.Kappa),
		},
	}, nil
}

func (r *Result) hosmerRecords() ([][]string, error) {
	h := r.HosmerLemeshow
	return [][]string{
		{"groups", "chi_square", "p_value"},
		{strconv.Itoa(h.Groups), ftoa(h.ChiSquare), ftoa(h.PValue)},
	}, nil
}

func writeCSV(path string, records [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'g', 10, 64)
}
