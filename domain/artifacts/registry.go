// Package artifacts names every output the pipeline must produce and
// checks their presence at the end of a run.
package artifacts

import (
	"sort"

	"bayesrisk/domain/core"
)

// Kind identifies one expected output artifact.
type Kind string

const (
	KindPosteriorSummary     Kind = "posterior_summary"
	KindConvergenceReport    Kind = "convergence_report"
	KindCalibrationTrain     Kind = "calibration_train"
	KindCalibrationValidate  Kind = "calibration_validate"
	KindAUCPosterior         Kind = "auc_posterior"
	KindCrossValPredictions  Kind = "crossval_predictions"
	KindDecisionCurve        Kind = "decision_curve"
	KindClassificationReport Kind = "classification_report"
	KindHosmerLemeshow       Kind = "hosmer_lemeshow"
)

// Expected lists every artifact a complete run must emit. The
// validation-set calibration artifact is required only when a
// validation dataset was supplied.
func Expected(withValidation bool) []Kind {
	kinds := []Kind{
		KindPosteriorSummary,
		KindConvergenceReport,
		KindCalibrationTrain,
		KindAUCPosterior,
		KindCrossValPredictions,
		KindDecisionCurve,
		KindClassificationReport,
		KindHosmerLemeshow,
	}
	if withValidation {
		kinds = append(kinds, KindCalibrationValidate)
	}
	return kinds
}

// CheckIntegrity verifies every expected artifact is present, and
// reports the explicit list of misses otherwise.
func CheckIntegrity(produced map[Kind]bool, withValidation bool) error {
	missing := make([]string, 0)
	for _, kind := range Expected(withValidation) {
		if !produced[kind] {
			missing = append(missing, string(kind))
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return core.NewArtifactIntegrityError(missing)
}
