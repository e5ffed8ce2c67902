// Package app wires the pipeline stages together: fit, diagnose,
// evaluate, cross-validate, and check artifact integrity. Stages are
// pure: each consumes the previous stage's immutable output and
// produces a new entity.
package app

import (
	"context"
	"math/rand"
	"time"

	"bayesrisk/domain/artifacts"
	"bayesrisk/domain/core"
	"bayesrisk/domain/dataset"
	"bayesrisk/domain/model"
	"bayesrisk/internal/config"
	"bayesrisk/internal/crossval"
	"bayesrisk/internal/decision"
	"bayesrisk/internal/diagnostics"
	"bayesrisk/internal/evaluate"
	"bayesrisk/internal/logging"
	"bayesrisk/internal/predict"
	"bayesrisk/internal/sampler"
)

// Seed offsets keep each randomized stage on its own deterministic
// stream derived from the run seed.
const (
	seedOffsetCalibrationTrain    = 1
	seedOffsetDecision            = 2
	seedOffsetCalibrationValidate = 3
)

// StageResult records one executed stage for the run audit.
type StageResult struct {
	Stage    string
	Duration time.Duration
}

// Result is the complete output of one pipeline run.
type Result struct {
	RunID               core.RunID
	Summary             []model.ParameterSummary
	Convergence         model.ConvergenceReport
	CalibrationTrain    model.CalibrationCurve
	CalibrationValidate *model.CalibrationCurve
	AUC                 model.AUCPosterior
	CrossVal            *model.CrossValidationResult
	Decision            model.DecisionCurve
	Classification      model.ClassificationReport
	HosmerLemeshow      model.HLTestResult
	Stages              []StageResult
	Produced            map[artifacts.Kind]bool
}

// Pipeline runs the full modeling and evaluation sequence.
type Pipeline struct {
	cfg *config.Config
	log *logging.Logger
	fit *sampler.Sampler
}

// NewPipeline creates a pipeline bound to one immutable configuration.
func NewPipeline(cfg *config.Config, log *logging.Logger) *Pipeline {
	return &Pipeline{cfg: cfg, log: log, fit: sampler.New(log)}
}

// Run executes every stage on the training dataset and, when a
// validation dataset is supplied, the external-validation evaluations.
// Schema and convergence errors abort immediately; data-quality
// findings are logged and degrade gracefully.
func (p *Pipeline) Run(ctx context.Context, train, validation *dataset.Dataset) (*Result, error) {
	result := &Result{
		RunID:    core.RunID(core.NewID()),
		Produced: make(map[artifacts.Kind]bool),
	}

	for _, warning := range train.Warnings {
		p.log.Warn("training data: %s", warning)
	}

	// Fit
	dm := train.Encode()
	priors := sampler.BuildPriors(dm, p.cfg.Priors)
	set, err := p.runFit(ctx, result, dm, train.Outcome, priors)
	if err != nil {
		return nil, err
	}

	// Convergence diagnostics and posterior summary
	p.stage(result, "diagnostics", func() {
		result.Convergence = diagnostics.Report(set)
		result.Produced[artifacts.KindConvergenceReport] = true
		result.Summary = sampler.Summarize(set)
		result.Produced[artifacts.KindPosteriorSummary] = true
	})

	// Training-set predictions feed calibration, AUC, HL, threshold
	probs, err := predict.Probabilities(set, dm)
	if err != nil {
		return nil, err
	}
	meanProbs := probs.Mean()

	p.stage(result, "calibration", func() {
		rng := rand.New(rand.NewSource(p.cfg.Sampling.Seed + seedOffsetCalibrationTrain))
		result.CalibrationTrain = evaluate.Calibration(probs, train.Outcome,
			p.cfg.Calibration.Bins, p.cfg.Calibration.TrainDrawSubsample, rng, p.log)
		result.Produced[artifacts.KindCalibrationTrain] = true
	})

	p.stage(result, "discrimination", func() {
		result.AUC = evaluate.AUCPosterior(probs, train.Outcome)
		result.Produced[artifacts.KindAUCPosterior] = true
	})

	var hlErr error
	p.stage(result, "goodness_of_fit", func() {
		result.HosmerLemeshow, hlErr = evaluate.HosmerLemeshow(meanProbs, train.Outcome,
			p.cfg.HosmerLemeshow.MinGroups, p.cfg.HosmerLemeshow.MaxGroups)
		if hlErr == nil {
			result.Produced[artifacts.KindHosmerLemeshow] = true
		}
	})
	if hlErr != nil {
		return nil, hlErr
	}

	p.stage(result, "classification", func() {
		result.Classification = evaluate.Classify(meanProbs, train.Outcome)
		result.Produced[artifacts.KindClassificationReport] = true
	})

	// Leave-one-out cross-validation feeds decision-curve analysis
	p.stage(result, "crossval", func() {
		result.CrossVal = crossval.LeaveOneOut(ctx, train, p.fit, crossval.Options{
			Chains:         p.cfg.CrossVal.Chains,
			Warmup:         p.cfg.CrossVal.Warmup,
			Iterations:     p.cfg.CrossVal.Iterations,
			TargetAccept:   p.cfg.Sampling.TargetAccept,
			Seed:           p.cfg.Sampling.Seed,
			CoreCap:        p.cfg.Sampling.CoreCap,
			FlatScale:      p.cfg.CrossVal.FlatScale,
			InterceptScale: p.cfg.Priors.InterceptScale,
		}, p.log)
		result.Produced[artifacts.KindCrossValPredictions] = true
	})

	// Failed refits carry no usable prediction; they are excluded from
	// the decision curve rather than entering it as zeros.
	var dcaErr error
	p.stage(result, "decision_curve", func() {
		var preds, outcomes []float64
		preds, outcomes, dcaErr = decisionInputs(result.CrossVal, train.Outcome)
		if failed := len(result.CrossVal.Failures); failed > 0 {
			p.log.Warn("decision curve: excluding %d of %d subjects with failed refits", failed, train.N)
		}
		if dcaErr != nil {
			return
		}
		result.Decision = decision.Analyze(preds, outcomes, decision.Options{
			Thresholds:           p.cfg.ThresholdGrid(),
			BootstrapResamples:   p.cfg.Decision.BootstrapResamples,
			CaseControl:          p.cfg.Decision.CaseControl,
			PopulationPrevalence: p.cfg.Decision.PopulationPrevalence,
			Seed:                 p.cfg.Sampling.Seed + seedOffsetDecision,
		})
		result.Produced[artifacts.KindDecisionCurve] = true
	})
	if dcaErr != nil {
		return nil, dcaErr
	}

	// External validation reuses the training fit and standardization
	if validation != nil {
		if err := p.validate(result, set, train, validation); err != nil {
			return nil, err
		}
	}

	if err := artifacts.CheckIntegrity(result.Produced, validation != nil); err != nil {
		return nil, err
	}
	return result, nil
}

// decisionInputs strips subjects with failed refits from the
// decision-curve input. A run where no refit survived has no
// out-of-sample predictions to analyze and must abort.
func decisionInputs(cv *model.CrossValidationResult, outcome []float64) (preds, outcomes []float64, err error) {
	preds, outcomes = cv.Completed(outcome)
	if len(preds) == 0 {
		return nil, nil, core.ErrNoUsableRefits
	}
	return preds, outcomes, nil
}

func (p *Pipeline) runFit(ctx context.Context, result *Result, dm *dataset.DesignMatrix, y []float64, priors model.PriorSpec) (*model.PosteriorSampleSet, error) {
	started := time.Now()
	set, err := p.fit.Fit(ctx, dm, y, priors, sampler.Options{
		Chains:       p.cfg.Sampling.Chains,
		Warmup:       p.cfg.Sampling.Warmup,
		Iterations:   p.cfg.Sampling.Iterations,
		TargetAccept: p.cfg.Sampling.TargetAccept,
		Seed:         p.cfg.Sampling.Seed,
		CoreCap:      p.cfg.Sampling.CoreCap,
	})
	result.Stages = append(result.Stages, StageResult{Stage: "fit", Duration: time.Since(started)})
	if err != nil {
		return nil, err
	}
	return set, nil
}

func (p *Pipeline) validate(result *Result, set *model.PosteriorSampleSet, train, validation *dataset.Dataset) error {
	for _, warning := range validation.Warnings {
		p.log.Warn("validation data: %s", warning)
	}

	dm := validation.EncodeWith(train.Standardize())
	probs, err := predict.Probabilities(set, dm)
	if err != nil {
		return err
	}

	p.stage(result, "calibration_validate", func() {
		rng := rand.New(rand.NewSource(p.cfg.Sampling.Seed + seedOffsetCalibrationValidate))
		curve := evaluate.Calibration(probs, validation.Outcome,
			p.cfg.Calibration.Bins, p.cfg.Calibration.ValidateDrawSubsample, rng, p.log)
		result.CalibrationValidate = &curve
		result.Produced[artifacts.KindCalibrationValidate] = true
	})
	return nil
}

func (p *Pipeline) stage(result *Result, name string, fn func()) {
	started := time.Now()
	fn()
	duration := time.Since(started)
	result.Stages = append(result.Stages, StageResult{Stage: name, Duration: duration})
	p.log.Info("stage %s completed in %s", name, duration)
}
