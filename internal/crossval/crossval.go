// Package crossval produces leave-one-out out-of-sample predictions:
// one reduced-cost refit per subject, run in parallel under the core
// cap, with refit failures surfaced per subject rather than masked.
package crossval

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"bayesrisk/domain/dataset"
	"bayesrisk/domain/model"
	"bayesrisk/internal/logging"
	"bayesrisk/internal/predict"
	"bayesrisk/internal/sampler"

	"github.com/montanaflynn/stats"
)

// subjectSeedStride separates per-subject RNG streams; each refit's
// chains are seeded from Seed + subject*stride.
const subjectSeedStride = 7919

// Options configures the reduced refits.
type Options struct {
	Chains         int
	Warmup         int
	Iterations     int
	TargetAccept   float64
	Seed           int64
	CoreCap        int
	FlatScale      float64 // single prior scale shared by all coefficients
	InterceptScale float64
}

// LeaveOneOut refits the model once per held-out subject and predicts
// that subject's probability as the median of its posterior-predictive
// draws. The full dataset is read-only and shared; each refit writes
// only its own output slot.
func LeaveOneOut(ctx context.Context, ds *dataset.Dataset, fit *sampler.Sampler, opts Options, log *logging.Logger) *model.CrossValidationResult {
	n := ds.N
	result := &model.CrossValidationResult{
		Predictions: make([]float64, n),
		Failures:    make(map[int]error),
	}

	limit := int64(opts.CoreCap)
	if limit < 1 {
		limit = 1
	}
	sem := semaphore.NewWeighted(limit)

	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				mu.Lock()
				result.Failures[i] = err
				mu.Unlock()
				return
			}
			defer sem.Release(1)

			p, err := refitAndPredict(ctx, ds, i, fit, opts)
			mu.Lock()
			if err != nil {
				result.Failures[i] = err
			} else {
				result.Predictions[i] = p
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(result.Failures) > 0 {
		log.Warn("leave-one-out: %d of %d refits failed", len(result.Failures), n)
	}
	return result
}

// refitAndPredict trains on all subjects but i and predicts subject i.
func refitAndPredict(ctx context.Context, ds *dataset.Dataset, i int, fit *sampler.Sampler, opts Options) (float64, error) {
	train := ds.WithoutSubject(i)
	dm := train.Encode()
	priors := sampler.FlatPriors(dm, opts.FlatScale, opts.InterceptScale)

	set, err := fit.Fit(ctx, dm, train.Outcome, priors, sampler.Options{
		Chains:       opts.Chains,
		Warmup:       opts.Warmup,
		Iterations:   opts.Iterations,
		TargetAccept: opts.TargetAccept,
		Seed:         opts.Seed + int64(i)*subjectSeedStride,
		CoreCap:      1, // parallelism lives at the subject level here
	})
	if err != nil {
		return 0, err
	}

	// Held-out row encoded on the training standardization
	held := ds.Subject(i).EncodeWith(dm.Std)
	probs, err := predict.Probabilities(set, held)
	if err != nil {
		return 0, err
	}

	column := make([]float64, probs.NumDraws())
	for d, row := range probs.Probs {
		column[d] = row[0]
	}
	return stats.Median(stats.Float64Data(column))
}
