// Package sampler fits the Bayesian logistic model by Hamiltonian
// Monte Carlo: independent seeded chains run in parallel under a core
// cap, warmup draws are discarded, and retained draws are pooled on
// the original coefficient basis.
package sampler

import (
	"context"
	"math/rand"

	"golang.org/x/sync/semaphore"

	"bayesrisk/domain/dataset"
	"bayesrisk/domain/model"
	"bayesrisk/internal/logging"
)

// Options configures one fit.
type Options struct {
	Chains       int
	Warmup       int
	Iterations   int
	TargetAccept float64
	Seed         int64
	CoreCap      int
}

// Sampler produces posterior sample sets.
type Sampler struct {
	log *logging.Logger
}

// New creates a sampler.
func New(log *logging.Logger) *Sampler {
	return &Sampler{log: log}
}

// Fit runs the configured chains and pools their retained draws.
// Chain c is seeded Seed+c, so identical configuration reproduces the
// identical sample set. Any chain failure fails the whole fit; a
// partial posterior is never returned.
func (s *Sampler) Fit(ctx context.Context, dm *dataset.DesignMatrix, y []float64, priors model.PriorSpec, opts Options) (*model.PosteriorSampleSet, error) {
	target, err := newLogisticPosterior(dm, y, priors)
	if err != nil {
		return nil, err
	}

	limit := int64(opts.CoreCap)
	if limit < 1 {
		limit = 1
	}
	sem := semaphore.NewWeighted(limit)

	type chainResult struct {
		index int
		draws [][]float64
		err   error
	}
	results := make(chan chainResult, opts.Chains)

	for c := 0; c < opts.Chains; c++ {
		c := c
		go func() {
			if err := sem.Acquire(ctx, 1); err != nil {
				results <- chainResult{index: c, err: err}
				return
			}
			defer sem.Release(1)

			chain := &hmcChain{
				target:       target,
				targetAccept: opts.TargetAccept,
				rng:          rand.New(rand.NewSource(opts.Seed + int64(c))),
				chainIndex:   c,
			}
			draws, err := chain.run(opts.Warmup, opts.Iterations)
			results <- chainResult{index: c, draws: draws, err: err}
		}()
	}

	perChain := make([][][]float64, opts.Chains)
	for i := 0; i < opts.Chains; i++ {
		res := <-results
		if res.err != nil {
			return nil, res.err
		}
		perChain[res.index] = res.draws
	}

	// Pool in chain order; back-transform each gamma draw to beta.
	set := &model.PosteriorSampleSet{
		Draws:      make([][]float64, 0, opts.Chains*opts.Iterations),
		Parameters: dm.Names,
		Chains:     opts.Chains,
		PerChain:   opts.Iterations,
	}
	for c := 0; c < opts.Chains; c++ {
		for _, gamma := range perChain[c] {
			set.Draws = append(set.Draws, target.beta(gamma))
		}
	}

	s.log.Debug("fit complete: %d chains x %d draws, %d parameters",
		opts.Chains, opts.Iterations, len(dm.Names))
	return set, nil
}
