package sampler

import (
	"errors"
	"math"
	"math/rand"
	"strconv"

	"bayesrisk/domain/core"
)

var errNoFiniteStart = errors.New("no finite starting point found")

// Dual-averaging constants from the standard step-size adaptation
// scheme (Hoffman & Gelman 2014, Algorithm 5).
const (
	daGamma = 0.05
	daT0    = 10.0
	daKappa = 0.75
)

// leapfrogSteps is fixed; only the step size adapts.
const leapfrogSteps = 20

// chainInitAttempts bounds retries of the random initialization before
// the chain reports an initialization failure.
const chainInitAttempts = 10

// hmcChain runs one Hamiltonian Monte Carlo chain with unit mass and
// dual-averaging step-size adaptation toward the configured target
// acceptance rate.
type hmcChain struct {
	target       *logisticPosterior
	targetAccept float64
	rng          *rand.Rand
	chainIndex   int
}

// run performs warmup-then-sampling and returns the retained draws on
// the gamma basis.
func (c *hmcChain) run(warmup, iterations int) ([][]float64, error) {
	position, logp, grad, err := c.initialize()
	if err != nil {
		return nil, err
	}
	position, logp, grad, eps := c.warmupPhase(position, logp, grad, warmup)
	return c.samplePhase(position, logp, grad, eps, iterations)
}

// warmupPhase adapts the step size by dual averaging and returns the
// post-warmup state with the averaged step size. The averaged value,
// not the last adapted one, drives every sampling transition.
func (c *hmcChain) warmupPhase(position []float64, logp float64, grad []float64, warmup int) ([]float64, float64, []float64, float64) {
	eps := 0.1 / math.Sqrt(float64(c.target.dim))
	mu := math.Log(10 * eps)
	logEpsBar := 0.0
	hBar := 0.0

	for iter := 0; iter < warmup; iter++ {
		var alpha float64
		position, logp, grad, alpha, _ = c.transition(position, logp, grad, eps)

		// Dual averaging toward the target acceptance rate
		m := float64(iter + 1)
		hBar = (1-1/(m+daT0))*hBar + (c.targetAccept-alpha)/(m+daT0)
		logEps := mu - math.Sqrt(m)/daGamma*hBar
		w := math.Pow(m, -daKappa)
		logEpsBar = w*logEps + (1-w)*logEpsBar
		eps = math.Exp(logEps)
	}
	if warmup > 0 {
		eps = math.Exp(logEpsBar)
	}
	return position, logp, grad, eps
}

// samplePhase runs the retained iterations at a fixed step size.
func (c *hmcChain) samplePhase(position []float64, logp float64, grad []float64, eps float64, iterations int) ([][]float64, error) {
	dim := c.target.dim
	draws := make([][]float64, 0, iterations)
	for iter := 0; iter < iterations; iter++ {
		position, logp, grad, _, _ = c.transition(position, logp, grad, eps)

		for j, v := range position {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, core.NewNonFiniteDrawError(c.chainIndex, iter, "gamma["+strconv.Itoa(j)+"]")
			}
		}
		draw := make([]float64, dim)
		copy(draw, position)
		draws = append(draws, draw)
	}
	return draws, nil
}

// initialize draws small random starting points until the posterior is
// finite there.
func (c *hmcChain) initialize() ([]float64, float64, []float64, error) {
	dim := c.target.dim
	for attempt := 0; attempt < chainInitAttempts; attempt++ {
		position := make([]float64, dim)
		for j := range position {
			position[j] = c.rng.NormFloat64() * 0.1
		}
		logp, grad := c.target.logDensityGradient(position)
		if isFinite(logp) && allFinite(grad) {
			return position, logp, grad, nil
		}
	}
	return nil, 0, nil, core.NewChainInitError(c.chainIndex, errNoFiniteStart)
}

// transition performs one HMC proposal and Metropolis correction,
// returning the (possibly unchanged) state and the acceptance
// probability used for adaptation.
func (c *hmcChain) transition(position []float64, logp float64, grad []float64, eps float64) ([]float64, float64, []float64, float64, bool) {
	dim := len(position)

	momentum := make([]float64, dim)
	kinetic0 := 0.0
	for j := range momentum {
		momentum[j] = c.rng.NormFloat64()
		kinetic0 += momentum[j] * momentum[j]
	}
	kinetic0 /= 2

	q := make([]float64, dim)
	copy(q, position)
	p := make([]float64, dim)
	copy(p, momentum)
	g := make([]float64, dim)
	copy(g, grad)
	lp := logp

	// Leapfrog integration
	for step := 0; step < leapfrogSteps; step++ {
		for j := range p {
			p[j] += 0.5 * eps * g[j]
		}
		for j := range q {
			q[j] += eps * p[j]
		}
		lp, g = c.target.logDensityGradient(q)
		if !isFinite(lp) || !allFinite(g) {
			// Divergent trajectory: reject outright
			return position, logp, grad, 0, false
		}
		for j := range p {
			p[j] += 0.5 * eps * g[j]
		}
	}

	kinetic1 := 0.0
	for j := range p {
		kinetic1 += p[j] * p[j]
	}
	kinetic1 /= 2

	logAccept := (lp - kinetic1) - (logp - kinetic0)
	alpha := math.Exp(math.Min(0, logAccept))
	if math.Log(c.rng.Float64()) < logAccept {
		return q, lp, g, alpha, true
	}
	return position, logp, grad, alpha, false
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

func allFinite(xs []float64) bool {
	for _, x := range xs {
		if !isFinite(x) {
			return false
		}
	}
	return true
}
