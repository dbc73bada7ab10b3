// Package swarm searches for low-cost feed mixtures with particle swarm
// optimisation.
//
// Constraints are not enforced exactly. Each particle is scored by its cost
// plus a large multiple of its total constraint violation, and positions are
// clamped to the variable bounds and rescaled to sum to one after every move.
// Results are therefore approximate and carry no dual information.
package swarm

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/sapat/feed-optimizer/pkg/constants"
	"github.com/sapat/feed-optimizer/pkg/lp"
	"github.com/sapat/feed-optimizer/pkg/mathutil"
)

// Params tunes the search.
type Params struct {
	SwarmSize  int
	Iterations int
	Inertia    float64
	Personal   float64
	Social     float64
	Tolerance  float64
	// Seed makes runs reproducible when non-zero.
	Seed uint64
}

// DefaultParams returns the standard tuning.
func DefaultParams() Params {
	return Params{
		SwarmSize:  constants.DefaultSwarmSize,
		Iterations: constants.DefaultIterations,
		Inertia:    constants.DefaultInertia,
		Personal:   constants.DefaultPersonal,
		Social:     constants.DefaultSocial,
		Tolerance:  constants.DefaultTolerance,
	}
}

// Validate rejects parameters the search cannot run with.
func (p Params) Validate() error {
	if p.SwarmSize <= 0 {
		return fmt.Errorf("swarm size must be positive, got %d", p.SwarmSize)
	}
	if p.Iterations <= 0 {
		return fmt.Errorf("iterations must be positive, got %d", p.Iterations)
	}
	if p.Inertia < 0 || p.Personal < 0 || p.Social < 0 {
		return errors.New("inertia, personal and social coefficients must not be negative")
	}
	if p.Tolerance < 0 {
		return fmt.Errorf("tolerance must not be negative, got %g", p.Tolerance)
	}
	return nil
}

// Result is the best mixture found.
type Result struct {
	Position []float64
	// Cost is the objective of Position without penalties.
	Cost    float64
	Fitness float64
	// Violation is the summed constraint violation of Position.
	Violation  float64
	Iterations int
	// Converged is set when the run stopped before the iteration limit.
	Converged bool
}

type particle struct {
	position    []float64
	velocity    []float64
	best        []float64
	bestFitness float64
}

// Solve runs the search on prog.
func Solve(prog *lp.Program, params Params) (*Result, error) {
	if err := prog.Validate(); err != nil {
		return nil, err
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	rng := newRand(params.Seed)
	fitness := func(x []float64) float64 {
		return prog.Objective(x) + constants.PenaltyWeight*prog.Violation(x)
	}

	swarm := make([]*particle, params.SwarmSize)
	for i := range swarm {
		swarm[i] = newParticle(prog.Variables, rng)
	}

	var globalBest []float64
	globalBestFitness := math.Inf(1)
	trackedFitness := math.Inf(1)
	lastImprovement := 0
	converged := false
	iter := 0

	for ; iter < params.Iterations && !converged; iter++ {
		for _, p := range swarm {
			f := fitness(p.position)
			if f < p.bestFitness {
				p.bestFitness = f
				copy(p.best, p.position)
				if f < globalBestFitness {
					globalBestFitness = f
					globalBest = append(globalBest[:0], p.best...)
					lastImprovement = iter
				}
			}
			p.move(prog.Variables, globalBest, params, rng)
		}

		if iter > 0 && iter%constants.ConvergenceInterval == 0 {
			current := fitness(globalBest)
			improvement := math.Abs(trackedFitness - current)
			if improvement < params.Tolerance || iter-lastImprovement > constants.StallIterations {
				converged = true
			}
			trackedFitness = current
		}
	}

	return &Result{
		Position:   globalBest,
		Cost:       prog.Objective(globalBest),
		Fitness:    globalBestFitness,
		Violation:  prog.Violation(globalBest),
		Iterations: iter,
		Converged:  converged,
	}, nil
}

func newRand(seed uint64) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func newParticle(vars []lp.Variable, rng *rand.Rand) *particle {
	n := len(vars)
	p := &particle{
		position:    make([]float64, n),
		velocity:    make([]float64, n),
		best:        make([]float64, n),
		bestFitness: math.Inf(1),
	}
	for i, v := range vars {
		lower, upper := searchRange(v)
		p.position[i] = lower + rng.Float64()*(upper-lower)
		span := upper - lower
		p.velocity[i] = -span/10 + rng.Float64()*span/5
	}
	if !normalise(p.position) {
		for i := range p.position {
			p.position[i] = 1 / float64(n)
		}
	}
	copy(p.best, p.position)
	return p
}

func (p *particle) move(vars []lp.Variable, globalBest []float64, params Params, rng *rand.Rand) {
	for i, v := range vars {
		pos := p.position[i]
		p.velocity[i] = params.Inertia*p.velocity[i] +
			params.Personal*rng.Float64()*(p.best[i]-pos) +
			params.Social*rng.Float64()*(globalBest[i]-pos)
		p.position[i] = v.Clamp(pos + p.velocity[i])
	}
	normalise(p.position)
}

// searchRange is where initial positions are drawn from; unset bounds
// default to the unit interval.
func searchRange(v lp.Variable) (float64, float64) {
	lower, upper := 0.0, 1.0
	if v.Bound.HasLower() {
		lower = v.Lower
	}
	switch v.Bound {
	case lp.Upper, lp.Double:
		upper = v.Upper
	case lp.Fixed:
		upper = v.Lower
	case lp.Lower:
		if v.Upper > lower {
			upper = v.Upper
		}
	}
	if upper < lower {
		upper = lower
	}
	return lower, upper
}

// normalise rescales x to sum to one. It reports false, leaving x alone,
// when the sum is not positive.
func normalise(x []float64) bool {
	total := mathutil.Sum(x)
	if total <= 0 {
		return false
	}
	for i := range x {
		x[i] /= total
	}
	return true
}
