package swarm

import (
	"context"
	"testing"

	"github.com/sapat/feed-optimizer/internal/model"
	"github.com/sapat/feed-optimizer/internal/simplex"
	"github.com/sapat/feed-optimizer/pkg/constants"
	"github.com/sapat/feed-optimizer/pkg/lp"
	"github.com/sapat/feed-optimizer/pkg/mathutil"
	"github.com/sapat/feed-optimizer/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seeded(seed uint64) Params {
	p := DefaultParams()
	p.Seed = seed
	return p
}

func TestDefaultParams(t *testing.T) {
	p := DefaultParams()
	assert.Equal(t, 50, p.SwarmSize)
	assert.Equal(t, 2000, p.Iterations)
	assert.Equal(t, 0.7, p.Inertia)
	assert.Equal(t, 1.5, p.Personal)
	assert.Equal(t, 1.5, p.Social)
	assert.Equal(t, 1e-5, p.Tolerance)
	require.NoError(t, p.Validate())
}

func TestParamsValidate(t *testing.T) {
	for name, mutate := range map[string]func(*Params){
		"zero swarm":         func(p *Params) { p.SwarmSize = 0 },
		"zero iterations":    func(p *Params) { p.Iterations = 0 },
		"negative inertia":   func(p *Params) { p.Inertia = -1 },
		"negative tolerance": func(p *Params) { p.Tolerance = -1 },
	} {
		p := DefaultParams()
		mutate(&p)
		assert.Error(t, p.Validate(), name)
	}
}

func TestSolveSlackProblemFindsCheapestIngredient(t *testing.T) {
	problem, err := model.Build(context.Background(), testutil.SlackRequest(), testutil.SlackCatalogue())
	require.NoError(t, err)

	res, err := Solve(problem.Program, seeded(7))
	require.NoError(t, err)

	assert.InDelta(t, 1.0, mathutil.Sum(res.Position), constants.FractionTolerance)
	assert.InDelta(t, 1.0, res.Position[0], 1e-3)
	assert.InDelta(t, 10.0, res.Cost, 1e-2)
	assert.GreaterOrEqual(t, res.Cost, 10.0-1e-9)
	assert.Positive(t, res.Iterations)
	assert.LessOrEqual(t, res.Iterations, 2000)
}

func TestSolveNeverBeatsExactOptimum(t *testing.T) {
	problems := map[string]func() (*model.Problem, error){
		"binding": func() (*model.Problem, error) {
			return model.Build(context.Background(), testutil.BindingRequest(), testutil.BindingCatalogue())
		},
		"layer": func() (*model.Problem, error) {
			return model.Build(context.Background(), testutil.LayerRequest(), testutil.LayerCatalogue())
		},
	}
	for name, build := range problems {
		t.Run(name, func(t *testing.T) {
			problem, err := build()
			require.NoError(t, err)

			exact, err := simplex.New().Solve(problem.Program)
			require.NoError(t, err)
			require.Equal(t, simplex.Optimal, exact.Status)

			for seed := uint64(1); seed <= 10; seed++ {
				res, err := Solve(problem.Program, seeded(seed))
				require.NoError(t, err)

				assert.GreaterOrEqual(t, res.Cost, exact.Objective-1e-6, "seed %d", seed)
				assert.GreaterOrEqual(t, res.Fitness, exact.Objective-1e-6, "seed %d", seed)
				assert.InDelta(t, res.Cost+constants.PenaltyWeight*res.Violation, res.Fitness, 1e-9, "seed %d", seed)
				assert.InDelta(t, 1.0, mathutil.Sum(res.Position), constants.FractionTolerance, "seed %d", seed)
			}
		})
	}
}

func TestSolveBindingProblemCost(t *testing.T) {
	problem, err := model.Build(context.Background(), testutil.BindingRequest(), testutil.BindingCatalogue())
	require.NoError(t, err)

	res, err := Solve(problem.Program, seeded(5))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.Cost, 15.0-1e-3)
	assert.InDelta(t, 15.0, res.Cost, 0.1)
	assert.Less(t, res.Violation, 1e-3)
}

func TestSolveIsReproducibleWithSeed(t *testing.T) {
	problem, err := model.Build(context.Background(), testutil.BindingRequest(), testutil.BindingCatalogue())
	require.NoError(t, err)

	params := seeded(99)
	params.Iterations = 300
	first, err := Solve(problem.Program, params)
	require.NoError(t, err)
	second, err := Solve(problem.Program, params)
	require.NoError(t, err)

	assert.Equal(t, first.Position, second.Position)
	assert.Equal(t, first.Iterations, second.Iterations)
}

func TestSolveStopsAtIterationLimit(t *testing.T) {
	problem, err := model.Build(context.Background(), testutil.LayerRequest(), testutil.LayerCatalogue())
	require.NoError(t, err)

	params := seeded(3)
	params.Iterations = 50
	res, err := Solve(problem.Program, params)
	require.NoError(t, err)
	assert.Equal(t, 50, res.Iterations)
	assert.False(t, res.Converged)
}

func TestSolveConvergesEarly(t *testing.T) {
	problem, err := model.Build(context.Background(), testutil.SlackRequest(), testutil.SlackCatalogue())
	require.NoError(t, err)

	params := seeded(11)
	params.Tolerance = 10
	res, err := Solve(problem.Program, params)
	require.NoError(t, err)
	assert.True(t, res.Converged)
	// the first check happens at iteration 100, the second at 200
	assert.LessOrEqual(t, res.Iterations, 201)
}

func TestSolveRejectsBadInput(t *testing.T) {
	_, err := Solve(&lp.Program{}, DefaultParams())
	assert.Error(t, err)

	problem, err := model.Build(context.Background(), testutil.SlackRequest(), testutil.SlackCatalogue())
	require.NoError(t, err)
	params := DefaultParams()
	params.SwarmSize = 0
	_, err = Solve(problem.Program, params)
	assert.Error(t, err)
}

func TestSearchRange(t *testing.T) {
	lower, upper := searchRange(lp.Variable{Lower: 0.1, Upper: 0.4, Bound: lp.Double})
	assert.Equal(t, 0.1, lower)
	assert.Equal(t, 0.4, upper)

	lower, upper = searchRange(lp.Variable{Bound: lp.Free})
	assert.Equal(t, 0.0, lower)
	assert.Equal(t, 1.0, upper)

	lower, upper = searchRange(lp.Variable{Lower: 0.2, Upper: 1, Bound: lp.Lower})
	assert.Equal(t, 0.2, lower)
	assert.Equal(t, 1.0, upper)
}

func TestNormalise(t *testing.T) {
	x := []float64{1, 3}
	assert.True(t, normalise(x))
	assert.Equal(t, []float64{0.25, 0.75}, x)

	zeros := []float64{0, 0}
	assert.False(t, normalise(zeros))
	assert.Equal(t, []float64{0, 0}, zeros)
}
