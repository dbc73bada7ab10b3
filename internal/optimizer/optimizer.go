package optimizer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sapat/feed-optimizer/internal/catalogue"
	"github.com/sapat/feed-optimizer/internal/formulation"
	"github.com/sapat/feed-optimizer/internal/metrics"
	"github.com/sapat/feed-optimizer/internal/model"
	"github.com/sapat/feed-optimizer/internal/result"
	"github.com/sapat/feed-optimizer/internal/simplex"
	"github.com/sapat/feed-optimizer/internal/swarm"
	"github.com/sapat/feed-optimizer/pkg/constants"
	"github.com/sapat/feed-optimizer/pkg/mathutil"
	"github.com/sapat/feed-optimizer/pkg/optimization"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Metric status labels besides the response statuses.
const (
	statusLabelOptimal   = "optimal"
	statusLabelNoOptimal = "no_optimal"
	statusLabelInvalid   = "invalid"
	statusLabelTimeout   = "timeout"
	statusLabelError     = "error"
)

// Runner builds formulations and hands them to the exact or heuristic solver.
type Runner struct {
	logger    *zap.Logger
	catalogue catalogue.Catalogue
	metrics   *metrics.Metrics
	params    swarm.Params
	solver    *simplex.Solver
}

// Option configures a Runner.
type Option func(*Runner)

// WithSwarmParams overrides the particle swarm defaults.
func WithSwarmParams(params swarm.Params) Option {
	return func(r *Runner) {
		r.params = params
	}
}

// WithMetrics records every solve on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runner) {
		r.metrics = m
	}
}

// NewRunner constructs a Runner resolving ingredients through cat.
func NewRunner(logger *zap.Logger, cat catalogue.Catalogue, opts ...Option) (*Runner, error) {
	if cat == nil {
		return nil, fmt.Errorf("catalogue cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Runner{logger: logger, catalogue: cat, params: swarm.DefaultParams()}
	for _, opt := range opts {
		opt(r)
	}
	if err := r.params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid swarm parameters: %w", err)
	}
	r.solver = simplex.New(simplex.WithLogger(logger))
	return r, nil
}

// Simplex solves req exactly and reports shadow prices for binding rows.
func (r *Runner) Simplex(ctx context.Context, req *formulation.Request) (*optimization.Response, error) {
	start := time.Now()
	resp, err := await(ctx, func() (*optimization.Response, error) {
		problem, err := model.Build(ctx, req, r.catalogue)
		if err != nil {
			return nil, err
		}
		return r.exact(problem)
	})
	r.finish(constants.MethodSimplex, req, resp, err, start)
	return resp, err
}

// PSO searches for a low-cost mixture with the particle swarm.
func (r *Runner) PSO(ctx context.Context, req *formulation.Request) (*optimization.Response, error) {
	start := time.Now()
	resp, err := await(ctx, func() (*optimization.Response, error) {
		problem, err := model.Build(ctx, req, r.catalogue)
		if err != nil {
			return nil, err
		}
		return r.heuristic(problem)
	})
	r.finish(constants.MethodPSO, req, resp, err, start)
	return resp, err
}

// Compare builds req once and runs both solvers on it concurrently.
func (r *Runner) Compare(ctx context.Context, req *formulation.Request) (*optimization.Comparison, error) {
	problem, err := await(ctx, func() (*model.Problem, error) {
		return model.Build(ctx, req, r.catalogue)
	})
	if err != nil {
		r.finish(constants.MethodCompare, req, nil, err, time.Now())
		return nil, err
	}

	cmp := &optimization.Comparison{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		start := time.Now()
		resp, err := await(gctx, func() (*optimization.Response, error) { return r.exact(problem) })
		r.finish(constants.MethodSimplex, req, resp, err, start)
		cmp.Simplex = resp
		return err
	})
	g.Go(func() error {
		start := time.Now()
		resp, err := await(gctx, func() (*optimization.Response, error) { return r.heuristic(problem) })
		r.finish(constants.MethodPSO, req, resp, err, start)
		cmp.PSO = resp
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if cmp.Simplex.Optimal() && cmp.PSO.Optimal() {
		cmp.CostGap = cmp.PSO.OptimizedCost - cmp.Simplex.OptimizedCost
		cmp.Undercut = undercuts(cmp.CostGap)
	}
	if cmp.Undercut {
		r.logger.Warn("heuristic mixture is cheaper than the exact optimum",
			zap.String("op", "optimizer.Compare"),
			zap.Float64("costGap", cmp.CostGap),
			zap.Float64("violation", cmp.PSO.Diagnostics.Violation),
		)
	}
	return cmp, nil
}

func (r *Runner) exact(problem *model.Problem) (*optimization.Response, error) {
	sol, err := r.solver.Solve(problem.Program)
	if err != nil {
		return nil, err
	}
	if sol.Status != simplex.Optimal {
		zero := result.Zero(problem)
		return &optimization.Response{
			Status:               optimization.StatusNoOptimal,
			Message:              sol.Status.String(),
			Method:               constants.MethodSimplex,
			OptimizedIngredients: zero.Ingredients,
			OptimizedNutrients:   zero.Nutrients,
		}, nil
	}

	out, err := result.Process(problem, sol.X)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", simplex.ErrSolverFailure, err)
	}
	return &optimization.Response{
		Status:               optimization.StatusOptimal,
		Method:               constants.MethodSimplex,
		OptimizedCost:        out.Cost,
		OptimizedIngredients: out.Ingredients,
		OptimizedNutrients:   out.Nutrients,
		ShadowPrices:         simplex.ShadowPrices(problem.Program, sol),
	}, nil
}

func (r *Runner) heuristic(problem *model.Problem) (*optimization.Response, error) {
	res, err := swarm.Solve(problem.Program, r.params)
	if err != nil {
		return nil, fmt.Errorf("particle swarm failed: %w", err)
	}
	r.metrics.ObserveSwarm(res.Iterations)

	out, err := result.Process(problem, res.Position)
	if err != nil {
		return nil, fmt.Errorf("particle swarm failed: %w", err)
	}
	if res.Violation > constants.FractionTolerance || !res.Converged {
		r.logger.Warn("particle swarm result may be unreliable",
			zap.String("op", "optimizer.PSO"),
			zap.Float64("violation", res.Violation),
			zap.Int("iterations", res.Iterations),
			zap.Bool("converged", res.Converged),
		)
	}
	return &optimization.Response{
		Status:               optimization.StatusOptimal,
		Method:               constants.MethodPSO,
		OptimizedCost:        out.Cost,
		OptimizedIngredients: out.Ingredients,
		OptimizedNutrients:   out.Nutrients,
		Diagnostics: &optimization.Diagnostics{
			Iterations: res.Iterations,
			Converged:  res.Converged,
			Violation:  res.Violation,
			Fitness:    res.Fitness,
		},
	}, nil
}

func (r *Runner) finish(method string, req *formulation.Request, resp *optimization.Response, err error, start time.Time) {
	elapsed := time.Since(start)
	label := statusLabel(resp, err)
	r.metrics.ObserveSolve(method, label, elapsed)

	var userID string
	if req != nil {
		userID = req.UserID
	}
	if err != nil {
		r.logger.Warn("formulation solve failed",
			zap.String("op", "optimizer."+method),
			zap.String("userId", userID),
			zap.String("status", label),
			zap.Duration("duration", elapsed),
			zap.Error(err),
		)
		return
	}

	resp.Duration = elapsed.Round(time.Microsecond).String()
	r.logger.Info("formulation solved",
		zap.String("op", "optimizer."+method),
		zap.String("userId", userID),
		zap.String("status", resp.Status),
		zap.String("message", resp.Message),
		zap.Float64("cost", resp.OptimizedCost),
		zap.Duration("duration", elapsed),
	)
}

// undercuts reports a heuristic cost more than a cent below the exact optimum.
func undercuts(gap float64) bool {
	return gap < 0 && !mathutil.IsZero(gap)
}

func statusLabel(resp *optimization.Response, err error) string {
	switch {
	case errors.Is(err, model.ErrInvalidRequest):
		return statusLabelInvalid
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return statusLabelTimeout
	case err != nil:
		return statusLabelError
	case resp.Optimal():
		return statusLabelOptimal
	default:
		return statusLabelNoOptimal
	}
}

// await runs fn in its own goroutine and gives up when ctx ends first. The
// solvers cannot be interrupted, so a late result is discarded.
func await[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	type outcome struct {
		value T
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- outcome{err: fmt.Errorf("%w: %v", simplex.ErrSolverFailure, p)}
			}
		}()
		value, err := fn()
		done <- outcome{value: value, err: err}
	}()

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case o := <-done:
		return o.value, o.err
	}
}
