// Package simplex solves feed programs exactly with gonum's simplex
// implementation and derives constraint shadow prices from the dual program.
package simplex

import (
	"errors"
	"fmt"

	"github.com/sapat/feed-optimizer/pkg/lp"
	"github.com/sapat/feed-optimizer/pkg/mathutil"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
	gonumlp "gonum.org/v1/gonum/optimize/convex/lp"
)

// ErrSolverFailure wraps faults inside the simplex engine. Infeasible and
// unbounded programs are reported through Status instead.
var ErrSolverFailure = errors.New("simplex solver failure")

// Status is the outcome of a solve.
type Status int

const (
	Optimal Status = iota
	Infeasible
	Unbounded
)

func (s Status) String() string {
	switch s {
	case Optimal:
		return "optimal"
	case Infeasible:
		return "infeasible"
	case Unbounded:
		return "unbounded"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

const (
	// zeroTol snaps solution and dual entries to zero.
	zeroTol = 1e-9
	// rankTol is the relative singular value cut-off for dependent equality rows.
	rankTol = 1e-10
	// residualTol is how far a dropped equality row may be from holding.
	residualTol = 1e-7
	// reducedCostTol is the optimality tolerance handed to the engine.
	reducedCostTol = 1e-10
)

// Solution is the result of Solve. X and Duals are only set when Status is
// Optimal. Duals holds one entry per program constraint, the derivative of
// the optimal cost with respect to that row's bound.
type Solution struct {
	Status    Status
	X         []float64
	Objective float64
	Duals     []float64
}

// Solver runs the simplex method on lp.Programs.
type Solver struct {
	logger *zap.Logger
}

// Option configures a Solver.
type Option func(*Solver)

// WithLogger sets the logger used for solver diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Solver) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a Solver.
func New(opts ...Option) *Solver {
	s := &Solver{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// rowRef maps a general-form row back to the program constraint it came from.
type rowRef struct {
	constraint int
	// sign is the derivative of the general-form right hand side with respect
	// to the constraint bound: -1 for "-a.x <= -lower", +1 otherwise.
	sign float64
}

// generalForm is min c.x subject to G x <= h and A x = b, x free.
type generalForm struct {
	c      []float64
	g      [][]float64
	h      []float64
	gRefs  []rowRef
	a      [][]float64
	b      []float64
	aRefs  []rowRef
	unused [][]float64
	// unusedRHS pairs with unused for the post-solve residual check.
	unusedRHS []float64
}

// Solve finds the least-cost point of prog.
func (s *Solver) Solve(prog *lp.Program) (sol *Solution, err error) {
	if err := prog.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSolverFailure, err)
	}

	defer func() {
		if r := recover(); r != nil {
			sol = nil
			err = fmt.Errorf("%w: %v", ErrSolverFailure, r)
		}
	}()

	form := toGeneralForm(prog)
	s.logger.Debug("simplex program assembled",
		zap.String("op", "simplex.Solve"),
		zap.Int("variables", len(form.c)),
		zap.Int("inequalities", len(form.h)),
		zap.Int("equalities", len(form.b)),
		zap.Int("droppedEqualities", len(form.unused)),
	)

	x, status, err := solvePrimal(form)
	if err != nil {
		return nil, err
	}
	if status != Optimal {
		return &Solution{Status: status}, nil
	}

	for i, row := range form.unused {
		if !mathutil.WithinTolerance(lp.Activity(row, x), form.unusedRHS[i], residualTol) {
			s.logger.Debug("dependent equality row violated",
				zap.String("op", "simplex.Solve"),
				zap.Int("row", i),
			)
			return &Solution{Status: Infeasible}, nil
		}
	}

	duals, err := solveDual(form, len(prog.Constraints))
	if err != nil {
		return nil, err
	}

	return &Solution{
		Status:    Optimal,
		X:         x,
		Objective: prog.Objective(x),
		Duals:     duals,
	}, nil
}

func toGeneralForm(prog *lp.Program) *generalForm {
	n := len(prog.Variables)
	form := &generalForm{c: prog.Costs()}

	addG := func(row []float64, rhs float64, ref rowRef) {
		form.g = append(form.g, row)
		form.h = append(form.h, rhs)
		form.gRefs = append(form.gRefs, ref)
	}

	for i, v := range prog.Variables {
		unit := make([]float64, n)
		if v.Bound.HasLower() {
			unit[i] = -1
			addG(unit, -v.Lower, rowRef{constraint: -1})
		}
		if v.Bound.HasUpper() {
			upper := v.Upper
			if v.Bound == lp.Fixed {
				upper = v.Lower
			}
			unit = make([]float64, n)
			unit[i] = 1
			addG(unit, upper, rowRef{constraint: -1})
		}
	}

	var eqRows [][]float64
	var eqRHS []float64
	var eqRefs []rowRef
	for k, c := range prog.Constraints {
		switch c.Bound {
		case lp.Fixed:
			if allZero(c.Coefficients) {
				form.unused = append(form.unused, c.Coefficients)
				form.unusedRHS = append(form.unusedRHS, c.Lower)
				continue
			}
			eqRows = append(eqRows, c.Coefficients)
			eqRHS = append(eqRHS, c.Lower)
			eqRefs = append(eqRefs, rowRef{constraint: k, sign: 1})
		case lp.Lower, lp.Double:
			addG(scaled(c.Coefficients, -1), -c.Lower, rowRef{constraint: k, sign: -1})
			if c.Bound == lp.Double {
				addG(c.Coefficients, c.Upper, rowRef{constraint: k, sign: 1})
			}
		case lp.Upper:
			addG(c.Coefficients, c.Upper, rowRef{constraint: k, sign: 1})
		}
	}

	for _, idx := range independentRows(eqRows) {
		form.a = append(form.a, eqRows[idx])
		form.b = append(form.b, eqRHS[idx])
		form.aRefs = append(form.aRefs, eqRefs[idx])
	}
	if len(form.a) < len(eqRows) {
		kept := make(map[int]bool, len(form.a))
		for _, ref := range form.aRefs {
			kept[ref.constraint] = true
		}
		for i, ref := range eqRefs {
			if !kept[ref.constraint] {
				form.unused = append(form.unused, eqRows[i])
				form.unusedRHS = append(form.unusedRHS, eqRHS[i])
			}
		}
	}
	return form
}

func solvePrimal(form *generalForm) ([]float64, Status, error) {
	n := len(form.c)
	cNew, aNew, bNew := gonumlp.Convert(form.c, dense(form.g, n), form.h, dense(form.a, n), form.b)
	_, optX, err := gonumlp.Simplex(cNew, aNew, bNew, reducedCostTol, nil)
	switch {
	case err == nil:
	case errors.Is(err, gonumlp.ErrInfeasible):
		return nil, Infeasible, nil
	case errors.Is(err, gonumlp.ErrUnbounded):
		return nil, Unbounded, nil
	default:
		return nil, 0, fmt.Errorf("%w: primal: %v", ErrSolverFailure, err)
	}

	// Convert splits each free variable into positive and negative parts.
	x := make([]float64, n)
	for i := range x {
		x[i] = mathutil.Snap(optX[i]-optX[n+i], zeroTol)
	}
	return x, Optimal, nil
}

// solveDual solves
//
//	min h.l + b.v  subject to  G'l + A'v = -c,  l >= 0
//
// whose optimum gives the sensitivity of the primal cost to each right hand
// side: d(cost)/dh = -l and d(cost)/db = -v.
func solveDual(form *generalForm, constraints int) ([]float64, error) {
	n := len(form.c)
	p := len(form.h)
	q := len(form.b)
	m := p + q

	cDual := make([]float64, m)
	copy(cDual, form.h)
	copy(cDual[p:], form.b)

	eq := mat.NewDense(n, m, nil)
	for k, row := range form.g {
		for i, v := range row {
			eq.Set(i, k, v)
		}
	}
	for j, row := range form.a {
		for i, v := range row {
			eq.Set(i, p+j, v)
		}
	}
	rhs := make([]float64, n)
	for i, c := range form.c {
		rhs[i] = -c
	}

	var ineq *mat.Dense
	var ineqRHS []float64
	if p > 0 {
		ineq = mat.NewDense(p, m, nil)
		for k := 0; k < p; k++ {
			ineq.Set(k, k, -1)
		}
		ineqRHS = make([]float64, p)
	}

	var cNew []float64
	var aNew *mat.Dense
	var bNew []float64
	if ineq != nil {
		cNew, aNew, bNew = gonumlp.Convert(cDual, ineq, ineqRHS, eq, rhs)
	} else {
		cNew, aNew, bNew = gonumlp.Convert(cDual, nil, nil, eq, rhs)
	}
	_, optZ, err := gonumlp.Simplex(cNew, aNew, bNew, reducedCostTol, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: dual: %v", ErrSolverFailure, err)
	}

	z := make([]float64, m)
	for i := range z {
		z[i] = optZ[i] - optZ[m+i]
	}

	duals := make([]float64, constraints)
	for k, ref := range form.gRefs {
		if ref.constraint < 0 {
			continue
		}
		// d(cost)/d(bound) = d(cost)/dh * dh/d(bound) = -l * sign
		duals[ref.constraint] += -z[k] * ref.sign
	}
	for j, ref := range form.aRefs {
		duals[ref.constraint] += -z[p+j] * ref.sign
	}
	for i := range duals {
		duals[i] = mathutil.Snap(duals[i], zeroTol)
	}
	return duals, nil
}

// independentRows returns the indices of a maximal linearly independent
// subset of rows, preferring earlier rows.
func independentRows(rows [][]float64) []int {
	var kept []int
	for i := range rows {
		trial := append(append([]int(nil), kept...), i)
		if rank(rows, trial) == len(trial) {
			kept = trial
		}
	}
	return kept
}

func rank(rows [][]float64, idx []int) int {
	m := mat.NewDense(len(idx), len(rows[idx[0]]), nil)
	for r, i := range idx {
		m.SetRow(r, rows[i])
	}
	var svd mat.SVD
	if !svd.Factorize(m, mat.SVDNone) {
		return 0
	}
	values := svd.Values(nil)
	if len(values) == 0 || values[0] == 0 {
		return 0
	}
	count := 0
	for _, v := range values {
		if v > rankTol*values[0] {
			count++
		}
	}
	return count
}

func dense(rows [][]float64, cols int) mat.Matrix {
	if len(rows) == 0 {
		return nil
	}
	d := mat.NewDense(len(rows), cols, nil)
	for i, row := range rows {
		d.SetRow(i, row)
	}
	return d
}

func scaled(row []float64, factor float64) []float64 {
	out := make([]float64, len(row))
	for i, v := range row {
		out[i] = v * factor
	}
	return out
}

func allZero(row []float64) bool {
	for _, v := range row {
		if v != 0 {
			return false
		}
	}
	return true
}
