// Package lp describes linear programs in a solver-neutral way.
//
// A Program minimises the sum of Cost*x over its Variables subject to one
// bounded row per Constraint. Bounds follow the GLPK convention: a row or
// column is free, bounded from one side, bounded from both sides, or fixed.
package lp

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// BoundType identifies which of Lower and Upper apply.
type BoundType int

const (
	// Free rows and columns are unbounded.
	Free BoundType = iota
	// Lower applies only the lower bound.
	Lower
	// Upper applies only the upper bound.
	Upper
	// Double applies both bounds.
	Double
	// Fixed requires the value to equal Lower.
	Fixed
)

func (b BoundType) String() string {
	switch b {
	case Free:
		return "free"
	case Lower:
		return "lower"
	case Upper:
		return "upper"
	case Double:
		return "double"
	case Fixed:
		return "fixed"
	default:
		return fmt.Sprintf("BoundType(%d)", int(b))
	}
}

// HasLower reports whether the lower bound is enforced.
func (b BoundType) HasLower() bool {
	return b == Lower || b == Double || b == Fixed
}

// HasUpper reports whether the upper bound is enforced.
func (b BoundType) HasUpper() bool {
	return b == Upper || b == Double || b == Fixed
}

// RowKind tags what a constraint row represents.
type RowKind int

const (
	// NutrientRow bounds the total of one nutrient.
	NutrientRow RowKind = iota
	// RatioRow relates the totals of two nutrients.
	RatioRow
	// TotalRow forces the fractions to sum to one.
	TotalRow
)

func (k RowKind) String() string {
	switch k {
	case NutrientRow:
		return "nutrient"
	case RatioRow:
		return "ratio"
	case TotalRow:
		return "total"
	default:
		return fmt.Sprintf("RowKind(%d)", int(k))
	}
}

// Variable is a single decision variable.
type Variable struct {
	Name  string
	Cost  float64
	Lower float64
	Upper float64
	Bound BoundType
}

// Constraint is one bounded linear row. Coefficients holds one entry per
// program variable.
type Constraint struct {
	Name         string
	Kind         RowKind
	Coefficients []float64
	Lower        float64
	Upper        float64
	Bound        BoundType
}

// Program is a minimisation problem.
type Program struct {
	Variables   []Variable
	Constraints []Constraint
}

// ErrShape is returned by Validate for inconsistent dimensions.
var ErrShape = errors.New("lp: dimension mismatch")

// Validate checks dimensions and bound consistency.
func (p *Program) Validate() error {
	if p == nil || len(p.Variables) == 0 {
		return fmt.Errorf("%w: program has no variables", ErrShape)
	}
	for _, v := range p.Variables {
		if math.IsNaN(v.Cost) || math.IsInf(v.Cost, 0) {
			return fmt.Errorf("variable %q has a non-finite cost", v.Name)
		}
		if v.Bound == Double && v.Lower > v.Upper {
			return fmt.Errorf("variable %q lower bound %g exceeds upper bound %g", v.Name, v.Lower, v.Upper)
		}
	}
	for _, c := range p.Constraints {
		if len(c.Coefficients) != len(p.Variables) {
			return fmt.Errorf("%w: row %q has %d coefficients for %d variables",
				ErrShape, c.Name, len(c.Coefficients), len(p.Variables))
		}
		for _, a := range c.Coefficients {
			if math.IsNaN(a) || math.IsInf(a, 0) {
				return fmt.Errorf("row %q has a non-finite coefficient", c.Name)
			}
		}
		if c.Bound == Double && c.Lower > c.Upper {
			return fmt.Errorf("row %q lower bound %g exceeds upper bound %g", c.Name, c.Lower, c.Upper)
		}
	}
	return nil
}

// Objective evaluates the cost of x.
func (p *Program) Objective(x []float64) float64 {
	total := 0.0
	for i, v := range p.Variables {
		total += v.Cost * x[i]
	}
	return total
}

// Costs returns the objective coefficients.
func (p *Program) Costs() []float64 {
	costs := make([]float64, len(p.Variables))
	for i, v := range p.Variables {
		costs[i] = v.Cost
	}
	return costs
}

// Violation is the summed distance of x from every row and column bound.
func (p *Program) Violation(x []float64) float64 {
	total := 0.0
	for _, c := range p.Constraints {
		total += c.Violation(Activity(c.Coefficients, x))
	}
	for i, v := range p.Variables {
		total += v.Violation(x[i])
	}
	return total
}

// Activity is the dot product of a row with x.
func Activity(coefficients, x []float64) float64 {
	total := 0.0
	for i, a := range coefficients {
		total += a * x[i]
	}
	return total
}

// Violation is how far value lies outside the row bounds.
func (c Constraint) Violation(value float64) float64 {
	return violation(c.Bound, c.Lower, c.Upper, value)
}

// Violation is how far value lies outside the column bounds.
func (v Variable) Violation(value float64) float64 {
	return violation(v.Bound, v.Lower, v.Upper, value)
}

// Clamp moves value into the column bounds.
func (v Variable) Clamp(value float64) float64 {
	if v.Bound.HasLower() && value < v.Lower {
		value = v.Lower
	}
	upper := v.Upper
	if v.Bound == Fixed {
		upper = v.Lower
	}
	if v.Bound.HasUpper() && value > upper {
		value = upper
	}
	return value
}

func violation(bound BoundType, lower, upper, value float64) float64 {
	switch bound {
	case Lower:
		if value < lower {
			return lower - value
		}
	case Upper:
		if value > upper {
			return value - upper
		}
	case Double:
		if value < lower {
			return lower - value
		}
		if value > upper {
			return value - upper
		}
	case Fixed:
		return math.Abs(value - lower)
	}
	return 0
}

// Operator relates the two sides of a ratio constraint.
type Operator int

const (
	LessEqual Operator = iota
	Equal
	GreaterEqual
)

func (o Operator) String() string {
	switch o {
	case LessEqual:
		return "<="
	case Equal:
		return "="
	case GreaterEqual:
		return ">="
	default:
		return fmt.Sprintf("Operator(%d)", int(o))
	}
}

// ParseOperator accepts "<=", "=", ">=" and their common spellings.
func ParseOperator(s string) (Operator, error) {
	switch strings.TrimSpace(s) {
	case "<=", "≤", "=<":
		return LessEqual, nil
	case "=", "==":
		return Equal, nil
	case ">=", "≥", "=>":
		return GreaterEqual, nil
	default:
		return 0, fmt.Errorf("unsupported operator %q", s)
	}
}

// Bounds returns the row bounds that express "activity OP rhs".
func (o Operator) Bounds(rhs float64) (lower, upper float64, bound BoundType) {
	switch o {
	case LessEqual:
		return 0, rhs, Upper
	case GreaterEqual:
		return rhs, 0, Lower
	default:
		return rhs, rhs, Fixed
	}
}
