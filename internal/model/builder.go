// Package model translates a formulation request into a linear program over
// ingredient fractions.
//
// Each selected ingredient becomes one variable: the fraction of the batch it
// makes up. Nutrient rows bound the mixture's nutrient content, ratio rows
// relate two nutrient totals, and a final "Total Ratio" row forces the
// fractions to sum to one.
package model

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/sapat/feed-optimizer/internal/catalogue"
	"github.com/sapat/feed-optimizer/internal/formulation"
	"github.com/sapat/feed-optimizer/pkg/constants"
	"github.com/sapat/feed-optimizer/pkg/lp"
)

// ErrInvalidRequest wraps every build failure.
var ErrInvalidRequest = errors.New("invalid formulation request")

// Ingredient is a resolved decision variable.
type Ingredient struct {
	ID    string
	Name  string
	Price float64
}

// Nutrient is a nutrient bounded by the request.
type Nutrient struct {
	ID   string
	Name string
	Unit string
	// Row is the constraint row holding this nutrient's total.
	Row int
}

// Problem is a built linear program plus what is needed to report on it.
type Problem struct {
	Program     *lp.Program
	Weight      float64
	Ingredients []Ingredient
	Nutrients   []Nutrient
}

// TotalRow returns the index of the Total Ratio row.
func (p *Problem) TotalRow() int {
	return len(p.Program.Constraints) - 1
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// Build resolves every ingredient through cat and assembles the program. On
// error no partial program is returned.
func Build(ctx context.Context, req *formulation.Request, cat catalogue.Catalogue) (*Problem, error) {
	if cat == nil {
		return nil, errors.New("model: catalogue cannot be nil")
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if req.Weight <= 0 || math.IsNaN(req.Weight) || math.IsInf(req.Weight, 0) {
		return nil, invalid("batch weight must be positive, got %g", req.Weight)
	}

	resolved, err := resolveIngredients(ctx, req, cat)
	if err != nil {
		return nil, err
	}

	prog := &lp.Program{Variables: make([]lp.Variable, len(resolved))}
	problem := &Problem{Program: prog, Weight: req.Weight}

	for i, sel := range req.Ingredients {
		ing := resolved[i]
		if sel.HasMaximum() && sel.Minimum > sel.Maximum {
			return nil, invalid("ingredient %q minimum %g exceeds maximum %g", displayName(sel.Name, ing.Name), sel.Minimum, sel.Maximum)
		}
		if sel.Minimum > req.Weight {
			return nil, invalid("ingredient %q minimum %g exceeds batch weight %g", displayName(sel.Name, ing.Name), sel.Minimum, req.Weight)
		}
		v := lp.Variable{
			Name:  displayName(sel.Name, ing.Name),
			Cost:  ing.Price,
			Lower: sel.Minimum / req.Weight,
			Upper: 1,
			Bound: lp.Lower,
		}
		if sel.HasMaximum() {
			v.Upper = sel.Maximum / req.Weight
			v.Bound = lp.Double
		}
		prog.Variables[i] = v
		problem.Ingredients = append(problem.Ingredients, Ingredient{ID: ing.ID, Name: v.Name, Price: ing.Price})
	}

	nutrientIndex := make(map[string]int, len(req.Nutrients))
	for _, sel := range req.Nutrients {
		if _, dup := nutrientIndex[sel.NutrientID]; dup {
			return nil, invalid("nutrient %q is listed more than once", sel.NutrientID)
		}
		if sel.HasMaximum() && sel.Minimum > sel.Maximum {
			return nil, invalid("nutrient %q minimum %g exceeds maximum %g", displayName(sel.Name, sel.NutrientID), sel.Minimum, sel.Maximum)
		}
		row := lp.Constraint{
			Name:         displayName(sel.Name, sel.NutrientID),
			Kind:         lp.NutrientRow,
			Coefficients: contents(resolved, sel.NutrientID),
			Lower:        sel.Minimum,
			Bound:        lp.Lower,
		}
		if sel.HasMaximum() {
			row.Upper = sel.Maximum
			row.Bound = lp.Double
		}
		nutrientIndex[sel.NutrientID] = len(prog.Constraints)
		problem.Nutrients = append(problem.Nutrients, Nutrient{
			ID:   sel.NutrientID,
			Name: row.Name,
			Unit: sel.Unit,
			Row:  len(prog.Constraints),
		})
		prog.Constraints = append(prog.Constraints, row)
	}

	for _, rc := range req.NutrientRatioConstraints {
		row, err := ratioRow(rc, resolved, nutrientIndex)
		if err != nil {
			return nil, err
		}
		prog.Constraints = append(prog.Constraints, row)
	}

	total := make([]float64, len(resolved))
	for i := range total {
		total[i] = 1
	}
	prog.Constraints = append(prog.Constraints, lp.Constraint{
		Name:         constants.TotalRatioConstraint,
		Kind:         lp.TotalRow,
		Coefficients: total,
		Lower:        1,
		Upper:        1,
		Bound:        lp.Fixed,
	})

	if err := prog.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return problem, nil
}

func resolveIngredients(ctx context.Context, req *formulation.Request, cat catalogue.Catalogue) ([]catalogue.Ingredient, error) {
	seen := make(map[string]struct{}, len(req.Ingredients))
	resolved := make([]catalogue.Ingredient, len(req.Ingredients))
	for i, sel := range req.Ingredients {
		if _, dup := seen[sel.IngredientID]; dup {
			return nil, invalid("ingredient %q is listed more than once", sel.IngredientID)
		}
		seen[sel.IngredientID] = struct{}{}

		ing, err := cat.Ingredient(ctx, req.UserID, sel.IngredientID)
		if err != nil {
			if errors.Is(err, catalogue.ErrNotFound) {
				return nil, invalid("ingredient %q could not be resolved", sel.IngredientID)
			}
			return nil, fmt.Errorf("model: catalogue lookup for %q failed: %w", sel.IngredientID, err)
		}
		if ing.Price < 0 || math.IsNaN(ing.Price) || math.IsInf(ing.Price, 0) {
			return nil, invalid("ingredient %q has an invalid price %g", sel.IngredientID, ing.Price)
		}
		for nutrientID, content := range ing.Nutrients {
			if math.IsNaN(content) || math.IsInf(content, 0) {
				return nil, invalid("ingredient %q has an invalid %s content %g", sel.IngredientID, nutrientID, content)
			}
		}
		resolved[i] = ing
	}
	return resolved, nil
}

// ratioRow linearises first/second OP a/b as
// b*total(first) - a*total(second) OP 0.
func ratioRow(rc formulation.RatioConstraint, resolved []catalogue.Ingredient, nutrientIndex map[string]int) (lp.Constraint, error) {
	if _, ok := nutrientIndex[rc.FirstNutrientID]; !ok {
		return lp.Constraint{}, invalid("ratio %q references nutrient %q which is not constrained", rc.Label(), rc.FirstNutrientID)
	}
	if _, ok := nutrientIndex[rc.SecondNutrientID]; !ok {
		return lp.Constraint{}, invalid("ratio %q references nutrient %q which is not constrained", rc.Label(), rc.SecondNutrientID)
	}
	op, err := lp.ParseOperator(rc.Operator)
	if err != nil {
		return lp.Constraint{}, invalid("ratio %q: %v", rc.Label(), err)
	}

	coefs := make([]float64, len(resolved))
	for i, ing := range resolved {
		coefs[i] = rc.SecondRatio*ing.Content(rc.FirstNutrientID) - rc.FirstRatio*ing.Content(rc.SecondNutrientID)
	}
	lower, upper, bound := op.Bounds(0)
	return lp.Constraint{
		Name:         rc.Label(),
		Kind:         lp.RatioRow,
		Coefficients: coefs,
		Lower:        lower,
		Upper:        upper,
		Bound:        bound,
	}, nil
}

func contents(resolved []catalogue.Ingredient, nutrientID string) []float64 {
	coefs := make([]float64, len(resolved))
	for i, ing := range resolved {
		coefs[i] = ing.Content(nutrientID)
	}
	return coefs
}

func displayName(preferred, fallback string) string {
	if preferred != "" {
		return preferred
	}
	return fallback
}
