// Package result turns solver fractions into batch costs and nutrient totals.
package result

import (
	"fmt"

	"github.com/sapat/feed-optimizer/internal/model"
	"github.com/sapat/feed-optimizer/pkg/lp"
	"github.com/sapat/feed-optimizer/pkg/optimization"
)

// Outcome is the reportable view of a mixture.
type Outcome struct {
	// Cost is the price of the whole batch.
	Cost        float64
	Ingredients []optimization.NamedValue
	Nutrients   []optimization.NamedValue
}

// Process evaluates fractions against problem. Ingredient values are the
// fractions themselves; nutrient values are per-unit contents of the mixture.
func Process(problem *model.Problem, fractions []float64) (*Outcome, error) {
	if problem == nil || problem.Program == nil {
		return nil, fmt.Errorf("result: problem cannot be nil")
	}
	if len(fractions) != len(problem.Ingredients) {
		return nil, fmt.Errorf("result: got %d fractions for %d ingredients", len(fractions), len(problem.Ingredients))
	}

	out := &Outcome{
		Ingredients: make([]optimization.NamedValue, len(problem.Ingredients)),
		Nutrients:   make([]optimization.NamedValue, len(problem.Nutrients)),
	}
	for i, ing := range problem.Ingredients {
		out.Cost += ing.Price * fractions[i] * problem.Weight
		out.Ingredients[i] = optimization.NamedValue{Name: ing.Name, Value: fractions[i]}
	}
	for i, n := range problem.Nutrients {
		row := problem.Program.Constraints[n.Row]
		out.Nutrients[i] = optimization.NamedValue{
			Name:  n.Name,
			Value: lp.Activity(row.Coefficients, fractions),
			Unit:  n.Unit,
		}
	}
	return out, nil
}

// Zero is the outcome shown when no mixture was found.
func Zero(problem *model.Problem) *Outcome {
	out := &Outcome{}
	if problem == nil {
		return out
	}
	for _, ing := range problem.Ingredients {
		out.Ingredients = append(out.Ingredients, optimization.NamedValue{Name: ing.Name})
	}
	for _, n := range problem.Nutrients {
		out.Nutrients = append(out.Nutrients, optimization.NamedValue{Name: n.Name, Unit: n.Unit})
	}
	return out
}
