package validation

import "fmt"

// ValidateIngredientBounds checks an ingredient's limits against the batch weight.
func ValidateIngredientBounds(name string, minimum, maximum, weight float64) []string {
	var warnings []string

	if maximum > 0 && maximum >= weight {
		warnings = append(warnings, fmt.Sprintf("Ingredient '%s' maximum %g is not below the batch weight %g - the limit has no effect",
			name, maximum, weight))
	}
	if maximum > 0 && maximum == minimum {
		warnings = append(warnings, fmt.Sprintf("Ingredient '%s' is fixed at %g", name, minimum))
	}

	return warnings
}

// ValidateNutrientBounds checks that a nutrient selection restricts the mixture.
func ValidateNutrientBounds(name string, minimum, maximum float64) string {
	if minimum == 0 && maximum == 0 {
		return fmt.Sprintf("Nutrient '%s' has neither a minimum nor a maximum - it is only reported", name)
	}
	return ""
}

// FormulationValidator checks a formulation for settings that will make it
// infeasible or ineffective. It never rejects a formulation.
type FormulationValidator struct {
	Weight      float64
	Ingredients []BoundConfig
	Nutrients   []BoundConfig
}

// BoundConfig is a named minimum and maximum; a zero Maximum means unbounded.
type BoundConfig struct {
	Name    string
	Minimum float64
	Maximum float64
}

// ValidateAll validates the entire formulation and returns warnings
func (fv *FormulationValidator) ValidateAll() []string {
	var warnings []string

	minTotal := 0.0
	maxTotal := 0.0
	unbounded := false
	for _, ing := range fv.Ingredients {
		warnings = append(warnings, ValidateIngredientBounds(ing.Name, ing.Minimum, ing.Maximum, fv.Weight)...)
		minTotal += ing.Minimum
		if ing.Maximum > 0 {
			maxTotal += ing.Maximum
		} else {
			unbounded = true
		}
	}

	if minTotal > fv.Weight {
		warnings = append(warnings, fmt.Sprintf("Ingredient minimums total %g, more than the batch weight %g - no mixture can satisfy them",
			minTotal, fv.Weight))
	}
	if len(fv.Ingredients) > 0 && !unbounded && maxTotal < fv.Weight {
		warnings = append(warnings, fmt.Sprintf("Ingredient maximums total %g, less than the batch weight %g - no mixture can satisfy them",
			maxTotal, fv.Weight))
	}

	for _, n := range fv.Nutrients {
		if warning := ValidateNutrientBounds(n.Name, n.Minimum, n.Maximum); warning != "" {
			warnings = append(warnings, warning)
		}
	}

	return warnings
}
