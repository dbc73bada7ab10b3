// Package optimization provides shared data structures for optimization results.
package optimization

import "github.com/sapat/feed-optimizer/pkg/constants"

// NamedValue is one reported ingredient amount or nutrient total.
type NamedValue struct {
	Name  string  `json:"name" yaml:"name"`
	Value float64 `json:"value" yaml:"value"`
	Unit  string  `json:"unit,omitempty" yaml:"unit,omitempty"`
}

// ShadowPrice is the marginal objective change per unit of a row bound.
type ShadowPrice struct {
	Constraint  string  `json:"constraint" yaml:"constraint"`
	ShadowPrice float64 `json:"shadowPrice" yaml:"shadowPrice"`
}

// Diagnostics describes how a heuristic run ended.
type Diagnostics struct {
	Iterations int     `json:"iterations" yaml:"iterations"`
	Converged  bool    `json:"converged" yaml:"converged"`
	Violation  float64 `json:"violation" yaml:"violation"`
	Fitness    float64 `json:"fitness" yaml:"fitness"`
}

// Response is the outcome of a single solve.
type Response struct {
	Status               string        `json:"status" yaml:"status"`
	Message              string        `json:"message,omitempty" yaml:"message,omitempty"`
	Method               string        `json:"method" yaml:"method"`
	OptimizedCost        float64       `json:"optimizedCost" yaml:"optimizedCost"`
	OptimizedIngredients []NamedValue  `json:"optimizedIngredients" yaml:"optimizedIngredients"`
	OptimizedNutrients   []NamedValue  `json:"optimizedNutrients" yaml:"optimizedNutrients"`
	ShadowPrices         []ShadowPrice `json:"shadowPrices,omitempty" yaml:"shadowPrices,omitempty"`
	Diagnostics          *Diagnostics  `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
	Duration             string        `json:"duration,omitempty" yaml:"duration,omitempty"`
}

// Optimal reports whether a usable mixture was produced.
func (r *Response) Optimal() bool {
	return r != nil && r.Status == StatusOptimal
}

// Comparison places an exact and a heuristic solve of the same request side
// by side.
type Comparison struct {
	Simplex *Response `json:"simplex" yaml:"simplex"`
	PSO     *Response `json:"pso" yaml:"pso"`
	// CostGap is the heuristic cost minus the exact cost; zero when either
	// solve has no optimum.
	CostGap float64 `json:"costGap" yaml:"costGap"`
	// Undercut flags a heuristic cost below the exact optimum beyond tolerance.
	Undercut bool `json:"undercut" yaml:"undercut"`
}

// Status strings shared with clients.
const (
	StatusOptimal   = constants.StatusOptimal
	StatusNoOptimal = constants.StatusNoOptimal
)
