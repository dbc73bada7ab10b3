package simplex

import (
	"github.com/sapat/feed-optimizer/pkg/lp"
	"github.com/sapat/feed-optimizer/pkg/optimization"
)

// ShadowPrices lists the non-zero row duals of an optimal solution. The row
// that forces fractions to sum to one is always omitted.
func ShadowPrices(prog *lp.Program, sol *Solution) []optimization.ShadowPrice {
	if prog == nil || sol == nil || sol.Status != Optimal {
		return nil
	}
	var prices []optimization.ShadowPrice
	for k, c := range prog.Constraints {
		if c.Kind == lp.TotalRow || k >= len(sol.Duals) {
			continue
		}
		if sol.Duals[k] == 0 {
			continue
		}
		prices = append(prices, optimization.ShadowPrice{
			Constraint:  c.Name,
			ShadowPrice: sol.Duals[k],
		})
	}
	return prices
}
