// Package testutil provides common utility functions and fixtures for testing.
package testutil

import (
	"fmt"

	"github.com/sapat/feed-optimizer/internal/catalogue"
	"github.com/sapat/feed-optimizer/internal/formulation"
	"github.com/sapat/feed-optimizer/pkg/optimization"
)

// FindValue finds a named value by name in the results slice.
// Returns a pointer to the value if found, nil otherwise.
func FindValue(values []optimization.NamedValue, name string) *optimization.NamedValue {
	for i := range values {
		if values[i].Name == name {
			return &values[i]
		}
	}
	return nil
}

// FindShadowPrice finds the shadow price of a constraint by name.
func FindShadowPrice(prices []optimization.ShadowPrice, constraint string) *optimization.ShadowPrice {
	for i := range prices {
		if prices[i].Constraint == constraint {
			return &prices[i]
		}
	}
	return nil
}

func mustMemory(ingredients []catalogue.Ingredient) *catalogue.Memory {
	m, err := catalogue.NewMemory(ingredients, nil)
	if err != nil {
		panic(fmt.Sprintf("testutil: invalid fixture catalogue: %v", err))
	}
	return m
}

// SlackCatalogue has a cheap protein-rich ingredient and a dear protein-poor one.
func SlackCatalogue() *catalogue.Memory {
	return mustMemory([]catalogue.Ingredient{
		{ID: "cheap", Name: "Cheap", Price: 10, Nutrients: map[string]float64{"protein": 5}},
		{ID: "dear", Name: "Dear", Price: 20, Nutrients: map[string]float64{"protein": 1}},
	})
}

// SlackRequest needs protein >= 3 over a 100 unit batch; the cheap ingredient
// alone satisfies it, so the optimum is all "Cheap" at a cost of 1000.
func SlackRequest() *formulation.Request {
	return &formulation.Request{
		Ingredients: []formulation.IngredientSelection{
			{IngredientID: "cheap", Name: "Cheap"},
			{IngredientID: "dear", Name: "Dear"},
		},
		Nutrients: []formulation.NutrientSelection{
			{NutrientID: "protein", Name: "Protein", Minimum: 3, Unit: "%"},
		},
		Weight: 100,
	}
}

// BindingCatalogue swaps the protein contents so the protein row binds.
func BindingCatalogue() *catalogue.Memory {
	return mustMemory([]catalogue.Ingredient{
		{ID: "cheap", Name: "Cheap", Price: 10, Nutrients: map[string]float64{"protein": 1}},
		{ID: "dear", Name: "Dear", Price: 20, Nutrients: map[string]float64{"protein": 5}},
	})
}

// BindingRequest has its optimum at an even split costing 1500, where one
// more unit of required protein costs 2.5 per unit of batch fraction.
func BindingRequest() *formulation.Request {
	return SlackRequest()
}

// LayerCatalogue is a small poultry catalogue with calcium and phosphorus sources.
func LayerCatalogue() *catalogue.Memory {
	return mustMemory([]catalogue.Ingredient{
		{ID: "corn", Name: "Corn", Price: 10, Nutrients: map[string]float64{"cp": 8.5, "ca": 0.02, "p": 0.28}},
		{ID: "soy", Name: "Soybean meal", Price: 20, Nutrients: map[string]float64{"cp": 44, "ca": 0.3, "p": 0.65}},
		{ID: "limestone", Name: "Limestone", Price: 2, Nutrients: map[string]float64{"ca": 38}},
		{ID: "dcp", Name: "Dicalcium phosphate", Price: 30, Nutrients: map[string]float64{"ca": 22, "p": 18}},
	})
}

// LayerRequest asks for 18% protein with calcium held at twice phosphorus.
func LayerRequest() *formulation.Request {
	return &formulation.Request{
		Ingredients: []formulation.IngredientSelection{
			{IngredientID: "corn", Name: "Corn"},
			{IngredientID: "soy", Name: "Soybean meal", Maximum: 40},
			{IngredientID: "limestone", Name: "Limestone", Maximum: 10},
			{IngredientID: "dcp", Name: "Dicalcium phosphate", Maximum: 5},
		},
		Nutrients: []formulation.NutrientSelection{
			{NutrientID: "cp", Name: "Crude protein", Minimum: 18, Unit: "%"},
			{NutrientID: "ca", Name: "Calcium", Minimum: 0.9, Maximum: 4, Unit: "%"},
			{NutrientID: "p", Name: "Phosphorus", Minimum: 0.6, Unit: "%"},
		},
		NutrientRatioConstraints: []formulation.RatioConstraint{
			{
				FirstNutrientID: "ca", FirstNutrient: "Calcium",
				SecondNutrientID: "p", SecondNutrient: "Phosphorus",
				Operator: "=", FirstRatio: 2, SecondRatio: 1,
			},
		},
		Weight: 100,
	}
}
