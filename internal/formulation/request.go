// Package formulation defines the optimization request exchanged over HTTP
// and read from configuration files.
package formulation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Request asks for the least-cost mixture of the selected ingredients.
type Request struct {
	UserID                   string                `json:"userId,omitempty" yaml:"userId,omitempty" mapstructure:"userId"`
	Ingredients              []IngredientSelection `json:"ingredients" yaml:"ingredients" mapstructure:"ingredients" validate:"required,min=1,dive"`
	Nutrients                []NutrientSelection   `json:"nutrients" yaml:"nutrients" mapstructure:"nutrients" validate:"dive"`
	NutrientRatioConstraints []RatioConstraint     `json:"nutrientRatioConstraints,omitempty" yaml:"nutrientRatioConstraints,omitempty" mapstructure:"nutrientRatioConstraints" validate:"dive"`
	Weight                   float64               `json:"weight" yaml:"weight" mapstructure:"weight"`
}

// IngredientSelection bounds the amount of one catalogue ingredient in the
// batch. A zero Maximum means no maximum was set.
type IngredientSelection struct {
	IngredientID string  `json:"ingredient_id" yaml:"ingredient_id" mapstructure:"ingredient_id" validate:"required"`
	Name         string  `json:"name" yaml:"name" mapstructure:"name"`
	Minimum      float64 `json:"minimum" yaml:"minimum" mapstructure:"minimum" validate:"gte=0"`
	Maximum      float64 `json:"maximum" yaml:"maximum" mapstructure:"maximum" validate:"gte=0"`
}

// HasMaximum reports whether an upper limit was given.
func (s IngredientSelection) HasMaximum() bool {
	return s.Maximum > 0
}

// NutrientSelection bounds the mixture's content of one nutrient.
type NutrientSelection struct {
	NutrientID string  `json:"nutrient_id" yaml:"nutrient_id" mapstructure:"nutrient_id" validate:"required"`
	Name       string  `json:"name" yaml:"name" mapstructure:"name"`
	Unit       string  `json:"unit,omitempty" yaml:"unit,omitempty" mapstructure:"unit"`
	Minimum    float64 `json:"minimum" yaml:"minimum" mapstructure:"minimum" validate:"gte=0"`
	Maximum    float64 `json:"maximum" yaml:"maximum" mapstructure:"maximum" validate:"gte=0"`
}

// HasMaximum reports whether an upper limit was given.
func (s NutrientSelection) HasMaximum() bool {
	return s.Maximum > 0
}

// RatioConstraint relates the totals of two nutrients, for example
// calcium:phosphorus >= 2:1. The ingredient-prefixed JSON names are kept for
// compatibility with existing clients.
type RatioConstraint struct {
	FirstNutrientID  string  `json:"firstIngredientId" yaml:"firstIngredientId" mapstructure:"firstIngredientId" validate:"required"`
	FirstNutrient    string  `json:"firstIngredient,omitempty" yaml:"firstIngredient,omitempty" mapstructure:"firstIngredient"`
	SecondNutrientID string  `json:"secondIngredientId" yaml:"secondIngredientId" mapstructure:"secondIngredientId" validate:"required"`
	SecondNutrient   string  `json:"secondIngredient,omitempty" yaml:"secondIngredient,omitempty" mapstructure:"secondIngredient"`
	Operator         string  `json:"operator" yaml:"operator" mapstructure:"operator" validate:"required"`
	FirstRatio       float64 `json:"firstIngredientRatio" yaml:"firstIngredientRatio" mapstructure:"firstIngredientRatio" validate:"gt=0"`
	SecondRatio      float64 `json:"secondIngredientRatio" yaml:"secondIngredientRatio" mapstructure:"secondIngredientRatio" validate:"gt=0"`
}

// Label names the constraint row, e.g. "Calcium:Phosphorus".
func (r RatioConstraint) Label() string {
	first := r.FirstNutrient
	if first == "" {
		first = r.FirstNutrientID
	}
	second := r.SecondNutrient
	if second == "" {
		second = r.SecondNutrientID
	}
	return first + ":" + second
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the structural rules carried in the struct tags.
func (r *Request) Validate() error {
	if r == nil {
		return errors.New("request cannot be nil")
	}
	if err := validate.Struct(r); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			messages := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				messages = append(messages, describe(fe))
			}
			return errors.New(strings.Join(messages, "; "))
		}
		return err
	}
	return nil
}

func describe(fe validator.FieldError) string {
	field := fe.Namespace()
	if idx := strings.IndexByte(field, '.'); idx >= 0 {
		field = field[idx+1:]
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must contain at least %s entry", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must not be negative", field)
	case "gt":
		return fmt.Sprintf("%s must be positive", field)
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
