// Package catalogue resolves ingredient ids to prices and nutrient profiles.
package catalogue

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when an ingredient id is unknown to a catalogue.
var ErrNotFound = errors.New("ingredient not found")

// Ingredient is a catalogue entry. Nutrients maps a nutrient id to its
// content per unit of ingredient; missing nutrients count as zero.
type Ingredient struct {
	ID        string             `json:"id" yaml:"id" mapstructure:"id"`
	Name      string             `json:"name" yaml:"name" mapstructure:"name"`
	Price     float64            `json:"price" yaml:"price" mapstructure:"price"`
	Nutrients map[string]float64 `json:"nutrients" yaml:"nutrients" mapstructure:"nutrients"`
}

// Content returns the ingredient's content of a nutrient.
func (i Ingredient) Content(nutrientID string) float64 {
	return i.Nutrients[nutrientID]
}

// Catalogue looks up ingredients, applying any per-user overrides.
type Catalogue interface {
	Ingredient(ctx context.Context, userID, ingredientID string) (Ingredient, error)
}

// Override replaces parts of a shared ingredient for one user. Zero-valued
// fields keep the shared value.
type Override struct {
	UserID       string             `json:"userId" yaml:"userId" mapstructure:"userId"`
	IngredientID string             `json:"ingredientId" yaml:"ingredientId" mapstructure:"ingredientId"`
	Name         string             `json:"name,omitempty" yaml:"name,omitempty" mapstructure:"name"`
	Price        *float64           `json:"price,omitempty" yaml:"price,omitempty" mapstructure:"price"`
	Nutrients    map[string]float64 `json:"nutrients,omitempty" yaml:"nutrients,omitempty" mapstructure:"nutrients"`
	Deleted      bool               `json:"deleted,omitempty" yaml:"deleted,omitempty" mapstructure:"deleted"`
}

// Apply merges the override into base.
func (o Override) Apply(base Ingredient) Ingredient {
	merged := base
	if o.Name != "" {
		merged.Name = o.Name
	}
	if o.Price != nil {
		merged.Price = *o.Price
	}
	if len(o.Nutrients) > 0 {
		merged.Nutrients = make(map[string]float64, len(base.Nutrients)+len(o.Nutrients))
		for k, v := range base.Nutrients {
			merged.Nutrients[k] = v
		}
		for k, v := range o.Nutrients {
			merged.Nutrients[k] = v
		}
	}
	return merged
}

// Memory is an in-process catalogue safe for concurrent use.
type Memory struct {
	mu          sync.RWMutex
	ingredients map[string]Ingredient
	overrides   map[string]map[string]Override
}

// NewMemory builds a catalogue from the given entries.
func NewMemory(ingredients []Ingredient, overrides []Override) (*Memory, error) {
	m := &Memory{
		ingredients: make(map[string]Ingredient, len(ingredients)),
		overrides:   make(map[string]map[string]Override),
	}
	for _, ing := range ingredients {
		if err := m.Put(ing); err != nil {
			return nil, err
		}
	}
	for _, o := range overrides {
		if err := m.PutOverride(o); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Put adds or replaces a shared ingredient.
func (m *Memory) Put(ing Ingredient) error {
	id := strings.TrimSpace(ing.ID)
	if id == "" {
		return fmt.Errorf("ingredient %q has no id", ing.Name)
	}
	if ing.Price < 0 {
		return fmt.Errorf("ingredient %q has a negative price", id)
	}
	ing.ID = id
	m.mu.Lock()
	m.ingredients[id] = ing
	m.mu.Unlock()
	return nil
}

// PutOverride adds or replaces a per-user override.
func (m *Memory) PutOverride(o Override) error {
	if o.UserID == "" || o.IngredientID == "" {
		return fmt.Errorf("override requires both user and ingredient ids")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	byID, ok := m.overrides[o.UserID]
	if !ok {
		byID = make(map[string]Override)
		m.overrides[o.UserID] = byID
	}
	byID[o.IngredientID] = o
	return nil
}

// Len returns the number of shared ingredients.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ingredients)
}

// Ingredient implements Catalogue.
func (m *Memory) Ingredient(ctx context.Context, userID, ingredientID string) (Ingredient, error) {
	if err := ctx.Err(); err != nil {
		return Ingredient{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	base, ok := m.ingredients[ingredientID]
	if userID != "" {
		if o, found := m.overrides[userID][ingredientID]; found {
			if o.Deleted {
				return Ingredient{}, fmt.Errorf("%w: %s", ErrNotFound, ingredientID)
			}
			if !ok {
				base = Ingredient{ID: ingredientID}
				ok = true
			}
			base = o.Apply(base)
		}
	}
	if !ok {
		return Ingredient{}, fmt.Errorf("%w: %s", ErrNotFound, ingredientID)
	}
	return base, nil
}

type catalogueFile struct {
	Ingredients []Ingredient `yaml:"ingredients"`
	Overrides   []Override   `yaml:"overrides"`
}

// LoadFile reads a YAML catalogue with top-level "ingredients" and
// "overrides" lists.
func LoadFile(path string) (*Memory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalogue file: %w", err)
	}
	var parsed catalogueFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse catalogue file: %w", err)
	}
	return NewMemory(parsed.Ingredients, parsed.Overrides)
}
