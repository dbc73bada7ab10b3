package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sapat/feed-optimizer/internal/catalogue"
	"github.com/sapat/feed-optimizer/internal/formulation"
	"github.com/sapat/feed-optimizer/pkg/constants"
)

const sampleConfig = `
logging:
  level: debug
  format: console
output:
  format: JSON
server:
  address: ":9090"
  maxRequestSize: 64K
  solveTimeout: 5s
solver:
  method: swarm
  swarmSize: 30
  seed: 11
catalogue:
  source: Inline
  cacheTTL: 2m
ingredients:
  - id: corn
    name: Corn
    price: 0.25
    nutrients:
      cp: 8.5
      ca: 0.02
  - id: soy
    name: Soybean Meal
    price: 0.45
    nutrients:
      cp: 44
overrides:
  - userId: farm-1
    ingredientId: corn
    price: 0.3
formulation:
  userId: farm-1
  weight: 100
  ingredients:
    - ingredient_id: corn
      name: Corn
      minimum: 0
    - ingredient_id: soy
      name: Soybean Meal
      minimum: 0
      maximum: 40
  nutrients:
    - nutrient_id: cp
      name: Crude Protein
      unit: "%"
      minimum: 16
`

func TestLoadConfiguration(t *testing.T) {
	dir := t.TempDir()
	valid := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(valid, []byte(sampleConfig), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	broken := filepath.Join(dir, "broken.yaml")
	if err := os.WriteFile(broken, []byte("solver: [unterminated"), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	tests := []struct {
		name       string
		configPath string
		wantError  bool
	}{
		{
			name:       "Non-existent config file",
			configPath: "nonexistent.yaml",
			wantError:  true,
		},
		{
			name:       "Malformed config file",
			configPath: broken,
			wantError:  true,
		},
		{
			name:       "Valid config file",
			configPath: valid,
			wantError:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := LoadConfiguration(tt.configPath)
			if tt.wantError {
				if err == nil {
					t.Errorf("LoadConfiguration() expected error but got none")
				}
				return
			}
			if err != nil {
				t.Errorf("LoadConfiguration() error = %v", err)
				return
			}
			if config == nil {
				t.Errorf("LoadConfiguration() returned nil config")
			}
		})
	}
}

func TestLoadConfigurationFromReader(t *testing.T) {
	config, err := LoadConfigurationFromReader(strings.NewReader(sampleConfig))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if config.Logging.Level != "debug" || config.Logging.Format != "console" {
		t.Errorf("unexpected logging config %+v", config.Logging)
	}
	if config.Output.Format != "json" {
		t.Errorf("expected output format to be lowered, got %q", config.Output.Format)
	}
	if config.Server.Address != ":9090" || config.Server.MaxRequestSize != "64K" {
		t.Errorf("unexpected server config %+v", config.Server)
	}
	timeout, err := config.Server.Timeout()
	if err != nil || timeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %s (%v)", timeout, err)
	}
	if config.Solver.Method != constants.MethodPSO || config.Solver.SwarmSize != 30 || config.Solver.Seed != 11 {
		t.Errorf("unexpected solver config %+v", config.Solver)
	}
	if config.Solver.Iterations != constants.DefaultIterations {
		t.Errorf("expected default iterations, got %d", config.Solver.Iterations)
	}
	if config.Catalogue.Source != constants.CatalogueSourceInline || config.Catalogue.CacheTTL != 2*time.Minute {
		t.Errorf("unexpected catalogue config %+v", config.Catalogue)
	}
	if config.Catalogue.Mongo.Ingredients != constants.DefaultIngredientCollection {
		t.Errorf("expected default ingredient collection, got %q", config.Catalogue.Mongo.Ingredients)
	}

	if len(config.Ingredients) != 2 {
		t.Fatalf("expected 2 ingredients, got %d", len(config.Ingredients))
	}
	if config.Ingredients[1].Content("cp") != 44 {
		t.Errorf("expected soy protein 44, got %v", config.Ingredients[1].Content("cp"))
	}
	if len(config.Overrides) != 1 || config.Overrides[0].Price == nil || *config.Overrides[0].Price != 0.3 {
		t.Errorf("unexpected overrides %+v", config.Overrides)
	}

	if config.Formulation.UserID != "farm-1" {
		t.Errorf("expected formulation user farm-1, got %q", config.Formulation.UserID)
	}
	if config.Formulation.Weight != 100 {
		t.Errorf("expected batch weight 100, got %v", config.Formulation.Weight)
	}
	if len(config.Formulation.Ingredients) != 2 || !config.Formulation.Ingredients[1].HasMaximum() {
		t.Errorf("unexpected formulation ingredients %+v", config.Formulation.Ingredients)
	}
	if len(config.Formulation.Nutrients) != 1 || config.Formulation.Nutrients[0].Minimum != 16 {
		t.Errorf("unexpected formulation nutrients %+v", config.Formulation.Nutrients)
	}

	if err := config.Validate(); err != nil {
		t.Errorf("expected valid configuration, got %v", err)
	}
	if warnings := config.ValidateConfiguration(); len(warnings) != 0 {
		t.Errorf("expected no warnings, got %v", warnings)
	}
}

func TestConfigurationValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Configuration)
		wantError string
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Configuration) {},
		},
		{
			name:      "file source without path",
			mutate:    func(c *Configuration) { c.Catalogue.Source = constants.CatalogueSourceFile },
			wantError: "catalogue.file",
		},
		{
			name:      "mongo source without uri",
			mutate:    func(c *Configuration) { c.Catalogue.Source = constants.CatalogueSourceMongo },
			wantError: "catalogue.mongo.uri",
		},
		{
			name:      "unknown source",
			mutate:    func(c *Configuration) { c.Catalogue.Source = "postgres" },
			wantError: "not supported",
		},
		{
			name:      "bad timeout",
			mutate:    func(c *Configuration) { c.Server.SolveTimeout = "soon" },
			wantError: "invalid solve timeout",
		},
		{
			name:      "negative timeout",
			mutate:    func(c *Configuration) { c.Server.SolveTimeout = "-1s" },
			wantError: "must be positive",
		},
		{
			name:      "negative cache ttl",
			mutate:    func(c *Configuration) { c.Catalogue.CacheTTL = -time.Second },
			wantError: "cache ttl",
		},
		{
			name:      "unknown method",
			mutate:    func(c *Configuration) { c.Solver.Method = "annealing" },
			wantError: "not supported",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := &Configuration{}
			config.Normalize()
			tt.mutate(config)

			err := config.Validate()
			if tt.wantError == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q but got none", tt.wantError)
			}
			if !strings.Contains(err.Error(), tt.wantError) {
				t.Fatalf("expected error containing %q, got %v", tt.wantError, err)
			}
		})
	}
}

func TestValidateConfigurationWarnings(t *testing.T) {
	config, err := LoadConfigurationFromReader(strings.NewReader(`
catalogue:
  source: mongo
  mongo:
    uri: mongodb://localhost:27017
    database: feed
ingredients:
  - id: corn
    price: 1
formulation:
  ingredients:
    - ingredient_id: corn
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	warnings := config.ValidateConfiguration()
	joined := strings.Join(warnings, "\n")
	for _, want := range []string{
		"inline ingredients are ignored",
		"mongo catalogue is not cached",
		"no nutrient constraints",
		"formulation weight is not set",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("expected warning containing %q, got %v", want, warnings)
		}
	}
}

func TestValidateConfigurationUnknownInlineIngredient(t *testing.T) {
	config := &Configuration{
		Ingredients: []catalogue.Ingredient{{ID: "corn", Price: 1}},
		Formulation: formulation.Request{
			Weight:      100,
			Ingredients: []formulation.IngredientSelection{{IngredientID: "corn"}, {IngredientID: "barley"}},
			Nutrients:   []formulation.NutrientSelection{{NutrientID: "cp", Minimum: 10}},
		},
	}
	config.Normalize()

	warnings := config.ValidateConfiguration()
	if len(warnings) != 1 || warnings[0] != "formulation ingredient barley is not in the inline catalogue" {
		t.Fatalf("unexpected warnings %v", warnings)
	}
}

func TestLoadConfigurationExample(t *testing.T) {
	config, err := LoadConfiguration(filepath.Join("..", "..", constants.ExampleConfigFile))
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	if err := config.Validate(); err != nil {
		t.Fatalf("example configuration is invalid: %v", err)
	}
	if warnings := config.ValidateConfiguration(); len(warnings) != 0 {
		t.Errorf("expected no warnings for the example configuration, got %v", warnings)
	}

	if config.Formulation.Weight != 1000 {
		t.Errorf("expected batch weight 1000, got %v", config.Formulation.Weight)
	}
	if len(config.Formulation.NutrientRatioConstraints) != 1 {
		t.Fatalf("expected one ratio constraint, got %d", len(config.Formulation.NutrientRatioConstraints))
	}
	ratio := config.Formulation.NutrientRatioConstraints[0]
	if ratio.Label() != "Calcium:Phosphorus" || ratio.Operator != ">=" || ratio.FirstRatio != 2 {
		t.Errorf("unexpected ratio constraint %+v", ratio)
	}
	if config.Catalogue.Mongo.ConnectTimeout != 10*time.Second {
		t.Errorf("expected mongo connect timeout 10s, got %s", config.Catalogue.Mongo.ConnectTimeout)
	}
}
