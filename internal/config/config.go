// Package config defines the data structures related to configuration and
// includes functions for loading and parsing the config.
package config

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sapat/feed-optimizer/internal/catalogue"
	"github.com/sapat/feed-optimizer/internal/formulation"
	"github.com/sapat/feed-optimizer/pkg/constants"
	"github.com/sapat/feed-optimizer/pkg/validation"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment variable overrides, e.g.
// FEED_OPTIMIZER_SERVER_ADDRESS.
const EnvPrefix = "FEED_OPTIMIZER"

// Configuration holds all configuration for feed-optimizer.
type Configuration struct {
	Logging     LoggingConfig          `yaml:"logging,omitempty" mapstructure:"logging"`
	Output      OutputConfig           `yaml:"output,omitempty" mapstructure:"output"`
	Server      ServerConfig           `yaml:"server,omitempty" mapstructure:"server"`
	Solver      SolverConfig           `yaml:"solver,omitempty" mapstructure:"solver"`
	Catalogue   CatalogueConfig        `yaml:"catalogue,omitempty" mapstructure:"catalogue"`
	Ingredients []catalogue.Ingredient `yaml:"ingredients,omitempty" mapstructure:"ingredients"`
	Overrides   []catalogue.Override   `yaml:"overrides,omitempty" mapstructure:"overrides"`
	Formulation formulation.Request    `yaml:"formulation,omitempty" mapstructure:"formulation"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty" mapstructure:"level"`           // debug, info, warn, error
	Format     string `yaml:"format,omitempty" mapstructure:"format"`         // json, console
	OutputFile string `yaml:"outputFile,omitempty" mapstructure:"outputFile"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `yaml:"format,omitempty" mapstructure:"format"` // pretty, csv, json, yaml
}

// ServerConfig holds HTTP server options.
type ServerConfig struct {
	Address        string `yaml:"address,omitempty" mapstructure:"address"`
	MaxRequestSize string `yaml:"maxRequestSize,omitempty" mapstructure:"maxRequestSize"`
	SolveTimeout   string `yaml:"solveTimeout,omitempty" mapstructure:"solveTimeout"`
}

// Timeout parses SolveTimeout.
func (s ServerConfig) Timeout() (time.Duration, error) {
	value := strings.TrimSpace(s.SolveTimeout)
	if value == "" {
		value = constants.DefaultSolveTimeout
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid solve timeout %q: %w", s.SolveTimeout, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("solve timeout must be positive, got %s", d)
	}
	return d, nil
}

// CatalogueConfig selects where ingredients are read from.
type CatalogueConfig struct {
	Source     string                `yaml:"source,omitempty" mapstructure:"source"` // inline, file, mongo
	File       string                `yaml:"file,omitempty" mapstructure:"file"`
	CacheTTL   time.Duration         `yaml:"cacheTTL,omitempty" mapstructure:"cacheTTL"`
	CacheMaxMB int                   `yaml:"cacheMaxMB,omitempty" mapstructure:"cacheMaxMB"`
	Mongo      catalogue.MongoConfig `yaml:"mongo,omitempty" mapstructure:"mongo"`
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.address", constants.DefaultServerAddress)
	v.SetDefault("server.solveTimeout", constants.DefaultSolveTimeout)
	v.SetDefault("catalogue.source", constants.CatalogueSourceInline)
	return v
}

func decode(v *viper.Viper) (*Configuration, error) {
	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}
	configuration.Normalize()
	return &configuration, nil
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %s", err)
	}
	return decode(v)
}

// LoadConfigurationFromReader loads YAML configuration from r.
func LoadConfigurationFromReader(r io.Reader) (*Configuration, error) {
	v := newViper()
	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("error reading config data, %s", err)
	}
	return decode(v)
}

// Normalize applies defaults and canonical spellings.
func (c *Configuration) Normalize() {
	c.Solver.Normalize()
	c.Catalogue.Source = strings.ToLower(strings.TrimSpace(c.Catalogue.Source))
	if c.Catalogue.Source == "" {
		c.Catalogue.Source = constants.CatalogueSourceInline
	}
	if c.Catalogue.Mongo.Ingredients == "" {
		c.Catalogue.Mongo.Ingredients = constants.DefaultIngredientCollection
	}
	if c.Catalogue.Mongo.Overrides == "" {
		c.Catalogue.Mongo.Overrides = constants.DefaultOverrideCollection
	}
	if c.Server.Address == "" {
		c.Server.Address = constants.DefaultServerAddress
	}
	c.Output.Format = strings.ToLower(strings.TrimSpace(c.Output.Format))
}

// Validate returns an error for settings the application cannot start with.
func (c *Configuration) Validate() error {
	if err := c.Solver.Validate(); err != nil {
		return err
	}
	if _, err := c.Server.Timeout(); err != nil {
		return err
	}
	switch c.Catalogue.Source {
	case constants.CatalogueSourceInline:
	case constants.CatalogueSourceFile:
		if strings.TrimSpace(c.Catalogue.File) == "" {
			return errors.New("catalogue source file requires catalogue.file")
		}
	case constants.CatalogueSourceMongo:
		if c.Catalogue.Mongo.URI == "" || c.Catalogue.Mongo.Database == "" {
			return errors.New("catalogue source mongo requires catalogue.mongo.uri and catalogue.mongo.database")
		}
	default:
		return fmt.Errorf("catalogue source %q is not supported", c.Catalogue.Source)
	}
	if c.Catalogue.CacheTTL < 0 {
		return fmt.Errorf("catalogue cache ttl must not be negative, got %s", c.Catalogue.CacheTTL)
	}
	return nil
}

// ValidateConfiguration performs general validation of the configuration and returns warnings
func (c *Configuration) ValidateConfiguration() []string {
	var warnings []string

	if c.Catalogue.Source == constants.CatalogueSourceInline && len(c.Ingredients) == 0 {
		warnings = append(warnings, "inline catalogue has no ingredients")
	}
	if c.Catalogue.Source != constants.CatalogueSourceInline && len(c.Ingredients) > 0 {
		warnings = append(warnings, fmt.Sprintf("inline ingredients are ignored with catalogue source %s", c.Catalogue.Source))
	}
	if c.Catalogue.Source == constants.CatalogueSourceMongo && c.Catalogue.CacheTTL == 0 {
		warnings = append(warnings, "mongo catalogue is not cached; set catalogue.cacheTTL to reduce lookups")
	}

	if c.Catalogue.Source == constants.CatalogueSourceInline {
		known := make(map[string]struct{}, len(c.Ingredients))
		for _, ing := range c.Ingredients {
			known[ing.ID] = struct{}{}
		}
		for _, sel := range c.Formulation.Ingredients {
			if _, ok := known[sel.IngredientID]; !ok {
				warnings = append(warnings, fmt.Sprintf("formulation ingredient %s is not in the inline catalogue", sel.IngredientID))
			}
		}
	}
	if len(c.Formulation.Ingredients) > 0 && len(c.Formulation.Nutrients) == 0 {
		warnings = append(warnings, "formulation has no nutrient constraints; the cheapest ingredient will be selected")
	}

	if len(c.Formulation.Ingredients) > 0 && c.Formulation.Weight <= 0 {
		warnings = append(warnings, "formulation weight is not set; solve will reject the formulation")
		return warnings
	}

	fv := validation.FormulationValidator{Weight: c.Formulation.Weight}
	for _, sel := range c.Formulation.Ingredients {
		fv.Ingredients = append(fv.Ingredients, validation.BoundConfig{Name: displayName(sel.Name, sel.IngredientID), Minimum: sel.Minimum, Maximum: sel.Maximum})
	}
	for _, sel := range c.Formulation.Nutrients {
		fv.Nutrients = append(fv.Nutrients, validation.BoundConfig{Name: displayName(sel.Name, sel.NutrientID), Minimum: sel.Minimum, Maximum: sel.Maximum})
	}
	warnings = append(warnings, fv.ValidateAll()...)

	return warnings
}

func displayName(name, id string) string {
	if name != "" {
		return name
	}
	return id
}
