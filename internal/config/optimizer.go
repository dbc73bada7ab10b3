package config

import (
	"fmt"
	"strings"

	"github.com/sapat/feed-optimizer/internal/swarm"
	"github.com/sapat/feed-optimizer/pkg/constants"
	"github.com/sapat/feed-optimizer/pkg/validation"
)

// SolverConfig tunes the particle swarm and selects the default method.
// Zero values mean "use the default".
type SolverConfig struct {
	Method     string  `yaml:"method,omitempty" mapstructure:"method"`
	SwarmSize  int     `yaml:"swarmSize,omitempty" mapstructure:"swarmSize"`
	Iterations int     `yaml:"iterations,omitempty" mapstructure:"iterations"`
	Inertia    float64 `yaml:"inertia,omitempty" mapstructure:"inertia"`
	Personal   float64 `yaml:"personal,omitempty" mapstructure:"personal"`
	Social     float64 `yaml:"social,omitempty" mapstructure:"social"`
	Tolerance  float64 `yaml:"tolerance,omitempty" mapstructure:"tolerance"`
	Seed       uint64  `yaml:"seed,omitempty" mapstructure:"seed"`
}

// CanonicalMethod returns the canonical identifier for a solver method.
func CanonicalMethod(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return constants.MethodSimplex
	}
	switch strings.ToLower(trimmed) {
	case "simplex", "lp", "exact":
		return constants.MethodSimplex
	case "pso", "swarm", "particle-swarm", "particle_swarm":
		return constants.MethodPSO
	case "compare", "both":
		return constants.MethodCompare
	default:
		return strings.ToLower(trimmed)
	}
}

// Normalize ensures defaults and canonical values are applied before validation.
func (s *SolverConfig) Normalize() {
	if s == nil {
		return
	}
	s.Method = CanonicalMethod(s.Method)
	if s.SwarmSize <= 0 {
		s.SwarmSize = constants.DefaultSwarmSize
	}
	if s.Iterations <= 0 {
		s.Iterations = constants.DefaultIterations
	}
	if s.Inertia <= 0 {
		s.Inertia = constants.DefaultInertia
	}
	if s.Personal <= 0 {
		s.Personal = constants.DefaultPersonal
	}
	if s.Social <= 0 {
		s.Social = constants.DefaultSocial
	}
	if s.Tolerance <= 0 {
		s.Tolerance = constants.DefaultTolerance
	}
}

// Validate returns an error when the solver configuration is unsupported.
func (s *SolverConfig) Validate() error {
	if s == nil {
		return fmt.Errorf("solver configuration cannot be nil")
	}

	s.Normalize()

	if err := validation.ValidateMethod(s.Method); err != nil {
		return fmt.Errorf("solver method %q is not supported: %w", s.Method, err)
	}
	if s.Inertia >= 1.5 {
		return fmt.Errorf("solver inertia %.2f must be below 1.5 for the swarm to settle", s.Inertia)
	}
	return s.SwarmParams().Validate()
}

// SwarmParams converts the configuration into swarm parameters.
func (s SolverConfig) SwarmParams() swarm.Params {
	return swarm.Params{
		SwarmSize:  s.SwarmSize,
		Iterations: s.Iterations,
		Inertia:    s.Inertia,
		Personal:   s.Personal,
		Social:     s.Social,
		Tolerance:  s.Tolerance,
		Seed:       s.Seed,
	}
}
