package config

import (
	"testing"

	"github.com/sapat/feed-optimizer/pkg/constants"
)

func TestCanonicalMethod(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "empty defaults to simplex", input: "", expected: constants.MethodSimplex},
		{name: "simplex casing", input: "Simplex", expected: constants.MethodSimplex},
		{name: "lp alias", input: "LP", expected: constants.MethodSimplex},
		{name: "swarm alias", input: "particle-swarm", expected: constants.MethodPSO},
		{name: "compare alias", input: " both ", expected: constants.MethodCompare},
		{name: "unknown lowered", input: "Genetic", expected: "genetic"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			actual := CanonicalMethod(tc.input)
			if actual != tc.expected {
				t.Fatalf("expected %q, got %q", tc.expected, actual)
			}
		})
	}
}

func TestSolverConfigNormalizeDefaults(t *testing.T) {
	cfg := &SolverConfig{}
	cfg.Normalize()

	if cfg.Method != constants.MethodSimplex {
		t.Fatalf("expected method %q, got %q", constants.MethodSimplex, cfg.Method)
	}
	if cfg.SwarmSize != constants.DefaultSwarmSize {
		t.Fatalf("expected swarm size %d, got %d", constants.DefaultSwarmSize, cfg.SwarmSize)
	}
	if cfg.Iterations != constants.DefaultIterations {
		t.Fatalf("expected iterations %d, got %d", constants.DefaultIterations, cfg.Iterations)
	}
	if cfg.Inertia != constants.DefaultInertia || cfg.Personal != constants.DefaultPersonal || cfg.Social != constants.DefaultSocial {
		t.Fatalf("unexpected coefficients %+v", cfg)
	}
	if cfg.Tolerance != constants.DefaultTolerance {
		t.Fatalf("expected tolerance %g, got %g", constants.DefaultTolerance, cfg.Tolerance)
	}
}

func TestSolverConfigNormalizeKeepsExplicitValues(t *testing.T) {
	cfg := &SolverConfig{Method: "swarm", SwarmSize: 10, Iterations: 300, Inertia: 0.5, Seed: 42}
	cfg.Normalize()

	if cfg.Method != constants.MethodPSO {
		t.Fatalf("expected method %q, got %q", constants.MethodPSO, cfg.Method)
	}
	if cfg.SwarmSize != 10 || cfg.Iterations != 300 || cfg.Inertia != 0.5 || cfg.Seed != 42 {
		t.Fatalf("explicit values were overwritten: %+v", cfg)
	}
}

func TestSolverConfigValidate(t *testing.T) {
	testCases := []struct {
		name    string
		cfg     *SolverConfig
		wantErr bool
	}{
		{name: "nil config", cfg: nil, wantErr: true},
		{name: "defaults", cfg: &SolverConfig{}, wantErr: false},
		{name: "compare", cfg: &SolverConfig{Method: "compare"}, wantErr: false},
		{name: "unknown method", cfg: &SolverConfig{Method: "annealing"}, wantErr: true},
		{name: "inertia too large", cfg: &SolverConfig{Inertia: 2}, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr && err == nil {
				t.Fatalf("expected error but got none")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestSolverConfigSwarmParams(t *testing.T) {
	cfg := SolverConfig{SwarmSize: 20, Iterations: 100, Inertia: 0.6, Personal: 1.2, Social: 1.4, Tolerance: 1e-4, Seed: 7}
	params := cfg.SwarmParams()

	if params.SwarmSize != 20 || params.Iterations != 100 || params.Seed != 7 {
		t.Fatalf("unexpected params %+v", params)
	}
	if params.Inertia != 0.6 || params.Personal != 1.2 || params.Social != 1.4 || params.Tolerance != 1e-4 {
		t.Fatalf("unexpected coefficients %+v", params)
	}
	if err := params.Validate(); err != nil {
		t.Fatalf("params should be valid: %v", err)
	}
}
