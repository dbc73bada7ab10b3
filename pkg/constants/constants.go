// Package constants provides shared constants for the feed-optimizer application.
package constants

// Formulation defaults
const (
	// TotalRatioConstraint names the row forcing the fractions to sum to one
	TotalRatioConstraint = "Total Ratio"

	// FractionTolerance is the allowed deviation of the fraction sum from one
	FractionTolerance = 1e-6
)

// Solver status messages
const (
	// StatusOptimal is reported when a solver produced a usable mixture
	StatusOptimal = "Optimal solution found"

	// StatusNoOptimal is reported when the exact solver found no optimum
	StatusNoOptimal = "No optimal solution"
)

// Solver methods
const (
	// MethodSimplex selects the exact linear programming solver
	MethodSimplex = "simplex"

	// MethodPSO selects the particle swarm heuristic
	MethodPSO = "pso"

	// MethodCompare runs both solvers side by side
	MethodCompare = "compare"
)

// Particle swarm defaults
const (
	DefaultSwarmSize  = 50
	DefaultIterations = 2000
	DefaultInertia    = 0.7
	DefaultPersonal   = 1.5
	DefaultSocial     = 1.5
	DefaultTolerance  = 1e-5

	// PenaltyWeight scales constraint violations in the swarm fitness
	PenaltyWeight = 1000.0

	// ConvergenceInterval is how often, in iterations, the swarm checks for progress
	ConvergenceInterval = 100

	// StallIterations ends a run that has not improved for this many iterations
	StallIterations = 500
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"

	// OutputFormatJSON is the JSON output format
	OutputFormatJSON = "json"

	// OutputFormatYAML is the YAML output format
	OutputFormatYAML = "yaml"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// ExampleConfigFile is the example configuration file name
	ExampleConfigFile = "config.yaml.example"
)

// Catalogue sources
const (
	CatalogueSourceInline = "inline"
	CatalogueSourceFile   = "file"
	CatalogueSourceMongo  = "mongo"

	// DefaultIngredientCollection holds the shared ingredient documents
	DefaultIngredientCollection = "ingredients"

	// DefaultOverrideCollection holds per-user ingredient overrides
	DefaultOverrideCollection = "user_ingredient_overrides"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address
	DefaultServerAddress = ":8080"

	// DefaultMaxRequestSizeBytes is the default maximum request body size (256 KB)
	DefaultMaxRequestSizeBytes int64 = 256 * 1024

	// DefaultSolveTimeout bounds a single optimization request
	DefaultSolveTimeout = "30s"
)

// Rounding constants
const (
	// CurrencyPlaces is the number of decimals kept for displayed costs
	CurrencyPlaces = 2

	// ValuePlaces is the number of decimals kept for displayed fractions and nutrients
	ValuePlaces = 4

	// CurrencyTolerance is the tolerance for currency comparisons (1 cent)
	CurrencyTolerance = 0.01
)
