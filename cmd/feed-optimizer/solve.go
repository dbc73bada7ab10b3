package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sapat/feed-optimizer/internal/config"
	"github.com/sapat/feed-optimizer/internal/formulation"
	"github.com/sapat/feed-optimizer/internal/optimizer"
	"github.com/sapat/feed-optimizer/pkg/constants"
	"github.com/sapat/feed-optimizer/pkg/output"
	"github.com/sapat/feed-optimizer/pkg/validation"
	"github.com/spf13/cobra"
)

func newSolveCommand(opts *rootOptions) *cobra.Command {
	var method string
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Optimize the formulation in the configuration file",
		Long: `Optimize the formulation section of the configuration file and print the
result. Exits 1 when no optimal mixture exists.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := newApplication(ctx, opts)
			if err != nil {
				return err
			}
			defer app.Close()

			// Flags take precedence over the configuration file.
			selected := app.conf.Solver.Method
			if method != "" {
				selected = config.CanonicalMethod(method)
			}
			if err := validation.ValidateMethod(selected); err != nil {
				return err
			}

			format := app.conf.Output.Format
			if outputFormat != "" {
				format = strings.ToLower(outputFormat)
			}
			if format == "" {
				format = constants.OutputFormatPretty
			}
			if err := validation.ValidateOutputFormat(format); err != nil {
				return err
			}

			return runSolve(ctx, app.runner, &app.conf.Formulation, selected, format, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&method, "method", "", "solver method override: simplex, pso, compare")
	cmd.Flags().StringVar(&outputFormat, "output-format", "", "type of output override: pretty, csv, json, yaml")

	return cmd
}

func runSolve(ctx context.Context, runner *optimizer.Runner, req *formulation.Request, method, format string, w io.Writer) error {
	var result any
	var optimal bool

	switch method {
	case constants.MethodSimplex:
		resp, err := runner.Simplex(ctx, req)
		if err != nil {
			return err
		}
		result, optimal = resp, resp.Optimal()
	case constants.MethodPSO:
		resp, err := runner.PSO(ctx, req)
		if err != nil {
			return err
		}
		result, optimal = resp, resp.Optimal()
	case constants.MethodCompare:
		cmp, err := runner.Compare(ctx, req)
		if err != nil {
			return err
		}
		result, optimal = cmp, cmp.Simplex.Optimal()
	default:
		return fmt.Errorf("solver method %q is not supported", method)
	}

	if err := output.Write(w, format, result); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}
	if !optimal {
		return &NoOptimalError{Message: "no optimal solution exists for the formulation"}
	}
	return nil
}
