// Package output provides utilities for formatting and displaying optimization results.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/sapat/feed-optimizer/pkg/constants"
	"github.com/sapat/feed-optimizer/pkg/format"
	"github.com/sapat/feed-optimizer/pkg/mathutil"
	"github.com/sapat/feed-optimizer/pkg/optimization"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

// Write renders result, a *optimization.Response or *optimization.Comparison,
// to w in the given format.
func Write(w io.Writer, outputFormat string, result any) error {
	responses, err := responsesOf(result)
	if err != nil {
		return err
	}

	switch outputFormat {
	case constants.OutputFormatPretty, "":
		PrettyFormat(w, result)
		return nil
	case constants.OutputFormatCSV:
		return CsvFormat(w, responses...)
	case constants.OutputFormatJSON:
		return JSONFormat(w, result)
	case constants.OutputFormatYAML:
		return YAMLFormat(w, result)
	default:
		return fmt.Errorf("unsupported output format %q", outputFormat)
	}
}

func responsesOf(result any) ([]*optimization.Response, error) {
	switch v := result.(type) {
	case *optimization.Response:
		return []*optimization.Response{v}, nil
	case *optimization.Comparison:
		return []*optimization.Response{v.Simplex, v.PSO}, nil
	default:
		return nil, fmt.Errorf("cannot format result of type %T", result)
	}
}

// PrettyFormat outputs a human-readable rather than machine-readable table.
func PrettyFormat(w io.Writer, result any) {
	p := message.NewPrinter(language.English)
	switch v := result.(type) {
	case *optimization.Response:
		prettyResponse(w, p, v)
	case *optimization.Comparison:
		prettyResponse(w, p, v.Simplex)
		_, _ = fmt.Fprintf(w, "\n")
		prettyResponse(w, p, v.PSO)
		_, _ = fmt.Fprintf(w, "\n--- Comparison ---\n")
		_, _ = fmt.Fprintf(w, "Cost gap (pso - simplex): %s\n", format.Currency(v.CostGap))
		if v.Undercut {
			_, _ = fmt.Fprintf(w, "Warning: the heuristic mixture is cheaper than the exact optimum and likely violates a constraint\n")
		}
	}
}

func prettyResponse(w io.Writer, p *message.Printer, resp *optimization.Response) {
	if resp == nil {
		return
	}
	_, _ = fmt.Fprintf(w, "--- Results for method %s ---\n", resp.Method)
	_, _ = fmt.Fprintf(w, "Status: %s", resp.Status)
	if resp.Message != "" {
		_, _ = fmt.Fprintf(w, " (%s)", resp.Message)
	}
	_, _ = fmt.Fprintf(w, "\n")
	_, _ = fmt.Fprintf(w, "Cost: %s\n", format.Currency(resp.OptimizedCost))

	_, _ = fmt.Fprintf(w, "Ingredient           | Share\n")
	_, _ = fmt.Fprintf(w, "__________           | _____\n")
	for _, ing := range resp.OptimizedIngredients {
		_, _ = fmt.Fprintf(w, "%-20s | %s\n", ing.Name, format.Percent(ing.Value))
	}

	_, _ = fmt.Fprintf(w, "Nutrient             | Content\n")
	_, _ = fmt.Fprintf(w, "________             | _______\n")
	for _, n := range resp.OptimizedNutrients {
		_, _ = p.Fprintf(w, "%-20s | %.4f %s\n", n.Name, mathutil.RoundPlaces(n.Value, constants.ValuePlaces), n.Unit)
	}

	if len(resp.ShadowPrices) > 0 {
		_, _ = fmt.Fprintf(w, "Constraint           | Shadow price\n")
		_, _ = fmt.Fprintf(w, "__________           | ____________\n")
		for _, sp := range resp.ShadowPrices {
			_, _ = p.Fprintf(w, "%-20s | %.4f\n", sp.Constraint, mathutil.RoundPlaces(sp.ShadowPrice, constants.ValuePlaces))
		}
	}

	if d := resp.Diagnostics; d != nil {
		_, _ = p.Fprintf(w, "Iterations: %d, converged: %t, violation: %.6f\n", d.Iterations, d.Converged, d.Violation)
	}
	if resp.Duration != "" {
		_, _ = fmt.Fprintf(w, "Duration: %s\n", resp.Duration)
	}
}

// CsvFormat outputs in comma-separated value format, one row per reported value.
func CsvFormat(w io.Writer, responses ...*optimization.Response) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"method", "status", "kind", "name", "value", "unit"}); err != nil {
		return err
	}
	for _, resp := range responses {
		if resp == nil {
			continue
		}
		rows := [][]string{{resp.Method, resp.Status, "cost", "total", mathutil.Currency(resp.OptimizedCost), ""}}
		for _, ing := range resp.OptimizedIngredients {
			rows = append(rows, []string{resp.Method, resp.Status, "ingredient", ing.Name, formatValue(ing.Value), ""})
		}
		for _, n := range resp.OptimizedNutrients {
			rows = append(rows, []string{resp.Method, resp.Status, "nutrient", n.Name, formatValue(n.Value), n.Unit})
		}
		for _, sp := range resp.ShadowPrices {
			rows = append(rows, []string{resp.Method, resp.Status, "shadow_price", sp.Constraint, formatValue(sp.ShadowPrice), ""})
		}
		if err := cw.WriteAll(rows); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatValue(v float64) string {
	return strconv.FormatFloat(mathutil.RoundPlaces(v, constants.ValuePlaces), 'f', -1, 64)
}

// JSONFormat outputs indented JSON.
func JSONFormat(w io.Writer, result any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// YAMLFormat outputs YAML.
func YAMLFormat(w io.Writer, result any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(result); err != nil {
		return err
	}
	return enc.Close()
}
