// geomcli compiles geometry requests to calculator keylogs without running
// the HTTP service. It loads the same tables the server uses, so a keylog
// produced here matches the one /api/v1/geometry/calculate returns.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/singed2905/api/internal/config"
	"github.com/singed2905/api/internal/geometry"
)

var (
	tableDir string
	model    string
)

var rootCmd = &cobra.Command{
	Use:   "geomcli",
	Short: "Compile geometry operations to calculator keylogs",
	Long: `geomcli runs the geometry pipeline offline: it validates an operation
against the compatibility table, computes the result, and encodes the
keystroke sequence for a calculator model.`,
	SilenceUsage: true,
}

var compileCmd = &cobra.Command{
	Use:   "compile <request.yaml>",
	Short: "Compile a request file to a keylog",
	Args:  cobra.ExactArgs(1),
	RunE:  runCompile,
}

var shapesCmd = &cobra.Command{
	Use:   "shapes",
	Short: "List supported shape kinds and operations",
	RunE:  runShapes,
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List supported calculator models",
	RunE:  runModels,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&tableDir, "tables", "", "directory with compatibility.yaml and instructions.yaml (default: built-in tables)")
	compileCmd.Flags().StringVar(&model, "model", "", "calculator model overriding the request's calculator_model")

	rootCmd.AddCommand(compileCmd, shapesCmd, modelsCmd)
}

// tableSnapshot adapts one loaded table set to geometry.TableSource.
type tableSnapshot struct {
	tables       *config.Tables
	defaultModel string
}

func (s tableSnapshot) Snapshot() *geometry.TableSet { return s.tables }
func (s tableSnapshot) DefaultModel() string         { return s.defaultModel }

func loadSnapshot() (tableSnapshot, error) {
	tables, err := config.LoadTables(tableDir)
	if err != nil {
		return tableSnapshot{}, err
	}
	return tableSnapshot{tables: tables, defaultModel: config.LoadSettings().DefaultModel}, nil
}

func runCompile(cmd *cobra.Command, args []string) error {
	src, err := loadSnapshot()
	if err != nil {
		return err
	}

	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read request file: %w", err)
	}

	var req geometry.OperationRequest
	if err := yaml.Unmarshal(raw, &req); err != nil {
		return fmt.Errorf("parse request file: %w", err)
	}
	if model != "" {
		req.CalculatorModel = model
	}
	if req.CalculatorModel == "" {
		req.CalculatorModel = src.DefaultModel()
	}

	result, err := geometry.NewPipeline(src).Run(context.Background(), req)
	if err != nil {
		return fmt.Errorf("%s: %w", geometry.ErrorCode(err), err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "operation: %s\n", req.Operation)
	fmt.Fprintf(out, "formula:   %s\n", result.Rule.FormulaID)
	fmt.Fprintf(out, "model:     %s\n", req.CalculatorModel)
	for _, step := range result.Calculation.Steps {
		fmt.Fprintf(out, "  %-16s %s = %v\n", step.Name, step.Expression, step.Value)
	}
	fmt.Fprintf(out, "keylog:    %s\n", result.Keylog.String())
	return nil
}

func runShapes(cmd *cobra.Command, args []string) error {
	src, err := loadSnapshot()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "shape kinds:")
	for _, kind := range geometry.ShapeKinds {
		fmt.Fprintf(out, "  %s\n", kind)
	}
	fmt.Fprintln(out, "operations:")
	for _, op := range geometry.Operations {
		fmt.Fprintf(out, "  %s", op)
		for _, pair := range src.Snapshot().Compatibility.CompatibleKinds(op) {
			if pair[1] != "" {
				fmt.Fprintf(out, " (%s, %s)", pair[0], pair[1])
			} else {
				fmt.Fprintf(out, " (%s)", pair[0])
			}
		}
		fmt.Fprintln(out)
	}
	return nil
}

func runModels(cmd *cobra.Command, args []string) error {
	src, err := loadSnapshot()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, id := range src.Snapshot().Instructions.ModelIDs() {
		if id == src.DefaultModel() {
			fmt.Fprintf(out, "%s (default)\n", id)
			continue
		}
		fmt.Fprintln(out, id)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
