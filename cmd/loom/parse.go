package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/loomworks/loom/cmd/loom/internal"
)

var parseCmd = &cobra.Command{
	Use:   "parse FILE",
	Short: "Parse a flow module and report its structure",
	Long: `Parse a flow module and report what it contains.

Parsing checks the module syntax only. Transition targets that name
missing nodes, unknown fields, and duplicate transitions are reported
as warnings; run 'loom validate' for full semantic checking.

Exit codes:
  0 - module parsed
  2 - syntax error or file not found`,
	Example: `  # Parse a module and print a short report
  loom parse pipeline.flow

  # Machine-readable output
  loom parse pipeline.flow --output json`,
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

var parseOutput string

func init() {
	parseCmd.Flags().StringVar(&parseOutput, "output", "text", "Output format: text, json, yaml")
}

// parseResult is the machine-readable outcome of a parse run.
type parseResult struct {
	File  string `json:"file" yaml:"file"`
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name,omitempty" yaml:"name,omitempty"`
	Start string `json:"start" yaml:"start"`
	Nodes int    `json:"nodes" yaml:"nodes"`
	Edges int    `json:"edges" yaml:"edges"`
}

func runParse(cmd *cobra.Command, args []string) error {
	format, err := internal.ParseFormat(parseOutput)
	if err != nil {
		return err
	}

	path := args[0]
	w, err := loadModule(cmd, path)
	if err != nil {
		return err
	}

	result := parseResult{
		File:  path,
		ID:    w.ID,
		Name:  w.Name,
		Start: w.Start,
		Nodes: len(w.Nodes),
		Edges: len(w.Edges),
	}

	out := cmd.OutOrStdout()
	if format != internal.FormatText {
		return internal.Encode(out, format, result)
	}

	internal.PrintSuccess(out, fmt.Sprintf("parsed %s", path))
	fmt.Fprintf(out, "Workflow: %s", result.ID)
	if result.Name != "" {
		fmt.Fprintf(out, " (%s)", result.Name)
	}
	fmt.Fprintf(out, "\nNodes: %d  Edges: %d  Start: %s\n", result.Nodes, result.Edges, result.Start)
	return nil
}
