package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/loomworks/loom/cmd/loom/internal"
	"github.com/loomworks/loom/internal/graph"
)

var infoCmd = &cobra.Command{
	Use:   "info FILE",
	Short: "Summarize a flow module",
	Long: `Print a summary of a flow module: node and edge counts, node
kinds, start node, entry and exit nodes, references, and whether the
graph contains cycles.`,
	Example: `  # Human-readable summary
  loom info pipeline.flow

  # Export the summary
  loom info pipeline.flow --output yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runInfo,
}

var infoOutput string

func init() {
	infoCmd.Flags().StringVar(&infoOutput, "output", "text", "Output format: text, json, yaml")
}

func runInfo(cmd *cobra.Command, args []string) error {
	format, err := internal.ParseFormat(infoOutput)
	if err != nil {
		return err
	}

	w, err := loadModule(cmd, args[0])
	if err != nil {
		return err
	}

	summary := graph.Summarize(w)
	out := cmd.OutOrStdout()

	switch format {
	case internal.FormatJSON:
		data, err := summary.ToJSON()
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	case internal.FormatYAML:
		data, err := summary.ToYAML()
		if err != nil {
			return err
		}
		fmt.Fprint(out, string(data))
		return nil
	default:
		fmt.Fprintln(out, summary.String())
		return nil
	}
}
