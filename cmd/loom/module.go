package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/loomworks/loom/cmd/loom/internal"
	"github.com/loomworks/loom/internal/dsl"
	"github.com/loomworks/loom/internal/graph"
)

// readModule reads a flow module source file.
func readModule(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", internal.NewCLIError(internal.ExitInvalid,
				fmt.Sprintf("flow module not found: %s", path))
		}
		return "", internal.WrapError(internal.ExitInvalid,
			fmt.Sprintf("failed to read flow module %s", path), err)
	}
	return string(data), nil
}

// loadModule reads and parses a flow module, printing parser warnings
// to the command's error output.
func loadModule(cmd *cobra.Command, path string) (*graph.Workflow, error) {
	src, err := readModule(path)
	if err != nil {
		return nil, err
	}

	w, warnings, err := dsl.Parse(src)
	if err != nil {
		return nil, internal.WrapError(internal.ExitInvalid,
			fmt.Sprintf("failed to parse %s", path), err)
	}

	printWarnings(cmd, warnings)
	return w, nil
}

// printWarnings writes parser or generator warnings to stderr unless
// quiet mode is active.
func printWarnings(cmd *cobra.Command, warnings []string) {
	if globalFlags.IsQuiet() {
		return
	}
	for _, warning := range warnings {
		cmd.PrintErrf("warning: %s\n", warning)
	}
}
