package internal

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

// Format represents the output format for CLI commands
type Format string

const (
	// FormatText is human-readable text output
	FormatText Format = "text"
	// FormatJSON is structured JSON output
	FormatJSON Format = "json"
	// FormatYAML is structured YAML output
	FormatYAML Format = "yaml"
)

// ParseFormat parses an output format flag value.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatText, FormatJSON, FormatYAML:
		return Format(s), nil
	case "":
		return FormatText, nil
	default:
		return "", NewCLIError(ExitInvalid,
			fmt.Sprintf("invalid output format: %s (must be text, json, or yaml)", s))
	}
}

// Encode writes data to w in the given structured format. Text format
// uses the value's String method or default formatting.
func Encode(w io.Writer, format Format, data any) error {
	switch format {
	case FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(data)
	case FormatYAML:
		encoder := yaml.NewEncoder(w)
		defer encoder.Close()
		return encoder.Encode(data)
	default:
		_, err := fmt.Fprintln(w, data)
		return err
	}
}

// PrintSuccess prints a success message with a checkmark prefix
func PrintSuccess(w io.Writer, message string) {
	fmt.Fprintf(w, "✓ %s\n", message)
}

// PrintFailure prints a failure message with an X prefix
func PrintFailure(w io.Writer, message string) {
	fmt.Fprintf(w, "✗ %s\n", message)
}

// Table prints rows with uppercase headers and aligned columns.
func Table(w io.Writer, headers []string, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	headerLine := make([]string, len(headers))
	for i, h := range headers {
		headerLine[i] = strings.ToUpper(h)
	}
	if _, err := fmt.Fprintln(tw, strings.Join(headerLine, "\t")); err != nil {
		return err
	}

	separator := make([]string, len(headers))
	for i := range headers {
		separator[i] = strings.Repeat("-", len(headers[i]))
	}
	if _, err := fmt.Fprintln(tw, strings.Join(separator, "\t")); err != nil {
		return err
	}

	for _, row := range rows {
		if _, err := fmt.Fprintln(tw, strings.Join(row, "\t")); err != nil {
			return err
		}
	}

	return nil
}
