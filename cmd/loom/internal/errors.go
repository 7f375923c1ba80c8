package internal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/loomworks/loom/internal/dsl"
	"github.com/loomworks/loom/internal/exec"
	"github.com/loomworks/loom/internal/types"
)

// Exit code constants for the CLI
const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitError indicates a general error, including failed validation
	// and failed executions
	ExitError = 1
	// ExitInvalid indicates invalid arguments or an unparseable module
	ExitInvalid = 2
	// ExitTimeout indicates the operation timed out
	ExitTimeout = 3
	// ExitCancelled indicates the operation was cancelled
	ExitCancelled = 4
	// ExitConfigError indicates a configuration error
	ExitConfigError = 10
	// ExitServiceError indicates the execution service failed or
	// rejected a command
	ExitServiceError = 11
)

// CLIError represents a CLI-specific error with an exit code
type CLIError struct {
	Code    int
	Message string
	Cause   error
}

// Error implements the error interface
func (e *CLIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause error
func (e *CLIError) Unwrap() error {
	return e.Cause
}

// WrapError creates a new CLIError wrapping an existing error
func WrapError(code int, message string, err error) *CLIError {
	return &CLIError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// NewCLIError creates a new CLIError with the given code and message
func NewCLIError(code int, message string) *CLIError {
	return &CLIError{
		Code:    code,
		Message: message,
	}
}

// HandleError handles an error and returns the appropriate exit code.
// It also prints the error message to the command's error output.
func HandleError(cmd *cobra.Command, err error) int {
	if err == nil {
		return ExitSuccess
	}

	if errors.Is(err, context.Canceled) {
		cmd.PrintErrln("Operation cancelled")
		return ExitCancelled
	}

	if errors.Is(err, context.DeadlineExceeded) {
		cmd.PrintErrln("Operation timed out")
		return ExitTimeout
	}

	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		cmd.PrintErrln("Error:", cliErr.Message)
		if cliErr.Cause != nil {
			verboseFlag := cmd.Flag("verbose")
			if verboseFlag != nil && verboseFlag.Changed {
				cmd.PrintErrln("Cause:", cliErr.Cause)
			}
		}
		return cliErr.Code
	}

	var parseErr *dsl.ParseError
	if errors.As(err, &parseErr) {
		cmd.PrintErrln("Error:", parseErr.Error())
		return ExitInvalid
	}

	var cmdErr *exec.CommandError
	if errors.As(err, &cmdErr) {
		cmd.PrintErrln("Error:", cmdErr.Error())
		return ExitServiceError
	}

	var loomErr *types.LoomError
	if errors.As(err, &loomErr) {
		cmd.PrintErrln("Error:", loomErr.Error())
		return mapLoomErrorToExitCode(loomErr)
	}

	cmd.PrintErrln("Error:", err)
	return ExitError
}

// mapLoomErrorToExitCode maps typed error codes to CLI exit codes
func mapLoomErrorToExitCode(err *types.LoomError) int {
	code := string(err.Code)
	switch {
	case strings.HasPrefix(code, "CONFIG_"):
		return ExitConfigError
	case strings.HasPrefix(code, "EXEC_"):
		return ExitServiceError
	case strings.HasPrefix(code, "REF_"), strings.HasPrefix(code, "LAYOUT_"):
		return ExitInvalid
	default:
		return ExitError
	}
}

// IsVerbose checks if verbose mode is enabled via environment variable
// or flag. Used by panic recovery to decide whether to show stack traces.
func IsVerbose() bool {
	if os.Getenv("LOOM_VERBOSE") != "" {
		return true
	}

	for _, arg := range os.Args {
		if arg == "-v" || arg == "--verbose" {
			return true
		}
	}

	return false
}
