package internal

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"

	"github.com/loomworks/loom/internal/dsl"
	"github.com/loomworks/loom/internal/exec"
	"github.com/loomworks/loom/internal/types"
)

func newTestCommand() (*cobra.Command, *bytes.Buffer) {
	cmd := &cobra.Command{Use: "test"}
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	return cmd, buf
}

func TestCLIError_Error(t *testing.T) {
	plain := NewCLIError(ExitInvalid, "bad module")
	assert.Equal(t, "bad module", plain.Error())

	wrapped := WrapError(ExitServiceError, "start rejected", errors.New("boom"))
	assert.Equal(t, "start rejected: boom", wrapped.Error())
	assert.Equal(t, "boom", wrapped.Unwrap().Error())
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantOut  string
	}{
		{
			name:     "nil error",
			err:      nil,
			wantCode: ExitSuccess,
		},
		{
			name:     "cancelled context",
			err:      context.Canceled,
			wantCode: ExitCancelled,
			wantOut:  "Operation cancelled",
		},
		{
			name:     "deadline exceeded",
			err:      context.DeadlineExceeded,
			wantCode: ExitTimeout,
			wantOut:  "Operation timed out",
		},
		{
			name:     "cli error carries its code",
			err:      NewCLIError(ExitConfigError, "config unreadable"),
			wantCode: ExitConfigError,
			wantOut:  "config unreadable",
		},
		{
			name:     "parse error",
			err:      &dsl.ParseError{Message: "unexpected token", Line: 3, Column: 7},
			wantCode: ExitInvalid,
			wantOut:  "unexpected token",
		},
		{
			name:     "config typed error",
			err:      types.NewError(types.CONFIG_LOAD_FAILED, "no such file"),
			wantCode: ExitConfigError,
			wantOut:  "no such file",
		},
		{
			name:     "exec typed error",
			err:      types.NewError(types.EXEC_COMMAND_FAILED, "rejected"),
			wantCode: ExitServiceError,
			wantOut:  "rejected",
		},
		{
			name:     "reference typed error",
			err:      types.NewError(types.REF_NODE_NOT_FOUND, "node missing"),
			wantCode: ExitInvalid,
			wantOut:  "node missing",
		},
		{
			name:     "service rejection",
			err:      &exec.CommandError{Status: 409, Code: "ALREADY_FINISHED", Message: "done"},
			wantCode: ExitServiceError,
			wantOut:  "ALREADY_FINISHED",
		},
		{
			name:     "generic error",
			err:      errors.New("something broke"),
			wantCode: ExitError,
			wantOut:  "something broke",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, buf := newTestCommand()
			code := HandleError(cmd, tt.err)
			assert.Equal(t, tt.wantCode, code)
			if tt.wantOut != "" {
				assert.Contains(t, buf.String(), tt.wantOut)
			}
		})
	}
}

func TestHandleError_VerboseShowsCause(t *testing.T) {
	cmd, buf := newTestCommand()
	cmd.Flags().BoolP("verbose", "v", false, "")
	_ = cmd.Flags().Set("verbose", "true")

	code := HandleError(cmd, WrapError(ExitError, "outer", errors.New("inner detail")))
	assert.Equal(t, ExitError, code)
	assert.Contains(t, buf.String(), "outer")
	assert.Contains(t, buf.String(), "inner detail")
}
