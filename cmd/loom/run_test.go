package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomworks/loom/cmd/loom/internal"
	"github.com/loomworks/loom/internal/config"
	"github.com/loomworks/loom/internal/exec"
)

func resetRunFlags() {
	runFile = ""
	runContext = nil
	runWatch = false
	runPlain = false
}

// execServiceStub fakes the start endpoint and records the request.
func execServiceStub(t *testing.T, executionID string) (*httptest.Server, *exec.StartRequest) {
	t.Helper()
	var captured exec.StartRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/executions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"executionId":"` + executionID + `"}`))
	}))
	t.Cleanup(srv.Close)
	return srv, &captured
}

func pointConfigAt(t *testing.T, baseURL string) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Service.BaseURL = baseURL
	appConfig = cfg
}

func TestRunCommand_StartByID(t *testing.T) {
	resetGlobals(t)
	defer resetRunFlags()
	resetRunFlags()

	srv, captured := execServiceStub(t, "exec-42")
	pointConfigAt(t, srv.URL)

	cmd, out, _ := newCLICommand(t)
	require.NoError(t, runRun(cmd, []string{"incident-pipeline"}))

	assert.Equal(t, "incident-pipeline", captured.WorkflowID)
	assert.Empty(t, captured.Module)
	assert.Contains(t, out.String(), "started execution exec-42")
	assert.Contains(t, out.String(), "loom watch exec-42")
}

func TestRunCommand_StartFromFileSubmitsCanonicalSource(t *testing.T) {
	resetGlobals(t)
	defer resetRunFlags()
	resetRunFlags()

	srv, captured := execServiceStub(t, "exec-7")
	pointConfigAt(t, srv.URL)
	runFile = writeFlowModule(t, canonicalModule)

	cmd, out, _ := newCLICommand(t)
	require.NoError(t, runRun(cmd, nil))

	assert.Equal(t, "incident-pipeline", captured.WorkflowID)
	assert.Equal(t, canonicalModule, captured.Module)
	assert.Contains(t, out.String(), "started execution exec-7")
}

func TestRunCommand_ContextEntries(t *testing.T) {
	resetGlobals(t)
	defer resetRunFlags()
	resetRunFlags()

	srv, captured := execServiceStub(t, "exec-1")
	pointConfigAt(t, srv.URL)
	runContext = []string{"env=staging", "region=us-east-1"}

	cmd, _, _ := newCLICommand(t)
	require.NoError(t, runRun(cmd, []string{"incident-pipeline"}))

	assert.Equal(t, map[string]any{"env": "staging", "region": "us-east-1"}, captured.Context)
}

func TestRunCommand_RefusesInvalidModule(t *testing.T) {
	resetGlobals(t)
	defer resetRunFlags()
	resetRunFlags()

	started := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started = true
	}))
	t.Cleanup(srv.Close)
	pointConfigAt(t, srv.URL)
	runFile = writeFlowModule(t, invalidModule)

	cmd, out, _ := newCLICommand(t)
	err := runRun(cmd, nil)
	require.Error(t, err)

	var cliErr *internal.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, internal.ExitError, cliErr.Code)
	assert.Contains(t, out.String(), "CONFIG_FIELD_REQUIRED")
	assert.False(t, started, "invalid module must never reach the service")
}

func TestRunCommand_ArgumentRules(t *testing.T) {
	resetGlobals(t)
	defer resetRunFlags()

	tests := []struct {
		name    string
		file    string
		args    []string
		wantErr string
	}{
		{name: "neither id nor file", wantErr: "workflow id or --file is required"},
		{name: "both id and file", file: "x.flow", args: []string{"wf"}, wantErr: "not both"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetRunFlags()
			runFile = tt.file
			cmd, _, _ := newCLICommand(t)

			err := runRun(cmd, tt.args)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseContextEntries(t *testing.T) {
	tests := []struct {
		name    string
		entries []string
		want    map[string]any
		wantErr bool
	}{
		{name: "empty", entries: nil, want: nil},
		{name: "single", entries: []string{"env=staging"}, want: map[string]any{"env": "staging"}},
		{
			name:    "value containing equals",
			entries: []string{"query=a=b"},
			want:    map[string]any{"query": "a=b"},
		},
		{name: "missing separator", entries: []string{"plain"}, wantErr: true},
		{name: "empty key", entries: []string{"=value"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseContextEntries(tt.entries)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
