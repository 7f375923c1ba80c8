package internal

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Format
		wantErr bool
	}{
		{name: "text", input: "text", want: FormatText},
		{name: "json", input: "json", want: FormatJSON},
		{name: "yaml", input: "yaml", want: FormatYAML},
		{name: "empty defaults to text", input: "", want: FormatText},
		{name: "unknown", input: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				var cliErr *CLIError
				require.ErrorAs(t, err, &cliErr)
				assert.Equal(t, ExitInvalid, cliErr.Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncode_JSON(t *testing.T) {
	buf := new(bytes.Buffer)
	data := map[string]any{"id": "pipeline", "nodes": 3}

	require.NoError(t, Encode(buf, FormatJSON, data))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "pipeline", decoded["id"])
	assert.Contains(t, buf.String(), "  \"id\"", "output must be indented")
}

func TestEncode_YAML(t *testing.T) {
	buf := new(bytes.Buffer)
	data := map[string]any{"id": "pipeline", "nodes": 3}

	require.NoError(t, Encode(buf, FormatYAML, data))

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "pipeline", decoded["id"])
}

func TestEncode_TextUsesStringer(t *testing.T) {
	buf := new(bytes.Buffer)
	require.NoError(t, Encode(buf, FormatText, "plain line"))
	assert.Equal(t, "plain line\n", buf.String())
}

func TestTable(t *testing.T) {
	buf := new(bytes.Buffer)
	err := Table(buf, []string{"node", "layer"}, [][]string{
		{"fetch", "0"},
		{"notify", "1"},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "NODE")
	assert.Contains(t, out, "LAYER")
	assert.Contains(t, out, "----")
	assert.Contains(t, out, "fetch")
	assert.Contains(t, out, "notify")
}

func TestPrintHelpers(t *testing.T) {
	buf := new(bytes.Buffer)
	PrintSuccess(buf, "module is valid")
	PrintFailure(buf, "module has errors")

	assert.Contains(t, buf.String(), "✓ module is valid")
	assert.Contains(t, buf.String(), "✗ module has errors")
}
