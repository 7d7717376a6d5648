package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_Tree(t *testing.T) {
	root := NewRootCommand()
	assert.Equal(t, "rstate", root.Use)

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"path", "run", "test", "trace", "validate"} {
		assert.Contains(t, names, want)
	}
}

func TestRootCommand_Flags(t *testing.T) {
	root := NewRootCommand()

	tests := []struct {
		command []string
		flag    string
		def     string
	}{
		{nil, "verbose", "false"},
		{nil, "format", "text"},
		{[]string{"run"}, "journal", ""},
		{[]string{"run"}, "metrics", "false"},
		{[]string{"test"}, "update", "false"},
		{[]string{"test"}, "filter", ""},
		{[]string{"trace"}, "journal", ""},
		{[]string{"trace"}, "path", ""},
		{[]string{"path"}, "affects", ""},
		{[]string{"path"}, "relative", ""},
	}
	for _, tt := range tests {
		t.Run(filepath.Join(append(tt.command, tt.flag)...), func(t *testing.T) {
			cmd := root
			if tt.command != nil {
				var err error
				cmd, _, err = root.Find(tt.command)
				require.NoError(t, err)
			}
			f := cmd.Flags().Lookup(tt.flag)
			if f == nil {
				f = cmd.PersistentFlags().Lookup(tt.flag)
			}
			require.NotNil(t, f, "missing --%s", tt.flag)
			assert.Equal(t, tt.def, f.DefValue)
		})
	}

	assert.Equal(t, "v", root.PersistentFlags().Lookup("verbose").Shorthand)
}

func TestRootCommand_InvalidFormat(t *testing.T) {
	_, _, err := execute(NewRootCommand(), "--format", "xml", "path", "a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "xml"`)
}

func TestRootCommand_FormatReachesSubcommands(t *testing.T) {
	out, _, err := execute(NewRootCommand(), "--format", "json", "path", "user[name]")
	require.NoError(t, err)
	assert.Contains(t, out, `"canonical": "user.name"`)
}

func TestExecute_ExitCodes(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.yaml", passingScenario)
	bad := writeFile(t, dir, "bad.yaml", failingScenario)

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"pass", []string{"run", good}, ExitSuccess},
		{"scenario fails", []string{"run", bad}, ExitFailure},
		{"missing file", []string{"run", filepath.Join(dir, "nope.yaml")}, ExitCommandError},
		{"bad path", []string{"path", "a["}, ExitCommandError},
		{"wrong arg count", []string{"path"}, ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out, errOut bytes.Buffer
			assert.Equal(t, tt.want, Execute(tt.args, &out, &errOut))
		})
	}
}

func TestExecute_TextErrorsOnStderr(t *testing.T) {
	var out, errOut bytes.Buffer
	code := Execute([]string{"path"}, &out, &errOut)

	assert.Equal(t, ExitFailure, code)
	assert.Empty(t, out.String())
	assert.Contains(t, errOut.String(), "Error: accepts 1 arg(s)")
}

func TestExecute_JSONUsageError(t *testing.T) {
	var out, errOut bytes.Buffer
	code := Execute([]string{"--format", "json", "path"}, &out, &errOut)
	assert.Equal(t, ExitFailure, code)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeCommand, resp.Error.Code)
	assert.Empty(t, errOut.String())
}

func TestExecute_JSONCommandErrorReportedOnce(t *testing.T) {
	var out, errOut bytes.Buffer
	code := Execute([]string{"--format", "json", "path", "a["}, &out, &errOut)
	assert.Equal(t, ExitCommandError, code)

	dec := json.NewDecoder(&out)
	var resp CLIResponse
	require.NoError(t, dec.Decode(&resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeInvalidPath, resp.Error.Code)
	assert.False(t, dec.More(), "stdout holds exactly one document")
}
