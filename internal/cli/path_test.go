package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pathResponse struct {
	Status string     `json:"status"`
	Data   PathResult `json:"data"`
	Error  *CLIError  `json:"error"`
}

func TestPathCommandCanonical(t *testing.T) {
	tests := []struct {
		spec      string
		canonical string
	}{
		{"user.name", "user.name"},
		{"user[name]", "user.name"},
		{"[user][name]", "user.name"},
		{"items[0].title", "items.0.title"},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			out, _, err := execute(NewPathCommand(&RootOptions{Format: "json"}), tt.spec)
			require.NoError(t, err)

			var resp pathResponse
			require.NoError(t, json.Unmarshal([]byte(out), &resp))
			assert.Equal(t, tt.spec, resp.Data.Input)
			assert.Equal(t, tt.canonical, resp.Data.Canonical)
			assert.Nil(t, resp.Data.Affects)
			assert.Nil(t, resp.Data.Relative)
		})
	}
}

func TestPathCommandSegments(t *testing.T) {
	out, _, err := execute(NewPathCommand(&RootOptions{Format: "json"}), "items[0].total()")
	require.NoError(t, err)

	var resp pathResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, []SegmentInfo{
		{Name: "items"},
		{Name: "0", Index: true},
		{Name: "total", Invoked: true},
	}, resp.Data.Segments)
}

func TestPathCommandAffectsAndRelative(t *testing.T) {
	out, _, err := execute(NewPathCommand(&RootOptions{Format: "json"}),
		"items[0]", "--affects", "items.0.title", "--relative", "items")
	require.NoError(t, err)

	var resp pathResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotNil(t, resp.Data.Affects)
	assert.True(t, *resp.Data.Affects)
	require.NotNil(t, resp.Data.Relative)
	assert.Equal(t, "0", *resp.Data.Relative)

	out, _, err = execute(NewPathCommand(&RootOptions{Format: "json"}), "items.0.title", "--affects", "items")
	require.NoError(t, err)
	resp = pathResponse{}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.False(t, *resp.Data.Affects, "a child does not affect its parent")
}

func TestPathCommandText(t *testing.T) {
	out, _, err := execute(NewPathCommand(&RootOptions{Format: "text"}), "a[b].c", "--affects", "a.b.c.d", "--relative", "a.b.c")
	require.NoError(t, err)
	assert.Contains(t, out, "Canonical: a.b.c\n")
	assert.Contains(t, out, "Segments (3): a, b, c\n")
	assert.Contains(t, out, "Affects a.b.c.d: true\n")
	assert.Contains(t, out, "Relative to a.b.c: <root>\n")
}

func TestPathCommandErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unterminated bracket", []string{"a["}},
		{"bad affects", []string{"a", "--affects", "b]"}},
		{"not a prefix", []string{"a.b", "--relative", "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(NewPathCommand(&RootOptions{Format: "json"}), tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))

			var resp pathResponse
			require.NoError(t, json.Unmarshal([]byte(out), &resp))
			assert.Equal(t, "error", resp.Status)
			assert.Equal(t, ErrCodeInvalidPath, resp.Error.Code)
		})
	}
}
