package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Valid(t *testing.T) {
	out, _, err := execute(t, "validate", "testdata/grid.cue")
	require.NoError(t, err)
	assert.Equal(t, "✓ testdata/grid.cue: grid \"people\", 2 partition(s), 2 index(es)\n", out)
}

func TestValidate_VerboseListsIndexes(t *testing.T) {
	out, _, err := execute(t, "-v", "validate", "testdata/grid.cue")
	require.NoError(t, err)
	assert.Contains(t, out, "  age: ordered int over age (memory)\n")
	assert.Contains(t, out, "  name: hash string over name (memory)\n")
}

func TestValidate_ValidJSON(t *testing.T) {
	out, _, err := execute(t, "--format", "json", "validate", "testdata/grid.cue")
	require.NoError(t, err)

	var result ValidationResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, result.Valid)
	require.NotNil(t, result.Grid)
	assert.Equal(t, GridSummary{Name: "people", Partitions: 2, Indexes: []string{"age", "name"}}, *result.Grid)
}

func TestValidate_Invalid(t *testing.T) {
	out, _, err := execute(t, "validate", "testdata/invalid.cue")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.True(t, strings.HasPrefix(out, "✗ testdata/invalid.cue\n"), out)
	assert.Contains(t, err.Error(), "configuration error(s)")
}

func TestValidate_InvalidJSON(t *testing.T) {
	out, _, err := execute(t, "--format", "json", "validate", "testdata/invalid.cue")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var result ValidationResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeConfig, resp.Error.Code)
	assert.False(t, result.Valid)
	require.NotEmpty(t, result.Errors)

	for _, e := range result.Errors {
		assert.True(t, strings.HasSuffix(e.File, "invalid.cue") && e.Line > 0,
			"every error points into the file: %+v", e)
	}
}

func TestValidate_MissingFile(t *testing.T) {
	out, _, err := execute(t, "validate", "testdata/nope.cue")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E_LOAD]: config file not found: testdata/nope.cue")
}
