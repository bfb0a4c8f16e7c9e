package cerrors

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatForUser_BasicError(t *testing.T) {
	err := New(CodeSymbolNotFound, "symbol 'Run' not found", nil)

	result := FormatForUser(err, false)

	assert.Contains(t, result, "symbol 'Run' not found")
	assert.Contains(t, result, "[ERR_301_SYMBOL_NOT_FOUND]")
}

func TestFormatForUser_WithSuggestion(t *testing.T) {
	err := New(CodeOptimisticLock, "file changed on disk", nil).
		WithSuggestion("re-read the file and retry, or pass force to overwrite")

	result := FormatForUser(err, false)

	assert.Contains(t, result, "Suggestion:")
	assert.Contains(t, result, "re-read the file")
}

func TestFormatForUser_StandardError(t *testing.T) {
	err := errors.New("something went wrong")

	result := FormatForUser(err, false)

	assert.Contains(t, result, "something went wrong")
}

func TestFormatForUser_NilError(t *testing.T) {
	result := FormatForUser(nil, false)

	assert.Empty(t, result)
}

func TestFormatJSON_BasicError(t *testing.T) {
	err := New(CodeSymbolNotFound, "symbol not found", nil).
		WithDetail("symbol", "Run").
		WithSuggestion("check the symbol name")

	data, jsonErr := FormatJSON(err)

	require.NoError(t, jsonErr)

	var result map[string]any
	require.NoError(t, json.Unmarshal(data, &result))

	assert.Equal(t, CodeSymbolNotFound, result["code"])
	assert.Equal(t, "symbol not found", result["message"])
	assert.Equal(t, string(CategoryQuery), result["category"])
	assert.Equal(t, string(SeverityError), result["severity"])
	assert.Equal(t, "check the symbol name", result["suggestion"])

	details, ok := result["details"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Run", details["symbol"])
}

func TestFormatJSON_StandardError(t *testing.T) {
	err := errors.New("generic error")

	data, jsonErr := FormatJSON(err)

	require.NoError(t, jsonErr)

	var result map[string]any
	require.NoError(t, json.Unmarshal(data, &result))

	assert.Equal(t, CodeInternal, result["code"])
	assert.Equal(t, "generic error", result["message"])
}

func TestFormatJSON_NilError(t *testing.T) {
	data, err := FormatJSON(nil)

	assert.NoError(t, err)
	assert.Equal(t, "null", strings.TrimSpace(string(data)))
}

func TestFormatJSON_WithCause(t *testing.T) {
	cause := errors.New("underlying error")
	err := New(CodeInternal, "operation failed", cause)

	data, jsonErr := FormatJSON(err)

	require.NoError(t, jsonErr)

	var result map[string]any
	require.NoError(t, json.Unmarshal(data, &result))

	assert.Equal(t, "underlying error", result["cause"])
}

func TestFormatForCLI_IncludesCode(t *testing.T) {
	err := New(CodeIndexCorruption, "index is corrupted", nil).
		WithSuggestion("rebuild the index from scratch")

	result := FormatForCLI(err)

	assert.Contains(t, result, "index is corrupted")
	assert.Contains(t, result, "ERR_201_INDEX_CORRUPTION")
}

func TestFormatForCLI_ShortFormat(t *testing.T) {
	err := New(CodeSymbolNotFound, "symbol not found", nil)

	result := FormatForCLI(err)

	lines := strings.Split(strings.TrimSpace(result), "\n")
	assert.LessOrEqual(t, len(lines), 5, "should be concise")
}

func TestFormatForLog_IncludesDetailsWithPrefix(t *testing.T) {
	err := New(CodeSymbolNotFound, "symbol not found", nil).WithDetail("symbol", "Run")

	fields := FormatForLog(err)

	assert.Equal(t, CodeSymbolNotFound, fields["error_code"])
	assert.Equal(t, "Run", fields["detail_symbol"])
}
