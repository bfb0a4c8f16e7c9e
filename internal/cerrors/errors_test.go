package cerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Unwrap_PreservesOriginalError(t *testing.T) {
	originalErr := errors.New("original error")

	err := New(CodeSymbolNotFound, "symbol not found: Foo", originalErr)

	require.NotNil(t, err)
	assert.Equal(t, originalErr, errors.Unwrap(err))
	assert.True(t, errors.Is(err, originalErr))
}

func TestError_Error_ReturnsFormattedMessage(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		message  string
		expected string
	}{
		{
			name:     "parser error",
			code:     CodeParserError,
			message:  "unexpected token",
			expected: "[ERR_101_PARSER_ERROR] unexpected token",
		},
		{
			name:     "symbol not found",
			code:     CodeSymbolNotFound,
			message:  "symbol \"Foo\" not found",
			expected: "[ERR_301_SYMBOL_NOT_FOUND] symbol \"Foo\" not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message, nil)
			assert.Equal(t, tt.expected, err.Error())
		})
	}
}

func TestError_Error_IncludesFileAndLine(t *testing.T) {
	err := New(CodeParserError, "unexpected token", nil).WithLocation("main.go", 42)
	assert.Equal(t, "[ERR_101_PARSER_ERROR] unexpected token (main.go:42)", err.Error())
}

func TestError_Error_IncludesFileWithoutLine(t *testing.T) {
	err := New(CodeLimitExceeded, "file too large", nil).WithLocation("big.go", 0)
	assert.Equal(t, "[ERR_102_LIMIT_EXCEEDED] file too large (big.go)", err.Error())
}

func TestError_Is_MatchesByCode(t *testing.T) {
	err1 := New(CodeSymbolNotFound, "symbol A not found", nil)
	err2 := New(CodeSymbolNotFound, "symbol B not found", nil)

	assert.True(t, errors.Is(err1, err2))
}

func TestError_Is_DoesNotMatchDifferentCodes(t *testing.T) {
	err1 := New(CodeSymbolNotFound, "symbol not found", nil)
	err2 := New(CodeParserError, "parse failed", nil)

	assert.False(t, errors.Is(err1, err2))
}

func TestError_WithDetail_AddsContext(t *testing.T) {
	err := New(CodeSymbolNotFound, "symbol not found", nil)

	err = err.WithDetail("symbol", "Foo")
	err = err.WithDetail("kind", "function")

	assert.Equal(t, "Foo", err.Details["symbol"])
	assert.Equal(t, "function", err.Details["kind"])
}

func TestError_WithSuggestion_AddsSuggestion(t *testing.T) {
	err := New(CodeOptimisticLock, "file changed", nil)

	err = err.WithSuggestion("re-read the file and retry")

	assert.Equal(t, "re-read the file and retry", err.Suggestion)
}

func TestCategoryFromCode(t *testing.T) {
	tests := []struct {
		code         string
		wantCategory Category
	}{
		{CodeParserError, CategoryParse},
		{CodeLimitExceeded, CategoryParse},
		{CodeResolutionAmbig, CategoryParse},
		{CodeIndexCorruption, CategoryStore},
		{CodeStoreWriteError, CategoryStore},
		{CodeSymbolNotFound, CategoryQuery},
		{CodeAmbiguousSymbol, CategoryQuery},
		{CodeSyntaxValidation, CategoryMutation},
		{CodeOptimisticLock, CategoryMutation},
		{CodeMergeConflict, CategoryMutation},
		{CodeCancelled, CategoryInternal},
		{CodeInternal, CategoryInternal},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "test message", nil)
			assert.Equal(t, tt.wantCategory, err.Category)
		})
	}
}

func TestSeverityFromCode(t *testing.T) {
	tests := []struct {
		code         string
		wantSeverity Severity
	}{
		{CodeIndexCorruption, SeverityFatal},
		{CodeStoreWriteError, SeverityFatal},
		{CodeParserError, SeverityWarning},
		{CodeLimitExceeded, SeverityWarning},
		{CodeResolutionAmbig, SeverityWarning},
		{CodeSymbolNotFound, SeverityError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "test message", nil)
			assert.Equal(t, tt.wantSeverity, err.Severity)
		})
	}
}

func TestRetryableFromCode(t *testing.T) {
	tests := []struct {
		code          string
		wantRetryable bool
	}{
		{CodeStoreWriteError, true},
		{CodeParserError, false},
		{CodeSymbolNotFound, false},
		{CodeIndexCorruption, false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "test message", nil)
			assert.Equal(t, tt.wantRetryable, err.Retryable)
		})
	}
}

func TestWrap_CreatesErrorFromError(t *testing.T) {
	originalErr := errors.New("something went wrong")

	wrapped := Wrap(CodeInternal, originalErr)

	require.NotNil(t, wrapped)
	assert.Equal(t, CodeInternal, wrapped.Code)
	assert.Equal(t, "something went wrong", wrapped.Message)
	assert.Equal(t, originalErr, wrapped.Cause)
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(CodeInternal, nil))
}

func TestParserError_SetsLocationAndSuggestion(t *testing.T) {
	err := ParserError("main.go", errors.New("unexpected EOF"))

	assert.Equal(t, CodeParserError, err.Code)
	assert.Equal(t, "main.go", err.File)
	assert.NotEmpty(t, err.Suggestion)
}

func TestSymbolNotFound_FormatsMessage(t *testing.T) {
	err := SymbolNotFound("main.go", "DoThing")

	assert.Equal(t, CodeSymbolNotFound, err.Code)
	assert.Contains(t, err.Message, "DoThing")
	assert.Equal(t, "main.go", err.File)
}

func TestAmbiguousSymbol_IncludesCandidateCount(t *testing.T) {
	err := AmbiguousSymbol("main.go", "Run", 3)

	assert.Equal(t, CodeAmbiguousSymbol, err.Code)
	assert.Contains(t, err.Message, "3 candidates")
}

func TestSyntaxValidation_AttachesEachError(t *testing.T) {
	err := SyntaxValidation("main.go", []string{"missing )", "missing }"})

	assert.Equal(t, CodeSyntaxValidation, err.Code)
	assert.Len(t, err.Details, 2)
}

func TestOptimisticLockFailed_IsMutationCategory(t *testing.T) {
	err := OptimisticLockFailed("main.go")

	assert.Equal(t, CategoryMutation, err.Category)
	assert.Equal(t, "main.go", err.File)
}

func TestIsRetryable_ChecksRetryableFlag(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "retryable store error",
			err:      New(CodeStoreWriteError, "write failed", nil),
			expected: true,
		},
		{
			name:     "non-retryable error",
			err:      New(CodeSymbolNotFound, "not found", nil),
			expected: false,
		},
		{
			name:     "wrapped retryable error",
			err:      Wrap(CodeStoreWriteError, errors.New("wrapped")),
			expected: true,
		},
		{
			name:     "standard error",
			err:      errors.New("standard error"),
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsRetryable(tt.err))
		})
	}
}

func TestIsFatal_ChecksFatalSeverity(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "fatal corruption",
			err:      New(CodeIndexCorruption, "index corrupt", nil),
			expected: true,
		},
		{
			name:     "fatal store write",
			err:      New(CodeStoreWriteError, "write failed", nil),
			expected: true,
		},
		{
			name:     "non-fatal error",
			err:      New(CodeSymbolNotFound, "not found", nil),
			expected: false,
		},
		{
			name:     "standard error",
			err:      errors.New("standard error"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsFatal(tt.err))
		})
	}
}

func TestGetCode_ExtractsCode(t *testing.T) {
	assert.Equal(t, CodeSymbolNotFound, GetCode(New(CodeSymbolNotFound, "x", nil)))
	assert.Equal(t, "", GetCode(errors.New("plain")))
}

func TestGetCategory_ExtractsCategory(t *testing.T) {
	assert.Equal(t, CategoryQuery, GetCategory(New(CodeSymbolNotFound, "x", nil)))
	assert.Equal(t, Category(""), GetCategory(errors.New("plain")))
}
