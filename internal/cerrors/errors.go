package cerrors

import "fmt"

// Error is the structured error type used throughout Cerberus. Every
// library call that can fail returns either a result with counters or
// an *Error carrying file, line (when applicable), and a remediation hint
// (spec §7 "User-visible failure behavior").
type Error struct {
	// Code is the unique error code (e.g. "ERR_301_SYMBOL_NOT_FOUND").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category classifies the error for routing/reporting.
	Category Category

	// Severity determines whether the caller should abort.
	Severity Severity

	// File and Line pinpoint the error's origin when known.
	File string
	Line int

	// Suggestion is a single-sentence remediation hint.
	Suggestion string

	// Details carries additional key/value context.
	Details map[string]string

	// Cause is the underlying error, if any.
	Cause error

	// Retryable indicates whether the caller may retry the operation once.
	Retryable bool
}

func (e *Error) Error() string {
	if e.File != "" {
		if e.Line > 0 {
			return fmt.Sprintf("[%s] %s (%s:%d)", e.Code, e.Message, e.File, e.Line)
		}
		return fmt.Sprintf("[%s] %s (%s)", e.Code, e.Message, e.File)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error by Code, so errors.Is(err, cerrors.New(Code...)) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetail attaches a key/value detail and returns the error for chaining.
func (e *Error) WithDetail(key, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithLocation sets File/Line and returns the error for chaining.
func (e *Error) WithLocation(file string, line int) *Error {
	e.File = file
	e.Line = line
	return e
}

// WithSuggestion sets the remediation hint and returns the error for chaining.
func (e *Error) WithSuggestion(suggestion string) *Error {
	e.Suggestion = suggestion
	return e
}

// New creates an Error with category/severity/retryable derived from code.
func New(code, message string, cause error) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap turns an existing error into an Error of the given code.
// Returns nil if err is nil.
func Wrap(code string, err error) *Error {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ParserError reports unparseable bytes or a missing grammar (spec §7).
// Logged with file path; scan continues.
func ParserError(file string, cause error) *Error {
	return New(CodeParserError, "failed to parse file", cause).
		WithLocation(file, 0).
		WithSuggestion("check the file for syntax errors or unsupported language constructs")
}

// IndexCorruption reports a schema mismatch, FK violation, or orphan
// embeddings observed on read. Fatal; caller must rebuild.
func IndexCorruption(message string, cause error) *Error {
	return New(CodeIndexCorruption, message, cause).
		WithSuggestion("rebuild the index from scratch")
}

// StoreWriteError reports a transaction aborted by the store. Retried
// once with a fresh connection by the caller; fatal to the current step
// after that.
func StoreWriteError(message string, cause error) *Error {
	return New(CodeStoreWriteError, message, cause).
		WithSuggestion("retry the write; if it persists, check disk space and permissions")
}

// LimitExceeded reports a file-size, symbol-count, or batch-size cap hit.
// Non-fatal to other files.
func LimitExceeded(file, limitName string) *Error {
	return New(CodeLimitExceeded, fmt.Sprintf("%s limit exceeded", limitName), nil).
		WithLocation(file, 0).
		WithSuggestion("raise the configured limit or split the file")
}

// SymbolNotFound reports a mutation/retrieval precondition miss.
func SymbolNotFound(file, symbol string) *Error {
	return New(CodeSymbolNotFound, fmt.Sprintf("symbol %q not found in %s", symbol, file), nil).
		WithLocation(file, 0).
		WithSuggestion("verify the symbol name and that the file is indexed")
}

// AmbiguousSymbol reports multiple candidates for a named symbol lookup.
func AmbiguousSymbol(file, symbol string, count int) *Error {
	return New(CodeAmbiguousSymbol, fmt.Sprintf("symbol %q is ambiguous (%d candidates)", symbol, count), nil).
		WithLocation(file, 0).
		WithSuggestion("disambiguate with a kind or line number")
}

// SyntaxValidation reports a post-mutation syntax check failure. The
// mutation is aborted without touching the file on disk.
func SyntaxValidation(file string, syntaxErrors []string) *Error {
	e := New(CodeSyntaxValidation, "mutated code failed syntax validation", nil).
		WithLocation(file, 0).
		WithSuggestion("fix the syntax errors in the replacement code")
	for i, se := range syntaxErrors {
		e.WithDetail(fmt.Sprintf("error_%d", i), se)
	}
	return e
}

// OptimisticLockFailed reports that the file changed externally between
// locate and write.
func OptimisticLockFailed(file string) *Error {
	return New(CodeOptimisticLock, "file changed on disk since it was indexed", nil).
		WithLocation(file, 0).
		WithSuggestion("re-read the file and retry, or pass force to overwrite")
}

// MergeConflict reports that a three-way merge could not be applied
// cleanly because changed line sets overlapped.
func MergeConflict(file string, conflictingLines []int) *Error {
	e := New(CodeMergeConflict, "merge conflict: overlapping changed lines", nil).
		WithLocation(file, 0).
		WithSuggestion("resolve the conflicting lines manually and retry")
	for _, l := range conflictingLines {
		e.WithDetail(fmt.Sprintf("line_%d", l), "conflict")
	}
	return e
}

// RiskGateBlocked reports that the advisory risk gate refused a mutation
// because the target file was marked HIGH risk and the caller didn't
// pass Force.
func RiskGateBlocked(file string, risk string) *Error {
	return New(CodeRiskGateBlocked, fmt.Sprintf("file is marked %s risk", risk), nil).
		WithLocation(file, 0).
		WithSuggestion("pass force to override, or split the change into smaller edits")
}

// ResolutionAmbiguity reports multiple candidates for an import or type
// during resolution. The edge is not emitted; a counter is bumped.
func ResolutionAmbiguity(file, subject string) *Error {
	return New(CodeResolutionAmbig, fmt.Sprintf("ambiguous resolution for %q", subject), nil).
		WithLocation(file, 0)
}

// Cancelled reports a propagated cancellation; the current transaction
// was rolled back.
func Cancelled(cause error) *Error {
	return New(CodeCancelled, "operation cancelled", cause)
}

// InternalError wraps an unexpected internal failure.
func InternalError(message string, cause error) *Error {
	return New(CodeInternal, message, cause)
}

// IsRetryable reports whether err is an *Error with Retryable set.
func IsRetryable(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Retryable
}

// IsFatal reports whether err is an *Error with fatal severity.
func IsFatal(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Severity == SeverityFatal
}

// GetCode extracts the code from err, or "" if err is not an *Error.
func GetCode(err error) string {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return ""
}

// GetCategory extracts the category from err, or "" if err is not an *Error.
func GetCategory(err error) Category {
	if e, ok := err.(*Error); ok {
		return e.Category
	}
	return ""
}
