// Package cerrors provides the structured error taxonomy used across Cerberus.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: parse/scan errors (recoverable, counted)
//   - 2XX: store/index integrity errors
//   - 3XX: retrieval/mutation preconditions
//   - 5XX: mutation errors
//   - 9XX: cancellation / internal
package cerrors

// Category classifies an error for routing and reporting.
type Category string

const (
	CategoryParse      Category = "PARSE"
	CategoryStore      Category = "STORE"
	CategoryQuery      Category = "QUERY"
	CategoryMutation   Category = "MUTATION"
	CategoryInternal   Category = "INTERNAL"
)

// Severity defines how a caller should react to an error.
type Severity string

const (
	// SeverityFatal aborts the current build/update operation.
	SeverityFatal Severity = "FATAL"
	// SeverityError fails the current operation but the caller continues with others.
	SeverityError Severity = "ERROR"
	// SeverityWarning is counted but never aborts anything.
	SeverityWarning Severity = "WARNING"
)

// Error codes, one per taxonomy member in spec §7.
const (
	// Parse/scan (100-199) — recoverable, counted in build reports, never abort a scan.
	CodeParserError     = "ERR_101_PARSER_ERROR"
	CodeLimitExceeded   = "ERR_102_LIMIT_EXCEEDED"
	CodeResolutionAmbig = "ERR_103_RESOLUTION_AMBIGUITY"

	// Store/index integrity (200-299) — fatal, caller must rebuild.
	CodeIndexCorruption = "ERR_201_INDEX_CORRUPTION"
	CodeStoreWriteError = "ERR_202_STORE_WRITE_ERROR"

	// Retrieval/mutation preconditions (300-399) — non-fatal, returned to caller.
	CodeSymbolNotFound  = "ERR_301_SYMBOL_NOT_FOUND"
	CodeAmbiguousSymbol = "ERR_302_AMBIGUOUS_SYMBOL"

	// Mutation (500-599)
	CodeSyntaxValidation = "ERR_501_SYNTAX_VALIDATION"
	CodeOptimisticLock   = "ERR_502_OPTIMISTIC_LOCK_FAILED"
	CodeMergeConflict    = "ERR_503_MERGE_CONFLICT"
	CodeRiskGateBlocked  = "ERR_504_RISK_GATE_BLOCKED"

	// Internal/cancellation (900-999)
	CodeCancelled = "ERR_901_CANCELLED"
	CodeInternal  = "ERR_902_INTERNAL"
)

// categoryFromCode derives a Category from a code's numeric band.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}
	switch code[4] {
	case '1':
		return CategoryParse
	case '2':
		return CategoryStore
	case '3':
		return CategoryQuery
	case '5':
		return CategoryMutation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines default severity for a code.
func severityFromCode(code string) Severity {
	switch code {
	case CodeIndexCorruption, CodeStoreWriteError:
		return SeverityFatal
	case CodeParserError, CodeLimitExceeded, CodeResolutionAmbig:
		return SeverityWarning
	default:
		return SeverityError
	}
}

// isRetryableCode reports whether the taxonomy allows one retry (spec §7:
// StoreWriteError is "retried once with fresh connection; then fatal").
func isRetryableCode(code string) bool {
	return code == CodeStoreWriteError
}
