package cerberus

import (
	"context"

	"github.com/cerberus-code/cerberus/internal/mutate"
)

// MutationTarget identifies the symbol a mutation applies to.
type MutationTarget = mutate.Target

// MutationOptions configures a single edit or delete call.
type MutationOptions = mutate.Options

// MutationResult is returned from a successful (or dry-run) mutation.
type MutationResult = mutate.Result

// RiskLevel is the advisory risk gate's verdict for a mutation's target.
type RiskLevel = mutate.RiskLevel

// DefaultMutationOptions returns the documented defaults: reindent to the
// file's detected style, run a syntax check, and take a backup.
func DefaultMutationOptions() MutationOptions {
	return mutate.DefaultOptions()
}

// MutateEdit replaces target's source span with newCode, through the full
// Mutation Engine pipeline: locate, reformat, splice, validate, atomic
// write + backup, ledger append, and index refresh.
func (h *IndexHandle) MutateEdit(ctx context.Context, target MutationTarget, newCode string, opts MutationOptions) (*MutationResult, error) {
	return h.mutator.Edit(ctx, target, newCode, opts)
}

// MutateDelete removes target's source span (plus a trailing blank line,
// if any) through the same pipeline as MutateEdit.
func (h *IndexHandle) MutateDelete(ctx context.Context, target MutationTarget, opts MutationOptions) (*MutationResult, error) {
	return h.mutator.Delete(ctx, target, opts)
}
