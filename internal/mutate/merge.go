package mutate

import (
	"strings"

	"github.com/cerberus-code/cerberus/internal/cerrors"
)

// threeWayMerge applies a non-overlapping line-based merge of local
// (the caller's intended new content, rebased against base) against
// remote (what's actually on disk now). If the sets of changed line
// numbers are disjoint, both sets of changes are applied; otherwise the
// conflicting line numbers are returned as a MergeConflict error.
func threeWayMerge(file string, base, local, remote []byte) ([]byte, error) {
	baseLines := strings.Split(normalizeLineEndings(string(base)), "\n")
	localLines := strings.Split(normalizeLineEndings(string(local)), "\n")
	remoteLines := strings.Split(normalizeLineEndings(string(remote)), "\n")

	localChanged := changedLines(baseLines, localLines)
	remoteChanged := changedLines(baseLines, remoteLines)

	var conflicts []int
	for line := range localChanged {
		if _, ok := remoteChanged[line]; ok {
			conflicts = append(conflicts, line)
		}
	}
	if len(conflicts) > 0 {
		return nil, cerrors.MergeConflict(file, conflicts)
	}

	merged := make([]string, len(remoteLines))
	copy(merged, remoteLines)
	for line := range localChanged {
		if line < len(merged) && line < len(localLines) {
			merged[line] = localLines[line]
		}
	}

	return []byte(strings.Join(merged, "\n")), nil
}

// changedLines returns the set of line indices that differ between base
// and modified, comparing position-by-position up to the shorter length;
// a pure line-count change from that point on is attributed as a single
// trailing edit rather than enumerated line by line.
func changedLines(base, modified []string) map[int]bool {
	changed := make(map[int]bool)
	n := min(len(base), len(modified))
	for i := 0; i < n; i++ {
		if base[i] != modified[i] {
			changed[i] = true
		}
	}
	if len(base) != len(modified) {
		changed[n] = true
	}
	return changed
}
