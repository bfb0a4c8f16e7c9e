package resolve

import "fmt"

// ClassHierarchy maps a fully-qualified class name to its declared
// base classes in left-to-right source order, the shape the C3
// linearization algorithm consumes directly.
type ClassHierarchy map[string][]string

// Linearize computes the C3 method resolution order for class, the
// same algorithm CPython uses for multiple inheritance. It returns
// class itself first, then ancestors in override-priority order:
// earlier entries shadow methods defined in later ones.
func (h ClassHierarchy) Linearize(class string) ([]string, error) {
	return c3Merge(h, class, map[string]bool{})
}

func c3Merge(h ClassHierarchy, class string, visiting map[string]bool) ([]string, error) {
	if visiting[class] {
		return nil, fmt.Errorf("resolve: inheritance cycle detected at %q", class)
	}
	visiting[class] = true
	defer delete(visiting, class)

	bases := h[class]
	if len(bases) == 0 {
		return []string{class}, nil
	}

	sequences := make([][]string, 0, len(bases)+1)
	for _, base := range bases {
		lin, err := c3Merge(h, base, visiting)
		if err != nil {
			return nil, err
		}
		sequences = append(sequences, lin)
	}
	sequences = append(sequences, append([]string{}, bases...))

	merged, err := c3MergeSequences(sequences)
	if err != nil {
		return nil, fmt.Errorf("resolve: cannot linearize %q: %w", class, err)
	}
	return append([]string{class}, merged...), nil
}

// c3MergeSequences implements the merge step of C3: repeatedly take the
// head of the first sequence that doesn't appear in the tail of any
// other sequence, until all sequences are exhausted.
func c3MergeSequences(sequences [][]string) ([]string, error) {
	var result []string
	seqs := make([][]string, 0, len(sequences))
	for _, s := range sequences {
		if len(s) > 0 {
			seqs = append(seqs, s)
		}
	}

	for len(seqs) > 0 {
		var candidate string
		found := false

		for _, seq := range seqs {
			head := seq[0]
			if !inAnyTail(seqs, head) {
				candidate = head
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("inconsistent hierarchy")
		}

		result = append(result, candidate)
		next := make([][]string, 0, len(seqs))
		for _, seq := range seqs {
			filtered := removeHead(seq, candidate)
			if len(filtered) > 0 {
				next = append(next, filtered)
			}
		}
		seqs = next
	}
	return result, nil
}

func inAnyTail(seqs [][]string, name string) bool {
	for _, seq := range seqs {
		for _, n := range seq[1:] {
			if n == name {
				return true
			}
		}
	}
	return false
}

func removeHead(seq []string, name string) []string {
	if seq[0] == name {
		return seq[1:]
	}
	return seq
}

// ResolveOverrides returns, for every method name declared anywhere in
// mro, the single class that wins per MRO priority (the first class in
// mro order that declares it) — methodsByClass maps a class name to the
// method names it declares directly.
func ResolveOverrides(mro []string, methodsByClass map[string][]string) map[string]string {
	winner := make(map[string]string)
	for _, class := range mro {
		for _, method := range methodsByClass[class] {
			if _, already := winner[method]; !already {
				winner[method] = class
			}
		}
	}
	return winner
}
