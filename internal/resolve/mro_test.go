package resolve

import "testing"

func TestClassHierarchy_Linearize_DiamondInheritance(t *testing.T) {
	// Classic Python diamond: D(B, C), B(A), C(A), A.
	h := ClassHierarchy{
		"D": {"B", "C"},
		"B": {"A"},
		"C": {"A"},
		"A": nil,
	}

	mro, err := h.Linearize("D")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"D", "B", "C", "A"}
	if len(mro) != len(want) {
		t.Fatalf("expected %v, got %v", want, mro)
	}
	for i, name := range want {
		if mro[i] != name {
			t.Fatalf("expected %v, got %v", want, mro)
		}
	}
}

func TestClassHierarchy_Linearize_SingleInheritance(t *testing.T) {
	h := ClassHierarchy{"Child": {"Parent"}, "Parent": nil}
	mro, err := h.Linearize("Child")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mro) != 2 || mro[0] != "Child" || mro[1] != "Parent" {
		t.Fatalf("expected [Child Parent], got %v", mro)
	}
}

func TestClassHierarchy_Linearize_InconsistentHierarchyErrors(t *testing.T) {
	// Conflicting base orders force an inconsistency C3 must reject.
	h := ClassHierarchy{
		"X": {"A", "B"},
		"Y": {"B", "A"},
		"Z": {"X", "Y"},
		"A": nil,
		"B": nil,
	}
	_, err := h.Linearize("Z")
	if err == nil {
		t.Fatal("expected an error for an inconsistent hierarchy")
	}
}

func TestResolveOverrides_FirstInMROWins(t *testing.T) {
	mro := []string{"D", "B", "C", "A"}
	methods := map[string][]string{
		"A": {"greet", "shared"},
		"B": {"greet"},
	}

	winners := ResolveOverrides(mro, methods)
	if winners["greet"] != "B" {
		t.Fatalf("expected B to win greet() override, got %s", winners["greet"])
	}
	if winners["shared"] != "A" {
		t.Fatalf("expected A to own shared(), got %s", winners["shared"])
	}
}
