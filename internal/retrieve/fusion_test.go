package retrieve

import "testing"

func TestRRFFuse_PrefersSymbolInBothLists(t *testing.T) {
	lexical := []LexicalHit{{SymbolID: 1, Score: 10}, {SymbolID: 2, Score: 8}}
	semantic := []SemanticHit{{SymbolID: 2, Score: 0.9}, {SymbolID: 3, Score: 0.8}}

	results := rrfFuse(lexical, semantic, DefaultWeights(), RRFConstant)

	if len(results) != 3 {
		t.Fatalf("expected 3 fused results, got %d", len(results))
	}
	if results[0].SymbolID != 2 {
		t.Fatalf("expected symbol 2 (in both lists) to rank first, got %d", results[0].SymbolID)
	}
	if !results[0].InBothLists {
		t.Fatalf("expected InBothLists=true for symbol 2")
	}
}

func TestRRFFuse_EmptyInputsReturnsEmptySlice(t *testing.T) {
	results := rrfFuse(nil, nil, DefaultWeights(), RRFConstant)
	if results == nil {
		t.Fatal("expected empty slice, got nil")
	}
	if len(results) != 0 {
		t.Fatalf("expected 0 results, got %d", len(results))
	}
}

func TestRRFFuse_NormalizesTopScoreToOne(t *testing.T) {
	results := rrfFuse([]LexicalHit{{SymbolID: 1, Score: 5}}, nil, DefaultWeights(), RRFConstant)
	if results[0].RRFScore != 1.0 {
		t.Fatalf("expected top score normalized to 1.0, got %f", results[0].RRFScore)
	}
}

func TestWeightsForQueryType_Lexical(t *testing.T) {
	w := WeightsForQueryType(QueryTypeLexical)
	if w.Lexical <= w.Semantic {
		t.Fatalf("expected lexical weight to dominate for LEXICAL queries, got %+v", w)
	}
}
