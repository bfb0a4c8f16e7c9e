package retrieve

import "sort"

// LexicalHit is one row from the Index Store's FTS5 search.
type LexicalHit struct {
	SymbolID int64
	Score    float64
}

// SemanticHit is one row from the Vector Store's ANN search.
type SemanticHit struct {
	SymbolID int64
	Score    float64
}

// fused accumulates RRF contributions for one symbol across both lists.
type fused struct {
	SymbolID    int64
	RRFScore    float64
	LexicalScore float64
	LexicalRank  int
	VectorScore  float64
	VectorRank   int
	InBothLists  bool
}

// rrfFuse combines lexical and semantic ranked lists with Reciprocal Rank
// Fusion: score(d) = Σ weight_i / (k + rank_i), 1-indexed ranks, a
// symbol absent from one list contributes at missing_rank =
// max(len(lexical), len(semantic)) + 1 for that side.
func rrfFuse(lexical []LexicalHit, semantic []SemanticHit, weights Weights, k int) []fused {
	if len(lexical) == 0 && len(semantic) == 0 {
		return []fused{}
	}
	if k <= 0 {
		k = RRFConstant
	}

	scores := make(map[int64]*fused, len(lexical)+len(semantic))
	getOrCreate := func(id int64) *fused {
		if f, ok := scores[id]; ok {
			return f
		}
		f := &fused{SymbolID: id}
		scores[id] = f
		return f
	}

	for rank, hit := range lexical {
		f := getOrCreate(hit.SymbolID)
		f.LexicalScore = hit.Score
		f.LexicalRank = rank + 1
		f.RRFScore += weights.Lexical / float64(k+rank+1)
	}
	for rank, hit := range semantic {
		f := getOrCreate(hit.SymbolID)
		f.VectorScore = hit.Score
		f.VectorRank = rank + 1
		f.RRFScore += weights.Semantic / float64(k+rank+1)
		if f.LexicalRank > 0 {
			f.InBothLists = true
		}
	}

	missingRank := max(len(lexical), len(semantic)) + 1
	for _, f := range scores {
		if f.LexicalRank == 0 && f.VectorRank > 0 {
			f.RRFScore += weights.Lexical / float64(k+missingRank)
		}
		if f.VectorRank == 0 && f.LexicalRank > 0 {
			f.RRFScore += weights.Semantic / float64(k+missingRank)
		}
	}

	out := make([]fused, 0, len(scores))
	for _, f := range scores {
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool { return compareFused(out[i], out[j]) })
	normalizeFused(out)
	return out
}

// compareFused orders by RRF score desc, then both-lists first, then
// lexical score desc, then symbol id asc for determinism.
func compareFused(a, b fused) bool {
	if a.RRFScore != b.RRFScore {
		return a.RRFScore > b.RRFScore
	}
	if a.InBothLists != b.InBothLists {
		return a.InBothLists
	}
	if a.LexicalScore != b.LexicalScore {
		return a.LexicalScore > b.LexicalScore
	}
	return a.SymbolID < b.SymbolID
}

func normalizeFused(results []fused) {
	if len(results) == 0 || results[0].RRFScore == 0 {
		return
	}
	max := results[0].RRFScore
	for i := range results {
		results[i].RRFScore /= max
	}
}
