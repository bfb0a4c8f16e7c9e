package cerberus

import (
	"context"
	"fmt"

	"github.com/cerberus-code/cerberus/internal/retrieve"
)

// SearchMode selects how a query is weighted between lexical and
// semantic scoring.
type SearchMode string

const (
	ModeKeyword  SearchMode = "keyword"
	ModeSemantic SearchMode = "semantic"
	ModeBalanced SearchMode = "balanced"
)

// Hit is one fused, read-through search result.
type Hit struct {
	Symbol    string
	Kind      string
	File      string
	StartLine int
	EndLine   int
	Score     float64
	MatchType string // "keyword", "semantic", or "both"
	Snippet   string
}

// HybridSearch runs a query through the Hybrid Retriever: query-type
// classification (when mode is unset), dual lexical+semantic search,
// Reciprocal Rank Fusion, and read-through span hydration.
func (h *IndexHandle) HybridSearch(ctx context.Context, query string, mode SearchMode, topK int) ([]Hit, error) {
	opts := retrieve.DefaultOptions()
	if topK > 0 {
		opts.Limit = topK
	}
	switch mode {
	case ModeKeyword:
		w := retrieve.WeightsForQueryType(retrieve.QueryTypeLexical)
		opts.Weights = &w
	case ModeSemantic:
		w := retrieve.WeightsForQueryType(retrieve.QueryTypeSemantic)
		opts.Weights = &w
	case ModeBalanced, "":
		// leave Weights nil: the classifier picks per-query weights
	default:
		return nil, fmt.Errorf("cerberus: unknown search mode %q", mode)
	}

	results, err := h.retriever.Search(ctx, query, opts)
	if err != nil {
		return nil, err
	}

	hits := make([]Hit, len(results))
	for i, r := range results {
		matchType := "keyword"
		switch {
		case r.InBothLists:
			matchType = "both"
		case r.VectorRank > 0 && r.LexicalRank == 0:
			matchType = "semantic"
		}
		hits[i] = Hit{
			Symbol:    r.Name,
			Kind:      r.Kind,
			File:      r.FilePath,
			StartLine: r.StartLine,
			EndLine:   r.EndLine,
			Score:     r.Score,
			MatchType: matchType,
			Snippet:   r.Content,
		}
	}
	return hits, nil
}
