package resolve

import (
	"context"

	"github.com/cerberus-code/cerberus/internal/store"
	"github.com/cerberus-code/cerberus/pkg/cerberus/model"
)

// CallGraph is a directed graph of resolved call edges keyed by symbol
// id, built from the Index Store's symbol_references table (spec
// §4.G / pkg surface "CallGraph").
type CallGraph struct {
	callers map[int64][]model.SymbolReference // target symbol id -> edges pointing at it
	callees map[int64][]model.SymbolReference // source symbol id -> edges it originates
}

// BuildCallGraph loads every resolved "calls" edge and indexes it both
// forward (callees) and backward (callers). symbol_references records
// file+line, not a symbol id directly, so both endpoints are resolved
// against the Index Store while building the graph.
func BuildCallGraph(ctx context.Context, st *store.Store) (*CallGraph, error) {
	refs, err := st.QuerySymbolReferencesFiltered(ctx, model.RefCalls, "")
	if err != nil {
		return nil, err
	}

	g := &CallGraph{
		callers: make(map[int64][]model.SymbolReference),
		callees: make(map[int64][]model.SymbolReference),
	}

	for _, ref := range refs {
		sourceSym, err := st.FindSymbolByLine(ctx, ref.SourceFileID, ref.SourceLine)
		if err != nil {
			return nil, err
		}
		var sourceID int64
		if sourceSym != nil {
			sourceID = sourceSym.ID
		}
		g.callees[sourceID] = append(g.callees[sourceID], ref)

		targetID, err := resolveTargetSymbolID(ctx, st, ref)
		if err != nil {
			return nil, err
		}
		if targetID != 0 {
			g.callers[targetID] = append(g.callers[targetID], ref)
		}
	}

	return g, nil
}

func resolveTargetSymbolID(ctx context.Context, st *store.Store, ref model.SymbolReference) (int64, error) {
	if ref.TargetFileID == 0 {
		return 0, nil
	}
	cursor := st.QuerySymbols(store.SymbolFilter{FileID: ref.TargetFileID, Name: ref.TargetSymbol})
	page, err := cursor.Next(ctx)
	if err != nil || len(page) == 0 {
		return 0, err
	}
	return page[0].ID, nil
}

// Callers returns every resolved call edge targeting symbolID.
func (g *CallGraph) Callers(symbolID int64) []model.SymbolReference {
	return g.callers[symbolID]
}

// Callees returns every resolved call edge originating from symbolID.
func (g *CallGraph) Callees(symbolID int64) []model.SymbolReference {
	return g.callees[symbolID]
}
