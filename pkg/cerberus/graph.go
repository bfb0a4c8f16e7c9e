package cerberus

import (
	"context"
	"fmt"

	"github.com/cerberus-code/cerberus/internal/resolve"
	"github.com/cerberus-code/cerberus/internal/store"
)

// GraphDirection selects which edges CallGraph follows out of each node.
type GraphDirection string

const (
	DirectionCallers GraphDirection = "callers" // who calls this symbol
	DirectionCallees GraphDirection = "callees" // what this symbol calls
	DirectionBoth    GraphDirection = "both"
)

// GraphNode is one symbol reached during a call-graph traversal.
type GraphNode struct {
	Symbol string
	Kind   string
	File   string
	Line   int
	Depth  int
}

// GraphEdge is one resolved call edge between two traversed nodes.
type GraphEdge struct {
	From       string // caller symbol
	To         string // callee symbol
	Confidence float64
}

// Graph is the result of a bounded-depth call-graph traversal rooted at
// one or more symbols sharing a name.
type Graph struct {
	Roots []string
	Nodes []GraphNode
	Edges []GraphEdge
}

// CallGraph walks the resolved call graph outward from every symbol named
// name, up to maxDepth hops, following direction. maxDepth <= 0 means 1.
func (h *IndexHandle) CallGraph(ctx context.Context, name string, direction GraphDirection, maxDepth int) (*Graph, error) {
	if maxDepth <= 0 {
		maxDepth = 1
	}

	cg, err := resolve.BuildCallGraph(ctx, h.store)
	if err != nil {
		return nil, fmt.Errorf("cerberus: failed to build call graph: %w", err)
	}

	cursor := h.store.QuerySymbols(store.SymbolFilter{Name: name})
	var roots []store.StoredSymbol
	for {
		page, err := cursor.Next(ctx)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		roots = append(roots, page...)
	}
	if len(roots) == 0 {
		return nil, fmt.Errorf("cerberus: symbol %q not found in index", name)
	}

	type queued struct {
		id    int64
		depth int
	}

	visited := make(map[int64]GraphNode)
	edgeSeen := make(map[string]bool)
	var edges []GraphEdge
	var queue []queued

	for _, r := range roots {
		if _, ok := visited[r.ID]; ok {
			continue
		}
		visited[r.ID] = GraphNode{Symbol: r.Name, Kind: r.Kind, Depth: 0}
		queue = append(queue, queued{id: r.ID, depth: 0})
	}
	// backfill file/line for roots
	for id, node := range visited {
		sym, path, _, err := h.store.GetSymbolByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if sym != nil {
			node.File = path
			node.Line = sym.StartLine
			visited[id] = node
		}
	}

	rootNames := make([]string, 0, len(roots))
	for _, r := range roots {
		rootNames = append(rootNames, r.Name)
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= maxDepth {
			continue
		}

		if direction == DirectionCallees || direction == DirectionBoth {
			for _, ref := range cg.Callees(cur.id) {
				targetID, targetNode, err := h.resolveSymbolRef(ctx, ref.TargetFileID, ref.TargetSymbol, "")
				if err != nil {
					return nil, err
				}
				if targetID == 0 {
					continue
				}
				fromName := visited[cur.id].Symbol
				key := fmt.Sprintf("%s->%s", fromName, ref.TargetSymbol)
				if !edgeSeen[key] {
					edgeSeen[key] = true
					edges = append(edges, GraphEdge{From: fromName, To: ref.TargetSymbol, Confidence: ref.Confidence})
				}
				if _, ok := visited[targetID]; !ok {
					targetNode.Depth = cur.depth + 1
					visited[targetID] = targetNode
					queue = append(queue, queued{id: targetID, depth: cur.depth + 1})
				}
			}
		}

		if direction == DirectionCallers || direction == DirectionBoth {
			for _, ref := range cg.Callers(cur.id) {
				sourceID, sourceNode, err := h.resolveSymbolAtLine(ctx, ref.SourceFileID, ref.SourceLine)
				if err != nil {
					return nil, err
				}
				if sourceID == 0 {
					continue
				}
				toName := visited[cur.id].Symbol
				key := fmt.Sprintf("%s->%s", sourceNode.Symbol, toName)
				if !edgeSeen[key] {
					edgeSeen[key] = true
					edges = append(edges, GraphEdge{From: sourceNode.Symbol, To: toName, Confidence: ref.Confidence})
				}
				if _, ok := visited[sourceID]; !ok {
					sourceNode.Depth = cur.depth + 1
					visited[sourceID] = sourceNode
					queue = append(queue, queued{id: sourceID, depth: cur.depth + 1})
				}
			}
		}
	}

	nodes := make([]GraphNode, 0, len(visited))
	for _, n := range visited {
		nodes = append(nodes, n)
	}

	return &Graph{Roots: rootNames, Nodes: nodes, Edges: edges}, nil
}

// resolveSymbolRef resolves a callee edge's (fileID, name) pair to a
// symbol id and node, mirroring the call graph builder's own resolution.
func (h *IndexHandle) resolveSymbolRef(ctx context.Context, fileID int64, name, kind string) (int64, GraphNode, error) {
	if fileID == 0 {
		return 0, GraphNode{}, nil
	}
	cursor := h.store.QuerySymbols(store.SymbolFilter{FileID: fileID, Name: name})
	page, err := cursor.Next(ctx)
	if err != nil || len(page) == 0 {
		return 0, GraphNode{}, err
	}
	sym := page[0]
	_, path, _, err := h.store.GetSymbolByID(ctx, sym.ID)
	if err != nil {
		return 0, GraphNode{}, err
	}
	return sym.ID, GraphNode{Symbol: sym.Name, Kind: sym.Kind, File: path, Line: sym.StartLine}, nil
}

// resolveSymbolAtLine resolves a caller edge's (fileID, line) pair to the
// enclosing symbol, mirroring how call sites are attributed during resolution.
func (h *IndexHandle) resolveSymbolAtLine(ctx context.Context, fileID int64, line int) (int64, GraphNode, error) {
	sym, err := h.store.FindSymbolByLine(ctx, fileID, line)
	if err != nil || sym == nil {
		return 0, GraphNode{}, err
	}
	_, path, _, err := h.store.GetSymbolByID(ctx, sym.ID)
	if err != nil {
		return 0, GraphNode{}, err
	}
	return sym.ID, GraphNode{Symbol: sym.Name, Kind: sym.Kind, File: path, Line: sym.StartLine}, nil
}
