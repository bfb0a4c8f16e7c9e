// Package resolve implements the Resolution Engine: it turns the
// unresolved, name-based facts the parser emits (import links, calls,
// method calls, type annotations) into resolved SymbolReference edges,
// each tagged with a confidence score and the method used to derive it.
package resolve

import (
	"context"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/cerberus-code/cerberus/internal/cerrors"
	"github.com/cerberus-code/cerberus/internal/store"
	"github.com/cerberus-code/cerberus/pkg/cerberus/model"
)

const (
	confidenceExactNamespace = 1.0
	confidenceTypeAnnotation = 0.9
	confidenceConstructor    = 0.7
	confidenceSpeculative    = 0.4

	symbolCacheSize = 4096
)

// Resolver resolves unresolved facts against the symbols already
// written to the Index Store. It is not safe for concurrent use by
// multiple goroutines against the same cache without external locking,
// matching the teacher's single-writer-at-a-time posture for the store.
type Resolver struct {
	store *store.Store

	// symbolsByName caches name -> candidate symbol ids within one
	// resolution pass, since the same callee/import name is looked up
	// repeatedly across a codebase.
	symbolsByName *lru.Cache[string, []store.StoredSymbol]
}

// New builds a Resolver over st.
func New(st *store.Store) (*Resolver, error) {
	cache, err := lru.New[string, []store.StoredSymbol](symbolCacheSize)
	if err != nil {
		return nil, cerrors.InternalError("failed to allocate resolver cache", err)
	}
	return &Resolver{store: st, symbolsByName: cache}, nil
}

// ResolveFile resolves every unresolved import link, call, and method
// call recorded against fileID, returning the SymbolReference edges to
// persist. It does not write them; the caller decides the transaction
// boundary (so a build can batch many files' resolutions in one write).
func (r *Resolver) ResolveFile(ctx context.Context, fileID int64) ([]model.SymbolReference, error) {
	var refs []model.SymbolReference

	importLinks, err := r.store.QueryImportLinks(ctx, fileID)
	if err != nil {
		return nil, err
	}
	for _, link := range importLinks {
		refs = append(refs, r.resolveImportLink(ctx, fileID, link)...)
	}

	calls, err := r.store.QueryCallsByFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	for _, call := range calls {
		if ref := r.ResolveCall(ctx, fileID, call); ref != nil {
			refs = append(refs, *ref)
		}
	}

	typeInfos, err := r.store.QueryTypeInfosByFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	receiverTypes := make(map[string]string, len(typeInfos))
	for _, ti := range typeInfos {
		if ti.TypeAnnot != "" {
			receiverTypes[ti.Name] = ti.TypeAnnot
		} else if ti.Inferred != "" {
			receiverTypes[ti.Name] = ti.Inferred
		}
	}

	methodCalls, err := r.store.QueryMethodCallsByFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	for _, call := range methodCalls {
		if ref := r.ResolveMethodCall(ctx, fileID, call, receiverTypes[call.Receiver]); ref != nil {
			refs = append(refs, *ref)
		}
	}

	return refs, nil
}

// resolveImportLink attempts to match an imported symbol name against
// known symbols, preferring an exact module+name namespace match.
func (r *Resolver) resolveImportLink(ctx context.Context, fileID int64, link model.ImportLink) []model.SymbolReference {
	var refs []model.SymbolReference
	for _, name := range link.ImportedSymbols {
		candidates := r.lookupByName(ctx, name)
		target, method, confidence := r.pickCandidate(candidates, link.Module)
		if target == nil {
			continue
		}
		refs = append(refs, model.SymbolReference{
			SourceFileID:     fileID,
			SourceLine:       link.Line,
			SourceSymbol:     name,
			TargetFileID:     target.FileID,
			TargetSymbol:     target.Name,
			TargetKind:       model.SymbolKind(target.Kind),
			Kind:             model.RefImports,
			Confidence:       confidence,
			ResolutionMethod: method,
		})
	}
	return refs
}

// ResolveCall resolves a single name-based call site against known
// symbols. Ambiguous matches (more than one candidate with the same
// name) are kept but marked speculative with a low confidence score,
// per spec's ambiguity-tolerant resolution model.
func (r *Resolver) ResolveCall(ctx context.Context, fileID int64, call model.CallReference) *model.SymbolReference {
	candidates := r.lookupByName(ctx, call.CalleeName)
	target, method, confidence := r.pickCandidate(candidates, "")
	if target == nil {
		return nil
	}
	return &model.SymbolReference{
		SourceFileID:     fileID,
		SourceLine:       call.Line,
		SourceSymbol:     call.CalleeName,
		TargetFileID:     target.FileID,
		TargetSymbol:     target.Name,
		TargetKind:       model.SymbolKind(target.Kind),
		Kind:             model.RefCalls,
		Confidence:       confidence,
		ResolutionMethod: method,
	}
}

// ResolveMethodCall resolves a receiver.method() call using the
// receiver's inferred or annotated type when available (high
// confidence), falling back to a speculative name-only match across
// every symbol sharing the method name (low confidence, common in
// duck-typed languages where many classes define the same method).
func (r *Resolver) ResolveMethodCall(ctx context.Context, fileID int64, call model.MethodCall, receiverType string) *model.SymbolReference {
	if receiverType != "" {
		for _, candidate := range r.lookupByName(ctx, call.Method) {
			owner, err := r.store.FindOwningType(ctx, candidate.FileID, candidate.ID, candidate.StartLine, candidate.EndLine)
			if err != nil || owner == nil || owner.Name != receiverType {
				continue
			}
			return &model.SymbolReference{
				SourceFileID:     fileID,
				SourceLine:       call.Line,
				SourceSymbol:     call.Receiver + "." + call.Method,
				TargetFileID:     candidate.FileID,
				TargetSymbol:     candidate.Name,
				TargetKind:       model.SymbolKind(candidate.Kind),
				Kind:             model.RefCalls,
				Confidence:       confidenceTypeAnnotation,
				ResolutionMethod: model.ResolutionTypeAnnotation,
			}
		}
	}

	candidates := r.lookupByName(ctx, call.Method)
	target, _, _ := r.pickCandidate(candidates, "")
	if target == nil {
		return nil
	}
	return &model.SymbolReference{
		SourceFileID:     fileID,
		SourceLine:       call.Line,
		SourceSymbol:     call.Receiver + "." + call.Method,
		TargetFileID:     target.FileID,
		TargetSymbol:     target.Name,
		TargetKind:       model.SymbolKind(target.Kind),
		Kind:             model.RefCalls,
		Confidence:       confidenceSpeculative,
		ResolutionMethod: model.ResolutionSpeculative,
	}
}

func (r *Resolver) lookupByName(ctx context.Context, name string) []store.StoredSymbol {
	if name == "" {
		return nil
	}
	if cached, ok := r.symbolsByName.Get(name); ok {
		return cached
	}

	cursor := r.store.QuerySymbols(store.SymbolFilter{Name: name})
	var all []store.StoredSymbol
	for {
		page, err := cursor.Next(ctx)
		if err != nil || len(page) == 0 {
			break
		}
		all = append(all, page...)
	}
	r.symbolsByName.Add(name, all)
	return all
}

// pickCandidate chooses the best match from a candidate set. An exact,
// unambiguous match gets full confidence; more than one candidate with
// no further disambiguating signal degrades to speculative confidence
// (spec: ambiguity is tolerated, not rejected — ERR_302 is reserved for
// queries that demand a single unambiguous answer, not for indexing).
func (r *Resolver) pickCandidate(candidates []store.StoredSymbol, namespaceHint string) (*store.StoredSymbol, model.ResolutionMethod, float64) {
	if len(candidates) == 0 {
		return nil, "", 0
	}
	if len(candidates) == 1 {
		return &candidates[0], model.ResolutionExactNamespace, confidenceExactNamespace
	}
	if namespaceHint != "" {
		for i := range candidates {
			if strings.Contains(candidates[i].Name, namespaceHint) {
				return &candidates[i], model.ResolutionExactNamespace, confidenceExactNamespace
			}
		}
	}
	return &candidates[0], model.ResolutionSpeculative, confidenceSpeculative
}
