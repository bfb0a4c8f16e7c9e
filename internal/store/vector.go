package store

import (
	"bufio"
	"context"
	"encoding/gob"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/coder/hnsw"

	"github.com/cerberus-code/cerberus/internal/cerrors"
)

// VectorStore is the Vector Store (spec §4.E): an HNSW approximate
// nearest-neighbor index over embedding vectors, keyed by the same
// string ids the Index Store hands out (vector_id column).
//
// Deletion is lazy: coder/hnsw has no safe node-removal primitive, so
// a Delete only drops the id<->key mapping and leaves the graph node
// as an orphan. Orphans accumulate search cost without affecting
// correctness (orphaned nodes never surface in results because their
// key has no mapping back to an id), but left unchecked they bloat the
// graph indefinitely. Once the orphan ratio crosses
// config.OrphanRebuildRatio, the next Delete triggers a synchronous
// rebuild from the surviving vectors.
type VectorStore struct {
	mu     sync.RWMutex
	graph  *hnsw.Graph[uint64]
	config VectorStoreConfig

	idMap   map[string]uint64
	keyMap  map[uint64]string
	vecMap  map[uint64][]float32 // retained so a rebuild can replay surviving vectors
	nextKey uint64

	closed bool
}

type vectorStoreMetadata struct {
	IDMap   map[string]uint64
	VecMap  map[uint64][]float32
	NextKey uint64
	Config  VectorStoreConfig
}

// NewVectorStore creates an empty HNSW-backed vector store.
func NewVectorStore(cfg VectorStoreConfig) (*VectorStore, error) {
	if cfg.Metric == "" {
		cfg.Metric = "cos"
	}
	if cfg.M == 0 {
		cfg.M = 16
	}
	if cfg.EfSearch == 0 {
		cfg.EfSearch = 20
	}
	if cfg.OrphanRebuildRatio <= 0 {
		cfg.OrphanRebuildRatio = 0.3
	}

	graph := newGraph(cfg)

	return &VectorStore{
		graph:   graph,
		config:  cfg,
		idMap:   make(map[string]uint64),
		keyMap:  make(map[uint64]string),
		vecMap:  make(map[uint64][]float32),
		nextKey: 0,
	}, nil
}

func newGraph(cfg VectorStoreConfig) *hnsw.Graph[uint64] {
	graph := hnsw.NewGraph[uint64]()
	switch cfg.Metric {
	case "l2":
		graph.Distance = hnsw.EuclideanDistance
	default:
		graph.Distance = hnsw.CosineDistance
	}
	graph.M = cfg.M
	graph.EfSearch = cfg.EfSearch
	graph.Ml = 0.25
	return graph
}

// Add inserts or updates vectors by id.
func (s *VectorStore) Add(ctx context.Context, ids []string, vectors [][]float32) error {
	if len(ids) == 0 {
		return nil
	}
	if len(ids) != len(vectors) {
		return cerrors.InternalError("ids and vectors length mismatch", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return cerrors.InternalError("vector store is closed", nil)
	}

	for _, v := range vectors {
		if len(v) != s.config.Dimensions {
			return ErrDimensionMismatch{Expected: s.config.Dimensions, Got: len(v)}
		}
	}

	for i, id := range ids {
		if existingKey, exists := s.idMap[id]; exists {
			delete(s.keyMap, existingKey)
			delete(s.vecMap, existingKey)
			delete(s.idMap, id)
		}

		key := s.nextKey
		s.nextKey++

		vec := make([]float32, len(vectors[i]))
		copy(vec, vectors[i])
		if s.config.Metric == "cos" {
			normalizeVectorInPlace(vec)
		}

		s.graph.Add(hnsw.MakeNode(key, vec))
		s.idMap[id] = key
		s.keyMap[key] = id
		s.vecMap[key] = vec
	}

	return nil
}

// Search returns up to k nearest neighbors of query.
func (s *VectorStore) Search(ctx context.Context, query []float32, k int) ([]VectorResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, cerrors.InternalError("vector store is closed", nil)
	}
	if len(query) != s.config.Dimensions {
		return nil, ErrDimensionMismatch{Expected: s.config.Dimensions, Got: len(query)}
	}
	if s.graph.Len() == 0 {
		return []VectorResult{}, nil
	}

	q := make([]float32, len(query))
	copy(q, query)
	if s.config.Metric == "cos" {
		normalizeVectorInPlace(q)
	}

	nodes := s.graph.Search(q, k)
	results := make([]VectorResult, 0, len(nodes))
	for _, node := range nodes {
		id, ok := s.keyMap[node.Key]
		if !ok {
			continue // orphaned node from a lazy delete
		}
		distance := s.graph.Distance(q, node.Value)
		results = append(results, VectorResult{
			ID:       id,
			Distance: distance,
			Score:    distanceToScore(distance, s.config.Metric),
		})
	}
	return results, nil
}

// Delete removes vectors by id, lazily. If the resulting orphan ratio
// exceeds config.OrphanRebuildRatio, the graph is rebuilt synchronously
// from the surviving vectors before Delete returns.
func (s *VectorStore) Delete(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return cerrors.InternalError("vector store is closed", nil)
	}

	for _, id := range ids {
		if key, exists := s.idMap[id]; exists {
			delete(s.keyMap, key)
			delete(s.idMap, id)
			delete(s.vecMap, key)
		}
	}

	return s.maybeRebuildLocked()
}

// maybeRebuildLocked rebuilds the HNSW graph from vecMap/idMap when the
// orphan ratio crosses config.OrphanRebuildRatio. Caller must hold s.mu.
func (s *VectorStore) maybeRebuildLocked() error {
	graphNodes := s.graph.Len()
	if graphNodes == 0 {
		return nil
	}
	validIDs := len(s.idMap)
	orphans := graphNodes - validIDs
	if orphans <= 0 {
		return nil
	}
	if float64(orphans)/float64(graphNodes) <= s.config.OrphanRebuildRatio {
		return nil
	}

	newGraphInstance := newGraph(s.config)
	newIDMap := make(map[string]uint64, len(s.idMap))
	newKeyMap := make(map[uint64]string, len(s.idMap))
	newVecMap := make(map[uint64][]float32, len(s.idMap))

	var nextKey uint64
	for id, oldKey := range s.idMap {
		vec, ok := s.vecMap[oldKey]
		if !ok {
			continue
		}
		newKey := nextKey
		nextKey++
		newGraphInstance.Add(hnsw.MakeNode(newKey, vec))
		newIDMap[id] = newKey
		newKeyMap[newKey] = id
		newVecMap[newKey] = vec
	}

	s.graph = newGraphInstance
	s.idMap = newIDMap
	s.keyMap = newKeyMap
	s.vecMap = newVecMap
	s.nextKey = nextKey
	return nil
}

// AllIDs returns all live vector ids.
func (s *VectorStore) AllIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil
	}
	ids := make([]string, 0, len(s.idMap))
	for id := range s.idMap {
		ids = append(ids, id)
	}
	return ids
}

// Contains reports whether id currently has a live mapping.
func (s *VectorStore) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false
	}
	_, ok := s.idMap[id]
	return ok
}

// Count returns the number of live vectors.
func (s *VectorStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0
	}
	return len(s.idMap)
}

// VectorStoreStats reports live/orphaned node counts, useful for
// deciding whether to force a rebuild out of band.
type VectorStoreStats struct {
	ValidIDs   int
	GraphNodes int
	Orphans    int
}

func (s *VectorStore) Stats() VectorStoreStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return VectorStoreStats{}
	}
	validIDs := len(s.idMap)
	graphNodes := s.graph.Len()
	return VectorStoreStats{ValidIDs: validIDs, GraphNodes: graphNodes, Orphans: graphNodes - validIDs}
}

// Rebuild forces a graph rebuild regardless of the current orphan ratio.
func (s *VectorStore) Rebuild() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return cerrors.InternalError("vector store is closed", nil)
	}
	saved := s.config.OrphanRebuildRatio
	s.config.OrphanRebuildRatio = 0
	defer func() { s.config.OrphanRebuildRatio = saved }()
	// force rebuild by pretending every node is an orphan candidate
	if s.graph.Len() > len(s.idMap) || s.graph.Len() == len(s.idMap) {
		return s.forceRebuildLocked()
	}
	return nil
}

func (s *VectorStore) forceRebuildLocked() error {
	newGraphInstance := newGraph(s.config)
	newIDMap := make(map[string]uint64, len(s.idMap))
	newKeyMap := make(map[uint64]string, len(s.idMap))
	newVecMap := make(map[uint64][]float32, len(s.idMap))

	var nextKey uint64
	for id, oldKey := range s.idMap {
		vec, ok := s.vecMap[oldKey]
		if !ok {
			continue
		}
		newKey := nextKey
		nextKey++
		newGraphInstance.Add(hnsw.MakeNode(newKey, vec))
		newIDMap[id] = newKey
		newKeyMap[newKey] = id
		newVecMap[newKey] = vec
	}

	s.graph = newGraphInstance
	s.idMap = newIDMap
	s.keyMap = newKeyMap
	s.vecMap = newVecMap
	s.nextKey = nextKey
	return nil
}

// Save persists the index atomically (temp file + rename) plus a
// gob-encoded metadata sidecar with the id mappings and config.
func (s *VectorStore) Save(path string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return cerrors.InternalError("vector store is closed", nil)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return cerrors.StoreWriteError("failed to create vector store directory", err)
	}

	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return cerrors.StoreWriteError("failed to create vector index file", err)
	}
	if err := s.graph.Export(f); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return cerrors.StoreWriteError("failed to export vector graph", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return cerrors.StoreWriteError("failed to close vector index file", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return cerrors.StoreWriteError("failed to rename vector index file", err)
	}

	if err := s.saveMetadata(path + ".meta"); err != nil {
		return cerrors.StoreWriteError("failed to save vector store metadata", err)
	}
	return nil
}

func (s *VectorStore) saveMetadata(path string) error {
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return err
	}

	meta := vectorStoreMetadata{IDMap: s.idMap, VecMap: s.vecMap, NextKey: s.nextKey, Config: s.config}
	if err := gob.NewEncoder(f).Encode(meta); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}

// Load restores the graph and id mappings from disk. Vector payloads
// (used for rebuilds) come from the gob metadata sidecar.
func (s *VectorStore) Load(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return cerrors.InternalError("vector store is closed", nil)
	}

	if err := s.loadMetadata(path + ".meta"); err != nil {
		return cerrors.IndexCorruption("failed to load vector store metadata", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return cerrors.IndexCorruption("failed to open vector index file", err)
	}
	defer f.Close()

	reader := bufio.NewReader(f)
	if err := s.graph.Import(reader); err != nil {
		return cerrors.IndexCorruption("failed to import vector graph", err)
	}

	return nil
}

func (s *VectorStore) loadMetadata(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			slog.Warn("failed to close vector metadata file", slog.String("error", cerr.Error()))
		}
	}()

	var meta vectorStoreMetadata
	if err := gob.NewDecoder(f).Decode(&meta); err != nil {
		return err
	}

	s.idMap = meta.IDMap
	s.vecMap = meta.VecMap
	s.keyMap = make(map[uint64]string)
	s.nextKey = meta.NextKey
	s.config = meta.Config
	for id, key := range s.idMap {
		s.keyMap[key] = id
	}
	return nil
}

// Close releases the store. The graph is dropped; a closed store
// cannot be reused.
func (s *VectorStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.graph = nil
	return nil
}

// ReadVectorStoreDimensions reads the configured dimension from an
// existing vector store's metadata sidecar without loading the graph,
// returning 0 if no metadata exists yet (fresh start).
func ReadVectorStoreDimensions(vectorPath string) (int, error) {
	f, err := os.Open(vectorPath + ".meta")
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	defer f.Close()

	var meta vectorStoreMetadata
	if err := gob.NewDecoder(f).Decode(&meta); err != nil {
		return 0, err
	}
	return meta.Config.Dimensions, nil
}

func normalizeVectorInPlace(v []float32) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return
	}
	invMagnitude := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= invMagnitude
	}
}

func distanceToScore(distance float32, metric string) float32 {
	switch metric {
	case "l2":
		return 1.0 / (1.0 + distance)
	default:
		return 1.0 - distance/2.0
	}
}
