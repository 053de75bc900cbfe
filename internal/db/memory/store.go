package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sync"
	"time"

	"github.com/coder/hnsw"

	"github.com/kailas-cloud/rfprag/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// Config tunes the HNSW graphs.
type Config struct {
	M        int
	EfSearch int
	// Overfetch multiplies k before post-filtering.
	Overfetch int
}

// DefaultConfig returns settings suited to small local corpora.
func DefaultConfig() Config {
	return Config{M: 16, EfSearch: 64, Overfetch: 4}
}

// Store is an in-process vector index backed by coder/hnsw. Each index name
// gets its own graph. Filters are applied after the graph search.
type Store struct {
	cfg Config

	mu      sync.RWMutex
	indexes map[string]*index
	closed  bool
}

type index struct {
	graph   *hnsw.Graph[uint64]
	dims    int
	nextKey uint64
	idMap   map[string]uint64
	keyMap  map[uint64]string
	fields  map[uint64]map[string]string
}

// NewStore creates an empty store.
func NewStore(cfg Config) *Store {
	def := DefaultConfig()
	if cfg.M <= 0 {
		cfg.M = def.M
	}
	if cfg.EfSearch <= 0 {
		cfg.EfSearch = def.EfSearch
	}
	if cfg.Overfetch <= 0 {
		cfg.Overfetch = def.Overfetch
	}
	return &Store{cfg: cfg, indexes: make(map[string]*index)}
}

func (s *Store) newIndex(dims int) *index {
	g := hnsw.NewGraph[uint64]()
	g.Distance = hnsw.CosineDistance
	g.M = s.cfg.M
	g.EfSearch = s.cfg.EfSearch
	g.Ml = 0.25
	return &index{
		graph:  g,
		dims:   dims,
		idMap:  make(map[string]uint64),
		keyMap: make(map[uint64]string),
		fields: make(map[uint64]map[string]string),
	}
}

// Upsert inserts or replaces one vector. Replaced nodes stay in the graph
// but lose their id mapping, so searches skip them.
func (s *Store) Upsert(indexName, id string, vector []float32, fields map[string]string) error {
	if indexName == "" || id == "" {
		return fmt.Errorf("%w: index name and id are required", db.ErrInvalidQuery)
	}
	if len(vector) == 0 {
		return fmt.Errorf("%w: vector is required", db.ErrInvalidQuery)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return db.ErrClosed
	}

	idx, ok := s.indexes[indexName]
	if !ok {
		idx = s.newIndex(len(vector))
		s.indexes[indexName] = idx
	}
	if len(vector) != idx.dims {
		return fmt.Errorf("%w: expected %d dimensions, got %d", db.ErrInvalidQuery, idx.dims, len(vector))
	}

	if old, exists := idx.idMap[id]; exists {
		delete(idx.keyMap, old)
		delete(idx.fields, old)
	}

	key := idx.nextKey
	idx.nextKey++

	vec := make([]float32, len(vector))
	copy(vec, vector)
	normalizeInPlace(vec)
	idx.graph.Add(hnsw.MakeNode(key, vec))

	copied := make(map[string]string, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	idx.idMap[id] = key
	idx.keyMap[key] = id
	idx.fields[key] = copied
	return nil
}

// Count returns the number of live vectors in an index.
func (s *Store) Count(indexName string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if idx, ok := s.indexes[indexName]; ok {
		return len(idx.idMap)
	}
	return 0
}

// SearchKNN searches the graph, drops entries that fail the filter and
// returns at most K hits. When filtering leaves fewer than K, the search is
// widened to the whole graph once.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, db.ErrClosed
	}

	idx, ok := s.indexes[q.IndexName]
	if !ok || idx.graph.Len() == 0 {
		return &db.SearchResult{}, nil
	}
	if len(q.Vector) != idx.dims {
		return nil, fmt.Errorf("%w: expected %d dimensions, got %d", db.ErrInvalidQuery, idx.dims, len(q.Vector))
	}

	query := make([]float32, len(q.Vector))
	copy(query, q.Vector)
	normalizeInPlace(query)

	fetch := min(q.K*s.cfg.Overfetch, idx.graph.Len())
	entries := s.collect(idx, query, fetch, q)
	if len(entries) < q.K && fetch < idx.graph.Len() {
		entries = s.collect(idx, query, idx.graph.Len(), q)
	}
	if len(entries) > q.K {
		entries = entries[:q.K]
	}

	return &db.SearchResult{Total: len(entries), Entries: entries}, nil
}

func (s *Store) collect(idx *index, query []float32, fetch int, q *db.KNNQuery) []db.SearchEntry {
	nodes := idx.graph.Search(query, fetch)

	entries := make([]db.SearchEntry, 0, min(len(nodes), q.K))
	for _, node := range nodes {
		id, live := idx.keyMap[node.Key]
		if !live {
			continue
		}
		fields := idx.fields[node.Key]
		if !q.Filters.Matches(fields) {
			continue
		}
		d := float64(idx.graph.Distance(query, node.Value))
		entries = append(entries, db.SearchEntry{
			Key:    id,
			Score:  math.Max(0, math.Min(1, 1-d)),
			Fields: db.ProjectFields(fields, q.ReturnFields),
		})
	}
	return entries
}

// Ping reports ErrClosed after Close.
func (s *Store) Ping(context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return &db.Error{Op: db.OpPing, Err: db.ErrClosed}
	}
	return nil
}

// WaitForReady returns immediately; the store has no startup phase.
func (s *Store) WaitForReady(ctx context.Context, _ time.Duration) error {
	return s.Ping(ctx)
}

// Close drops all graphs.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.indexes = nil
}

// SeedRecord is one entry of a JSON seed file.
type SeedRecord struct {
	ID       string         `json:"id"`
	Vector   []float32      `json:"vector"`
	Metadata map[string]any `json:"metadata"`
}

// LoadFile reads a JSON array of SeedRecord into indexName.
func (s *Store) LoadFile(indexName, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read seed file: %w", err)
	}

	var records []SeedRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return 0, fmt.Errorf("parse seed file: %w", err)
	}

	for i, r := range records {
		if err := s.Upsert(indexName, r.ID, r.Vector, db.FlattenFields(r.Metadata)); err != nil {
			return i, fmt.Errorf("seed record %d: %w", i, err)
		}
	}
	return len(records), nil
}

func normalizeInPlace(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
}
