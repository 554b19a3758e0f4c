package semidx

import (
	"fmt"
	"math"
	"sync"

	"github.com/coder/hnsw"
)

// Accelerator is an in-memory approximate-nearest-neighbor index over a
// semantic index's embeddings. It is a query-time convenience, not the
// persistence layer -- SQLite (store.go) is authoritative, and an
// Accelerator is always rebuilt from a Store's rows on open rather than
// loaded from its own file.
type Accelerator struct {
	mu    sync.RWMutex
	graph *hnsw.Graph[uint64]
	dims  int

	idMap   map[string]uint64
	keyMap  map[uint64]string
	nextKey uint64
}

// NewAccelerator creates an empty accelerator for vectors of the given
// dimensionality.
func NewAccelerator(dims int) *Accelerator {
	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = 16
	graph.EfSearch = 20
	graph.Ml = 0.25

	return &Accelerator{
		graph:  graph,
		dims:   dims,
		idMap:  make(map[string]uint64),
		keyMap: make(map[uint64]string),
	}
}

// BuildAccelerator rebuilds an in-memory accelerator from a Store's
// current embeddings -- the supported way to get an Accelerator, since it
// is never persisted on its own.
func BuildAccelerator(store *Store, dims int) (*Accelerator, error) {
	embeddings, err := store.GetAllEmbeddings()
	if err != nil {
		return nil, fmt.Errorf("load embeddings for accelerator: %w", err)
	}

	acc := NewAccelerator(dims)
	ids := make([]string, 0, len(embeddings))
	vecs := make([][]float32, 0, len(embeddings))
	for chunkID, vec := range embeddings {
		ids = append(ids, chunkID)
		vecs = append(vecs, vec)
	}
	if err := acc.Add(ids, vecs); err != nil {
		return nil, fmt.Errorf("populate accelerator: %w", err)
	}
	return acc, nil
}

// AcceleratorResult is one nearest-neighbor hit.
type AcceleratorResult struct {
	ChunkID string
	Score   float32
}

// Add inserts or updates vectors by chunk ID. Re-adding an existing ID
// lazily orphans its old graph node rather than deleting it -- coder/hnsw
// has a known bug deleting a graph's last remaining node.
func (a *Accelerator) Add(ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch: %d vs %d", len(ids), len(vectors))
	}
	if len(ids) == 0 {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for _, v := range vectors {
		if len(v) != a.dims {
			return fmt.Errorf("vector dimension %d does not match accelerator dimension %d", len(v), a.dims)
		}
	}

	for i, id := range ids {
		if existingKey, exists := a.idMap[id]; exists {
			delete(a.keyMap, existingKey)
			delete(a.idMap, id)
		}

		key := a.nextKey
		a.nextKey++

		vec := make([]float32, len(vectors[i]))
		copy(vec, vectors[i])
		normalizeInPlace(vec)

		a.graph.Add(hnsw.MakeNode(key, vec))
		a.idMap[id] = key
		a.keyMap[key] = id
	}
	return nil
}

// Delete removes chunk IDs from the accelerator via lazy deletion.
func (a *Accelerator) Delete(ids []string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, id := range ids {
		if key, exists := a.idMap[id]; exists {
			delete(a.keyMap, key)
			delete(a.idMap, id)
		}
	}
}

// Search returns the k nearest chunk IDs to query, by cosine similarity.
func (a *Accelerator) Search(query []float32, k int) ([]AcceleratorResult, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if len(query) != a.dims {
		return nil, fmt.Errorf("query dimension %d does not match accelerator dimension %d", len(query), a.dims)
	}
	if a.graph.Len() == 0 {
		return nil, nil
	}

	q := make([]float32, len(query))
	copy(q, query)
	normalizeInPlace(q)

	nodes := a.graph.Search(q, k)
	results := make([]AcceleratorResult, 0, len(nodes))
	for _, node := range nodes {
		chunkID, ok := a.keyMap[node.Key]
		if !ok {
			continue // lazily-deleted node, still resident in the graph
		}
		distance := a.graph.Distance(q, node.Value)
		results = append(results, AcceleratorResult{ChunkID: chunkID, Score: 1.0 - distance/2.0})
	}
	return results, nil
}

// Count returns the number of live (non-deleted) vectors.
func (a *Accelerator) Count() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.idMap)
}

func normalizeInPlace(v []float32) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
}
