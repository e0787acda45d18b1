// Package vector provides a flat inner-product index over unit-normalized vectors.
package vector

import (
	"fmt"
	"sort"
)

// ErrDimensionMismatch is returned when a query vector's length does not match
// the index dimension. This usually means the embedding model changed without
// the stored wardrobe being re-embedded.
var ErrDimensionMismatch = fmt.Errorf("vector dimension mismatch")

// Hit is a single index search result. Position is the insertion position of
// the matched vector, for mapping back to the parallel ID sequence.
type Hit struct {
	Position int
	ID       string
	Score    float64
}

// Index is an immutable flat vector index built once per search request.
// All stored vectors are unit-normalized at build time, so inner product
// equals cosine similarity. Search is an exhaustive scan; wardrobes are tens
// to low hundreds of items, so nothing fancier is needed.
type Index struct {
	dimensions int
	ids        []string
	vectors    [][]float32
}

// Build constructs an index over the given vectors and parallel item IDs.
// Vectors are copied and normalized; the caller keeps ownership of its slices.
// An empty input yields a valid empty index.
func Build(dimensions int, ids []string, vectors [][]float32) (*Index, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	if len(ids) != len(vectors) {
		return nil, fmt.Errorf("ids and vectors length mismatch: %d vs %d", len(ids), len(vectors))
	}
	idx := &Index{
		dimensions: dimensions,
		ids:        make([]string, len(ids)),
		vectors:    make([][]float32, len(vectors)),
	}
	copy(idx.ids, ids)
	for i, v := range vectors {
		if len(v) != dimensions {
			return nil, fmt.Errorf("vector %d: %w: got %d, expected %d", i, ErrDimensionMismatch, len(v), dimensions)
		}
		vec := make([]float32, dimensions)
		copy(vec, v)
		NormalizeL2(vec)
		idx.vectors[i] = vec
	}
	return idx, nil
}

// Dimensions returns the vector dimension of the index.
func (idx *Index) Dimensions() int {
	return idx.dimensions
}

// Size returns the number of vectors in the index.
func (idx *Index) Size() int {
	return len(idx.ids)
}

// Search returns the top-k entries by inner product against query, ordered by
// descending score with ties broken by ascending insertion position. The query
// is normalized internally. Returns min(k, Size()) hits.
func (idx *Index) Search(query []float32, k int) ([]Hit, error) {
	if len(query) != idx.dimensions {
		return nil, fmt.Errorf("%w: query has %d, index has %d", ErrDimensionMismatch, len(query), idx.dimensions)
	}
	if k <= 0 || len(idx.ids) == 0 {
		return nil, nil
	}
	q := make([]float32, idx.dimensions)
	copy(q, query)
	NormalizeL2(q)

	hits := make([]Hit, len(idx.ids))
	for i, vec := range idx.vectors {
		hits[i] = Hit{Position: i, ID: idx.ids[i], Score: InnerProduct(q, vec)}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Position < hits[j].Position
	})
	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}
