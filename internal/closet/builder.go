// Package closet builds per-user vector indexes over wardrobe items.
package closet

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mavazi/kabati/internal/storage"
	"github.com/mavazi/kabati/internal/vector"
)

// Builder produces a ready-to-query vector index for a user's wardrobe.
//
// The index is rebuilt from storage on every call, so a search always sees the
// latest committed wardrobe state. At wardrobe scale (tens to low hundreds of
// items) the rebuild costs less than keeping an invalidation protocol correct.
type Builder struct {
	storage    storage.Storage
	dimensions int
	maxItems   int
	logger     *zap.Logger // optional; when set, logs skipped items
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithLogger sets a logger for debug output (items skipped for missing embeddings, etc.).
func WithLogger(l *zap.Logger) BuilderOption {
	return func(b *Builder) { b.logger = l }
}

// NewBuilder creates a builder reading at most maxItems items per user.
// maxItems caps memory use for pathological wardrobes; items beyond the cap
// are excluded from search.
func NewBuilder(store storage.Storage, dimensions, maxItems int, opts ...BuilderOption) *Builder {
	b := &Builder{
		storage:    store,
		dimensions: dimensions,
		maxItems:   maxItems,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build reads the user's items, filters out those without usable embeddings,
// and constructs a fresh index. The returned ID slice is parallel to the
// index's insertion order. A user with no usable items gets (nil, nil, nil):
// an empty wardrobe is a normal state, not an error.
func (b *Builder) Build(ctx context.Context, userID string) (*vector.Index, []string, error) {
	items, err := b.storage.ListItemsByUser(ctx, userID, b.maxItems)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list items for user %s: %w", userID, err)
	}

	ids := make([]string, 0, len(items))
	vectors := make([][]float32, 0, len(items))
	for _, it := range items {
		if len(it.Embedding) == 0 {
			if b.logger != nil {
				b.logger.Debug("skipping item without embedding", zap.String("item_id", it.ID))
			}
			continue
		}
		if len(it.Embedding) != b.dimensions {
			// Item embedded under a different model version. Skip rather than
			// poison the whole index; the query-side mismatch check still
			// guards against comparing across models.
			if b.logger != nil {
				b.logger.Warn("skipping item with wrong embedding dimension",
					zap.String("item_id", it.ID),
					zap.Int("got", len(it.Embedding)),
					zap.Int("want", b.dimensions))
			}
			continue
		}
		ids = append(ids, it.ID)
		vectors = append(vectors, it.Embedding)
	}

	if len(ids) == 0 {
		return nil, nil, nil
	}

	idx, err := vector.Build(b.dimensions, ids, vectors)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build index for user %s: %w", userID, err)
	}
	return idx, ids, nil
}
