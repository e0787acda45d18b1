// Package keyword provides metadata text search over wardrobe items.
package keyword

import (
	"context"

	"github.com/mavazi/kabati/internal/models"
)

// MetadataIndex defines keyword search operations over item metadata.
// Searches are always scoped to a single user's wardrobe.
type MetadataIndex interface {
	Index(ctx context.Context, item *models.WardrobeItem) error
	Search(ctx context.Context, userID, query string, limit int) ([]*MetadataResult, error)
	Delete(ctx context.Context, itemID string) error
	// DocCount returns the total number of indexed items.
	DocCount() (uint64, error)
	Close() error
}

// MetadataResult is a single metadata search hit.
type MetadataResult struct {
	ItemID string
	Score  float64
}
