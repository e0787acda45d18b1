// Package storage defines the persistence interface for wardrobe items.
package storage

import (
	"context"
	"errors"

	"github.com/mavazi/kabati/internal/models"
)

// ErrItemNotFound is returned when an item does not exist (or no longer exists).
var ErrItemNotFound = errors.New("item not found")

// Storage defines wardrobe item persistence operations. Implementations
// provide per-item atomicity; no multi-item transaction is ever required.
type Storage interface {
	CreateItem(ctx context.Context, item *models.WardrobeItem) error
	GetItem(ctx context.Context, id string) (*models.WardrobeItem, error)
	DeleteItem(ctx context.Context, id string) error

	// ListItemsByUser returns up to limit lightweight item summaries for the
	// user, including embeddings, ordered by creation time ascending so that
	// index insertion order is stable across rebuilds.
	ListItemsByUser(ctx context.Context, userID string, limit int) ([]*models.ItemSummary, error)

	// MarkWorn increments the item's wear count and stamps last_worn,
	// returning the updated item. The item must belong to userID.
	MarkWorn(ctx context.Context, userID, itemID string) (*models.WardrobeItem, error)

	CountItems(ctx context.Context) (int64, error)
	CountUserItems(ctx context.Context, userID string) (int64, error)

	Close() error
}
