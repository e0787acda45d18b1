// Package ingest handles wardrobe item creation from uploaded images:
// classification, feature extraction, persistence, and metadata indexing.
package ingest

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mavazi/kabati/internal/classify"
	"github.com/mavazi/kabati/internal/embedding"
	"github.com/mavazi/kabati/internal/keyword"
	"github.com/mavazi/kabati/internal/models"
	"github.com/mavazi/kabati/internal/storage"
)

// Labeler provides classification-model label predictions for an image.
// Extractors that expose the full model head implement it; when unavailable
// the item is stored with category "other" and pixel-derived color only.
type Labeler interface {
	Labels(ctx context.Context, imageBytes []byte) ([]classify.Prediction, error)
}

// Ingestor creates and deletes wardrobe items across storage and the metadata index.
type Ingestor struct {
	storage   storage.Storage
	extractor embedding.Extractor
	metadata  keyword.MetadataIndex
	labeler   Labeler     // optional
	logger    *zap.Logger // optional; when set, logs debug events
}

// Option configures an Ingestor.
type Option func(*Ingestor)

// WithLogger sets a logger for debug output (item created, item deleted, etc.).
func WithLogger(l *zap.Logger) Option {
	return func(ing *Ingestor) { ing.logger = l }
}

// WithLabeler sets a label source for classification.
func WithLabeler(labeler Labeler) Option {
	return func(ing *Ingestor) { ing.labeler = labeler }
}

// NewIngestor creates an ingestor with the given dependencies.
func NewIngestor(store storage.Storage, extractor embedding.Extractor, metadata keyword.MetadataIndex, opts ...Option) *Ingestor {
	ing := &Ingestor{
		storage:   store,
		extractor: extractor,
		metadata:  metadata,
	}
	for _, opt := range opts {
		opt(ing)
	}
	return ing
}

// CreateItem classifies and embeds the uploaded image, persists the item, and
// indexes its metadata. The embedding is extracted exactly once here and never
// changes for the lifetime of the item.
func (ing *Ingestor) CreateItem(ctx context.Context, input *models.ItemInput) (*models.WardrobeItem, error) {
	img, err := embedding.DecodeImage(input.ImageBytes)
	if err != nil {
		return nil, err
	}

	var preds []classify.Prediction
	if ing.labeler != nil {
		preds, err = ing.labeler.Labels(ctx, input.ImageBytes)
		if err != nil {
			return nil, fmt.Errorf("classification failed: %w", err)
		}
	}
	cls := classify.Classify(preds, img)

	features, err := ing.extractor.Extract(ctx, input.ImageBytes)
	if err != nil {
		return nil, fmt.Errorf("feature extraction failed: %w", err)
	}

	item := &models.WardrobeItem{
		ID:             uuid.New().String(),
		UserID:         input.UserID,
		ImageURL:       input.ImageURL,
		Category:       cls.Category,
		Color:          cls.Color,
		Style:          cls.Style,
		Material:       cls.Material,
		Seasonality:    cls.Seasonality,
		IsMitumba:      input.IsMitumba,
		SourcePlatform: input.SourcePlatform,
		Embedding:      features,
	}
	if input.IsMitumba {
		item.UpcycleIdeas = classify.UpcycleIdeas(cls.Category, cls.Material, cls.Color, cls.Style)
	}

	if err := ing.storage.CreateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to store item: %w", err)
	}
	if err := ing.metadata.Index(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to index item metadata: %w", err)
	}

	if ing.logger != nil {
		ing.logger.Debug("item ingested",
			zap.String("item_id", item.ID),
			zap.String("user_id", item.UserID),
			zap.String("category", item.Category),
			zap.Bool("is_mitumba", item.IsMitumba))
	}
	return item, nil
}

// DeleteItem removes an item from storage and the metadata index.
func (ing *Ingestor) DeleteItem(ctx context.Context, itemID string) error {
	if err := ing.storage.DeleteItem(ctx, itemID); err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	if err := ing.metadata.Delete(ctx, itemID); err != nil {
		// The authoritative store already dropped the item; a stale metadata
		// entry only costs a harmless search miss.
		if ing.logger != nil {
			ing.logger.Warn("failed to delete item metadata", zap.String("item_id", itemID), zap.Error(err))
		}
	}
	if ing.logger != nil {
		ing.logger.Debug("item deleted", zap.String("item_id", itemID))
	}
	return nil
}
