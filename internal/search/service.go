// Package search provides the visual similarity search service.
package search

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/mavazi/kabati/internal/closet"
	"github.com/mavazi/kabati/internal/config"
	"github.com/mavazi/kabati/internal/embedding"
	"github.com/mavazi/kabati/internal/models"
	"github.com/mavazi/kabati/internal/storage"
)

// advisoryHint is attached to responses with fewer close matches than expected.
const advisoryHint = "Few close matches in your wardrobe. " +
	"Try searching Jumia or Kilimall for similar styles, " +
	"or check local mitumba markets for affordable options."

// Service runs visual similarity search over a user's wardrobe: it embeds the
// query image, builds a fresh per-user index, and hydrates ranked results from
// storage. Each request is self-contained; no index state is shared between
// requests.
type Service struct {
	storage   storage.Storage
	extractor embedding.Extractor
	closets   *closet.Builder
	config    *config.SearchConfig
	logger    *zap.Logger
}

// NewService creates a search service with the given dependencies.
func NewService(
	store storage.Storage,
	extractor embedding.Extractor,
	closets *closet.Builder,
	cfg *config.SearchConfig,
	logger *zap.Logger,
) *Service {
	return &Service{
		storage:   store,
		extractor: extractor,
		closets:   closets,
		config:    cfg,
		logger:    logger,
	}
}

// Search finds the user's wardrobe items most similar to the query image.
// topK <= 0 uses the configured default; values above the configured maximum
// are clamped.
//
// Only two conditions abort a search: an image that cannot be embedded, and a
// query-vs-index dimension mismatch (model-version skew). Everything else
// degrades to a smaller-but-valid result list: an empty wardrobe yields zero
// results with an advisory hint, and items deleted between index build and
// hydration are silently dropped.
func (s *Service) Search(ctx context.Context, userID string, imageBytes []byte, topK int) (*models.SearchResponse, error) {
	startTime := time.Now()

	if topK <= 0 {
		topK = s.config.DefaultTopK
	}
	if topK > s.config.MaxTopK {
		topK = s.config.MaxTopK
	}

	query, err := s.extractor.Extract(ctx, imageBytes)
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}

	idx, ids, err := s.closets.Build(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("closet index build failed: %w", err)
	}
	if idx == nil {
		// No wardrobe yet. A normal state, not a failure.
		return &models.SearchResponse{
			Results:      []*models.SearchResult{},
			AdvisoryHint: advisoryHint,
			QueryTime:    time.Since(startTime).Milliseconds(),
		}, nil
	}

	hits, err := idx.Search(query, topK)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	results := make([]*models.SearchResult, 0, len(hits))
	for _, hit := range hits {
		itemID := ids[hit.Position]
		item, err := s.storage.GetItem(ctx, itemID)
		if err != nil {
			if errors.Is(err, storage.ErrItemNotFound) {
				// Deleted between index build and hydration. Drop this hit;
				// a partial list beats failing the whole request.
				if s.logger != nil {
					s.logger.Debug("item vanished during hydration", zap.String("item_id", itemID))
				}
				continue
			}
			return nil, fmt.Errorf("hydration failed: %w", err)
		}
		results = append(results, &models.SearchResult{
			ItemID:    item.ID,
			Category:  item.Category,
			Color:     item.Color,
			Style:     item.Style,
			Material:  item.Material,
			ImageURL:  item.ImageURL,
			IsMitumba: item.IsMitumba,
			Score:     s.roundScore(hit.Score),
		})
	}

	// Ranks are dense over the surviving results.
	for i, r := range results {
		r.Rank = i + 1
	}

	response := &models.SearchResponse{
		Results:   results,
		Total:     len(results),
		QueryTime: time.Since(startTime).Milliseconds(),
	}
	if len(results) < s.config.MinMatches {
		response.AdvisoryHint = advisoryHint
	}
	return response, nil
}

// roundScore rounds to the configured decimal precision for presentation stability.
func (s *Service) roundScore(score float64) float64 {
	p := math.Pow10(s.config.ScorePrecision)
	return math.Round(score*p) / p
}
