package keyword

import (
	"context"
	"fmt"
	"os"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"

	"github.com/mavazi/kabati/internal/models"
)

// itemDoc is the flat projection of an item that gets indexed.
type itemDoc struct {
	UserID         string `json:"user_id"`
	Category       string `json:"category"`
	Color          string `json:"color"`
	Style          string `json:"style"`
	Material       string `json:"material"`
	SourcePlatform string `json:"source_platform"`
}

// BleveIndex implements MetadataIndex using Bleve.
type BleveIndex struct {
	index bleve.Index
}

// NewBleveIndex creates or opens a Bleve index at path. An existing index is
// opened and reused; remove the directory to force a full re-index after a
// mapping change.
func NewBleveIndex(path string) (*BleveIndex, error) {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer (lowercase + tokenize, no stemming): metadata values
	// are short controlled terms, stemming only distorts them.
	textFieldMapping.Analyzer = standard.Name
	for _, field := range []string{"category", "color", "style", "material", "source_platform"} {
		docMapping.AddFieldMappingsAt(field, textFieldMapping)
	}
	// user_id must match exactly, never tokenize.
	docMapping.AddFieldMappingsAt("user_id", bleve.NewKeywordFieldMapping())
	im.AddDocumentMapping("item", docMapping)
	im.DefaultType = "item"
	im.DefaultMapping = docMapping

	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	index, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// Index indexes an item's metadata under its ID.
func (b *BleveIndex) Index(ctx context.Context, item *models.WardrobeItem) error {
	return b.index.Index(item.ID, &itemDoc{
		UserID:         item.UserID,
		Category:       item.Category,
		Color:          item.Color,
		Style:          item.Style,
		Material:       item.Material,
		SourcePlatform: item.SourcePlatform,
	})
}

// Search runs a match query over the user's items and returns up to limit hits.
func (b *BleveIndex) Search(ctx context.Context, userID, query string, limit int) ([]*MetadataResult, error) {
	userQuery := bleve.NewTermQuery(userID)
	userQuery.SetField("user_id")

	matchQuery := bleve.NewMatchQuery(query)
	q := bleve.NewConjunctionQuery(userQuery, matchQuery)

	req := bleve.NewSearchRequest(q)
	req.Size = limit
	results, err := b.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make([]*MetadataResult, len(results.Hits))
	for i, hit := range results.Hits {
		out[i] = &MetadataResult{ItemID: hit.ID, Score: hit.Score}
	}
	return out, nil
}

// Delete removes an item from the index.
func (b *BleveIndex) Delete(ctx context.Context, itemID string) error {
	return b.index.Delete(itemID)
}

// DocCount returns the total number of indexed items.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the underlying index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}
