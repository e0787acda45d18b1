package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mavazi/kabati/internal/models"
)

// Importer ingests garment photos from the filesystem into a single user's
// wardrobe. It backs the drop-directory watcher.
type Importer struct {
	ingestor *Ingestor
	userID   string
}

// NewImporter creates an importer that files every photo under userID.
func NewImporter(ingestor *Ingestor, userID string) *Importer {
	return &Importer{ingestor: ingestor, userID: userID}
}

// ImportFile reads and ingests one image file.
func (imp *Importer) ImportFile(ctx context.Context, path string) (*models.WardrobeItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	item, err := imp.ingestor.CreateItem(ctx, &models.ItemInput{
		UserID:         imp.userID,
		ImageBytes:     data,
		ImageURL:       "file://" + filepath.ToSlash(path),
		SourcePlatform: "import",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to ingest %s: %w", path, err)
	}
	return item, nil
}
