package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mavazi/kabati/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS wardrobe_items (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		image_url TEXT,
		category TEXT NOT NULL,
		color TEXT,
		style TEXT,
		material TEXT,
		seasonality TEXT,
		is_mitumba INTEGER NOT NULL DEFAULT 0,
		source_platform TEXT,
		upcycle_ideas TEXT,
		embedding BLOB,
		wear_count INTEGER NOT NULL DEFAULT 0,
		last_worn TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_items_user_id ON wardrobe_items(user_id);
	CREATE INDEX IF NOT EXISTS idx_items_user_created ON wardrobe_items(user_id, created_at);
	`
	_, err := db.Exec(schema)
	return err
}

// CreateItem inserts a wardrobe item.
func (s *SQLiteStorage) CreateItem(ctx context.Context, item *models.WardrobeItem) error {
	ideasJSON, err := json.Marshal(item.UpcycleIdeas)
	if err != nil {
		return fmt.Errorf("failed to marshal upcycle ideas: %w", err)
	}

	now := time.Now()
	item.CreatedAt = now
	item.UpdatedAt = now

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO wardrobe_items
		 (id, user_id, image_url, category, color, style, material, seasonality,
		  is_mitumba, source_platform, upcycle_ideas, embedding, wear_count, last_worn, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.UserID, item.ImageURL, item.Category, item.Color, item.Style,
		item.Material, item.Seasonality, item.IsMitumba, item.SourcePlatform,
		string(ideasJSON), encodeEmbedding(item.Embedding), item.WearCount, item.LastWorn,
		item.CreatedAt, item.UpdatedAt,
	)
	return err
}

// GetItem returns an item by ID. Returns ErrItemNotFound if it does not exist.
func (s *SQLiteStorage) GetItem(ctx context.Context, id string) (*models.WardrobeItem, error) {
	var item models.WardrobeItem
	var ideasJSON sql.NullString
	var embedding []byte
	var lastWorn sql.NullTime

	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, image_url, category, color, style, material, seasonality,
		        is_mitumba, source_platform, upcycle_ideas, embedding, wear_count, last_worn,
		        created_at, updated_at
		 FROM wardrobe_items WHERE id = ?`, id,
	).Scan(&item.ID, &item.UserID, &item.ImageURL, &item.Category, &item.Color, &item.Style,
		&item.Material, &item.Seasonality, &item.IsMitumba, &item.SourcePlatform,
		&ideasJSON, &embedding, &item.WearCount, &lastWorn, &item.CreatedAt, &item.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	if ideasJSON.Valid && ideasJSON.String != "" && ideasJSON.String != "null" {
		if err := json.Unmarshal([]byte(ideasJSON.String), &item.UpcycleIdeas); err != nil {
			return nil, fmt.Errorf("failed to unmarshal upcycle ideas: %w", err)
		}
	}
	item.Embedding = decodeEmbedding(embedding)
	if lastWorn.Valid {
		item.LastWorn = &lastWorn.Time
	}
	return &item, nil
}

// DeleteItem removes an item by ID. Deleting a missing item is not an error.
func (s *SQLiteStorage) DeleteItem(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM wardrobe_items WHERE id = ?`, id)
	return err
}

// ListItemsByUser returns up to limit item summaries for userID, ordered by
// creation time ascending. Embeddings are included in the projection.
func (s *SQLiteStorage) ListItemsByUser(ctx context.Context, userID string, limit int) ([]*models.ItemSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, category, color, style, is_mitumba, embedding
		 FROM wardrobe_items WHERE user_id = ? ORDER BY created_at ASC, id ASC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*models.ItemSummary
	for rows.Next() {
		var it models.ItemSummary
		var embedding []byte
		if err := rows.Scan(&it.ID, &it.Category, &it.Color, &it.Style, &it.IsMitumba, &embedding); err != nil {
			return nil, err
		}
		it.Embedding = decodeEmbedding(embedding)
		items = append(items, &it)
	}
	return items, rows.Err()
}

// MarkWorn increments wear_count and stamps last_worn for an item owned by userID.
func (s *SQLiteStorage) MarkWorn(ctx context.Context, userID, itemID string) (*models.WardrobeItem, error) {
	now := time.Now()
	result, err := s.db.ExecContext(ctx,
		`UPDATE wardrobe_items
		 SET wear_count = wear_count + 1, last_worn = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		now, now, itemID, userID,
	)
	if err != nil {
		return nil, err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return nil, fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
	}
	return s.GetItem(ctx, itemID)
}

// CountItems returns the total number of items.
func (s *SQLiteStorage) CountItems(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM wardrobe_items`).Scan(&count)
	return count, err
}

// CountUserItems returns the number of items owned by userID.
func (s *SQLiteStorage) CountUserItems(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM wardrobe_items WHERE user_id = ?`, userID).Scan(&count)
	return count, err
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// encodeEmbedding packs a float32 vector into a little-endian BLOB.
// A nil or empty vector encodes as nil (stored as SQL NULL).
func encodeEmbedding(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	const size = 4
	out := make([]byte, len(v)*size)
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(f))
	}
	return out
}

// decodeEmbedding unpacks a little-endian BLOB into a float32 vector.
func decodeEmbedding(b []byte) []float32 {
	if len(b) == 0 {
		return nil
	}
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
