package search

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"

	"github.com/mavazi/kabati/internal/closet"
	"github.com/mavazi/kabati/internal/config"
	"github.com/mavazi/kabati/internal/embedding"
	"github.com/mavazi/kabati/internal/models"
	"github.com/mavazi/kabati/internal/storage"
	"github.com/mavazi/kabati/internal/vector"
)

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{120, 60, 200, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func testConfig() *config.SearchConfig {
	return &config.SearchConfig{
		DefaultTopK:    10,
		MaxTopK:        50,
		MaxIndexItems:  1000,
		MinMatches:     3,
		ScorePrecision: 4,
	}
}

// vanishingStore simulates items deleted between index build and hydration.
type vanishingStore struct {
	storage.Storage
	vanished map[string]bool
}

func (v *vanishingStore) GetItem(ctx context.Context, id string) (*models.WardrobeItem, error) {
	if v.vanished[id] {
		return nil, storage.ErrItemNotFound
	}
	return v.Storage.GetItem(ctx, id)
}

func seedItem(t *testing.T, s storage.Storage, id, userID string, emb []float32) {
	t.Helper()
	err := s.CreateItem(context.Background(), &models.WardrobeItem{
		ID:        id,
		UserID:    userID,
		Category:  "shirt",
		Embedding: emb,
	})
	if err != nil {
		t.Fatal(err)
	}
}

func newService(t *testing.T, store storage.Storage, queryVec []float32, dims int) *Service {
	t.Helper()
	ext := embedding.NewMockExtractor(dims)
	ext.Fixed = queryVec
	builder := closet.NewBuilder(store, dims, 1000)
	return NewService(store, ext, builder, testConfig(), nil)
}

func TestSearch_EndToEndToyRanking(t *testing.T) {
	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	seedItem(t, store, "item1", "u1", []float32{1, 0})
	seedItem(t, store, "item2", "u1", []float32{0, 1})
	seedItem(t, store, "item3", "u1", []float32{0.7, 0.7})

	svc := newService(t, store, []float32{1, 0}, 2)
	resp, err := svc.Search(context.Background(), "u1", testPNG(t), 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(resp.Results))
	}

	wantIDs := []string{"item1", "item3", "item2"}
	wantScores := []float64{1.0, 0.7071, 0.0}
	for i, r := range resp.Results {
		if r.ItemID != wantIDs[i] {
			t.Errorf("rank %d: item %s, want %s", i+1, r.ItemID, wantIDs[i])
		}
		if math.Abs(r.Score-wantScores[i]) > 1e-9 {
			t.Errorf("rank %d: score %v, want %v (rounded to 4 places)", i+1, r.Score, wantScores[i])
		}
		if r.Rank != i+1 {
			t.Errorf("rank field = %d, want %d", r.Rank, i+1)
		}
	}
	// Exactly 3 matches meets the MinMatches threshold; no hint.
	if resp.AdvisoryHint != "" {
		t.Errorf("unexpected advisory hint: %q", resp.AdvisoryHint)
	}
}

func TestSearch_EmptyWardrobe(t *testing.T) {
	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	svc := newService(t, store, []float32{1, 0}, 2)
	resp, err := svc.Search(context.Background(), "nobody", testPNG(t), 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 0 {
		t.Errorf("expected empty results, got %d", len(resp.Results))
	}
	if resp.AdvisoryHint == "" {
		t.Error("empty wardrobe should carry an advisory hint")
	}
}

func TestSearch_UnreadableImage(t *testing.T) {
	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	seedItem(t, store, "a", "u1", []float32{1, 0})
	svc := newService(t, store, []float32{1, 0}, 2)

	_, err = svc.Search(context.Background(), "u1", []byte("junk"), 5)
	if !errors.Is(err, embedding.ErrUnreadableImage) {
		t.Fatalf("expected ErrUnreadableImage, got %v", err)
	}
}

func TestSearch_DimensionMismatch(t *testing.T) {
	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	seedItem(t, store, "a", "u1", []float32{1, 0})

	// Extractor got upgraded to a 3-dimensional model; index is 2-dimensional.
	ext := embedding.NewMockExtractor(3)
	ext.Fixed = []float32{1, 0, 0}
	builder := closet.NewBuilder(store, 2, 1000)
	svc := NewService(store, ext, builder, testConfig(), nil)

	_, err = svc.Search(context.Background(), "u1", testPNG(t), 5)
	if !errors.Is(err, vector.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestSearch_RankDensityAfterDrop(t *testing.T) {
	base, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer base.Close()

	seedItem(t, base, "keep1", "u1", []float32{1, 0})
	seedItem(t, base, "gone", "u1", []float32{0.9, 0.1})
	seedItem(t, base, "keep2", "u1", []float32{0.5, 0.5})

	store := &vanishingStore{Storage: base, vanished: map[string]bool{"gone": true}}
	ext := embedding.NewMockExtractor(2)
	ext.Fixed = []float32{1, 0}
	builder := closet.NewBuilder(store, 2, 1000)
	svc := NewService(store, ext, builder, testConfig(), nil)

	resp, err := svc.Search(context.Background(), "u1", testPNG(t), 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("expected 2 surviving results, got %d", len(resp.Results))
	}
	if resp.Results[0].ItemID != "keep1" || resp.Results[1].ItemID != "keep2" {
		t.Errorf("wrong survivors: %s, %s", resp.Results[0].ItemID, resp.Results[1].ItemID)
	}
	// Ranks stay dense: 1 and 2, not 1 and 3.
	if resp.Results[0].Rank != 1 || resp.Results[1].Rank != 2 {
		t.Errorf("ranks not dense: %d, %d", resp.Results[0].Rank, resp.Results[1].Rank)
	}
}

func TestSearch_AdvisoryHintBelowThreshold(t *testing.T) {
	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	seedItem(t, store, "only", "u1", []float32{1, 0})
	svc := newService(t, store, []float32{1, 0}, 2)

	resp, err := svc.Search(context.Background(), "u1", testPNG(t), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(resp.Results))
	}
	if resp.AdvisoryHint == "" {
		t.Error("sub-threshold match count should carry an advisory hint")
	}
}

func TestSearch_TopKDefaultAndClamp(t *testing.T) {
	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	for _, id := range []string{"a", "b", "c", "d", "e"} {
		seedItem(t, store, id, "u1", []float32{1, 0})
	}

	cfg := testConfig()
	cfg.DefaultTopK = 2
	cfg.MaxTopK = 4
	ext := embedding.NewMockExtractor(2)
	ext.Fixed = []float32{1, 0}
	svc := NewService(store, ext, closet.NewBuilder(store, 2, 1000), cfg, nil)
	ctx := context.Background()

	resp, err := svc.Search(ctx, "u1", testPNG(t), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 2 {
		t.Errorf("topK=0 should use default 2, got %d", len(resp.Results))
	}

	resp, err = svc.Search(ctx, "u1", testPNG(t), 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 4 {
		t.Errorf("topK=100 should clamp to 4, got %d", len(resp.Results))
	}
}
