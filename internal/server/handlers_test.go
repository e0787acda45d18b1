package server

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/mavazi/kabati/internal/closet"
	"github.com/mavazi/kabati/internal/config"
	"github.com/mavazi/kabati/internal/embedding"
	"github.com/mavazi/kabati/internal/ingest"
	"github.com/mavazi/kabati/internal/keyword"
	"github.com/mavazi/kabati/internal/models"
	"github.com/mavazi/kabati/internal/search"
	"github.com/mavazi/kabati/internal/storage"
)

func testPNG(t *testing.T, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Embedding.Dimensions = 8

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })

	metadata, err := keyword.NewBleveIndex(t.TempDir() + "/bleve")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = metadata.Close() })

	extractor := embedding.NewMockExtractor(cfg.Embedding.Dimensions)
	builder := closet.NewBuilder(store, cfg.Embedding.Dimensions, cfg.Search.MaxIndexItems)
	searcher := search.NewService(store, extractor, builder, &cfg.Search, zap.NewNop())
	ingestor := ingest.NewIngestor(store, extractor, metadata)

	return NewServer(searcher, ingestor, store, metadata, cfg, zap.NewNop())
}

// multipartBody builds a multipart body with a single "file" part.
func multipartBody(t *testing.T, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "garment.png")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func uploadItem(t *testing.T, router http.Handler, userID string, imageBytes []byte) *models.WardrobeItem {
	t.Helper()
	body, contentType := multipartBody(t, imageBytes)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/wardrobe/items", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-User-ID", userID)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload status = %d: %s", rec.Code, rec.Body.String())
	}
	var item models.WardrobeItem
	if err := json.NewDecoder(rec.Body).Decode(&item); err != nil {
		t.Fatal(err)
	}
	return &item
}

func TestHandleUploadAndGetItem(t *testing.T) {
	srv := newTestServer(t)
	router := srv.Router()

	item := uploadItem(t, router, "u1", testPNG(t, color.RGBA{30, 30, 200, 255}))
	if item.ID == "" || item.UserID != "u1" {
		t.Fatalf("bad item: %+v", item)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/wardrobe/items/"+item.ID, nil)
	req.Header.Set("X-User-ID", "u1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	// Another user's wardrobe is opaque; the item looks missing.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/wardrobe/items/"+item.ID, nil)
	req.Header.Set("X-User-ID", "u2")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("foreign get = %d, want 404", rec.Code)
	}
}

func TestHandleUpload_RequiresUser(t *testing.T) {
	srv := newTestServer(t)
	body, contentType := multipartBody(t, testPNG(t, color.White))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/wardrobe/items", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleUpload_UnreadableImage(t *testing.T) {
	srv := newTestServer(t)
	body, contentType := multipartBody(t, []byte("not an image"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/wardrobe/items", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-User-ID", "u1")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleVisualSearch(t *testing.T) {
	srv := newTestServer(t)
	router := srv.Router()

	img := testPNG(t, color.RGBA{200, 40, 40, 255})
	uploadItem(t, router, "u1", img)

	// Search with the same image; the deterministic extractor guarantees a
	// perfect match.
	body, contentType := multipartBody(t, img)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/wardrobe/visual-search?top_k=5", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-User-ID", "u1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("search status = %d: %s", rec.Code, rec.Body.String())
	}

	var resp models.SearchResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(resp.Results))
	}
	if resp.Results[0].Rank != 1 || resp.Results[0].Score < 0.999 {
		t.Errorf("self-match should rank 1 with score ~1: %+v", resp.Results[0])
	}
	if resp.AdvisoryHint == "" {
		t.Error("single match should carry the advisory hint")
	}
}

func TestHandleVisualSearch_EmptyWardrobe(t *testing.T) {
	srv := newTestServer(t)
	body, contentType := multipartBody(t, testPNG(t, color.White))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/wardrobe/visual-search", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-User-ID", "lonely")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("empty wardrobe search should succeed, got %d", rec.Code)
	}
	var resp models.SearchResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 0 || resp.AdvisoryHint == "" {
		t.Errorf("want empty results with hint, got %+v", resp)
	}
}

func TestHandleListItems_WithKeywordFilter(t *testing.T) {
	srv := newTestServer(t)
	router := srv.Router()

	uploadItem(t, router, "u1", testPNG(t, color.RGBA{10, 10, 10, 255}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/wardrobe/items?q=other", nil)
	req.Header.Set("X-User-ID", "u1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var resp struct {
		Items []*models.WardrobeItem `json:"items"`
		Total int                    `json:"total"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	// Mock extractor has no labeler, so the item classifies as "other".
	if resp.Total != 1 {
		t.Errorf("keyword filter found %d items, want 1", resp.Total)
	}
}

func TestHandleDeleteItem(t *testing.T) {
	srv := newTestServer(t)
	router := srv.Router()

	item := uploadItem(t, router, "u1", testPNG(t, color.White))

	// A different user cannot delete it.
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/wardrobe/items/"+item.ID, nil)
	req.Header.Set("X-User-ID", "u2")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("foreign delete = %d, want 404", rec.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/wardrobe/items/"+item.ID, nil)
	req.Header.Set("X-User-ID", "u1")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/wardrobe/items/"+item.ID, nil)
	req.Header.Set("X-User-ID", "u1")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", rec.Code)
	}
}

func TestHandleMarkWorn(t *testing.T) {
	srv := newTestServer(t)
	router := srv.Router()

	item := uploadItem(t, router, "u1", testPNG(t, color.White))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/wardrobe/items/"+item.ID+"/worn", nil)
	req.Header.Set("X-User-ID", "u1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("mark worn status = %d", rec.Code)
	}
	var updated models.WardrobeItem
	if err := json.NewDecoder(rec.Body).Decode(&updated); err != nil {
		t.Fatal(err)
	}
	if updated.WearCount != 1 {
		t.Errorf("wear count = %d, want 1", updated.WearCount)
	}

	// Another user cannot mark it worn.
	req = httptest.NewRequest(http.MethodPost, "/api/v1/wardrobe/items/"+item.ID+"/worn", nil)
	req.Header.Set("X-User-ID", "u2")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("foreign mark worn = %d, want 404", rec.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("health status = %d", rec.Code)
	}
}

func TestHandleStatus(t *testing.T) {
	srv := newTestServer(t)
	router := srv.Router()
	uploadItem(t, router, "u1", testPNG(t, color.White))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp["items"].(float64) != 1 {
		t.Errorf("items = %v, want 1", resp["items"])
	}
}
