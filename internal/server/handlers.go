package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mavazi/kabati/internal/embedding"
	"github.com/mavazi/kabati/internal/models"
	"github.com/mavazi/kabati/internal/storage"
	"github.com/mavazi/kabati/internal/vector"
)

// maxUploadBytes caps uploaded image size (multipart memory + read limit).
const maxUploadBytes = 32 << 20

// userID extracts the authenticated user from the request. Authentication
// itself happens upstream; this server trusts the X-User-ID header.
func userID(r *http.Request) string {
	return r.Header.Get("X-User-ID")
}

// readUploadedImage reads the "file" part from a multipart request.
func readUploadedImage(r *http.Request) ([]byte, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, err
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(io.LimitReader(file, maxUploadBytes))
}

func (s *Server) handleVisualSearch(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		s.respondError(w, http.StatusBadRequest, "missing X-User-ID header")
		return
	}
	imageBytes, err := readUploadedImage(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "missing or invalid file upload")
		return
	}
	topK := 0
	if v := r.URL.Query().Get("top_k"); v != "" {
		topK, err = strconv.Atoi(v)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "top_k must be an integer")
			return
		}
	}
	s.logger.Debug("visual search request", zap.String("user_id", uid), zap.Int("top_k", topK))

	response, err := s.searcher.Search(r.Context(), uid, imageBytes, topK)
	if err != nil {
		switch {
		case errors.Is(err, embedding.ErrUnreadableImage):
			s.respondError(w, http.StatusBadRequest, "uploaded file is not a readable image")
		case errors.Is(err, vector.ErrDimensionMismatch):
			// Model-version skew: the wardrobe was embedded under a different
			// model. An operational problem, not a user error.
			s.logger.Error("embedding dimension skew", zap.Error(err))
			s.respondError(w, http.StatusConflict, "wardrobe index does not match current embedding model")
		default:
			s.logger.Error("visual search failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleUploadItem(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		s.respondError(w, http.StatusBadRequest, "missing X-User-ID header")
		return
	}
	imageBytes, err := readUploadedImage(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "missing or invalid file upload")
		return
	}
	input := &models.ItemInput{
		UserID:         uid,
		ImageBytes:     imageBytes,
		IsMitumba:      r.URL.Query().Get("is_mitumba") == "true",
		SourcePlatform: r.URL.Query().Get("source_platform"),
	}
	s.logger.Debug("upload request", zap.String("user_id", uid), zap.Bool("is_mitumba", input.IsMitumba))

	item, err := s.ingestor.CreateItem(r.Context(), input)
	if err != nil {
		if errors.Is(err, embedding.ErrUnreadableImage) {
			s.respondError(w, http.StatusBadRequest, "uploaded file is not a readable image")
			return
		}
		s.logger.Error("upload failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, item)
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		s.respondError(w, http.StatusBadRequest, "missing X-User-ID header")
		return
	}
	limit := s.config.Search.MaxIndexItems
	ctx := r.Context()

	if q := r.URL.Query().Get("q"); q != "" {
		hits, err := s.metadata.Search(ctx, uid, q, limit)
		if err != nil {
			s.logger.Error("metadata search failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		items := make([]*models.WardrobeItem, 0, len(hits))
		for _, h := range hits {
			item, err := s.storage.GetItem(ctx, h.ItemID)
			if err != nil {
				// Stale metadata entry; skip it.
				continue
			}
			items = append(items, item)
		}
		s.respondJSON(w, http.StatusOK, map[string]interface{}{"items": items, "total": len(items)})
		return
	}

	summaries, err := s.storage.ListItemsByUser(ctx, uid, limit)
	if err != nil {
		s.logger.Error("list items failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"items": summaries, "total": len(summaries)})
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		s.respondError(w, http.StatusBadRequest, "missing X-User-ID header")
		return
	}
	id := chi.URLParam(r, "id")
	item, err := s.storage.GetItem(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrItemNotFound) {
			s.respondError(w, http.StatusNotFound, "item not found")
			return
		}
		s.logger.Error("get item failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	// Another user's item is indistinguishable from a missing one.
	if item.UserID != uid {
		s.respondError(w, http.StatusNotFound, "item not found")
		return
	}
	s.respondJSON(w, http.StatusOK, item)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		s.respondError(w, http.StatusBadRequest, "missing X-User-ID header")
		return
	}
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete item request", zap.String("item_id", id), zap.String("user_id", uid))

	item, err := s.storage.GetItem(r.Context(), id)
	if err != nil && !errors.Is(err, storage.ErrItemNotFound) {
		s.logger.Error("delete lookup failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err == nil && item.UserID != uid {
		s.respondError(w, http.StatusNotFound, "item not found")
		return
	}
	// Deleting an already-missing item stays a no-op success.
	if err := s.ingestor.DeleteItem(r.Context(), id); err != nil {
		s.logger.Error("deletion failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleMarkWorn(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		s.respondError(w, http.StatusBadRequest, "missing X-User-ID header")
		return
	}
	id := chi.URLParam(r, "id")
	item, err := s.storage.MarkWorn(r.Context(), uid, id)
	if err != nil {
		if errors.Is(err, storage.ErrItemNotFound) {
			s.respondError(w, http.StatusNotFound, "item not found or not owned by user")
			return
		}
		s.logger.Error("mark worn failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, item)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	itemCount, err := s.storage.CountItems(ctx)
	if err != nil {
		s.logger.Error("status: count items failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	indexedCount, err := s.metadata.DocCount()
	if err != nil {
		s.logger.Error("status: metadata doc count failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]interface{}{
		"items":          itemCount,
		"indexed_items":  indexedCount,
		"config": map[string]interface{}{
			"embedding_dimensions": s.config.Embedding.Dimensions,
			"max_index_items":      s.config.Search.MaxIndexItems,
			"default_top_k":        s.config.Search.DefaultTopK,
			"database_path":        s.config.Storage.DatabasePath,
			"bleve_index_path":     s.config.Storage.BleveIndexPath,
		},
	}
	diskBytes, err := storage.DiskUsageBytes(s.config.Storage.DatabasePath, s.config.Storage.BleveIndexPath)
	if err == nil {
		resp["disk_usage_bytes"] = diskBytes
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
