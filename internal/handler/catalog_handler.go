package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/MikeLowry-021/sanctifai-core-v1/internal/middleware"
	"github.com/MikeLowry-021/sanctifai-core-v1/internal/model"
)

// CatalogSearcher はカタログ検索のインターフェース。
type CatalogSearcher interface {
	Search(ctx context.Context, query, mediaType string) ([]model.MediaResult, error)
}

// CatalogHandler は作品カタログ検索のHTTPハンドラー。
type CatalogHandler struct {
	catalog CatalogSearcher
}

// NewCatalogHandler はCatalogHandlerを生成する。
func NewCatalogHandler(catalog CatalogSearcher) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// Search はクエリに一致する作品を検索する。
// GET /api/search?q=inception&type=movie
func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("query parameter q is required"))
		return
	}
	mediaType := r.URL.Query().Get("type")

	results, err := h.catalog.Search(r.Context(), query, mediaType)
	if err != nil {
		slog.Error("catalog search failed",
			slog.String("query", query),
			slog.String("error", err.Error()),
		)
		middleware.WriteErrorResponse(w, http.StatusBadGateway, model.NewCatalogFailedError("upstream catalog error"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"results": results,
	})
}
