package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/MikeLowry-021/sanctifai-core-v1/internal/middleware"
	"github.com/MikeLowry-021/sanctifai-core-v1/internal/model"
	"github.com/MikeLowry-021/sanctifai-core-v1/internal/repository"
)

const (
	defaultListLimit = 50
	maxListLimit     = 100
)

// LibraryHandler は保存済み分析（ライブラリ・公開フィード）のHTTPハンドラー。
type LibraryHandler struct {
	analysisRepo repository.AnalysisRepository
}

// NewLibraryHandler はLibraryHandlerを生成する。
func NewLibraryHandler(analysisRepo repository.AnalysisRepository) *LibraryHandler {
	return &LibraryHandler{analysisRepo: analysisRepo}
}

// savedAnalysisResponse はAPIレスポンス用の保存済み分析表現。
type savedAnalysisResponse struct {
	ID          string                    `json:"id"`
	Title       string                    `json:"title"`
	MediaType   string                    `json:"mediaType"`
	ReleaseYear string                    `json:"releaseYear"`
	PosterURL   string                    `json:"posterUrl"`
	Analysis    model.DiscernmentAnalysis `json:"analysis"`
	IsPublic    bool                      `json:"isPublic"`
	CreatedAt   string                    `json:"createdAt"`
}

func newSavedAnalysisResponses(items []*model.SavedAnalysis) []savedAnalysisResponse {
	out := make([]savedAnalysisResponse, 0, len(items))
	for _, item := range items {
		out = append(out, savedAnalysisResponse{
			ID:          item.ID,
			Title:       item.Title,
			MediaType:   item.MediaType,
			ReleaseYear: item.ReleaseYear,
			PosterURL:   item.PosterURL,
			Analysis:    item.Analysis,
			IsPublic:    item.IsPublic,
			CreatedAt:   item.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return out
}

// ListLibrary は認証済みユーザーのライブラリを返す。
// GET /api/library
func (h *LibraryHandler) ListLibrary(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	limit := parseLimit(r)

	items, err := h.analysisRepo.ListByUserID(r.Context(), userID, limit)
	if err != nil {
		slog.Error("failed to list library",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"analyses": newSavedAnalysisResponses(items),
	})
}

// ListFeed は公開設定された分析のコミュニティフィードを返す。認証不要。
// GET /api/feed
func (h *LibraryHandler) ListFeed(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r)

	items, err := h.analysisRepo.ListPublic(r.Context(), limit)
	if err != nil {
		slog.Error("failed to list public feed",
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"analyses": newSavedAnalysisResponses(items),
	})
}

// parseLimit はlimitクエリパラメータを解釈する。不正値はデフォルトを使う。
func parseLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultListLimit
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
