package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/MikeLowry-021/sanctifai-core-v1/internal/discernment"
	"github.com/MikeLowry-021/sanctifai-core-v1/internal/middleware"
	"github.com/MikeLowry-021/sanctifai-core-v1/internal/model"
	"github.com/MikeLowry-021/sanctifai-core-v1/internal/repository"
)

// AnalyzerInterface は分析ハンドラーが必要とする分析サービスインターフェース。
type AnalyzerInterface interface {
	AnalyzeMedia(ctx context.Context, req discernment.AnalysisRequest) model.DiscernmentAnalysis
}

// LyricsFetcher は歌詞取得のインターフェース。nilの場合この機能は無効。
type LyricsFetcher interface {
	Fetch(ctx context.Context, artist, title string) (string, error)
}

// SaveRecorder はライブラリ保存のメトリクス記録インターフェース。
type SaveRecorder interface {
	RecordAnalysisSaved()
}

// AnalysisHandler は作品分析のHTTPハンドラー。
type AnalysisHandler struct {
	analyzer     AnalyzerInterface
	lyrics       LyricsFetcher
	analysisRepo repository.AnalysisRepository // nilの場合は保存機能が無効
	metrics      SaveRecorder                  // nilの場合は記録しない
}

// NewAnalysisHandler はAnalysisHandlerを生成する。
func NewAnalysisHandler(analyzer AnalyzerInterface, lyrics LyricsFetcher, analysisRepo repository.AnalysisRepository, metrics SaveRecorder) *AnalysisHandler {
	return &AnalysisHandler{
		analyzer:     analyzer,
		lyrics:       lyrics,
		analysisRepo: analysisRepo,
		metrics:      metrics,
	}
}

// analyzeRequest は分析リクエストのボディ。
type analyzeRequest struct {
	Title       string `json:"title"`
	MediaType   string `json:"mediaType"`
	ReleaseYear string `json:"releaseYear"`
	Overview    string `json:"overview"`
	Artist      string `json:"artist"`
	PosterURL   string `json:"posterUrl"`
	Save        bool   `json:"save"`
	IsPublic    bool   `json:"isPublic"`
}

// Analyze は作品を分析して結果を返す。
// AI連携の失敗はフォールバック結果として200で返す（エラーボディにしない）。
// 認証済みかつsaveフラグが立っている場合はライブラリに保存する。
// POST /api/analyze
func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("request body must be valid JSON"))
		return
	}
	if req.Title == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("title is required"))
		return
	}

	overview := req.Overview

	// 音楽作品は歌詞で分析コンテキストを補強する（取得失敗時は歌詞なしで続行）
	if req.MediaType == "music" && h.lyrics != nil {
		lyricsText, err := h.lyrics.Fetch(r.Context(), req.Artist, req.Title)
		if err != nil {
			slog.Warn("lyrics enrichment failed",
				slog.String("title", req.Title),
				slog.String("error", err.Error()),
			)
		} else if lyricsText != "" {
			if overview != "" {
				overview += "\n\n"
			}
			overview += "Lyrics: " + lyricsText
		}
	}

	analysis := h.analyzer.AnalyzeMedia(r.Context(), discernment.AnalysisRequest{
		Title:       req.Title,
		MediaType:   req.MediaType,
		ReleaseYear: req.ReleaseYear,
		Overview:    overview,
	})

	// 保存は認証済みユーザーのみ。未認証のsaveフラグは黙って無視する。
	if req.Save && h.analysisRepo != nil {
		if userID, err := middleware.UserIDFromContext(r.Context()); err == nil {
			h.save(r.Context(), userID, req, analysis)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(analysis)
}

// save は分析結果をライブラリに保存する。失敗はログのみでレスポンスに影響させない。
func (h *AnalysisHandler) save(ctx context.Context, userID string, req analyzeRequest, analysis model.DiscernmentAnalysis) {
	saved := &model.SavedAnalysis{
		ID:          uuid.New().String(),
		UserID:      userID,
		Title:       req.Title,
		MediaType:   req.MediaType,
		ReleaseYear: req.ReleaseYear,
		PosterURL:   req.PosterURL,
		Analysis:    analysis,
		IsPublic:    req.IsPublic,
		CreatedAt:   time.Now(),
	}

	if err := h.analysisRepo.Save(ctx, saved); err != nil {
		slog.Error("failed to save analysis",
			slog.String("user_id", userID),
			slog.String("title", req.Title),
			slog.String("error", err.Error()),
		)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordAnalysisSaved()
	}
}
