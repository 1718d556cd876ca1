package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MikeLowry-021/sanctifai-core-v1/internal/discernment"
	"github.com/MikeLowry-021/sanctifai-core-v1/internal/middleware"
	"github.com/MikeLowry-021/sanctifai-core-v1/internal/model"
	"github.com/MikeLowry-021/sanctifai-core-v1/internal/repository"
)

// --- モック定義 ---

type mockAnalyzer struct {
	analyzeFn func(ctx context.Context, req discernment.AnalysisRequest) model.DiscernmentAnalysis
	lastReq   discernment.AnalysisRequest
}

func (m *mockAnalyzer) AnalyzeMedia(ctx context.Context, req discernment.AnalysisRequest) model.DiscernmentAnalysis {
	m.lastReq = req
	if m.analyzeFn != nil {
		return m.analyzeFn(ctx, req)
	}
	return model.DiscernmentAnalysis{
		DiscernmentScore: 85,
		FaithAnalysis:    "Redemptive themes.",
		Tags:             []string{"redemption"},
		Alternatives:     []model.Alternative{},
		Status:           model.AnalysisStatusOK,
	}
}

type mockLyricsFetcher struct {
	fetchFn func(ctx context.Context, artist, title string) (string, error)
}

func (m *mockLyricsFetcher) Fetch(ctx context.Context, artist, title string) (string, error) {
	if m.fetchFn != nil {
		return m.fetchFn(ctx, artist, title)
	}
	return "", nil
}

type mockAnalysisRepo struct {
	saveFn       func(ctx context.Context, saved *model.SavedAnalysis) error
	findByIDFn   func(ctx context.Context, id string) (*model.SavedAnalysis, error)
	listByUserFn func(ctx context.Context, userID string, limit int) ([]*model.SavedAnalysis, error)
	listPublicFn func(ctx context.Context, limit int) ([]*model.SavedAnalysis, error)
	saved        []*model.SavedAnalysis
}

func (m *mockAnalysisRepo) Save(ctx context.Context, saved *model.SavedAnalysis) error {
	m.saved = append(m.saved, saved)
	if m.saveFn != nil {
		return m.saveFn(ctx, saved)
	}
	return nil
}

func (m *mockAnalysisRepo) FindByID(ctx context.Context, id string) (*model.SavedAnalysis, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockAnalysisRepo) ListByUserID(ctx context.Context, userID string, limit int) ([]*model.SavedAnalysis, error) {
	if m.listByUserFn != nil {
		return m.listByUserFn(ctx, userID, limit)
	}
	return nil, nil
}

func (m *mockAnalysisRepo) ListPublic(ctx context.Context, limit int) ([]*model.SavedAnalysis, error) {
	if m.listPublicFn != nil {
		return m.listPublicFn(ctx, limit)
	}
	return nil, nil
}

var _ AnalyzerInterface = (*mockAnalyzer)(nil)
var _ LyricsFetcher = (*mockLyricsFetcher)(nil)
var _ repository.AnalysisRepository = (*mockAnalysisRepo)(nil)

// --- テスト ---

func TestAnalyze_ReturnsAnalysis(t *testing.T) {
	analyzer := &mockAnalyzer{}
	h := NewAnalysisHandler(analyzer, nil, nil, nil)

	body := strings.NewReader(`{"title": "Inception", "mediaType": "movie", "releaseYear": "2010"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	rec := httptest.NewRecorder()

	h.Analyze(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var result model.DiscernmentAnalysis
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if result.DiscernmentScore != 85 {
		t.Errorf("discernmentScore = %d, want 85", result.DiscernmentScore)
	}
	if result.Status != model.AnalysisStatusOK {
		t.Errorf("status = %q, want ok", result.Status)
	}

	if analyzer.lastReq.Title != "Inception" || analyzer.lastReq.ReleaseYear != "2010" {
		t.Errorf("analyzer request = %+v", analyzer.lastReq)
	}
}

func TestAnalyze_MissingTitle_Returns400(t *testing.T) {
	h := NewAnalysisHandler(&mockAnalyzer{}, nil, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(`{"mediaType": "movie"}`))
	rec := httptest.NewRecorder()

	h.Analyze(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	var body middleware.ErrorResponseBody
	json.NewDecoder(rec.Body).Decode(&body)
	if body.Code != "VALIDATION_FAILED" {
		t.Errorf("code = %q, want VALIDATION_FAILED", body.Code)
	}
}

func TestAnalyze_InvalidJSON_Returns400(t *testing.T) {
	h := NewAnalysisHandler(&mockAnalyzer{}, nil, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader("not json"))
	rec := httptest.NewRecorder()

	h.Analyze(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAnalyze_UpstreamFallback_Still200(t *testing.T) {
	analyzer := &mockAnalyzer{
		analyzeFn: func(ctx context.Context, req discernment.AnalysisRequest) model.DiscernmentAnalysis {
			return model.DiscernmentAnalysis{
				DiscernmentScore: 50,
				FaithAnalysis:    "AI service is unavailable right now.",
				Tags:             []string{"service-unavailable"},
				Alternatives:     []model.Alternative{},
				Status:           model.AnalysisStatusUnavailable,
			}
		},
	}
	h := NewAnalysisHandler(analyzer, nil, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(`{"title": "Inception"}`))
	rec := httptest.NewRecorder()

	h.Analyze(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for degraded analysis", rec.Code)
	}

	var result model.DiscernmentAnalysis
	json.NewDecoder(rec.Body).Decode(&result)
	if result.Status != model.AnalysisStatusUnavailable {
		t.Errorf("status = %q, want unavailable", result.Status)
	}
	if len(result.Tags) != 1 || result.Tags[0] != "service-unavailable" {
		t.Errorf("tags = %v", result.Tags)
	}
}

func TestAnalyze_MusicWithLyrics_EnrichesOverview(t *testing.T) {
	analyzer := &mockAnalyzer{}
	fetcher := &mockLyricsFetcher{
		fetchFn: func(ctx context.Context, artist, title string) (string, error) {
			if artist != "Keith Green" {
				t.Errorf("artist = %q", artist)
			}
			return "Oh Lord, you're beautiful...", nil
		},
	}
	h := NewAnalysisHandler(analyzer, fetcher, nil, nil)

	body := strings.NewReader(`{"title": "Oh Lord, You're Beautiful", "mediaType": "music", "artist": "Keith Green"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	rec := httptest.NewRecorder()

	h.Analyze(rec, req)

	if !strings.Contains(analyzer.lastReq.Overview, "Lyrics: Oh Lord, you're beautiful...") {
		t.Errorf("overview should carry lyrics, got %q", analyzer.lastReq.Overview)
	}
}

func TestAnalyze_LyricsFailure_ProceedsWithoutLyrics(t *testing.T) {
	analyzer := &mockAnalyzer{}
	fetcher := &mockLyricsFetcher{
		fetchFn: func(ctx context.Context, artist, title string) (string, error) {
			return "", errors.New("provider down")
		},
	}
	h := NewAnalysisHandler(analyzer, fetcher, nil, nil)

	body := strings.NewReader(`{"title": "Some Song", "mediaType": "music", "artist": "Artist"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	rec := httptest.NewRecorder()

	h.Analyze(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 when lyrics fail", rec.Code)
	}
	if analyzer.lastReq.Overview != "" {
		t.Errorf("overview = %q, want empty", analyzer.lastReq.Overview)
	}
}

func TestAnalyze_AuthenticatedSave_PersistsToLibrary(t *testing.T) {
	repo := &mockAnalysisRepo{}
	h := NewAnalysisHandler(&mockAnalyzer{}, nil, repo, nil)

	body := strings.NewReader(`{"title": "Inception", "mediaType": "movie", "save": true, "isPublic": true}`)
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req = req.WithContext(middleware.ContextWithUserID(req.Context(), "user-1"))
	rec := httptest.NewRecorder()

	h.Analyze(rec, req)

	if len(repo.saved) != 1 {
		t.Fatalf("saved = %d, want 1", len(repo.saved))
	}
	saved := repo.saved[0]
	if saved.UserID != "user-1" || saved.Title != "Inception" {
		t.Errorf("saved = %+v", saved)
	}
	if !saved.IsPublic {
		t.Error("isPublic should be true")
	}
	if saved.ID == "" {
		t.Error("saved analysis should have an ID")
	}
}

func TestAnalyze_AnonymousSave_Ignored(t *testing.T) {
	repo := &mockAnalysisRepo{}
	h := NewAnalysisHandler(&mockAnalyzer{}, nil, repo, nil)

	body := strings.NewReader(`{"title": "Inception", "save": true}`)
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	rec := httptest.NewRecorder()

	h.Analyze(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(repo.saved) != 0 {
		t.Errorf("saved = %d, want 0 for anonymous request", len(repo.saved))
	}
}

func TestAnalyze_SaveFailure_DoesNotAffectResponse(t *testing.T) {
	repo := &mockAnalysisRepo{
		saveFn: func(ctx context.Context, saved *model.SavedAnalysis) error {
			return errors.New("db down")
		},
	}
	h := NewAnalysisHandler(&mockAnalyzer{}, nil, repo, nil)

	body := strings.NewReader(`{"title": "Inception", "save": true}`)
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req = req.WithContext(middleware.ContextWithUserID(req.Context(), "user-1"))
	rec := httptest.NewRecorder()

	h.Analyze(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 even when save fails", rec.Code)
	}
}
