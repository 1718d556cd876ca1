package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func testRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:     rate.Limit(1.0), // 1 req/sec
		GeneralBurst:    2,
		AnalyzeRate:     rate.Limit(1.0),
		AnalyzeBurst:    1,
		CleanupInterval: time.Minute,
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// --- テスト ---

func TestGeneralMiddleware_AllowsWithinBurst(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/feed", nil)
		req.RemoteAddr = "203.0.113.1:54321"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i, rec.Code)
		}
	}
}

func TestGeneralMiddleware_BlocksOverBurst(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())

	var lastCode int
	var lastRec *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/feed", nil)
		req.RemoteAddr = "203.0.113.2:54321"
		lastRec = httptest.NewRecorder()
		handler.ServeHTTP(lastRec, req)
		lastCode = lastRec.Code
	}

	if lastCode != http.StatusTooManyRequests {
		t.Fatalf("third request status = %d, want 429", lastCode)
	}
	if lastRec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header on 429 response")
	}
}

func TestAnalyzeMiddleware_IndependentOfGeneral(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()

	analyzeHandler := rl.AnalyzeMiddleware()(okHandler())
	generalHandler := rl.GeneralMiddleware()(okHandler())

	// 分析バケットを使い切る（バースト1）
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", nil)
	req.RemoteAddr = "203.0.113.3:54321"
	rec := httptest.NewRecorder()
	analyzeHandler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first analyze request status = %d, want 200", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/analyze", nil)
	req.RemoteAddr = "203.0.113.3:54321"
	rec = httptest.NewRecorder()
	analyzeHandler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second analyze request status = %d, want 429", rec.Code)
	}

	// 一般バケットは影響を受けないこと
	req = httptest.NewRequest(http.MethodGet, "/api/feed", nil)
	req.RemoteAddr = "203.0.113.3:54321"
	rec = httptest.NewRecorder()
	generalHandler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("general request status = %d, want 200 after analyze exhausted", rec.Code)
	}
}

func TestRateLimiter_SeparateClientsSeparateBuckets(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()

	handler := rl.AnalyzeMiddleware()(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", nil)
	req.RemoteAddr = "203.0.113.4:1111"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("client A status = %d, want 200", rec.Code)
	}

	// 別IPは独立したバケット
	req = httptest.NewRequest(http.MethodPost, "/api/analyze", nil)
	req.RemoteAddr = "203.0.113.5:2222"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("client B status = %d, want 200", rec.Code)
	}

	if got := rl.AnalyzeLimiterCount(); got != 2 {
		t.Errorf("AnalyzeLimiterCount() = %d, want 2", got)
	}
}

func TestRateLimiter_AuthenticatedKeyedByUserID(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()

	handler := rl.AnalyzeMiddleware()(okHandler())

	// 同一ユーザーは異なるIPでも同じバケット
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", nil)
	req.RemoteAddr = "203.0.113.6:1111"
	req = req.WithContext(ContextWithUserID(req.Context(), "user-1"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/analyze", nil)
	req.RemoteAddr = "203.0.113.7:2222"
	req = req.WithContext(ContextWithUserID(req.Context(), "user-1"))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("second request status = %d, want 429 (same user bucket)", rec.Code)
	}
}

func TestRateLimiter_CleanupRemovesStaleEntries(t *testing.T) {
	config := testRateLimiterConfig()
	config.CleanupInterval = 10 * time.Millisecond
	rl := NewRateLimiter(config)
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/feed", nil)
	req.RemoteAddr = "203.0.113.8:1234"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rl.GeneralLimiterCount(); got != 1 {
		t.Fatalf("GeneralLimiterCount() = %d, want 1", got)
	}

	// TTL（CleanupInterval * 2）経過後にクリーンアップされること
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if rl.GeneralLimiterCount() == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("stale limiter entry was not cleaned up")
}
