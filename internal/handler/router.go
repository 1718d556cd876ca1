package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MikeLowry-021/sanctifai-core-v1/internal/middleware"
	"github.com/MikeLowry-021/sanctifai-core-v1/internal/model"
	"github.com/MikeLowry-021/sanctifai-core-v1/internal/repository"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
// nilの依存は対応する機能が無効であることを意味し、該当ルートは
// 機能無効のレスポンスに差し替わる。
type RouterDeps struct {
	// ミドルウェア依存
	SessionFinder     middleware.SessionFinder // nil: 認証無効
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	MetricsRecorder   middleware.HTTPStatusRecorder // nil: 記録しない
	MetricsHandler    http.Handler                  // /metrics。nil: 非公開

	// 認証
	AuthService AuthServiceInterface // nil: 認証無効
	AuthConfig  AuthHandlerConfig
	Notifier    OnboardingNotifier // nil: ウェブフック無効

	// 分析
	Analyzer     AnalyzerInterface
	Lyrics       LyricsFetcher // nil: 歌詞補強無効
	SaveRecorder SaveRecorder  // nil: 保存メトリクスを記録しない

	// カタログ
	Catalog CatalogSearcher // nil: 検索無効

	// ライブラリ（DB必須）
	AnalysisRepo repository.AnalysisRepository // nil: 保存・フィード無効

	// ロギング
	Logger *slog.Logger // nil: リクエストログ無効
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Metrics → Logging → RateLimit(General)
//
// 認証はエンドポイントごとにOptional/Requiredを使い分ける。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewMetricsMiddleware(deps.MetricsRecorder))
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	}
	if deps.RateLimiter != nil {
		r.Use(deps.RateLimiter.GeneralMiddleware())
	}

	authEnabled := deps.AuthService != nil && deps.SessionFinder != nil

	analysisHandler := NewAnalysisHandler(deps.Analyzer, deps.Lyrics, deps.AnalysisRepo, deps.SaveRecorder)

	// --- 認証ルート ---
	r.Route("/api/auth", func(r chi.Router) {
		if authEnabled {
			authHandler := NewAuthHandler(deps.AuthService, deps.Notifier, deps.AuthConfig)

			r.Get("/google", authHandler.Login)
			r.Get("/google/callback", authHandler.Callback)
			r.Get("/logout", authHandler.Logout)
			r.Get("/user", authHandler.Me)
			r.With(middleware.NewOptionalSessionMiddleware(deps.SessionFinder)).
				Post("/onboarding", authHandler.CompleteOnboarding)
			return
		}

		// 認証が無効なサーバーでもフロントエンドの起動時ポーリングは
		// 成功する必要があるため、/userは200の匿名レスポンスを返す。
		r.Get("/user", anonymousUser)
		r.Get("/google", authDisabled)
		r.Get("/google/callback", authDisabled)
		r.Get("/logout", authDisabled)
		r.Post("/onboarding", func(w http.ResponseWriter, r *http.Request) {
			middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		})
	})

	// --- 分析（認証任意） ---
	analyzeRoute := func(r chi.Router) {
		if authEnabled {
			r.Use(middleware.NewOptionalSessionMiddleware(deps.SessionFinder))
		}
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.AnalyzeMiddleware())
		}
		r.Post("/", analysisHandler.Analyze)
	}
	r.Route("/api/analyze", analyzeRoute)

	// --- カタログ検索 ---
	if deps.Catalog != nil {
		catalogHandler := NewCatalogHandler(deps.Catalog)
		r.Get("/api/search", catalogHandler.Search)
	} else {
		r.Get("/api/search", featureDisabled("media catalog"))
	}

	// --- ライブラリ・公開フィード（DB必須） ---
	if deps.AnalysisRepo != nil {
		libraryHandler := NewLibraryHandler(deps.AnalysisRepo)

		r.Get("/api/feed", libraryHandler.ListFeed)
		if authEnabled {
			r.With(middleware.NewRequireSessionMiddleware(deps.SessionFinder)).
				Get("/api/library", libraryHandler.ListLibrary)
		} else {
			r.Get("/api/library", func(w http.ResponseWriter, r *http.Request) {
				middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
			})
		}
	} else {
		r.Get("/api/feed", featureDisabled("library"))
		r.Get("/api/library", featureDisabled("library"))
	}

	// --- 運用エンドポイント ---
	r.Get("/api/health", healthCheck)
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	return r
}

// anonymousUser は認証無効サーバーでの/api/auth/userレスポンス。
func anonymousUser(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"user":            nil,
		"isAuthenticated": false,
	})
}

// authDisabled は認証サブシステム無効時のOAuthルートのレスポンス。
func authDisabled(w http.ResponseWriter, r *http.Request) {
	middleware.WriteErrorResponse(w, http.StatusServiceUnavailable, model.NewFeatureDisabledError("authentication"))
}

// featureDisabled は未設定の連携に依存するルートのハンドラーを返す。
func featureDisabled(feature string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteErrorResponse(w, http.StatusServiceUnavailable, model.NewFeatureDisabledError(feature))
	}
}

// healthCheck は稼働確認用のエンドポイント。
func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
