package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/MikeLowry-021/sanctifai-core-v1/internal/auth"
	"github.com/MikeLowry-021/sanctifai-core-v1/internal/catalog"
	"github.com/MikeLowry-021/sanctifai-core-v1/internal/config"
	"github.com/MikeLowry-021/sanctifai-core-v1/internal/database"
	"github.com/MikeLowry-021/sanctifai-core-v1/internal/discernment"
	"github.com/MikeLowry-021/sanctifai-core-v1/internal/handler"
	"github.com/MikeLowry-021/sanctifai-core-v1/internal/logger"
	"github.com/MikeLowry-021/sanctifai-core-v1/internal/lyrics"
	"github.com/MikeLowry-021/sanctifai-core-v1/internal/metrics"
	"github.com/MikeLowry-021/sanctifai-core-v1/internal/middleware"
	"github.com/MikeLowry-021/sanctifai-core-v1/internal/repository"
	"github.com/MikeLowry-021/sanctifai-core-v1/internal/security"
	"github.com/MikeLowry-021/sanctifai-core-v1/internal/webhook"
	"github.com/MikeLowry-021/sanctifai-core-v1/internal/worker/cleanup"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("PORT")
		if port == "" {
			port = "5000"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
	)
	cfg.LogSummary(slog.Default())

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// 設定済みの連携のみワイヤリングし、未設定の連携に対応する機能は
// 無効化したままHTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 1. メトリクス
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 2. DB接続（任意。DATABASE_URL未設定なら分析保存と認証は無効）
	var db *sql.DB
	var sessionRepo repository.SessionRepository
	var analysisRepo repository.AnalysisRepository
	var userRepo repository.UserRepository

	if cfg.HasDatabase() {
		var err error
		db, err = database.Open(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		if err := db.Ping(); err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}

		slog.Info("database connection established")

		userRepo = repository.NewPostgresUserRepo(db)
		sessionRepo = repository.NewPostgresSessionRepo(db)
		analysisRepo = repository.NewPostgresAnalysisRepo(db)
	} else {
		slog.Warn("DATABASE_URL not set; library and authentication are disabled")
	}

	// 3. 分析パイプライン（APIキー未設定でもフォールバック応答を返すため常に構築する）
	sanitizer := security.NewTextSanitizer()
	normalizer := discernment.NewNormalizer(sanitizer)
	analyzer := discernment.NewAnalyzer(discernment.AnalyzerConfig{
		APIKey:  cfg.PerplexityAPIKey,
		BaseURL: cfg.PerplexityBaseURL,
		Model:   cfg.AnalysisModel,
		Timeout: cfg.AnalysisTimeout,
	}, normalizer, slog.Default(), collector)

	// 4. 認証サービス（Google OAuth + DBの両方が揃った場合のみ）
	var authService handler.AuthServiceInterface
	if cfg.HasAuth() {
		oauthProvider := auth.NewGoogleOAuthProvider(auth.GoogleOAuthConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.BaseURL + "/api/auth/google/callback",
		})
		authService = auth.NewService(
			oauthProvider, userRepo, sessionRepo,
			auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge},
		)
	} else {
		slog.Warn("google oauth not fully configured; authentication is disabled")
	}

	// 5. 外部連携クライアント
	var catalogClient handler.CatalogSearcher
	if cfg.HasTMDB() {
		catalogClient = catalog.NewClient(
			cfg.TMDBAPIKey,
			&http.Client{Timeout: 10 * time.Second},
			slog.Default(),
		)
	}

	var lyricsClient handler.LyricsFetcher
	if cfg.HasLyrics() {
		lyricsClient = lyrics.NewClient(
			cfg.LyricsAPIKey, cfg.LyricsProvider,
			&http.Client{Timeout: 10 * time.Second},
			slog.Default(),
		)
	}

	var notifier handler.OnboardingNotifier
	if cfg.HasWebhook() {
		notifier = webhook.NewNotifier(
			cfg.MakeWebhookURL,
			&http.Client{Timeout: 10 * time.Second},
			slog.Default(),
		)
	}

	// 6. レート制限（req/min設定をreq/secに変換する）
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	rateLimiterCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
	rateLimiterCfg.GeneralBurst = cfg.RateLimitGeneral
	rateLimiterCfg.AnalyzeRate = rate.Limit(float64(cfg.RateLimitAnalyze) / 60.0)
	rateLimiterCfg.AnalyzeBurst = cfg.RateLimitAnalyze

	// 7. セッションクリーンアップジョブ（DB接続がある場合のみ）
	if sessionRepo != nil {
		cleanupJob := cleanup.NewCleanupJob(sessionRepo, slog.Default(), collector)
		go cleanupJob.Start(ctx)
	}

	// 8. ルーターの構築
	deps := &handler.RouterDeps{
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       middleware.NewRateLimiter(rateLimiterCfg),
		MetricsRecorder:   collector,
		MetricsHandler:    metrics.Handler(registry),

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			BaseURL:       cfg.BaseURL,
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},
		Notifier: notifier,

		Analyzer:     analyzer,
		Lyrics:       lyricsClient,
		SaveRecorder: collector,

		Catalog:      catalogClient,
		AnalysisRepo: analysisRepo,

		Logger: slog.Default(),
	}
	if sessionRepo != nil {
		deps.SessionFinder = sessionRepo
	}

	router := handler.NewRouter(deps)

	// 9. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second, // AI分析は最大60秒かかるため長めに取る
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	if !cfg.HasDatabase() {
		return fmt.Errorf("DATABASE_URL is required for migrations")
	}

	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /api/health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/api/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
