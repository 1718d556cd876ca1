// Package config はアプリケーション全体の設定を提供する。
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	// defaultSessionSecret は開発用のフォールバック値。本番ではSESSION_SECRETを必ず設定すること。
	defaultSessionSecret = "development-secret-change-in-production"

	defaultPerplexityBaseURL = "https://api.perplexity.ai"
	defaultBaseURL           = "http://localhost:5000"
	defaultPort              = "5000"

	// defaultSessionMaxAge はセッションの絶対有効期間（30日）。
	defaultSessionMaxAge = 30 * 24 * 60 * 60
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
// 外部連携系の変数はすべて任意であり、未設定は「機能無効」を意味する。
// 設定されているが形式が不正な値のみがLoad時のエラーになる。
type Config struct {
	// Analysis provider (Perplexity, OpenAI互換API)
	PerplexityAPIKey  string
	PerplexityBaseURL string `validate:"omitempty,url"`
	AnalysisModel     string
	AnalysisTimeout   time.Duration

	// Media catalogs
	TMDBAPIKey     string
	LyricsAPIKey   string
	LyricsProvider string `validate:"omitempty,url"`

	// Database
	DatabaseURL string

	// OAuth
	GoogleClientID     string
	GoogleClientSecret string

	// Session
	SessionSecret string
	SessionMaxAge int

	// Webhook (Make.com)
	MakeWebhookURL string `validate:"omitempty,url"`

	// Server
	Port    string
	BaseURL string `validate:"omitempty,url"`

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string

	// Rate Limit（req/min/user）
	RateLimitGeneral int
	RateLimitAnalyze int
}

// Load は環境変数からConfigを読み込む。
// 未設定の変数はデフォルト値または空（機能無効）として扱う。
// 設定されているが形式不正な値（数値でないポート、URLでないベースURL等）は
// エラーを返し、起動を中断させる。
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// 任意の連携設定。未設定は機能無効を意味する。
	cfg.PerplexityAPIKey = os.Getenv("PERPLEXITY_API_KEY")
	cfg.PerplexityBaseURL = getEnvString("PERPLEXITY_BASE_URL", defaultPerplexityBaseURL)
	cfg.AnalysisModel = getEnvString("ANALYSIS_MODEL", "sonar-pro")
	cfg.TMDBAPIKey = os.Getenv("TMDB_API_KEY")
	cfg.LyricsAPIKey = os.Getenv("LYRICS_API_KEY")
	cfg.LyricsProvider = os.Getenv("LYRICS_PROVIDER")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.GoogleClientID = os.Getenv("GOOGLE_CLIENT_ID")
	cfg.GoogleClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	cfg.MakeWebhookURL = os.Getenv("MAKE_WEBHOOK_URL")

	cfg.SessionSecret = getEnvString("SESSION_SECRET", defaultSessionSecret)
	cfg.BaseURL = getEnvString("BASE_URL", defaultBaseURL)

	if cfg.Port, err = getEnvPort("PORT", defaultPort); err != nil {
		return nil, err
	}
	if cfg.SessionMaxAge, err = getEnvInt("SESSION_MAX_AGE", defaultSessionMaxAge); err != nil {
		return nil, err
	}
	if cfg.AnalysisTimeout, err = getEnvDuration("ANALYSIS_TIMEOUT", 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.RateLimitGeneral, err = getEnvInt("RATE_LIMIT_GENERAL", 120); err != nil {
		return nil, err
	}
	if cfg.RateLimitAnalyze, err = getEnvInt("RATE_LIMIT_ANALYZE", 10); err != nil {
		return nil, err
	}

	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", cfg.BaseURL)

	// 構造的な検証。値が存在するのに形式が不正な場合のみ失敗する。
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid environment configuration: %w", err)
	}

	return cfg, nil
}

// HasDatabase はデータベース連携が設定されているかを返す。
func (c *Config) HasDatabase() bool {
	return c.DatabaseURL != ""
}

// HasAuth はGoogle OAuth認証が有効化可能かを返す。
// セッション永続化にデータベースが必要なため、DATABASE_URLも条件に含む。
func (c *Config) HasAuth() bool {
	return c.HasDatabase() && c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// HasAnalysis はAI分析プロバイダーが設定されているかを返す。
func (c *Config) HasAnalysis() bool {
	return c.PerplexityAPIKey != ""
}

// HasTMDB はTMDBカタログ検索が設定されているかを返す。
func (c *Config) HasTMDB() bool {
	return c.TMDBAPIKey != ""
}

// HasLyrics は歌詞プロバイダーが設定されているかを返す。
func (c *Config) HasLyrics() bool {
	return c.LyricsProvider != "" && c.LyricsAPIKey != ""
}

// HasWebhook はMake Webhook連携が設定されているかを返す。
func (c *Config) HasWebhook() bool {
	return c.MakeWebhookURL != ""
}

// LogSummary は有効な連携の一覧を1行のログとして出力する。
// シークレット値そのものは決してログに含めない。
func (c *Config) LogSummary(logger *slog.Logger) {
	logger.Info("configuration loaded",
		slog.Bool("has_perplexity", c.HasAnalysis()),
		slog.Bool("has_tmdb", c.HasTMDB()),
		slog.Bool("has_database", c.HasDatabase()),
		slog.Bool("has_lyrics_provider", c.HasLyrics()),
		slog.Bool("has_make_webhook", c.HasWebhook()),
		slog.Bool("has_google_oauth", c.GoogleClientID != "" && c.GoogleClientSecret != ""),
		slog.String("port", c.Port),
		slog.String("base_url", c.BaseURL),
	)
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("environment variable %s must be an integer, got %q", key, v)
	}
	return i, nil
}

func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("environment variable %s must be a duration (e.g. \"60s\"), got %q", key, v)
	}
	return d, nil
}

func getEnvPort(key, defaultVal string) (string, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > 65535 {
		return "", fmt.Errorf("environment variable %s must be a port number, got %q", key, v)
	}
	return v, nil
}
