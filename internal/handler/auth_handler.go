// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/MikeLowry-021/sanctifai-core-v1/internal/middleware"
	"github.com/MikeLowry-021/sanctifai-core-v1/internal/model"
	"github.com/MikeLowry-021/sanctifai-core-v1/internal/webhook"
)

const oauthStateCookie = "oauth_state"

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	GetLoginURL(state string) string
	HandleCallback(ctx context.Context, code string) (*model.Session, error)
	Logout(ctx context.Context, sessionID string) error
	GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error)
	CompleteOnboarding(ctx context.Context, userID, whatsappNumber, marketingConsent string) (*model.User, error)
}

// OnboardingNotifier はオンボーディング完了の外部通知インターフェース。
// webhook.Notifierが実装する。nilの場合は通知しない。
type OnboardingNotifier interface {
	NotifyOnboarding(ctx context.Context, event webhook.OnboardingEvent) error
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	BaseURL       string
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler はOAuth認証関連のHTTPハンドラー。
type AuthHandler struct {
	service  AuthServiceInterface
	notifier OnboardingNotifier
	config   AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, notifier OnboardingNotifier, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service:  service,
		notifier: notifier,
		config:   config,
	}
}

// userResponse はAPIレスポンス用のユーザー表現。
type userResponse struct {
	ID                     string `json:"id"`
	Email                  string `json:"email"`
	FirstName              string `json:"firstName"`
	LastName               string `json:"lastName"`
	ProfileImageURL        string `json:"profileImageUrl"`
	WhatsappNumber         string `json:"whatsappNumber"`
	MarketingConsent       string `json:"marketingConsent"`
	HasCompletedOnboarding string `json:"hasCompletedOnboarding"`
}

func newUserResponse(user *model.User) userResponse {
	return userResponse{
		ID:                     user.ID,
		Email:                  user.Email,
		FirstName:              user.FirstName,
		LastName:               user.LastName,
		ProfileImageURL:        user.ProfileImageURL,
		WhatsappNumber:         user.WhatsappNumber,
		MarketingConsent:       user.MarketingConsent,
		HasCompletedOnboarding: user.HasCompletedOnboarding,
	}
}

// Login はGoogle OAuthフローを開始する。
// GET /api/auth/google
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	state, err := generateState()
	if err != nil {
		slog.Error("failed to generate oauth state", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	// stateをCookieに保存（CSRF対策）
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10分
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	url := h.service.GetLoginURL(state)
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// Callback はOAuthコールバックを処理する。
// 認証に失敗した場合はエラーパラメータ付きでトップページへリダイレクトする
// （ブラウザ遷移の途中なのでJSONエラーは返さない）。
// GET /api/auth/google/callback?code=xxx&state=yyy
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	// 1. stateの検証（CSRF対策）
	state := r.URL.Query().Get("state")
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || state == "" || stateCookie.Value != state {
		slog.Warn("oauth state mismatch",
			slog.String("query_state", state),
		)
		h.redirectWithError(w, r)
		return
	}

	// stateクッキーを削除
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	// 2. 認可コードの取得
	code := r.URL.Query().Get("code")
	if code == "" {
		h.redirectWithError(w, r)
		return
	}

	// 3. 認証処理
	session, err := h.service.HandleCallback(r.Context(), code)
	if err != nil {
		slog.Error("oauth callback failed", slog.String("error", err.Error()))
		h.redirectWithError(w, r)
		return
	}

	// 4. セッションCookieを設定（HTTP Only）
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    session.ID,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   h.config.SessionMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	// 5. フロントエンドにリダイレクト
	http.Redirect(w, r, h.config.BaseURL, http.StatusTemporaryRedirect)
}

// redirectWithError は認証失敗時のリダイレクトを行う。
func (h *AuthHandler) redirectWithError(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.config.BaseURL+"/?error=auth_failed", http.StatusTemporaryRedirect)
}

// Logout はセッションを破棄する。
// GET /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err == nil && cookie.Value != "" {
		if logoutErr := h.service.Logout(r.Context(), cookie.Value); logoutErr != nil {
			slog.Error("failed to logout", slog.String("error", logoutErr.Error()))
			// ログアウト失敗してもCookieはクリアする
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.config.BaseURL, http.StatusTemporaryRedirect)
}

// Me は現在のログインユーザー情報を返す。
// 未認証の場合も401ではなく、user: null / isAuthenticated: false の200を返す。
// フロントエンドは起動時に必ずこのエンドポイントをポーリングするため、
// 未認証を異常系として扱わない。
// GET /api/auth/user
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err != nil || cookie.Value == "" {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"user":            nil,
			"isAuthenticated": false,
		})
		return
	}

	user, err := h.service.GetCurrentUser(r.Context(), cookie.Value)
	if err != nil {
		slog.Error("failed to get current user", slog.String("error", err.Error()))
		user = nil
	}
	if user == nil {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"user":            nil,
			"isAuthenticated": false,
		})
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"user":            newUserResponse(user),
		"isAuthenticated": true,
	})
}

// onboardingRequest はオンボーディング完了リクエストのボディ。
// すべてのフィールドは省略可能で、空のボディでも完了扱いになる。
// marketingConsentはフロントエンドの世代によりboolと文字列の両方が届く。
type onboardingRequest struct {
	WhatsappNumber   string `json:"whatsappNumber"`
	MarketingConsent any    `json:"marketingConsent"`
}

// consentString はmarketingConsentをレガシーの"true"/"false"文字列に正規化する。
func (req *onboardingRequest) consentString() string {
	switch v := req.MarketingConsent.(type) {
	case bool:
		if v {
			return "true"
		}
	case string:
		if v == "true" {
			return "true"
		}
	}
	return "false"
}

// CompleteOnboarding はオンボーディング完了を記録する。
// 未認証の場合は401のJSONを返す（ブラウザ遷移ではなくXHR想定）。
// POST /api/auth/onboarding
func (h *AuthHandler) CompleteOnboarding(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req onboardingRequest
	if r.Body != nil {
		// ボディなし・不正なJSONでも続行する（フラグ遷移が主目的）
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	user, err := h.service.CompleteOnboarding(r.Context(), userID, req.WhatsappNumber, req.consentString())
	if err != nil {
		slog.Error("failed to complete onboarding",
			slog.String("error", err.Error()),
			slog.String("user_id", userID),
		)
		middleware.WriteErrorResponse(w, http.StatusInternalServerError, model.NewOnboardingFailedError())
		return
	}

	// ウェブフック通知は結果に影響させない
	if h.notifier != nil {
		if notifyErr := h.notifier.NotifyOnboarding(r.Context(), webhook.OnboardingEvent{
			Email:            user.Email,
			WhatsappNumber:   user.WhatsappNumber,
			MarketingConsent: user.MarketingConsent,
		}); notifyErr != nil {
			slog.Warn("onboarding webhook notification failed",
				slog.String("error", notifyErr.Error()),
			)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"user":    newUserResponse(user),
	})
}

// generateState はCSRF対策用のランダムなstate値を生成する。
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
