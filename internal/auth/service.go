// Package auth はGoogle OAuth認証フロー、セッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MikeLowry-021/sanctifai-core-v1/internal/model"
	"github.com/MikeLowry-021/sanctifai-core-v1/internal/repository"
)

// GoogleUserProfile はOAuthプロバイダーから取得したユーザープロフィールを表す。
type GoogleUserProfile struct {
	GoogleID        string
	Email           string
	FirstName       string
	LastName        string
	ProfileImageURL string
}

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
// テストではモック実装に差し替える。
type OAuthProvider interface {
	// GetLoginURL はOAuth認証URLを生成する。
	GetLoginURL(state string) string
	// ExchangeCode は認可コードをトークンに交換し、ユーザー情報を取得する。
	ExchangeCode(ctx context.Context, code string) (*GoogleUserProfile, error)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// Service は認証に関するビジネスロジックを提供する。
// セッションの有効期限は発行時刻からの絶対値で、アクセスによって延長されない。
type Service struct {
	oauth       OAuthProvider
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	config      ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	oauth OAuthProvider,
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	config ServiceConfig,
) *Service {
	return &Service{
		oauth:       oauth,
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		config:      config,
	}
}

// GetLoginURL はOAuth認証URLを生成する。
func (s *Service) GetLoginURL(state string) string {
	return s.oauth.GetLoginURL(state)
}

// HandleCallback はOAuthコールバックを処理し、セッションを発行する。
// ユーザーの特定は3段階で行う:
//  1. google_idが一致する既存ユーザーがいればそのままログイン
//  2. いなければemailが一致する既存ユーザーを探し、google_idをリンクしてログイン
//  3. どちらもいなければ新規ユーザーを作成する
func (s *Service) HandleCallback(ctx context.Context, code string) (*model.Session, error) {
	profile, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange oauth code: %w", err)
	}

	// emailはユーザー特定キーのため必須。返されない場合はログイン失敗として扱う
	if profile.Email == "" {
		return nil, fmt.Errorf("oauth provider returned no email for subject %q", profile.GoogleID)
	}

	user, err := s.upsertUser(ctx, profile)
	if err != nil {
		return nil, err
	}

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, nil
}

// upsertUser はGoogleプロフィールからユーザーを特定または作成する。
func (s *Service) upsertUser(ctx context.Context, profile *GoogleUserProfile) (*model.User, error) {
	// 1. google_idで既存ユーザーを検索
	user, err := s.userRepo.FindByGoogleID(ctx, profile.GoogleID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by google ID: %w", err)
	}
	if user != nil {
		slog.Info("existing user logged in", slog.String("user_id", user.ID))
		return user, nil
	}

	// 2. emailで既存ユーザーを検索し、あればgoogle_idをリンク
	if profile.Email != "" {
		user, err = s.userRepo.FindByEmail(ctx, profile.Email)
		if err != nil {
			return nil, fmt.Errorf("failed to find user by email: %w", err)
		}
		if user != nil {
			if err := s.userRepo.LinkGoogleID(ctx, user.ID, profile.GoogleID); err != nil {
				return nil, fmt.Errorf("failed to link google ID: %w", err)
			}
			user.GoogleID = profile.GoogleID
			slog.Info("linked google account to existing user",
				slog.String("user_id", user.ID),
			)
			return user, nil
		}
	}

	// 3. 新規ユーザーを作成
	now := time.Now()
	newUser := &model.User{
		ID:                     uuid.New().String(),
		Email:                  profile.Email,
		GoogleID:               profile.GoogleID,
		FirstName:              profile.FirstName,
		LastName:               profile.LastName,
		ProfileImageURL:        profile.ProfileImageURL,
		MarketingConsent:       "false",
		HasCompletedOnboarding: "false",
		CreatedAt:              now,
		UpdatedAt:              now,
	}

	if err := s.userRepo.Create(ctx, newUser); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("new user created",
		slog.String("user_id", newUser.ID),
		slog.String("email", newUser.Email),
	)

	return newUser, nil
}

// CompleteOnboarding はユーザーのオンボーディング完了を記録する。
// フラグは常に "true" へ遷移し、二度目以降の呼び出しも成功として扱う。
func (s *Service) CompleteOnboarding(ctx context.Context, userID, whatsappNumber, marketingConsent string) (*model.User, error) {
	if err := s.userRepo.UpdateOnboarding(ctx, userID, whatsappNumber, marketingConsent); err != nil {
		return nil, fmt.Errorf("failed to update onboarding: %w", err)
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user not found after onboarding update")
	}

	slog.Info("onboarding completed", slog.String("user_id", userID))
	return user, nil
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("user logged out", slog.String("session_id", sessionID))
	return nil
}

// GetCurrentUser はセッションから現在のユーザーを取得する。
// セッションが期限切れ・不在の場合やユーザーが見つからない場合はnilを返す。
func (s *Service) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if sessionID == "" {
		return nil, nil
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, nil
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return user, nil
}

// createSession はセッションを作成し永続化する。
// 有効期限は発行時刻 + SessionMaxAge の絶対値。
func (s *Service) createSession(ctx context.Context, userID string) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	session := &model.Session{
		ID:        sessionID,
		UserID:    userID,
		ExpiresAt: time.Now().Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: time.Now(),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
