// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/MikeLowry-021/sanctifai-core-v1/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByGoogleID はGoogleのsubject IDでユーザーを検索する。見つからない場合はnilを返す。
	FindByGoogleID(ctx context.Context, googleID string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create は新規ユーザーを作成する。
	Create(ctx context.Context, user *model.User) error

	// LinkGoogleID は既存ユーザーにGoogle subject IDを紐付ける。
	// メールアドレス一致で特定された既存レコードへの後付けリンクに使用する。
	LinkGoogleID(ctx context.Context, userID, googleID string) error

	// UpdateOnboarding はオンボーディング情報を更新する。
	// has_completed_onboardingは常に"true"に遷移させる（空のペイロードでも完了扱い）。
	UpdateOnboarding(ctx context.Context, userID, whatsappNumber, marketingConsent string) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
	// DeleteExpired は期限切れセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}

// AnalysisRepository は分析結果（ライブラリ）の永続化インターフェース。
type AnalysisRepository interface {
	// Save は分析結果をユーザーのライブラリに保存する。
	Save(ctx context.Context, saved *model.SavedAnalysis) error

	// FindByID は指定IDの保存済み分析を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.SavedAnalysis, error)

	// ListByUserID はユーザーのライブラリをcreated_at降順で返す。
	ListByUserID(ctx context.Context, userID string, limit int) ([]*model.SavedAnalysis, error)

	// ListPublic は公開設定の分析結果をcreated_at降順で返す（コミュニティフィード用）。
	ListPublic(ctx context.Context, limit int) ([]*model.SavedAnalysis, error)
}
