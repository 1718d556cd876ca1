// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// GoogleIDは初回のGoogleログイン時に設定される。メールアドレスが一致する
// 既存レコードがあれば、GoogleIDを後から紐付ける（重複レコードは作らない）。
// HasCompletedOnboardingとMarketingConsentは従来スキーマとの互換のため
// "true"/"false" の文字列フラグとして保持する。
type User struct {
	ID                     string
	Email                  string
	GoogleID               string
	FirstName              string
	LastName               string
	ProfileImageURL        string
	WhatsappNumber         string
	MarketingConsent       string
	HasCompletedOnboarding string
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// Session はユーザーのログインセッションを表す。
// ExpiresAtは作成時点から30日の絶対期限であり、アクセスによる延長は行わない。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
