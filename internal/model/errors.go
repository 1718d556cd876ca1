// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, media, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeValidationFailed = "VALIDATION_FAILED"
	ErrCodeFeatureDisabled  = "FEATURE_DISABLED"
	ErrCodeMediaNotFound    = "MEDIA_NOT_FOUND"
	ErrCodeCatalogFailed    = "CATALOG_FAILED"
	ErrCodeUserNotFound     = "USER_NOT_FOUND"
	ErrCodeOnboardingFailed = "ONBOARDING_FAILED"
)

// NewUnauthorizedError は認証必須エラーを生成する。
// リダイレクトは行わず、401のJSONとして返すことを想定している。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "Authentication required",
		Category: "auth",
		Action:   "Please sign in and try again.",
	}
}

// NewValidationError は入力検証エラーを生成する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  fmt.Sprintf("Invalid request: %s", reason),
		Category: "validation",
		Action:   "Check the request payload and try again.",
	}
}

// NewFeatureDisabledError は未設定の連携に依存する操作へのエラーを生成する。
func NewFeatureDisabledError(feature string) *APIError {
	return &APIError{
		Code:     ErrCodeFeatureDisabled,
		Message:  fmt.Sprintf("The %s integration is not configured on this server.", feature),
		Category: "system",
		Action:   "Contact the administrator to enable this feature.",
	}
}

// NewMediaNotFoundError は保存済み分析の未検出エラーを生成する。
func NewMediaNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeMediaNotFound,
		Message:  fmt.Sprintf("Saved analysis not found: %s", id),
		Category: "media",
		Action:   "Check the analysis ID.",
	}
}

// NewCatalogFailedError はカタログ検索の失敗エラーを生成する。
func NewCatalogFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeCatalogFailed,
		Message:  fmt.Sprintf("Media catalog lookup failed: %s", reason),
		Category: "media",
		Action:   "Please try again later.",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "User not found",
		Category: "auth",
		Action:   "Please sign in again.",
	}
}

// NewOnboardingFailedError はオンボーディング処理の失敗エラーを生成する。
func NewOnboardingFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeOnboardingFailed,
		Message:  "Failed to complete onboarding",
		Category: "system",
		Action:   "Please try again later.",
	}
}
