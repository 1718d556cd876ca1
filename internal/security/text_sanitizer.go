// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizerService はAI分析結果のテキストフィールドをサニタイズし、
// プロバイダー応答に混入したHTMLやスクリプトがそのままUIに届くことを防ぐ。
// bluemondayのStrictPolicyを使用し、タグを一切許可しないプレーンテキスト化を行う。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizerService はテキストサニタイズ機能のインターフェースを定義する。
// AI応答の正規化時に使用される。
type TextSanitizerService interface {
	// Sanitize は入力からすべてのHTMLタグを除去したプレーンテキストを返す。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// textSanitizer はTextSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicy（許可タグなし）を使用するため、AI応答中のHTMLはすべて除去される。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は入力からすべてのHTMLタグを除去したプレーンテキストを返す。
// bluemondayはテキストをHTMLエスケープするため、タグ除去後にアンエスケープして
// 元の文字（引用符やアンパサンド等）を復元する。
func (s *textSanitizer) Sanitize(raw string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(raw)))
}

// compile-time interface check
var _ TextSanitizerService = (*textSanitizer)(nil)
