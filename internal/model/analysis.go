// Package model はドメインモデルを定義する。
package model

import "time"

// AnalysisStatus は分析結果の生成経路を表す。
// スコア50のフォールバックと「本当にスコア50と分析された」結果を
// 呼び出し元が区別できるようにするためのタグ。
type AnalysisStatus string

const (
	// AnalysisStatusOK はプロバイダーの応答から正常に生成された結果を示す。
	AnalysisStatusOK AnalysisStatus = "ok"
	// AnalysisStatusUnavailable はAPIキー未設定により分析を実行できなかったことを示す。
	AnalysisStatusUnavailable AnalysisStatus = "unavailable"
	// AnalysisStatusError は通信エラーや応答の解析失敗によるフォールバックを示す。
	AnalysisStatusError AnalysisStatus = "error"
)

// Alternative は代替作品の推薦を表す。
type Alternative struct {
	Title  string `json:"title"`
	Reason string `json:"reason"`
}

// DiscernmentAnalysis は1作品に対するAI分析結果の値オブジェクト。
// 構築後は不変として扱う。全フィールドは常に存在し型が保証される。
// プロバイダーの応答にフィールドが欠けていても、呼び出し元には
// 空文字列・空スライスで埋めた完全な形を渡す。
type DiscernmentAnalysis struct {
	DiscernmentScore int            `json:"discernmentScore"`
	FaithAnalysis    string         `json:"faithAnalysis"`
	Tags             []string       `json:"tags"`
	VerseText        string         `json:"verseText"`
	VerseReference   string         `json:"verseReference"`
	Alternatives     []Alternative  `json:"alternatives"`
	Status           AnalysisStatus `json:"status"`
}

// SavedAnalysis はユーザーのライブラリに保存された分析結果を表す。
// IsPublicがtrueのレコードはコミュニティフィードに表示される。
type SavedAnalysis struct {
	ID          string
	UserID      string
	Title       string
	MediaType   string
	ReleaseYear string
	PosterURL   string
	Analysis    DiscernmentAnalysis
	IsPublic    bool
	CreatedAt   time.Time
}

// MediaResult は外部カタログ（TMDB等）から取得した作品メタデータを表す。
type MediaResult struct {
	Title       string `json:"title"`
	MediaType   string `json:"mediaType"`
	ReleaseYear string `json:"releaseYear"`
	Overview    string `json:"overview"`
	PosterURL   string `json:"posterUrl"`
}
