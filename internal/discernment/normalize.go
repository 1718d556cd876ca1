package discernment

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/MikeLowry-021/sanctifai-core-v1/internal/model"
	"github.com/MikeLowry-021/sanctifai-core-v1/internal/security"
)

const (
	// defaultScore はスコアが欠落・不正な場合の代替値。
	defaultScore = 50

	// defaultFaithAnalysis は分析本文が欠落した場合の代替文。
	defaultFaithAnalysis = "No analysis was provided."
)

// Normalizer はプロバイダー応答のJSONをDiscernmentAnalysisに正規化する。
// ネットワークI/Oから独立しており、生のペイロードを注入してテストできる。
type Normalizer struct {
	sanitizer security.TextSanitizerService
}

// NewNormalizer はNormalizerを生成する。
func NewNormalizer(sanitizer security.TextSanitizerService) *Normalizer {
	return &Normalizer{sanitizer: sanitizer}
}

// Normalize は生の応答テキストをパースし、全フィールドを型強制した結果を返す。
// JSONとしてパースできない場合のみエラーを返す。パースに成功した場合は、
// フィールドの欠落・型不一致をすべてデフォルト値で補い、必ず完全な形の
// DiscernmentAnalysisを返す（呼び出し元が欠落フィールドを見ることはない）。
// テキストフィールドはHTMLタグを除去してから返す。
func (n *Normalizer) Normalize(raw string) (model.DiscernmentAnalysis, error) {
	var parsed map[string]any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return model.DiscernmentAnalysis{}, fmt.Errorf("failed to parse analysis response as JSON: %w", err)
	}

	result := model.DiscernmentAnalysis{
		DiscernmentScore: coerceScore(parsed["discernmentScore"]),
		FaithAnalysis:    n.coerceText(parsed["faithAnalysis"], defaultFaithAnalysis),
		Tags:             n.coerceTags(parsed["tags"]),
		VerseText:        n.coerceText(parsed["verseText"], ""),
		VerseReference:   n.coerceText(parsed["verseReference"], ""),
		Alternatives:     n.coerceAlternatives(parsed["alternatives"]),
		Status:           model.AnalysisStatusOK,
	}

	return result, nil
}

// coerceScore はスコアを整数に強制する。
// 数値・数値文字列を受け付け、それ以外（欠落、非数値文字列、真偽値等）は
// defaultScoreを返す。
func coerceScore(v any) int {
	switch s := v.(type) {
	case float64:
		return int(s)
	case json.Number:
		if f, err := s.Float64(); err == nil {
			return int(f)
		}
	case string:
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int(f)
		}
	}
	return defaultScore
}

// coerceText は文字列フィールドを強制する。非文字列・欠落はdefaultValを返す。
func (n *Normalizer) coerceText(v any, defaultVal string) string {
	s, ok := v.(string)
	if !ok || s == "" {
		return defaultVal
	}
	return n.sanitizer.Sanitize(s)
}

// coerceTags はタグ列を文字列スライスに強制する。
// 配列でない場合は空スライスを返す。配列要素のうちスカラー値は
// 文字列化して採用し、オブジェクト等は捨てる。
func (n *Normalizer) coerceTags(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return []string{}
	}

	tags := make([]string, 0, len(arr))
	for _, item := range arr {
		switch t := item.(type) {
		case string:
			if s := n.sanitizer.Sanitize(t); s != "" {
				tags = append(tags, s)
			}
		case float64:
			tags = append(tags, strconv.FormatFloat(t, 'f', -1, 64))
		case bool:
			tags = append(tags, strconv.FormatBool(t))
		}
	}
	return tags
}

// coerceAlternatives は代替作品リストを強制する。
// 配列でない場合は空スライスを返す。各要素のtitle/reasonは独立に
// デフォルト（空文字列）へフォールバックする。
func (n *Normalizer) coerceAlternatives(v any) []model.Alternative {
	arr, ok := v.([]any)
	if !ok {
		return []model.Alternative{}
	}

	alts := make([]model.Alternative, 0, len(arr))
	for _, item := range arr {
		alt := model.Alternative{}
		if obj, ok := item.(map[string]any); ok {
			if title, ok := obj["title"].(string); ok {
				alt.Title = n.sanitizer.Sanitize(title)
			}
			if reason, ok := obj["reason"].(string); ok {
				alt.Reason = n.sanitizer.Sanitize(reason)
			}
		}
		alts = append(alts, alt)
	}
	return alts
}
