// Package discernment はAIによるメディア分析機能を提供する。
// プロンプト構築、プロバイダー呼び出し、応答の正規化とフォールバックを含む。
package discernment

import (
	"fmt"
	"strings"
)

// promptTemplate は分析指示の固定ブロック。
// 応答のJSON形状とスコアリング基準をモデルに明示する。
// %s には作品のコンテキスト情報（タイトル・種別・年・あらすじ）が入る。
const promptTemplate = `
You are a Christian media discernment expert. Analyze %s and provide
a concise assessment from a biblical worldview.

Return your answer as **valid JSON** ONLY, with this exact shape:

{
  "discernmentScore": <number 0-100>,
  "faithAnalysis": "<2 short paragraphs, max 4-5 sentences total>",
  "tags": ["<short tag>", "..."],
  "verseText": "<Bible verse text, NLT>",
  "verseReference": "<Book chapter:verse (NLT)>",
  "alternatives": [
    { "title": "<title>", "reason": "<1 short sentence (max 15 words)>" },
    { "title": "<title>", "reason": "<1 short sentence (max 15 words)>" },
    { "title": "<title>", "reason": "<1 short sentence (max 15 words)>" }
  ]
}

Scoring guide:
- 85–100: Faith‑safe / uplifting / aligns with Christian values
- 65–84: Mixed / some concerns / use caution
- 0–64: Significant concern / not recommended for believers

In "faithAnalysis":
- Briefly highlight any occult, sexual, violent, or anti‑biblical content.
- Then give clear, pastoral guidance for Christians (no fear‑mongering).
`

// BuildPrompt は作品メタデータから分析プロンプトを構築する純粋関数。
// 同一入力に対して常にバイト単位で同一の出力を返す。
// 書籍の場合のみ語彙を変える（"published" / "Synopsis"）。
// mediaTypeが空の場合は"movie"として扱う。
// releaseYearとoverviewは任意で、空の場合は該当部分を省略する。
func BuildPrompt(title, mediaType, releaseYear, overview string) string {
	if mediaType == "" {
		mediaType = "movie"
	}
	isBook := mediaType == "book"

	contextInfo := `"` + title + `" (a ` + mediaType

	if releaseYear != "" {
		verb := "released"
		if isBook {
			verb = "published"
		}
		contextInfo += ", " + verb + " " + releaseYear
	}
	contextInfo += ")"

	if overview != "" {
		label := "Plot Summary"
		if isBook {
			label = "Synopsis"
		}
		contextInfo += "\n\n" + label + ": " + overview
	}

	return strings.TrimSpace(fmt.Sprintf(promptTemplate, contextInfo))
}
