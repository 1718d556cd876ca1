package discernment

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/MikeLowry-021/sanctifai-core-v1/internal/model"
)

// systemPrompt は各リクエストに付与するシステムメッセージ。
// 実在するレビューやペアレンタルガイドを根拠にしたスコアリングへ誘導する。
const systemPrompt = "You are an expert media analyst with real-time web access. " +
	"Search for the specific title's parents guide, plot themes, and reviews " +
	"before generating the discernment score. Be precise and cite sources."

// MetricsRecorder は分析メトリクスの記録インターフェース。
// metrics.Collectorが実装する。nilの場合は記録しない。
type MetricsRecorder interface {
	RecordAnalysis(status model.AnalysisStatus)
	RecordAnalysisLatency(duration time.Duration)
}

// AnalyzerConfig はAnalyzerの設定。
type AnalyzerConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration

	// HTTPClient はテスト用に差し替え可能なHTTPクライアント。
	// nilの場合はSDKのデフォルトを使用する。
	HTTPClient *http.Client
}

// AnalysisRequest は1作品の分析リクエスト。
type AnalysisRequest struct {
	Title       string
	MediaType   string
	ReleaseYear string
	Overview    string
}

// Analyzer はチャット補完APIへの1リクエスト＝1分析のアダプター。
// APIキー未設定の場合はクライアントを構築せず、ネットワークI/Oなしで
// 「サービス利用不可」のフォールバックを返す。
// リトライ・バックオフ・結果キャッシュは行わない。
type Analyzer struct {
	config     AnalyzerConfig
	client     *openai.Client // APIキー未設定の場合はnil
	normalizer *Normalizer
	logger     *slog.Logger
	metrics    MetricsRecorder
}

// NewAnalyzer はAnalyzerを生成する。
// APIキーが設定されている場合のみプロバイダークライアントを構築する。
// リクエストタイムアウトは明示的に設定し、超過は通信エラーとして扱う。
func NewAnalyzer(config AnalyzerConfig, normalizer *Normalizer, logger *slog.Logger, metrics MetricsRecorder) *Analyzer {
	a := &Analyzer{
		config:     config,
		normalizer: normalizer,
		logger:     logger,
		metrics:    metrics,
	}

	if config.APIKey == "" {
		return a
	}

	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithBaseURL(config.BaseURL),
		// 冪等な1リクエスト＝1分析を保つため、SDK内部のリトライは無効化する
		option.WithMaxRetries(0),
	}
	if config.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(config.Timeout))
	}
	if config.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(config.HTTPClient))
	}

	client := openai.NewClient(opts...)
	a.client = &client

	return a
}

// Available はプロバイダークライアントが構築済みかを返す。
func (a *Analyzer) Available() bool {
	return a.client != nil
}

// AnalyzeMedia は1作品の分析を実行する。エラーは決して返さない。
// すべての失敗経路は完全な形のフォールバック結果に解決される:
//   - APIキー未設定   → Status=unavailable、タグ "service-unavailable"（ネットワークI/Oなし）
//   - 通信・HTTPエラー → Status=error、タグ "analysis-error"
//   - 応答のパース失敗 → Status=error、タグ "analysis-error"
//
// フォールバックはスコア50で呼び出し元に同じ形で渡るが、Statusフィールドに
// より「分析済みのスコア50」とは区別できる。
func (a *Analyzer) AnalyzeMedia(ctx context.Context, req AnalysisRequest) model.DiscernmentAnalysis {
	if a.client == nil {
		a.logger.Warn("analysis service unavailable: no API key configured",
			slog.String("title", req.Title),
		)
		return a.record(unavailableFallback())
	}

	prompt := BuildPrompt(req.Title, req.MediaType, req.ReleaseYear, req.Overview)

	a.logger.Info("analyzing media",
		slog.String("title", req.Title),
		slog.String("media_type", req.MediaType),
		slog.String("release_year", req.ReleaseYear),
	)

	start := time.Now()

	completion, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(a.config.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		},
	})
	if a.metrics != nil {
		a.metrics.RecordAnalysisLatency(time.Since(start))
	}
	if err != nil {
		a.logger.Error("analysis provider request failed",
			slog.String("title", req.Title),
			slog.String("error", err.Error()),
		)
		return a.record(errorFallback())
	}

	if len(completion.Choices) == 0 {
		a.logger.Error("analysis provider returned no choices",
			slog.String("title", req.Title),
		)
		return a.record(errorFallback())
	}

	raw := strings.TrimSpace(completion.Choices[0].Message.Content)

	result, err := a.normalizer.Normalize(raw)
	if err != nil {
		a.logger.Error("failed to parse analysis response",
			slog.String("title", req.Title),
			slog.String("error", err.Error()),
		)
		return a.record(errorFallback())
	}

	return a.record(result)
}

// record はメトリクスを記録して結果をそのまま返す。
func (a *Analyzer) record(result model.DiscernmentAnalysis) model.DiscernmentAnalysis {
	if a.metrics != nil {
		a.metrics.RecordAnalysis(result.Status)
	}
	return result
}

// unavailableFallback はAPIキー未設定時のフォールバック結果を返す。
func unavailableFallback() model.DiscernmentAnalysis {
	return model.DiscernmentAnalysis{
		DiscernmentScore: defaultScore,
		FaithAnalysis:    "AI service is unavailable right now.",
		Tags:             []string{"service-unavailable"},
		VerseText:        "",
		VerseReference:   "",
		Alternatives:     []model.Alternative{},
		Status:           model.AnalysisStatusUnavailable,
	}
}

// errorFallback は通信・パース失敗時のフォールバック結果を返す。
// UIが常に何かを表示できるよう、牧会的な代替メッセージを含む。
func errorFallback() model.DiscernmentAnalysis {
	return model.DiscernmentAnalysis{
		DiscernmentScore: defaultScore,
		FaithAnalysis: "We encountered an issue while generating a full discernment analysis " +
			"for this title. Please try again later, or use prayerful wisdom and biblical " +
			"principles as you decide whether to watch or read this content.",
		Tags:           []string{"analysis-error"},
		VerseText:      "",
		VerseReference: "",
		Alternatives:   []model.Alternative{},
		Status:         model.AnalysisStatusError,
	}
}
