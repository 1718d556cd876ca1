// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MikeLowry-021/sanctifai-core-v1/internal/model"
)

// Collector はPrometheusメトリクスを収集する実装。
// 分析結果のステータス別カウント、HTTPステータス、レイテンシを記録する。
type Collector struct {
	analysisTotal   *prometheus.CounterVec
	analysisLatency prometheus.Histogram
	httpStatus      *prometheus.CounterVec
	analysesSaved   prometheus.Counter
	sessionsSwept   prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		analysisTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sanctifai_analysis_total",
			Help: "分析リクエストのステータス別合計数",
		}, []string{"status"}),
		analysisLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sanctifai_analysis_latency_seconds",
			Help:    "AI分析プロバイダー呼び出しのレイテンシ（秒）",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60},
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sanctifai_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		analysesSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sanctifai_analyses_saved_total",
			Help: "ライブラリに保存された分析結果の合計数",
		}),
		sessionsSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sanctifai_sessions_swept_total",
			Help: "クリーンアップで削除された期限切れセッションの合計数",
		}),
	}

	reg.MustRegister(
		c.analysisTotal,
		c.analysisLatency,
		c.httpStatus,
		c.analysesSaved,
		c.sessionsSwept,
	)

	return c
}

// RecordAnalysis は分析結果をステータス別に記録する。
func (c *Collector) RecordAnalysis(status model.AnalysisStatus) {
	c.analysisTotal.WithLabelValues(string(status)).Inc()
}

// RecordAnalysisLatency はAI分析呼び出しのレイテンシを記録する。
func (c *Collector) RecordAnalysisLatency(duration time.Duration) {
	c.analysisLatency.Observe(duration.Seconds())
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordAnalysisSaved はライブラリ保存を記録する。
func (c *Collector) RecordAnalysisSaved() {
	c.analysesSaved.Inc()
}

// RecordSessionsSwept は削除された期限切れセッション数を記録する。
func (c *Collector) RecordSessionsSwept(count int64) {
	c.sessionsSwept.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
