// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ワーカーやサービス層から利用する。
type MetricsCollector interface {
	RecordAdmission(result string)
	RecordDispatchRejected(pool string)
	RecordAnalysisOutcome(outcome string)
	RecordAnalysisLatency(duration time.Duration)
	RecordTokensUsed(promptTokens, completionTokens int)
	RecordNotificationCreated(notificationType string)
	SetQueueDepth(pool string, depth int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	admissions           *prometheus.CounterVec
	dispatchRejected     *prometheus.CounterVec
	analysisOutcome      *prometheus.CounterVec
	analysisLatency      prometheus.Histogram
	promptTokens         prometheus.Counter
	completionTokens     prometheus.Counter
	notificationsCreated *prometheus.CounterVec
	queueDepth           *prometheus.GaugeVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		admissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "careerbuilder_analysis_admissions_total",
			Help: "AI分析リクエスト受付の結果別合計数",
		}, []string{"result"}),
		dispatchRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "careerbuilder_dispatch_rejected_total",
			Help: "キュー満杯によるタスク投入拒否のプール別合計数",
		}, []string{"pool"}),
		analysisOutcome: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "careerbuilder_analysis_outcome_total",
			Help: "AI分析ワーカーの終端結果別合計数",
		}, []string{"outcome"}),
		analysisLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "careerbuilder_analysis_latency_seconds",
			Help:    "AI分析の実行レイテンシ（秒）",
			Buckets: []float64{1, 2.5, 5, 10, 20, 30, 60, 120},
		}),
		promptTokens: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "careerbuilder_prompt_tokens_total",
			Help: "消費したプロンプトトークンの合計数",
		}),
		completionTokens: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "careerbuilder_completion_tokens_total",
			Help: "消費した生成トークンの合計数",
		}),
		notificationsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "careerbuilder_notifications_created_total",
			Help: "作成された通知の種別別合計数",
		}, []string{"type"}),
		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "careerbuilder_pool_queue_depth",
			Help: "ワーカープールの現在のキュー滞留数",
		}, []string{"pool"}),
	}

	reg.MustRegister(
		c.admissions,
		c.dispatchRejected,
		c.analysisOutcome,
		c.analysisLatency,
		c.promptTokens,
		c.completionTokens,
		c.notificationsCreated,
		c.queueDepth,
	)

	return c
}

// RecordAdmission は受付結果（accepted/rejected系コード）を記録する。
func (c *Collector) RecordAdmission(result string) {
	c.admissions.WithLabelValues(result).Inc()
}

// RecordDispatchRejected はキュー満杯による投入拒否を記録する。
func (c *Collector) RecordDispatchRejected(pool string) {
	c.dispatchRejected.WithLabelValues(pool).Inc()
}

// RecordAnalysisOutcome はワーカーの終端結果（success/failure）を記録する。
func (c *Collector) RecordAnalysisOutcome(outcome string) {
	c.analysisOutcome.WithLabelValues(outcome).Inc()
}

// RecordAnalysisLatency は分析実行のレイテンシを記録する。
func (c *Collector) RecordAnalysisLatency(duration time.Duration) {
	c.analysisLatency.Observe(duration.Seconds())
}

// RecordTokensUsed は消費トークン数を記録する。
func (c *Collector) RecordTokensUsed(promptTokens, completionTokens int) {
	c.promptTokens.Add(float64(promptTokens))
	c.completionTokens.Add(float64(completionTokens))
}

// RecordNotificationCreated は通知の作成を種別付きで記録する。
func (c *Collector) RecordNotificationCreated(notificationType string) {
	c.notificationsCreated.WithLabelValues(notificationType).Inc()
}

// SetQueueDepth はプールの現在のキュー滞留数を記録する。
func (c *Collector) SetQueueDepth(pool string, depth int) {
	c.queueDepth.WithLabelValues(pool).Set(float64(depth))
}

// NopCollector は何も記録しないMetricsCollector実装。テスト用。
type NopCollector struct{}

func (NopCollector) RecordAdmission(result string)                        {}
func (NopCollector) RecordDispatchRejected(pool string)                   {}
func (NopCollector) RecordAnalysisOutcome(outcome string)                 {}
func (NopCollector) RecordAnalysisLatency(duration time.Duration)         {}
func (NopCollector) RecordTokensUsed(promptTokens, completionTokens int)  {}
func (NopCollector) RecordNotificationCreated(notificationType string)    {}
func (NopCollector) SetQueueDepth(pool string, depth int)                 {}

var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = NopCollector{}
)

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
