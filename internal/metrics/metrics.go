// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ワーカーやサービス層から利用する。
type MetricsCollector interface {
	RecordNotificationCreated(notificationType string)
	RecordNotificationFailed(notificationType string)
	RecordGateDecision(allowed bool)
	RecordGateFailure()
	RecordFailedLogin()
	RecordDeadlineScan(duration time.Duration, created int)
	RecordHTTPStatus(statusCode int)
	RecordRealtimeEvent(table string)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	notificationsCreated *prometheus.CounterVec
	notificationsFailed  *prometheus.CounterVec
	gateDecisions        *prometheus.CounterVec
	gateFailures         prometheus.Counter
	failedLogins         prometheus.Counter
	deadlineScanLatency  prometheus.Histogram
	deadlineCreated      prometheus.Counter
	httpStatus           *prometheus.CounterVec
	realtimeEvents       *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		notificationsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ciachr_notifications_created_total",
			Help: "作成された通知の種別ごとの合計数",
		}, []string{"type"}),
		notificationsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ciachr_notifications_failed_total",
			Help: "作成に失敗した通知の種別ごとの合計数",
		}, []string{"type"}),
		gateDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ciachr_gate_decisions_total",
			Help: "IPアクセスゲートの判定結果ごとの合計数",
		}, []string{"result"}),
		gateFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ciachr_gate_failures_total",
			Help: "判定処理の失敗・タイムアウトにより拒否した合計数",
		}),
		failedLogins: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ciachr_failed_logins_total",
			Help: "記録したログイン失敗の合計数",
		}),
		deadlineScanLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ciachr_deadline_scan_seconds",
			Help:    "期限走査の所要時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		deadlineCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ciachr_deadline_notifications_total",
			Help: "期限走査で作成した通知の合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ciachr_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		realtimeEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ciachr_realtime_events_total",
			Help: "受信した変更通知のテーブル別合計数",
		}, []string{"table"}),
	}

	reg.MustRegister(
		c.notificationsCreated,
		c.notificationsFailed,
		c.gateDecisions,
		c.gateFailures,
		c.failedLogins,
		c.deadlineScanLatency,
		c.deadlineCreated,
		c.httpStatus,
		c.realtimeEvents,
	)

	return c
}

// RecordNotificationCreated は通知の作成を記録する。
func (c *Collector) RecordNotificationCreated(notificationType string) {
	c.notificationsCreated.WithLabelValues(notificationType).Inc()
}

// RecordNotificationFailed は通知作成の失敗を記録する。
func (c *Collector) RecordNotificationFailed(notificationType string) {
	c.notificationsFailed.WithLabelValues(notificationType).Inc()
}

// RecordGateDecision はゲートの判定結果を記録する。
func (c *Collector) RecordGateDecision(allowed bool) {
	result := "denied"
	if allowed {
		result = "allowed"
	}
	c.gateDecisions.WithLabelValues(result).Inc()
}

// RecordGateFailure は判定処理の失敗を記録する。
func (c *Collector) RecordGateFailure() {
	c.gateFailures.Inc()
}

// RecordFailedLogin はログイン失敗の記録を数える。
func (c *Collector) RecordFailedLogin() {
	c.failedLogins.Inc()
}

// RecordDeadlineScan は期限走査の所要時間と作成件数を記録する。
func (c *Collector) RecordDeadlineScan(duration time.Duration, created int) {
	c.deadlineScanLatency.Observe(duration.Seconds())
	c.deadlineCreated.Add(float64(created))
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRealtimeEvent は変更通知の受信を記録する。
func (c *Collector) RecordRealtimeEvent(table string) {
	c.realtimeEvents.WithLabelValues(table).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
