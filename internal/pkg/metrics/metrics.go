// Package metrics 定義 Prometheus 指標
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics 所有指標；nil 接收者的方法皆為 no-op
type Metrics struct {
	// HTTP
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// OCR
	OCREngineDuration *prometheus.HistogramVec
	OCRSelected       *prometheus.CounterVec

	// Pipeline
	PipelineRuns   *prometheus.CounterVec
	PipelinePasses prometheus.Histogram
	MissingFields  prometheus.Histogram

	// AI
	AIRequests *prometheus.CounterVec
	AIDuration *prometheus.HistogramVec

	// Queue
	QueueDepth  prometheus.Gauge
	QueueActive prometheus.Gauge
}

// New 建立指標並註冊到 reg；reg 為 nil 時使用預設 registry
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		RequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recipe_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "recipe_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"method", "path"},
		),

		OCREngineDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "recipe_ocr_engine_duration_seconds",
				Help:    "OCR engine run duration in seconds",
				Buckets: []float64{.1, .5, 1, 2.5, 5, 10, 20, 45, 90},
			},
			[]string{"engine", "status"},
		),
		OCRSelected: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recipe_ocr_selected_total",
				Help: "Number of times an OCR engine produced the selected text",
			},
			[]string{"engine"},
		),

		PipelineRuns: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recipe_pipeline_runs_total",
				Help: "Total number of pipeline runs",
			},
			[]string{"status"},
		),
		PipelinePasses: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "recipe_pipeline_ai_passes",
				Help:    "AI passes executed per pipeline run",
				Buckets: []float64{0, 1, 2, 3, 4, 5},
			},
		),
		MissingFields: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "recipe_pipeline_missing_fields",
				Help:    "Missing fields left after a pipeline run",
				Buckets: []float64{0, 1, 2, 4, 8, 12, 16, 20, 30},
			},
		),

		AIRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recipe_ai_requests_total",
				Help: "Total number of AI completion requests",
			},
			[]string{"provider", "status"},
		),
		AIDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "recipe_ai_request_duration_seconds",
				Help:    "AI completion request duration in seconds",
				Buckets: []float64{.25, .5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"provider"},
		),

		QueueDepth: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "recipe_queue_depth",
				Help: "Number of jobs waiting in the queue",
			},
		),
		QueueActive: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "recipe_queue_active_workers",
				Help: "Number of workers currently processing a job",
			},
		),
	}
}

// ObserveRequest 記錄 HTTP 請求
func (m *Metrics) ObserveRequest(method, path, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

// ObserveOCR 記錄單一 OCR 引擎執行
func (m *Metrics) ObserveOCR(engine, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.OCREngineDuration.WithLabelValues(engine, status).Observe(d.Seconds())
}

// OCRWinner 記錄被選中的引擎
func (m *Metrics) OCRWinner(engine string) {
	if m == nil || engine == "" {
		return
	}
	m.OCRSelected.WithLabelValues(engine).Inc()
}

// ObservePipeline 記錄一次流程執行
func (m *Metrics) ObservePipeline(status string, passes, missing int) {
	if m == nil {
		return
	}
	m.PipelineRuns.WithLabelValues(status).Inc()
	m.PipelinePasses.Observe(float64(passes))
	m.MissingFields.Observe(float64(missing))
}

// ObserveAI 記錄 AI 請求
func (m *Metrics) ObserveAI(provider, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.AIRequests.WithLabelValues(provider, status).Inc()
	m.AIDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// SetQueue 更新佇列狀態
func (m *Metrics) SetQueue(depth, active int) {
	if m == nil {
		return
	}
	m.QueueDepth.Set(float64(depth))
	m.QueueActive.Set(float64(active))
}
