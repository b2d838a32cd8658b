package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce        sync.Once
	httpRequestsTotal   *prometheus.CounterVec
	httpLatencySeconds  *prometheus.HistogramVec
	httpErrorsTotal     *prometheus.CounterVec
	recordsSettledTotal *prometheus.CounterVec
	ocrIssuesTotal      prometheus.Counter
	runProgressRatio    prometheus.Gauge
	uploadRejectedTotal *prometheus.CounterVec
	wsClientsActive     prometheus.Gauge
)

// RegisterMetrics initialises the Prometheus collectors used by the grading service.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ocrvking_http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ocrvking_http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ocrvking_http_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		recordsSettledTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ocrvking_records_settled_total",
			Help: "Submission records settled during grading runs, by outcome.",
		}, []string{"outcome"})

		ocrIssuesTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ocrvking_ocr_issues_total",
			Help: "Completed gradings flagged for unreadable identifying fields.",
		})

		runProgressRatio = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ocrvking_run_progress_ratio",
			Help: "Settled-over-total ratio of the current grading run.",
		})

		uploadRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ocrvking_upload_rejected_total",
			Help: "Uploads rejected during intake, by reason.",
		}, []string{"reason"})

		wsClientsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ocrvking_ws_clients_active",
			Help: "Connected progress websocket clients.",
		})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			recordsSettledTotal,
			ocrIssuesTotal,
			runProgressRatio,
			uploadRejectedTotal,
			wsClientsActive,
		)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for API error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// RecordsSettled exposes the counter for settled submission records.
func RecordsSettled() *prometheus.CounterVec {
	RegisterMetrics()
	return recordsSettledTotal
}

// OCRIssues exposes the counter for data-quality flagged gradings.
func OCRIssues() prometheus.Counter {
	RegisterMetrics()
	return ocrIssuesTotal
}

// RunProgress exposes the gauge tracking current run progress.
func RunProgress() prometheus.Gauge {
	RegisterMetrics()
	return runProgressRatio
}

// UploadRejected exposes the counter for rejected uploads.
func UploadRejected() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadRejectedTotal
}

// WSClientsActive exposes the gauge for connected websocket clients.
func WSClientsActive() prometheus.Gauge {
	RegisterMetrics()
	return wsClientsActive
}
