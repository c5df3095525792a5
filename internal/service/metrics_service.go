package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the pipeline
// and the review API.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	reportsProcessed  *prometheus.CounterVec
	matchOutcomes     *prometheus.CounterVec
	gmailCalls        *prometheus.CounterVec
	notificationsSent prometheus.Counter
	runDuration       prometheus.Histogram
}

// NewMetricsService registers the pipeline's Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	reportsProcessed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reports_processed_total",
		Help: "Report PDFs processed by ingestion, by result",
	}, []string{"result"})

	matchOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "client_match_outcomes_total",
		Help: "Client matcher verdicts by outcome",
	}, []string{"outcome"})

	gmailCalls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gmail_api_calls_total",
		Help: "Gmail API calls by operation and result",
	}, []string{"op", "result"})

	notificationsSent := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notifications_sent_total",
		Help: "Approved notifications dispatched to clients",
	})

	runDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "pipeline_run_duration_seconds",
		Help:    "Wall time of full ingestion runs",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
	})

	registry.MustRegister(requestDuration, requestTotal, reportsProcessed,
		matchOutcomes, gmailCalls, notificationsSent, runDuration)

	return &MetricsService{
		registry:          registry,
		handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		reportsProcessed:  reportsProcessed,
		matchOutcomes:     matchOutcomes,
		gmailCalls:        gmailCalls,
		notificationsSent: notificationsSent,
		runDuration:       runDuration,
	}
}

// Handler exposes the Prometheus scrape endpoint.
func (s *MetricsService) Handler() http.Handler {
	return s.handler
}

// GinMiddleware records per-request duration and count.
func (s *MetricsService) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		s.requestDuration.WithLabelValues(c.Request.Method, path, status).
			Observe(time.Since(start).Seconds())
		s.requestTotal.WithLabelValues(c.Request.Method, path, status).Inc()
	}
}

// ObserveReport counts one processed report PDF by result bucket.
func (s *MetricsService) ObserveReport(result string) {
	s.reportsProcessed.WithLabelValues(result).Inc()
}

// ObserveMatch counts one matcher verdict.
func (s *MetricsService) ObserveMatch(outcome string) {
	s.matchOutcomes.WithLabelValues(outcome).Inc()
}

// ObserveGmailCall counts one Gmail API call.
func (s *MetricsService) ObserveGmailCall(op, result string) {
	s.gmailCalls.WithLabelValues(op, result).Inc()
}

// ObserveNotificationSent counts one dispatched notification.
func (s *MetricsService) ObserveNotificationSent() {
	s.notificationsSent.Inc()
}

// ObserveRunDuration records the wall time of a full ingestion run.
func (s *MetricsService) ObserveRunDuration(d time.Duration) {
	s.runDuration.Observe(d.Seconds())
}
