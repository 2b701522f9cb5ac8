// Package metrics exposes Prometheus collectors for jobs, workers and the sampler.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	itemsTotal                 *prometheus.CounterVec
	fetchFailuresTotal         *prometheus.CounterVec
	activeWorkers              prometheus.Gauge
	jobsTotal                  *prometheus.CounterVec
	jobDurationSeconds         *prometheus.HistogramVec
	samplerCPUPercent          prometheus.Gauge
	samplerRAMPercent          prometheus.Gauge
	runsTotal                  *prometheus.CounterVec
	rateLimitDelaySeconds      *prometheus.HistogramVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init registers the collectors with the default registry.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		itemsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentiment_items_total",
				Help: "Total number of pages scored, labeled by sentiment.",
			},
			[]string{"sentiment"},
		)

		fetchFailuresTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentiment_fetch_failures_total",
				Help: "Total number of failed page fetches, labeled by site.",
			},
			[]string{"site"},
		)

		activeWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "sentiment_active_workers",
				Help: "Number of in-process range workers currently running.",
			},
		)

		jobsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentiment_jobs_total",
				Help: "Total number of executor jobs, labeled by mode and status.",
			},
			[]string{"mode", "status"},
		)

		jobDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sentiment_job_duration_seconds",
				Help:    "Histogram of executor job durations, labeled by mode.",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
			},
			[]string{"mode"},
		)

		samplerCPUPercent = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "sentiment_sampler_cpu_percent",
				Help: "Most recent system CPU utilisation captured by the sampler.",
			},
		)

		samplerRAMPercent = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "sentiment_sampler_ram_percent",
				Help: "Most recent system memory utilisation captured by the sampler.",
			},
		)

		runsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentiment_monitored_runs_total",
				Help: "Total number of monitored runs, labeled by monitor name and status.",
			},
			[]string{"name", "status"},
		)

		rateLimitDelaySeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sentiment_rate_limit_delay_seconds",
				Help:    "Time fetches spent waiting on the per-site rate limiter.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"site"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveItem counts one scored page.
func ObserveItem(sentiment string) {
	Init()
	itemsTotal.WithLabelValues(sentiment).Inc()
}

// ObserveFetchFailure counts a failed fetch of rawURL.
func ObserveFetchFailure(rawURL string) {
	Init()
	fetchFailuresTotal.WithLabelValues(SanitizeSite(rawURL)).Inc()
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	Init()
	activeWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	Init()
	activeWorkers.Dec()
}

// ObserveJob records the outcome and duration of one executor job.
func ObserveJob(mode, status string, duration time.Duration) {
	Init()
	jobsTotal.WithLabelValues(mode, status).Inc()
	jobDurationSeconds.WithLabelValues(mode).Observe(duration.Seconds())
}

// ObserveSample publishes the latest sampler reading.
func ObserveSample(cpu, ram float64) {
	Init()
	samplerCPUPercent.Set(cpu)
	samplerRAMPercent.Set(ram)
}

// ObserveRun counts one monitored run.
func ObserveRun(name, status string) {
	Init()
	runsTotal.WithLabelValues(name, status).Inc()
}

// ObserveRateLimitDelay records how long a fetch to site waited for a token.
func ObserveRateLimitDelay(site string, delay time.Duration) {
	Init()
	rateLimitDelaySeconds.WithLabelValues(site).Observe(delay.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
