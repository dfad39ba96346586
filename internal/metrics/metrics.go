// Package metrics exposes scan, provider and store metrics to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/amishk599/jobscout/internal/model"
)

const namespace = "jobscout"

// Recorder owns the jobscout collectors. It satisfies adapter.FailureRecorder.
type Recorder struct {
	scanRuns         *prometheus.CounterVec
	scanDuration     prometheus.Histogram
	providerFailures *prometheus.CounterVec
	providerPostings *prometheus.CounterVec
	scanPostings     *prometheus.CounterVec
	lastSuccess      prometheus.Gauge
	apiRequests      *prometheus.CounterVec
	apiDuration      *prometheus.HistogramVec
	storedJobs       *prometheus.GaugeVec
}

// NewRecorder creates the collectors and registers them with reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		scanRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scan_runs_total",
				Help:      "Total number of scans by final status",
			},
			[]string{"status"},
		),
		scanDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "scan_duration_seconds",
				Help:      "Scan duration in seconds",
				Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
		),
		providerFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_failures_total",
				Help:      "Recovered provider failures by kind",
			},
			[]string{"provider", "kind"},
		),
		providerPostings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_postings_total",
				Help:      "Eligible postings returned per provider",
			},
			[]string{"provider"},
		),
		scanPostings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scan_postings_total",
				Help:      "Postings per pipeline stage",
			},
			[]string{"stage"}, // found / eligible / new
		),
		lastSuccess: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_successful_scan_timestamp_seconds",
				Help:      "Unix time of the last completed scan",
			},
		),
		apiRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "external_api_requests_total",
				Help:      "HTTP requests sent to job search providers by status code",
			},
			[]string{"provider", "code"},
		),
		apiDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "external_api_duration_seconds",
				Help:      "Latency of HTTP requests to job search providers",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"provider"},
		),
		storedJobs: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "stored_jobs",
				Help:      "Jobs in the store by state",
			},
			[]string{"state"}, // total / new_this_week / saved / applied / hidden
		),
	}

	reg.MustRegister(
		r.scanRuns,
		r.scanDuration,
		r.providerFailures,
		r.providerPostings,
		r.scanPostings,
		r.lastSuccess,
		r.apiRequests,
		r.apiDuration,
		r.storedJobs,
	)
	return r
}

// ProviderFailure counts one recovered provider failure.
func (r *Recorder) ProviderFailure(provider, kind string) {
	r.providerFailures.WithLabelValues(provider, kind).Inc()
}

// ScanFinished records a completed or failed scan.
func (r *Recorder) ScanFinished(o model.ScanOutcome) {
	r.scanRuns.WithLabelValues(string(o.Status)).Inc()

	end := time.Now()
	if o.CompletedAt != nil {
		end = *o.CompletedAt
	}
	r.scanDuration.Observe(end.Sub(o.StartedAt).Seconds())

	for provider, n := range o.ProviderCounts {
		r.providerPostings.WithLabelValues(provider).Add(float64(n))
	}
	r.scanPostings.WithLabelValues("found").Add(float64(o.Found))
	r.scanPostings.WithLabelValues("eligible").Add(float64(o.Eligible))
	r.scanPostings.WithLabelValues("new").Add(float64(o.New))

	if o.Status == model.ScanCompleted {
		r.lastSuccess.Set(float64(end.Unix()))
	}
}

// InstrumentTransport counts and times every request next sends on behalf of
// provider. A nil next means http.DefaultTransport.
func (r *Recorder) InstrumentTransport(provider string, next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	labels := prometheus.Labels{"provider": provider}
	return promhttp.InstrumentRoundTripperCounter(
		r.apiRequests.MustCurryWith(labels),
		promhttp.InstrumentRoundTripperDuration(r.apiDuration.MustCurryWith(labels), next),
	)
}

// StoreStats publishes the store totals.
func (r *Recorder) StoreStats(st model.StoreStats) {
	r.storedJobs.WithLabelValues("total").Set(float64(st.Total))
	r.storedJobs.WithLabelValues("new_this_week").Set(float64(st.NewThisWeek))
	r.storedJobs.WithLabelValues("saved").Set(float64(st.Saved))
	r.storedJobs.WithLabelValues("applied").Set(float64(st.Applied))
	r.storedJobs.WithLabelValues("hidden").Set(float64(st.Hidden))
}
