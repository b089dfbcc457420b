// Package metrics provides Prometheus metrics for the merchant assistant.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	// Generation metrics
	GenerationsTotal           *prometheus.CounterVec
	CollaboratorFallbacksTotal *prometheus.CounterVec

	// Refinement metrics
	RefinementsTotal *prometheus.CounterVec
	TitleScore       *prometheus.HistogramVec

	// Scoring and analysis
	ScoresTotal             prometheus.Counter
	CompetitorAnalysesTotal prometheus.Counter

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRateLimited     prometheus.Counter
}

// New creates all metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	m := &Metrics{}

	m.GenerationsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "merchant_generations_total",
			Help: "Total number of generated title candidates",
		},
		[]string{"source", "style"},
	)

	m.CollaboratorFallbacksTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "merchant_collaborator_fallbacks_total",
			Help: "Collaborator calls that fell back to template generation",
		},
		[]string{"reason"},
	)

	m.RefinementsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "merchant_refinements_total",
			Help: "Total number of refinement runs by decision",
		},
		[]string{"decision"},
	)

	m.TitleScore = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "merchant_title_score",
			Help:    "Composite score of accepted titles",
			Buckets: []float64{.5, .6, .7, .75, .8, .85, .9, .95, 1},
		},
		[]string{"style"},
	)

	m.ScoresTotal = f.NewCounter(
		prometheus.CounterOpts{
			Name: "merchant_scores_total",
			Help: "Total number of standalone title scoring requests",
		},
	)

	m.CompetitorAnalysesTotal = f.NewCounter(
		prometheus.CounterOpts{
			Name: "merchant_competitor_analyses_total",
			Help: "Total number of competitor title analyses",
		},
	)

	m.HTTPRequestsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "merchant_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "status"},
	)

	m.HTTPRequestDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "merchant_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	m.HTTPRateLimited = f.NewCounter(
		prometheus.CounterOpts{
			Name: "merchant_http_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
	)

	return m
}

// RecordGeneration counts one candidate and its fallback reason, if any.
func (m *Metrics) RecordGeneration(source, style, fallbackReason string) {
	if m == nil {
		return
	}
	m.GenerationsTotal.WithLabelValues(source, style).Inc()
	if fallbackReason != "" {
		m.CollaboratorFallbacksTotal.WithLabelValues(fallbackReason).Inc()
	}
}

// RecordRefinement counts one refinement run and observes the final score.
func (m *Metrics) RecordRefinement(decision, style string, score float64) {
	if m == nil {
		return
	}
	m.RefinementsTotal.WithLabelValues(decision).Inc()
	m.TitleScore.WithLabelValues(style).Observe(score)
}

// RecordScore counts one standalone scoring request.
func (m *Metrics) RecordScore() {
	if m == nil {
		return
	}
	m.ScoresTotal.Inc()
}

// RecordAnalysis counts one competitor analysis.
func (m *Metrics) RecordAnalysis() {
	if m == nil {
		return
	}
	m.CompetitorAnalysesTotal.Inc()
}

// RecordHTTP records a completed HTTP request.
func (m *Metrics) RecordHTTP(route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(route, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(route).Observe(d.Seconds())
}

// RecordRateLimited counts one rejected request.
func (m *Metrics) RecordRateLimited() {
	if m == nil {
		return
	}
	m.HTTPRateLimited.Inc()
}
