package http

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"djfriend/internal/core"
)

// Metrics holds the service's collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	PlaybackEventsTotal    *prometheus.CounterVec
	RecommendationsTotal   *prometheus.CounterVec
	CandidatesTotal        *prometheus.CounterVec
	ProviderErrorsTotal    *prometheus.CounterVec
	LinkResolutionsTotal   *prometheus.CounterVec
	RecommendationDuration prometheus.Histogram
	SourcesActive          prometheus.Gauge
}

var _ core.MetricsRecorder = (*Metrics)(nil)

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		PlaybackEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "djfriend_playback_events_total",
				Help: "Total number of playback events by source and arbitration outcome",
			},
			[]string{"source", "outcome"},
		),
		RecommendationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "djfriend_recommendations_total",
				Help: "Total number of recommendation runs by final status",
			},
			[]string{"status"},
		),
		CandidatesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "djfriend_candidates_total",
				Help: "Total number of suggestion candidates by tier",
			},
			[]string{"tier"},
		),
		ProviderErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "djfriend_provider_errors_total",
				Help: "Total number of failed metadata provider calls",
			},
			[]string{"provider", "op"},
		),
		LinkResolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "djfriend_link_resolutions_total",
				Help: "Total number of link resolutions by outcome",
			},
			[]string{"outcome"},
		),
		RecommendationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "djfriend_recommendation_duration_seconds",
				Help:    "Time spent computing a suggestion pool",
				Buckets: prometheus.DefBuckets,
			},
		),
		SourcesActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "djfriend_sources_active",
				Help: "Number of playback sources with a session",
			},
		),
	}

	m.registry.MustRegister(
		m.PlaybackEventsTotal,
		m.RecommendationsTotal,
		m.CandidatesTotal,
		m.ProviderErrorsTotal,
		m.LinkResolutionsTotal,
		m.RecommendationDuration,
		m.SourcesActive,
	)

	return m
}

// Registry returns the registry backing /metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) RecordPlaybackEvent(source, outcome string) {
	m.PlaybackEventsTotal.WithLabelValues(source, outcome).Inc()
}

func (m *Metrics) RecordRecommendation(status string, duration time.Duration) {
	m.RecommendationsTotal.WithLabelValues(status).Inc()
	m.RecommendationDuration.Observe(duration.Seconds())
}

func (m *Metrics) RecordCandidate(tier string) {
	m.CandidatesTotal.WithLabelValues(tier).Inc()
}

func (m *Metrics) RecordProviderError(provider, op string) {
	m.ProviderErrorsTotal.WithLabelValues(provider, op).Inc()
}

func (m *Metrics) RecordLinkResolution(outcome string) {
	m.LinkResolutionsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SetActiveSources(count int) {
	m.SourcesActive.Set(float64(count))
}
