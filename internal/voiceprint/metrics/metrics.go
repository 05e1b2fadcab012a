// Package metrics exposes Prometheus instrumentation for the voiceprint
// pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts pipeline outcomes and times the vault round trips.
type Metrics struct {
	EnrollmentsTotal     *prometheus.CounterVec
	IdentificationsTotal *prometheus.CounterVec
	DeletionsTotal       *prometheus.CounterVec
	AuditRowsTotal       prometheus.Counter
	VaultRequestDuration *prometheus.HistogramVec
	AudioBytesProcessed  prometheus.Counter
}

// New registers all voiceprint metrics on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		EnrollmentsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voicegate_enrollments_total",
			Help: "Enrollment attempts by outcome.",
		}, []string{"outcome"}),
		IdentificationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voicegate_identifications_total",
			Help: "Identification attempts by outcome.",
		}, []string{"outcome"}),
		DeletionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voicegate_deletions_total",
			Help: "Voiceprint deletions by outcome.",
		}, []string{"outcome"}),
		AuditRowsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicegate_audit_rows_total",
			Help: "Audit rows appended to the identification log.",
		}),
		VaultRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "voicegate_vault_request_duration_seconds",
			Help:    "Wall time of vault calls by operation.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		AudioBytesProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicegate_audio_bytes_processed_total",
			Help: "Raw audio bytes accepted by the normalizer.",
		}),
	}
}

// Outcome labels.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
	OutcomeNoMatch  = "no_match"
	OutcomeMatched  = "matched"
)
