package observer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricsEnabled = true // Flag to control metric collection

	dbOperationLabels = []string{"operation", "entity", "status"}
	campaignLabels    = []string{"campaign_id"}
	rejectionLabels   = []string{"campaign_id", "reason"}

	// DatabaseOperationDurationSeconds tracks every statement batch issued to
	// the row store, labeled by operation and entity.
	DatabaseOperationDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "campaign_engine_db_operation_duration_seconds",
			Help:    "Histogram of database operation durations.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~16s
		},
		dbOperationLabels,
	)

	// LeasesGrantedTotal counts contacts leased to agents.
	LeasesGrantedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campaign_engine_leases_granted_total",
			Help: "Total number of contacts leased to agents.",
		},
		campaignLabels,
	)

	// LeaseMissesTotal counts lease calls that found no pending contact.
	LeaseMissesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campaign_engine_lease_misses_total",
			Help: "Total number of lease calls returning the empty result.",
		},
		campaignLabels,
	)

	// ContactsAcceptedTotal counts contacts accepted by the import pipeline.
	ContactsAcceptedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campaign_engine_import_contacts_accepted_total",
			Help: "Total number of contacts accepted during imports.",
		},
		campaignLabels,
	)

	// ContactsRejectedTotal counts contacts rejected by the import pipeline,
	// labeled by rejection reason.
	ContactsRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campaign_engine_import_contacts_rejected_total",
			Help: "Total number of contacts rejected during imports.",
		},
		rejectionLabels,
	)

	// QualificationsRecordedTotal counts recorded qualification events.
	QualificationsRecordedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campaign_engine_qualifications_recorded_total",
			Help: "Total number of qualification events recorded.",
		},
		campaignLabels,
	)

	// DedupCacheChecksTotal counts dedup bloom-filter checks by result.
	DedupCacheChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campaign_engine_dedup_cache_checks_total",
			Help: "Total number of dedup cache fast-path checks.",
		},
		[]string{"result"},
	)

	// EventPublishFailuresTotal counts failed post-commit event publishes.
	// Publishing is best-effort; failures never affect committed state.
	EventPublishFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "campaign_engine_event_publish_failures_total",
			Help: "Total number of failed call-event publishes.",
		},
	)
)

// InitMetrics toggles metric collection. Collectors are registered at package
// load; this only gates the helpers below.
func InitMetrics(enabled bool) {
	metricsEnabled = enabled
}

// ObserveDbOperationDuration records the duration for a database operation.
func ObserveDbOperationDuration(operation, entity string, duration time.Duration, err error) {
	if !metricsEnabled {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	DatabaseOperationDurationSeconds.WithLabelValues(operation, entity, status).Observe(duration.Seconds())
}

// IncLeaseGranted increments the granted-lease counter.
func IncLeaseGranted(campaignID string) {
	if !metricsEnabled {
		return
	}
	LeasesGrantedTotal.WithLabelValues(campaignID).Inc()
}

// IncLeaseMiss increments the lease-miss counter.
func IncLeaseMiss(campaignID string) {
	if !metricsEnabled {
		return
	}
	LeaseMissesTotal.WithLabelValues(campaignID).Inc()
}

// AddContactsAccepted adds to the accepted-contacts counter.
func AddContactsAccepted(campaignID string, n int) {
	if !metricsEnabled || n <= 0 {
		return
	}
	ContactsAcceptedTotal.WithLabelValues(campaignID).Add(float64(n))
}

// IncContactRejected increments the rejected-contacts counter for a reason.
func IncContactRejected(campaignID, reason string) {
	if !metricsEnabled {
		return
	}
	ContactsRejectedTotal.WithLabelValues(campaignID, reason).Inc()
}

// IncQualificationRecorded increments the qualification counter.
func IncQualificationRecorded(campaignID string) {
	if !metricsEnabled {
		return
	}
	QualificationsRecordedTotal.WithLabelValues(campaignID).Inc()
}

// IncDedupCacheCheck increments the dedup cache check counter for a result.
func IncDedupCacheCheck(result string) {
	if !metricsEnabled {
		return
	}
	DedupCacheChecksTotal.WithLabelValues(result).Inc()
}

// IncEventPublishFailure increments the publish-failure counter.
func IncEventPublishFailure() {
	if !metricsEnabled {
		return
	}
	EventPublishFailuresTotal.Inc()
}
