package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments shared by the ledger registries.
// Write paths record both a per-operation counter and a duration observation;
// permission denials are tracked separately because they are the signal the
// dashboards alert on.
type Metrics struct {
	RolesGranted           prometheus.Counter
	BatchesRegistered      prometheus.Counter
	PrescriptionsIssued    prometheus.Counter
	PrescriptionsFulfilled prometheus.Counter
	TransfersLogged        prometheus.Counter
	CredentialsIssued      prometheus.Counter

	PermissionDenied *prometheus.CounterVec
	WriteDuration    *prometheus.HistogramVec
}

// New creates and registers all ledger metrics.
func New() *Metrics {
	return &Metrics{
		RolesGranted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pharmledger_roles_granted_total",
			Help: "Total number of role grants accepted",
		}),
		BatchesRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pharmledger_batches_registered_total",
			Help: "Total number of drug batches registered",
		}),
		PrescriptionsIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pharmledger_prescriptions_issued_total",
			Help: "Total number of prescriptions issued",
		}),
		PrescriptionsFulfilled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pharmledger_prescriptions_fulfilled_total",
			Help: "Total number of prescriptions fulfilled",
		}),
		TransfersLogged: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pharmledger_transfers_logged_total",
			Help: "Total number of custody transfers logged",
		}),
		CredentialsIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pharmledger_credentials_issued_total",
			Help: "Total number of credential hashes issued",
		}),
		PermissionDenied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pharmledger_permission_denied_total",
			Help: "Operations rejected because the caller lacked the required role",
		}, []string{"registry"}),
		WriteDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pharmledger_write_duration_seconds",
			Help:    "Duration of accepted ledger writes",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"}),
	}
}

// Increment helpers carry nil guards so services can run without metrics
// wired (unit tests, tools).

func (m *Metrics) IncRolesGranted() {
	if m != nil {
		m.RolesGranted.Inc()
	}
}

func (m *Metrics) IncBatchesRegistered() {
	if m != nil {
		m.BatchesRegistered.Inc()
	}
}

func (m *Metrics) IncPrescriptionsIssued() {
	if m != nil {
		m.PrescriptionsIssued.Inc()
	}
}

func (m *Metrics) IncPrescriptionsFulfilled() {
	if m != nil {
		m.PrescriptionsFulfilled.Inc()
	}
}

func (m *Metrics) IncTransfersLogged() {
	if m != nil {
		m.TransfersLogged.Inc()
	}
}

func (m *Metrics) IncCredentialsIssued() {
	if m != nil {
		m.CredentialsIssued.Inc()
	}
}

// ObserveWrite records the duration of an accepted write.
// Call with time.Now() captured at the start of the operation.
func (m *Metrics) ObserveWrite(operation string, start time.Time) {
	if m == nil {
		return
	}
	m.WriteDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// IncPermissionDenied records a role-gate rejection for the given registry.
func (m *Metrics) IncPermissionDenied(registry string) {
	if m == nil {
		return
	}
	m.PermissionDenied.WithLabelValues(registry).Inc()
}
