package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "assettrack"

// EngineMetrics tracks lifecycle engine outcomes. A nil receiver is a no-op.
type EngineMetrics struct {
	transitions   *prometheus.CounterVec
	assignments   *prometheus.CounterVec
	errors        *prometheus.CounterVec
	partials      *prometheus.CounterVec
	migrations    prometheus.Counter
	assetsMigrate prometheus.Counter
	violations    *prometheus.GaugeVec
	published     *prometheus.CounterVec
}

// NewEngineMetrics registers the engine metrics on the provided registerer.
func NewEngineMetrics(reg prometheus.Registerer) *EngineMetrics {
	if reg == nil {
		return &EngineMetrics{}
	}
	m := &EngineMetrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_transitions_total",
			Help:      "Accepted asset status transitions.",
		}, []string{"from", "to"}),
		assignments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assignment_events_total",
			Help:      "Assign and unassign events written.",
		}, []string{"type"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "engine_errors_total",
			Help:      "Rejected or failed engine operations by error code.",
		}, []string{"operation", "code"}),
		partials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "partial_success_total",
			Help:      "Compound operations that stopped after a completed step.",
		}, []string{"operation"}),
		migrations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "po_migrations_total",
			Help:      "Completed purchase order number migrations.",
		}),
		assetsMigrate: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "po_migrated_assets_total",
			Help:      "Assets repointed by purchase order number migrations.",
		}),
		violations: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "invariant_violations",
			Help:      "Assets violating a lifecycle invariant at the last scan.",
		}, []string{"kind"}),
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_publish_total",
			Help:      "Outbox rows handled by the publisher by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(m.transitions, m.assignments, m.errors, m.partials, m.migrations, m.assetsMigrate, m.violations, m.published)
	return m
}

func (m *EngineMetrics) IncTransition(from, to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

func (m *EngineMetrics) IncAssignmentEvent(eventType string) {
	if m == nil || m.assignments == nil {
		return
	}
	m.assignments.WithLabelValues(normalizeLabel(eventType)).Inc()
}

func (m *EngineMetrics) IncError(operation, code string) {
	if m == nil || m.errors == nil {
		return
	}
	m.errors.WithLabelValues(normalizeLabel(operation), normalizeLabel(code)).Inc()
}

func (m *EngineMetrics) IncPartialSuccess(operation string) {
	if m == nil || m.partials == nil {
		return
	}
	m.partials.WithLabelValues(normalizeLabel(operation)).Inc()
}

// ObserveMigration counts one finished migration and the assets it touched.
func (m *EngineMetrics) ObserveMigration(assets int) {
	if m == nil || m.migrations == nil {
		return
	}
	m.migrations.Inc()
	if assets > 0 {
		m.assetsMigrate.Add(float64(assets))
	}
}

// SetViolations publishes the latest count for one invariant kind.
func (m *EngineMetrics) SetViolations(kind string, count int) {
	if m == nil || m.violations == nil {
		return
	}
	m.violations.WithLabelValues(normalizeLabel(kind)).Set(float64(count))
}

func (m *EngineMetrics) IncPublished(result string) {
	if m == nil || m.published == nil {
		return
	}
	m.published.WithLabelValues(normalizeLabel(result)).Inc()
}
