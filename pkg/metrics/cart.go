package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "storefront"

// CartMetrics counts cart store activity. All methods are nil-safe so the
// store can run without a registry (CLI, tests).
type CartMetrics struct {
	mutations       *prometheus.CounterVec
	storageFailures *prometheus.CounterVec
	loads           *prometheus.CounterVec
	sessions        prometheus.Gauge
}

func NewCartMetrics(reg prometheus.Registerer) *CartMetrics {
	if reg == nil {
		return &CartMetrics{}
	}
	m := &CartMetrics{
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cart",
			Name:      "mutations_total",
			Help:      "Committed cart mutations by operation.",
		}, []string{"op"}),
		storageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cart",
			Name:      "storage_failures_total",
			Help:      "Swallowed cart storage failures by operation (read, decode, write).",
		}, []string{"op"}),
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cart",
			Name:      "loads_total",
			Help:      "Cart initializations by outcome (restored, empty, fallback).",
		}, []string{"result"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cart",
			Name:      "open_sessions",
			Help:      "Cart stores currently held in memory.",
		}),
	}
	reg.MustRegister(m.mutations, m.storageFailures, m.loads, m.sessions)
	return m
}

func (m *CartMetrics) Mutation(op string) {
	if m == nil || m.mutations == nil {
		return
	}
	m.mutations.WithLabelValues(normalizeLabel(op)).Inc()
}

func (m *CartMetrics) StorageFailure(op string) {
	if m == nil || m.storageFailures == nil {
		return
	}
	m.storageFailures.WithLabelValues(normalizeLabel(op)).Inc()
}

func (m *CartMetrics) Loaded(result string) {
	if m == nil || m.loads == nil {
		return
	}
	m.loads.WithLabelValues(normalizeLabel(result)).Inc()
}

func (m *CartMetrics) OpenSessions(n int) {
	if m == nil || m.sessions == nil {
		return
	}
	m.sessions.Set(float64(n))
}
