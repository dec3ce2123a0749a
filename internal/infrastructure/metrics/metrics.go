package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/stock-sectores/internal/application/count"
	"github.com/jhoicas/stock-sectores/internal/application/stock"
	"github.com/jhoicas/stock-sectores/internal/domain"
)

var (
	_ stock.Metrics = (*Metrics)(nil)
	_ count.Metrics = (*Metrics)(nil)
)

// Metrics agrupa las métricas Prometheus del ledger, del conteo y de la API HTTP.
type Metrics struct {
	registry *prometheus.Registry

	movementsApplied   *prometheus.CounterVec
	unitsMoved         *prometheus.CounterVec
	operationsRejected *prometheus.CounterVec

	subCountsRecorded *prometheus.CounterVec
	sessionsCommitted *prometheus.CounterVec
	commitLines       prometheus.Histogram
	commitDuration    prometheus.Histogram
	commitFailures    *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New registra todas las métricas en un registro propio bajo el namespace indicado.
func New(namespace string) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{registry: registry}

	m.movementsApplied = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stock_movements_total",
		Help:      "Movimientos escritos en el ledger por tipo",
	}, []string{"type"})
	m.unitsMoved = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stock_units_moved_total",
		Help:      "Unidades movidas por tipo de movimiento (valor absoluto)",
	}, []string{"type"})
	m.operationsRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stock_operations_rejected_total",
		Help:      "Operaciones del ledger rechazadas por motivo",
	}, []string{"operation", "reason"})

	m.subCountsRecorded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "count_subcounts_total",
		Help:      "Subconteos registrados por slot de operario",
	}, []string{"slot"})
	m.sessionsCommitted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "count_sessions_committed_total",
		Help:      "Sesiones aplicadas al ledger por resultado e intentos",
	}, []string{"outcome", "attempts"})
	m.commitLines = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "count_commit_lines",
		Help:      "Productos por sesión aplicada",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 7),
	})
	m.commitDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "count_commit_duration_seconds",
		Help:      "Duración de la aplicación de una sesión, reintentos incluidos",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	})
	m.commitFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "count_commit_failures_total",
		Help:      "Sesiones que no pudieron aplicarse, por motivo",
	}, []string{"reason"})

	m.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Peticiones HTTP por método, ruta y estado",
	}, []string{"method", "path", "status"})
	m.httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duración de las peticiones HTTP",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})

	registry.MustRegister(
		m.movementsApplied, m.unitsMoved, m.operationsRejected,
		m.subCountsRecorded, m.sessionsCommitted, m.commitLines, m.commitDuration, m.commitFailures,
		m.httpRequests, m.httpDuration,
	)
	return m
}

// MovementApplied cuenta un movimiento y sus unidades.
func (m *Metrics) MovementApplied(movementType string, units int64) {
	m.movementsApplied.WithLabelValues(movementType).Inc()
	if units < 0 {
		units = -units
	}
	m.unitsMoved.WithLabelValues(movementType).Add(float64(units))
}

// OperationRejected cuenta un rechazo del ledger clasificado por error de dominio.
func (m *Metrics) OperationRejected(operation string, err error) {
	m.operationsRejected.WithLabelValues(operation, Reason(err)).Inc()
}

// SubCountRecorded cuenta un subconteo del slot.
func (m *Metrics) SubCountRecorded(slot int) {
	m.subCountsRecorded.WithLabelValues(strconv.Itoa(slot)).Inc()
}

// SessionCommitted registra una sesión aplicada.
func (m *Metrics) SessionCommitted(outcome string, lines, attempts int, elapsed time.Duration) {
	m.sessionsCommitted.WithLabelValues(outcome, strconv.Itoa(attempts)).Inc()
	m.commitLines.Observe(float64(lines))
	m.commitDuration.Observe(elapsed.Seconds())
}

// CommitFailed cuenta una sesión que no se aplicó.
func (m *Metrics) CommitFailed(err error) {
	m.commitFailures.WithLabelValues(Reason(err)).Inc()
}

// ObserveHTTP registra una petición atendida. path es la ruta registrada, no la URL concreta.
func (m *Metrics) ObserveHTTP(method, path string, status int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

// Handler expone el registro en formato de texto Prometheus.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry devuelve el registro (para tests).
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Reason etiqueta un error con su sentinel de dominio; "internal" para el resto.
func Reason(err error) string {
	reasons := []struct {
		err   error
		label string
	}{
		{domain.ErrInsufficientStock, "insufficient_stock"},
		{domain.ErrInvalidQuantity, "invalid_quantity"},
		{domain.ErrSameSector, "same_sector"},
		{domain.ErrStockNotEmpty, "stock_not_empty"},
		{domain.ErrConservationViolated, "conservation_violated"},
		{domain.ErrConcurrentModification, "concurrent_modification"},
		{domain.ErrSessionState, "session_state"},
		{domain.ErrNotFound, "not_found"},
		{domain.ErrForbidden, "forbidden"},
		{domain.ErrConflict, "conflict"},
		{domain.ErrInvalidInput, "invalid_input"},
	}
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.label
		}
	}
	return "internal"
}
