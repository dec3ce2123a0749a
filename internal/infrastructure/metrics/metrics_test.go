package metrics_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-sectores/internal/domain"
	"github.com/jhoicas/stock-sectores/internal/infrastructure/metrics"
)

func TestReason_ClasificaErroresDeDominio(t *testing.T) {
	assert.Equal(t, "insufficient_stock", metrics.Reason(domain.NewStockError(domain.ErrInsufficientStock, "P", "A", 5, 1)))
	assert.Equal(t, "concurrent_modification", metrics.Reason(fmt.Errorf("commit: %w", domain.ErrConcurrentModification)))
	assert.Equal(t, "session_state", metrics.Reason(&domain.SessionError{SessionID: "s", State: "ARCHIVED", Err: domain.ErrSessionState}))
	assert.Equal(t, "internal", metrics.Reason(errors.New("boom")))
}

func TestMetrics_RegistraMovimientosYConteos(t *testing.T) {
	m := metrics.New("test")

	m.MovementApplied("TRANSFER", -20)
	m.MovementApplied("TRANSFER", 20)
	m.OperationRejected("transfer", domain.ErrSameSector)
	m.SubCountRecorded(1)
	m.SessionCommitted("COMPLETED", 3, 1, 10*time.Millisecond)
	m.CommitFailed(domain.ErrConcurrentModification)
	m.ObserveHTTP("POST", "/api/stock/transfer", 200, time.Millisecond)

	n, err := testutil.GatherAndCount(m.Registry(),
		"test_stock_movements_total",
		"test_stock_units_moved_total",
		"test_stock_operations_rejected_total",
		"test_count_subcounts_total",
		"test_count_sessions_committed_total",
		"test_count_commit_failures_total",
		"test_http_requests_total",
	)
	require.NoError(t, err)
	assert.Equal(t, 7, n)
}

func TestMetrics_UnidadesEnValorAbsoluto(t *testing.T) {
	m := metrics.New("test")
	m.MovementApplied("TRANSFER", -20)
	m.MovementApplied("TRANSFER", 20)

	expected := `
# HELP test_stock_units_moved_total Unidades movidas por tipo de movimiento (valor absoluto)
# TYPE test_stock_units_moved_total counter
test_stock_units_moved_total{type="TRANSFER"} 40
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "test_stock_units_moved_total"))
}
