package count

import (
	"context"
	"time"

	"github.com/jhoicas/stock-sectores/internal/application/dto"
	"github.com/jhoicas/stock-sectores/internal/domain/repository"
)

// TxRunner ejecuta fn en una única transacción con los repositorios de stock y de conteo.
// Si fn devuelve error no queda ningún cambio aplicado (ni en el ledger ni en la sesión).
type TxRunner interface {
	RunCount(ctx context.Context, fn func(
		stockRepo repository.StockRepository,
		movRepo repository.StockMovementRepository,
		sessionRepo repository.CountSessionRepository,
		adjustmentRepo repository.AdjustmentRepository,
	) error) error
}

// RegistryPDFGenerator genera el PDF del registro de ajuste.
type RegistryPDFGenerator interface {
	Generate(record dto.AdjustmentRecordResponse, sectorName string) ([]byte, error)
}

// ComparisonExporter exporta la vista de comparación a planilla.
type ComparisonExporter interface {
	Export(cmp dto.ComparisonResponse, sectorName string) ([]byte, error)
}

// Metrics recibe los eventos del conteo doble.
type Metrics interface {
	SubCountRecorded(slot int)
	SessionCommitted(outcome string, lines int, attempts int, elapsed time.Duration)
	CommitFailed(err error)
}

type nopMetrics struct{}

func (nopMetrics) SubCountRecorded(int)                             {}
func (nopMetrics) SessionCommitted(string, int, int, time.Duration) {}
func (nopMetrics) CommitFailed(error)                               {}
