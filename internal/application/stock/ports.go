package stock

import (
	"context"

	"github.com/jhoicas/stock-sectores/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción, pasando repositorios atados a esa tx.
// Si fn devuelve error no queda ningún cambio aplicado.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		stockRepo repository.StockRepository,
		movRepo repository.StockMovementRepository,
	) error) error
}

// Metrics recibe los eventos del motor de traslados.
type Metrics interface {
	MovementApplied(movementType string, units int64)
	OperationRejected(operation string, err error)
}

type nopMetrics struct{}

func (nopMetrics) MovementApplied(string, int64)   {}
func (nopMetrics) OperationRejected(string, error) {}
