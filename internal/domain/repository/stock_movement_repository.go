package repository

import (
	"context"
	"time"

	"github.com/jhoicas/stock-sectores/internal/domain/entity"
)

// StockMovementRepository define el puerto de persistencia para la auditoría de movimientos.
type StockMovementRepository interface {
	Create(ctx context.Context, movement *entity.StockMovement) error
	ListByProduct(ctx context.Context, companyID, productID string, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error)
}
