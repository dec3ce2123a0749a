package repository

import (
	"context"

	"github.com/jhoicas/stock-sectores/internal/domain/entity"
)

// StockRepository define el puerto para consultar/actualizar stock por producto+sector.
// SectorID vacío es el pool sin sector. Usado dentro de transacciones para garantizar consistencia.
type StockRepository interface {
	// Get devuelve la fila o una fila en cero (Version 0) si no existe.
	Get(ctx context.Context, companyID, productID, sectorID string) (*entity.StockEntry, error)
	// GetForUpdate igual que Get pero bloquea la fila hasta el fin de la transacción (SELECT FOR UPDATE).
	GetForUpdate(ctx context.Context, companyID, productID, sectorID string) (*entity.StockEntry, error)
	// Upsert escribe la cantidad si la versión persistida coincide con entry.Version;
	// si no coincide devuelve domain.ErrConcurrentModification. Actualiza entry.Version.
	Upsert(ctx context.Context, entry *entity.StockEntry) error
	// Delete elimina la fila; no falla si no existe.
	Delete(ctx context.Context, companyID, productID, sectorID string) error
	ListByProduct(ctx context.Context, companyID, productID string) ([]*entity.StockEntry, error)
	ListBySector(ctx context.Context, companyID, sectorID string) ([]*entity.StockEntry, error)
	ListByCompany(ctx context.Context, companyID string) ([]*entity.StockEntry, error)
}
