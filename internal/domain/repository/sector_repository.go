package repository

import (
	"context"

	"github.com/jhoicas/stock-sectores/internal/domain/entity"
)

// SectorRepository define el puerto de persistencia para Sector (DIP).
type SectorRepository interface {
	Create(ctx context.Context, sector *entity.Sector) error
	GetByID(ctx context.Context, id string) (*entity.Sector, error)
	Update(ctx context.Context, sector *entity.Sector) error
	ListByCompany(ctx context.Context, companyID string, limit, offset int) ([]*entity.Sector, error)
}
