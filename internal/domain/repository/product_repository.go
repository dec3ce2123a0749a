package repository

import (
	"context"

	"github.com/jhoicas/stock-sectores/internal/domain/entity"
)

// ProductRepository puerto de solo lectura sobre el catálogo.
type ProductRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	ListByIDs(ctx context.Context, companyID string, ids []string) ([]*entity.Product, error)
}
