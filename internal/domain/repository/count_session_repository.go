package repository

import (
	"context"

	"github.com/jhoicas/stock-sectores/internal/domain/entity"
)

// CountSessionRepository persiste sesiones de conteo, sus detalles por producto y subconteos.
type CountSessionRepository interface {
	Create(ctx context.Context, session *entity.CountSession, details []*entity.ProductCountDetail) error
	GetByID(ctx context.Context, id string) (*entity.CountSession, error)
	// GetForUpdate bloquea la sesión (serializa subconteos y cierre).
	GetForUpdate(ctx context.Context, id string) (*entity.CountSession, error)
	// FindOpenBySector devuelve la sesión no archivada del sector, o nil.
	FindOpenBySector(ctx context.Context, companyID, sectorID string) (*entity.CountSession, error)
	Update(ctx context.Context, session *entity.CountSession) error
	ListByCompany(ctx context.Context, companyID string, limit, offset int) ([]*entity.CountSession, error)

	// ListDetails devuelve los detalles con sus subconteos, ordenados por producto.
	ListDetails(ctx context.Context, sessionID string) ([]*entity.ProductCountDetail, error)
	GetDetail(ctx context.Context, sessionID, productID string) (*entity.ProductCountDetail, error)
	// SaveDetail inserta o actualiza el detalle (sin tocar los subconteos).
	SaveDetail(ctx context.Context, detail *entity.ProductCountDetail) error
	AddSubCount(ctx context.Context, subCount *entity.SubCount) error
	DeleteSubCount(ctx context.Context, sessionID, subCountID string) (*entity.SubCount, error)
}
