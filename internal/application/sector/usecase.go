// Package sector administra los sectores físicos de una empresa.
package sector

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/stock-sectores/internal/application/dto"
	"github.com/jhoicas/stock-sectores/internal/domain"
	"github.com/jhoicas/stock-sectores/internal/domain/entity"
	"github.com/jhoicas/stock-sectores/internal/domain/repository"
)

// UseCase alta, consulta y baja lógica de sectores.
type UseCase struct {
	repo repository.SectorRepository
}

// NewUseCase construye el caso de uso.
func NewUseCase(repo repository.SectorRepository) *UseCase {
	return &UseCase{repo: repo}
}

// Create crea un sector activo.
func (uc *UseCase) Create(ctx context.Context, companyID string, in dto.CreateSectorRequest) (*dto.SectorResponse, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" || len(name) > 120 {
		return nil, domain.ErrInvalidInput
	}
	now := time.Now()
	s := &entity.Sector{
		ID:        uuid.New().String(),
		CompanyID: companyID,
		Name:      name,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.repo.Create(ctx, s); err != nil {
		return nil, fmt.Errorf("crear sector: %w", err)
	}
	return toSectorResponse(s), nil
}

// GetByID obtiene un sector de la empresa.
func (uc *UseCase) GetByID(ctx context.Context, companyID, id string) (*dto.SectorResponse, error) {
	s, err := uc.load(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	return toSectorResponse(s), nil
}

// List lista sectores por empresa con paginación.
func (uc *UseCase) List(ctx context.Context, companyID string, limit, offset int) (*dto.SectorListResponse, error) {
	list, err := uc.repo.ListByCompany(ctx, companyID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listar sectores: %w", err)
	}
	items := make([]dto.SectorResponse, 0, len(list))
	for _, s := range list {
		items = append(items, *toSectorResponse(s))
	}
	return &dto.SectorListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: limit, Offset: offset},
	}, nil
}

// Deactivate marca el sector como inactivo: deja de recibir traslados, asignaciones y conteos,
// pero conserva su stock hasta que se traslade.
func (uc *UseCase) Deactivate(ctx context.Context, companyID, id string) (*dto.SectorResponse, error) {
	s, err := uc.load(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if !s.Active {
		return toSectorResponse(s), nil
	}
	s.Active = false
	s.UpdatedAt = time.Now()
	if err := uc.repo.Update(ctx, s); err != nil {
		return nil, fmt.Errorf("desactivar sector: %w", err)
	}
	return toSectorResponse(s), nil
}

func (uc *UseCase) load(ctx context.Context, companyID, id string) (*entity.Sector, error) {
	s, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("buscar sector: %w", err)
	}
	if s == nil || s.CompanyID != companyID {
		return nil, domain.ErrNotFound
	}
	return s, nil
}

func toSectorResponse(s *entity.Sector) *dto.SectorResponse {
	return &dto.SectorResponse{
		ID:        s.ID,
		CompanyID: s.CompanyID,
		Name:      s.Name,
		Active:    s.Active,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}
