package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-sectores/internal/domain"
	"github.com/jhoicas/stock-sectores/internal/domain/entity"
	"github.com/jhoicas/stock-sectores/internal/domain/repository"
)

var _ repository.SectorRepository = (*SectorRepo)(nil)

// SectorRepo implementación del puerto SectorRepository sobre PostgreSQL.
type SectorRepo struct {
	q Querier
}

// NewSectorRepository construye el adaptador de persistencia para sectores.
func NewSectorRepository(q Querier) *SectorRepo {
	return &SectorRepo{q: q}
}

// Create persiste un nuevo sector.
func (r *SectorRepo) Create(ctx context.Context, sector *entity.Sector) error {
	query := `
		INSERT INTO sectors (id, company_id, name, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.q.Exec(ctx, query,
		sector.ID, sector.CompanyID, sector.Name, sector.Active, sector.CreatedAt, sector.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("insert sector: %w", err)
	}
	return nil
}

// GetByID obtiene un sector por ID.
func (r *SectorRepo) GetByID(ctx context.Context, id string) (*entity.Sector, error) {
	query := `
		SELECT id, company_id, name, active, created_at, updated_at
		FROM sectors WHERE id = $1`
	var s entity.Sector
	err := r.q.QueryRow(ctx, query, id).Scan(
		&s.ID, &s.CompanyID, &s.Name, &s.Active, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get sector: %w", err)
	}
	return &s, nil
}

// Update actualiza nombre y estado de un sector existente.
func (r *SectorRepo) Update(ctx context.Context, sector *entity.Sector) error {
	query := `
		UPDATE sectors SET name = $2, active = $3, updated_at = $4
		WHERE id = $1`
	cmd, err := r.q.Exec(ctx, query, sector.ID, sector.Name, sector.Active, sector.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("update sector: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListByCompany lista sectores por empresa con paginación.
func (r *SectorRepo) ListByCompany(ctx context.Context, companyID string, limit, offset int) ([]*entity.Sector, error) {
	query := `
		SELECT id, company_id, name, active, created_at, updated_at
		FROM sectors WHERE company_id = $1 ORDER BY name LIMIT $2 OFFSET $3`
	rows, err := r.q.Query(ctx, query, companyID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list sectors: %w", err)
	}
	defer rows.Close()
	list := make([]*entity.Sector, 0)
	for rows.Next() {
		var s entity.Sector
		if err := rows.Scan(&s.ID, &s.CompanyID, &s.Name, &s.Active, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan sector: %w", err)
		}
		list = append(list, &s)
	}
	return list, rows.Err()
}
