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

var _ repository.StockRepository = (*StockRepo)(nil)

// StockRepo implementación de StockRepository sobre PostgreSQL (usable con pool o tx).
// El pool sin sector se guarda como sector_id NULL.
type StockRepo struct {
	q Querier
}

// NewStockRepository construye el adaptador de stock. Pasar pool o tx (Querier).
func NewStockRepository(q Querier) *StockRepo {
	return &StockRepo{q: q}
}

const stockColumns = `company_id, product_id, sector_id, quantity, version, updated_at`

// Get obtiene el stock actual de un producto en un sector.
func (r *StockRepo) Get(ctx context.Context, companyID, productID, sectorID string) (*entity.StockEntry, error) {
	query := `SELECT ` + stockColumns + `
		FROM stock
		WHERE company_id = $1 AND product_id = $2 AND sector_id IS NOT DISTINCT FROM $3`
	return r.getOne(ctx, "get stock", query, companyID, productID, sectorID)
}

// GetForUpdate obtiene el stock y bloquea la fila para update (SELECT FOR UPDATE).
func (r *StockRepo) GetForUpdate(ctx context.Context, companyID, productID, sectorID string) (*entity.StockEntry, error) {
	query := `SELECT ` + stockColumns + `
		FROM stock
		WHERE company_id = $1 AND product_id = $2 AND sector_id IS NOT DISTINCT FROM $3
		FOR UPDATE`
	return r.getOne(ctx, "get stock for update", query, companyID, productID, sectorID)
}

func (r *StockRepo) getOne(ctx context.Context, op, query, companyID, productID, sectorID string) (*entity.StockEntry, error) {
	s, err := scanStock(r.q.QueryRow(ctx, query, companyID, productID, nullIfEmpty(sectorID)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &entity.StockEntry{CompanyID: companyID, ProductID: productID, SectorID: sectorID}, nil
		}
		return nil, mapError(op, err)
	}
	return s, nil
}

// Upsert inserta o actualiza la cantidad solo si la versión no cambió desde la lectura.
func (r *StockRepo) Upsert(ctx context.Context, entry *entity.StockEntry) error {
	if entry.Quantity < 0 {
		return domain.ErrInvalidQuantity
	}
	query := `
		INSERT INTO stock (company_id, product_id, sector_id, quantity, version, updated_at)
		VALUES ($1, $2, $3, $4, 1, now())
		ON CONFLICT (company_id, product_id, sector_id)
		DO UPDATE SET quantity = EXCLUDED.quantity, version = stock.version + 1, updated_at = now()
		WHERE stock.version = $5
		RETURNING version, updated_at`
	err := r.q.QueryRow(ctx, query,
		entry.CompanyID, entry.ProductID, nullIfEmpty(entry.SectorID), entry.Quantity, entry.Version,
	).Scan(&entry.Version, &entry.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrConcurrentModification
		}
		if isUniqueViolation(err) {
			// otra transacción insertó la misma fila en paralelo
			return domain.ErrConcurrentModification
		}
		return mapError("upsert stock", err)
	}
	return nil
}

// Delete elimina la fila del producto en el sector.
func (r *StockRepo) Delete(ctx context.Context, companyID, productID, sectorID string) error {
	query := `
		DELETE FROM stock
		WHERE company_id = $1 AND product_id = $2 AND sector_id IS NOT DISTINCT FROM $3`
	if _, err := r.q.Exec(ctx, query, companyID, productID, nullIfEmpty(sectorID)); err != nil {
		return mapError("delete stock", err)
	}
	return nil
}

// ListByProduct lista las filas del producto en todos los sectores (pool incluido).
func (r *StockRepo) ListByProduct(ctx context.Context, companyID, productID string) ([]*entity.StockEntry, error) {
	query := `SELECT ` + stockColumns + `
		FROM stock WHERE company_id = $1 AND product_id = $2
		ORDER BY sector_id NULLS FIRST`
	return r.list(ctx, "list stock by product", query, companyID, productID)
}

// ListBySector lista las filas de un sector. sectorID vacío lista el pool sin sector.
func (r *StockRepo) ListBySector(ctx context.Context, companyID, sectorID string) ([]*entity.StockEntry, error) {
	query := `SELECT ` + stockColumns + `
		FROM stock WHERE company_id = $1 AND sector_id IS NOT DISTINCT FROM $2
		ORDER BY product_id`
	return r.list(ctx, "list stock by sector", query, companyID, nullIfEmpty(sectorID))
}

// ListByCompany lista todo el stock de la empresa.
func (r *StockRepo) ListByCompany(ctx context.Context, companyID string) ([]*entity.StockEntry, error) {
	query := `SELECT ` + stockColumns + `
		FROM stock WHERE company_id = $1
		ORDER BY product_id, sector_id NULLS FIRST`
	return r.list(ctx, "list stock by company", query, companyID)
}

func (r *StockRepo) list(ctx context.Context, op, query string, args ...any) ([]*entity.StockEntry, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(op, err)
	}
	defer rows.Close()
	list := make([]*entity.StockEntry, 0)
	for rows.Next() {
		s, err := scanStock(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock: %w", err)
		}
		list = append(list, s)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(op, err)
	}
	return list, nil
}

func scanStock(row pgx.Row) (*entity.StockEntry, error) {
	var s entity.StockEntry
	var sectorID *string
	if err := row.Scan(&s.CompanyID, &s.ProductID, &sectorID, &s.Quantity, &s.Version, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.SectorID = valueOrEmpty(sectorID)
	return &s, nil
}
