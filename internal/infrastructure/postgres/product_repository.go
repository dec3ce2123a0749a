package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-sectores/internal/domain/entity"
	"github.com/jhoicas/stock-sectores/internal/domain/repository"
)

var _ repository.ProductRepository = (*ProductRepo)(nil)

// ProductRepo lectura del catálogo de productos sobre PostgreSQL.
type ProductRepo struct {
	q Querier
}

// NewProductRepository construye el adaptador de lectura de productos. Pasar pool o tx (Querier).
func NewProductRepository(q Querier) *ProductRepo {
	return &ProductRepo{q: q}
}

// GetByID obtiene un producto por ID.
func (r *ProductRepo) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	query := `
		SELECT id, company_id, name, custom_code, unit_measure
		FROM products WHERE id = $1`
	var p entity.Product
	var code *string
	err := r.q.QueryRow(ctx, query, id).Scan(&p.ID, &p.CompanyID, &p.Name, &code, &p.UnitMeasure)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	p.CustomCode = valueOrEmpty(code)
	return &p, nil
}

// ListByIDs obtiene los productos de la empresa cuyos IDs estén en la lista; ignora los que no existan.
func (r *ProductRepo) ListByIDs(ctx context.Context, companyID string, ids []string) ([]*entity.Product, error) {
	if len(ids) == 0 {
		return []*entity.Product{}, nil
	}
	query := `
		SELECT id, company_id, name, custom_code, unit_measure
		FROM products WHERE company_id = $1 AND id = ANY($2)
		ORDER BY name`
	rows, err := r.q.Query(ctx, query, companyID, ids)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()
	list := make([]*entity.Product, 0, len(ids))
	for rows.Next() {
		var p entity.Product
		var code *string
		if err := rows.Scan(&p.ID, &p.CompanyID, &p.Name, &code, &p.UnitMeasure); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		p.CustomCode = valueOrEmpty(code)
		list = append(list, &p)
	}
	return list, rows.Err()
}
