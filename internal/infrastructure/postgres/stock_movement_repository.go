package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/stock-sectores/internal/domain/entity"
	"github.com/jhoicas/stock-sectores/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*StockMovementRepo)(nil)

// StockMovementRepo implementación sobre PostgreSQL (usable con pool o tx).
type StockMovementRepo struct {
	q Querier
}

// NewStockMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockMovementRepository(q Querier) *StockMovementRepo {
	return &StockMovementRepo{q: q}
}

// Create persiste un movimiento del ledger.
func (r *StockMovementRepo) Create(ctx context.Context, movement *entity.StockMovement) error {
	if movement.ID == "" {
		movement.ID = uuid.New().String()
	}
	query := `
		INSERT INTO stock_movements (id, transaction_id, company_id, product_id, sector_id, type, quantity,
			previous_quantity, new_quantity, reference, created_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.q.Exec(ctx, query,
		movement.ID, movement.TransactionID, movement.CompanyID, movement.ProductID,
		nullIfEmpty(movement.SectorID), movement.Type, movement.Quantity,
		movement.PreviousQuantity, movement.NewQuantity, nullIfEmpty(movement.Reference),
		movement.CreatedAt, nullIfEmpty(movement.CreatedBy),
	)
	if err != nil {
		return mapError("create stock movement", err)
	}
	return nil
}

// ListByProduct lista movimientos de un producto en un rango de fechas, el más reciente primero.
// limit 0 devuelve todos.
func (r *StockMovementRepo) ListByProduct(ctx context.Context, companyID, productID string, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error) {
	query := `
		SELECT id, transaction_id, company_id, product_id, sector_id, type, quantity,
			previous_quantity, new_quantity, reference, created_at, created_by
		FROM stock_movements WHERE company_id = $1 AND product_id = $2`
	args := []any{companyID, productID}
	pos := 3
	if from != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", pos)
		args = append(args, *from)
		pos++
	}
	if to != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", pos)
		args = append(args, *to)
		pos++
	}
	query += " ORDER BY created_at DESC, id"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", pos)
		args = append(args, limit)
		pos++
	}
	query += fmt.Sprintf(" OFFSET $%d", pos)
	args = append(args, offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list movements by product: %w", err)
	}
	defer rows.Close()
	list := make([]*entity.StockMovement, 0)
	for rows.Next() {
		var m entity.StockMovement
		var sectorID, reference, createdBy *string
		if err := rows.Scan(&m.ID, &m.TransactionID, &m.CompanyID, &m.ProductID, &sectorID, &m.Type,
			&m.Quantity, &m.PreviousQuantity, &m.NewQuantity, &reference, &m.CreatedAt, &createdBy); err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		m.SectorID = valueOrEmpty(sectorID)
		m.Reference = valueOrEmpty(reference)
		m.CreatedBy = valueOrEmpty(createdBy)
		list = append(list, &m)
	}
	return list, rows.Err()
}
