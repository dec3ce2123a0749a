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

var _ repository.AdjustmentRepository = (*AdjustmentRepo)(nil)

// AdjustmentRepo registro inmutable de conteos aplicados (cabecera + líneas).
type AdjustmentRepo struct {
	q Querier
}

// NewAdjustmentRepository construye el adaptador. Pasar pool o tx (Querier).
func NewAdjustmentRepository(q Querier) *AdjustmentRepo {
	return &AdjustmentRepo{q: q}
}

// Create persiste el registro con sus líneas. Uno por sesión (session_id único).
func (r *AdjustmentRepo) Create(ctx context.Context, record *entity.AdjustmentRecord) error {
	query := `
		INSERT INTO adjustment_records (id, company_id, session_id, sector_id, user1_id, user2_id, supervisor_id,
			outcome, total_products, counted_products, attempts, net_delta, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.q.Exec(ctx, query,
		record.ID, record.CompanyID, record.SessionID, record.SectorID, record.User1ID, record.User2ID,
		record.SupervisorID, record.Outcome, record.TotalProducts, record.CountedProducts, record.Attempts,
		record.NetDelta(), record.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return mapError("insert adjustment record", err)
	}
	if len(record.Lines) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for i, l := range record.Lines {
		batch.Queue(`
			INSERT INTO adjustment_lines (record_id, line_no, product_id, stock_at_system, count1, count2,
				was_counted, action, overridden, previous_quantity, new_quantity, delta)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			record.ID, i+1, l.ProductID, l.StockAtSystem, l.Count1, l.Count2,
			l.WasCounted, l.Action, l.Overridden, l.PreviousQuantity, l.NewQuantity, l.Delta,
		)
	}
	br := r.q.SendBatch(ctx, batch)
	defer br.Close()
	for range record.Lines {
		if _, err := br.Exec(); err != nil {
			return mapError("insert adjustment line", err)
		}
	}
	return nil
}

// GetBySession obtiene el registro de la sesión; nil, nil si todavía no se aplicó.
func (r *AdjustmentRepo) GetBySession(ctx context.Context, sessionID string) (*entity.AdjustmentRecord, error) {
	query := `
		SELECT id, company_id, session_id, sector_id, user1_id, user2_id, supervisor_id,
			outcome, total_products, counted_products, attempts, created_at
		FROM adjustment_records WHERE session_id = $1`
	var rec entity.AdjustmentRecord
	err := r.q.QueryRow(ctx, query, sessionID).Scan(
		&rec.ID, &rec.CompanyID, &rec.SessionID, &rec.SectorID, &rec.User1ID, &rec.User2ID, &rec.SupervisorID,
		&rec.Outcome, &rec.TotalProducts, &rec.CountedProducts, &rec.Attempts, &rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get adjustment record: %w", err)
	}

	rows, err := r.q.Query(ctx, `
		SELECT product_id, stock_at_system, count1, count2, was_counted, action, overridden,
			previous_quantity, new_quantity, delta
		FROM adjustment_lines WHERE record_id = $1 ORDER BY line_no`, rec.ID)
	if err != nil {
		return nil, fmt.Errorf("list adjustment lines: %w", err)
	}
	defer rows.Close()
	rec.Lines = make([]entity.AdjustmentLine, 0)
	for rows.Next() {
		var l entity.AdjustmentLine
		if err := rows.Scan(&l.ProductID, &l.StockAtSystem, &l.Count1, &l.Count2, &l.WasCounted, &l.Action,
			&l.Overridden, &l.PreviousQuantity, &l.NewQuantity, &l.Delta); err != nil {
			return nil, fmt.Errorf("scan adjustment line: %w", err)
		}
		rec.Lines = append(rec.Lines, l)
	}
	return &rec, rows.Err()
}
