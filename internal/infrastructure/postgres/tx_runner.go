package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/stock-sectores/internal/application/count"
	"github.com/jhoicas/stock-sectores/internal/application/stock"
	"github.com/jhoicas/stock-sectores/internal/domain/repository"
)

// Ensure TxRunner implements stock.TxRunner and count.TxRunner.
var _ stock.TxRunner = (*TxRunner)(nil)
var _ count.TxRunner = (*TxRunner)(nil)

// txOptions: REPEATABLE READ para que los totales por producto leídos dentro de la transacción
// (snapshot antes/después) no vean escrituras concurrentes a medio camino.
var txOptions = pgx.TxOptions{IsoLevel: pgx.RepeatableRead}

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
func (r *TxRunner) Run(ctx context.Context, fn func(
	stockRepo repository.StockRepository,
	movRepo repository.StockMovementRepository,
) error) error {
	return r.run(ctx, func(tx pgx.Tx) error {
		return fn(NewStockRepository(tx), NewStockMovementRepository(tx))
	})
}

// RunCount inicia una transacción con los repos del ledger y del conteo (para aplicar una sesión).
func (r *TxRunner) RunCount(ctx context.Context, fn func(
	stockRepo repository.StockRepository,
	movRepo repository.StockMovementRepository,
	sessionRepo repository.CountSessionRepository,
	adjustmentRepo repository.AdjustmentRepository,
) error) error {
	return r.run(ctx, func(tx pgx.Tx) error {
		return fn(
			NewStockRepository(tx),
			NewStockMovementRepository(tx),
			NewCountSessionRepository(tx),
			NewAdjustmentRepository(tx),
		)
	})
}

func (r *TxRunner) run(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.BeginTx(ctx, txOptions)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return mapError("commit transaction", err)
	}
	return nil
}
