package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-sectores/internal/domain"
	reconcile "github.com/jhoicas/stock-sectores/internal/domain/count"
	"github.com/jhoicas/stock-sectores/internal/domain/entity"
	"github.com/jhoicas/stock-sectores/internal/domain/repository"
)

var _ repository.CountSessionRepository = (*CountSessionRepo)(nil)

// CountSessionRepo sesiones de conteo, detalles por producto y subconteos sobre PostgreSQL.
type CountSessionRepo struct {
	q Querier
}

// NewCountSessionRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCountSessionRepository(q Querier) *CountSessionRepo {
	return &CountSessionRepo{q: q}
}

const sessionColumns = `id, company_id, sector_id, user1_id, user2_id, state, total_products, counted_products,
	created_at, updated_at, closed_at, finalized_at, finalized_by`

const detailColumns = `id, session_id, product_id, stock_at_system, count1, count2, counted1, counted2,
	was_counted, action, resolved_quantity, overridden`

// Create persiste la sesión y el snapshot de detalles en un solo batch.
// El índice parcial sobre (company_id, sector_id) rechaza una segunda sesión abierta en el sector.
func (r *CountSessionRepo) Create(ctx context.Context, session *entity.CountSession, details []*entity.ProductCountDetail) error {
	query := `
		INSERT INTO count_sessions (id, company_id, sector_id, user1_id, user2_id, state, total_products,
			counted_products, completion_pct, created_at, updated_at, closed_at, finalized_at, finalized_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := r.q.Exec(ctx, query,
		session.ID, session.CompanyID, session.SectorID, session.User1ID, session.User2ID, session.State,
		session.TotalProducts, session.CountedProducts,
		reconcile.CompletionPct(session.CountedProducts, session.TotalProducts),
		session.CreatedAt, session.UpdatedAt, session.ClosedAt, session.FinalizedAt, nullIfEmpty(session.FinalizedBy),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return mapError("insert count session", err)
	}
	if len(details) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, d := range details {
		batch.Queue(insertDetailSQL, detailArgs(d)...)
	}
	br := r.q.SendBatch(ctx, batch)
	defer br.Close()
	for range details {
		if _, err := br.Exec(); err != nil {
			return mapError("insert count detail", err)
		}
	}
	return nil
}

// GetByID obtiene una sesión por ID.
func (r *CountSessionRepo) GetByID(ctx context.Context, id string) (*entity.CountSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM count_sessions WHERE id = $1`
	return r.getOne(ctx, "get count session", query, id)
}

// GetForUpdate obtiene la sesión y la bloquea hasta el fin de la transacción.
func (r *CountSessionRepo) GetForUpdate(ctx context.Context, id string) (*entity.CountSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM count_sessions WHERE id = $1 FOR UPDATE`
	return r.getOne(ctx, "get count session for update", query, id)
}

// FindOpenBySector devuelve la sesión no archivada del sector, o nil.
func (r *CountSessionRepo) FindOpenBySector(ctx context.Context, companyID, sectorID string) (*entity.CountSession, error) {
	query := `SELECT ` + sessionColumns + `
		FROM count_sessions WHERE company_id = $1 AND sector_id = $2 AND state <> $3`
	return r.getOne(ctx, "find open count session", query, companyID, sectorID, entity.CountStateArchived)
}

func (r *CountSessionRepo) getOne(ctx context.Context, op, query string, args ...any) (*entity.CountSession, error) {
	s, err := scanSession(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError(op, err)
	}
	return s, nil
}

// Update reemplaza la cabecera de la sesión.
func (r *CountSessionRepo) Update(ctx context.Context, session *entity.CountSession) error {
	query := `
		UPDATE count_sessions SET state = $2, total_products = $3, counted_products = $4, completion_pct = $5,
			updated_at = $6, closed_at = $7, finalized_at = $8, finalized_by = $9
		WHERE id = $1`
	cmd, err := r.q.Exec(ctx, query,
		session.ID, session.State, session.TotalProducts, session.CountedProducts,
		reconcile.CompletionPct(session.CountedProducts, session.TotalProducts),
		session.UpdatedAt, session.ClosedAt, session.FinalizedAt, nullIfEmpty(session.FinalizedBy),
	)
	if err != nil {
		return mapError("update count session", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListByCompany lista sesiones de la empresa, las más recientes primero.
func (r *CountSessionRepo) ListByCompany(ctx context.Context, companyID string, limit, offset int) ([]*entity.CountSession, error) {
	query := `SELECT ` + sessionColumns + `
		FROM count_sessions WHERE company_id = $1
		ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`
	rows, err := r.q.Query(ctx, query, companyID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list count sessions: %w", err)
	}
	defer rows.Close()
	list := make([]*entity.CountSession, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan count session: %w", err)
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// ListDetails devuelve los detalles con sus subconteos, ordenados por producto.
func (r *CountSessionRepo) ListDetails(ctx context.Context, sessionID string) ([]*entity.ProductCountDetail, error) {
	query := `SELECT ` + detailColumns + `
		FROM count_details WHERE session_id = $1 ORDER BY product_id`
	rows, err := r.q.Query(ctx, query, sessionID)
	if err != nil {
		return nil, mapError("list count details", err)
	}
	list := make([]*entity.ProductCountDetail, 0)
	byProduct := make(map[string]*entity.ProductCountDetail)
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan count detail: %w", err)
		}
		list = append(list, d)
		byProduct[d.ProductID] = d
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, mapError("list count details", err)
	}

	subCounts, err := r.listSubCounts(ctx, `session_id = $1`, sessionID)
	if err != nil {
		return nil, err
	}
	for _, sc := range subCounts {
		if d, ok := byProduct[sc.ProductID]; ok {
			d.SubCounts = append(d.SubCounts, sc)
		}
	}
	return list, nil
}

// GetDetail obtiene el detalle del producto en la sesión con sus subconteos.
func (r *CountSessionRepo) GetDetail(ctx context.Context, sessionID, productID string) (*entity.ProductCountDetail, error) {
	query := `SELECT ` + detailColumns + `
		FROM count_details WHERE session_id = $1 AND product_id = $2`
	d, err := scanDetail(r.q.QueryRow(ctx, query, sessionID, productID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("get count detail", err)
	}
	subCounts, err := r.listSubCounts(ctx, `session_id = $1 AND product_id = $2`, sessionID, productID)
	if err != nil {
		return nil, err
	}
	d.SubCounts = subCounts
	return d, nil
}

const insertDetailSQL = `
	INSERT INTO count_details (` + detailColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

func detailArgs(d *entity.ProductCountDetail) []any {
	return []any{
		d.ID, d.SessionID, d.ProductID, d.StockAtSystem, d.Count1, d.Count2, d.Counted1, d.Counted2,
		d.WasCounted, d.Action, d.ResolvedQuantity, d.Overridden,
	}
}

// SaveDetail inserta o actualiza el detalle (sin tocar los subconteos).
func (r *CountSessionRepo) SaveDetail(ctx context.Context, detail *entity.ProductCountDetail) error {
	query := insertDetailSQL + `
	ON CONFLICT (session_id, product_id) DO UPDATE SET
		stock_at_system = EXCLUDED.stock_at_system,
		count1 = EXCLUDED.count1, count2 = EXCLUDED.count2,
		counted1 = EXCLUDED.counted1, counted2 = EXCLUDED.counted2,
		was_counted = EXCLUDED.was_counted, action = EXCLUDED.action,
		resolved_quantity = EXCLUDED.resolved_quantity, overridden = EXCLUDED.overridden`
	if _, err := r.q.Exec(ctx, query, detailArgs(detail)...); err != nil {
		if pgCode(err) == codeForeignKeyViolation {
			return domain.ErrNotFound
		}
		return mapError("save count detail", err)
	}
	return nil
}

// AddSubCount persiste el subconteo; el detalle del producto debe existir.
func (r *CountSessionRepo) AddSubCount(ctx context.Context, sc *entity.SubCount) error {
	query := `
		INSERT INTO count_subcounts (id, session_id, product_id, user_slot, user_id, quantity, expression, formula, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.q.Exec(ctx, query,
		sc.ID, sc.SessionID, sc.ProductID, sc.UserSlot, sc.UserID, sc.Quantity,
		nullIfEmpty(sc.Expression), nullIfEmpty(sc.Formula), sc.CreatedAt,
	)
	if err != nil {
		if pgCode(err) == codeForeignKeyViolation {
			return domain.ErrNotFound
		}
		return mapError("insert subcount", err)
	}
	return nil
}

// DeleteSubCount elimina el subconteo y lo devuelve; ErrNotFound si no existe.
func (r *CountSessionRepo) DeleteSubCount(ctx context.Context, sessionID, subCountID string) (*entity.SubCount, error) {
	query := `
		DELETE FROM count_subcounts WHERE session_id = $1 AND id = $2
		RETURNING id, session_id, product_id, user_slot, user_id, quantity, expression, formula, created_at`
	sc, err := scanSubCount(r.q.QueryRow(ctx, query, sessionID, subCountID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, mapError("delete subcount", err)
	}
	return &sc, nil
}

func (r *CountSessionRepo) listSubCounts(ctx context.Context, where string, args ...any) ([]entity.SubCount, error) {
	query := `
		SELECT id, session_id, product_id, user_slot, user_id, quantity, expression, formula, created_at
		FROM count_subcounts WHERE ` + where + ` ORDER BY created_at, id`
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError("list subcounts", err)
	}
	defer rows.Close()
	var list []entity.SubCount
	for rows.Next() {
		sc, err := scanSubCount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subcount: %w", err)
		}
		list = append(list, sc)
	}
	return list, rows.Err()
}

func scanSession(row pgx.Row) (*entity.CountSession, error) {
	var s entity.CountSession
	var finalizedBy *string
	if err := row.Scan(&s.ID, &s.CompanyID, &s.SectorID, &s.User1ID, &s.User2ID, &s.State,
		&s.TotalProducts, &s.CountedProducts, &s.CreatedAt, &s.UpdatedAt,
		&s.ClosedAt, &s.FinalizedAt, &finalizedBy); err != nil {
		return nil, err
	}
	s.FinalizedBy = valueOrEmpty(finalizedBy)
	return &s, nil
}

func scanDetail(row pgx.Row) (*entity.ProductCountDetail, error) {
	var d entity.ProductCountDetail
	if err := row.Scan(&d.ID, &d.SessionID, &d.ProductID, &d.StockAtSystem, &d.Count1, &d.Count2,
		&d.Counted1, &d.Counted2, &d.WasCounted, &d.Action, &d.ResolvedQuantity, &d.Overridden); err != nil {
		return nil, err
	}
	return &d, nil
}

func scanSubCount(row pgx.Row) (entity.SubCount, error) {
	var sc entity.SubCount
	var expression, formula *string
	err := row.Scan(&sc.ID, &sc.SessionID, &sc.ProductID, &sc.UserSlot, &sc.UserID, &sc.Quantity,
		&expression, &formula, &sc.CreatedAt)
	sc.Expression = valueOrEmpty(expression)
	sc.Formula = valueOrEmpty(formula)
	return sc, err
}
