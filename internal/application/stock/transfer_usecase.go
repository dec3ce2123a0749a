// Package stock contiene los casos de uso del motor de traslados (traslado, asignación, ingreso,
// limpieza) y las consultas de stock consolidado.
package stock

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/stock-sectores/internal/application/dto"
	"github.com/jhoicas/stock-sectores/internal/domain"
	"github.com/jhoicas/stock-sectores/internal/domain/entity"
	"github.com/jhoicas/stock-sectores/internal/domain/expression"
	"github.com/jhoicas/stock-sectores/internal/domain/ledger"
	"github.com/jhoicas/stock-sectores/internal/domain/repository"
	"github.com/jhoicas/stock-sectores/pkg/logger"
)

// TransferUseCase mueve unidades entre sectores de forma transaccional: bloquea las filas
// tocadas (en orden de clave), revalida cantidades dentro de la tx y verifica conservación.
type TransferUseCase struct {
	txRunner    TxRunner
	productRepo repository.ProductRepository
	sectorRepo  repository.SectorRepository
	log         *logger.Logger
	intake      *logger.Logger
	metrics     Metrics
	now         func() time.Time
}

// NewTransferUseCase construye el caso de uso. log y metrics pueden ser nil.
func NewTransferUseCase(
	txRunner TxRunner,
	productRepo repository.ProductRepository,
	sectorRepo repository.SectorRepository,
	log *logger.Logger,
	metrics Metrics,
) *TransferUseCase {
	if log == nil {
		log = logger.Nop()
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &TransferUseCase{
		txRunner:    txRunner,
		productRepo: productRepo,
		sectorRepo:  sectorRepo,
		log:         log.Channel("ledger"),
		intake:      log.Channel("intake"),
		metrics:     metrics,
		now:         time.Now,
	}
}

// WithClock reemplaza el reloj (tests).
func (uc *TransferUseCase) WithClock(now func() time.Time) *TransferUseCase {
	uc.now = now
	return uc
}

// TransferInput traslado de un producto entre dos sectores. FromSectorID vacío = pool sin sector.
type TransferInput struct {
	CompanyID    string
	UserID       string
	ProductID    string
	FromSectorID string
	ToSectorID   string
	Quantity     int64
}

// AssignItem un producto del lote de asignación.
type AssignItem struct {
	ProductID string
	Quantity  int64
}

// AssignInput asignación en lote desde el pool sin sector hacia SectorID.
type AssignInput struct {
	CompanyID string
	UserID    string
	SectorID  string
	Items     []AssignItem
}

// ReceiveInput ingreso de unidades desde fuera del sistema.
type ReceiveInput struct {
	CompanyID string
	UserID    string
	ProductID string
	SectorID  string
	Quantity  int64
	Reference string
}

// ──────────────────────────────────────────────────────────────────────────────
// Adaptadores de request (evalúan la expresión de cantidad)
// ──────────────────────────────────────────────────────────────────────────────

// TransferFromRequest evalúa quantity_expr y ejecuta el traslado.
func (uc *TransferUseCase) TransferFromRequest(ctx context.Context, companyID, userID string, req dto.TransferRequest) (*dto.TransferResponse, error) {
	qty, err := expression.Evaluate(req.QuantityExpr)
	if err != nil {
		return nil, err
	}
	return uc.Transfer(ctx, TransferInput{
		CompanyID:    companyID,
		UserID:       userID,
		ProductID:    req.ProductID,
		FromSectorID: req.FromSectorID,
		ToSectorID:   req.ToSectorID,
		Quantity:     qty,
	})
}

// AssignFromRequest evalúa cada quantity_expr del lote; una expresión inválida rechaza el lote entero.
func (uc *TransferUseCase) AssignFromRequest(ctx context.Context, companyID, userID string, req dto.AssignRequest) (*dto.AssignResponse, error) {
	items := make([]AssignItem, 0, len(req.Items))
	for _, it := range req.Items {
		qty, err := expression.Evaluate(it.QuantityExpr)
		if err != nil {
			return nil, fmt.Errorf("producto %s: %w", it.ProductID, err)
		}
		items = append(items, AssignItem{ProductID: it.ProductID, Quantity: qty})
	}
	return uc.Assign(ctx, AssignInput{CompanyID: companyID, UserID: userID, SectorID: req.SectorID, Items: items})
}

// ReceiveFromRequest evalúa quantity_expr y registra el ingreso.
func (uc *TransferUseCase) ReceiveFromRequest(ctx context.Context, companyID, userID string, req dto.ReceiveRequest) (*dto.ReceiveResponse, error) {
	qty, err := expression.Evaluate(req.QuantityExpr)
	if err != nil {
		return nil, err
	}
	return uc.Receive(ctx, ReceiveInput{
		CompanyID: companyID,
		UserID:    userID,
		ProductID: req.ProductID,
		SectorID:  req.SectorID,
		Quantity:  qty,
		Reference: req.Reference,
	})
}

// ──────────────────────────────────────────────────────────────────────────────
// Operaciones
// ──────────────────────────────────────────────────────────────────────────────

// Transfer descuenta del origen y suma al destino en un único paso atómico.
func (uc *TransferUseCase) Transfer(ctx context.Context, in TransferInput) (*dto.TransferResponse, error) {
	out, err := uc.transfer(ctx, in)
	if err != nil {
		uc.metrics.OperationRejected("transfer", err)
		uc.log.Warn().Err(err).
			Str("product_id", in.ProductID).
			Str("from_sector", in.FromSectorID).
			Str("to_sector", in.ToSectorID).
			Int64("quantity", in.Quantity).
			Msg("traslado rechazado")
		return nil, err
	}
	uc.metrics.MovementApplied(entity.MovementTypeTRANSFER, out.Quantity)
	uc.log.Info().
		Str("tx_id", out.TransactionID).
		Str("product_id", out.ProductID).
		Str("from_sector", out.FromSectorID).
		Str("to_sector", out.ToSectorID).
		Int64("quantity", out.Quantity).
		Str("user_id", in.UserID).
		Msg("traslado aplicado")
	return out, nil
}

func (uc *TransferUseCase) transfer(ctx context.Context, in TransferInput) (*dto.TransferResponse, error) {
	if in.ProductID == "" {
		return nil, domain.ErrInvalidInput
	}
	if in.FromSectorID == in.ToSectorID {
		return nil, domain.NewStockError(domain.ErrSameSector, in.ProductID, in.FromSectorID, in.Quantity, 0)
	}
	if in.Quantity <= 0 {
		return nil, domain.NewStockError(domain.ErrInvalidQuantity, in.ProductID, in.FromSectorID, in.Quantity, 0)
	}
	if in.ToSectorID == entity.UnsectoredPool {
		return nil, fmt.Errorf("%w: el pool sin sector no es destino de traslados", domain.ErrInvalidInput)
	}
	if err := uc.checkProduct(ctx, in.CompanyID, in.ProductID); err != nil {
		return nil, err
	}
	if in.FromSectorID != entity.UnsectoredPool {
		if err := uc.checkSector(ctx, in.CompanyID, in.FromSectorID, false); err != nil {
			return nil, err
		}
	}
	if err := uc.checkSector(ctx, in.CompanyID, in.ToSectorID, true); err != nil {
		return nil, err
	}

	txID := uuid.New().String()
	out := &dto.TransferResponse{
		Success:       true,
		TransactionID: txID,
		ProductID:     in.ProductID,
		FromSectorID:  in.FromSectorID,
		ToSectorID:    in.ToSectorID,
		Quantity:      in.Quantity,
	}

	err := uc.txRunner.Run(ctx, func(stockRepo repository.StockRepository, movRepo repository.StockMovementRepository) error {
		l := ledger.New(stockRepo, in.CompanyID).WithClock(uc.now)
		fromKey := ledger.Key{ProductID: in.ProductID, SectorID: in.FromSectorID}
		toKey := ledger.Key{ProductID: in.ProductID, SectorID: in.ToSectorID}

		rows, err := l.Lock(ctx, fromKey, toKey)
		if err != nil {
			return err
		}
		before, err := l.Snapshot(ctx, in.ProductID)
		if err != nil {
			return err
		}

		origin, dest := rows[fromKey], rows[toKey]
		if in.Quantity > origin.Quantity {
			return domain.NewStockError(domain.ErrInsufficientStock, in.ProductID, in.FromSectorID, in.Quantity, origin.Quantity)
		}

		prevOrigin, prevDest := origin.Quantity, dest.Quantity
		if err := l.Write(ctx, origin, prevOrigin-in.Quantity); err != nil {
			return err
		}
		if err := l.Write(ctx, dest, prevDest+in.Quantity); err != nil {
			return err
		}

		now := uc.now()
		if err := movRepo.Create(ctx, newMovement(txID, in.CompanyID, in.UserID, in.ProductID, in.FromSectorID,
			entity.MovementTypeTRANSFER, "", prevOrigin, origin.Quantity, now)); err != nil {
			return err
		}
		if err := movRepo.Create(ctx, newMovement(txID, in.CompanyID, in.UserID, in.ProductID, in.ToSectorID,
			entity.MovementTypeTRANSFER, "", prevDest, dest.Quantity, now)); err != nil {
			return err
		}
		if err := l.AssertConserved(ctx, before); err != nil {
			return err
		}

		out.NewOriginQty = origin.Quantity
		out.NewDestQty = dest.Quantity
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Assign distribuye unidades del pool sin sector hacia un sector. El lote completo se valida contra
// el pool de cada producto antes de aplicar cualquier movimiento.
func (uc *TransferUseCase) Assign(ctx context.Context, in AssignInput) (*dto.AssignResponse, error) {
	out, err := uc.assign(ctx, in)
	if err != nil {
		uc.metrics.OperationRejected("assign", err)
		uc.log.Warn().Err(err).Str("sector_id", in.SectorID).Int("items", len(in.Items)).Msg("asignación rechazada")
		return nil, err
	}
	var units int64
	for _, r := range out.Results {
		units += r.Quantity
	}
	uc.metrics.MovementApplied(entity.MovementTypeASSIGN, units)
	uc.log.Info().
		Str("tx_id", out.TransactionID).
		Str("sector_id", out.SectorID).
		Int("items", len(out.Results)).
		Int64("units", units).
		Str("user_id", in.UserID).
		Msg("asignación aplicada")
	return out, nil
}

func (uc *TransferUseCase) assign(ctx context.Context, in AssignInput) (*dto.AssignResponse, error) {
	if len(in.Items) == 0 {
		return nil, domain.ErrInvalidInput
	}
	if in.SectorID == entity.UnsectoredPool {
		return nil, domain.NewStockError(domain.ErrSameSector, in.Items[0].ProductID, in.SectorID, in.Items[0].Quantity, 0)
	}
	if err := uc.checkSector(ctx, in.CompanyID, in.SectorID, true); err != nil {
		return nil, err
	}

	requested := make(map[string]int64, len(in.Items))
	products := make([]string, 0, len(in.Items))
	for _, it := range in.Items {
		if it.ProductID == "" {
			return nil, domain.ErrInvalidInput
		}
		if it.Quantity <= 0 {
			return nil, domain.NewStockError(domain.ErrInvalidQuantity, it.ProductID, in.SectorID, it.Quantity, 0)
		}
		if _, ok := requested[it.ProductID]; !ok {
			if err := uc.checkProduct(ctx, in.CompanyID, it.ProductID); err != nil {
				return nil, err
			}
			products = append(products, it.ProductID)
		}
		if requested[it.ProductID] > math.MaxInt64-it.Quantity {
			return nil, domain.NewStockError(domain.ErrInvalidQuantity, it.ProductID, in.SectorID, it.Quantity, 0)
		}
		requested[it.ProductID] += it.Quantity
	}

	txID := uuid.New().String()
	out := &dto.AssignResponse{Success: true, TransactionID: txID, SectorID: in.SectorID}

	err := uc.txRunner.Run(ctx, func(stockRepo repository.StockRepository, movRepo repository.StockMovementRepository) error {
		l := ledger.New(stockRepo, in.CompanyID).WithClock(uc.now)

		keys := make([]ledger.Key, 0, 2*len(products))
		for _, p := range products {
			keys = append(keys,
				ledger.Key{ProductID: p, SectorID: entity.UnsectoredPool},
				ledger.Key{ProductID: p, SectorID: in.SectorID})
		}
		rows, err := l.Lock(ctx, keys...)
		if err != nil {
			return err
		}
		before, err := l.Snapshot(ctx, products...)
		if err != nil {
			return err
		}

		// validación del lote completo antes de escribir
		for _, p := range products {
			pool := rows[ledger.Key{ProductID: p, SectorID: entity.UnsectoredPool}]
			if requested[p] > pool.Quantity {
				return domain.NewStockError(domain.ErrInsufficientStock, p, entity.UnsectoredPool, requested[p], pool.Quantity)
			}
		}

		now := uc.now()
		results := make([]dto.AssignItemResult, 0, len(in.Items))
		for _, it := range in.Items {
			pool := rows[ledger.Key{ProductID: it.ProductID, SectorID: entity.UnsectoredPool}]
			dest := rows[ledger.Key{ProductID: it.ProductID, SectorID: in.SectorID}]
			prevPool, prevDest := pool.Quantity, dest.Quantity

			if err := l.Write(ctx, pool, prevPool-it.Quantity); err != nil {
				return err
			}
			if err := l.Write(ctx, dest, prevDest+it.Quantity); err != nil {
				return err
			}
			if err := movRepo.Create(ctx, newMovement(txID, in.CompanyID, in.UserID, it.ProductID, entity.UnsectoredPool,
				entity.MovementTypeASSIGN, "", prevPool, pool.Quantity, now)); err != nil {
				return err
			}
			if err := movRepo.Create(ctx, newMovement(txID, in.CompanyID, in.UserID, it.ProductID, in.SectorID,
				entity.MovementTypeASSIGN, "", prevDest, dest.Quantity, now)); err != nil {
				return err
			}
			results = append(results, dto.AssignItemResult{
				ProductID:    it.ProductID,
				Quantity:     it.Quantity,
				NewPoolQty:   pool.Quantity,
				NewSectorQty: dest.Quantity,
			})
		}
		if err := l.AssertConserved(ctx, before); err != nil {
			return err
		}
		out.Results = results
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Receive suma unidades que llegan de fuera del sistema. Es la única operación que aumenta
// el total de un producto; se audita en el canal "intake", separado de los traslados.
func (uc *TransferUseCase) Receive(ctx context.Context, in ReceiveInput) (*dto.ReceiveResponse, error) {
	out, err := uc.receive(ctx, in)
	if err != nil {
		uc.metrics.OperationRejected("receive", err)
		uc.intake.Warn().Err(err).Str("product_id", in.ProductID).Str("sector_id", in.SectorID).Msg("ingreso rechazado")
		return nil, err
	}
	uc.metrics.MovementApplied(entity.MovementTypeRECEIVE, out.Quantity)
	uc.intake.Info().
		Str("tx_id", out.TransactionID).
		Str("product_id", out.ProductID).
		Str("sector_id", out.SectorID).
		Int64("quantity", out.Quantity).
		Int64("new_quantity", out.NewQuantity).
		Str("reference", in.Reference).
		Str("user_id", in.UserID).
		Msg("ingreso registrado")
	return out, nil
}

func (uc *TransferUseCase) receive(ctx context.Context, in ReceiveInput) (*dto.ReceiveResponse, error) {
	if in.ProductID == "" {
		return nil, domain.ErrInvalidInput
	}
	if in.Quantity <= 0 {
		return nil, domain.NewStockError(domain.ErrInvalidQuantity, in.ProductID, in.SectorID, in.Quantity, 0)
	}
	if err := uc.checkProduct(ctx, in.CompanyID, in.ProductID); err != nil {
		return nil, err
	}
	if in.SectorID != entity.UnsectoredPool {
		if err := uc.checkSector(ctx, in.CompanyID, in.SectorID, true); err != nil {
			return nil, err
		}
	}

	txID := uuid.New().String()
	out := &dto.ReceiveResponse{Success: true, TransactionID: txID, ProductID: in.ProductID, SectorID: in.SectorID, Quantity: in.Quantity}

	err := uc.txRunner.Run(ctx, func(stockRepo repository.StockRepository, movRepo repository.StockMovementRepository) error {
		l := ledger.New(stockRepo, in.CompanyID).WithClock(uc.now)
		key := ledger.Key{ProductID: in.ProductID, SectorID: in.SectorID}
		rows, err := l.Lock(ctx, key)
		if err != nil {
			return err
		}
		entry := rows[key]
		if in.Quantity > math.MaxInt64-entry.Quantity {
			return domain.NewStockError(domain.ErrInvalidQuantity, in.ProductID, in.SectorID, in.Quantity, entry.Quantity)
		}
		prev := entry.Quantity
		if err := l.Write(ctx, entry, prev+in.Quantity); err != nil {
			return err
		}
		if err := movRepo.Create(ctx, newMovement(txID, in.CompanyID, in.UserID, in.ProductID, in.SectorID,
			entity.MovementTypeRECEIVE, in.Reference, prev, entry.Quantity, uc.now())); err != nil {
			return err
		}
		out.NewQuantity = entry.Quantity
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Remove elimina una fila en cero. Es idempotente: si la fila no existe no hace nada;
// si tiene unidades devuelve ErrStockNotEmpty sin modificar nada.
func (uc *TransferUseCase) Remove(ctx context.Context, companyID, productID, sectorID string) error {
	if productID == "" {
		return domain.ErrInvalidInput
	}
	err := uc.txRunner.Run(ctx, func(stockRepo repository.StockRepository, _ repository.StockMovementRepository) error {
		return removeZero(ctx, ledger.New(stockRepo, companyID), stockRepo, companyID, productID, sectorID)
	})
	if err != nil {
		uc.metrics.OperationRejected("remove", err)
		return err
	}
	uc.log.Debug().Str("product_id", productID).Str("sector_id", sectorID).Msg("fila en cero eliminada")
	return nil
}

// ClearZeroStock elimina todas las filas en cero de un sector con la misma regla que Remove.
func (uc *TransferUseCase) ClearZeroStock(ctx context.Context, companyID, sectorID string) (*dto.ClearZeroStockResponse, error) {
	if sectorID != entity.UnsectoredPool {
		if err := uc.checkSector(ctx, companyID, sectorID, false); err != nil {
			return nil, err
		}
	}
	removed := 0
	err := uc.txRunner.Run(ctx, func(stockRepo repository.StockRepository, _ repository.StockMovementRepository) error {
		removed = 0
		rows, err := stockRepo.ListBySector(ctx, companyID, sectorID)
		if err != nil {
			return err
		}
		l := ledger.New(stockRepo, companyID)
		for _, r := range rows {
			if r.Quantity != 0 {
				continue
			}
			if err := removeZero(ctx, l, stockRepo, companyID, r.ProductID, sectorID); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	if err != nil {
		uc.metrics.OperationRejected("clear_zero_stock", err)
		return nil, err
	}
	uc.log.Info().Str("sector_id", sectorID).Int("removed", removed).Msg("filas en cero eliminadas")
	return &dto.ClearZeroStockResponse{SectorID: sectorID, Removed: removed}, nil
}

func removeZero(ctx context.Context, l *ledger.Ledger, stockRepo repository.StockRepository, companyID, productID, sectorID string) error {
	key := ledger.Key{ProductID: productID, SectorID: sectorID}
	rows, err := l.Lock(ctx, key)
	if err != nil {
		return err
	}
	if q := rows[key].Quantity; q > 0 {
		return domain.NewStockError(domain.ErrStockNotEmpty, productID, sectorID, 0, q)
	}
	return stockRepo.Delete(ctx, companyID, productID, sectorID)
}

// ──────────────────────────────────────────────────────────────────────────────
// Validaciones
// ──────────────────────────────────────────────────────────────────────────────

func (uc *TransferUseCase) checkProduct(ctx context.Context, companyID, productID string) error {
	return checkProduct(ctx, uc.productRepo, companyID, productID)
}

func (uc *TransferUseCase) checkSector(ctx context.Context, companyID, sectorID string, asDestination bool) error {
	_, err := checkSector(ctx, uc.sectorRepo, companyID, sectorID, asDestination)
	return err
}

func checkProduct(ctx context.Context, repo repository.ProductRepository, companyID, productID string) error {
	p, err := repo.GetByID(ctx, productID)
	if err != nil {
		return fmt.Errorf("buscar producto: %w", err)
	}
	if p == nil {
		return domain.ErrNotFound
	}
	if p.CompanyID != companyID {
		return domain.ErrForbidden
	}
	return nil
}

// checkSector valida que el sector exista en la empresa; un sector inactivo no recibe unidades.
func checkSector(ctx context.Context, repo repository.SectorRepository, companyID, sectorID string, asDestination bool) (*entity.Sector, error) {
	s, err := repo.GetByID(ctx, sectorID)
	if err != nil {
		return nil, fmt.Errorf("buscar sector: %w", err)
	}
	if s == nil || s.CompanyID != companyID {
		return nil, domain.ErrNotFound
	}
	if asDestination && !s.Active {
		return nil, fmt.Errorf("%w: sector %s inactivo", domain.ErrInvalidInput, s.Name)
	}
	return s, nil
}

func newMovement(txID, companyID, userID, productID, sectorID, movementType, reference string, prev, next int64, at time.Time) *entity.StockMovement {
	return &entity.StockMovement{
		ID:               uuid.New().String(),
		TransactionID:    txID,
		CompanyID:        companyID,
		ProductID:        productID,
		SectorID:         sectorID,
		Type:             movementType,
		Quantity:         next - prev,
		PreviousQuantity: prev,
		NewQuantity:      next,
		Reference:        reference,
		CreatedAt:        at,
		CreatedBy:        userID,
	}
}
