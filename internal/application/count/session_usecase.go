// Package count contiene los casos de uso del conteo doble por sector: iniciar la sesión,
// registrar subconteos, comparar, decidir y aplicar el resultado al ledger.
package count

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/stock-sectores/internal/application/dto"
	"github.com/jhoicas/stock-sectores/internal/domain"
	reconcile "github.com/jhoicas/stock-sectores/internal/domain/count"
	"github.com/jhoicas/stock-sectores/internal/domain/entity"
	"github.com/jhoicas/stock-sectores/internal/domain/expression"
	"github.com/jhoicas/stock-sectores/internal/domain/ledger"
	"github.com/jhoicas/stock-sectores/internal/domain/repository"
	"github.com/jhoicas/stock-sectores/pkg/logger"
)

// Deps dependencias del caso de uso. PDF, Exporter, Log y Metrics son opcionales.
type Deps struct {
	TxRunner       TxRunner
	SessionRepo    repository.CountSessionRepository
	AdjustmentRepo repository.AdjustmentRepository
	ProductRepo    repository.ProductRepository
	SectorRepo     repository.SectorRepository
	PDF            RegistryPDFGenerator
	Exporter       ComparisonExporter
	Log            *logger.Logger
	Metrics        Metrics
}

// CountUseCase orquesta las sesiones de conteo doble.
// Toda mutación corre en TxRunner.RunCount con la sesión bloqueada.
type CountUseCase struct {
	txRunner       TxRunner
	sessionRepo    repository.CountSessionRepository
	adjustmentRepo repository.AdjustmentRepository
	productRepo    repository.ProductRepository
	sectorRepo     repository.SectorRepository
	pdf            RegistryPDFGenerator
	exporter       ComparisonExporter
	log            *logger.Logger
	metrics        Metrics
	now            func() time.Time
}

// NewCountUseCase construye el caso de uso.
func NewCountUseCase(d Deps) *CountUseCase {
	log := d.Log
	if log == nil {
		log = logger.Nop()
	}
	var metrics Metrics = nopMetrics{}
	if d.Metrics != nil {
		metrics = d.Metrics
	}
	return &CountUseCase{
		txRunner:       d.TxRunner,
		sessionRepo:    d.SessionRepo,
		adjustmentRepo: d.AdjustmentRepo,
		productRepo:    d.ProductRepo,
		sectorRepo:     d.SectorRepo,
		pdf:            d.PDF,
		exporter:       d.Exporter,
		log:            log.Channel("count"),
		metrics:        metrics,
		now:            time.Now,
	}
}

// WithClock reemplaza el reloj (tests).
func (uc *CountUseCase) WithClock(now func() time.Time) *CountUseCase {
	uc.now = now
	return uc
}

// StartSession abre una sesión para el sector tomando el snapshot del ledger de cada producto.
// Solo puede haber una sesión no archivada por sector.
func (uc *CountUseCase) StartSession(ctx context.Context, companyID string, req dto.StartCountSessionRequest) (*dto.CountSessionResponse, error) {
	if req.SectorID == "" || req.User1ID == "" || req.User2ID == "" {
		return nil, domain.ErrInvalidInput
	}
	if req.User1ID == req.User2ID {
		return nil, fmt.Errorf("%w: los dos operarios deben ser distintos", domain.ErrInvalidInput)
	}
	sector, err := uc.sectorRepo.GetByID(ctx, req.SectorID)
	if err != nil {
		return nil, fmt.Errorf("buscar sector: %w", err)
	}
	if sector == nil || sector.CompanyID != companyID {
		return nil, domain.ErrNotFound
	}
	if !sector.Active {
		return nil, fmt.Errorf("%w: sector %s inactivo", domain.ErrInvalidInput, sector.Name)
	}

	now := uc.now()
	session := &entity.CountSession{
		ID:        uuid.New().String(),
		CompanyID: companyID,
		SectorID:  sector.ID,
		User1ID:   req.User1ID,
		User2ID:   req.User2ID,
		State:     entity.CountStateInProgress,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = uc.txRunner.RunCount(ctx, func(
		stockRepo repository.StockRepository,
		_ repository.StockMovementRepository,
		sessionRepo repository.CountSessionRepository,
		_ repository.AdjustmentRepository,
	) error {
		open, err := sessionRepo.FindOpenBySector(ctx, companyID, sector.ID)
		if err != nil {
			return err
		}
		if open != nil {
			return fmt.Errorf("%w: el sector ya tiene la sesión %s abierta", domain.ErrConflict, open.ID)
		}
		rows, err := stockRepo.ListBySector(ctx, companyID, sector.ID)
		if err != nil {
			return err
		}
		details := make([]*entity.ProductCountDetail, 0, len(rows))
		for _, r := range rows {
			details = append(details, &entity.ProductCountDetail{
				ID:            uuid.New().String(),
				SessionID:     session.ID,
				ProductID:     r.ProductID,
				StockAtSystem: r.Quantity,
				Action:        entity.ActionOmit,
			})
		}
		session.TotalProducts = len(details)
		return sessionRepo.Create(ctx, session, details)
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().
		Str("session_id", session.ID).
		Str("sector_id", session.SectorID).
		Int("products", session.TotalProducts).
		Msg("sesión de conteo iniciada")
	return toSessionResponse(session), nil
}

// SubmitSubCount evalúa la expresión del operario y suma el subconteo a su slot.
// Un producto que no estaba en el snapshot se agrega con el stock actual del ledger.
func (uc *CountUseCase) SubmitSubCount(ctx context.Context, companyID, userID, sessionID string, req dto.SubmitSubCountRequest) (*dto.ProductCountDetailResponse, error) {
	qty, err := expression.Evaluate(req.QuantityExpr)
	if err != nil {
		return nil, err
	}
	if req.ProductID == "" || (req.UserSlot != 1 && req.UserSlot != 2) {
		return nil, domain.ErrInvalidInput
	}
	product, err := uc.productRepo.GetByID(ctx, req.ProductID)
	if err != nil {
		return nil, fmt.Errorf("buscar producto: %w", err)
	}
	if product == nil {
		return nil, domain.ErrNotFound
	}
	if product.CompanyID != companyID {
		return nil, domain.ErrForbidden
	}

	var out *entity.ProductCountDetail
	err = uc.txRunner.RunCount(ctx, func(
		stockRepo repository.StockRepository,
		_ repository.StockMovementRepository,
		sessionRepo repository.CountSessionRepository,
		_ repository.AdjustmentRepository,
	) error {
		session, err := lockSession(ctx, sessionRepo, companyID, sessionID)
		if err != nil {
			return err
		}
		if !session.AcceptsCounts() {
			return sessionError(session)
		}
		if owner, _ := session.UserForSlot(req.UserSlot); owner != userID {
			return fmt.Errorf("%w: el slot %d pertenece a otro operario", domain.ErrForbidden, req.UserSlot)
		}

		now := uc.now()
		detail, err := sessionRepo.GetDetail(ctx, session.ID, req.ProductID)
		if err != nil {
			return err
		}
		if detail == nil {
			stockAtSystem, err := ledger.New(stockRepo, companyID).Get(ctx, req.ProductID, session.SectorID)
			if err != nil {
				return err
			}
			detail = &entity.ProductCountDetail{
				ID:            uuid.New().String(),
				SessionID:     session.ID,
				ProductID:     req.ProductID,
				StockAtSystem: stockAtSystem,
				Action:        entity.ActionOmit,
			}
			if err := sessionRepo.SaveDetail(ctx, detail); err != nil {
				return err
			}
			session.TotalProducts++
		}
		if detail.Overridden {
			return fmt.Errorf("%w: el supervisor ya fijó la cantidad de %s", domain.ErrConflict, req.ProductID)
		}

		sc := entity.SubCount{
			ID:         uuid.New().String(),
			SessionID:  session.ID,
			ProductID:  req.ProductID,
			UserSlot:   req.UserSlot,
			UserID:     userID,
			Quantity:   qty,
			Expression: strings.TrimSpace(req.QuantityExpr),
			Formula:    strings.TrimSpace(req.Formula),
			CreatedAt:  now,
		}
		if err := sessionRepo.AddSubCount(ctx, &sc); err != nil {
			return err
		}

		wasCounted := detail.WasCounted
		detail.SubCounts = append(detail.SubCounts, sc)
		detail.Recount()
		if !wasCounted && detail.WasCounted {
			session.CountedProducts++
		}
		if err := sessionRepo.SaveDetail(ctx, detail); err != nil {
			return err
		}
		session.UpdatedAt = now
		if err := sessionRepo.Update(ctx, session); err != nil {
			return err
		}
		out = detail
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.metrics.SubCountRecorded(req.UserSlot)
	uc.log.Debug().
		Str("session_id", sessionID).
		Str("product_id", req.ProductID).
		Int("slot", req.UserSlot).
		Int64("quantity", qty).
		Msg("subconteo registrado")
	return toDetailResponse(out), nil
}

// DeleteSubCount elimina un subconteo propio mientras la sesión está en curso.
func (uc *CountUseCase) DeleteSubCount(ctx context.Context, companyID, userID, sessionID, subCountID string) (*dto.ProductCountDetailResponse, error) {
	var out *entity.ProductCountDetail
	err := uc.txRunner.RunCount(ctx, func(
		_ repository.StockRepository,
		_ repository.StockMovementRepository,
		sessionRepo repository.CountSessionRepository,
		_ repository.AdjustmentRepository,
	) error {
		session, err := lockSession(ctx, sessionRepo, companyID, sessionID)
		if err != nil {
			return err
		}
		if !session.AcceptsCounts() {
			return sessionError(session)
		}
		removed, err := sessionRepo.DeleteSubCount(ctx, session.ID, subCountID)
		if err != nil {
			return err
		}
		if removed.UserID != userID {
			return fmt.Errorf("%w: el subconteo pertenece a otro operario", domain.ErrForbidden)
		}
		detail, err := sessionRepo.GetDetail(ctx, session.ID, removed.ProductID)
		if err != nil {
			return err
		}
		if detail == nil {
			return domain.ErrNotFound
		}
		if detail.Overridden {
			return fmt.Errorf("%w: el supervisor ya fijó la cantidad de %s", domain.ErrConflict, removed.ProductID)
		}
		wasCounted := detail.WasCounted
		detail.Recount()
		if wasCounted && !detail.WasCounted {
			session.CountedProducts--
		}
		if err := sessionRepo.SaveDetail(ctx, detail); err != nil {
			return err
		}
		session.UpdatedAt = uc.now()
		if err := sessionRepo.Update(ctx, session); err != nil {
			return err
		}
		out = detail
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toDetailResponse(out), nil
}

// SetAction fija OMIT/ZERO para un producto no contado.
func (uc *CountUseCase) SetAction(ctx context.Context, companyID, sessionID, productID, action string) (*dto.ProductCountDetailResponse, error) {
	a := entity.UncountedAction(strings.ToUpper(strings.TrimSpace(action)))
	return uc.editDetail(ctx, companyID, sessionID, productID, func(d *entity.ProductCountDetail) error {
		return reconcile.SetAction(d, a)
	})
}

// SetResolvedQuantity registra la decisión manual del supervisor sobre un producto contado.
func (uc *CountUseCase) SetResolvedQuantity(ctx context.Context, companyID, sessionID, productID string, quantity *int64) (*dto.ProductCountDetailResponse, error) {
	if quantity == nil {
		return nil, domain.ErrInvalidInput
	}
	return uc.editDetail(ctx, companyID, sessionID, productID, func(d *entity.ProductCountDetail) error {
		return reconcile.Override(d, *quantity)
	})
}

func (uc *CountUseCase) editDetail(ctx context.Context, companyID, sessionID, productID string, edit func(d *entity.ProductCountDetail) error) (*dto.ProductCountDetailResponse, error) {
	var out *entity.ProductCountDetail
	err := uc.txRunner.RunCount(ctx, func(
		_ repository.StockRepository,
		_ repository.StockMovementRepository,
		sessionRepo repository.CountSessionRepository,
		_ repository.AdjustmentRepository,
	) error {
		session, err := lockSession(ctx, sessionRepo, companyID, sessionID)
		if err != nil {
			return err
		}
		if session.IsArchived() {
			return sessionError(session)
		}
		detail, err := sessionRepo.GetDetail(ctx, session.ID, productID)
		if err != nil {
			return err
		}
		if detail == nil {
			return domain.ErrNotFound
		}
		if err := edit(detail); err != nil {
			return err
		}
		if err := sessionRepo.SaveDetail(ctx, detail); err != nil {
			return err
		}
		session.UpdatedAt = uc.now()
		if err := sessionRepo.Update(ctx, session); err != nil {
			return err
		}
		out = detail
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toDetailResponse(out), nil
}

// Close termina la captura: la sesión pasa a COMPLETED o WITH_DIFFERENCES según los conteos.
func (uc *CountUseCase) Close(ctx context.Context, companyID, sessionID string) (*dto.CountSessionResponse, error) {
	var out *entity.CountSession
	err := uc.txRunner.RunCount(ctx, func(
		_ repository.StockRepository,
		_ repository.StockMovementRepository,
		sessionRepo repository.CountSessionRepository,
		_ repository.AdjustmentRepository,
	) error {
		session, err := lockSession(ctx, sessionRepo, companyID, sessionID)
		if err != nil {
			return err
		}
		if session.State != entity.CountStateInProgress {
			return sessionError(session)
		}
		details, err := sessionRepo.ListDetails(ctx, session.ID)
		if err != nil {
			return err
		}
		now := uc.now()
		session.State = reconcile.Outcome(details)
		session.ClosedAt = &now
		session.UpdatedAt = now
		if err := sessionRepo.Update(ctx, session); err != nil {
			return err
		}
		out = session
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("session_id", out.ID).Str("state", string(out.State)).Msg("captura cerrada")
	return toSessionResponse(out), nil
}

// GetSession devuelve la sesión con sus detalles y subconteos.
func (uc *CountUseCase) GetSession(ctx context.Context, companyID, sessionID string) (*dto.CountSessionDetailResponse, error) {
	session, err := uc.loadSession(ctx, companyID, sessionID)
	if err != nil {
		return nil, err
	}
	details, err := uc.sessionRepo.ListDetails(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("listar detalles: %w", err)
	}
	out := &dto.CountSessionDetailResponse{
		Session: *toSessionResponse(session),
		Details: make([]dto.ProductCountDetailResponse, 0, len(details)),
	}
	for _, d := range details {
		out.Details = append(out.Details, *toDetailResponse(d))
	}
	return out, nil
}

// ListSessions sesiones de la empresa, más recientes primero.
func (uc *CountUseCase) ListSessions(ctx context.Context, companyID string, limit, offset int) (*dto.CountSessionListResponse, error) {
	list, err := uc.sessionRepo.ListByCompany(ctx, companyID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listar sesiones: %w", err)
	}
	items := make([]dto.CountSessionResponse, 0, len(list))
	for _, s := range list {
		items = append(items, *toSessionResponse(s))
	}
	return &dto.CountSessionListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: limit, Offset: offset},
	}, nil
}

func (uc *CountUseCase) loadSession(ctx context.Context, companyID, sessionID string) (*entity.CountSession, error) {
	session, err := uc.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("buscar sesión: %w", err)
	}
	if session == nil || session.CompanyID != companyID {
		return nil, domain.ErrNotFound
	}
	return session, nil
}

func lockSession(ctx context.Context, repo repository.CountSessionRepository, companyID, sessionID string) (*entity.CountSession, error) {
	session, err := repo.GetForUpdate(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil || session.CompanyID != companyID {
		return nil, domain.ErrNotFound
	}
	return session, nil
}

func sessionError(s *entity.CountSession) error {
	return &domain.SessionError{SessionID: s.ID, State: string(s.State), Err: domain.ErrSessionState}
}
