package count

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/jhoicas/stock-sectores/internal/application/dto"
	"github.com/jhoicas/stock-sectores/internal/domain"
	reconcile "github.com/jhoicas/stock-sectores/internal/domain/count"
	"github.com/jhoicas/stock-sectores/internal/domain/entity"
	"github.com/jhoicas/stock-sectores/internal/domain/ledger"
	"github.com/jhoicas/stock-sectores/internal/domain/repository"
)

// maxCommitAttempts primer intento más un reintento tras ErrConcurrentModification.
const maxCommitAttempts = 2

// FinalizeAndApply aplica las decisiones del supervisor y escribe la cantidad resuelta de cada
// producto en el ledger, en una única transacción. Genera el registro inmutable y archiva la sesión.
// Ante ErrConcurrentModification vuelve a leer todo y reintenta una vez; el segundo fallo se devuelve.
func (uc *CountUseCase) FinalizeAndApply(ctx context.Context, companyID, supervisorID, sessionID string, req dto.FinalizeRequest) (*dto.AdjustmentRecordResponse, error) {
	actions := make(map[string]entity.UncountedAction, len(req.Actions))
	for productID, a := range req.Actions {
		action := entity.UncountedAction(strings.ToUpper(strings.TrimSpace(a)))
		if !action.Valid() {
			return nil, fmt.Errorf("%w: acción %q para el producto %s", domain.ErrInvalidInput, a, productID)
		}
		actions[productID] = action
	}

	started := uc.now()
	var (
		record *entity.AdjustmentRecord
		err    error
	)
	for attempt := 1; attempt <= maxCommitAttempts; attempt++ {
		record, err = uc.commit(ctx, companyID, supervisorID, sessionID, actions, req.Overrides, attempt)
		if err == nil || !errors.Is(err, domain.ErrConcurrentModification) {
			break
		}
		uc.log.Warn().Err(err).Str("session_id", sessionID).Int("attempt", attempt).Msg("conflicto al aplicar el conteo")
	}
	if err != nil {
		uc.metrics.CommitFailed(err)
		uc.log.Error().Err(err).Str("session_id", sessionID).Msg("no se aplicó el conteo")
		return nil, err
	}

	uc.metrics.SessionCommitted(string(record.Outcome), len(record.Lines), record.Attempts, uc.now().Sub(started))
	uc.log.Info().
		Str("session_id", sessionID).
		Str("record_id", record.ID).
		Str("outcome", string(record.Outcome)).
		Int("lines", len(record.Lines)).
		Int64("net_delta", record.NetDelta()).
		Int("attempts", record.Attempts).
		Str("supervisor_id", supervisorID).
		Msg("conteo aplicado al ledger")
	return uc.toRecordResponse(ctx, record)
}

func (uc *CountUseCase) commit(
	ctx context.Context,
	companyID, supervisorID, sessionID string,
	actions map[string]entity.UncountedAction,
	overrides map[string]int64,
	attempt int,
) (*entity.AdjustmentRecord, error) {
	var record *entity.AdjustmentRecord
	err := uc.txRunner.RunCount(ctx, func(
		stockRepo repository.StockRepository,
		movRepo repository.StockMovementRepository,
		sessionRepo repository.CountSessionRepository,
		adjustmentRepo repository.AdjustmentRepository,
	) error {
		session, err := lockSession(ctx, sessionRepo, companyID, sessionID)
		if err != nil {
			return err
		}
		if session.IsArchived() {
			return sessionError(session)
		}
		details, err := sessionRepo.ListDetails(ctx, session.ID)
		if err != nil {
			return err
		}

		// el resultado refleja lo que contaron los operarios, antes de las decisiones manuales
		outcome := session.State
		if outcome == entity.CountStateInProgress {
			outcome = reconcile.Outcome(details)
		}

		byProduct := make(map[string]*entity.ProductCountDetail, len(details))
		for _, d := range details {
			byProduct[d.ProductID] = d
		}
		for productID, action := range actions {
			d, ok := byProduct[productID]
			if !ok {
				return fmt.Errorf("%w: producto %s no está en la sesión", domain.ErrNotFound, productID)
			}
			if err := reconcile.SetAction(d, action); err != nil {
				return fmt.Errorf("producto %s: %w", productID, err)
			}
			if err := sessionRepo.SaveDetail(ctx, d); err != nil {
				return err
			}
		}
		for productID, q := range overrides {
			d, ok := byProduct[productID]
			if !ok {
				return fmt.Errorf("%w: producto %s no está en la sesión", domain.ErrNotFound, productID)
			}
			if err := reconcile.Override(d, q); err != nil {
				return err
			}
			if err := sessionRepo.SaveDetail(ctx, d); err != nil {
				return err
			}
		}

		now := uc.now()
		l := ledger.New(stockRepo, companyID).WithClock(uc.now)
		keys := make([]ledger.Key, 0, len(details))
		for _, d := range details {
			keys = append(keys, ledger.Key{ProductID: d.ProductID, SectorID: session.SectorID})
		}
		rows, err := l.Lock(ctx, keys...)
		if err != nil {
			return err
		}

		txID := uuid.New().String()
		lines := make([]entity.AdjustmentLine, 0, len(details))
		for _, d := range details {
			entry := rows[ledger.Key{ProductID: d.ProductID, SectorID: session.SectorID}]
			resolved := reconcile.Resolve(d)
			previous := entry.Quantity
			if keepsLedgerQuantity(d) {
				// OMIT conserva la cantidad vigente; el snapshot pudo cambiar por movimientos durante el conteo
				resolved = previous
			}
			if resolved != previous {
				if err := l.Write(ctx, entry, resolved); err != nil {
					return err
				}
				if err := movRepo.Create(ctx, &entity.StockMovement{
					ID:               uuid.New().String(),
					TransactionID:    txID,
					CompanyID:        companyID,
					ProductID:        d.ProductID,
					SectorID:         session.SectorID,
					Type:             entity.MovementTypeADJUSTMENT,
					Quantity:         resolved - previous,
					PreviousQuantity: previous,
					NewQuantity:      resolved,
					Reference:        session.ID,
					CreatedAt:        now,
					CreatedBy:        supervisorID,
				}); err != nil {
					return err
				}
			}
			action := d.Action
			if action == "" {
				action = entity.ActionOmit
			}
			lines = append(lines, entity.AdjustmentLine{
				ProductID:        d.ProductID,
				StockAtSystem:    d.StockAtSystem,
				Count1:           d.Count1,
				Count2:           d.Count2,
				WasCounted:       d.WasCounted,
				Action:           action,
				Overridden:       d.Overridden,
				PreviousQuantity: previous,
				NewQuantity:      resolved,
				Delta:            resolved - previous,
			})
		}

		if session.ClosedAt == nil {
			session.ClosedAt = &now
		}
		session.State = entity.CountStateArchived
		session.FinalizedAt = &now
		session.FinalizedBy = supervisorID
		session.UpdatedAt = now
		if err := sessionRepo.Update(ctx, session); err != nil {
			return err
		}

		record = &entity.AdjustmentRecord{
			ID:              uuid.New().String(),
			CompanyID:       companyID,
			SessionID:       session.ID,
			SectorID:        session.SectorID,
			User1ID:         session.User1ID,
			User2ID:         session.User2ID,
			SupervisorID:    supervisorID,
			Outcome:         outcome,
			TotalProducts:   session.TotalProducts,
			CountedProducts: session.CountedProducts,
			Attempts:        attempt,
			CreatedAt:       now,
			Lines:           lines,
		}
		return adjustmentRepo.Create(ctx, record)
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// keepsLedgerQuantity indica un producto no contado, sin decisión manual y con acción OMIT.
func keepsLedgerQuantity(d *entity.ProductCountDetail) bool {
	return !d.WasCounted && !d.Overridden && (d.Action == "" || d.Action == entity.ActionOmit)
}

// GetRegistry devuelve el registro generado al aplicar la sesión.
func (uc *CountUseCase) GetRegistry(ctx context.Context, companyID, sessionID string) (*dto.AdjustmentRecordResponse, error) {
	record, err := uc.loadRecord(ctx, companyID, sessionID)
	if err != nil {
		return nil, err
	}
	return uc.toRecordResponse(ctx, record)
}

// RegistryPDF genera el PDF del registro.
func (uc *CountUseCase) RegistryPDF(ctx context.Context, companyID, sessionID string) ([]byte, error) {
	if uc.pdf == nil {
		return nil, errors.New("generador de PDF no configurado")
	}
	record, err := uc.loadRecord(ctx, companyID, sessionID)
	if err != nil {
		return nil, err
	}
	resp, err := uc.toRecordResponse(ctx, record)
	if err != nil {
		return nil, err
	}
	return uc.pdf.Generate(*resp, uc.sectorName(ctx, record.SectorID))
}

func (uc *CountUseCase) loadRecord(ctx context.Context, companyID, sessionID string) (*entity.AdjustmentRecord, error) {
	if _, err := uc.loadSession(ctx, companyID, sessionID); err != nil {
		return nil, err
	}
	record, err := uc.adjustmentRepo.GetBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("buscar registro: %w", err)
	}
	if record == nil {
		return nil, domain.ErrNotFound
	}
	return record, nil
}

func (uc *CountUseCase) sectorName(ctx context.Context, sectorID string) string {
	s, err := uc.sectorRepo.GetByID(ctx, sectorID)
	if err != nil || s == nil {
		return sectorID
	}
	return s.Name
}
