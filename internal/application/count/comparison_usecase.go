package count

import (
	"context"
	"errors"
	"fmt"

	"github.com/jhoicas/stock-sectores/internal/application/dto"
	reconcile "github.com/jhoicas/stock-sectores/internal/domain/count"
	"github.com/jhoicas/stock-sectores/internal/domain/entity"
)

// Comparison concilia los conteos de la sesión. Las estadísticas cubren la sesión completa;
// el filtro solo limita las filas devueltas.
func (uc *CountUseCase) Comparison(ctx context.Context, companyID, sessionID, filter string) (*dto.ComparisonResponse, error) {
	f, err := reconcile.ParseFilter(filter)
	if err != nil {
		return nil, fmt.Errorf("filtro %q: %w", filter, err)
	}
	session, err := uc.loadSession(ctx, companyID, sessionID)
	if err != nil {
		return nil, err
	}
	details, err := uc.sessionRepo.ListDetails(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("listar detalles: %w", err)
	}

	rows := reconcile.Reconcile(details)
	stats := reconcile.Summarize(rows)
	visible := reconcile.Apply(rows, f)

	ids := make([]string, 0, len(visible))
	for _, r := range visible {
		ids = append(ids, r.ProductID)
	}
	products, err := uc.productsByID(ctx, companyID, ids)
	if err != nil {
		return nil, err
	}

	out := &dto.ComparisonResponse{
		SessionID: session.ID,
		SectorID:  session.SectorID,
		State:     string(session.State),
		Filter:    string(f),
		Rows:      make([]dto.ReconciledRowResponse, 0, len(visible)),
		Stats: dto.ComparisonStats{
			Total:              stats.Total,
			Counted:            stats.Counted,
			Uncounted:          stats.Uncounted,
			WithDifferences:    stats.WithDifferences,
			WithoutDifferences: stats.WithoutDifferences,
			CompletionPct:      stats.CompletionPct,
			NetDiffVsSystem:    stats.NetDiffVsSystem,
		},
	}
	for _, r := range visible {
		row := dto.ReconciledRowResponse{
			ProductID:         r.ProductID,
			StockAtSystem:     r.StockAtSystem,
			Count1:            r.Count1,
			Count2:            r.Count2,
			WasCounted:        r.WasCounted,
			Action:            string(r.Action),
			DiffVsSystem:      r.DiffVsSystem,
			DiffBetweenCounts: r.DiffBetweenCounts,
			ResolvedQuantity:  r.ResolvedQuantity,
			Overridden:        r.Overridden,
			HasDifference:     r.HasDifference,
		}
		if p := products[r.ProductID]; p != nil {
			row.ProductName = p.Name
			row.CustomCode = p.CustomCode
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

// ExportComparison genera la planilla de la comparación con el filtro indicado.
func (uc *CountUseCase) ExportComparison(ctx context.Context, companyID, sessionID, filter string) ([]byte, error) {
	if uc.exporter == nil {
		return nil, errors.New("exportador de planillas no configurado")
	}
	cmp, err := uc.Comparison(ctx, companyID, sessionID, filter)
	if err != nil {
		return nil, err
	}
	return uc.exporter.Export(*cmp, uc.sectorName(ctx, cmp.SectorID))
}

func (uc *CountUseCase) productsByID(ctx context.Context, companyID string, ids []string) (map[string]*entity.Product, error) {
	out := make(map[string]*entity.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	list, err := uc.productRepo.ListByIDs(ctx, companyID, ids)
	if err != nil {
		return nil, fmt.Errorf("listar productos: %w", err)
	}
	for _, p := range list {
		out[p.ID] = p
	}
	return out, nil
}
