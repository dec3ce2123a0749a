package count

import (
	"context"

	"github.com/jhoicas/stock-sectores/internal/application/dto"
	reconcile "github.com/jhoicas/stock-sectores/internal/domain/count"
	"github.com/jhoicas/stock-sectores/internal/domain/entity"
)

func toSessionResponse(s *entity.CountSession) *dto.CountSessionResponse {
	return &dto.CountSessionResponse{
		ID:              s.ID,
		SectorID:        s.SectorID,
		User1ID:         s.User1ID,
		User2ID:         s.User2ID,
		State:           string(s.State),
		TotalProducts:   s.TotalProducts,
		CountedProducts: s.CountedProducts,
		CompletionPct:   reconcile.CompletionPct(s.CountedProducts, s.TotalProducts),
		CreatedAt:       s.CreatedAt,
		ClosedAt:        s.ClosedAt,
		FinalizedAt:     s.FinalizedAt,
		FinalizedBy:     s.FinalizedBy,
	}
}

// toDetailResponse informa la cantidad resuelta vigente (provisional o decidida).
func toDetailResponse(d *entity.ProductCountDetail) *dto.ProductCountDetailResponse {
	resolved := reconcile.Resolve(d)
	action := d.Action
	if action == "" {
		action = entity.ActionOmit
	}
	out := &dto.ProductCountDetailResponse{
		SessionID:        d.SessionID,
		ProductID:        d.ProductID,
		StockAtSystem:    d.StockAtSystem,
		Count1:           d.Count1,
		Count2:           d.Count2,
		WasCounted:       d.WasCounted,
		Action:           string(action),
		ResolvedQuantity: &resolved,
		Overridden:       d.Overridden,
		SubCounts:        make([]dto.SubCountResponse, 0, len(d.SubCounts)),
	}
	for _, sc := range d.SubCounts {
		out.SubCounts = append(out.SubCounts, dto.SubCountResponse{
			ID:         sc.ID,
			UserSlot:   sc.UserSlot,
			UserID:     sc.UserID,
			Quantity:   sc.Quantity,
			Expression: sc.Expression,
			Formula:    sc.Formula,
			CreatedAt:  sc.CreatedAt,
		})
	}
	return out
}

func (uc *CountUseCase) toRecordResponse(ctx context.Context, r *entity.AdjustmentRecord) (*dto.AdjustmentRecordResponse, error) {
	ids := make([]string, 0, len(r.Lines))
	for _, l := range r.Lines {
		ids = append(ids, l.ProductID)
	}
	products, err := uc.productsByID(ctx, r.CompanyID, ids)
	if err != nil {
		return nil, err
	}
	out := &dto.AdjustmentRecordResponse{
		ID:              r.ID,
		SessionID:       r.SessionID,
		SectorID:        r.SectorID,
		User1ID:         r.User1ID,
		User2ID:         r.User2ID,
		SupervisorID:    r.SupervisorID,
		Outcome:         string(r.Outcome),
		TotalProducts:   r.TotalProducts,
		CountedProducts: r.CountedProducts,
		Attempts:        r.Attempts,
		NetDelta:        r.NetDelta(),
		CreatedAt:       r.CreatedAt,
		Lines:           make([]dto.AdjustmentLineResponse, 0, len(r.Lines)),
	}
	for _, l := range r.Lines {
		line := dto.AdjustmentLineResponse{
			ProductID:        l.ProductID,
			StockAtSystem:    l.StockAtSystem,
			Count1:           l.Count1,
			Count2:           l.Count2,
			WasCounted:       l.WasCounted,
			Action:           string(l.Action),
			Overridden:       l.Overridden,
			PreviousQuantity: l.PreviousQuantity,
			NewQuantity:      l.NewQuantity,
			Delta:            l.Delta,
		}
		if p := products[l.ProductID]; p != nil {
			line.ProductName = p.Name
		}
		out.Lines = append(out.Lines, line)
	}
	return out, nil
}
