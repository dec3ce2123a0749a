package stock

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/jhoicas/stock-sectores/internal/application/dto"
	"github.com/jhoicas/stock-sectores/internal/domain"
	"github.com/jhoicas/stock-sectores/internal/domain/entity"
	"github.com/jhoicas/stock-sectores/internal/domain/repository"
	"github.com/jhoicas/stock-sectores/internal/domain/stock"
)

// QueryUseCase lecturas del ledger: vista consolidada, stock por sector e historial de movimientos.
// No toma locks; los mutadores revalidan cantidades dentro de su propia transacción.
type QueryUseCase struct {
	stockRepo   repository.StockRepository
	movRepo     repository.StockMovementRepository
	productRepo repository.ProductRepository
	sectorRepo  repository.SectorRepository
}

// NewQueryUseCase construye el caso de uso.
func NewQueryUseCase(
	stockRepo repository.StockRepository,
	movRepo repository.StockMovementRepository,
	productRepo repository.ProductRepository,
	sectorRepo repository.SectorRepository,
) *QueryUseCase {
	return &QueryUseCase{stockRepo: stockRepo, movRepo: movRepo, productRepo: productRepo, sectorRepo: sectorRepo}
}

// ConsolidatedStock une las filas de cada producto en un total. Con SectorID solo considera
// los productos presentes en ese sector, pero el total sigue siendo el de todos los sectores.
func (uc *QueryUseCase) ConsolidatedStock(ctx context.Context, companyID string, f dto.ConsolidatedStockFilter) ([]dto.ConsolidatedStockRow, error) {
	rows, err := uc.stockRepo.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("listar stock: %w", err)
	}

	var inSector map[string]bool
	if f.SectorID != "" {
		if _, err := checkSector(ctx, uc.sectorRepo, companyID, f.SectorID, false); err != nil {
			return nil, err
		}
		inSector = make(map[string]bool)
		for _, r := range rows {
			if r.SectorID == f.SectorID {
				inSector[r.ProductID] = true
			}
		}
	}

	consolidated := stock.Consolidate(rows)
	ids := make([]string, 0, len(consolidated))
	for _, c := range consolidated {
		ids = append(ids, c.ProductID)
	}
	products, err := uc.productsByID(ctx, companyID, ids)
	if err != nil {
		return nil, err
	}

	search := foldText(f.Search)
	out := make([]dto.ConsolidatedStockRow, 0, len(consolidated))
	for _, c := range consolidated {
		if inSector != nil && !inSector[c.ProductID] {
			continue
		}
		if !f.IncludeZero && c.TotalQuantity == 0 {
			continue
		}
		p := products[c.ProductID]
		if search != "" && !matches(p, search) {
			continue
		}
		row := dto.ConsolidatedStockRow{
			ProductID:     c.ProductID,
			TotalQuantity: c.TotalQuantity,
			SectorCount:   c.SectorCount,
			LastUpdated:   c.LastUpdated,
		}
		if p != nil {
			row.ProductName = p.Name
			row.CustomCode = p.CustomCode
			row.UnitMeasure = p.UnitMeasure
		}
		out = append(out, row)
	}
	return out, nil
}

// SectorStock filas de un sector con el nombre de cada producto.
func (uc *QueryUseCase) SectorStock(ctx context.Context, companyID, sectorID string) (*dto.SectorStockResponse, error) {
	s, err := checkSector(ctx, uc.sectorRepo, companyID, sectorID, false)
	if err != nil {
		return nil, err
	}
	rows, err := uc.stockRepo.ListBySector(ctx, companyID, sectorID)
	if err != nil {
		return nil, fmt.Errorf("listar stock del sector: %w", err)
	}
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ProductID)
	}
	products, err := uc.productsByID(ctx, companyID, ids)
	if err != nil {
		return nil, err
	}

	out := &dto.SectorStockResponse{SectorID: s.ID, SectorName: s.Name, Items: make([]dto.SectorStockItem, 0, len(rows))}
	for _, r := range rows {
		item := dto.SectorStockItem{ProductID: r.ProductID, Quantity: r.Quantity, UpdatedAt: r.UpdatedAt}
		if p := products[r.ProductID]; p != nil {
			item.ProductName = p.Name
		}
		out.TotalUnits += r.Quantity
		out.Items = append(out.Items, item)
	}
	return out, nil
}

// Movements historial de un producto, más recientes primero.
func (uc *QueryUseCase) Movements(ctx context.Context, companyID, productID string, from, to *time.Time, limit, offset int) ([]dto.MovementResponse, error) {
	if productID == "" {
		return nil, domain.ErrInvalidInput
	}
	if err := checkProduct(ctx, uc.productRepo, companyID, productID); err != nil {
		return nil, err
	}
	list, err := uc.movRepo.ListByProduct(ctx, companyID, productID, from, to, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listar movimientos: %w", err)
	}
	out := make([]dto.MovementResponse, 0, len(list))
	for _, m := range list {
		out = append(out, dto.MovementResponse{
			ID:               m.ID,
			TransactionID:    m.TransactionID,
			ProductID:        m.ProductID,
			SectorID:         m.SectorID,
			Type:             m.Type,
			Quantity:         m.Quantity,
			PreviousQuantity: m.PreviousQuantity,
			NewQuantity:      m.NewQuantity,
			Reference:        m.Reference,
			CreatedAt:        m.CreatedAt,
			CreatedBy:        m.CreatedBy,
		})
	}
	return out, nil
}

func (uc *QueryUseCase) productsByID(ctx context.Context, companyID string, ids []string) (map[string]*entity.Product, error) {
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

func matches(p *entity.Product, folded string) bool {
	if p == nil {
		return false
	}
	return strings.Contains(foldText(p.Name), folded) || strings.Contains(foldText(p.CustomCode), folded)
}

// foldText pasa a minúsculas y quita tildes ("Azúcar" y "azucar" coinciden).
func foldText(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}
