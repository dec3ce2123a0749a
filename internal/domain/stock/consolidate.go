// Package stock contiene la proyección de lectura que une las filas por sector de un producto.
package stock

import (
	"sort"
	"time"

	"github.com/jhoicas/stock-sectores/internal/domain/entity"
)

// ConsolidatedStockRow total de un producto sumando todos sus sectores (incluido el pool sin sector).
// Se recalcula en cada lectura; nunca se persiste.
type ConsolidatedStockRow struct {
	ProductID     string
	TotalQuantity int64
	SectorCount   int // filas agrupadas
	LastUpdated   time.Time
}

// Consolidate agrupa por ProductID, suma cantidades y conserva la actualización más reciente.
// Es una función pura: el resultado no depende del orden de entrada (sale ordenado por ProductID).
func Consolidate(rows []*entity.StockEntry) []ConsolidatedStockRow {
	byProduct := make(map[string]*ConsolidatedStockRow, len(rows))
	for _, r := range rows {
		if r == nil {
			continue
		}
		acc, ok := byProduct[r.ProductID]
		if !ok {
			acc = &ConsolidatedStockRow{ProductID: r.ProductID}
			byProduct[r.ProductID] = acc
		}
		acc.TotalQuantity += r.Quantity
		acc.SectorCount++
		if r.UpdatedAt.After(acc.LastUpdated) {
			acc.LastUpdated = r.UpdatedAt
		}
	}

	out := make([]ConsolidatedStockRow, 0, len(byProduct))
	for _, acc := range byProduct {
		out = append(out, *acc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

// TotalFor suma las filas de un único producto.
func TotalFor(productID string, rows []*entity.StockEntry) int64 {
	var total int64
	for _, r := range rows {
		if r != nil && r.ProductID == productID {
			total += r.Quantity
		}
	}
	return total
}
