// Package count contiene el algoritmo de conciliación del conteo doble por sector.
// Funciones puras sobre los detalles de una sesión; la persistencia vive en la capa de aplicación.
package count

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-sectores/internal/domain"
	"github.com/jhoicas/stock-sectores/internal/domain/entity"
)

// Filter filtro de filas para la comparación.
type Filter string

const (
	FilterAll                Filter = "TODOS"
	FilterWithDifferences    Filter = "CON_DIFERENCIA"
	FilterWithoutDifferences Filter = "SIN_DIFERENCIA"
)

// ParseFilter acepta el filtro sin distinguir mayúsculas; vacío equivale a TODOS.
func ParseFilter(s string) (Filter, error) {
	switch f := Filter(strings.ToUpper(strings.TrimSpace(s))); f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterWithDifferences, FilterWithoutDifferences:
		return f, nil
	}
	return "", domain.ErrInvalidInput
}

// ReconciledRow fila consolidada de un producto: conteos, diferencias y cantidad resuelta.
type ReconciledRow struct {
	DetailID          string
	ProductID         string
	StockAtSystem     int64
	Count1            int64
	Count2            int64
	Counted1          bool
	Counted2          bool
	WasCounted        bool
	Action            entity.UncountedAction
	DiffVsSystem      int64 // ResolvedQuantity - StockAtSystem
	DiffBetweenCounts int64 // Count1 - Count2 (0 = los operarios coinciden)
	ResolvedQuantity  int64
	Overridden        bool
	HasDifference     bool
}

// Resolve calcula la cantidad resuelta de un detalle:
//   - fijada por el supervisor: ese valor;
//   - contado: max(Count1, Count2), nunca se descarta el conteo mayor;
//   - no contado: OMIT conserva StockAtSystem, ZERO lo lleva a 0.
func Resolve(d *entity.ProductCountDetail) int64 {
	if d.Overridden && d.ResolvedQuantity != nil {
		return *d.ResolvedQuantity
	}
	if !d.WasCounted {
		if d.Action == entity.ActionZero {
			return 0
		}
		return d.StockAtSystem
	}
	return max(d.Count1, d.Count2)
}

// HasDifference indica si los dos operarios no coinciden en un producto contado.
func HasDifference(d *entity.ProductCountDetail) bool {
	return d.WasCounted && d.Count1 != d.Count2
}

// Reconcile produce una fila por detalle, ordenada por producto.
func Reconcile(details []*entity.ProductCountDetail) []ReconciledRow {
	rows := make([]ReconciledRow, 0, len(details))
	for _, d := range details {
		if d == nil {
			continue
		}
		action := d.Action
		if action == "" {
			action = entity.ActionOmit
		}
		resolved := Resolve(d)
		rows = append(rows, ReconciledRow{
			DetailID:          d.ID,
			ProductID:         d.ProductID,
			StockAtSystem:     d.StockAtSystem,
			Count1:            d.Count1,
			Count2:            d.Count2,
			Counted1:          d.Counted1,
			Counted2:          d.Counted2,
			WasCounted:        d.WasCounted,
			Action:            action,
			DiffVsSystem:      resolved - d.StockAtSystem,
			DiffBetweenCounts: d.Count1 - d.Count2,
			ResolvedQuantity:  resolved,
			Overridden:        d.Overridden,
			HasDifference:     HasDifference(d),
		})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].ProductID < rows[j].ProductID })
	return rows
}

// Apply filtra las filas según el criterio de la vista.
func Apply(rows []ReconciledRow, f Filter) []ReconciledRow {
	if f == FilterAll || f == "" {
		return rows
	}
	out := make([]ReconciledRow, 0, len(rows))
	for _, r := range rows {
		if (f == FilterWithDifferences) == r.HasDifference {
			out = append(out, r)
		}
	}
	return out
}

// SetAction fija la acción de un producto no contado y recalcula de inmediato la cantidad resuelta.
func SetAction(d *entity.ProductCountDetail, action entity.UncountedAction) error {
	if !action.Valid() {
		return domain.ErrInvalidInput
	}
	if d.WasCounted {
		// la acción solo decide sobre productos que nadie contó
		return domain.ErrInvalidInput
	}
	d.Action = action
	resolved := Resolve(d)
	d.ResolvedQuantity = &resolved
	return nil
}

// Override registra la decisión manual del supervisor sobre un producto contado.
// Colapsa ambos conteos al valor decidido para que la auditoría quede simétrica.
func Override(d *entity.ProductCountDetail, quantity int64) error {
	if quantity < 0 {
		return domain.NewStockError(domain.ErrInvalidQuantity, d.ProductID, "", quantity, d.StockAtSystem)
	}
	if !d.WasCounted {
		return domain.ErrInvalidInput
	}
	q := quantity
	d.ResolvedQuantity = &q
	d.Count1 = quantity
	d.Count2 = quantity
	d.Overridden = true
	return nil
}

// Outcome decide el estado de cierre: WITH_DIFFERENCES si algún producto tiene Count1 != Count2.
func Outcome(details []*entity.ProductCountDetail) entity.CountSessionState {
	for _, d := range details {
		if d != nil && HasDifference(d) {
			return entity.CountStateWithDifferences
		}
	}
	return entity.CountStateCompleted
}

// Stats resumen para la vista de comparación.
type Stats struct {
	Total              int
	Counted            int
	Uncounted          int
	WithDifferences    int
	WithoutDifferences int
	CompletionPct      decimal.Decimal // Counted / Total * 100, dos decimales
	NetDiffVsSystem    int64
}

// Summarize calcula las estadísticas sobre las filas conciliadas.
func Summarize(rows []ReconciledRow) Stats {
	var s Stats
	s.Total = len(rows)
	for _, r := range rows {
		if r.WasCounted {
			s.Counted++
		}
		if r.HasDifference {
			s.WithDifferences++
		}
		s.NetDiffVsSystem += r.DiffVsSystem
	}
	s.Uncounted = s.Total - s.Counted
	s.WithoutDifferences = s.Total - s.WithDifferences
	s.CompletionPct = CompletionPct(s.Counted, s.Total)
	return s
}

// CompletionPct porcentaje de avance de la sesión.
func CompletionPct(counted, total int) decimal.Decimal {
	if total <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(counted)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(total))).
		Round(2)
}
