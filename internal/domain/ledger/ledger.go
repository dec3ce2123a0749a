// Package ledger es el dueño del mapa autoritativo (producto, sector) → cantidad.
// Opera siempre sobre el StockRepository que recibe; dentro de una transacción,
// el repositorio atado a la tx.
package ledger

import (
	"context"
	"sort"
	"time"

	"github.com/jhoicas/stock-sectores/internal/domain"
	"github.com/jhoicas/stock-sectores/internal/domain/entity"
	"github.com/jhoicas/stock-sectores/internal/domain/repository"
	"github.com/jhoicas/stock-sectores/internal/domain/stock"
)

// Key identifica una fila del ledger dentro de una empresa.
type Key struct {
	ProductID string
	SectorID  string
}

// Ledger servicio de dominio sobre las filas de stock de una empresa.
type Ledger struct {
	repo      repository.StockRepository
	companyID string
	now       func() time.Time
}

// New construye el ledger para la empresa indicada.
func New(repo repository.StockRepository, companyID string) *Ledger {
	return &Ledger{repo: repo, companyID: companyID, now: time.Now}
}

// WithClock reemplaza el reloj (tests).
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// Get devuelve la cantidad actual (0 si la fila no existe).
func (l *Ledger) Get(ctx context.Context, productID, sectorID string) (int64, error) {
	e, err := l.repo.Get(ctx, l.companyID, productID, sectorID)
	if err != nil {
		return 0, err
	}
	return e.Quantity, nil
}

// Lock bloquea las filas indicadas en orden determinístico (producto, sector) para evitar deadlocks
// entre operaciones concurrentes que tocan las mismas filas en distinto orden.
func (l *Ledger) Lock(ctx context.Context, keys ...Key) (map[Key]*entity.StockEntry, error) {
	uniq := make([]Key, 0, len(keys))
	seen := make(map[Key]bool, len(keys))
	for _, k := range keys {
		if !seen[k] {
			seen[k] = true
			uniq = append(uniq, k)
		}
	}
	sort.Slice(uniq, func(i, j int) bool {
		if uniq[i].ProductID != uniq[j].ProductID {
			return uniq[i].ProductID < uniq[j].ProductID
		}
		return uniq[i].SectorID < uniq[j].SectorID
	})

	out := make(map[Key]*entity.StockEntry, len(uniq))
	for _, k := range uniq {
		e, err := l.repo.GetForUpdate(ctx, l.companyID, k.ProductID, k.SectorID)
		if err != nil {
			return nil, err
		}
		out[k] = e
	}
	return out, nil
}

// Write fija la cantidad de una fila ya leída (bloqueada). Rechaza cantidades negativas.
func (l *Ledger) Write(ctx context.Context, entry *entity.StockEntry, quantity int64) error {
	if quantity < 0 {
		return domain.NewStockError(domain.ErrInvalidQuantity, entry.ProductID, entry.SectorID, quantity, entry.Quantity)
	}
	entry.CompanyID = l.companyID
	entry.Quantity = quantity
	entry.UpdatedAt = l.now()
	return l.repo.Upsert(ctx, entry)
}

// SetQuantity bloquea la fila y reemplaza su cantidad. Devuelve la cantidad anterior.
// Solo lo usan el motor de traslados y el conciliador de conteos.
func (l *Ledger) SetQuantity(ctx context.Context, productID, sectorID string, quantity int64) (int64, error) {
	if quantity < 0 {
		return 0, domain.NewStockError(domain.ErrInvalidQuantity, productID, sectorID, quantity, 0)
	}
	rows, err := l.Lock(ctx, Key{ProductID: productID, SectorID: sectorID})
	if err != nil {
		return 0, err
	}
	entry := rows[Key{ProductID: productID, SectorID: sectorID}]
	previous := entry.Quantity
	if err := l.Write(ctx, entry, quantity); err != nil {
		return 0, err
	}
	return previous, nil
}

// TotalFor suma la cantidad del producto en todos los sectores (incluido el pool sin sector).
func (l *Ledger) TotalFor(ctx context.Context, productID string) (int64, error) {
	rows, err := l.repo.ListByProduct(ctx, l.companyID, productID)
	if err != nil {
		return 0, err
	}
	return stock.TotalFor(productID, rows), nil
}

// Snapshot toma los totales de los productos indicados antes de una operación de traslado.
func (l *Ledger) Snapshot(ctx context.Context, productIDs ...string) (map[string]int64, error) {
	out := make(map[string]int64, len(productIDs))
	for _, id := range productIDs {
		if _, ok := out[id]; ok {
			continue
		}
		total, err := l.TotalFor(ctx, id)
		if err != nil {
			return nil, err
		}
		out[id] = total
	}
	return out, nil
}

// AssertConserved verifica que los totales no cambiaron respecto de before.
// Un traslado o asignación nunca crea ni destruye unidades.
func (l *Ledger) AssertConserved(ctx context.Context, before map[string]int64) error {
	for productID, was := range before {
		now, err := l.TotalFor(ctx, productID)
		if err != nil {
			return err
		}
		if now != was {
			return domain.NewStockError(domain.ErrConservationViolated, productID, "", now, was)
		}
	}
	return nil
}
