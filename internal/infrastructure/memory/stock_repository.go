package memory

import (
	"context"
	"sort"
	"time"

	"github.com/jhoicas/stock-sectores/internal/domain"
	"github.com/jhoicas/stock-sectores/internal/domain/entity"
	"github.com/jhoicas/stock-sectores/internal/domain/repository"
)

var (
	_ repository.StockRepository         = (*StockRepo)(nil)
	_ repository.StockMovementRepository = (*MovementRepo)(nil)
)

// StockRepo implementación en memoria de StockRepository.
type StockRepo struct {
	db access
}

// Get devuelve la fila o una fila en cero si no existe.
func (r *StockRepo) Get(_ context.Context, companyID, productID, sectorID string) (*entity.StockEntry, error) {
	var out entity.StockEntry
	err := r.db.read(func(st *state) error {
		if e, ok := st.stock[stockKey{companyID, productID, sectorID}]; ok {
			out = e
			return nil
		}
		out = entity.StockEntry{CompanyID: companyID, ProductID: productID, SectorID: sectorID}
		return nil
	})
	return &out, err
}

// GetForUpdate dentro de una tx el lock exclusivo ya lo tiene el runner.
func (r *StockRepo) GetForUpdate(ctx context.Context, companyID, productID, sectorID string) (*entity.StockEntry, error) {
	return r.Get(ctx, companyID, productID, sectorID)
}

// Upsert compara la versión y escribe la fila.
func (r *StockRepo) Upsert(_ context.Context, entry *entity.StockEntry) error {
	if entry.Quantity < 0 {
		return domain.NewStockError(domain.ErrInvalidQuantity, entry.ProductID, entry.SectorID, entry.Quantity, 0)
	}
	return r.db.write(func(st *state) error {
		key := stockKey{entry.CompanyID, entry.ProductID, entry.SectorID}
		current, ok := st.stock[key]
		if (ok && current.Version != entry.Version) || (!ok && entry.Version != 0) {
			return domain.ErrConcurrentModification
		}
		entry.Version++
		if entry.UpdatedAt.IsZero() {
			entry.UpdatedAt = time.Now()
		}
		st.stock[key] = *entry
		return nil
	})
}

// Delete elimina la fila si existe.
func (r *StockRepo) Delete(_ context.Context, companyID, productID, sectorID string) error {
	return r.db.write(func(st *state) error {
		delete(st.stock, stockKey{companyID, productID, sectorID})
		return nil
	})
}

func (r *StockRepo) list(match func(k stockKey) bool) ([]*entity.StockEntry, error) {
	var out []*entity.StockEntry
	err := r.db.read(func(st *state) error {
		for k, e := range st.stock {
			if match(k) {
				e := e
				out = append(out, &e)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProductID != out[j].ProductID {
			return out[i].ProductID < out[j].ProductID
		}
		return out[i].SectorID < out[j].SectorID
	})
	return out, err
}

// ListByProduct filas de un producto en todos los sectores.
func (r *StockRepo) ListByProduct(_ context.Context, companyID, productID string) ([]*entity.StockEntry, error) {
	return r.list(func(k stockKey) bool { return k.company == companyID && k.product == productID })
}

// ListBySector filas de un sector (vacío = pool sin sector).
func (r *StockRepo) ListBySector(_ context.Context, companyID, sectorID string) ([]*entity.StockEntry, error) {
	return r.list(func(k stockKey) bool { return k.company == companyID && k.sector == sectorID })
}

// ListByCompany todas las filas de la empresa.
func (r *StockRepo) ListByCompany(_ context.Context, companyID string) ([]*entity.StockEntry, error) {
	return r.list(func(k stockKey) bool { return k.company == companyID })
}

// MovementRepo auditoría de movimientos en memoria.
type MovementRepo struct {
	db access
}

// Create agrega el movimiento.
func (r *MovementRepo) Create(_ context.Context, m *entity.StockMovement) error {
	return r.db.write(func(st *state) error {
		st.movements = append(st.movements, *m)
		return nil
	})
}

// ListByProduct movimientos del producto, más recientes primero.
func (r *MovementRepo) ListByProduct(_ context.Context, companyID, productID string, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error) {
	var out []*entity.StockMovement
	err := r.db.read(func(st *state) error {
		for i := len(st.movements) - 1; i >= 0; i-- {
			m := st.movements[i]
			if m.CompanyID != companyID || m.ProductID != productID {
				continue
			}
			if from != nil && m.CreatedAt.Before(*from) {
				continue
			}
			if to != nil && m.CreatedAt.After(*to) {
				continue
			}
			out = append(out, &m)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if offset >= len(out) {
		return []*entity.StockMovement{}, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}
