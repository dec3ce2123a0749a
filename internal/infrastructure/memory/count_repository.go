package memory

import (
	"context"
	"sort"

	"github.com/jhoicas/stock-sectores/internal/domain"
	"github.com/jhoicas/stock-sectores/internal/domain/entity"
	"github.com/jhoicas/stock-sectores/internal/domain/repository"
)

var (
	_ repository.CountSessionRepository = (*CountSessionRepo)(nil)
	_ repository.AdjustmentRepository   = (*AdjustmentRepo)(nil)
)

// CountSessionRepo sesiones de conteo en memoria.
type CountSessionRepo struct {
	db access
}

// Create guarda la sesión con su snapshot de detalles.
func (r *CountSessionRepo) Create(_ context.Context, session *entity.CountSession, details []*entity.ProductCountDetail) error {
	return r.db.write(func(st *state) error {
		if _, ok := st.sessions[session.ID]; ok {
			return domain.ErrConflict
		}
		for _, s := range st.sessions {
			if s.CompanyID == session.CompanyID && s.SectorID == session.SectorID && !s.IsArchived() {
				return domain.ErrConflict
			}
		}
		st.sessions[session.ID] = copySession(*session)
		byProduct := make(map[string]*entity.ProductCountDetail, len(details))
		for _, d := range details {
			byProduct[d.ProductID] = copyDetail(d)
		}
		st.details[session.ID] = byProduct
		return nil
	})
}

// GetByID devuelve nil, nil si no existe.
func (r *CountSessionRepo) GetByID(_ context.Context, id string) (*entity.CountSession, error) {
	var out *entity.CountSession
	err := r.db.read(func(st *state) error {
		if s, ok := st.sessions[id]; ok {
			c := copySession(s)
			out = &c
		}
		return nil
	})
	return out, err
}

// GetForUpdate igual que GetByID; la tx ya serializa.
func (r *CountSessionRepo) GetForUpdate(ctx context.Context, id string) (*entity.CountSession, error) {
	return r.GetByID(ctx, id)
}

// FindOpenBySector sesión no archivada del sector, o nil.
func (r *CountSessionRepo) FindOpenBySector(_ context.Context, companyID, sectorID string) (*entity.CountSession, error) {
	var out *entity.CountSession
	err := r.db.read(func(st *state) error {
		for _, s := range st.sessions {
			if s.CompanyID == companyID && s.SectorID == sectorID && !s.IsArchived() {
				c := copySession(s)
				out = &c
				return nil
			}
		}
		return nil
	})
	return out, err
}

// Update reemplaza la cabecera de la sesión.
func (r *CountSessionRepo) Update(_ context.Context, session *entity.CountSession) error {
	return r.db.write(func(st *state) error {
		if _, ok := st.sessions[session.ID]; !ok {
			return domain.ErrNotFound
		}
		st.sessions[session.ID] = copySession(*session)
		return nil
	})
}

// ListByCompany sesiones más recientes primero.
func (r *CountSessionRepo) ListByCompany(_ context.Context, companyID string, limit, offset int) ([]*entity.CountSession, error) {
	var out []*entity.CountSession
	err := r.db.read(func(st *state) error {
		for _, s := range st.sessions {
			if s.CompanyID == companyID {
				c := copySession(s)
				out = append(out, &c)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if offset >= len(out) {
		return []*entity.CountSession{}, err
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, err
}

// ListDetails detalles con subconteos, ordenados por producto.
func (r *CountSessionRepo) ListDetails(_ context.Context, sessionID string) ([]*entity.ProductCountDetail, error) {
	var out []*entity.ProductCountDetail
	err := r.db.read(func(st *state) error {
		for _, d := range st.details[sessionID] {
			out = append(out, copyDetail(d))
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, err
}

// GetDetail devuelve nil, nil si el producto no está en la sesión.
func (r *CountSessionRepo) GetDetail(_ context.Context, sessionID, productID string) (*entity.ProductCountDetail, error) {
	var out *entity.ProductCountDetail
	err := r.db.read(func(st *state) error {
		if d, ok := st.details[sessionID][productID]; ok {
			out = copyDetail(d)
		}
		return nil
	})
	return out, err
}

// SaveDetail inserta o actualiza el detalle conservando los subconteos guardados.
func (r *CountSessionRepo) SaveDetail(_ context.Context, detail *entity.ProductCountDetail) error {
	return r.db.write(func(st *state) error {
		byProduct, ok := st.details[detail.SessionID]
		if !ok {
			return domain.ErrNotFound
		}
		c := copyDetail(detail)
		if prev, ok := byProduct[detail.ProductID]; ok {
			c.SubCounts = prev.SubCounts
		} else {
			c.SubCounts = nil
		}
		byProduct[detail.ProductID] = c
		return nil
	})
}

// AddSubCount agrega el subconteo al detalle del producto.
func (r *CountSessionRepo) AddSubCount(_ context.Context, sc *entity.SubCount) error {
	return r.db.write(func(st *state) error {
		d, ok := st.details[sc.SessionID][sc.ProductID]
		if !ok {
			return domain.ErrNotFound
		}
		d.SubCounts = append(d.SubCounts, *sc)
		return nil
	})
}

// DeleteSubCount elimina el subconteo y lo devuelve; ErrNotFound si no existe.
func (r *CountSessionRepo) DeleteSubCount(_ context.Context, sessionID, subCountID string) (*entity.SubCount, error) {
	var removed *entity.SubCount
	err := r.db.write(func(st *state) error {
		for _, d := range st.details[sessionID] {
			for i, sc := range d.SubCounts {
				if sc.ID == subCountID {
					sc := sc
					removed = &sc
					d.SubCounts = append(d.SubCounts[:i:i], d.SubCounts[i+1:]...)
					return nil
				}
			}
		}
		return domain.ErrNotFound
	})
	return removed, err
}

// AdjustmentRepo registros de ajuste en memoria (solo alta y lectura).
type AdjustmentRepo struct {
	db access
}

// Create guarda el registro; uno por sesión.
func (r *AdjustmentRepo) Create(_ context.Context, record *entity.AdjustmentRecord) error {
	return r.db.write(func(st *state) error {
		if _, ok := st.adjustments[record.SessionID]; ok {
			return domain.ErrConflict
		}
		st.adjustments[record.SessionID] = copyRecord(*record)
		return nil
	})
}

// GetBySession devuelve nil, nil si la sesión no fue aplicada.
func (r *AdjustmentRepo) GetBySession(_ context.Context, sessionID string) (*entity.AdjustmentRecord, error) {
	var out *entity.AdjustmentRecord
	err := r.db.read(func(st *state) error {
		if rec, ok := st.adjustments[sessionID]; ok {
			c := copyRecord(rec)
			out = &c
		}
		return nil
	})
	return out, err
}
