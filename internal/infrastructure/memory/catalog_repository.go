package memory

import (
	"context"
	"sort"

	"github.com/jhoicas/stock-sectores/internal/domain"
	"github.com/jhoicas/stock-sectores/internal/domain/entity"
	"github.com/jhoicas/stock-sectores/internal/domain/repository"
)

var (
	_ repository.SectorRepository  = (*SectorRepo)(nil)
	_ repository.ProductRepository = (*ProductRepo)(nil)
)

// SectorRepo sectores en memoria.
type SectorRepo struct {
	db access
}

// Create persiste un sector nuevo.
func (r *SectorRepo) Create(_ context.Context, s *entity.Sector) error {
	return r.db.write(func(st *state) error {
		if _, ok := st.sectors[s.ID]; ok {
			return domain.ErrConflict
		}
		st.sectors[s.ID] = *s
		return nil
	})
}

// GetByID devuelve nil, nil si no existe (mismo contrato que PostgreSQL).
func (r *SectorRepo) GetByID(_ context.Context, id string) (*entity.Sector, error) {
	var out *entity.Sector
	err := r.db.read(func(st *state) error {
		if s, ok := st.sectors[id]; ok {
			out = &s
		}
		return nil
	})
	return out, err
}

// Update reemplaza el sector.
func (r *SectorRepo) Update(_ context.Context, s *entity.Sector) error {
	return r.db.write(func(st *state) error {
		if _, ok := st.sectors[s.ID]; !ok {
			return domain.ErrNotFound
		}
		st.sectors[s.ID] = *s
		return nil
	})
}

// ListByCompany sectores ordenados por nombre.
func (r *SectorRepo) ListByCompany(_ context.Context, companyID string, limit, offset int) ([]*entity.Sector, error) {
	var out []*entity.Sector
	err := r.db.read(func(st *state) error {
		for _, s := range st.sectors {
			if s.CompanyID == companyID {
				s := s
				out = append(out, &s)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if offset >= len(out) {
		return []*entity.Sector{}, err
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, err
}

// ProductRepo lectura del catálogo cargado con Store.PutProduct.
type ProductRepo struct {
	db access
}

// GetByID devuelve nil, nil si no existe.
func (r *ProductRepo) GetByID(_ context.Context, id string) (*entity.Product, error) {
	var out *entity.Product
	err := r.db.read(func(st *state) error {
		if p, ok := st.products[id]; ok {
			out = &p
		}
		return nil
	})
	return out, err
}

// ListByIDs productos de la empresa con esos IDs (los desconocidos se omiten).
func (r *ProductRepo) ListByIDs(_ context.Context, companyID string, ids []string) ([]*entity.Product, error) {
	var out []*entity.Product
	err := r.db.read(func(st *state) error {
		for _, id := range ids {
			if p, ok := st.products[id]; ok && p.CompanyID == companyID {
				p := p
				out = append(out, &p)
			}
		}
		return nil
	})
	return out, err
}
